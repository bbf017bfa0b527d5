package subscription

import (
	"context"
	"fmt"
	"time"

	"studio-admin/internal/apperr"
	"studio-admin/internal/models"
	"studio-admin/internal/repository"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type subscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) repository.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

const selectSubscriptions = `
	SELECT
		s.id, s.member_id, s.subscription_type_id, s.start_date, s.expiry_date,
		s.billing_month, s.place_id, s.status, s.quantity, s.created_by, s.created_at, s.deleted_at,
		COALESCE(t.name, '') AS type_name,
		COALESCE(t.classes_per_week, 0) AS classes_per_week,
		COALESCE(t.category, '') AS category
	FROM studio.subscriptions s
	LEFT JOIN studio.subscription_types t ON s.subscription_type_id = t.id
`

func (r *subscriptionRepository) GetByID(ctx context.Context, id int64) (*models.Subscription, error) {
	var sub models.Subscription
	query := selectSubscriptions + ` WHERE s.id = $1 AND s.deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, repository.MapError(err, "subscription", id)
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListByMember(ctx context.Context, memberID int64) ([]models.Subscription, error) {
	var subs []models.Subscription
	query := selectSubscriptions + `
		WHERE s.member_id = $1 AND s.deleted_at IS NULL
		ORDER BY s.expiry_date DESC, s.id DESC
	`
	if err := r.db.SelectContext(ctx, &subs, query, memberID); err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepository) LatestByMember(ctx context.Context, memberIDs []int64) (map[int64]models.Subscription, error) {
	result := make(map[int64]models.Subscription, len(memberIDs))
	if len(memberIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT DISTINCT ON (s.member_id)
			s.id, s.member_id, s.subscription_type_id, s.start_date, s.expiry_date,
			s.billing_month, s.place_id, s.status, s.quantity, s.created_by, s.created_at, s.deleted_at,
			COALESCE(t.name, '') AS type_name,
			COALESCE(t.classes_per_week, 0) AS classes_per_week,
			COALESCE(t.category, '') AS category
		FROM studio.subscriptions s
		LEFT JOIN studio.subscription_types t ON s.subscription_type_id = t.id
		WHERE s.deleted_at IS NULL AND s.member_id = ANY($1)
		ORDER BY s.member_id, s.expiry_date DESC, s.id DESC
	`
	var subs []models.Subscription
	if err := r.db.SelectContext(ctx, &subs, query, pq.Array(memberIDs)); err != nil {
		return nil, err
	}
	for _, sub := range subs {
		result[sub.MemberID] = sub
	}
	return result, nil
}

func (r *subscriptionRepository) ListExpiring(ctx context.Context, from, to time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	query := selectSubscriptions + `
		WHERE s.deleted_at IS NULL
		  AND s.status = 'active'
		  AND s.expiry_date BETWEEN $1 AND $2
		ORDER BY s.expiry_date ASC, s.member_id ASC
	`
	if err := r.db.SelectContext(ctx, &subs, query, models.DateKey(from), models.DateKey(to)); err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepository) CreateWithPayment(ctx context.Context, sub *models.Subscription, payment *models.Payment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin subscription tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `
		INSERT INTO studio.subscriptions
		(member_id, subscription_type_id, start_date, expiry_date, billing_month, place_id, status, quantity, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err = tx.QueryRowxContext(ctx, query,
		sub.MemberID,
		sub.SubscriptionTypeID,
		models.DateKey(sub.StartDate),
		models.DateKey(sub.ExpiryDate),
		sub.BillingMonth,
		sub.PlaceID,
		sub.Status,
		sub.Quantity,
		sub.CreatedBy,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return repository.MapError(err, "subscription for member", sub.MemberID)
	}

	if payment != nil {
		payment.SubscriptionID = sub.ID
		payment.MemberID = sub.MemberID
		query = `
			INSERT INTO studio.payments (subscription_id, member_id, amount, method)
			VALUES ($1, $2, $3, $4)
			RETURNING id, paid_at
		`
		err = tx.QueryRowxContext(ctx, query,
			payment.SubscriptionID,
			payment.MemberID,
			payment.Amount,
			payment.Method,
		).Scan(&payment.ID, &payment.PaidAt)
		if err != nil {
			return repository.MapError(err, "payment for subscription", sub.ID)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit subscription tx: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `UPDATE studio.subscriptions SET deleted_at = CURRENT_TIMESTAMP WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return repository.MapError(err, "subscription", id)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return apperr.NotFound("subscription", id)
	}
	return nil
}

func (r *subscriptionRepository) GetType(ctx context.Context, id int64) (*models.SubscriptionType, error) {
	var t models.SubscriptionType
	query := `
		SELECT id, name, classes_per_week, category, monthly_fee
		FROM studio.subscription_types
		WHERE id = $1 AND deleted_at IS NULL
	`
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		return nil, repository.MapError(err, "subscription type", id)
	}
	return &t, nil
}
