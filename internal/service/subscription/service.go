package subscription_service

import (
	"context"
	"time"

	"studio-admin/internal/apperr"
	"studio-admin/internal/models"
	"studio-admin/internal/models/config"
	"studio-admin/internal/repository"
	"studio-admin/internal/service"

	"go.uber.org/zap"
)

const (
	historyEntity = "subscription"

	defaultPaymentMethod = "cash"
)

type subscriptionService struct {
	subscriptionRepo repository.SubscriptionRepository
	attendanceRepo   repository.AttendanceRepository
	historyRepo      repository.HistoryRepository
	clock            service.Clock
	loc              *time.Location
	log              *zap.Logger
}

func NewSubscriptionService(
	subscriptionRepo repository.SubscriptionRepository,
	attendanceRepo repository.AttendanceRepository,
	historyRepo repository.HistoryRepository,
	clock service.Clock,
	cfg *config.Config,
	log *zap.Logger,
) service.SubscriptionService {
	return &subscriptionService{
		subscriptionRepo: subscriptionRepo,
		attendanceRepo:   attendanceRepo,
		historyRepo:      historyRepo,
		clock:            clock,
		loc:              cfg.Location(),
		log:              log.Named("subscription"),
	}
}

// DefaultExpiry - последний день месяца, начинающегося со start
func DefaultExpiry(start time.Time) time.Time {
	return service.DateOnly(start).AddDate(0, 1, -1)
}

func (s *subscriptionService) ListByMember(ctx context.Context, memberID int64) ([]models.Subscription, error) {
	if memberID <= 0 {
		return nil, apperr.Validation("member_id is required")
	}
	return s.subscriptionRepo.ListByMember(ctx, memberID)
}

// CreateSubscription создаёт абонемент и, если указана сумма, оплату - в одной транзакции
func (s *subscriptionService) CreateSubscription(ctx context.Context, cmd service.CreateSubscriptionCommand, actorID *int64) (*models.Subscription, error) {
	if err := service.Validate(cmd); err != nil {
		return nil, err
	}

	start := service.DateOnly(cmd.StartDate)
	expiry := DefaultExpiry(start)
	if cmd.ExpiryDate != nil {
		expiry = service.DateOnly(*cmd.ExpiryDate)
	}
	if expiry.Before(start) {
		return nil, apperr.Validation("expiry_date %s is before start_date %s", models.DateKey(expiry), models.DateKey(start))
	}

	if _, err := s.subscriptionRepo.GetType(ctx, cmd.SubscriptionTypeID); err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Validation("unknown subscription type %d", cmd.SubscriptionTypeID)
		}
		return nil, err
	}

	var payment *models.Payment
	if cmd.PaymentAmount != nil {
		if !cmd.PaymentAmount.IsPositive() {
			return nil, apperr.Validation("payment_amount must be positive")
		}
		method := cmd.PaymentMethod
		if method == "" {
			method = defaultPaymentMethod
		}
		payment = &models.Payment{Amount: *cmd.PaymentAmount, Method: method}
	}

	sub := &models.Subscription{
		MemberID:           cmd.MemberID,
		SubscriptionTypeID: cmd.SubscriptionTypeID,
		StartDate:          start,
		ExpiryDate:         expiry,
		BillingMonth:       cmd.BillingMonth,
		PlaceID:            cmd.PlaceID,
		Status:             models.SubscriptionActive,
		Quantity:           cmd.Quantity,
		CreatedBy:          actorID,
	}
	return s.create(ctx, sub, payment, actorID)
}

func (s *subscriptionService) create(ctx context.Context, sub *models.Subscription, payment *models.Payment, actorID *int64) (*models.Subscription, error) {
	if err := s.subscriptionRepo.CreateWithPayment(ctx, sub, payment); err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.Int64("subscription_id", sub.ID),
		zap.Int64("member_id", sub.MemberID),
		zap.String("start", models.DateKey(sub.StartDate)),
		zap.String("expiry", models.DateKey(sub.ExpiryDate)),
	}
	if payment != nil {
		fields = append(fields, zap.String("amount", payment.Amount.StringFixed(2)))
	}
	s.log.Info("абонемент создан", fields...)

	service.RecordHistory(ctx, s.historyRepo, s.log, historyEntity, sub.ID, models.HistoryCreate, nil, sub, actorID)
	return s.subscriptionRepo.GetByID(ctx, sub.ID)
}

// RenewSubscription продлевает абонемент: новый начинается на следующий день после окончания
func (s *subscriptionService) RenewSubscription(ctx context.Context, id int64, actorID *int64) (*models.Subscription, error) {
	prev, err := s.subscriptionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	start := service.DateOnly(prev.ExpiryDate).AddDate(0, 0, 1)
	next := &models.Subscription{
		MemberID:           prev.MemberID,
		SubscriptionTypeID: prev.SubscriptionTypeID,
		StartDate:          start,
		ExpiryDate:         DefaultExpiry(start),
		PlaceID:            prev.PlaceID,
		Status:             models.SubscriptionActive,
		Quantity:           prev.Quantity,
		CreatedBy:          actorID,
	}
	if prev.BillingMonth != nil {
		month := start.Format("2006-01")
		next.BillingMonth = &month
	}
	return s.create(ctx, next, nil, actorID)
}

// ListExpiring - активные абонементы, заканчивающиеся в [сегодня, сегодня+withinDays]
func (s *subscriptionService) ListExpiring(ctx context.Context, withinDays int) ([]models.Subscription, error) {
	if withinDays < 0 {
		return nil, apperr.Validation("days must not be negative")
	}
	today := s.clock.Today(s.loc)
	return s.subscriptionRepo.ListExpiring(ctx, today, today.AddDate(0, 0, withinDays))
}

// DeleteSubscription - мягкое удаление; запрещено, если в окне абонемента есть посещения
func (s *subscriptionService) DeleteSubscription(ctx context.Context, id int64, actorID *int64) error {
	sub, err := s.subscriptionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.attendanceRepo.CountInWindow(ctx, sub.MemberID, sub.StartDate, sub.ExpiryDate)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.Conflict("subscription %d has %d attendance records in its window", id, count)
	}

	if err := s.subscriptionRepo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.log.Info("абонемент удалён", zap.Int64("subscription_id", id))
	service.RecordHistory(ctx, s.historyRepo, s.log, historyEntity, id, models.HistoryDelete, sub, nil, actorID)
	return nil
}
