package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
)

// NoActiveSubscription - подпись для учеников без абонемента
const NoActiveSubscription = "No Active Subscription"

type Subscription struct {
	ID                 int64      `db:"id" json:"id"`
	MemberID           int64      `db:"member_id" json:"member_id"`
	SubscriptionTypeID int64      `db:"subscription_type_id" json:"subscription_type_id"`
	StartDate          time.Time  `db:"start_date" json:"start_date"`
	ExpiryDate         time.Time  `db:"expiry_date" json:"expiry_date"`
	BillingMonth       *string    `db:"billing_month" json:"billing_month,omitempty"`
	PlaceID            *int64     `db:"place_id" json:"place_id,omitempty"`
	Status             string     `db:"status" json:"status"`
	Quantity           int        `db:"quantity" json:"quantity"`
	CreatedBy          *int64     `db:"created_by" json:"created_by,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	DeletedAt          *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`

	// Joined fields
	TypeName        string `db:"type_name" json:"type_name,omitempty"`
	WeeklyAllowance int    `db:"classes_per_week" json:"classes_per_week"`
	Category        string `db:"category" json:"category,omitempty"`
}

// Covers сообщает, попадает ли дата в окно абонемента
func (s *Subscription) Covers(day time.Time) bool {
	d := DateKey(day)
	return d >= DateKey(s.StartDate) && d <= DateKey(s.ExpiryDate)
}

type SubscriptionType struct {
	ID             int64           `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	ClassesPerWeek int             `db:"classes_per_week" json:"classes_per_week"`
	Category       string          `db:"category" json:"category"`
	MonthlyFee     decimal.Decimal `db:"monthly_fee" json:"monthly_fee"`
}

type Payment struct {
	ID             int64           `db:"id" json:"id"`
	SubscriptionID int64           `db:"subscription_id" json:"subscription_id"`
	MemberID       int64           `db:"member_id" json:"member_id"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Method         string          `db:"method" json:"method"`
	PaidAt         time.Time       `db:"paid_at" json:"paid_at"`
}
