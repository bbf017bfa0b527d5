package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// Команды - явные структуры вместо map[string]interface{}

type TemplateCommand struct {
	ActivityID int64  `json:"activity_id" validate:"required,gt=0"`
	PlaceID    int64  `json:"place_id" validate:"required,gt=0"`
	TeacherID  *int64 `json:"teacher_id" validate:"omitempty,gt=0"`
	Weekday    int    `json:"weekday" validate:"min=0,max=6"`
	StartTime  string `json:"start_time" validate:"required,clock"`
	EndTime    string `json:"end_time" validate:"required,clock"`
	IsActive   *bool  `json:"is_active"`
}

type GenerateCommand struct {
	StartDate time.Time
	EndDate   time.Time
	ActorID   *int64
}

type CreateSessionCommand struct {
	ActivityID   int64     `json:"activity_id" validate:"required,gt=0"`
	PlaceID      int64     `json:"place_id" validate:"required,gt=0"`
	TeacherID    *int64    `json:"teacher_id" validate:"omitempty,gt=0"`
	Date         time.Time `json:"date" validate:"required"`
	StartTime    string    `json:"start_time" validate:"required,clock"`
	EndTime      string    `json:"end_time" validate:"required,clock"`
	Observations string    `json:"observations" validate:"max=2000"`
}

// UpdateSessionCommand - только разрешённые поля; nil = не менять
type UpdateSessionCommand struct {
	Status             *string    `json:"status" validate:"omitempty,oneof=scheduled held cancelled suspended closed"`
	CancellationReason *string    `json:"cancellation_reason" validate:"omitempty,max=500"`
	Observations       *string    `json:"observations" validate:"omitempty,max=2000"`
	TeacherID          *int64     `json:"teacher_id" validate:"omitempty,gt=0"`
	Date               *time.Time `json:"date"`
	StartTime          *string    `json:"start_time" validate:"omitempty,clock"`
	EndTime            *string    `json:"end_time" validate:"omitempty,clock"`
	TeacherPaid        *bool      `json:"teacher_paid"`
	TeacherPaymentDate *time.Time `json:"teacher_payment_date"`
}

type CreateSubscriptionCommand struct {
	MemberID           int64            `json:"member_id" validate:"required,gt=0"`
	SubscriptionTypeID int64            `json:"subscription_type_id" validate:"required,gt=0"`
	StartDate          time.Time        `json:"start_date" validate:"required"`
	ExpiryDate         *time.Time       `json:"expiry_date"`
	BillingMonth       *string          `json:"billing_month" validate:"omitempty,max=20"`
	PlaceID            *int64           `json:"place_id" validate:"omitempty,gt=0"`
	Quantity           int              `json:"quantity" validate:"min=0"`
	PaymentAmount      *decimal.Decimal `json:"payment_amount"`
	PaymentMethod      string           `json:"payment_method" validate:"omitempty,oneof=cash transfer card"`
}
