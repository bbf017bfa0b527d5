package web

import (
	"time"

	"studio-admin/internal/apperr"
	"studio-admin/internal/models"
	"studio-admin/internal/service"

	"github.com/shopspring/decimal"
)

// ErrorResponse - тело ошибки
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type GenerateRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type GenerateResponse struct {
	Count    int              `json:"count"`
	Sessions []models.Session `json:"sessions"`
}

type CreateSessionRequest struct {
	ActivityID   int64  `json:"activity_id"`
	PlaceID      int64  `json:"place_id"`
	TeacherID    *int64 `json:"teacher_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Observations string `json:"observations"`
}

func (req CreateSessionRequest) toCommand() (service.CreateSessionCommand, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return service.CreateSessionCommand{}, err
	}
	return service.CreateSessionCommand{
		ActivityID:   req.ActivityID,
		PlaceID:      req.PlaceID,
		TeacherID:    req.TeacherID,
		Date:         date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Observations: req.Observations,
	}, nil
}

type UpdateSessionRequest struct {
	Status             *string `json:"status"`
	CancellationReason *string `json:"cancellation_reason"`
	Observations       *string `json:"observations"`
	TeacherID          *int64  `json:"teacher_id"`
	Date               *string `json:"date"`
	StartTime          *string `json:"start_time"`
	EndTime            *string `json:"end_time"`
	TeacherPaid        *bool   `json:"teacher_paid"`
	TeacherPaymentDate *string `json:"teacher_payment_date"`
}

func (req UpdateSessionRequest) toCommand() (service.UpdateSessionCommand, error) {
	cmd := service.UpdateSessionCommand{
		Status:             req.Status,
		CancellationReason: req.CancellationReason,
		Observations:       req.Observations,
		TeacherID:          req.TeacherID,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		TeacherPaid:        req.TeacherPaid,
	}
	var err error
	if cmd.Date, err = parseOptionalDate("date", req.Date); err != nil {
		return cmd, err
	}
	if cmd.TeacherPaymentDate, err = parseOptionalDate("teacher_payment_date", req.TeacherPaymentDate); err != nil {
		return cmd, err
	}
	return cmd, nil
}

type AttendanceRequest struct {
	Marks []models.AttendanceMark `json:"asistencias"`
}

type CreateSubscriptionRequest struct {
	MemberID           int64            `json:"member_id"`
	SubscriptionTypeID int64            `json:"subscription_type_id"`
	StartDate          string           `json:"start_date"`
	ExpiryDate         *string          `json:"expiry_date"`
	BillingMonth       *string          `json:"billing_month"`
	PlaceID            *int64           `json:"place_id"`
	Quantity           int              `json:"quantity"`
	PaymentAmount      *decimal.Decimal `json:"payment_amount"`
	PaymentMethod      string           `json:"payment_method"`
}

func (req CreateSubscriptionRequest) toCommand() (service.CreateSubscriptionCommand, error) {
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return service.CreateSubscriptionCommand{}, err
	}
	expiry, err := parseOptionalDate("expiry_date", req.ExpiryDate)
	if err != nil {
		return service.CreateSubscriptionCommand{}, err
	}
	return service.CreateSubscriptionCommand{
		MemberID:           req.MemberID,
		SubscriptionTypeID: req.SubscriptionTypeID,
		StartDate:          start,
		ExpiryDate:         expiry,
		BillingMonth:       req.BillingMonth,
		PlaceID:            req.PlaceID,
		Quantity:           req.Quantity,
		PaymentAmount:      req.PaymentAmount,
		PaymentMethod:      req.PaymentMethod,
	}, nil
}

// parseDate принимает "2006-01-02" или RFC3339
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, apperr.Validation("%s is required", field)
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return service.DateOnly(t), nil
	}
	return time.Time{}, apperr.Validation("%s: invalid date %q", field, value)
}

func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseDate(field, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
