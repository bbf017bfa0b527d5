package subscription_service

import (
	"context"
	"testing"
	"time"

	"studio-admin/internal/apperr"
	"studio-admin/internal/models"
	"studio-admin/internal/models/config"
	"studio-admin/internal/repository/memory"
	"studio-admin/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	store  *memory.Store
	svc    service.SubscriptionService
	member models.Member
	plan   models.SubscriptionType
}

func setup(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore()
	member := store.AddMember(models.Member{FirstName: "Ana", LastName: "Gómez"})
	plan := store.AddSubscriptionType(models.SubscriptionType{
		Name: "2x semana", ClassesPerWeek: 2, Category: "adultos", MonthlyFee: decimal.RequireFromString("18000"),
	})
	svc := NewSubscriptionService(
		store.Subscriptions(),
		store.Attendance(),
		store.History(),
		func() time.Time { return time.Date(2024, time.June, 12, 9, 0, 0, 0, time.UTC) },
		&config.Config{Timezone: "UTC"},
		zap.NewNop(),
	)
	return fixture{store: store, svc: svc, member: member, plan: plan}
}

func TestDefaultExpiry(t *testing.T) {
	assert.Equal(t, "2024-06-30", models.DateKey(DefaultExpiry(date(2024, time.June, 1))))
	assert.Equal(t, "2024-07-14", models.DateKey(DefaultExpiry(date(2024, time.June, 15))))
	assert.Equal(t, "2024-02-29", models.DateKey(DefaultExpiry(date(2024, time.February, 1))))
}

func TestCreateSubscriptionWithPayment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	amount := decimal.RequireFromString("18000.50")
	actor := int64(5)

	sub, err := f.svc.CreateSubscription(ctx, service.CreateSubscriptionCommand{
		MemberID:           f.member.ID,
		SubscriptionTypeID: f.plan.ID,
		StartDate:          date(2024, time.June, 1),
		Quantity:           8,
		PaymentAmount:      &amount,
	}, &actor)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-30", models.DateKey(sub.ExpiryDate))
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, "2x semana", sub.TypeName)
	assert.Equal(t, 2, sub.WeeklyAllowance)

	payments := f.store.Payments()
	require.Len(t, payments, 1)
	assert.Equal(t, sub.ID, payments[0].SubscriptionID)
	assert.Equal(t, "cash", payments[0].Method)
	assert.True(t, amount.Equal(payments[0].Amount))

	history, err := f.store.History().ListByEntity(ctx, historyEntity, sub.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.HistoryCreate, history[0].Action)
	assert.Equal(t, &actor, history[0].ActorID)
}

func TestCreateSubscriptionValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	before := date(2024, time.May, 1)
	zero := decimal.Zero

	cases := map[string]service.CreateSubscriptionCommand{
		"missing member":    {SubscriptionTypeID: f.plan.ID, StartDate: date(2024, time.June, 1)},
		"expiry first":      {MemberID: f.member.ID, SubscriptionTypeID: f.plan.ID, StartDate: date(2024, time.June, 1), ExpiryDate: &before},
		"unknown type":      {MemberID: f.member.ID, SubscriptionTypeID: 999, StartDate: date(2024, time.June, 1)},
		"zero payment":      {MemberID: f.member.ID, SubscriptionTypeID: f.plan.ID, StartDate: date(2024, time.June, 1), PaymentAmount: &zero},
		"bad method":        {MemberID: f.member.ID, SubscriptionTypeID: f.plan.ID, StartDate: date(2024, time.June, 1), PaymentMethod: "crypto"},
		"missing start":     {MemberID: f.member.ID, SubscriptionTypeID: f.plan.ID},
		"negative quantity": {MemberID: f.member.ID, SubscriptionTypeID: f.plan.ID, StartDate: date(2024, time.June, 1), Quantity: -1},
	}
	for name, cmd := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateSubscription(ctx, cmd, nil)
			assert.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}
	assert.Empty(t, f.store.Payments())
}

func TestRenewSubscription(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	month := "2024-06"
	place := int64(3)
	prev := f.store.AddSubscription(models.Subscription{
		MemberID: f.member.ID, SubscriptionTypeID: f.plan.ID, Quantity: 8,
		StartDate: date(2024, time.June, 1), ExpiryDate: date(2024, time.June, 30),
		BillingMonth: &month, PlaceID: &place,
	})

	next, err := f.svc.RenewSubscription(ctx, prev.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-07-01", models.DateKey(next.StartDate))
	assert.Equal(t, "2024-07-31", models.DateKey(next.ExpiryDate))
	assert.Equal(t, 8, next.Quantity)
	assert.Equal(t, &place, next.PlaceID)
	require.NotNil(t, next.BillingMonth)
	assert.Equal(t, "2024-07", *next.BillingMonth)

	list, err := f.svc.ListByMember(ctx, f.member.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, next.ID, list[0].ID)

	_, err = f.svc.RenewSubscription(ctx, 999, nil)
	assert.True(t, apperr.IsNotFound(err))
}

func TestListExpiring(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	soon := f.store.AddSubscription(models.Subscription{
		MemberID: f.member.ID, SubscriptionTypeID: f.plan.ID,
		StartDate: date(2024, time.May, 20), ExpiryDate: date(2024, time.June, 19),
	})
	f.store.AddSubscription(models.Subscription{
		MemberID: f.member.ID, SubscriptionTypeID: f.plan.ID,
		StartDate: date(2024, time.May, 1), ExpiryDate: date(2024, time.June, 11),
	})
	f.store.AddSubscription(models.Subscription{
		MemberID: f.member.ID, SubscriptionTypeID: f.plan.ID, Status: models.SubscriptionInactive,
		StartDate: date(2024, time.May, 20), ExpiryDate: date(2024, time.June, 15),
	})

	list, err := f.svc.ListExpiring(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, soon.ID, list[0].ID)

	_, err = f.svc.ListExpiring(ctx, -1)
	assert.True(t, apperr.IsValidation(err))
	_, err = f.svc.ListByMember(ctx, 0)
	assert.True(t, apperr.IsValidation(err))
}

func TestDeleteSubscriptionBlockedByAttendance(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	used := f.store.AddSubscription(models.Subscription{
		MemberID: f.member.ID, SubscriptionTypeID: f.plan.ID,
		StartDate: date(2024, time.June, 1), ExpiryDate: date(2024, time.June, 30),
	})
	unused := f.store.AddSubscription(models.Subscription{
		MemberID: f.member.ID, SubscriptionTypeID: f.plan.ID,
		StartDate: date(2024, time.July, 1), ExpiryDate: date(2024, time.July, 31),
	})
	sess := f.store.AddSession(models.Session{ActivityID: 1, Date: date(2024, time.June, 10), StartTime: "18:00:00", EndTime: "19:00:00"})
	f.store.AddAttendance(models.Attendance{MemberID: f.member.ID, SessionID: sess.ID, Present: true})

	err := f.svc.DeleteSubscription(ctx, used.ID, nil)
	assert.True(t, apperr.IsConflict(err))

	require.NoError(t, f.svc.DeleteSubscription(ctx, unused.ID, nil))
	assert.True(t, apperr.IsNotFound(f.svc.DeleteSubscription(ctx, unused.ID, nil)))

	history, err := f.store.History().ListByEntity(ctx, historyEntity, unused.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.HistoryDelete, history[0].Action)
	assert.Nil(t, history[0].After)
}
