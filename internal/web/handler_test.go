package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"studio-admin/internal/models"
	"studio-admin/internal/models/config"
	"studio-admin/internal/repository/memory"
	"studio-admin/internal/service"
	attendance_service "studio-admin/internal/service/attendance"
	schedule_service "studio-admin/internal/service/schedule"
	session_service "studio-admin/internal/service/session"
	subscription_service "studio-admin/internal/service/subscription"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type testServer struct {
	store   *memory.Store
	handler http.Handler
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	log := zap.NewNop()
	store := memory.NewStore()
	store.AddActivity(1, "Yoga", models.ClassFixed)
	store.AddActivity(2, "Particular", models.ClassFlexible)
	store.AddPlace(1, "Sala Norte")

	clock := service.Clock(func() time.Time { return time.Date(2024, time.June, 12, 12, 0, 0, 0, time.UTC) })
	notifier := service.NopNotifier{}

	h := NewHandler(
		schedule_service.NewScheduleService(store.Templates(), store.Sessions(), store.History(), notifier, log),
		session_service.NewSessionService(store.Sessions(), notifier, clock, cfg, log),
		attendance_service.NewAttendanceService(store.Sessions(), store.Members(), store.Subscriptions(), store.Attendance(), clock, cfg, log),
		subscription_service.NewSubscriptionService(store.Subscriptions(), store.Attendance(), store.History(), clock, cfg, log),
		log,
	)
	return &testServer{store: store, handler: NewRouter(h, cfg, log)}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func openConfig() *config.Config {
	return &config.Config{Timezone: "UTC", HTTP: config.HTTPConfig{AllowedOrigins: []string{"*"}}}
}

func mondayTemplate() map[string]any {
	return map[string]any{
		"activity_id": 1,
		"place_id":    1,
		"weekday":     1,
		"start_time":  "18:00",
		"end_time":    "19:00",
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, openConfig())
	rec := srv.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGenerateSessionsEndpoint(t *testing.T) {
	srv := newTestServer(t, openConfig())

	rec := srv.do(t, http.MethodPost, "/asistencia/plantillas", mondayTemplate(), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := GenerateRequest{StartDate: "2024-06-01", EndDate: "2024-06-30"}
	rec = srv.do(t, http.MethodPost, "/asistencia/clases/generar", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody[GenerateResponse](t, rec)
	assert.Equal(t, 4, resp.Count)
	require.Len(t, resp.Sessions, 4)
	assert.Equal(t, "18:00:00", resp.Sessions[0].StartTime)

	rec = srv.do(t, http.MethodPost, "/asistencia/clases/generar", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	resp = decodeBody[GenerateResponse](t, rec)
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Sessions)

	rec = srv.do(t, http.MethodGet, "/asistencia/clases?from=2024-06-10&to=2024-06-20&class_type=fixed", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Session](t, rec), 2)
}

func TestGenerateSessionsRequiresDates(t *testing.T) {
	srv := newTestServer(t, openConfig())

	rec := srv.do(t, http.MethodPost, "/asistencia/clases/generar", GenerateRequest{StartDate: "2024-06-01"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "invalid request", errResp.Error)
	assert.Contains(t, errResp.Details, "startDate and endDate are required")

	rec = srv.do(t, http.MethodPost, "/asistencia/clases/generar", GenerateRequest{StartDate: "junio", EndDate: "2024-06-30"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateSessionsHidesInternalErrors(t *testing.T) {
	srv := newTestServer(t, openConfig())
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/asistencia/plantillas", mondayTemplate(), "").Code)
	srv.store.FailSessionCreateAfter = 1

	rec := srv.do(t, http.MethodPost, "/asistencia/clases/generar", GenerateRequest{StartDate: "2024-06-01", EndDate: "2024-06-30"}, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	errResp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "internal server error", errResp.Error)
	assert.Empty(t, errResp.Details)
}

func TestSessionEndpoints(t *testing.T) {
	srv := newTestServer(t, openConfig())

	rec := srv.do(t, http.MethodGet, "/asistencia/clases/99", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodGet, "/asistencia/clases/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/asistencia/clases?status=finished", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/asistencia/clases", CreateSessionRequest{
		ActivityID: 1, PlaceID: 1, Date: "2024-06-20", StartTime: "18:00", EndTime: "19:00",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sess := decodeBody[models.Session](t, rec)
	path := "/asistencia/clases/" + strconv.FormatInt(sess.ID, 10)

	// занятие в будущем нельзя отметить проведённым
	held := "held"
	rec = srv.do(t, http.MethodPut, path, UpdateSessionRequest{Status: &held}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "forbidden transition", decodeBody[ErrorResponse](t, rec).Error)

	cancelled, reason := "cancelled", "lluvia"
	rec = srv.do(t, http.MethodPut, path, UpdateSessionRequest{Status: &cancelled, CancellationReason: &reason}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SessionCancelled, decodeBody[models.Session](t, rec).Status)

	rec = srv.do(t, http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = srv.do(t, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendanceEndpoints(t *testing.T) {
	srv := newTestServer(t, openConfig())
	ana := srv.store.AddMember(models.Member{FirstName: "Ana", LastName: "Gómez"})
	srv.store.AddMember(models.Member{FirstName: "Tomás", IsTeacher: true})
	plan := srv.store.AddSubscriptionType(models.SubscriptionType{Name: "1x semana", ClassesPerWeek: 1})
	srv.store.AddSubscription(models.Subscription{
		MemberID: ana.ID, SubscriptionTypeID: plan.ID,
		StartDate:  time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate: time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC),
	})
	sess := srv.store.AddSession(models.Session{
		ActivityID: 1, PlaceID: 1, Date: time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC),
		StartTime: "18:00:00", EndTime: "19:00:00",
	})
	base := "/asistencia/clases/" + strconv.FormatInt(sess.ID, 10)
	marks := AttendanceRequest{Marks: []models.AttendanceMark{{MemberID: ana.ID, Present: true}}}

	rec := srv.do(t, http.MethodPut, base+"/asistencias", marks, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	held := "held"
	rec = srv.do(t, http.MethodPut, base, UpdateSessionRequest{Status: &held}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPut, base+"/asistencias", marks, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, base+"/alumnos", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeBody[[]models.EligibilityRow](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, ana.ID, rows[0].MemberID)
	assert.Equal(t, 1, rows[0].AttendedThisWeek)
	assert.True(t, rows[0].LimitReached)

	rec = srv.do(t, http.MethodGet, base+"/resumen", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.AttendanceStats{Present: 1, Total: 1}, decodeBody[models.AttendanceStats](t, rec))

	rec = srv.do(t, http.MethodDelete, base+"/asistencias/"+strconv.FormatInt(ana.ID, 10), nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodPut, base+"/asistencias", AttendanceRequest{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscriptionEndpoints(t *testing.T) {
	srv := newTestServer(t, openConfig())
	ana := srv.store.AddMember(models.Member{FirstName: "Ana"})
	plan := srv.store.AddSubscriptionType(models.SubscriptionType{Name: "2x semana", ClassesPerWeek: 2})

	rec := srv.do(t, http.MethodPost, "/suscripciones", map[string]any{
		"member_id":            ana.ID,
		"subscription_type_id": plan.ID,
		"start_date":           "2024-06-01",
		"payment_amount":       "15000",
		"payment_method":       "transfer",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sub := decodeBody[models.Subscription](t, rec)
	assert.Equal(t, "2024-06-30", models.DateKey(sub.ExpiryDate))
	require.Len(t, srv.store.Payments(), 1)

	rec = srv.do(t, http.MethodGet, "/suscripciones/por-vencer?dias=30", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Subscription](t, rec), 1)

	rec = srv.do(t, http.MethodPost, "/suscripciones/"+strconv.FormatInt(sub.ID, 10)+"/renovar", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "2024-07-01", models.DateKey(decodeBody[models.Subscription](t, rec).StartDate))

	rec = srv.do(t, http.MethodGet, "/suscripciones?member_id="+strconv.FormatInt(ana.ID, 10), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Subscription](t, rec), 2)

	rec = srv.do(t, http.MethodGet, "/suscripciones", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/suscripciones/"+strconv.FormatInt(sub.ID, 10), nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func TestAuthMiddleware(t *testing.T) {
	cfg := openConfig()
	cfg.Auth.JWTSecret = testSecret
	srv := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/asistencia/plantillas", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/asistencia/plantillas", nil, "garbage").Code)

	noUser := signToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/asistencia/plantillas", nil, noUser).Code)

	expired := signToken(t, jwt.MapClaims{"user_id": 7, "exp": time.Now().Add(-time.Hour).Unix()})
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/asistencia/plantillas", nil, expired).Code)

	token := signToken(t, jwt.MapClaims{"user_id": "42", "exp": time.Now().Add(time.Hour).Unix()})
	rec := srv.do(t, http.MethodPost, "/asistencia/plantillas", mondayTemplate(), token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tpl := decodeBody[models.ScheduleTemplate](t, rec)
	require.NotNil(t, tpl.CreatedBy)
	assert.Equal(t, int64(42), *tpl.CreatedBy)
}
