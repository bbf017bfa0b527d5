package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"studio-admin/internal/apperr"
	"studio-admin/internal/models"
	"studio-admin/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	scheduleService     service.ScheduleService
	sessionService      service.SessionService
	attendanceService   service.AttendanceService
	subscriptionService service.SubscriptionService
	log                 *zap.Logger
}

func NewHandler(
	scheduleService service.ScheduleService,
	sessionService service.SessionService,
	attendanceService service.AttendanceService,
	subscriptionService service.SubscriptionService,
	log *zap.Logger,
) *Handler {
	return &Handler{
		scheduleService:     scheduleService,
		sessionService:      sessionService,
		attendanceService:   attendanceService,
		subscriptionService: subscriptionService,
		log:                 log.Named("web"),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// TEMPLATES
// =============================================================================

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("activas") == "true"
	templates, err := h.scheduleService.ListTemplates(r.Context(), activeOnly)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(templates))
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	t, err := h.scheduleService.GetTemplate(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var cmd service.TemplateCommand
	if !h.decode(w, r, &cmd) {
		return
	}
	t, err := h.scheduleService.CreateTemplate(r.Context(), cmd, ActorFromContext(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var cmd service.TemplateCommand
	if !h.decode(w, r, &cmd) {
		return
	}
	t, err := h.scheduleService.UpdateTemplate(r.Context(), id, cmd, ActorFromContext(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.scheduleService.DeleteTemplate(r.Context(), id, ActorFromContext(r.Context())); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ActivateTemplate(w http.ResponseWriter, r *http.Request) {
	h.setTemplateActive(w, r, true)
}

func (h *Handler) DeactivateTemplate(w http.ResponseWriter, r *http.Request) {
	h.setTemplateActive(w, r, false)
}

func (h *Handler) setTemplateActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.scheduleService.SetTemplateActive(r.Context(), id, active, ActorFromContext(r.Context())); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_active": active})
}

// =============================================================================
// SESSIONS
// =============================================================================

// GenerateSessions - POST /asistencia/clases/generar
func (h *Handler) GenerateSessions(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.StartDate == "" || req.EndDate == "" {
		h.handleError(w, r, apperr.Validation("startDate and endDate are required"))
		return
	}
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	end, err := parseDate("endDate", req.EndDate)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	created, err := h.scheduleService.GenerateSessions(r.Context(), service.GenerateCommand{
		StartDate: start,
		EndDate:   end,
		ActorID:   ActorFromContext(r.Context()),
	})
	if err != nil {
		if len(created) > 0 {
			h.log.Warn("генерация завершилась частично", zap.Int("created", len(created)))
		}
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, GenerateResponse{Count: len(created), Sessions: emptyIfNil(created)})
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSessionFilter(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	sessions, err := h.sessionService.ListSessions(r.Context(), filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(sessions))
}

func parseSessionFilter(r *http.Request) (models.SessionFilter, error) {
	q := r.URL.Query()
	var f models.SessionFilter
	var err error

	if f.From, err = parseOptionalDate("from", optional(q.Get("from"))); err != nil {
		return f, err
	}
	if f.To, err = parseOptionalDate("to", optional(q.Get("to"))); err != nil {
		return f, err
	}
	if f.ActivityID, err = queryID(q.Get("activity_id"), "activity_id"); err != nil {
		return f, err
	}
	if f.PlaceID, err = queryID(q.Get("place_id"), "place_id"); err != nil {
		return f, err
	}
	if f.TeacherID, err = queryID(q.Get("teacher_id"), "teacher_id"); err != nil {
		return f, err
	}

	switch ct := models.ClassType(q.Get("class_type")); ct {
	case "":
	case models.ClassFixed, models.ClassFlexible:
		f.ClassType = &ct
	default:
		return f, apperr.Validation("unknown class_type %q", ct)
	}

	switch st := models.SessionStatus(q.Get("status")); st {
	case "":
	case models.SessionScheduled, models.SessionHeld, models.SessionCancelled, models.SessionSuspended, models.SessionClosed:
		f.Status = &st
	default:
		return f, apperr.Validation("unknown status %q", st)
	}
	return f, nil
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	sess, err := h.sessionService.GetSession(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	cmd, err := req.toCommand()
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	sess, err := h.sessionService.CreateSession(r.Context(), cmd, ActorFromContext(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// UpdateSession - PUT /asistencia/clases/{id}: статус, отмена, оплата преподавателю
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	cmd, err := req.toCommand()
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	sess, err := h.sessionService.UpdateSession(r.Context(), id, cmd)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.sessionService.DeleteSession(r.Context(), id); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (h *Handler) EligibleMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	rows, err := h.attendanceService.GetEligibleMembers(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(rows))
}

func (h *Handler) SetAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req AttendanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.attendanceService.SetAttendance(r.Context(), id, ActorFromContext(r.Context()), req.Marks); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "updated": len(req.Marks)})
}

func (h *Handler) RemoveAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	memberID, ok := h.pathID(w, r, "memberId")
	if !ok {
		return
	}
	if err := h.attendanceService.RemoveAttendance(r.Context(), id, memberID); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AttendanceSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	stats, err := h.attendanceService.GetStats(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	memberID, err := queryID(r.URL.Query().Get("member_id"), "member_id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if memberID == nil {
		h.handleError(w, r, apperr.Validation("member_id is required"))
		return
	}
	subs, err := h.subscriptionService.ListByMember(r.Context(), *memberID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(subs))
}

func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req CreateSubscriptionRequest
	if !h.decode(w, r, &req) {
		return
	}
	cmd, err := req.toCommand()
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	sub, err := h.subscriptionService.CreateSubscription(r.Context(), cmd, ActorFromContext(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) RenewSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	sub, err := h.subscriptionService.RenewSubscription(r.Context(), id, ActorFromContext(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) ExpiringSubscriptions(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("dias"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.handleError(w, r, apperr.Validation("dias: invalid number %q", raw))
			return
		}
		days = n
	}
	subs, err := h.subscriptionService.ListExpiring(r.Context(), days)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(subs))
}

func (h *Handler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.subscriptionService.DeleteSubscription(r.Context(), id, ActorFromContext(r.Context())); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// handleError сопоставляет ошибки сервисов со статусами; детали 500 не отдаются клиенту
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apperr.IsValidation(err):
		writeError(w, http.StatusBadRequest, "invalid request", err)
	case apperr.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, apperr.ErrForbiddenTransition):
		writeError(w, http.StatusConflict, "forbidden transition", err)
	case apperr.IsConflict(err):
		writeError(w, http.StatusConflict, "conflict", err)
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return id, true
}

func queryID(raw, name string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperr.Validation("%s: invalid id %q", name, raw)
	}
	return &id, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
