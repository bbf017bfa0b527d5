package schedule_service

import (
	"context"
	"fmt"
	"time"

	"studio-admin/internal/apperr"
	"studio-admin/internal/metrics"
	"studio-admin/internal/models"
	"studio-admin/internal/repository"
	"studio-admin/internal/service"

	"go.uber.org/zap"
)

const historyEntity = "schedule_template"

type scheduleService struct {
	templateRepo repository.ScheduleTemplateRepository
	sessionRepo  repository.SessionRepository
	historyRepo  repository.HistoryRepository
	notifier     service.Notifier
	log          *zap.Logger
}

func NewScheduleService(
	templateRepo repository.ScheduleTemplateRepository,
	sessionRepo repository.SessionRepository,
	historyRepo repository.HistoryRepository,
	notifier service.Notifier,
	log *zap.Logger,
) service.ScheduleService {
	return &scheduleService{
		templateRepo: templateRepo,
		sessionRepo:  sessionRepo,
		historyRepo:  historyRepo,
		notifier:     notifier,
		log:          log.Named("schedule"),
	}
}

///////////////////////////////templates///////////////////////////////////

func (s *scheduleService) ListTemplates(ctx context.Context, activeOnly bool) ([]models.ScheduleTemplate, error) {
	return s.templateRepo.List(ctx, activeOnly)
}

// GetTemplate возвращает шаблон по ID
func (s *scheduleService) GetTemplate(ctx context.Context, id int64) (*models.ScheduleTemplate, error) {
	return s.templateRepo.GetByID(ctx, id)
}

func (s *scheduleService) CreateTemplate(ctx context.Context, cmd service.TemplateCommand, actorID *int64) (*models.ScheduleTemplate, error) {
	t := &models.ScheduleTemplate{IsActive: true, CreatedBy: actorID}
	if err := applyTemplateCommand(t, cmd); err != nil {
		return nil, err
	}

	if err := s.templateRepo.Create(ctx, t); err != nil {
		return nil, err
	}

	service.RecordHistory(ctx, s.historyRepo, s.log, historyEntity, t.ID, models.HistoryCreate, nil, t, actorID)
	return t, nil
}

// UpdateTemplate заменяет поля шаблона; уже созданные занятия не меняются
func (s *scheduleService) UpdateTemplate(ctx context.Context, id int64, cmd service.TemplateCommand, actorID *int64) (*models.ScheduleTemplate, error) {
	before, err := s.templateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	after := *before
	if err := applyTemplateCommand(&after, cmd); err != nil {
		return nil, err
	}

	if err := s.templateRepo.Update(ctx, &after); err != nil {
		return nil, err
	}

	service.RecordHistory(ctx, s.historyRepo, s.log, historyEntity, id, models.HistoryUpdate, before, &after, actorID)
	return &after, nil
}

func (s *scheduleService) SetTemplateActive(ctx context.Context, id int64, active bool, actorID *int64) error {
	before, err := s.templateRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.templateRepo.SetActive(ctx, id, active); err != nil {
		return err
	}

	after := *before
	after.IsActive = active
	service.RecordHistory(ctx, s.historyRepo, s.log, historyEntity, id, models.HistoryUpdate, before, &after, actorID)
	return nil
}

func (s *scheduleService) DeleteTemplate(ctx context.Context, id int64, actorID *int64) error {
	before, err := s.templateRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.templateRepo.SoftDelete(ctx, id); err != nil {
		return err
	}

	service.RecordHistory(ctx, s.historyRepo, s.log, historyEntity, id, models.HistoryDelete, before, nil, actorID)
	return nil
}

func applyTemplateCommand(t *models.ScheduleTemplate, cmd service.TemplateCommand) error {
	if err := service.Validate(cmd); err != nil {
		return err
	}

	start, err := service.NormalizeClock(cmd.StartTime)
	if err != nil {
		return err
	}
	end, err := service.NormalizeClock(cmd.EndTime)
	if err != nil {
		return err
	}
	if end <= start {
		return apperr.Validation("end_time %s must be after start_time %s", end, start)
	}

	t.ActivityID = cmd.ActivityID
	t.PlaceID = cmd.PlaceID
	t.TeacherID = cmd.TeacherID
	t.Weekday = cmd.Weekday
	t.StartTime = start
	t.EndTime = end
	if cmd.IsActive != nil {
		t.IsActive = *cmd.IsActive
	}
	return nil
}

///////////////////////////////generation///////////////////////////////////

// MaxGenerateDays - предельная длина диапазона генерации
const MaxGenerateDays = 366

func generatedKey(templateID int64, day string) string {
	return fmt.Sprintf("%d|%s", templateID, day)
}

// GenerateSessions создаёт занятия по активным шаблонам для каждой даты диапазона.
// Пары (шаблон, дата), для которых занятие уже есть, пропускаются. Каждое занятие
// сохраняется отдельно: при ошибке уже созданные остаются, остальные не создаются.
func (s *scheduleService) GenerateSessions(ctx context.Context, cmd service.GenerateCommand) ([]models.Session, error) {
	if cmd.StartDate.IsZero() || cmd.EndDate.IsZero() {
		return nil, apperr.Validation("startDate and endDate are required")
	}

	start := service.DateOnly(cmd.StartDate)
	end := service.DateOnly(cmd.EndDate)
	if end.Before(start) {
		return nil, apperr.Validation("startDate %s is after endDate %s", models.DateKey(start), models.DateKey(end))
	}
	if end.Sub(start) >= MaxGenerateDays*24*time.Hour {
		return nil, apperr.Validation("range %s..%s exceeds %d days",
			models.DateKey(start), models.DateKey(end), MaxGenerateDays)
	}

	// Получаем все активные шаблоны
	templates, err := s.templateRepo.GetAllActive(ctx)
	if err != nil {
		metrics.GenerationRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load active templates: %w", err)
	}

	existing, err := s.sessionRepo.ListByDateRange(ctx, start, end)
	if err != nil {
		metrics.GenerationRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load sessions in range: %w", err)
	}

	// ключ по исходной дате: перенесённое занятие не освобождает свой день.
	// Занятия, перенесённые за пределы диапазона, отсекает CreateGenerated.
	generated := make(map[string]struct{}, len(existing))
	for _, sess := range existing {
		if sess.TemplateID != nil {
			generated[generatedKey(*sess.TemplateID, models.DateKey(sess.GeneratedFor()))] = struct{}{}
		}
	}

	var created []models.Session
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		weekday := int(day.Weekday())
		dayKey := models.DateKey(day)

		for _, t := range templates {
			if t.Weekday != weekday {
				continue
			}
			key := generatedKey(t.ID, dayKey)
			if _, ok := generated[key]; ok {
				continue
			}

			templateID := t.ID
			origin := day
			sess := models.Session{
				TemplateID: &templateID,
				OriginDate: &origin,
				ActivityID: t.ActivityID,
				PlaceID:    t.PlaceID,
				TeacherID:  t.TeacherID,
				Date:       day,
				StartTime:  t.StartTime,
				EndTime:    t.EndTime,
				Status:     models.SessionScheduled,
				CreatedBy:  cmd.ActorID,
			}

			ok, err := s.sessionRepo.CreateGenerated(ctx, &sess)
			if err != nil {
				metrics.GenerationRuns.WithLabelValues("partial").Inc()
				metrics.SessionsGenerated.Add(float64(len(created)))
				s.log.Error("генерация прервана",
					zap.Int64("template_id", t.ID),
					zap.String("date", dayKey),
					zap.Int("created", len(created)),
					zap.Error(err),
				)
				return created, fmt.Errorf("create session for template %d on %s: %w", t.ID, dayKey, err)
			}
			generated[key] = struct{}{}
			if !ok {
				// параллельная генерация успела раньше
				continue
			}
			created = append(created, sess)
		}
	}

	metrics.GenerationRuns.WithLabelValues("ok").Inc()
	metrics.SessionsGenerated.Add(float64(len(created)))
	s.log.Info("занятия сгенерированы",
		zap.String("from", models.DateKey(start)),
		zap.String("to", models.DateKey(end)),
		zap.Int("templates", len(templates)),
		zap.Int("created", len(created)),
	)

	if len(created) > 0 {
		s.notifier.SessionsGenerated(ctx, start, end, created)
	}
	return created, nil
}
