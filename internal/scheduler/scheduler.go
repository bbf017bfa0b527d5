// Package scheduler периодически создаёт занятия по шаблонам.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"studio-admin/internal/models"
	"studio-admin/internal/models/config"
	"studio-admin/internal/service"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const runTimeout = 4 * time.Minute

type Scheduler struct {
	cron            *cron.Cron
	spec            string
	days            int
	scheduleService service.ScheduleService
	clock           service.Clock
	loc             *time.Location
	log             *zap.Logger
}

func New(cfg *config.Config, scheduleService service.ScheduleService, clock service.Clock, log *zap.Logger) (*Scheduler, error) {
	log = log.Named("scheduler")
	loc := cfg.Location()
	s := &Scheduler{
		spec:            cfg.Scheduler.GenerateCron,
		days:            cfg.Scheduler.GenerateDays,
		scheduleService: scheduleService,
		clock:           clock,
		loc:             loc,
		log:             log,
	}
	if s.spec == "" {
		return s, nil
	}

	cl := cronLogger{log.Sugar()}
	s.cron = cron.New(cron.WithLocation(loc), cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl)))
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return nil, fmt.Errorf("add cron %q: %w", s.spec, err)
	}
	return s, nil
}

// Enabled - задано ли расписание SCHEDULER_GENERATE_CRON
func (s *Scheduler) Enabled() bool {
	return s.cron != nil
}

func (s *Scheduler) Start() {
	if !s.Enabled() {
		return
	}
	s.cron.Start()
	s.log.Info("автогенерация включена", zap.String("schedule", s.spec), zap.Int("days", s.days))
}

// Stop ждёт завершения текущего запуска или отмены ctx
func (s *Scheduler) Stop(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Error("автогенерация завершилась с ошибкой", zap.Error(err))
	}
}

// RunOnce создаёт занятия на days дней, начиная с завтрашнего
func (s *Scheduler) RunOnce(ctx context.Context) ([]models.Session, error) {
	start := s.clock.Today(s.loc).AddDate(0, 0, 1)
	end := start.AddDate(0, 0, s.days-1)
	return s.scheduleService.GenerateSessions(ctx, service.GenerateCommand{StartDate: start, EndDate: end})
}

// cronLogger пишет события cron в zap
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
