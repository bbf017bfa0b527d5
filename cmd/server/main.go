package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"studio-admin/internal/bot"
	"studio-admin/internal/models/config"
	"studio-admin/internal/repository/attendance"
	"studio-admin/internal/repository/history"
	"studio-admin/internal/repository/member"
	"studio-admin/internal/repository/schedule_template"
	"studio-admin/internal/repository/session"
	"studio-admin/internal/repository/subscription"
	"studio-admin/internal/scheduler"
	"studio-admin/internal/service"
	attendance_service "studio-admin/internal/service/attendance"
	schedule_service "studio-admin/internal/service/schedule"
	session_service "studio-admin/internal/service/session"
	subscription_service "studio-admin/internal/service/subscription"
	"studio-admin/internal/web"
	database "studio-admin/pkg"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(
			config.Load,
			database.NewLogger,
			newDatabase,
			func() service.Clock { return time.Now },

			// Репозитории
			member.NewMemberRepository,
			schedule_template.NewScheduleTemplateRepository,
			session.NewSessionRepository,
			attendance.NewAttendanceRepository,
			subscription.NewSubscriptionRepository,
			history.NewHistoryRepository,

			// Telegram
			bot.NewAPI,
			newNotifier,

			// Сервисы
			schedule_service.NewScheduleService,
			session_service.NewSessionService,
			attendance_service.NewAttendanceService,
			subscription_service.NewSubscriptionService,

			scheduler.New,
			web.NewHandler,
			web.NewRouter,
		),
		fx.Invoke(
			registerHTTPServer,
			registerBot,
			registerScheduler,
		),
	).Run()
}

// newDatabase открывает пул, накатывает схему и закрывает пул при остановке
func newDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*sqlx.DB, error) {
	db, err := database.NewPostgres(cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return database.Migrate(ctx, db)
		},
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})
	return db, nil
}

func newNotifier(api *tgbotapi.BotAPI, cfg *config.Config, log *zap.Logger) service.Notifier {
	if api == nil {
		return service.NopNotifier{}
	}
	return bot.NewNotifier(api, cfg.Bot.AdminIDs, log)
}

func registerHTTPServer(lc fx.Lifecycle, cfg *config.Config, router http.Handler, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("HTTP сервер запущен", zap.String("addr", srv.Addr), zap.String("env", cfg.Environment))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP сервер остановлен с ошибкой", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("остановка HTTP сервера")
			return srv.Shutdown(ctx)
		},
	})
}

func registerBot(
	lc fx.Lifecycle,
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	scheduleService service.ScheduleService,
	sessionService service.SessionService,
	clock service.Clock,
	log *zap.Logger,
) {
	if api == nil {
		return
	}
	b := bot.NewBot(api, cfg, scheduleService, sessionService, clock, log)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := b.Start(api); err != nil {
					log.Error("ошибка запуска бота", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			b.Stop()
			api.StopReceivingUpdates()
			return nil
		},
	})
}

func registerScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.Stop(ctx)
			return nil
		},
	})
}
