package bot

import (
	"context"
	"fmt"
	"time"

	"studio-admin/internal/models/config"
	"studio-admin/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"
)

// Sender - часть BotAPI, которой достаточно для отправки сообщений
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewAPI подключается к Telegram; без BOT_TOKEN возвращает nil
func NewAPI(cfg *config.Config, log *zap.Logger) (*tgbotapi.BotAPI, error) {
	if cfg.Bot.Token == "" {
		log.Info("BOT_TOKEN не задан, уведомления в Telegram выключены")
		return nil, nil
	}

	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = cfg.Bot.Debug

	log.Info("бот инициализирован",
		zap.String("username", api.Self.UserName),
		zap.Bool("debug", cfg.Bot.Debug),
		zap.Int64s("admins", cfg.Bot.AdminIDs),
	)
	return api, nil
}

// Bot обрабатывает команды администраторов
type Bot struct {
	api             Sender
	adminIDs        map[int64]struct{}
	scheduleService service.ScheduleService
	sessionService  service.SessionService
	clock           service.Clock
	loc             *time.Location
	log             *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewBot(
	api Sender,
	cfg *config.Config,
	scheduleService service.ScheduleService,
	sessionService service.SessionService,
	clock service.Clock,
	log *zap.Logger,
) *Bot {
	admins := make(map[int64]struct{}, len(cfg.Bot.AdminIDs))
	for _, id := range cfg.Bot.AdminIDs {
		admins[id] = struct{}{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		ctx:             ctx,
		cancel:          cancel,
		api:             api,
		adminIDs:        admins,
		scheduleService: scheduleService,
		sessionService:  sessionService,
		clock:           clock,
		loc:             cfg.Location(),
		log:             log.Named("bot"),
	}
}

// Start читает обновления до вызова Stop
func (b *Bot) Start(api *tgbotapi.BotAPI) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := api.GetUpdatesChan(u)
	if err != nil {
		return err
	}
	b.log.Info("бот запущен", zap.String("username", api.Self.UserName))

	for {
		select {
		case <-b.ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(b.ctx, update.Message)
		}
	}
}

// Stop прекращает обработку; опрос Telegram останавливает вызывающий
func (b *Bot) Stop() {
	b.cancel()
}

func (b *Bot) isAdmin(userID int64) bool {
	_, ok := b.adminIDs[userID]
	return ok
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("не удалось отправить сообщение", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
