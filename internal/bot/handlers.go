package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"studio-admin/internal/models"
	"studio-admin/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"
)

const (
	defaultGenerateDays = 7
	maxGenerateDays     = 60
)

// Обработка сообщения здесь
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}
	chatID := message.Chat.ID
	userID := int64(message.From.ID)

	b.log.Debug("сообщение", zap.String("from", message.From.UserName), zap.String("text", message.Text))

	if !b.isAdmin(userID) {
		b.sendMessage(chatID, "❌ Бот доступен только администраторам студии")
		return
	}

	if !message.IsCommand() {
		b.sendHelp(chatID)
		return
	}

	switch message.Command() {
	case "today":
		b.handleToday(ctx, chatID)
	case "generate":
		b.handleGenerate(ctx, chatID, message.CommandArguments())
	default:
		b.sendHelp(chatID)
	}
}

func (b *Bot) sendHelp(chatID int64) {
	msg := tgbotapi.NewMessage(chatID,
		"Команды:\n"+
			"/today - занятия на сегодня\n"+
			fmt.Sprintf("/generate N - создать занятия по шаблонам на N дней вперёд (1-%d)", maxGenerateDays))
	msg.ReplyMarkup = createAdminKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("не удалось отправить подсказку", zap.Error(err))
	}
}

func (b *Bot) handleToday(ctx context.Context, chatID int64) {
	today := b.clock.Today(b.loc)
	sessions, err := b.sessionService.ListSessions(ctx, models.SessionFilter{From: &today, To: &today})
	if err != nil {
		b.log.Error("ошибка получения занятий", zap.Error(err))
		b.sendMessage(chatID, "❌ Ошибка при получении расписания")
		return
	}
	b.sendMessage(chatID, formatDay(today, sessions))
}

// handleGenerate создаёт занятия начиная с завтрашнего дня
func (b *Bot) handleGenerate(ctx context.Context, chatID int64, args string) {
	days, err := parseDays(args)
	if err != nil {
		b.sendMessage(chatID, "❌ "+err.Error())
		return
	}

	start := b.clock.Today(b.loc).AddDate(0, 0, 1)
	end := start.AddDate(0, 0, days-1)
	created, err := b.scheduleService.GenerateSessions(ctx, service.GenerateCommand{StartDate: start, EndDate: end})
	if err != nil {
		b.log.Error("ошибка генерации из бота", zap.Int("created", len(created)), zap.Error(err))
		b.sendMessage(chatID, fmt.Sprintf("❌ Генерация прервана, создано занятий: %d", len(created)))
		return
	}

	// при создании администраторы получат уведомление от Notifier
	if len(created) == 0 {
		b.sendMessage(chatID, fmt.Sprintf("✅ Все занятия на %s - %s уже созданы", start.Format("02.01"), end.Format("02.01")))
	}
}

func parseDays(args string) (int, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return defaultGenerateDays, nil
	}
	n, err := strconv.Atoi(args)
	if err != nil || n < 1 || n > maxGenerateDays {
		return 0, fmt.Errorf("введите число от 1 до %d", maxGenerateDays)
	}
	return n, nil
}

func createAdminKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/today"),
			tgbotapi.NewKeyboardButton(fmt.Sprintf("/generate %d", defaultGenerateDays)),
		),
	)
}
