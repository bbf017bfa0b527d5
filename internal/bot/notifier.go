package bot

import (
	"context"
	"fmt"
	"time"

	"studio-admin/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"
)

// Notifier рассылает уведомления администраторам
type Notifier struct {
	api      Sender
	adminIDs []int64
	log      *zap.Logger
}

func NewNotifier(api Sender, adminIDs []int64, log *zap.Logger) *Notifier {
	return &Notifier{api: api, adminIDs: adminIDs, log: log.Named("notifier")}
}

func (n *Notifier) SessionsGenerated(_ context.Context, from, to time.Time, sessions []models.Session) {
	n.broadcast(formatGenerated(from, to, sessions))
}

func (n *Notifier) SessionStatusChanged(_ context.Context, sess *models.Session) {
	n.broadcast(formatStatusChange(sess))
}

func (n *Notifier) broadcast(text string) {
	for _, chatID := range n.adminIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = "Markdown"
		if _, err := n.api.Send(msg); err != nil {
			n.log.Warn("не удалось отправить уведомление", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}

func formatGenerated(from, to time.Time, sessions []models.Session) string {
	return fmt.Sprintf("✅ *Созданы занятия*\n\n📅 Период: %s - %s\n📊 Создано: %d",
		from.Format("02.01.2006"), to.Format("02.01.2006"), len(sessions))
}

func formatStatusChange(sess *models.Session) string {
	title := "⚠️ *Занятие приостановлено*"
	if sess.Status == models.SessionCancelled {
		title = "❌ *Занятие отменено*"
	}
	text := fmt.Sprintf("%s\n\n%s\n📅 %s, %s", title, sessionLine(sess),
		getRussianDayOfWeek(sess.Date.Weekday()), sess.Date.Format("02.01.2006"))
	if sess.CancellationReason != nil && *sess.CancellationReason != "" {
		text += "\n📝 Причина: " + escapeMarkdown(*sess.CancellationReason)
	}
	return text
}
