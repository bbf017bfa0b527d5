package bot

import (
	"fmt"
	"strings"
	"time"

	"studio-admin/internal/models"
)

// Вспомогательная функция для дня недели на русском
func getRussianDayOfWeek(day time.Weekday) string {
	days := []string{
		"Воскресенье",
		"Понедельник",
		"Вторник",
		"Среда",
		"Четверг",
		"Пятница",
		"Суббота",
	}
	if int(day) < len(days) {
		return days[day]
	}
	return ""
}

var statusLabels = map[models.SessionStatus]string{
	models.SessionScheduled: "🗓 запланировано",
	models.SessionHeld:      "✅ проведено",
	models.SessionCancelled: "❌ отменено",
	models.SessionSuspended: "⚠️ приостановлено",
	models.SessionClosed:    "🔒 закрыто",
}

// markdownEscaper экранирует пользовательский текст для ParseMode = "Markdown"
var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// "18:00:00" -> "18:00"
func shortClock(s string) string {
	if len(s) >= 5 {
		return s[:5]
	}
	return s
}

func sessionLine(sess *models.Session) string {
	name := sess.ActivityName
	if name == "" {
		name = fmt.Sprintf("Активность #%d", sess.ActivityID)
	}
	line := fmt.Sprintf("🕐 *%s-%s* %s", shortClock(sess.StartTime), shortClock(sess.EndTime), escapeMarkdown(name))
	if sess.PlaceName != "" {
		line += " · 📍 " + escapeMarkdown(sess.PlaceName)
	}
	if sess.TeacherName != "" {
		line += " · 👤 " + escapeMarkdown(sess.TeacherName)
	}
	return line
}

func formatDay(day time.Time, sessions []models.Session) string {
	if len(sessions) == 0 {
		return fmt.Sprintf("📭 Нет занятий на %s", day.Format("02.01.2006"))
	}

	var message strings.Builder
	message.WriteString(fmt.Sprintf("📅 *%s, %s*\n", getRussianDayOfWeek(day.Weekday()), day.Format("02.01.2006")))
	for i := range sessions {
		message.WriteString("\n" + sessionLine(&sessions[i]))
		message.WriteString("\n└─ " + statusLabels[sessions[i].Status])
	}
	return message.String()
}
