package config

import (
	"time"
	_ "time/tzdata"
)

// Config основной конфиг
type Config struct {
	Environment string
	Timezone    string
	HTTP        HTTPConfig
	Bot         BotConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	Scheduler   SchedulerConfig
}

type HTTPConfig struct {
	Port           string
	AllowedOrigins []string
}

type BotConfig struct {
	Token    string
	Debug    bool
	AdminIDs []int64 // ID администраторов для уведомлений
}

type AuthConfig struct {
	JWTSecret string
}

type SchedulerConfig struct {
	GenerateCron string // пусто = автогенерация выключена
	GenerateDays int
}

// IsProduction сообщает, запущены ли мы в продакшене
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location возвращает часовой пояс студии
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
