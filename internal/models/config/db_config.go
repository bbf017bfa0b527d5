package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

// DatabaseConfig конфигурация БД
type DatabaseConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Name, d.SSLMode,
	)
}

// Load загружает конфигурацию из окружения (и .env, если он есть)
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Environment: env,
		Timezone:    getEnv("APP_TIMEZONE", "UTC"),
		HTTP: HTTPConfig{
			Port:           getEnv("HTTP_PORT", "8080"),
			AllowedOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		},
		Bot: BotConfig{
			Token:    getEnv("BOT_TOKEN", ""),
			Debug:    getEnvAsBool("BOT_DEBUG", env != "production"),
			AdminIDs: parseAdminIDs(getEnv("ADMIN_IDS", "")),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			Username:     getEnv("DB_USER", ""),
			Password:     getEnv("DB_PASSWORD", ""),
			Name:         getEnv("DB_NAME", "studio"),
			SSLMode:      getSSLMode(env),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Scheduler: SchedulerConfig{
			GenerateCron: getEnv("SCHEDULER_GENERATE_CRON", ""),
			GenerateDays: getEnvAsInt("SCHEDULER_GENERATE_DAYS", 14),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate проверяет обязательные параметры
func validate(cfg *Config) error {
	var err error

	if cfg.Database.Username == "" {
		err = multierr.Append(err, errors.New("DB_USER is required"))
	}

	if cfg.IsProduction() {
		if cfg.Database.Password == "" {
			err = multierr.Append(err, errors.New("DB_PASSWORD is required in production"))
		}
		if cfg.Auth.JWTSecret == "" {
			err = multierr.Append(err, errors.New("JWT_SECRET is required in production"))
		}
	}

	if cfg.Scheduler.GenerateDays <= 0 || cfg.Scheduler.GenerateDays > 366 {
		err = multierr.Append(err, errors.New("SCHEDULER_GENERATE_DAYS must be between 1 and 366"))
	}

	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// getSSLMode возвращает режим SSL в зависимости от окружения
func getSSLMode(env string) string {
	if env == "production" {
		return "require"
	}
	return "disable"
}

// parseAdminIDs парсит список ID администраторов
func parseAdminIDs(ids string) []int64 {
	var result []int64
	for _, idStr := range splitList(ids) {
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			result = append(result, id)
		}
	}
	return result
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}
