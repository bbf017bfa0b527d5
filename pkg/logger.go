package database

import (
	"studio-admin/internal/models/config"

	"go.uber.org/zap"
)

// NewLogger - JSON в продакшене, консольный вывод в разработке
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
