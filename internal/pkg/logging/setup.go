package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/oskarlindgren/valuebets/internal/pkg/config"
)

// SetupLogger configures the global slog logger for a service and returns it.
func SetupLogger(cfg *config.LoggingConfig, serviceName string) *slog.Logger {
	level := parseLevel(cfg.Level)

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(textHandler)
	logger = logger.With("service", serviceName)

	slog.SetDefault(logger)

	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
