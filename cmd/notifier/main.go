package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oskarlindgren/valuebets/internal/betburger"
	"github.com/oskarlindgren/valuebets/internal/notifier"
	"github.com/oskarlindgren/valuebets/internal/pkg/config"
	"github.com/oskarlindgren/valuebets/internal/pkg/logging"
	"github.com/oskarlindgren/valuebets/internal/pkg/storage"
)

const defaultConfigPath = "configs/production.yaml"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var configPath string
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}
	flag.StringVar(&configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.SetupLogger(&cfg.Logging, "notifier")

	applyEnvOverrides(cfg)

	if cfg.BetBurger.Token == "" || cfg.BetBurger.FilterID == "" {
		log.Fatalf("notifier: betburger token and filter_id are required (config or BETBURGER_TOKEN/BETBURGER_FILTER_ID)")
	}
	if cfg.Telegram.Token == "" {
		log.Fatalf("notifier: telegram token is required (config or TELEGRAM_BOT_TOKEN)")
	}
	if cfg.Postgres.DSN == "" {
		log.Fatalf("notifier: postgres DSN is required (config or POSTGRES_DSN)")
	}
	if len(cfg.Telegram.ChatMapping) == 0 {
		slog.Warn("No chat mapping configured, nothing will be dispatched")
	}

	client := betburger.NewClient(&cfg.BetBurger, cfg.Notifier.MinOddsFactor, cfg.BookmakerURLs)

	sender, err := notifier.NewTelegramSender(cfg.Telegram.Token)
	if err != nil {
		log.Fatalf("notifier: failed to initialize telegram sender: %v", err)
	}

	dispatcher := notifier.NewDispatcher(sender, notifier.DispatcherOptions{
		MaxRate:      cfg.Notifier.MaxRate,
		RateInterval: config.ParseDuration(cfg.Notifier.RateInterval, 0),
		Pacing:       config.ParseDuration(cfg.Notifier.Pacing, 0),
		Backoff:      config.ParseDuration(cfg.Notifier.SendBackoff, 0),
	})

	// The store is acquired per cycle and released at cycle end, keeping
	// the single-writer window as small as possible.
	openStore := func() (storage.FixtureStore, error) {
		return storage.NewPostgresFixtureStorage(&cfg.Postgres)
	}

	n := notifier.New(cfg, client.FetchValueBets, openStore, dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, stopping notifier...")
		cancel()
	}()

	if err := n.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Notifier failed: %v", err)
	}
}

// applyEnvOverrides lets deployments keep secrets out of the config file.
func applyEnvOverrides(cfg *config.Config) {
	if token := os.Getenv("BETBURGER_TOKEN"); token != "" {
		cfg.BetBurger.Token = token
		slog.Info("Using BetBurger token from environment")
	}
	if filterID := os.Getenv("BETBURGER_FILTER_ID"); filterID != "" {
		cfg.BetBurger.FilterID = filterID
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.Token = token
		slog.Info("Using Telegram bot token from environment")
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Postgres.DSN = dsn
		slog.Info("Using PostgreSQL DSN from environment")
	}
}
