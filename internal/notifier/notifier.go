package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oskarlindgren/valuebets/internal/pkg/config"
	"github.com/oskarlindgren/valuebets/internal/pkg/models"
	"github.com/oskarlindgren/valuebets/internal/pkg/storage"
)

// StoreOpener acquires the fixture store for one cycle. The store is
// single-writer: the connection is opened at cycle start and closed on
// every exit path, and cycles never overlap.
type StoreOpener func() (storage.FixtureStore, error)

// batchSender is what the orchestrator needs from the dispatcher.
type batchSender interface {
	SendBatch(ctx context.Context, chatID int64, messages []string) int
}

// Notifier runs the retrieve → dedup → persist → dispatch cycle on a fixed
// schedule.
type Notifier struct {
	retriever   *retriever
	openStore   StoreOpener
	dispatcher  batchSender
	formatter   *Formatter
	chatMapping map[int]int64
	interval    time.Duration
}

// New wires a notifier from config and collaborators.
func New(cfg *config.Config, fetch FetchFunc, openStore StoreOpener, dispatcher batchSender) *Notifier {
	location, err := time.LoadLocation(cfg.Notifier.Timezone)
	if err != nil {
		slog.Warn("Unknown timezone, falling back to UTC", "timezone", cfg.Notifier.Timezone)
		location = time.UTC
	}

	return &Notifier{
		retriever: &retriever{
			fetch:    fetch,
			attempts: cfg.Notifier.RetryAttempts,
			delay:    config.ParseDuration(cfg.Notifier.RetryDelay, 2*time.Second),
			clk:      realClock{},
		},
		openStore:   openStore,
		dispatcher:  dispatcher,
		formatter:   NewFormatter(cfg.Notifier.MessageTemplate, location, cfg.Telegram.SportEmoji),
		chatMapping: cfg.Telegram.ChatMapping,
		interval:    config.ParseDuration(cfg.Notifier.Interval, time.Minute),
	}
}

// Run executes one cycle immediately, then once per interval until the
// context is cancelled. Cycles run to completion on a single goroutine, so
// a slow cycle delays the next tick instead of overlapping it. Cycle errors
// are logged, never fatal to the loop.
func (n *Notifier) Run(ctx context.Context) error {
	slog.Info("Notifier started", "interval", n.interval)

	if err := n.runCycle(ctx); err != nil && ctx.Err() == nil {
		slog.Error("Cycle failed", "error", err)
	}

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Notifier stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := n.runCycle(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Cycle failed", "error", err)
			}
		}
	}
}

// runCycle drives one pass of the pipeline: retrieve with retry, dedup
// against the store, persist the unseen records, then format and dispatch
// them per sport. Persistence always happens before dispatch; an insert
// failure aborts the cycle with nothing sent.
func (n *Notifier) runCycle(ctx context.Context) error {
	records, err := n.retriever.Retrieve(ctx)
	if err != nil {
		if errors.Is(err, ErrUpstreamUnavailable) {
			slog.Error("Upstream unreachable, skipping cycle", "error", err)
		}
		return err
	}

	if len(records) == 0 {
		slog.Warn("No bets retrieved from the API, skipping cycle")
		return nil
	}
	slog.Info("Bets retrieved from the API", "count", len(records))

	store, err := n.openStore()
	if err != nil {
		return fmt.Errorf("failed to open fixture store: %w", err)
	}
	defer store.Close()

	unseen, err := Dedup(ctx, records, store)
	if err != nil {
		return err
	}
	if len(unseen) == 0 {
		slog.Warn("Duplicate records retrieved from the database, skipping cycle")
		return nil
	}
	slog.Info("New bets found", "count", len(unseen))

	if err := store.InsertRecords(ctx, unseen); err != nil {
		return fmt.Errorf("failed to persist new bets: %w", err)
	}
	slog.Info("New bets inserted into the database", "count", len(unseen))

	n.dispatch(ctx, unseen)
	return nil
}

// dispatch partitions the unseen records by sport, formats each partition
// and sends it to the sport's channel. Sports without a chat mapping are
// skipped.
func (n *Notifier) dispatch(ctx context.Context, unseen []models.BetRecord) {
	sports := make(map[int][]models.BetRecord)
	order := make([]int, 0, len(unseen))
	for i := range unseen {
		sportID := unseen[i].SportID
		if _, ok := sports[sportID]; !ok {
			order = append(order, sportID)
		}
		sports[sportID] = append(sports[sportID], unseen[i])
	}

	for _, sportID := range order {
		chatID, ok := n.chatMapping[sportID]
		if !ok {
			slog.Warn("No chat mapping for sport, skipping", "sport_id", sportID, "records", len(sports[sportID]))
			continue
		}

		messages := n.formatter.FormatMessages(sports[sportID])
		slog.Info("Formatted messages", "sport_id", sportID, "messages", len(messages))

		sent := n.dispatcher.SendBatch(ctx, chatID, messages)
		slog.Info("Messages sent to channel", "chat_id", chatID, "sent", sent, "total", len(messages))
	}
}
