package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oskarlindgren/valuebets/internal/pkg/models"
)

// ErrUpstreamUnavailable is returned when every fetch attempt failed. It is
// deliberately distinct from an empty result: a cycle that hits it must not
// be logged as "no bets".
var ErrUpstreamUnavailable = errors.New("upstream unavailable after retries")

// FetchFunc performs one upstream retrieval.
type FetchFunc func(ctx context.Context) ([]models.BetRecord, error)

// retriever wraps an upstream fetch with a bounded fixed-delay retry.
type retriever struct {
	fetch    FetchFunc
	attempts int
	delay    time.Duration
	clk      clock
}

// Retrieve attempts the fetch up to the configured number of times, waiting
// a fixed delay between attempts. Each failure is logged; once attempts are
// exhausted the last error is wrapped in ErrUpstreamUnavailable.
func (r *retriever) Retrieve(ctx context.Context) ([]models.BetRecord, error) {
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		records, err := r.fetch(ctx)
		if err == nil {
			return records, nil
		}
		lastErr = err
		slog.Warn("Failed to retrieve bets", "attempt", attempt, "attempts", r.attempts, "error", err)

		if attempt < r.attempts {
			if sleepErr := r.clk.Sleep(ctx, r.delay); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, lastErr)
}
