package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oskarlindgren/valuebets/internal/pkg/models"
)

func TestRetrieve_SucceedsAfterTransientFailures(t *testing.T) {
	clk := newFakeClock()
	calls := 0
	fetch := func(ctx context.Context) ([]models.BetRecord, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}
		return recordsWithIdentities("a"), nil
	}

	r := &retriever{fetch: fetch, attempts: 3, delay: 2 * time.Second, clk: clk}
	records, err := r.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if len(records) != 1 || records[0].Identity != "a" {
		t.Errorf("Retrieve = %v, want single record a", identitiesOf(records))
	}
	if calls != 3 {
		t.Errorf("fetch called %d times, want 3", calls)
	}
	if len(clk.slept) != 2 || clk.slept[0] != 2*time.Second {
		t.Errorf("sleeps = %v, want two fixed 2s delays", clk.slept)
	}
}

// Exhausted retries surface as a distinguishable error, not as an empty
// result: an "upstream unreachable" cycle must not look like "no bets".
func TestRetrieve_ExhaustionIsDistinguishable(t *testing.T) {
	clk := newFakeClock()
	calls := 0
	fetch := func(ctx context.Context) ([]models.BetRecord, error) {
		calls++
		return nil, errors.New("503 service unavailable")
	}

	r := &retriever{fetch: fetch, attempts: 3, delay: 2 * time.Second, clk: clk}
	records, err := r.Retrieve(context.Background())
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("Retrieve error = %v, want ErrUpstreamUnavailable", err)
	}
	if records != nil {
		t.Errorf("Retrieve returned records alongside the error: %v", identitiesOf(records))
	}
	if calls != 3 {
		t.Errorf("fetch called %d times, want 3", calls)
	}
}

func TestRetrieve_EmptyResultIsNotAnError(t *testing.T) {
	clk := newFakeClock()
	fetch := func(ctx context.Context) ([]models.BetRecord, error) {
		return []models.BetRecord{}, nil
	}

	r := &retriever{fetch: fetch, attempts: 3, delay: 2 * time.Second, clk: clk}
	records, err := r.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("Retrieve returned error for empty result: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Retrieve = %v, want empty", identitiesOf(records))
	}
	if len(clk.slept) != 0 {
		t.Errorf("slept %v on a successful first attempt", clk.slept)
	}
}
