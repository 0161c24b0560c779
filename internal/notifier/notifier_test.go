package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oskarlindgren/valuebets/internal/pkg/models"
	"github.com/oskarlindgren/valuebets/internal/pkg/storage"
)

type fakeDispatcher struct {
	batches map[int64][]string
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{batches: make(map[int64][]string)}
}

func (d *fakeDispatcher) SendBatch(_ context.Context, chatID int64, messages []string) int {
	d.batches[chatID] = append(d.batches[chatID], messages...)
	return len(messages)
}

func testNotifier(fetch FetchFunc, store *fakeStore, dispatcher *fakeDispatcher, storeOpens *int) *Notifier {
	return &Notifier{
		retriever: &retriever{fetch: fetch, attempts: 3, delay: time.Millisecond, clk: newFakeClock()},
		openStore: func() (storage.FixtureStore, error) {
			*storeOpens++
			return store, nil
		},
		dispatcher:  dispatcher,
		formatter:   NewFormatter("{event_name}", time.UTC, nil),
		chatMapping: map[int]int64{1: 100, 2: 200},
		interval:    time.Minute,
	}
}

func TestRunCycle_PersistsThenDispatchesPerSport(t *testing.T) {
	store := newFakeStore("old1")
	dispatcher := newFakeDispatcher()
	opens := 0

	fresh := []models.BetRecord{
		{Identity: "old1", SportID: 1, BookmakerEventID: 1, MarketAndBetType: 1, EventName: "seen before"},
		{Identity: "new1", SportID: 1, BookmakerEventID: 2, MarketAndBetType: 1, EventName: "football match"},
		{Identity: "new2", SportID: 2, BookmakerEventID: 3, MarketAndBetType: 1, EventName: "hockey match"},
		{Identity: "new3", SportID: 7, BookmakerEventID: 4, MarketAndBetType: 1, EventName: "unmapped sport"},
	}
	fetch := func(ctx context.Context) ([]models.BetRecord, error) { return fresh, nil }

	n := testNotifier(fetch, store, dispatcher, &opens)
	if err := n.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle returned error: %v", err)
	}

	if opens != 1 {
		t.Errorf("store opened %d times, want once per cycle", opens)
	}
	for _, id := range []string{"new1", "new2", "new3"} {
		if _, ok := store.seen[id]; !ok {
			t.Errorf("record %s was not persisted", id)
		}
	}

	if got := dispatcher.batches[100]; len(got) != 1 || got[0] != "football match" {
		t.Errorf("chat 100 got %v, want [football match]", got)
	}
	if got := dispatcher.batches[200]; len(got) != 1 || got[0] != "hockey match" {
		t.Errorf("chat 200 got %v, want [hockey match]", got)
	}
	if got, ok := dispatcher.batches[0]; ok {
		t.Errorf("unmapped sport was dispatched: %v", got)
	}
	for chatID, msgs := range dispatcher.batches {
		for _, msg := range msgs {
			if msg == "seen before" {
				t.Errorf("already-seen record dispatched to chat %d", chatID)
			}
		}
	}
}

func TestRunCycle_InsertFailureAbortsBeforeDispatch(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("disk full")
	dispatcher := newFakeDispatcher()
	opens := 0

	fetch := func(ctx context.Context) ([]models.BetRecord, error) {
		return recordsWithIdentities("a"), nil
	}

	n := testNotifier(fetch, store, dispatcher, &opens)
	if err := n.runCycle(context.Background()); err == nil {
		t.Fatal("runCycle did not return the insert error")
	}
	if len(dispatcher.batches) != 0 {
		t.Errorf("messages dispatched despite failed persistence: %v", dispatcher.batches)
	}
}

func TestRunCycle_UpstreamUnavailableSkipsStore(t *testing.T) {
	store := newFakeStore()
	dispatcher := newFakeDispatcher()
	opens := 0

	fetch := func(ctx context.Context) ([]models.BetRecord, error) {
		return nil, errors.New("connection refused")
	}

	n := testNotifier(fetch, store, dispatcher, &opens)
	err := n.runCycle(context.Background())
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("runCycle error = %v, want ErrUpstreamUnavailable", err)
	}
	if opens != 0 {
		t.Errorf("store opened %d times on an unreachable upstream, want 0", opens)
	}
	if len(dispatcher.batches) != 0 {
		t.Errorf("messages dispatched on an unreachable upstream: %v", dispatcher.batches)
	}
}

func TestRunCycle_AllDuplicatesSendsNothing(t *testing.T) {
	store := newFakeStore("a", "b")
	dispatcher := newFakeDispatcher()
	opens := 0

	fetch := func(ctx context.Context) ([]models.BetRecord, error) {
		return recordsWithIdentities("a", "b"), nil
	}

	n := testNotifier(fetch, store, dispatcher, &opens)
	if err := n.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle returned error: %v", err)
	}
	if len(dispatcher.batches) != 0 {
		t.Errorf("messages dispatched for an all-duplicate batch: %v", dispatcher.batches)
	}
}
