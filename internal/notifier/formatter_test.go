package notifier

import (
	"strings"
	"testing"
	"time"

	"github.com/oskarlindgren/valuebets/internal/pkg/config"
	"github.com/oskarlindgren/valuebets/internal/pkg/models"
)

func TestSplitLeague(t *testing.T) {
	tests := []struct {
		league      string
		wantCountry string
		wantName    string
	}{
		{"England. Premier League", "England", "Premier League"},
		{"Sweden.Allsvenskan", "Sweden", "Allsvenskan"},
		{"Spain. La Liga. ", "Spain", "La Liga"},
		{"Friendlies", "", "Friendlies"},
		{"World. Club Friendlies. 3", "World", "3"},
	}

	for _, tt := range tests {
		country, name := splitLeague(tt.league)
		if country != tt.wantCountry || name != tt.wantName {
			t.Errorf("splitLeague(%q) = (%q, %q), want (%q, %q)",
				tt.league, country, name, tt.wantCountry, tt.wantName)
		}
	}
}

func TestFormatMessages_GroupsByEventAndMarket(t *testing.T) {
	stockholm, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		t.Fatalf("failed to load timezone: %v", err)
	}
	f := NewFormatter(config.DefaultMessageTemplate, stockholm, map[int]string{1: "⚽️"})

	// Two outcomes for the same match and market, one for another market.
	kickoff := time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC) // a Friday
	records := []models.BetRecord{
		{
			Identity: "a", BookmakerEventID: 100, MarketAndBetType: 5, SportID: 1,
			League: "England. Premier League", EventName: "Arsenal - Chelsea",
			StartedAt: kickoff, MinKoef: 1.8, Percent: 7.2,
			BetInfo: "Arsenal to win @ 2.1", BetURL: "https://example.com/1",
		},
		{
			Identity: "b", BookmakerEventID: 100, MarketAndBetType: 5, SportID: 1,
			League: "England. Premier League", EventName: "Arsenal - Chelsea",
			StartedAt: kickoff, MinKoef: 2.4, Percent: 4.6,
			BetInfo: "Chelsea to win @ 2.8", BetURL: "https://example.com/1",
		},
		{
			Identity: "c", BookmakerEventID: 100, MarketAndBetType: 9, SportID: 1,
			League: "England. Premier League", EventName: "Arsenal - Chelsea",
			StartedAt: kickoff, MinKoef: 1.5, Percent: 3.0,
			BetInfo: "Over 2.5 @ 1.7", BetURL: "https://example.com/1",
		},
	}

	messages := f.FormatMessages(records)
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}

	first := messages[0]
	if !strings.Contains(first, "- Arsenal to win @ 2.1 (7u)") {
		t.Errorf("first message missing first bet line:\n%s", first)
	}
	if !strings.Contains(first, "- Chelsea to win @ 2.8 (5u)") {
		t.Errorf("first message missing second bet line:\n%s", first)
	}
	if !strings.Contains(first, "1.8 & 2.4") {
		t.Errorf("first message missing joined min odds:\n%s", first)
	}
	// 18:30 UTC is 19:30 in Stockholm (CET, winter time).
	if !strings.Contains(first, "Friday 19:30") {
		t.Errorf("first message missing localized match time:\n%s", first)
	}
	if !strings.Contains(first, "Premier League") || strings.Contains(first, "England.") {
		t.Errorf("first message league rendering wrong:\n%s", first)
	}
	if !strings.Contains(first, "⚽️") {
		t.Errorf("first message missing sport emoji:\n%s", first)
	}

	if !strings.Contains(messages[1], "- Over 2.5 @ 1.7 (3u)") {
		t.Errorf("second message missing its bet line:\n%s", messages[1])
	}
}

func TestFormatMessages_FlagFallback(t *testing.T) {
	f := NewFormatter("{flag}|{league_name}", time.UTC, nil)

	records := []models.BetRecord{
		{Identity: "a", BookmakerEventID: 1, MarketAndBetType: 1, League: "Sweden. Allsvenskan"},
		{Identity: "b", BookmakerEventID: 2, MarketAndBetType: 1, League: "Atlantis. First Division"},
	}

	messages := f.FormatMessages(records)
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0] != "🇸🇪|Allsvenskan" {
		t.Errorf("known country = %q, want Swedish flag", messages[0])
	}
	if messages[1] != fallbackFlag+"|First Division" {
		t.Errorf("unknown country = %q, want fallback flag", messages[1])
	}
}

func TestFormatMessages_GroupOrderFollowsInput(t *testing.T) {
	f := NewFormatter("{event_name}", time.UTC, nil)

	records := []models.BetRecord{
		{Identity: "a", BookmakerEventID: 2, MarketAndBetType: 1, EventName: "second"},
		{Identity: "b", BookmakerEventID: 1, MarketAndBetType: 1, EventName: "first"},
		{Identity: "c", BookmakerEventID: 2, MarketAndBetType: 1, EventName: "second"},
	}

	messages := f.FormatMessages(records)
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0] != "second" || messages[1] != "first" {
		t.Errorf("group order = %v, want [second first]", messages)
	}
}
