package models

import (
	"time"
)

// BetRecord represents one candidate value-bet outcome at a point in time.
// Identity is the upstream bet id and is the unique key across the whole
// lifetime of the store: records are insert-only, a re-offer at a new price
// only shows up as a new record if the upstream assigns a new id.
type BetRecord struct {
	Identity                 string    `json:"id"`
	MarketAndBetType         int       `json:"market_and_bet_type"`
	BookmakerEventID         int64     `json:"bookmaker_event_id"`
	BookmakerID              int       `json:"bookmaker_id"`
	League                   string    `json:"league"` // dot-delimited country.league path
	EventName                string    `json:"event_name"`
	Home                     string    `json:"home"`
	Away                     string    `json:"away"`
	SportID                  int       `json:"sport_id"`
	SwapTeams                bool      `json:"swap_teams"`
	StartedAt                time.Time `json:"started_at"`
	KoefLastModifiedAt       time.Time `json:"koef_last_modified_at"`
	BookmakerEventDirectLink *string   `json:"bookmaker_event_direct_link"`

	// Odds
	Koef    float64 `json:"koef"`     // odds offered by the bookmaker
	AvgKoef float64 `json:"avg_koef"` // market-average odds (the value signal)
	Percent float64 `json:"percent"`  // edge over the market average

	// Derived at the retrieval boundary
	MinKoef     float64   `json:"min_koef"` // lowest odds the bet is still worth taking at
	BetURL      string    `json:"bet_url"`
	BetInfo     string    `json:"bet_info"`
	ReceiveDate time.Time `json:"receive_date"`
}

// Column is one (name, value) pair of the persisted representation.
type Column struct {
	Name  string
	Value interface{}
}

// Columns returns the persisted representation of the record in a fixed
// order. The storage layer derives both the table schema and the insert
// statement from this list, so a field added here surfaces to an existing
// table as schema drift and gets a column added on first insert.
func (r *BetRecord) Columns() []Column {
	var directLink interface{}
	if r.BookmakerEventDirectLink != nil {
		directLink = *r.BookmakerEventDirectLink
	}
	return []Column{
		{"id", r.Identity},
		{"market_and_bet_type", r.MarketAndBetType},
		{"bookmaker_event_id", r.BookmakerEventID},
		{"bookmaker_id", r.BookmakerID},
		{"league", r.League},
		{"event_name", r.EventName},
		{"home", r.Home},
		{"away", r.Away},
		{"sport_id", r.SportID},
		{"swap_teams", r.SwapTeams},
		{"started_at", r.StartedAt},
		{"koef_last_modified_at", r.KoefLastModifiedAt},
		{"bookmaker_event_direct_link", directLink},
		{"koef", r.Koef},
		{"avg_koef", r.AvgKoef},
		{"percent", r.Percent},
		{"min_koef", r.MinKoef},
		{"bet_url", r.BetURL},
		{"bet_info", r.BetInfo},
		{"receive_date", r.ReceiveDate},
	}
}
