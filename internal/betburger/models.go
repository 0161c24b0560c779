package betburger

import (
	"encoding/json"
	"fmt"
)

// searchResponse is the shape of the valuebets search endpoint: raw bookmaker
// outcomes in "bets", plus the market-consensus averages in
// "source.value_bets", joined on the shared bet id.
type searchResponse struct {
	Bets   []rawOutcome `json:"bets"`
	Source searchSource `json:"source"`
}

type searchSource struct {
	ValueBets []rawValueBet `json:"value_bets"`
}

// looseString decodes a JSON value that may arrive as either a string or a
// number. Some feeds carry numeric-looking team names and parameters as
// bare numbers.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*s = looseString(num.String())
	return nil
}

// rawOutcome is one bookmaker outcome as returned by the upstream API.
type rawOutcome struct {
	ID                       looseString `json:"id"`
	MarketAndBetType         int         `json:"market_and_bet_type"`
	MarketAndBetTypeParam    looseString `json:"market_and_bet_type_param"`
	BookmakerEventID         int64       `json:"bookmaker_event_id"`
	BookmakerID              int         `json:"bookmaker_id"`
	League                   string      `json:"league"`
	EventName                string      `json:"event_name"`
	Home                     looseString `json:"home"`
	Away                     looseString `json:"away"`
	SportID                  int         `json:"sport_id"`
	SwapTeams                bool        `json:"swap_teams"`
	StartedAt                int64       `json:"started_at"`            // epoch seconds
	KoefLastModifiedAt       int64       `json:"koef_last_modified_at"` // epoch milliseconds
	BookmakerEventDirectLink *string     `json:"bookmaker_event_direct_link"`
	Koef                     float64     `json:"koef"`
}

// rawValueBet is the market-consensus record for one bet id. AvgKoef is a
// pointer because upstream omits it when there is no market consensus;
// such outcomes are dropped.
type rawValueBet struct {
	BetID   looseString `json:"bet_id"`
	AvgKoef *float64    `json:"avg_koef"`
	Percent float64     `json:"percent"`
}
