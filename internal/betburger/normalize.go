package betburger

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/oskarlindgren/valuebets/internal/pkg/models"
)

// eventLinkPlaceholder is the token in bookmaker URL templates that gets
// replaced with the event's direct link. Bookmakers without a template keep
// the bare placeholder as their URL.
const eventLinkPlaceholder = "{bookmaker_event_link}"

// unknownOutcome is used when the outcome-name mapping has no entry for a
// market code.
const unknownOutcome = "Unknown"

// buildRecords inner-joins outcomes with their market-consensus rows and
// enriches each surviving pair into a BetRecord. Outcomes with no matching
// consensus row, or with a null avg_koef, are dropped. Input order of
// outcomes is preserved.
func buildRecords(outcomes []rawOutcome, valueBets []rawValueBet, mapping map[int]string, urlTemplates map[int]string, minOddsFactor float64, receivedAt time.Time) []models.BetRecord {
	consensus := make(map[string]rawValueBet, len(valueBets))
	for _, vb := range valueBets {
		consensus[string(vb.BetID)] = vb
	}

	records := make([]models.BetRecord, 0, len(outcomes))
	for _, out := range outcomes {
		vb, ok := consensus[string(out.ID)]
		if !ok || vb.AvgKoef == nil {
			continue
		}

		record := models.BetRecord{
			Identity:                 string(out.ID),
			MarketAndBetType:         out.MarketAndBetType,
			BookmakerEventID:         out.BookmakerEventID,
			BookmakerID:              out.BookmakerID,
			League:                   out.League,
			EventName:                out.EventName,
			Home:                     string(out.Home),
			Away:                     string(out.Away),
			SportID:                  out.SportID,
			SwapTeams:                out.SwapTeams,
			StartedAt:                time.Unix(out.StartedAt, 0).UTC(),
			KoefLastModifiedAt:       time.UnixMilli(out.KoefLastModifiedAt).UTC(),
			BookmakerEventDirectLink: out.BookmakerEventDirectLink,
			Koef:                     out.Koef,
			AvgKoef:                  *vb.AvgKoef,
			Percent:                  vb.Percent,
			MinKoef:                  roundTo(out.Koef*minOddsFactor, 1),
			ReceiveDate:              receivedAt,
		}

		record.BetURL = buildBetURL(out, urlTemplates)
		record.BetInfo = buildBetInfo(out, mapping)

		records = append(records, record)
	}

	return records
}

// buildBetURL resolves the canonical link for an outcome: the bookmaker's
// URL template with the direct event link substituted, or the literal
// string "null" when the event has none.
func buildBetURL(out rawOutcome, urlTemplates map[int]string) string {
	template, ok := urlTemplates[out.BookmakerID]
	if !ok {
		template = eventLinkPlaceholder
	}

	link := "null"
	if out.BookmakerEventDirectLink != nil {
		link = *out.BookmakerEventDirectLink
	}

	return strings.ReplaceAll(template, eventLinkPlaceholder, link)
}

// buildBetInfo renders the human-readable outcome text plus the offered
// odds. Mapped names carry Team1/Team2 placeholders and a %s slot for the
// market parameter; team placeholders are swapped when the market requires
// it.
func buildBetInfo(out rawOutcome, mapping map[int]string) string {
	name, ok := mapping[out.MarketAndBetType]
	if !ok {
		name = unknownOutcome
	}

	home, away := string(out.Home), string(out.Away)
	if out.SwapTeams {
		home, away = away, home
	}

	name = strings.ReplaceAll(name, "Team1", home)
	name = strings.ReplaceAll(name, "Team2", away)
	name = strings.ReplaceAll(name, "%s", string(out.MarketAndBetTypeParam))

	return name + " @ " + formatKoef(roundTo(out.Koef, 2))
}

func roundTo(value float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(value*factor) / factor
}

// formatKoef renders odds with the shortest decimal form, keeping one
// decimal for whole numbers so 3 reads as "3.0".
func formatKoef(value float64) string {
	s := strconv.FormatFloat(value, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
