package notifier

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/oskarlindgren/valuebets/internal/pkg/models"
)

// fallbackFlag is used for countries missing from the flag table.
const fallbackFlag = "🏳️"

// countryFlags maps the country segment of the league path to a flag glyph.
var countryFlags = map[string]string{
	"Argentina":   "🇦🇷",
	"Australia":   "🇦🇺",
	"Austria":     "🇦🇹",
	"Belgium":     "🇧🇪",
	"Brazil":      "🇧🇷",
	"Czech Republic": "🇨🇿",
	"Denmark":     "🇩🇰",
	"England":     "🏴󠁧󠁢󠁥󠁮󠁧󠁿",
	"Finland":     "🇫🇮",
	"France":      "🇫🇷",
	"Germany":     "🇩🇪",
	"Greece":      "🇬🇷",
	"Iceland":     "🇮🇸",
	"Italy":       "🇮🇹",
	"Japan":       "🇯🇵",
	"Netherlands": "🇳🇱",
	"Norway":      "🇳🇴",
	"Poland":      "🇵🇱",
	"Portugal":    "🇵🇹",
	"Russia":      "🇷🇺",
	"Scotland":    "🏴󠁧󠁢󠁳󠁣󠁴󠁿",
	"Spain":       "🇪🇸",
	"Sweden":      "🇸🇪",
	"Switzerland": "🇨🇭",
	"Turkey":      "🇹🇷",
	"USA":         "🇺🇸",
	"Ukraine":     "🇺🇦",
	"World":       "🌍",
}

// Formatter renders groups of unseen records into channel messages.
type Formatter struct {
	template   string
	location   *time.Location
	sportEmoji map[int]string
}

// NewFormatter creates a formatter rendering into the given template, with
// match times converted to the given display timezone.
func NewFormatter(template string, location *time.Location, sportEmoji map[int]string) *Formatter {
	if location == nil {
		location = time.UTC
	}
	return &Formatter{
		template:   template,
		location:   location,
		sportEmoji: sportEmoji,
	}
}

type groupKey struct {
	bookmakerEventID int64
	marketAndBetType int
}

// FormatMessages groups records by (event, market) and renders one message
// per group. Groups come out in first-seen order of the input records, so a
// batch always dispatches in the order it was retrieved.
func (f *Formatter) FormatMessages(records []models.BetRecord) []string {
	groups := make(map[groupKey][]models.BetRecord)
	order := make([]groupKey, 0, len(records))

	for i := range records {
		key := groupKey{records[i].BookmakerEventID, records[i].MarketAndBetType}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], records[i])
	}

	messages := make([]string, 0, len(order))
	for _, key := range order {
		messages = append(messages, f.formatGroup(groups[key]))
	}
	return messages
}

// formatGroup renders one (event, market) group. Event-level fields come
// from the first record of the group; per-outcome fields become one
// bulleted line each.
func (f *Formatter) formatGroup(group []models.BetRecord) string {
	first := group[0]

	country, leagueName := splitLeague(first.League)
	flag, ok := countryFlags[country]
	if !ok {
		flag = fallbackFlag
	}

	matchTime := first.StartedAt.In(f.location).Format("Monday 15:04")

	betLines := make([]string, 0, len(group))
	minOdds := make([]string, 0, len(group))
	for i := range group {
		betLines = append(betLines, "- "+group[i].BetInfo+" ("+strconv.Itoa(int(math.Round(group[i].Percent)))+"u)")
		minOdds = append(minOdds, strconv.FormatFloat(group[i].MinKoef, 'f', 1, 64))
	}

	replacer := strings.NewReplacer(
		"{flag}", flag,
		"{league_name}", leagueName,
		"{sport_emoji}", f.sportEmoji[first.SportID],
		"{event_name}", first.EventName,
		"{bets}", strings.Join(betLines, "\n\t"),
		"{min_odds}", strings.Join(minOdds, " & "),
		"{match_time}", matchTime,
		"{bet_url}", first.BetURL,
	)
	return replacer.Replace(f.template)
}

// splitLeague splits the dot-delimited country.league path. The first
// segment is the country, the last non-empty trimmed segment the league
// name; a path with fewer than two segments has no country.
func splitLeague(league string) (country, name string) {
	parts := strings.Split(league, ".")
	if len(parts) < 2 {
		return "", strings.TrimSpace(league)
	}

	country = strings.TrimSpace(parts[0])
	for i := len(parts) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(parts[i]); trimmed != "" {
			return country, trimmed
		}
	}
	return country, ""
}
