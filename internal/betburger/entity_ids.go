package betburger

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// variationSpanTitle identifies the header of the bet-variation table on
// the entity-ids page.
const variationSpanTitle = "translation missing: en.bet.Variation"

// fetchEntityMapping downloads and scrapes the outcome-code to outcome-name
// table. Every failure degrades to an empty map: unresolved codes render as
// "Unknown" instead of failing the retrieval.
func (c *Client) fetchEntityMapping(ctx context.Context) map[int]string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.entityIDsURL, nil)
	if err != nil {
		slog.Warn("Entity mapping: failed to create request", "error", err)
		return map[int]string{}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("Entity mapping: request failed", "error", err)
		return map[int]string{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Entity mapping: unexpected status code", "status", resp.StatusCode)
		return map[int]string{}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		slog.Warn("Entity mapping: failed to parse page", "error", err)
		return map[int]string{}
	}

	return parseEntityMapping(doc)
}

// parseEntityMapping walks the page structurally: the span titled with the
// variation marker, the next table after it, and that table's two-column
// body rows of (numeric code, name).
func parseEntityMapping(doc *goquery.Document) map[int]string {
	mapping := map[int]string{}

	header := doc.Find("span[title='" + variationSpanTitle + "']").First()
	if header.Length() == 0 {
		slog.Warn("Entity mapping: variation header not found")
		return mapping
	}

	table := header.NextAllFiltered("table").First()
	if table.Length() == 0 {
		table = header.Parent().NextAllFiltered("table").First()
	}
	if table.Length() == 0 {
		slog.Warn("Entity mapping: table not found after header")
		return mapping
	}

	rows := table.Find("tbody tr")
	if rows.Length() == 0 {
		slog.Warn("Entity mapping: table body is empty")
		return mapping
	}

	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		id, err := strconv.Atoi(strings.TrimSpace(cells.Eq(0).Text()))
		if err != nil {
			return
		}
		mapping[id] = strings.TrimSpace(cells.Eq(1).Text())
	})

	return mapping
}
