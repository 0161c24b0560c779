package betburger

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const entityPage = `<html><body>
<span title="translation missing: en.bet.Outcome">Outcome</span>
<table><tbody><tr><td>1</td><td>Wrong table</td></tr></tbody></table>
<span title="translation missing: en.bet.Variation">Variation</span>
<table>
  <thead><tr><th>ID</th><th>Name</th></tr></thead>
  <tbody>
    <tr><td> 5 </td><td> Team1 to beat Team2 </td></tr>
    <tr><td>9</td><td>Over %s goals</td></tr>
    <tr><td>broken</td><td>Not numeric</td></tr>
    <tr><td>12</td></tr>
    <tr><td>14</td><td>Draw</td></tr>
  </tbody>
</table>
</body></html>`

func mustParse(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestParseEntityMapping(t *testing.T) {
	mapping := parseEntityMapping(mustParse(t, entityPage))

	want := map[int]string{
		5:  "Team1 to beat Team2",
		9:  "Over %s goals",
		14: "Draw",
	}
	if len(mapping) != len(want) {
		t.Fatalf("got %d entries, want %d: %v", len(mapping), len(want), mapping)
	}
	for id, name := range want {
		if mapping[id] != name {
			t.Errorf("mapping[%d] = %q, want %q", id, mapping[id], name)
		}
	}
}

func TestParseEntityMapping_TableInsideSibling(t *testing.T) {
	// Header nested one level deeper than the table, as the live page
	// sometimes renders it.
	page := `<html><body>
<div><span title="translation missing: en.bet.Variation">Variation</span></div>
<table><tbody><tr><td>3</td><td>Draw no bet</td></tr></tbody></table>
</body></html>`

	mapping := parseEntityMapping(mustParse(t, page))
	if mapping[3] != "Draw no bet" {
		t.Errorf("mapping[3] = %q, want %q", mapping[3], "Draw no bet")
	}
}

func TestParseEntityMapping_Malformed(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{"missing header", `<html><body><table><tbody><tr><td>1</td><td>x</td></tr></tbody></table></body></html>`},
		{"no table after header", `<html><body><span title="translation missing: en.bet.Variation">V</span></body></html>`},
		{"empty body", `<html><body><span title="translation missing: en.bet.Variation">V</span><table></table></body></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapping := parseEntityMapping(mustParse(t, tt.page))
			if len(mapping) != 0 {
				t.Errorf("got %v, want empty map", mapping)
			}
		})
	}
}
