package scrape

import (
	"fmt"
	"testing"

	"github.com/railsearch/railsearch/internal/rail"
)

func serviceAnchor(uid, date, inner string) string {
	return fmt.Sprintf(
		`<a class="service " href="https://www.realtimetrains.co.uk/service/gb-nr:%s/%s/detailed">%s</a>`,
		uid, date, inner,
	)
}

const fullListing = `
<div class="time plan d gbtt">0840</div>
<div class="location o"><span>London Paddington</span></div>
<div class="location d"><span>Bristol Temple Meads</span></div>
<div class="platform c exp">10</div>
<div class="toc">GW</div>
<div class="tid">2O11</div>
`

func TestSearchResults_ExtractsFields(t *testing.T) {
	t.Parallel()

	page := "<html><body>" + serviceAnchor("L76080", "2026-02-04", fullListing) + "</body></html>"
	got, err := SearchResults([]byte(page))
	if err != nil {
		t.Fatalf("SearchResults() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	want := rail.ServiceCandidate{
		UID:           "L76080",
		RunDate:       "2026-02-04",
		DepartureTime: "08:40",
		Origin:        "London Paddington",
		Destination:   "Bristol Temple Meads",
		Platform:      "10",
		AtocCode:      "GW",
		TrainID:       "2O11",
	}
	if got[0] != want {
		t.Fatalf("candidate mismatch:\n got %+v\nwant %+v", got[0], want)
	}
}

func TestSearchResults_DeduplicatesByUID(t *testing.T) {
	t.Parallel()

	page := serviceAnchor("L12345", "2026-02-04", `<div class="time plan d gbtt">0800</div><div class="toc">GW</div>`) +
		serviceAnchor("L12345", "2026-02-04", `<div class="time plan d gbtt">0805</div><div class="toc">SW</div>`) +
		serviceAnchor("L99999", "2026-02-04", `<div class="time plan d gbtt">0830</div>`)

	got, err := SearchResults([]byte(page))
	if err != nil {
		t.Fatalf("SearchResults() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 unique candidates, got %d", len(got))
	}
	// First occurrence wins.
	if got[0].UID != "L12345" || got[0].DepartureTime != "08:00" || got[0].AtocCode != "GW" {
		t.Fatalf("first-seen values not preserved: %+v", got[0])
	}
}

func TestSearchResults_DropsRowsWithoutDepartureTime(t *testing.T) {
	t.Parallel()

	page := serviceAnchor("L11111", "2026-02-04", `<div class="location d"><span>Reading</span></div>`) +
		serviceAnchor("L22222", "2026-02-04", `<div class="time plan d gbtt">0915</div>`)

	got, err := SearchResults([]byte(page))
	if err != nil {
		t.Fatalf("SearchResults() error = %v", err)
	}
	if len(got) != 1 || got[0].UID != "L22222" {
		t.Fatalf("expected only the time-bearing candidate, got %+v", got)
	}
}

func TestSearchResults_SortsByDepartureTime(t *testing.T) {
	t.Parallel()

	page := serviceAnchor("C3", "2026-02-04", `<div class="time plan d gbtt">1230</div>`) +
		serviceAnchor("A1", "2026-02-04", `<div class="time plan d gbtt">0905</div>`) +
		serviceAnchor("B2", "2026-02-04", `<div class="time plan d gbtt">1100</div>`)

	got, err := SearchResults([]byte(page))
	if err != nil {
		t.Fatalf("SearchResults() error = %v", err)
	}
	var times []string
	for _, c := range got {
		times = append(times, c.DepartureTime)
	}
	want := []string{"09:05", "11:00", "12:30"}
	for i := range want {
		if times[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, times)
		}
	}
}

func TestSearchResults_StartsHereSentinel(t *testing.T) {
	t.Parallel()

	page := serviceAnchor("S1", "2026-02-04",
		`<div class="time plan d gbtt">0700</div><div class="location o"><span class="starts">Starts here</span></div>`)

	got, err := SearchResults([]byte(page))
	if err != nil {
		t.Fatalf("SearchResults() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Origin != rail.OriginStartsHere {
		t.Fatalf("expected starts-here sentinel, got %q", got[0].Origin)
	}
}

func TestSearchResults_OptionalFieldDefaults(t *testing.T) {
	t.Parallel()

	page := serviceAnchor("D1", "2026-02-04", `<div class="time plan d gbtt">0600</div>`)
	got, err := SearchResults([]byte(page))
	if err != nil {
		t.Fatalf("SearchResults() error = %v", err)
	}
	c := got[0]
	if c.Destination != "" || c.Platform != "" || c.TrainID != "" {
		t.Fatalf("expected empty optional fields, got %+v", c)
	}
	if c.AtocCode != "XX" {
		t.Fatalf("expected unknown carrier code XX, got %q", c.AtocCode)
	}
}

func TestSearchResults_NoMatchesIsNotAnError(t *testing.T) {
	t.Parallel()

	got, err := SearchResults([]byte("<html><body><p>No services</p></body></html>"))
	if err != nil {
		t.Fatalf("SearchResults() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
}

func TestSearchResults_PureFunction(t *testing.T) {
	t.Parallel()

	page := []byte(serviceAnchor("P1", "2026-02-04", fullListing) +
		serviceAnchor("P2", "2026-02-04", `<div class="time plan d gbtt">0910</div>`))

	first, err := SearchResults(page)
	if err != nil {
		t.Fatalf("SearchResults() error = %v", err)
	}
	second, err := SearchResults(page)
	if err != nil {
		t.Fatalf("SearchResults() error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("length differs between invocations: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("candidate %d differs between invocations", i)
		}
	}
}
