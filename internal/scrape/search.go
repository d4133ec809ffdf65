// Package scrape extracts timetable data from upstream HTML.
//
// The upstream markup carries no formal contract, so extraction is
// heuristic: every field has a documented fallback and a miss never fails
// more than the field it was for. Both parsers are pure functions of their
// input and safe for concurrent use.
package scrape

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/railsearch/railsearch/internal/rail"
)

// serviceHref matches the embedded service reference in a listing anchor,
// e.g. /service/gb-nr:L76080/2026-02-04/detailed.
var serviceHref = regexp.MustCompile(`/service/gb-nr:([A-Z0-9]+)/(\d{4}-\d{2}-\d{2})`)

var (
	fourDigitTime = regexp.MustCompile(`\d{4}`)
	platformLabel = regexp.MustCompile(`^\d+[A-Za-z]?$`)
)

// SearchResults extracts service candidates from a search-results page.
//
// One candidate per a.service anchor whose href embeds a service reference
// and whose content carries a scheduled departure time; anchors missing
// either are skipped. Candidates are deduplicated by UID keeping the first
// occurrence, then sorted by departure time. An empty result is a legitimate
// "no services" answer, not an error.
func SearchResults(body []byte) ([]rail.ServiceCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var candidates []rail.ServiceCandidate
	doc.Find("a.service").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		ref := serviceHref.FindStringSubmatch(href)
		if ref == nil {
			return
		}
		dep := clockTime(sel.Find("div.time.plan.d").First().Text())
		if dep == "" {
			// Not a time-bearing service row.
			return
		}
		candidates = append(candidates, rail.ServiceCandidate{
			UID:           ref[1],
			RunDate:       ref[2],
			DepartureTime: dep,
			Origin:        originLabel(sel),
			Destination:   strings.TrimSpace(sel.Find("div.location.d span").First().Text()),
			Platform:      platform(sel),
			AtocCode:      atocCode(sel),
			TrainID:       strings.TrimSpace(sel.Find("div.tid").First().Text()),
		})
	})

	candidates = dedupByUID(candidates)
	// Zero-padded HH:MM compares correctly as a string within one day.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DepartureTime < candidates[j].DepartureTime
	})
	return candidates, nil
}

// originLabel reads the explicit origin label, falling back to the
// starts-here sentinel when the listing marks the searched station as the
// train's first stop. Neither being present leaves the origin empty for the
// assembler to fill.
func originLabel(sel *goquery.Selection) string {
	origin := strings.TrimSpace(sel.Find("div.location.o span").First().Text())
	if origin != "" && !strings.EqualFold(origin, "starts here") {
		return origin
	}
	if strings.Contains(strings.ToLower(sel.Text()), "starts here") {
		return rail.OriginStartsHere
	}
	return ""
}

func platform(sel *goquery.Selection) string {
	p := strings.TrimSpace(sel.Find("div.platform").First().Text())
	if platformLabel.MatchString(p) {
		return p
	}
	return ""
}

func atocCode(sel *goquery.Selection) string {
	if code := strings.TrimSpace(sel.Find("div.toc").First().Text()); code != "" {
		return code
	}
	return "XX"
}

// clockTime pulls the first four-digit run out of s and formats it HH:MM.
func clockTime(s string) string {
	digits := fourDigitTime.FindString(s)
	if digits == "" {
		return ""
	}
	return digits[:2] + ":" + digits[2:]
}

func dedupByUID(candidates []rail.ServiceCandidate) []rail.ServiceCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if _, dup := seen[c.UID]; dup {
			continue
		}
		seen[c.UID] = struct{}{}
		out = append(out, c)
	}
	return out
}
