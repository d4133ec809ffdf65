package scrape

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ArrivalAt finds the scheduled arrival time at destination on a service
// detail page.
//
// The page carries one row per calling point. The first row whose displayed
// station name matches destination is inspected with three patterns in
// priority order:
//
//  1. a scheduled-time block with a nested arrival field (.gbtt .arr)
//  2. a single element classed as both arrival and scheduled (.arr.gbtt)
//  3. a generic scheduled time in arrival position (.time.plan.a)
//
// The first pattern yielding a four-digit time wins, formatted HH:MM. A miss
// at any stage reports ok=false; the caller degrades rather than fails.
func ArrivalAt(body []byte, destination string) (arrival string, ok bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	var found string
	doc.Find("div.location.call").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		name := strings.TrimSpace(row.Find(".name").First().Text())
		if !stationNameMatches(name, destination) {
			return true
		}
		found = arrivalFromRow(row)
		return false
	})
	return found, found != ""
}

func arrivalFromRow(row *goquery.Selection) string {
	for _, pattern := range []string{".gbtt .arr", ".arr.gbtt", ".time.plan.a"} {
		if t := clockTime(row.Find(pattern).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// stationNameMatches compares a calling-point label against the target
// destination by bidirectional substring containment, so "Bristol Temple
// Meads" also matches a row labeled "Temple Meads".
func stationNameMatches(rowName, target string) bool {
	a := strings.ToLower(strings.TrimSpace(rowName))
	b := strings.ToLower(strings.TrimSpace(target))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
