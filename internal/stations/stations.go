// Package stations provides a static CRS code directory for GB stations.
//
// This is the last-resort name source: scraped labels and caller-supplied
// canonical names take precedence everywhere it is consulted. It also backs
// the autocomplete endpoint.
package stations

import "strings"

// Station pairs a three-letter CRS code with its display name.
type Station struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Directory is an immutable station lookup, built once at startup.
type Directory struct {
	stations []Station
	byCode   map[string]string
}

// Default returns the directory of common GB stations.
func Default() *Directory {
	return newDirectory(gbStations)
}

func newDirectory(stations []Station) *Directory {
	byCode := make(map[string]string, len(stations))
	for _, s := range stations {
		byCode[s.Code] = s.Name
	}
	return &Directory{stations: stations, byCode: byCode}
}

// NameFor resolves a CRS code to a display name.
func (d *Directory) NameFor(crs string) (string, bool) {
	name, ok := d.byCode[strings.ToUpper(strings.TrimSpace(crs))]
	return name, ok
}

// Search returns stations whose name or code contains the query,
// case-insensitively. An empty query returns the full directory.
func (d *Directory) Search(query string) []Station {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		out := make([]Station, len(d.stations))
		copy(out, d.stations)
		return out
	}
	var out []Station
	for _, s := range d.stations {
		if strings.Contains(strings.ToLower(s.Name), q) ||
			strings.Contains(strings.ToLower(s.Code), q) {
			out = append(out, s)
		}
	}
	return out
}

var gbStations = []Station{
	{Code: "PAD", Name: "London Paddington"},
	{Code: "KGX", Name: "London Kings Cross"},
	{Code: "EUS", Name: "London Euston"},
	{Code: "VIC", Name: "London Victoria"},
	{Code: "WAT", Name: "London Waterloo"},
	{Code: "STP", Name: "London St Pancras"},
	{Code: "LBG", Name: "London Bridge"},
	{Code: "CHX", Name: "London Charing Cross"},
	{Code: "FST", Name: "London Fenchurch Street"},
	{Code: "MYB", Name: "London Marylebone"},
	{Code: "BHM", Name: "Birmingham New Street"},
	{Code: "MAN", Name: "Manchester Piccadilly"},
	{Code: "MCO", Name: "Manchester Oxford Road"},
	{Code: "LIV", Name: "Liverpool Lime Street"},
	{Code: "LDS", Name: "Leeds"},
	{Code: "SHF", Name: "Sheffield"},
	{Code: "BRI", Name: "Bristol Temple Meads"},
	{Code: "NCL", Name: "Newcastle"},
	{Code: "EDB", Name: "Edinburgh Waverley"},
	{Code: "GLC", Name: "Glasgow Central"},
	{Code: "GLQ", Name: "Glasgow Queen Street"},
	{Code: "CDF", Name: "Cardiff Central"},
	{Code: "RDG", Name: "Reading"},
	{Code: "OXF", Name: "Oxford"},
	{Code: "CBG", Name: "Cambridge"},
	{Code: "NRW", Name: "Norwich"},
	{Code: "BHI", Name: "Brighton"},
	{Code: "SOT", Name: "Southampton Central"},
	{Code: "PMH", Name: "Portsmouth Harbour"},
	{Code: "EXD", Name: "Exeter St Davids"},
	{Code: "PLY", Name: "Plymouth"},
	{Code: "PNZ", Name: "Penzance"},
	{Code: "YRK", Name: "York"},
	{Code: "NOT", Name: "Nottingham"},
	{Code: "LEI", Name: "Leicester"},
	{Code: "COV", Name: "Coventry"},
	{Code: "MKC", Name: "Milton Keynes Central"},
	{Code: "SWI", Name: "Swindon"},
	{Code: "BTH", Name: "Bath Spa"},
	{Code: "CHM", Name: "Cheltenham Spa"},
}
