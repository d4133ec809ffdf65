// Package operators maps ATOC carrier codes to operator display names.
package operators

// atocNames covers the GB operating companies the upstream source labels
// services with. Loaded once, never mutated.
var atocNames = map[string]string{
	"GW": "Great Western Railway",
	"SW": "South Western Railway",
	"SE": "Southeastern",
	"TL": "Thameslink",
	"VT": "Avanti West Coast",
	"XC": "CrossCountry",
	"NT": "Northern",
	"EM": "East Midlands Railway",
	"GR": "LNER",
	"SR": "ScotRail",
	"TP": "TransPennine Express",
	"LE": "Greater Anglia",
	"CC": "c2c",
	"CH": "Chiltern Railways",
	"LM": "West Midlands Trains",
	"LO": "London Overground",
	"XR": "Elizabeth line",
	"ME": "Merseyrail",
	"SN": "Southern",
	"GX": "Gatwick Express",
	"AW": "Transport for Wales",
	"HT": "Hull Trains",
	"GC": "Grand Central",
	"HX": "Heathrow Express",
	"IL": "Island Line",
	"LT": "London Underground",
}

// Name resolves an ATOC code to its display name. Unknown codes pass through
// unchanged so an unmapped operator still renders as something.
func Name(atocCode string) string {
	if name, ok := atocNames[atocCode]; ok {
		return name
	}
	return atocCode
}
