// Package rail defines core types shared across subsystems.
package rail

// OriginStartsHere marks a candidate whose listing shows a "starts here"
// badge in place of an origin label. The train begins at the searched-from
// station, whose display name is only known to the assembler.
const OriginStartsHere = "\x00starts-here"

// ServiceCandidate is one service row extracted from a search-results page.
// Origin and Destination carry raw scraped labels; Destination is the train's
// own routing terminus, not necessarily where the passenger alights.
type ServiceCandidate struct {
	UID           string
	RunDate       string
	DepartureTime string
	Origin        string
	Destination   string
	Platform      string
	AtocCode      string
	TrainID       string
}

// TrainService is the assembled, caller-facing record for one service.
type TrainService struct {
	TrainUID      string `json:"trainUid"`
	RunDate       string `json:"runDate"`
	ServiceUID    string `json:"serviceUid"`
	AtocCode      string `json:"atocCode"`
	AtocName      string `json:"atocName"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
	Platform      string `json:"platform,omitempty"`
	TrainID       string `json:"trainId,omitempty"`
}

// SearchRequest is the payload accepted by the search endpoint. FromName and
// ToName, when supplied, override every scraped origin/destination label.
type SearchRequest struct {
	FromCrs  string `json:"fromCrs" validate:"required"`
	ToCrs    string `json:"toCrs" validate:"required"`
	Date     string `json:"date" validate:"required"`
	Time     string `json:"time" validate:"required"`
	FromName string `json:"fromName"`
	ToName   string `json:"toName"`
}

// SearchResponse is the payload returned by the search endpoint. Per-candidate
// failures are absorbed before this point; Success is false only for
// request-level validation or primary fetch failures.
type SearchResponse struct {
	Success bool           `json:"success"`
	Data    []TrainService `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}
