package domain

// ExtractedEvent is one dated occurrence found in a tool's structural dump.
type ExtractedEvent struct {
	Subject    string  `json:"subject"`
	Date       string  `json:"date,omitempty"`
	Time       string  `json:"time,omitempty"`
	Venue      string  `json:"venue,omitempty"`
	URL        string  `json:"url,omitempty"`
	Confidence float64 `json:"confidence"`
}
