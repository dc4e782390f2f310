package domain

// QueryEntities are the subject and location pulled out of a normalized query.
// An empty Subject or Location means the field was not found; the extractor
// never produces a blank value for a match.
type QueryEntities struct {
	Subject          string   `json:"subject,omitempty"`
	Location         string   `json:"location,omitempty"`
	LocationSynonyms []string `json:"locationSynonyms,omitempty"`
}

// HasSubject reports whether a subject was extracted.
func (e QueryEntities) HasSubject() bool { return e.Subject != "" }

// HasLocation reports whether a location was extracted.
func (e QueryEntities) HasLocation() bool { return e.Location != "" }

// RoutingIntent is the keyword classification of a normalized query.
type RoutingIntent struct {
	RequiredCategories []Category           `json:"requiredCategories"`
	PreferredCategory  Category             `json:"preferredCategory,omitempty"`
	RequiresMultiStep  bool                 `json:"requiresMultiStep"`
	SearchConfidence   float64              `json:"searchConfidence"`
	DesignConfidence   float64              `json:"designConfidence"`
	ForceFastSearch    bool                 `json:"forceFastSearch"`
	Confidence         map[Category]float64 `json:"confidence,omitempty"`
}
