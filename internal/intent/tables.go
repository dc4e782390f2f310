package intent

import (
	"regexp"

	"toolroute/internal/domain"
)

// Tables is the immutable keyword configuration shared by every
// classification call. Build it once with DefaultTables and pass it by
// reference; nothing mutates it afterwards.
type Tables struct {
	// Priority orders categories for preferred-category assignment.
	Priority []domain.Category
	// Keywords lists the trigger words per category.
	Keywords map[domain.Category][]string
	// HardKeywords gate the fast-search decision.
	HardKeywords []string
	// Transition matches phrases that hand one step's output to the next.
	Transition *regexp.Regexp
	// LivePhrasing matches concert/ticket/event requests.
	LivePhrasing *regexp.Regexp

	// KeywordSaturation is the distinct-keyword count that maps to confidence 1.0.
	KeywordSaturation int
	// RequiredThreshold is the confidence at which a category becomes required.
	RequiredThreshold float64
	// FastSearchMin is the minimum search confidence for the fast path.
	FastSearchMin float64
	// DesignMax is the orchestration confidence at or above which the fast path is refused.
	DesignMax float64
}

// TransitionPattern matches multi-step hand-off phrases.
var TransitionPattern = regexp.MustCompile(`(?i)\b(?:once\s+you\s+(?:have|find|get)|then\s+(?:use|find|get)|after\s+(?:finding|getting|having)|followed\s+by|and\s+then)\b`)

// LivePattern matches phrasing answered by a live-extraction tool.
var LivePattern = regexp.MustCompile(`(?i)\b(?:concerts?|tickets?|tour\s+dates?|gigs?|(?:shows?|events?)\s+(?:in|near|at|on|this|next)|(?:is|are)\s+playing)\b`)

// DefaultTables returns the built-in keyword tables.
func DefaultTables() *Tables {
	return &Tables{
		Priority: domain.AllCategories(),
		Keywords: map[domain.Category][]string{
			domain.CategoryLocation: {
				"restaurant", "restaurants", "near", "nearby", "nearest", "closest",
				"directions", "map", "maps", "google maps", "route", "distance",
				"address", "car rental", "hotel", "hotels", "parking", "navigate",
				"drive", "walking", "coffee shop",
			},
			domain.CategoryLiveExtraction: {
				"concert", "concerts", "ticket", "tickets", "tour", "show", "shows",
				"event", "events", "gig", "venue", "playing", "lineup", "website",
				"site", "page", "browse", "check", "live",
			},
			domain.CategoryNewsSearch: {
				"search", "find", "look up", "lookup", "news", "latest", "headline",
				"headlines", "article", "articles", "when", "where", "date", "dates",
				"schedule", "ticket", "tickets", "concert", "show", "event", "tour",
				"playing", "upcoming", "info", "information",
			},
			domain.CategoryOrchestration: {
				"design", "plan", "report", "summarize", "summary", "synthesize",
				"compare", "comparison", "analysis", "analyze", "itinerary",
				"workflow", "combine", "compile", "organize", "draft", "generate",
			},
		},
		HardKeywords: []string{
			"when", "where", "date", "ticket", "tickets", "show", "concert",
			"event", "tour", "gig", "venue", "playing",
		},
		Transition:        TransitionPattern,
		LivePhrasing:      LivePattern,
		KeywordSaturation: 4,
		RequiredThreshold: 0.5,
		FastSearchMin:     0.6,
		DesignMax:         0.5,
	}
}
