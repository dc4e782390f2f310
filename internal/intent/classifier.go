// Package intent scores normalized queries against fixed keyword categories
// and decides whether a fast single-category route is justified.
package intent

import (
	"log/slog"
	"regexp"
	"strings"

	"toolroute/internal/domain"
)

// Classifier turns a normalized query into a RoutingIntent.
type Classifier struct {
	tables   *Tables
	keywords map[domain.Category][]*regexp.Regexp // pre-compiled word-boundary matchers
	hard     []*regexp.Regexp
	logger   *slog.Logger
}

// NewClassifier compiles the keyword tables. A nil tables value uses
// DefaultTables.
func NewClassifier(tables *Tables, logger *slog.Logger) *Classifier {
	if tables == nil {
		tables = DefaultTables()
	}
	if logger == nil {
		logger = slog.Default()
	}
	kw := make(map[domain.Category][]*regexp.Regexp, len(tables.Keywords))
	for cat, words := range tables.Keywords {
		kw[cat] = compileWords(words)
	}
	return &Classifier{
		tables:   tables,
		keywords: kw,
		hard:     compileWords(tables.HardKeywords),
		logger:   logger,
	}
}

// compileWords builds one whole-word matcher per keyword, deduplicated.
func compileWords(words []string) []*regexp.Regexp {
	seen := make(map[string]bool, len(words))
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		pattern := `\b` + strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`) + `\b`
		out = append(out, regexp.MustCompile(pattern))
	}
	return out
}

// Tables returns the classifier's keyword tables.
func (c *Classifier) Tables() *Tables { return c.tables }

// Classify scores q against every category. It is pure apart from a debug log.
func (c *Classifier) Classify(q string) domain.RoutingIntent {
	lower := strings.ToLower(q)

	conf := make(map[domain.Category]float64, len(c.tables.Priority))
	for _, cat := range c.tables.Priority {
		conf[cat] = c.confidence(lower, cat)
	}

	intent := domain.RoutingIntent{
		SearchConfidence: conf[domain.CategoryNewsSearch],
		DesignConfidence: conf[domain.CategoryOrchestration],
		Confidence:       conf,
	}

	for _, cat := range c.tables.Priority {
		if conf[cat] > 0 {
			intent.PreferredCategory = cat
			break
		}
	}

	live := c.tables.LivePhrasing.MatchString(q)
	if live {
		intent.PreferredCategory = domain.CategoryLiveExtraction
	}

	for _, cat := range c.tables.Priority {
		if conf[cat] < c.tables.RequiredThreshold {
			continue
		}
		// A live-extraction tool answers event searches itself.
		if live && cat == domain.CategoryNewsSearch {
			continue
		}
		intent.RequiredCategories = append(intent.RequiredCategories, cat)
	}
	if len(intent.RequiredCategories) == 0 && intent.PreferredCategory != "" {
		intent.RequiredCategories = []domain.Category{intent.PreferredCategory}
	}

	transition := c.HasTransition(q)
	intent.ForceFastSearch = !transition &&
		intent.DesignConfidence < c.tables.DesignMax &&
		intent.SearchConfidence >= c.tables.FastSearchMin &&
		c.hasHardKeyword(lower)
	intent.RequiresMultiStep = !intent.ForceFastSearch &&
		(transition || len(intent.RequiredCategories) > 1)

	c.logger.Debug("query classified",
		"preferred", intent.PreferredCategory,
		"required", intent.RequiredCategories,
		"search", intent.SearchConfidence,
		"design", intent.DesignConfidence,
		"fast", intent.ForceFastSearch,
		"multi", intent.RequiresMultiStep,
	)
	return intent
}

// HasTransition reports whether q contains a multi-step hand-off phrase.
func (c *Classifier) HasTransition(q string) bool {
	return c.tables.Transition.MatchString(q)
}

// IsLivePhrasing reports whether q reads like a concert/ticket/event request.
func (c *Classifier) IsLivePhrasing(q string) bool {
	return c.tables.LivePhrasing.MatchString(q)
}

// confidence is min(distinct matched keywords / saturation, 1).
func (c *Classifier) confidence(lower string, cat domain.Category) float64 {
	matched := 0
	for _, re := range c.keywords[cat] {
		if re.MatchString(lower) {
			matched++
		}
	}
	sat := c.tables.KeywordSaturation
	if sat <= 0 {
		sat = 4
	}
	return min(float64(matched)/float64(sat), 1.0)
}

func (c *Classifier) hasHardKeyword(lower string) bool {
	for _, re := range c.hard {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}
