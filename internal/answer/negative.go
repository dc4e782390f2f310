// Package answer turns extraction results into the user-facing reply: it
// detects empty results, formats events or fallback listings, and guards
// every reply against leaked markup.
package answer

import (
	"fmt"
	"regexp"
	"strings"

	"toolroute/internal/domain"
	"toolroute/internal/extract"
)

// NegativeKind says why a dump was judged to hold no results.
type NegativeKind int

const (
	NotNegative NegativeKind = iota
	ExplicitNoResults
	ListedWithoutDates
	EmptyResultsPage
)

func (k NegativeKind) String() string {
	switch k {
	case ExplicitNoResults:
		return "explicit"
	case ListedWithoutDates:
		return "no_dates"
	case EmptyResultsPage:
		return "empty_page"
	default:
		return "none"
	}
}

// DefaultMinContentNodes is the content-node count below which a page that
// shows search controls is treated as empty.
const DefaultMinContentNodes = 10

var (
	explicitNegative = regexp.MustCompile(`(?i)\bno\s+(?:[\w-]+\s+){0,3}?(?:results?|found|match(?:es|ing)?|available|events?|concerts?|shows?)\b|\b(?:didn'?t|couldn'?t|could\s+not|did\s+not)\s+find\b|\bnothing\s+(?:found|matched)\b`)
	searchControls   = regexp.MustCompile(`(?i)\b(?:sort\s+by|filters?|refine|relevance|date\s+range|price\s+range|clear\s+all)\b`)
	letters          = regexp.MustCompile(`\pL{3,}`)
)

var controlRoles = map[string]bool{
	"button": true, "combobox": true, "option": true, "checkbox": true,
	"radio": true, "textbox": true, "searchbox": true, "img": true,
	"separator": true, "slider": true, "switch": true, "menuitem": true,
	"tab": true, "/url": true,
}

// Detector judges whether a dump says there is nothing to report.
type Detector struct {
	MinContentNodes int
}

// DetectNegative runs the checks with default thresholds.
func DetectNegative(dump string, entities domain.QueryEntities) (string, bool) {
	msg, kind := Detector{}.Detect(dump, entities)
	return msg, kind != NotNegative
}

// Detect returns the user message and the kind of negative result, or
// NotNegative when extraction should proceed. Checks run in order: explicit
// phrasing, a listed subject with no dates, then an empty results page.
func (d Detector) Detect(dump string, entities domain.QueryEntities) (string, NegativeKind) {
	if strings.TrimSpace(dump) == "" {
		return "", NotNegative
	}
	if explicitNegative.MatchString(dump) {
		return fmt.Sprintf("I couldn't find any upcoming events%s. Nothing matched on the source page.", target(entities)), ExplicitNoResults
	}
	if entities.HasSubject() &&
		strings.Contains(strings.ToLower(dump), strings.ToLower(entities.Subject)) &&
		!extract.HasDate(dump) {
		return fmt.Sprintf("%s is listed, but no dates are currently available%s.", entities.Subject, in(entities)), ListedWithoutDates
	}
	minNodes := d.MinContentNodes
	if minNodes <= 0 {
		minNodes = DefaultMinContentNodes
	}
	if searchControls.MatchString(dump) && contentNodes(dump) < minNodes {
		return "The search completed, but the results page appears empty or is still loading. Please try again in a moment.", EmptyResultsPage
	}
	return "", NotNegative
}

// contentNodes counts nodes with readable text that are not form controls.
func contentNodes(dump string) int {
	n := 0
	for _, node := range extract.ParseDump(dump) {
		if controlRoles[node.Role] || searchControls.MatchString(node.Value) {
			continue
		}
		if letters.MatchString(node.Value) {
			n++
		}
	}
	return n
}

func target(e domain.QueryEntities) string {
	var b strings.Builder
	if e.HasSubject() {
		b.WriteString(" for ")
		b.WriteString(e.Subject)
	}
	b.WriteString(in(e))
	return b.String()
}

func in(e domain.QueryEntities) string {
	if e.HasLocation() {
		return " in " + e.Location
	}
	return ""
}
