package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var monthNames = map[string]string{
	"jan": "January", "feb": "February", "mar": "March", "apr": "April",
	"may": "May", "jun": "June", "jul": "July", "aug": "August",
	"sep": "September", "sept": "September", "oct": "October",
	"nov": "November", "dec": "December",
}

var (
	monthToken  = regexp.MustCompile(`(?i)^(jan|feb|mar|apr|may|jun|jul|aug|sept?|oct|nov|dec)[a-z]*\.?$`)
	dayToken    = regexp.MustCompile(`^\d{1,2}(?:st|nd|rd|th)?$`)
	yearToken   = regexp.MustCompile(`^(?:19|20)\d{2}$`)
	inlineDate  = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sept?|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+((?:19|20)\d{2})\b`)
	monthMarker = regexp.MustCompile(`(?i)\b(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s*\d`)
	numericDate = regexp.MustCompile(`\b(?:\d{1,2}/\d{1,2}/\d{2,4}|\d{4}-\d{2}-\d{2})\b`)
)

// ExpandMonth returns the full month name for an abbreviation such as "Jun"
// or "Sept.", and false for anything else.
func ExpandMonth(s string) (string, bool) {
	m := monthToken.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	full, ok := monthNames[strings.ToLower(m[1])]
	if !ok {
		return "", false
	}
	// "Mayor" or "Marching" are not months.
	word := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), "."))
	if len(word) > 3 && !strings.HasPrefix(strings.ToLower(full), word) {
		return "", false
	}
	return full, true
}

// formatDate assembles "June 2, 2026" from its parts.
func formatDate(month, day, year string) (string, bool) {
	full, ok := ExpandMonth(month)
	if !ok {
		return "", false
	}
	day = strings.TrimRight(strings.ToLower(day), "stndrh")
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return "", false
	}
	return fmt.Sprintf("%s %d, %s", full, d, year), true
}

// dateAt reports a date starting at nodes[i]: either three consecutive nodes
// holding month, day and year, or one node with an inline date. span is the
// number of nodes consumed.
func dateAt(nodes []Node, i int) (date string, span int, ok bool) {
	if i+2 < len(nodes) &&
		monthToken.MatchString(nodes[i].Value) &&
		dayToken.MatchString(nodes[i+1].Value) &&
		yearToken.MatchString(nodes[i+2].Value) {
		if date, ok := formatDate(nodes[i].Value, nodes[i+1].Value, nodes[i+2].Value); ok {
			return date, 3, true
		}
	}
	if m := inlineDate.FindStringSubmatch(nodes[i].Value); m != nil {
		if date, ok := formatDate(m[1], m[2], m[3]); ok {
			return date, 1, true
		}
	}
	return "", 0, false
}

// HasDate reports whether dump contains anything date-shaped.
func HasDate(dump string) bool {
	if monthMarker.MatchString(dump) || numericDate.MatchString(dump) {
		return true
	}
	nodes := ParseDump(dump)
	for i := range nodes {
		if _, _, ok := dateAt(nodes, i); ok {
			return true
		}
	}
	return false
}

// mentionsMonth reports whether a line carries a month name on its own or
// followed by a day.
func mentionsMonth(n Node) bool {
	if _, ok := ExpandMonth(n.Value); ok {
		return true
	}
	return monthMarker.MatchString(n.Value)
}
