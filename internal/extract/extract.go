// Package extract pulls structured events out of loosely hierarchical
// labeled-node text dumps by pairing fields that appear near the query's
// subject, without trusting the dump's nesting.
package extract

import (
	"regexp"
	"strings"
	"unicode"

	"toolroute/internal/domain"
)

const (
	DefaultWindowBefore = 10
	DefaultWindowAfter  = 25

	ctaConfidence   = 0.9
	plainConfidence = 0.7
	minTruncatedLen = 4
)

var (
	venueKeyword = regexp.MustCompile(`(?i)\b(?:theat(?:er|re)s?|arena|stadium|hall|cent(?:er|re)|park|pavilion|auditorium|ballroom|club|amphitheat(?:er|re)|field|coliseum|bowl|garden|forum|house)\b`)
	// "Belly Up, Solana Beach, CA" / "The Sound, Del Mar"
	placeShape = regexp.MustCompile(`^([A-Z0-9][\w'&.-]*(?:\s+(?:[A-Z0-9&][\w'&.-]*|of|the|by|on|at))*),\s+([A-Z][a-zA-Z.'-]+(?:\s+[A-Z][a-zA-Z.'-]+)*)(?:,\s+([A-Z]{2}))?$`)
	timeOfDay  = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*([ap])\.?\s?m\.?\b`)
	httpURL    = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)
	callToAct  = regexp.MustCompile(`(?i)\b(?:get|buy|see|find)\s+tickets?\b`)
)

// Options tunes the window sizes.
type Options struct {
	WindowBefore int
	WindowAfter  int
}

// Extractor finds events near subject anchors. It is stateless and safe for
// concurrent use.
type Extractor struct {
	before int
	after  int
}

// New creates an Extractor. Non-positive window sizes use the defaults.
func New(opts Options) *Extractor {
	e := &Extractor{before: opts.WindowBefore, after: opts.WindowAfter}
	if e.before <= 0 {
		e.before = DefaultWindowBefore
	}
	if e.after <= 0 {
		e.after = DefaultWindowAfter
	}
	return e
}

// Extract returns the distinct events found in dump, in order of appearance.
// Events sharing subject and date are merged.
func (e *Extractor) Extract(dump string, entities domain.QueryEntities) []domain.ExtractedEvent {
	if strings.TrimSpace(dump) == "" {
		return nil
	}
	nodes := ParseDump(dump)
	lines := strings.Split(strings.ReplaceAll(dump, "\r\n", "\n"), "\n")

	anchors := findAnchors(lines, entities.Subject)
	if len(anchors) == 0 {
		for i, n := range nodes {
			if mentionsMonth(n) {
				anchors = append(anchors, i)
			}
		}
	}

	var events []domain.ExtractedEvent
	index := make(map[string]int)
	for _, a := range anchors {
		lo := max(a-e.before, 0)
		hi := min(a+e.after+1, len(nodes))
		for _, ev := range scanWindow(nodes, lines, lo, hi, entities.Subject) {
			key := strings.ToLower(ev.Subject) + "|" + strings.ToLower(ev.Date)
			if i, ok := index[key]; ok {
				events[i] = merge(events[i], ev)
				continue
			}
			index[key] = len(events)
			events = append(events, ev)
		}
	}
	return events
}

// findAnchors returns the lines mentioning subject: the full subject first,
// then with whitespace removed, then a truncated prefix.
func findAnchors(lines []string, subject string) []int {
	subject = strings.ToLower(strings.TrimSpace(subject))
	if subject == "" {
		return nil
	}
	compact := strings.Join(strings.Fields(subject), "")
	attempts := []func(string) bool{
		func(l string) bool { return strings.Contains(l, subject) },
		func(l string) bool { return strings.Contains(stripSpace(l), compact) },
	}
	if t := truncate(subject); t != "" {
		attempts = append(attempts, func(l string) bool { return strings.Contains(l, t) })
	}

	for _, match := range attempts {
		var anchors []int
		for i, l := range lines {
			if match(strings.ToLower(l)) {
				anchors = append(anchors, i)
			}
		}
		if len(anchors) > 0 {
			return anchors
		}
	}
	return nil
}

// truncate keeps the first word of a multi-word subject, or the first half of
// a long single word.
func truncate(subject string) string {
	words := strings.Fields(subject)
	if len(words) > 1 && len(words[0]) >= minTruncatedLen {
		return words[0]
	}
	if r := []rune(subject); len(r) >= 2*minTruncatedLen {
		return string(r[:len(r)/2])
	}
	return ""
}

type dateHit struct {
	at   int
	span int
	date string
}

// scanWindow extracts every dated event in nodes[lo:hi]. Fields are paired
// with the nearest date above them.
func scanWindow(nodes []Node, lines []string, lo, hi int, subject string) []domain.ExtractedEvent {
	var hits []dateHit
	for i := lo; i < hi; i++ {
		date, span, ok := dateAt(nodes[:hi], i)
		if !ok {
			continue
		}
		hits = append(hits, dateHit{at: i, span: span, date: date})
		i += span - 1
	}
	if len(hits) == 0 {
		return nil
	}

	confidence := plainConfidence
	for i := lo; i < hi; i++ {
		if callToAct.MatchString(nodes[i].Value) {
			confidence = ctaConfidence
			break
		}
	}

	events := make([]domain.ExtractedEvent, 0, len(hits))
	for k, h := range hits {
		end := hi
		if k+1 < len(hits) {
			end = hits[k+1].at
		}
		seg := nodes[h.at+h.span : end]
		ev := domain.ExtractedEvent{
			Subject:    eventSubject(subject, nodes, lo, h.at),
			Date:       h.date,
			Time:       findTime(nodes[h.at:end]),
			Venue:      findVenue(seg),
			URL:        findURL(nodes[h.at:end], lines[h.at:end]),
			Confidence: confidence,
		}
		if len(hits) == 1 {
			if ev.Time == "" {
				ev.Time = findTime(nodes[lo:hi])
			}
			if ev.URL == "" {
				ev.URL = findURL(nodes[lo:hi], lines[lo:hi])
			}
		}
		events = append(events, ev)
	}
	return events
}

// eventSubject is the query subject or, when the query had none, the nearest
// heading above the date.
func eventSubject(subject string, nodes []Node, lo, at int) string {
	if s := strings.TrimSpace(subject); s != "" {
		return s
	}
	for i := at - 1; i >= lo; i-- {
		if nodes[i].Role == "heading" && nodes[i].Value != "" {
			return nodes[i].Value
		}
	}
	return ""
}

func findVenue(seg []Node) string {
	for _, n := range seg {
		v := strings.TrimSpace(n.Value)
		if isVenueText(v) && venueKeyword.MatchString(v) {
			return v
		}
	}
	for _, n := range seg {
		v := strings.TrimSpace(n.Value)
		if isVenueText(v) && placeShape.MatchString(v) {
			return v
		}
	}
	return ""
}

// isVenueText filters out links, buttons and anything not starting with a
// capital letter or digit.
func isVenueText(v string) bool {
	if v == "" || strings.Contains(v, "://") || strings.HasPrefix(v, "/") {
		return false
	}
	if callToAct.MatchString(v) || timeOfDay.MatchString(v) {
		return false
	}
	r := []rune(v)[0]
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}

func findTime(seg []Node) string {
	for _, n := range seg {
		m := timeOfDay.FindStringSubmatch(n.Value)
		if m == nil {
			continue
		}
		hour := strings.TrimLeft(m[1], "0")
		if hour == "" {
			hour = "12"
		}
		minutes := m[2]
		if minutes == "" {
			minutes = "00"
		}
		return hour + ":" + minutes + " " + strings.ToUpper(m[3]) + "M"
	}
	return ""
}

func findURL(seg []Node, raw []string) string {
	for _, n := range seg {
		if n.Role == "/url" && n.Value != "" {
			return n.Value
		}
	}
	for _, l := range raw {
		if u := httpURL.FindString(l); u != "" {
			return u
		}
	}
	return ""
}

// merge fills empty fields of a from b and keeps the higher confidence.
func merge(a, b domain.ExtractedEvent) domain.ExtractedEvent {
	if a.Time == "" {
		a.Time = b.Time
	}
	if a.Venue == "" {
		a.Venue = b.Venue
	}
	if a.URL == "" {
		a.URL = b.URL
	}
	a.Confidence = max(a.Confidence, b.Confidence)
	return a
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
