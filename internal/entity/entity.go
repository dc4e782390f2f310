// Package entity pulls the subject (artist, event, place) and location out of
// a normalized query.
package entity

import (
	"regexp"
	"strings"

	"toolroute/internal/domain"
)

// ruleKind names one subject-extraction rule. Rules are evaluated in the
// order of subjectRules; the first that yields a subject wins.
type ruleKind int

const (
	ruleQuoted ruleKind = iota
	ruleSearchPhrase
	rulePlaying
	ruleTokenWindow
)

func (k ruleKind) String() string {
	switch k {
	case ruleQuoted:
		return "quoted"
	case ruleSearchPhrase:
		return "search_phrase"
	case rulePlaying:
		return "playing"
	case ruleTokenWindow:
		return "token_window"
	default:
		return "unknown"
	}
}

type match struct {
	subject  string
	location string
}

type rule struct {
	kind  ruleKind
	apply func(q string) (match, bool)
}

var subjectRules = []rule{
	{ruleQuoted, matchQuoted},
	{ruleSearchPhrase, matchSearchPhrase},
	{rulePlaying, matchPlaying},
	{ruleTokenWindow, matchTokenWindow},
}

var (
	quotedPattern       = regexp.MustCompile(`"([^"]+)"`)
	searchPhrasePattern = regexp.MustCompile(`(?i)\b(?:look\s+for|search\s+for|find|get)\s+(.+?)\s+(?:(?:tickets|concerts?|shows?)\s+)?(?:in|near|at)\s+([^.?!,;]+)`)
	playingPattern      = regexp.MustCompile(`(?i)\bwhen\s+(.+?)\s+(?:is|are)\s+playing\b`)
	locationPattern     = regexp.MustCompile(`\b(?:in|near|at)\s+([A-Z][\w'.-]*(?:\s+[A-Z][\w'.-]*)*)`)

	starterTokens = map[string]bool{"for": true, "find": true, "get": true, "when": true}
	stopTokens    = map[string]bool{
		"concert": true, "concerts": true, "tickets": true, "ticket": true,
		"show": true, "shows": true, "event": true, "events": true,
		"in": true, "near": true, "at": true, "next": true,
		"is": true, "are": true, "playing": true,
	}
	fillerTokens = map[string]bool{
		"is": true, "are": true, "the": true, "a": true, "an": true, "me": true,
		"does": true, "do": true, "will": true, "some": true, "any": true, "next": true,
	}
	leadingFillers = []string{"me ", "tickets for ", "tickets to ", "the ", "a ", "an ", "some ", "any "}
)

// Extract returns the subject and location of q. It never fails; fields
// that cannot be found are left empty.
func Extract(q string) domain.QueryEntities {
	var ents domain.QueryEntities
	for _, r := range subjectRules {
		m, ok := r.apply(q)
		if !ok {
			continue
		}
		ents.Subject = m.subject
		ents.Location = m.location
		break
	}
	if ents.Location == "" {
		if m := locationPattern.FindStringSubmatch(q); m != nil {
			ents.Location = cleanPhrase(m[1])
		}
	}
	if ents.Location != "" {
		ents.LocationSynonyms = ExpandLocation(ents.Location)
	}
	return ents
}

func matchQuoted(q string) (match, bool) {
	m := quotedPattern.FindStringSubmatch(q)
	if m == nil {
		return match{}, false
	}
	s := cleanPhrase(m[1])
	return match{subject: s}, s != ""
}

func matchSearchPhrase(q string) (match, bool) {
	m := searchPhrasePattern.FindStringSubmatch(q)
	if m == nil {
		return match{}, false
	}
	s := stripArticles(cleanPhrase(m[1]))
	if s == "" {
		return match{}, false
	}
	return match{subject: s, location: cleanPhrase(m[2])}, true
}

func matchPlaying(q string) (match, bool) {
	m := playingPattern.FindStringSubmatch(q)
	if m == nil {
		return match{}, false
	}
	s := stripArticles(cleanPhrase(m[1]))
	return match{subject: s}, s != ""
}

// matchTokenWindow collects the words after a starter token up to the first
// stop word. Filler words directly after the starter are skipped.
func matchTokenWindow(q string) (match, bool) {
	words := strings.Fields(q)
	for i, w := range words {
		if !starterTokens[bareToken(w)] {
			continue
		}
		j := i + 1
		for j < len(words) && fillerTokens[bareToken(words[j])] {
			j++
		}
		var span []string
		for ; j < len(words); j++ {
			tok := bareToken(words[j])
			if stopTokens[tok] || starterTokens[tok] {
				break
			}
			span = append(span, words[j])
			if endsClause(words[j]) {
				break
			}
		}
		if s := cleanPhrase(strings.Join(span, " ")); s != "" {
			return match{subject: s}, true
		}
	}
	return match{}, false
}

func bareToken(w string) string {
	return strings.ToLower(strings.Trim(w, `.,;:!?"'()`))
}

func endsClause(w string) bool {
	return strings.ContainsAny(w[len(w)-1:], ".,;:!?")
}

// cleanPhrase trims whitespace and surrounding punctuation, and drops a
// trailing possessive.
func cleanPhrase(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `.,;:!?"()`)
	s = strings.TrimSuffix(s, "'s")
	return strings.TrimSpace(s)
}

// stripArticles removes leading filler such as "me tickets for the".
func stripArticles(s string) string {
	for {
		lower := strings.ToLower(s)
		trimmed := false
		for _, f := range leadingFillers {
			if strings.HasPrefix(lower, f) {
				s = strings.TrimSpace(s[len(f):])
				trimmed = true
				break
			}
		}
		if !trimmed {
			return s
		}
	}
}
