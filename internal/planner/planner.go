// Package planner decomposes a normalized query into an ordered workflow of
// tool invocations.
package planner

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"toolroute/internal/domain"
	"toolroute/internal/intent"
)

var (
	sentenceBoundary = regexp.MustCompile(`[.!?;]\s+[A-Z]`)

	// "Once you have the venue, use Google Maps ..." / "After finding the hotel, ..."
	handoffPattern = regexp.MustCompile(`(?i)^(?:once\s+you\s+(?:have|find|get|know)|after\s+(?:finding|getting|having))\s+([^,]+?),\s*(?:then\s+)?(.+)$`)
	// "Finally, use ..." / "Then, use ..."
	connectivePattern = regexp.MustCompile(`(?i)^(?:finally|then|after\s+that|and\s+then),?\s+(.+)$`)
	usePattern        = regexp.MustCompile(`\b[Uu]se\s+([A-Z][\w.-]*(?:\s+[A-Z][\w.-]*)*)`)
	prerequisiteVerbs = regexp.MustCompile(`(?i)^(?:once\s+you\s+(?:have|find|get)|after\s+(?:finding|getting|having))\b`)
	trailingJoiners   = regexp.MustCompile(`(?i)(?:[\s,;]+(?:and|then|so))+[\s,;]*$`)
	leadingThen       = regexp.MustCompile(`(?i)^then\s+`)
)

// abbreviations end in a period without ending the sentence.
var abbreviations = map[string]bool{
	"st": true, "mt": true, "ft": true, "dr": true, "mr": true, "mrs": true,
	"ms": true, "jr": true, "sr": true, "ave": true, "blvd": true, "vs": true,
}

const minUsableWords = 2

// Planner builds WorkflowPlans. It holds no per-request state and is safe for
// concurrent use.
type Planner struct {
	classifier *intent.Classifier
	logger     *slog.Logger
}

// New creates a Planner that sub-classifies each step with classifier.
func New(classifier *intent.Classifier, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{classifier: classifier, logger: logger}
}

// Plan splits query into steps. knownTools are tool or capability names whose
// mention marks a sentence as its own step. The returned plan always has at
// least one step.
func (p *Planner) Plan(query string, in domain.RoutingIntent, knownTools []string) domain.WorkflowPlan {
	plan := domain.WorkflowPlan{
		ID:    uuid.NewString(),
		Query: query,
	}

	if !in.RequiresMultiStep {
		plan.Steps = []domain.WorkflowStep{p.singleStep(query, in, knownTools)}
		return plan
	}

	parts := expandTransitions(p.structuralParts(query, knownTools))
	if len(parts) < 2 && p.classifier.HasTransition(query) {
		parts = transitionParts(query)
	}
	if len(parts) < 2 {
		p.logger.Debug("multi-step split produced no usable parts, planning single step",
			"query", query, "parts", len(parts))
		plan.Steps = []domain.WorkflowStep{p.singleStep(query, in, knownTools)}
		return plan
	}

	plan.MultiStep = true
	plan.Steps = make([]domain.WorkflowStep, 0, len(parts))
	for i, text := range parts {
		plan.Steps = append(plan.Steps, domain.WorkflowStep{
			Index:            i,
			Text:             text,
			RequiredCategory: p.stepCategory(i, text, in),
			ToolHint:         toolHint(text, knownTools),
		})
	}

	p.logger.Debug("workflow planned", "plan", plan.ID, "steps", len(plan.Steps))
	return plan
}

func (p *Planner) singleStep(query string, in domain.RoutingIntent, knownTools []string) domain.WorkflowStep {
	cat := in.PreferredCategory
	if cat == "" {
		cat = domain.CategoryUnclassified
	}
	return domain.WorkflowStep{
		Index:            0,
		Text:             query,
		RequiredCategory: cat,
		ToolHint:         toolHint(query, knownTools),
	}
}

// stepCategory re-classifies one part. The first step of a compound query is
// forced to live extraction when it reads like an event lookup.
func (p *Planner) stepCategory(index int, text string, in domain.RoutingIntent) domain.Category {
	if index == 0 && p.classifier.IsLivePhrasing(text) {
		return domain.CategoryLiveExtraction
	}
	cat := p.classifier.Classify(text).PreferredCategory
	if cat == "" {
		cat = in.PreferredCategory
	}
	if cat == "" {
		cat = domain.CategoryUnclassified
	}
	return cat
}

// structuralParts splits on sentence boundaries and explicit hand-offs.
// Sentences with no category signal and no tool mention are folded into the
// preceding part as context.
func (p *Planner) structuralParts(query string, knownTools []string) []string {
	var parts []string
	for _, s := range splitSentences(query) {
		if m := handoffPattern.FindStringSubmatch(s); m != nil {
			if len(parts) == 0 {
				parts = append(parts, "Find "+strings.TrimSpace(m[1]))
			}
			parts = append(parts, strings.TrimSpace(m[2]))
			continue
		}
		if m := connectivePattern.FindStringSubmatch(s); m != nil {
			parts = append(parts, strings.TrimSpace(m[1]))
			continue
		}
		if len(parts) > 0 && toolHint(s, knownTools) == "" && p.classifier.Classify(s).PreferredCategory == "" {
			parts[len(parts)-1] += " " + s
			continue
		}
		parts = append(parts, s)
	}
	return usable(parts)
}

// splitSentences cuts at terminal punctuation followed by a capital letter.
// A period after an abbreviation or a lone capital letter is not a cut.
func splitSentences(q string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(q, -1) {
		if q[loc[0]] == '.' && abbreviated(q[start:loc[0]]) {
			continue
		}
		out = append(out, strings.TrimSpace(q[start:loc[0]+1]))
		start = loc[1] - 1
	}
	out = append(out, strings.TrimSpace(q[start:]))
	return out
}

// abbreviated reports whether s ends in a word that takes a period without
// closing the sentence: "St", "Dr" or a single capital as in "U.S".
func abbreviated(s string) bool {
	i := len(s)
	for i > 0 && isLetter(s[i-1]) {
		i--
	}
	word := s[i:]
	if len(word) == 1 {
		return word[0] >= 'A' && word[0] <= 'Z'
	}
	return abbreviations[strings.ToLower(word)]
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// expandTransitions splits each structural part that still holds a
// transition phrase.
func expandTransitions(parts []string) []string {
	var out []string
	for _, part := range parts {
		if !intent.TransitionPattern.MatchString(part) {
			out = append(out, part)
			continue
		}
		if split := transitionParts(part); len(split) >= 2 {
			out = append(out, split...)
			continue
		}
		out = append(out, part)
	}
	return out
}

// transitionParts splits the raw query on transition phrases. Text between a
// prerequisite phrase ("once you have ...") and the next comma names the
// hand-off object and is dropped.
func transitionParts(q string) []string {
	locs := intent.TransitionPattern.FindAllStringIndex(q, -1)
	if len(locs) == 0 {
		return nil
	}
	var parts []string
	prev := 0
	prereq := false
	for _, loc := range locs {
		parts = append(parts, segment(q[prev:loc[0]], prereq))
		phrase := q[loc[0]:loc[1]]
		prereq = prerequisiteVerbs.MatchString(phrase)
		prev = loc[1]
		// "then find ..." keeps its verb.
		if m := leadingThen.FindStringIndex(phrase); m != nil {
			prev = loc[0] + m[1]
		}
	}
	parts = append(parts, segment(q[prev:], prereq))
	return usable(parts)
}

func segment(s string, afterPrereq bool) string {
	if afterPrereq {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	s = trailingJoiners.ReplaceAllString(s, "")
	return strings.Trim(strings.TrimSpace(s), ",;")
}

func usable(parts []string) []string {
	out := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if len(strings.Fields(part)) < minUsableWords {
			continue
		}
		out = append(out, part)
	}
	return out
}

// toolHint returns the tool a step names: a registered tool mentioned by
// name, or the capitalized object of "use ...".
func toolHint(text string, knownTools []string) string {
	lower := strings.ToLower(text)
	best := ""
	for _, name := range knownTools {
		n := strings.ToLower(strings.TrimSpace(name))
		if len(n) < 3 || len(n) <= len(best) {
			continue
		}
		if containsWord(lower, n) {
			best = n
		}
	}
	if best != "" {
		return best
	}
	if m := usePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimRight(m[1], ".")
	}
	return ""
}

func containsWord(haystack, needle string) bool {
	for from := 0; ; {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			return false
		}
		i += from
		end := i + len(needle)
		if (i == 0 || !isWordByte(haystack[i-1])) && (end == len(haystack) || !isWordByte(haystack[end])) {
			return true
		}
		from = i + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
