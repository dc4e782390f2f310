package router

import (
	"regexp"
	"strings"

	"toolroute/internal/domain"
)

var (
	domainPattern = regexp.MustCompile(`(?i)\b((?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+(?:com|org|net|io|co|us|fm|tv|live|events?|info))\b`)
	// "check the Ticketmaster website", "visit the Red Rocks site"
	sitePhrase = regexp.MustCompile(`(?i)\b(?:check|visit|open|browse)\s+(?:the\s+)?([a-z0-9][\w.&'-]*(?:\s+[a-z0-9][\w.&'-]*){0,2}?)(?:'s)?\s+(?:website|web\s+site|site|page)\b`)
	wordPattern = regexp.MustCompile(`[a-z0-9]+`)
)

// siteMention returns the lowercased domain or site name a step names, or "".
func siteMention(text string) string {
	if m := domainPattern.FindStringSubmatch(text); m != nil {
		return strings.ToLower(m[1])
	}
	if m := sitePhrase.FindStringSubmatch(text); m != nil {
		if name := strings.ToLower(m[1]); !genericSiteWords[name] {
			return name
		}
	}
	return ""
}

var genericSiteWords = map[string]bool{
	"the": true, "this": true, "that": true, "their": true, "its": true,
	"official": true, "a": true, "web": true, "venue": true, "event": true,
}

// primaryTool picks the tool of d whose name and description share the most
// words with the step. A tool named by the step's hint wins outright; ties
// keep declaration order.
func primaryTool(d domain.CapabilityDescriptor, step domain.WorkflowStep) string {
	if len(d.Tools) == 0 {
		return ""
	}
	for _, t := range d.Tools {
		if step.ToolHint != "" && strings.EqualFold(t.Name, step.ToolHint) {
			return t.Name
		}
	}

	words := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(strings.ToLower(step.Text), -1) {
		if len(w) >= 3 {
			words[w] = true
		}
	}

	best, bestScore := d.Tools[0].Name, 0
	for _, t := range d.Tools {
		score := 0
		seen := make(map[string]bool)
		for _, w := range wordPattern.FindAllString(strings.ToLower(t.Name+" "+t.Description), -1) {
			if words[w] && !seen[w] {
				seen[w] = true
				score++
			}
		}
		if score > bestScore {
			best, bestScore = t.Name, score
		}
	}
	return best
}
