package answer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"toolroute/internal/domain"
	"toolroute/internal/extract"
)

// DefaultMaxResults caps the entries in a formatted answer.
const DefaultMaxResults = 10

var noiseLinks = map[string]bool{
	"skip to content": true, "skip to main content": true, "home": true,
	"menu": true, "sign in": true, "log in": true, "login": true,
	"privacy policy": true, "terms of use": true, "cookie settings": true,
	"next": true, "previous": true, "more": true,
}

var plainURL = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)

// FormatEvents renders events as numbered paragraphs, highest confidence
// first, at most limit entries. It returns "" when events is empty.
func FormatEvents(events []domain.ExtractedEvent, limit int) string {
	if len(events) == 0 {
		return ""
	}
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	ranked := append([]domain.ExtractedEvent(nil), events...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	var b strings.Builder
	subject := ranked[0].Subject
	if subject != "" && sameSubject(ranked) {
		fmt.Fprintf(&b, "Here are the upcoming dates for %s:\n", subject)
	} else {
		b.WriteString("Here are the upcoming events I found:\n")
	}
	for i, ev := range ranked {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d. %s\n", i+1, headline(ev))
		if ev.Venue != "" {
			fmt.Fprintf(&b, "   Venue: %s\n", ev.Venue)
		}
		if ev.URL != "" {
			fmt.Fprintf(&b, "   Tickets: %s\n", ev.URL)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func headline(ev domain.ExtractedEvent) string {
	subject := ev.Subject
	if subject == "" {
		subject = "Event"
	}
	when := ev.Date
	if when == "" {
		when = "date to be announced"
	}
	if ev.Time != "" {
		when += " at " + ev.Time
	}
	return subject + ", " + when
}

func sameSubject(events []domain.ExtractedEvent) bool {
	for _, ev := range events[1:] {
		if !strings.EqualFold(ev.Subject, events[0].Subject) {
			return false
		}
	}
	return true
}

// Result is one link or heading pulled out of a dump for the fallback listing.
type Result struct {
	Title string
	URL   string
}

// Listing collects link titles with their URLs, headings and bare URLs, in
// order, skipping navigation noise. At most limit results are returned.
func Listing(dump string, limit int) []Result {
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	nodes := extract.ParseDump(dump)
	seen := make(map[string]bool)
	var out []Result
	add := func(r Result) {
		key := strings.ToLower(r.Title) + "|" + r.URL
		if seen[key] || len(out) >= limit {
			return
		}
		seen[key] = true
		out = append(out, r)
	}

	for i, n := range nodes {
		title := strings.TrimSpace(n.Value)
		switch n.Role {
		case "link":
			if !usefulTitle(title) {
				continue
			}
			add(Result{Title: title, URL: linkURL(nodes, i)})
		case "heading":
			if usefulTitle(title) {
				add(Result{Title: title})
			}
		case "/url":
		default:
			if u := plainURL.FindString(n.Value); u != "" {
				add(Result{Title: u, URL: u})
			}
		}
	}
	return out
}

// linkURL is the /url child of the link at i, if it follows within two lines.
func linkURL(nodes []extract.Node, i int) string {
	for j := i + 1; j < len(nodes) && j <= i+2; j++ {
		if nodes[j].Role == "/url" {
			return nodes[j].Value
		}
		if nodes[j].Depth <= nodes[i].Depth {
			break
		}
	}
	return ""
}

func usefulTitle(t string) bool {
	if len([]rune(t)) < 3 || noiseLinks[strings.ToLower(t)] {
		return false
	}
	return letters.MatchString(t)
}

// FormatFallback lists links and headings from dump when no events were
// extracted. It never returns "".
func FormatFallback(dump, capability string, limit int) string {
	results := Listing(dump, limit)
	if len(results) == 0 {
		return Generic(capability)
	}
	var b strings.Builder
	b.WriteString("Here is what I found:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s", i+1, r.Title)
		if r.URL != "" && r.URL != r.Title {
			fmt.Fprintf(&b, "\n   %s", r.URL)
		}
	}
	return b.String()
}

// Generic is the reply when the tool returned nothing usable.
func Generic(capability string) string {
	if capability = strings.TrimSpace(capability); capability != "" {
		return fmt.Sprintf("The search with %s completed. See the source for full details.", capability)
	}
	return "The search completed. See the source for full details."
}
