package entity

import "strings"

// locationSynonyms expands a location phrase into alternative spellings a
// listing page may use. Keys are lowercase.
var locationSynonyms = map[string][]string{
	"ca":            {"California", "CA"},
	"california":    {"CA", "Los Angeles", "San Diego", "San Francisco", "Sacramento"},
	"los angeles":   {"LA", "Los Angeles, CA", "Hollywood"},
	"la":            {"Los Angeles", "Los Angeles, CA"},
	"san diego":     {"San Diego, CA", "SD", "Chula Vista"},
	"san francisco": {"SF", "San Francisco, CA", "Bay Area"},
	"sf":            {"San Francisco", "San Francisco, CA"},
	"new york":      {"NY", "NYC", "New York City", "Brooklyn"},
	"nyc":           {"New York", "New York City", "NY"},
	"denver":        {"Denver, CO", "Morrison", "Red Rocks"},
}

// ExpandLocation returns location followed by its known synonyms, without
// duplicates.
func ExpandLocation(location string) []string {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil
	}
	out := []string{location}
	seen := map[string]bool{strings.ToLower(location): true}
	for _, syn := range locationSynonyms[strings.ToLower(location)] {
		key := strings.ToLower(syn)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, syn)
	}
	return out
}
