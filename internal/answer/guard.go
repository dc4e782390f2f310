package answer

import (
	"regexp"
	"strings"
)

// SafeMessage replaces any reply that would expose raw tool output.
const SafeMessage = "Sorry, I couldn't put together a clean answer from that result. Please try again."

var leakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^[\s\p{Zs}]*-(?:[\s\p{Zs}]|$)`),
	regexp.MustCompile("(?i)```\\s*yaml"),
	regexp.MustCompile(`(?i)\b(?:heading|link|button|generic|listitem|list|img|paragraph|cell|row|rowgroup|navigation|banner|main|contentinfo|region|article|combobox|option|textbox|checkbox|text)\s+"[^"]*"`),
	regexp.MustCompile(`(?i)\[(?:ref|level|cursor)=[^\]]*\]`),
	regexp.MustCompile(`(?i)(?:^|\s)/url:`),
	regexp.MustCompile(`(?i)\bcss-[\w-]+`),
	regexp.MustCompile(`(?i)\[img\]|<img\b|\bimg\s*:`),
}

// Leaks reports whether s contains fragments of a structural dump.
func Leaks(s string) bool {
	for _, re := range leakPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Guard returns s unchanged when it is safe to show, and SafeMessage when it
// is blank or leaks markup.
func Guard(s string) string {
	if strings.TrimSpace(s) == "" || Leaks(s) {
		return SafeMessage
	}
	return s
}
