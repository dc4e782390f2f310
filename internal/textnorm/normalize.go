// Package textnorm canonicalizes user requests before classification.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	followUpPattern = regexp.MustCompile(`(?i)follow-up\s+question:`)
	contextPattern  = regexp.MustCompile(`(?i)previous\s+context:`)

	contractionPattern = regexp.MustCompile(`(?i)\b(when|where|what|who|how)'s\b`)

	quoteReplacer = strings.NewReplacer(
		"‘", "'", "’", "'", "ʼ", "'",
		"“", `"`, "”", `"`,
	)
)

// Normalize isolates the actual question from conversational wrapping and
// expands contracted interrogatives ("when's" -> "when is"). It is idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	s = quoteReplacer.Replace(s)
	s = isolateQuestion(s)
	s = contractionPattern.ReplaceAllString(s, "$1 is")
	return strings.Join(strings.Fields(s), " ")
}

// isolateQuestion keeps only the text after the last follow-up marker and
// drops any trailing previous-context block.
func isolateQuestion(s string) string {
	if all := followUpPattern.FindAllStringIndex(s, -1); len(all) > 0 {
		s = s[all[len(all)-1][1]:]
	}
	if loc := contextPattern.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return s
}
