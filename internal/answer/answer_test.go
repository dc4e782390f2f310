package answer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolroute/internal/domain"
)

var iration = domain.QueryEntities{Subject: "Iration", Location: "San Diego"}

func TestDetect_ExplicitNegativeBeatsStrayDates(t *testing.T) {
	dump := strings.Join([]string{
		`- heading "Iration" [level=1]`,
		`- text: No events found`,
		`- text: Popular this week`,
		`- text: May`,
		`- text: "14"`,
		`- text: "2026"`,
	}, "\n")
	msg, kind := Detector{}.Detect(dump, iration)

	assert.Equal(t, ExplicitNoResults, kind)
	assert.Contains(t, msg, "Iration")
	assert.Contains(t, msg, "San Diego")
	assert.False(t, Leaks(msg))
}

func TestDetect_ExplicitPhrasings(t *testing.T) {
	for _, dump := range []string{
		"Sorry, we didn't find anything",
		"We couldn't find a match",
		"There are no upcoming concerts",
		"No results",
		"No matching shows",
		"nothing found for that search",
	} {
		_, ok := DetectNegative(dump, domain.QueryEntities{})
		assert.True(t, ok, dump)
	}
}

func TestDetect_ListedWithoutDates(t *testing.T) {
	dump := "- heading \"Iration\"\n- text: New tour announced soon\n- link \"Follow\""
	msg, kind := Detector{}.Detect(dump, domain.QueryEntities{Subject: "Iration"})

	assert.Equal(t, ListedWithoutDates, kind)
	assert.Equal(t, "Iration is listed, but no dates are currently available.", msg)
}

func TestDetect_ListedWithoutDates_MonthLikeWords(t *testing.T) {
	for _, body := range []string{
		"- paragraph: Marketing 2 partners",
		"- text: Octane 9 Radio presents",
		"- text: Decide 3 times",
	} {
		dump := "- heading \"Iration\"\n" + body
		msg, kind := Detector{}.Detect(dump, domain.QueryEntities{Subject: "Iration"})

		assert.Equal(t, ListedWithoutDates, kind, body)
		assert.Equal(t, "Iration is listed, but no dates are currently available.", msg, body)
	}
}

func TestDetect_EmptyResultsPage(t *testing.T) {
	dump := strings.Join([]string{
		`- combobox "Sort by"`,
		`- button "Filters"`,
		`- text: Loading`,
	}, "\n")
	msg, kind := Detector{}.Detect(dump, domain.QueryEntities{Subject: "Rebelution"})

	assert.Equal(t, EmptyResultsPage, kind)
	assert.Contains(t, msg, "empty")
}

func TestDetect_FullResultsPassThrough(t *testing.T) {
	var lines []string
	lines = append(lines, `- combobox "Sort by"`)
	for i := 0; i < 12; i++ {
		lines = append(lines, fmt.Sprintf(`- link "Iration live in city %d on Jun %d 2026"`, i, i+1))
	}
	_, kind := Detector{}.Detect(strings.Join(lines, "\n"), domain.QueryEntities{Subject: "Iration"})
	assert.Equal(t, NotNegative, kind)

	_, ok := DetectNegative("", iration)
	assert.False(t, ok)
}

func TestFormatEvents(t *testing.T) {
	events := []domain.ExtractedEvent{
		{Subject: "Iration", Date: "May 14, 2026", Confidence: 0.7},
		{Subject: "Iration", Date: "June 2, 2026", Time: "8:00 PM", Venue: "Red Rocks Amphitheatre",
			URL: "https://tickets.example.com/rr", Confidence: 0.9},
	}
	out := FormatEvents(events, 0)

	want := "Here are the upcoming dates for Iration:\n" +
		"\n1. Iration, June 2, 2026 at 8:00 PM\n" +
		"   Venue: Red Rocks Amphitheatre\n" +
		"   Tickets: https://tickets.example.com/rr\n" +
		"\n2. Iration, May 14, 2026"
	assert.Equal(t, want, out)
	assert.Equal(t, out, Guard(out))
}

func TestFormatEvents_CapsAndStableOrder(t *testing.T) {
	var events []domain.ExtractedEvent
	for i := 1; i <= 15; i++ {
		events = append(events, domain.ExtractedEvent{Subject: "Iration", Date: fmt.Sprintf("May %d, 2026", i), Confidence: 0.7})
	}
	out := FormatEvents(events, 0)

	assert.Contains(t, out, "10. Iration, May 10, 2026")
	assert.NotContains(t, out, "11.")
	assert.Less(t, strings.Index(out, "May 1, 2026"), strings.Index(out, "May 2, 2026"))
	assert.Empty(t, FormatEvents(nil, 0))
}

func TestFormatEvents_MixedSubjects(t *testing.T) {
	out := FormatEvents([]domain.ExtractedEvent{
		{Subject: "Iration", Date: "May 14, 2026"},
		{Subject: "Rebelution"},
	}, 5)
	assert.True(t, strings.HasPrefix(out, "Here are the upcoming events I found:"))
	assert.Contains(t, out, "2. Rebelution, date to be announced")
}

func TestFormatFallback_LinksAndHeadings(t *testing.T) {
	dump := strings.Join([]string{
		`- link "Skip to content" [ref=e1]:`,
		`  - /url: "#main"`,
		`- heading "Search results" [level=1]`,
		`- link "Iration | Official Site" [ref=e2]:`,
		`  - /url: https://iration.com`,
		`- link "Iration tour 2026 - Songkick" [ref=e3]:`,
		`  - /url: https://songkick.com/iration`,
		`- text: see also https://example.org/iration`,
		`- link "Iration | Official Site" [ref=e4]:`,
		`  - /url: https://iration.com`,
	}, "\n")
	out := FormatFallback(dump, "Brave Search", 0)

	want := "Here is what I found:\n" +
		"\n1. Search results" +
		"\n2. Iration | Official Site\n   https://iration.com" +
		"\n3. Iration tour 2026 - Songkick\n   https://songkick.com/iration" +
		"\n4. https://example.org/iration"
	assert.Equal(t, want, out)
	assert.False(t, Leaks(out))
}

func TestFormatFallback_NeverEmpty(t *testing.T) {
	assert.Equal(t, "The search with Brave Search completed. See the source for full details.", FormatFallback("", "Brave Search", 0))
	assert.Equal(t, "The search completed. See the source for full details.", FormatFallback("- button \"OK\"", "", 0))
}

func TestListing_Limit(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, fmt.Sprintf(`- heading "Result number %d"`, i))
	}
	require.Len(t, Listing(strings.Join(lines, "\n"), 0), 10)
	require.Len(t, Listing(strings.Join(lines, "\n"), 3), 3)
}

func TestLeaks(t *testing.T) {
	leaky := []string{
		"- heading \"Iration\"",
		"Result:\n  - text: foo",
		"```yaml\nfoo: bar\n```",
		"``` YAML",
		`see link "Tickets" for more`,
		"Iration [ref=e12]",
		"/url: https://example.com",
		"styled with css-1x2y3z",
		"icon [img] here",
		"<img src=x>",
	}
	for _, s := range leaky {
		assert.True(t, Leaks(s), s)
	}
	clean := []string{
		"Here are the upcoming dates for Iration:\n\n1. Iration, June 2, 2026 at 8:00 PM",
		"Tickets are $20 - $40 each.",
		"The search completed. See the source for full details.",
	}
	for _, s := range clean {
		assert.False(t, Leaks(s), s)
	}
}

func TestGuard_NeverPassesFenceOrDash(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"- item",
		"ok\n- item",
		"```yaml\nnodes:\n```",
		"prefix ```yaml",
		"fine answer",
		"\t-\tindented",
		"x\n-\u00a0y",
		"a\n-",
		"\u00a0- spaced",
	}
	for _, in := range inputs {
		out := Guard(in)
		assert.NotContains(t, out, "```yaml", in)
		for _, line := range strings.Split(out, "\n") {
			assert.False(t, strings.HasPrefix(strings.TrimLeft(line, " \t"), "- "), in)
		}
	}
	assert.Equal(t, SafeMessage, Guard(""))
	assert.Equal(t, SafeMessage, Guard("x\n-\u00a0y"))
	assert.Equal(t, SafeMessage, Guard("a\n-"))
	assert.Equal(t, "fine answer", Guard("fine answer"))
	assert.Equal(t, "It is -5 degrees outside.", Guard("It is -5 degrees outside."))
}

func TestNegativeKindString(t *testing.T) {
	assert.Equal(t, "explicit", ExplicitNoResults.String())
	assert.Equal(t, "no_dates", ListedWithoutDates.String())
	assert.Equal(t, "empty_page", EmptyResultsPage.String())
	assert.Equal(t, "none", NotNegative.String())
}
