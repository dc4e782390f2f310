package extract

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolroute/internal/domain"
)

func loadDump(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func TestExtract_ThreeAnchoredDates(t *testing.T) {
	dump := loadDump(t, "iration.txt")
	events := New(Options{}).Extract(dump, domain.QueryEntities{Subject: "Iration"})

	require.Len(t, events, 3)
	assert.Equal(t, "May 14, 2026", events[0].Date)
	assert.Equal(t, "June 2, 2026", events[1].Date)
	assert.Equal(t, "July 19, 2026", events[2].Date)

	assert.Equal(t, "Iration", events[0].Subject)
	assert.Equal(t, "7:00 PM", events[0].Time)
	assert.Equal(t, "Humphreys Concerts by the Bay, San Diego, CA", events[0].Venue)
	assert.Equal(t, "https://tickets.example.com/iration-sd", events[0].URL)
	assert.Equal(t, 0.9, events[0].Confidence)

	assert.Equal(t, "Red Rocks Amphitheatre", events[1].Venue)
	assert.Equal(t, "8:00 PM", events[1].Time)
	assert.Equal(t, "https://tickets.example.com/iration-rr", events[1].URL)

	assert.Equal(t, "The Greek Theatre", events[2].Venue)
	assert.Equal(t, "6:30 PM", events[2].Time)
}

func TestExtract_DuplicatedListingIsDeduplicated(t *testing.T) {
	dump := loadDump(t, "iration.txt")
	doubled := dump + "\n" + dump
	events := New(Options{}).Extract(doubled, domain.QueryEntities{Subject: "iration"})

	require.Len(t, events, 3)
	seen := make(map[string]bool)
	for _, ev := range events {
		assert.False(t, seen[ev.Date], "duplicate %s", ev.Date)
		seen[ev.Date] = true
	}
}

func TestExtract_NoCallToActionLowersConfidence(t *testing.T) {
	dump := strings.Join([]string{
		`- heading "Iration" [level=2]`,
		`- text: May`,
		`- text: "14"`,
		`- text: "2026"`,
		`- text: Red Rocks Amphitheatre`,
	}, "\n")
	events := New(Options{}).Extract(dump, domain.QueryEntities{Subject: "Iration"})

	require.Len(t, events, 1)
	assert.Equal(t, 0.7, events[0].Confidence)
	assert.Equal(t, "Red Rocks Amphitheatre", events[0].Venue)
}

func TestExtract_InlineDates(t *testing.T) {
	dump := strings.Join([]string{
		`- link "Stick Figure - Sat, Aug 8, 2026 9 pm" [ref=e4]:`,
		`  - /url: /event/stick-figure-aug-8`,
		`- link "Stick Figure - Sept. 12th, 2026" [ref=e5]:`,
		`  - /url: /event/stick-figure-sep-12`,
		`- text: Belly Up, Solana Beach, CA`,
	}, "\n")
	events := New(Options{}).Extract(dump, domain.QueryEntities{Subject: "Stick Figure"})

	require.Len(t, events, 2)
	assert.Equal(t, "August 8, 2026", events[0].Date)
	assert.Equal(t, "9:00 PM", events[0].Time)
	assert.Equal(t, "/event/stick-figure-aug-8", events[0].URL)
	assert.Equal(t, "September 12, 2026", events[1].Date)
	assert.Equal(t, "Belly Up, Solana Beach, CA", events[1].Venue)
}

func TestExtract_CompactAndTruncatedAnchors(t *testing.T) {
	compact := strings.Join([]string{
		`- heading "StickFigure live" [level=2]`,
		`- text: Oct`,
		`- text: "3"`,
		`- text: "2026"`,
	}, "\n")
	events := New(Options{}).Extract(compact, domain.QueryEntities{Subject: "Stick Figure"})
	require.Len(t, events, 1)
	assert.Equal(t, "October 3, 2026", events[0].Date)

	truncated := strings.Replace(compact, "StickFigure live", "Stick Fig. live", 1)
	events = New(Options{}).Extract(truncated, domain.QueryEntities{Subject: "Stick Figure"})
	require.Len(t, events, 1)
}

func TestExtract_MonthFallbackWithoutSubject(t *testing.T) {
	dump := strings.Join([]string{
		`- heading "Rebelution" [level=2]`,
		`- text: Some intro text`,
		`- text: Saturday, Aug 8, 2026 at 9 PM`,
	}, "\n")
	events := New(Options{}).Extract(dump, domain.QueryEntities{})

	require.Len(t, events, 1)
	assert.Equal(t, "Rebelution", events[0].Subject)
	assert.Equal(t, "August 8, 2026", events[0].Date)
	assert.Equal(t, "9:00 PM", events[0].Time)
}

func TestExtract_DatesOutsideWindowIgnored(t *testing.T) {
	lines := []string{`- heading "Iration" [level=1]`}
	for i := 0; i < 30; i++ {
		lines = append(lines, `- text: filler`)
	}
	lines = append(lines, `- text: May`, `- text: "14"`, `- text: "2026"`)
	dump := strings.Join(lines, "\n")

	assert.Empty(t, New(Options{}).Extract(dump, domain.QueryEntities{Subject: "Iration"}))

	wide := New(Options{WindowAfter: 40}).Extract(dump, domain.QueryEntities{Subject: "Iration"})
	require.Len(t, wide, 1)
}

func TestExtract_EmptyAndMalformed(t *testing.T) {
	ex := New(Options{})
	assert.Empty(t, ex.Extract("", domain.QueryEntities{Subject: "Iration"}))
	assert.Empty(t, ex.Extract("\n\n  - \n\"\"\n- : :", domain.QueryEntities{Subject: "Iration"}))
	assert.Empty(t, ex.Extract(`- text: Mayor of Iration "2026"`, domain.QueryEntities{Subject: "Iration"}))
}

func TestParseLine(t *testing.T) {
	cases := []struct {
		in   string
		role string
		val  string
	}{
		{`- heading "Iration" [level=1] [ref=e1]`, "heading", "Iration"},
		{`    - generic [ref=e5]: "14"`, "generic", "14"},
		{`- text: Thu 7:00 PM`, "text", "Thu 7:00 PM"},
		{`  - /url: https://example.com/a`, "/url", "https://example.com/a"},
		{`- list [ref=e2]:`, "list", ""},
		{`plain text line`, "", "plain text line"},
		{`- link "Say \"hi\"" [ref=e9]`, "link", `Say "hi"`},
	}
	for _, c := range cases {
		n := ParseLine(c.in)
		assert.Equal(t, c.role, n.Role, c.in)
		assert.Equal(t, c.val, n.Value, c.in)
	}
	assert.Equal(t, 4, ParseLine(`    - generic: x`).Depth)
}

func TestExpandMonth(t *testing.T) {
	for in, want := range map[string]string{
		"Jun": "June", "jun": "June", "Sept.": "September", "Sep": "September",
		"May": "May", "DEC": "December", "August": "August",
	} {
		got, ok := ExpandMonth(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"Mayor", "Marching", "Monday", "", "14"} {
		_, ok := ExpandMonth(in)
		assert.False(t, ok, in)
	}
}

func TestHasDate(t *testing.T) {
	assert.True(t, HasDate(loadDump(t, "iration.txt")))
	assert.True(t, HasDate("- text: Jun 2"))
	assert.True(t, HasDate("on 06/02/2026"))
	assert.True(t, HasDate("2026-06-02"))
	assert.False(t, HasDate("- heading \"Iration\"\n- text: Tour coming soon"))
	assert.True(t, HasDate("- text: September 12"))
	assert.True(t, HasDate("- text: Sept. 3"))
	for _, s := range []string{"Marketing 2 partners", "Octane 9 Radio", "Decide 3 times", "Junior 5", "Augment 4"} {
		assert.False(t, HasDate(s), s)
	}
}

func TestExtract_MonthLikeWordsAreNotAnchors(t *testing.T) {
	n := Node{Role: "paragraph", Value: "Marketing 2 partners"}
	assert.False(t, mentionsMonth(n))
	assert.True(t, mentionsMonth(Node{Role: "text", Value: "Jun 2"}))
}
