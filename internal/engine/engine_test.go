package engine

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolroute/internal/answer"
	"toolroute/internal/bus"
	"toolroute/internal/domain"
	"toolroute/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func capabilities() []domain.CapabilityDescriptor {
	return []domain.CapabilityDescriptor{
		{ServerID: "brave-search", DisplayName: "Brave Search", Category: domain.CategoryNewsSearch,
			Tools: []domain.ToolInfo{{Name: "brave_web_search"}}},
		{ServerID: "playwright", DisplayName: "Playwright", Category: domain.CategoryLiveExtraction,
			Tools: []domain.ToolInfo{{Name: "browser_navigate"}, {Name: "browser_snapshot"}}},
		{ServerID: "google-maps", DisplayName: "Google Maps", Category: domain.CategoryLocation,
			Tools: []domain.ToolInfo{{Name: "maps_search_places", Description: "Search for places"}}},
	}
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithOverride(func() string { return "" })}, opts...)
	e := New(nil, testLogger(), opts...)
	require.NoError(t, e.RegisterCapabilities(capabilities()))
	return e
}

func TestPlanWorkflow_SingleLocationStep(t *testing.T) {
	e := newEngine(t)
	plan := e.PlanWorkflow("Find restaurants near Times Square")

	require.Len(t, plan.Steps, 1)
	step := plan.Steps[0]
	assert.Equal(t, domain.CategoryLocation, step.RequiredCategory)
	require.NotNil(t, step.AssignedCapability)
	assert.Equal(t, domain.CapabilityRef{ServerID: "google-maps", ToolName: "maps_search_places"}, *step.AssignedCapability)
}

func TestPlanWorkflow_HandoffTwoSteps(t *testing.T) {
	e := newEngine(t)
	plan := e.PlanWorkflow("Once you have the venue, use Google Maps to find the closest car rental")

	require.Len(t, plan.Steps, 2)
	assert.NotEqual(t, domain.CategoryLocation, plan.Steps[0].RequiredCategory)
	assert.Equal(t, domain.CategoryLocation, plan.Steps[1].RequiredCategory)
	require.NotNil(t, plan.Steps[1].AssignedCapability)
	assert.Equal(t, "google-maps", plan.Steps[1].AssignedCapability.ServerID)
	require.NotNil(t, plan.Steps[0].AssignedCapability)
	assert.Equal(t, "playwright", plan.Steps[0].AssignedCapability.ServerID)
}

func TestPlanWorkflow_AlwaysAtLeastOneStep(t *testing.T) {
	e := newEngine(t)
	for _, q := range []string{
		"",
		"   ",
		"?",
		"and then",
		"once you have",
		"Follow-up question:",
		"Find Iration tour dates and then use Google Maps to find parking near the venue",
		"When's Iration playing? Then use Brave Search. Finally, use Playwright.",
		strings.Repeat("then use ", 50),
	} {
		plan := e.PlanWorkflow(q)
		require.NotEmpty(t, plan.Steps, "query %q", q)
		for i, s := range plan.Steps {
			assert.Equal(t, i, s.Index, "query %q", q)
		}
	}
}

func TestPlanWorkflow_RecordsPlanMetrics(t *testing.T) {
	e := newEngine(t)
	single := metrics.PlansSingle.Value()
	steps := metrics.PlanSteps.Value()

	plan := e.PlanWorkflow("Find restaurants near Times Square")

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, single+1, metrics.PlansSingle.Value())
	assert.Equal(t, steps+1, metrics.PlanSteps.Value())
}

func TestPlanWorkflow_EmptyQueryDegrades(t *testing.T) {
	plan := newEngine(t).PlanWorkflow("")
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, domain.CategoryUnclassified, plan.Steps[0].RequiredCategory)
	assert.False(t, plan.MultiStep)
}

func TestPlanWorkflow_NormalizesFollowUp(t *testing.T) {
	e := newEngine(t)
	plan := e.PlanWorkflow("We talked about reggae.\nFollow-up question: when's Iration playing in San Diego?")

	assert.Equal(t, "when is Iration playing in San Diego?", plan.Query)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, domain.CategoryLiveExtraction, plan.Steps[0].RequiredCategory)
}

func TestPlanWorkflow_OperatorOverride(t *testing.T) {
	e := newEngine(t, WithOverride(func() string { return "brave-search" }))
	plan := e.PlanWorkflow("Find restaurants near Times Square")

	require.NotNil(t, plan.Steps[0].AssignedCapability)
	assert.Equal(t, "brave-search", plan.Steps[0].AssignedCapability.ServerID)
}

func TestSelectCapabilitiesForStep_SiteExcludesSearch(t *testing.T) {
	e := newEngine(t)
	refs := e.SelectCapabilitiesForStep(domain.WorkflowStep{
		Text:             "Check ticketmaster.com for Iration concerts",
		RequiredCategory: domain.CategoryLiveExtraction,
	})
	require.NotEmpty(t, refs)
	for _, r := range refs {
		assert.NotEqual(t, "brave-search", r.ServerID)
	}
}

func TestSelectCapabilitiesForStep_MissCounted(t *testing.T) {
	e := newEngine(t)
	before := metrics.RouteMisses("orchestration").Value()
	refs := e.SelectCapabilitiesForStep(domain.WorkflowStep{Text: "Draft a summary", RequiredCategory: domain.CategoryOrchestration})

	assert.Empty(t, refs)
	assert.Equal(t, before+1, metrics.RouteMisses("orchestration").Value())
}

func TestRegisterCapabilities_ReportsInvalid(t *testing.T) {
	e := newEngine(t)
	err := e.RegisterCapabilities(append(capabilities(), domain.CapabilityDescriptor{ServerID: "broken"}))

	assert.Error(t, err)
	assert.Equal(t, 3, e.Catalog().Snapshot().Len())
	assert.Equal(t, int64(3), metrics.CatalogSize.Value())
}

func TestFormatAnswer_Events(t *testing.T) {
	data, err := os.ReadFile("testdata/iration.txt")
	require.NoError(t, err)
	e := newEngine(t)

	out := e.FormatAnswer("When is Iration playing?", string(data), capabilities()[1])

	assert.Contains(t, out, "May 14, 2026")
	assert.Contains(t, out, "June 2, 2026")
	assert.Contains(t, out, "July 19, 2026")
	assert.Contains(t, out, "Red Rocks Amphitheatre")
	assert.False(t, answer.Leaks(out))
}

func TestFormatAnswer_NegativeBeatsStrayDates(t *testing.T) {
	dump := strings.Join([]string{
		`- heading "Search: Iration" [level=1]`,
		`- text: No events found`,
		`- heading "You might also like"`,
		`- text: May`,
		`- text: "14"`,
		`- text: "2026"`,
	}, "\n")
	e := newEngine(t)
	before := metrics.NegativeResults("explicit").Value()
	answered := metrics.Answers(metrics.OutcomeNegative).Value()

	out := e.FormatAnswer(`Find "Iration" tickets in San Diego`, dump, capabilities()[1])

	assert.Contains(t, out, "couldn't find")
	assert.Contains(t, out, "Iration")
	assert.NotContains(t, out, "May 14")
	assert.Equal(t, before+1, metrics.NegativeResults("explicit").Value())
	assert.Equal(t, answered+1, metrics.Answers(metrics.OutcomeNegative).Value())
}

func TestFormatAnswer_FallbackListing(t *testing.T) {
	dump := strings.Join([]string{
		`- link "Iration - Official Site" [ref=e1]:`,
		`  - /url: https://iration.com`,
	}, "\n")
	out := newEngine(t).FormatAnswer("latest news about reggae", dump, capabilities()[0])

	assert.Contains(t, out, "Iration - Official Site")
	assert.Contains(t, out, "https://iration.com")
}

func TestFormatAnswer_NeverEmpty(t *testing.T) {
	out := newEngine(t).FormatAnswer("anything", "", capabilities()[0])
	assert.Equal(t, "The search with Brave Search completed. See the source for full details.", out)
}

func TestFormatAnswer_GuardsLeakedMarkup(t *testing.T) {
	e := newEngine(t)
	before := metrics.GuardrailTrips.Value()

	out := e.FormatAnswer("", `- link "css-1q2w3e" [ref=e1]:`, capabilities()[0])

	assert.Equal(t, answer.SafeMessage, out)
	assert.Equal(t, before+1, metrics.GuardrailTrips.Value())
}

func TestFormatAnswer_RecoversFromPanic(t *testing.T) {
	e := newEngine(t)
	e.extractEvents = func(string, domain.QueryEntities) []domain.ExtractedEvent {
		panic("boom")
	}

	out := e.FormatAnswer("When is Iration playing?", "- text: Jun 2 2026 Iration", capabilities()[1])
	assert.Equal(t, answer.SafeMessage, out)
}

func TestEngine_PublishesEvents(t *testing.T) {
	eb := bus.NewEventBus(testLogger())
	e := newEngine(t, WithEvents(eb))

	plan := e.PlanWorkflow("Find restaurants near Times Square")
	e.SelectCapabilitiesForStep(domain.WorkflowStep{Text: "Draft a summary", RequiredCategory: domain.CategoryOrchestration})
	e.FormatAnswer("", "- text: No events found", capabilities()[0])
	e.FormatAnswer("", `- link "css-1q2w3e" [ref=e1]:`, capabilities()[0])

	replaced := eb.Replay(bus.EventCatalogReplaced, time.Time{})
	require.Len(t, replaced, 1)
	assert.Equal(t, 3, replaced[0].Count)

	built := eb.Replay(bus.EventPlanBuilt, time.Time{})
	require.Len(t, built, 1)
	assert.Equal(t, plan.ID, built[0].PlanID)
	assert.Equal(t, 1, built[0].Count)

	misses := eb.Replay(bus.EventRouteMiss, time.Time{})
	require.Len(t, misses, 1)
	assert.Equal(t, "orchestration", misses[0].Detail)

	negative := eb.Replay(bus.EventAnswerNegative, time.Time{})
	require.Len(t, negative, 1)
	assert.Equal(t, "explicit", negative[0].Detail)

	guarded := eb.Replay(bus.EventAnswerGuarded, time.Time{})
	require.Len(t, guarded, 1)
	assert.Equal(t, "brave-search", guarded[0].ServerID)
}

func TestEngine_ConcurrentUse(t *testing.T) {
	e := newEngine(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				plan := e.PlanWorkflow(fmt.Sprintf("Find restaurants near Times Square %d", j))
				if len(plan.Steps) == 0 {
					t.Errorf("empty plan")
					return
				}
				if i == 0 && j%10 == 0 {
					_ = e.RegisterCapabilities(capabilities())
				}
			}
		}(i)
	}
	wg.Wait()
}
