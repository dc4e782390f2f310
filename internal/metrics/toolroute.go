package metrics

import (
	"strconv"
	"time"
)

// Series exported by the routing engine.
const (
	namePlans      = "toolroute_plans_total"
	namePlanSteps  = "toolroute_plan_steps_total"
	nameFastSearch = "toolroute_fast_search_total"
	nameRouteMiss  = "toolroute_route_misses_total"
	nameNegative   = "toolroute_negative_results_total"
	nameAnswers    = "toolroute_answers_total"
	nameGuardrail  = "toolroute_guardrail_trips_total"
	nameCatalog    = "toolroute_catalog_capabilities"
	nameFormat     = "toolroute_format_seconds"
)

// Answer outcomes recorded by RecordAnswer.
const (
	OutcomeEvents   = "events"
	OutcomeNegative = "negative"
	OutcomeListing  = "listing"
	OutcomePanic    = "panic"
)

var (
	PlansSingle     = Collector.Counter(namePlans, "Workflow plans built", `mode="single"`)
	PlansMulti      = Collector.Counter(namePlans, "Workflow plans built", `mode="multi"`)
	PlanSteps       = Collector.Counter(namePlanSteps, "Steps across all workflow plans", "")
	FastSearchTotal = Collector.Counter(nameFastSearch, "Queries routed through the fast-search path", "")
	GuardrailTrips  = Collector.Counter(nameGuardrail, "Answers replaced by the guardrail", "")
	CatalogSize     = Collector.Gauge(nameCatalog, "Capabilities in the active catalog snapshot", "")

	FormatLatency = Collector.Histogram(nameFormat, "Answer formatting latency in seconds", "",
		[]float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5})
)

func label(key, value string) string {
	return key + "=" + strconv.Quote(value)
}

// RouteMisses returns the miss counter for steps that needed category.
func RouteMisses(category string) *Counter {
	if category == "" {
		category = "unclassified"
	}
	return Collector.Counter(nameRouteMiss, "Steps with no matching capability", label("category", category))
}

// NegativeResults returns the counter for tool outputs judged empty for the
// given reason.
func NegativeResults(kind string) *Counter {
	return Collector.Counter(nameNegative, "Tool outputs judged to hold no results", label("kind", kind))
}

// Answers returns the counter for replies that ended with outcome.
func Answers(outcome string) *Counter {
	return Collector.Counter(nameAnswers, "Replies formatted, by outcome", label("outcome", outcome))
}

// RecordPlan counts one workflow plan and its steps.
func RecordPlan(multi bool, steps int, fast bool) {
	if multi {
		PlansMulti.Inc()
	} else {
		PlansSingle.Inc()
	}
	PlanSteps.Add(int64(steps))
	if fast {
		FastSearchTotal.Inc()
	}
}

// RecordRouteMiss counts a step for which no capability matched.
func RecordRouteMiss(category string) { RouteMisses(category).Inc() }

// RecordAnswer counts a formatted reply and how long it took. kind is the
// negative-result reason and is only used for OutcomeNegative.
func RecordAnswer(outcome, kind string, took time.Duration) {
	Answers(outcome).Inc()
	if outcome == OutcomeNegative {
		NegativeResults(kind).Inc()
	}
	FormatLatency.Observe(took.Seconds())
}

// RecordGuardrail counts a reply replaced by the guardrail.
func RecordGuardrail() { GuardrailTrips.Inc() }

// SetCatalogSize publishes the active catalog size.
func SetCatalogSize(n int) { CatalogSize.Set(int64(n)) }
