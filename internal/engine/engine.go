// Package engine wires normalization, classification, planning, routing and
// answer formatting into the operations exposed to the invocation layer.
// No operation returns an error: every failure degrades to a plan or a safe
// message.
package engine

import (
	"log/slog"
	"time"

	"toolroute/internal/answer"
	"toolroute/internal/bus"
	"toolroute/internal/catalog"
	"toolroute/internal/config"
	"toolroute/internal/domain"
	"toolroute/internal/entity"
	"toolroute/internal/extract"
	"toolroute/internal/intent"
	"toolroute/internal/metrics"
	"toolroute/internal/planner"
	"toolroute/internal/router"
	"toolroute/internal/textnorm"
)

// Engine is safe for concurrent use. The catalog is its only mutable state.
type Engine struct {
	catalog       *catalog.Catalog
	classifier    *intent.Classifier
	planner       *planner.Planner
	router        *router.Router
	extractEvents func(string, domain.QueryEntities) []domain.ExtractedEvent
	detector      answer.Detector
	maxResults    int
	events        *bus.EventBus
	logger        *slog.Logger
}

// Option customizes an Engine.
type Option func(*options)

type options struct {
	tables   *intent.Tables
	override func() string
	events   *bus.EventBus
}

// WithTables replaces the built-in keyword tables.
func WithTables(t *intent.Tables) Option {
	return func(o *options) { o.tables = t }
}

// WithOverride replaces the environment lookup for the default capability.
func WithOverride(fn func() string) Option {
	return func(o *options) { o.override = fn }
}

// WithEvents publishes routing events to eb.
func WithEvents(eb *bus.EventBus) Option {
	return func(o *options) { o.events = eb }
}

// New builds an Engine from cfg. A nil cfg uses config.Defaults().
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cat := catalog.New(logger.With("component", "catalog"))
	classifier := intent.NewClassifier(o.tables, logger.With("component", "intent"))
	return &Engine{
		catalog:    cat,
		classifier: classifier,
		planner:    planner.New(classifier, logger.With("component", "planner")),
		router: router.New(cat, router.Options{
			Override:       o.override,
			OverrideEnv:    cfg.Routing.DefaultCapabilityEnv,
			BrowserMarkers: cfg.Routing.BrowserMarkers,
			SearchMarkers:  cfg.Routing.SearchMarkers,
			FuzzyMinScore:  cfg.Routing.FuzzyMinScore,
			Logger:         logger.With("component", "router"),
		}),
		extractEvents: extract.New(extract.Options{
			WindowBefore: cfg.Extraction.WindowBefore,
			WindowAfter:  cfg.Extraction.WindowAfter,
		}).Extract,
		detector:   answer.Detector{MinContentNodes: cfg.Extraction.MinContentNodes},
		maxResults: cfg.Extraction.MaxResults,
		events:     o.events,
		logger:     logger,
	}
}

// Catalog returns the engine's capability catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// RegisterCapabilities replaces the active catalog. Invalid descriptors are
// dropped and reported; the rest are registered.
func (e *Engine) RegisterCapabilities(descs []domain.CapabilityDescriptor) error {
	err := e.catalog.Register(descs)
	size := e.catalog.Snapshot().Len()
	metrics.SetCatalogSize(size)
	e.events.Emit(bus.Event{Type: bus.EventCatalogReplaced, Source: "engine", Count: size})
	if err != nil {
		e.logger.Warn("some capabilities were rejected", "err", err)
	}
	return err
}

// PlanWorkflow normalizes and classifies query, splits it into steps and
// attaches the best capability to each step that has one.
func (e *Engine) PlanWorkflow(query string) domain.WorkflowPlan {
	q := textnorm.Normalize(query)
	in := e.classifier.Classify(q)

	plan := e.planner.Plan(q, in, e.catalog.Snapshot().ToolNames())
	metrics.RecordPlan(plan.MultiStep, len(plan.Steps), in.ForceFastSearch)

	for i := range plan.Steps {
		if refs := e.SelectCapabilitiesForStep(plan.Steps[i]); len(refs) > 0 {
			ref := refs[0]
			plan.Steps[i].AssignedCapability = &ref
		}
	}

	e.events.Emit(bus.Event{
		Type:   bus.EventPlanBuilt,
		Source: "engine",
		PlanID: plan.ID,
		Detail: plan.Query,
		Count:  len(plan.Steps),
	})
	e.logger.Info("workflow planned",
		"plan", plan.ID,
		"steps", len(plan.Steps),
		"multi", plan.MultiStep,
		"fast", in.ForceFastSearch,
	)
	return plan
}

// SelectCapabilitiesForStep returns the candidate capabilities for step,
// best first. An empty result means nothing registered fits.
func (e *Engine) SelectCapabilitiesForStep(step domain.WorkflowStep) []domain.CapabilityRef {
	refs := e.router.SelectForStep(step)
	if len(refs) == 0 {
		metrics.RecordRouteMiss(string(step.RequiredCategory))
		e.events.Emit(bus.Event{
			Type:   bus.EventRouteMiss,
			Source: "router",
			Detail: string(step.RequiredCategory),
			Count:  step.Index,
		})
	}
	return refs
}

// FormatAnswer turns a tool's raw output into the reply for query. The
// result always passes the guardrail, including after an internal panic.
func (e *Engine) FormatAnswer(query, rawOutput string, chosen domain.CapabilityDescriptor) (reply string) {
	start := time.Now()
	outcome, negKind := metrics.OutcomeListing, ""
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("format answer panicked", "panic", r, "capability", chosen.ServerID)
			reply = e.guard(answer.SafeMessage, chosen.ServerID)
			outcome = metrics.OutcomePanic
		}
		metrics.RecordAnswer(outcome, negKind, time.Since(start))
	}()

	ents := entity.Extract(textnorm.Normalize(query))

	if msg, kind := e.detector.Detect(rawOutput, ents); kind != answer.NotNegative {
		outcome, negKind = metrics.OutcomeNegative, kind.String()
		e.events.Emit(bus.Event{
			Type:     bus.EventAnswerNegative,
			Source:   "answer",
			ServerID: chosen.ServerID,
			Detail:   kind.String(),
		})
		e.logger.Debug("negative result", "kind", kind, "capability", chosen.ServerID)
		return e.guard(msg, chosen.ServerID)
	}

	if events := e.extractEvents(rawOutput, ents); len(events) > 0 {
		outcome = metrics.OutcomeEvents
		e.logger.Debug("events extracted", "count", len(events), "subject", ents.Subject)
		return e.guard(answer.FormatEvents(events, e.maxResults), chosen.ServerID)
	}

	name := chosen.DisplayName
	if name == "" {
		name = chosen.ServerID
	}
	return e.guard(answer.FormatFallback(rawOutput, name, e.maxResults), chosen.ServerID)
}

// guard runs the output guardrail and records when it fires.
func (e *Engine) guard(s, serverID string) string {
	out := answer.Guard(s)
	if out != s {
		metrics.RecordGuardrail()
		e.events.Emit(bus.Event{Type: bus.EventAnswerGuarded, Source: "answer", ServerID: serverID, Count: len(s)})
		e.logger.Warn("guardrail replaced answer", "length", len(s), "capability", serverID)
	}
	return out
}
