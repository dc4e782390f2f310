// Package bus is an in-process publish/subscribe hook for routing events.
// The invocation layer subscribes to observe plans, misses, and guarded
// answers without the engine knowing who listens.
package bus

import (
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// Event is a routing decision or outcome.
type Event struct {
	Type      string    // one of the Event* constants
	Source    string    // originating component
	PlanID    string    // set for plan and step events
	ServerID  string    // capability involved, if any
	Detail    string    // short human-readable summary
	Count     int       // step count, catalog size, or event count
	Timestamp time.Time // when the event was created
}

// Handler is a callback for events.
type Handler func(Event)

// EventBus provides topic-based publish/subscribe with a bounded replay buffer.
// Handlers run synchronously on the emitting goroutine.
type EventBus struct {
	mu         sync.RWMutex
	handlers   map[string][]namedHandler
	nextID     int
	history    []Event
	maxHistory int
	logger     *slog.Logger
}

type namedHandler struct {
	ID      string
	Handler Handler
}

// DefaultHistory is the replay buffer size used by NewEventBus.
const DefaultHistory = 1000

// NewEventBus creates an EventBus that keeps the last DefaultHistory events.
func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		handlers:   make(map[string][]namedHandler),
		maxHistory: DefaultHistory,
		logger:     logger,
	}
}

// On registers a handler for the given event type.
// Use "*" to listen to all events. Returns the handler ID for Off.
func (eb *EventBus) On(eventType string, handler Handler) string {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	id := eventType + "-" + strconv.Itoa(eb.nextID)
	eb.handlers[eventType] = append(eb.handlers[eventType], namedHandler{ID: id, Handler: handler})
	return id
}

// Off removes a handler by its ID.
func (eb *EventBus) Off(eventType, handlerID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	handlers := eb.handlers[eventType]
	for i, h := range handlers {
		if h.ID == handlerID {
			eb.handlers[eventType] = append(handlers[:i:i], handlers[i+1:]...)
			return
		}
	}
}

// Emit publishes an event to the handlers for its type, then to wildcard
// handlers. A panicking handler is logged and skipped.
func (eb *EventBus) Emit(event Event) {
	if eb == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eb.mu.Lock()
	if eb.maxHistory > 0 {
		if len(eb.history) >= eb.maxHistory {
			eb.history = eb.history[1:]
		}
		eb.history = append(eb.history, event)
	}
	handlers := make([]namedHandler, 0, len(eb.handlers[event.Type])+len(eb.handlers["*"]))
	handlers = append(handlers, eb.handlers[event.Type]...)
	handlers = append(handlers, eb.handlers["*"]...)
	eb.mu.Unlock()

	for _, h := range handlers {
		eb.dispatch(h, event)
	}
}

func (eb *EventBus) dispatch(h namedHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error("event handler panic", "event", event.Type, "handler", h.ID, "panic", r)
		}
	}()
	h.Handler(event)
}

// Replay returns historical events of the given type since the given time.
// Use "*" for all event types.
func (eb *EventBus) Replay(eventType string, since time.Time) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	var result []Event
	for _, e := range eb.history {
		if e.Timestamp.Before(since) {
			continue
		}
		if eventType == "*" || e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// HistoryLen returns the current number of events in the history buffer.
func (eb *EventBus) HistoryLen() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.history)
}

// Well-known event types.
const (
	EventCatalogReplaced = "catalog.replaced"
	EventPlanBuilt       = "plan.built"
	EventRouteMiss       = "route.miss"
	EventAnswerNegative  = "answer.negative"
	EventAnswerGuarded   = "answer.guarded"
)
