// Package bus is the synchronous, in-process publish/subscribe dispatcher
// that connects event producers to agents.
//
// Publish drives every handler for the event's type to completion before it
// returns, in registration order, including any publishes those handlers
// make. Handler failures are logged and never reach the publisher.
package bus

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/davidahmann/complybus/internal/observability"
	"github.com/davidahmann/complybus/pkg/types"
)

// DefaultMaxDepth bounds nested publishes when no option overrides it.
const DefaultMaxDepth = 8

// Handler reacts to one event. A returned error is logged by the bus.
type Handler func(ctx context.Context, event types.Event) error

// Publisher is the narrow view producers depend on.
type Publisher interface {
	Publish(ctx context.Context, event types.Event)
}

type Option func(*Bus)

// WithMaxDepth sets how many nested publishes are allowed below a top-level
// publish. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(b *Bus) {
		if depth > 0 {
			b.maxDepth = depth
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(b *Bus) {
		b.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(b *Bus) {
		if tracer != nil {
			b.tracer = tracer
		}
	}
}

type subscription struct {
	name    string
	handler Handler
}

type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]subscription

	logger   zerolog.Logger
	metrics  *observability.Metrics
	tracer   trace.Tracer
	maxDepth int
}

func New(logger zerolog.Logger, opts ...Option) *Bus {
	b := &Bus{
		subscribers: make(map[string][]subscription),
		logger:      logger.With().Str("component", "event_bus").Logger(),
		tracer:      otel.Tracer("complybus/bus"),
		maxDepth:    DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for every future publish of exactly
// eventType. Registering the same handler twice makes it run twice.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	if handler == nil {
		panic("bus: nil handler for " + eventType)
	}

	name := handlerName(handler)

	b.mu.Lock()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{name: name, handler: handler})
	count := len(b.subscribers[eventType])
	b.mu.Unlock()

	b.logger.Info().
		Str("action", "subscribe").
		Str("event_type", eventType).
		Str("handler", name).
		Int("handler_count", count).
		Msg("handler subscribed")
}

// Publish dispatches event to the handlers registered for its type at the
// time of the call. Handlers added while dispatch is running only see later
// publishes.
func (b *Bus) Publish(ctx context.Context, event types.Event) {
	if ctx == nil {
		ctx = context.Background()
	}

	depth := depthFrom(ctx)
	if depth >= b.maxDepth {
		b.metrics.DispatchDroppedByDepth(event.Type())
		b.logger.Error().
			Str("action", "publish_dropped").
			Str("event_type", event.Type()).
			Str("event_id", event.ID()).
			Int("depth", depth).
			Int("max_depth", b.maxDepth).
			Msg("nested publish depth limit reached")
		return
	}

	b.mu.RLock()
	handlers := slices.Clone(b.subscribers[event.Type()])
	b.mu.RUnlock()

	ctx, span := b.tracer.Start(ctx, "bus.Publish",
		trace.WithAttributes(
			attribute.String("event.type", event.Type()),
			attribute.String("event.id", event.ID()),
			attribute.String("event.severity", string(event.Severity())),
			attribute.Int("bus.handler_count", len(handlers)),
			attribute.Int("bus.depth", depth),
		),
	)
	defer span.End()

	b.metrics.EventPublished(event.Type())
	b.logger.Info().
		Str("action", "publish").
		Str("event_type", event.Type()).
		Str("event_id", event.ID()).
		Int("handler_count", len(handlers)).
		Int("depth", depth).
		Msg("event published")

	child := withDepth(ctx, depth+1)
	failed := 0
	for _, sub := range handlers {
		if err := b.invoke(child, sub, event); err != nil {
			failed++
			span.RecordError(err, trace.WithAttributes(attribute.String("bus.handler", sub.name)))
			b.metrics.HandlerFailed(event.Type())
			b.logger.Error().
				Err(err).
				Str("action", "handler_error").
				Str("event_type", event.Type()).
				Str("event_id", event.ID()).
				Str("handler", sub.name).
				Msg("handler failed")
		}
	}

	if failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d handler(s) failed", failed))
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

func (b *Bus) invoke(ctx context.Context, sub subscription, event types.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return sub.handler(ctx, event)
}

// Subscribers returns a copy of the handlers registered for eventType.
func (b *Bus) Subscribers(eventType string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := b.subscribers[eventType]
	out := make([]Handler, 0, len(subs))
	for _, sub := range subs {
		out = append(out, sub.handler)
	}
	return out
}

// EventTypes lists every type with at least one subscriber, sorted.
func (b *Bus) EventTypes() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.subscribers))
	for eventType, subs := range b.subscribers {
		if len(subs) > 0 {
			out = append(out, eventType)
		}
	}
	sort.Strings(out)
	return out
}

func handlerName(h Handler) string {
	fn := runtime.FuncForPC(reflect.ValueOf(h).Pointer())
	if fn == nil {
		return "unknown"
	}
	return fn.Name()
}
