package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lumen-dev/lumen/pkg/reactive"
)

// Default tracer name for reactive graph spans.
const defaultTracerName = "lumen"

// TracerConfig configures the OpenTelemetry hooks.
type TracerConfig struct {
	// TracerName is the name of the tracer (default: "lumen").
	TracerName string

	// MinDuration suppresses spans for runs shorter than this.
	// Propagation work is often sub-microsecond; tracing every run of a
	// hot graph drowns the trace. Zero records everything.
	MinDuration time.Duration

	// Context is the base context spans are parented to.
	// Default: context.Background().
	Context context.Context

	tracer trace.Tracer
}

// TracerOption configures the OpenTelemetry hooks.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) {
		c.TracerName = name
	}
}

// WithMinDuration sets the minimum run duration worth a span.
func WithMinDuration(d time.Duration) TracerOption {
	return func(c *TracerConfig) {
		c.MinDuration = d
	}
}

// WithContext sets the base context spans are parented to. Pass a
// context carrying a span to nest graph spans under a request trace.
func WithContext(ctx context.Context) TracerOption {
	return func(c *TracerConfig) {
		c.Context = ctx
	}
}

// Tracer implements reactive.Hooks by emitting OpenTelemetry spans for
// derivation runs, effect runs and flushes. Spans are recorded after the
// fact with explicit timestamps, since the hook fires once the run has
// completed.
//
// The tracer resolves from the global OpenTelemetry tracer provider;
// configure that in main() before building the system:
//
//	otel.SetTracerProvider(tp)
//	sys := reactive.NewSystem(reactive.WithHooks(metrics.NewTracer()))
type Tracer struct {
	config TracerConfig
}

// NewTracer creates OpenTelemetry hooks for a reactive system.
func NewTracer(opts ...TracerOption) *Tracer {
	config := TracerConfig{
		TracerName: defaultTracerName,
		Context:    context.Background(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)
	return &Tracer{config: config}
}

func (t *Tracer) span(name string, d time.Duration, attrs ...attribute.KeyValue) {
	if d < t.config.MinDuration {
		return
	}
	end := time.Now()
	_, span := t.config.tracer.Start(
		t.config.Context,
		name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(end.Add(-d)),
		trace.WithAttributes(attrs...),
	)
	span.End(trace.WithTimestamp(end))
}

// NodeCreated implements reactive.Hooks.
func (t *Tracer) NodeCreated(kind reactive.NodeKind, id uint64) {}

// NodeDestroyed implements reactive.Hooks.
func (t *Tracer) NodeDestroyed(kind reactive.NodeKind, id uint64) {}

// Recomputed implements reactive.Hooks.
func (t *Tracer) Recomputed(id uint64, d time.Duration) {
	t.span("lumen.recompute", d,
		attribute.String("lumen.node_id", fmt.Sprintf("%d", id)),
	)
}

// EffectRan implements reactive.Hooks.
func (t *Tracer) EffectRan(id uint64, d time.Duration) {
	t.span("lumen.effect", d,
		attribute.String("lumen.node_id", fmt.Sprintf("%d", id)),
	)
}

// Flushed implements reactive.Hooks.
func (t *Tracer) Flushed(processed int) {
	t.span("lumen.flush", 0,
		attribute.Int("lumen.flush_size", processed),
	)
}

// CycleDetected implements reactive.Hooks.
func (t *Tracer) CycleDetected(id uint64) {
	_, span := t.config.tracer.Start(t.config.Context, "lumen.cycle",
		trace.WithAttributes(attribute.String("lumen.node_id", fmt.Sprintf("%d", id))),
	)
	span.End()
}

// BudgetExceeded implements reactive.Hooks.
func (t *Tracer) BudgetExceeded(id uint64) {
	_, span := t.config.tracer.Start(t.config.Context, "lumen.budget_exceeded",
		trace.WithAttributes(attribute.String("lumen.node_id", fmt.Sprintf("%d", id))),
	)
	span.End()
}

var _ reactive.Hooks = (*Tracer)(nil)
