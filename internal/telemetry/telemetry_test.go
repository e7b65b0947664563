package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitAndShutdownLifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		ServiceName:    "tally-test",
		ServiceVersion: "test",
		Exporter:       "none",
		SampleRate:     1.0,
	}

	assert.False(t, Initialized())

	assert.NoError(t, Init(ctx, cfg))
	assert.True(t, Initialized())

	// second init is a no-op
	assert.NoError(t, Init(ctx, Config{Exporter: "otlp"}))
	assert.True(t, Initialized())

	// spans carry a valid trace id once initialized
	_, span := Tracer("test").Start(ctx, "op")
	assert.True(t, span.SpanContext().HasTraceID())
	assert.True(t, span.SpanContext().TraceID().IsValid())
	span.End()

	assert.NoError(t, Shutdown(ctx))
	assert.False(t, Initialized())

	// shutdown when uninitialized is safe
	assert.NoError(t, Shutdown(ctx))

	// init after shutdown re-initializes
	assert.NoError(t, Init(ctx, cfg))
	assert.True(t, Initialized())
	assert.NoError(t, Shutdown(ctx))
}

func TestInitUnknownExporter(t *testing.T) {
	err := Init(context.Background(), Config{Exporter: "jaeger-thrift"})
	assert.ErrorIs(t, err, ErrUnknownExporter)
	assert.False(t, Initialized())
}

func TestSpanContextPropagatesToChildren(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Init(ctx, Config{ServiceName: "tally-test", Exporter: "none", SampleRate: 1.0}))
	defer func() { _ = Shutdown(context.Background()) }()

	parentCtx, parent := Tracer("test").Start(ctx, "parent")
	_, child := Tracer("test").Start(parentCtx, "child")

	assert.Equal(t, parent.SpanContext().TraceID(), child.SpanContext().TraceID())
	assert.NotEqual(t, parent.SpanContext().SpanID(), child.SpanContext().SpanID())

	child.End()
	parent.End()
}

func TestHashID(t *testing.T) {
	a := HashID("42")
	b := HashID("42")
	c := HashID("43")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, "42", a)
	assert.NotEmpty(t, a)
}
