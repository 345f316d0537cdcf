package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpanLifecycle(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer(PACKAGE)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	parent := NewTelemetry(context.Background(), "call")
	child := parent.CreateChild("signaling")
	child.End()
	parent.Fail(errors.New("no answer"))
	parent.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "signaling", spans[0].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())

	assert.Equal(t, "call", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}
