package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"
)

func TestGetRequestID(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-123")
	assert.Equal(t, "req-123", GetRequestID(ctx))
}

func TestGetRequestID_NotFound(t *testing.T) {
	assert.Equal(t, "", GetRequestID(context.Background()))
}

func TestGetRequestID_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDKey, 42)
	assert.Equal(t, "", GetRequestID(ctx))
}

func TestWithTraceContext_NoSpan(t *testing.T) {
	logger := zaptest.NewLogger(t)

	enriched := WithTraceContext(context.Background(), logger)

	// Without a valid span the logger is returned unchanged.
	require.Same(t, logger, enriched)
}

func TestWithTraceContext_NoopSpanIsInvalid(t *testing.T) {
	logger := zaptest.NewLogger(t)

	// noop tracer spans carry an invalid (all-zero) span context.
	tracer := noop.NewTracerProvider().Tracer("test")
	ctx, span := tracer.Start(context.Background(), "op")
	defer span.End()

	assert.Same(t, logger, WithTraceContext(ctx, logger))
}
