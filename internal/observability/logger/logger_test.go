package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	obscontext "github.com/smallbiznis/mercado/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSamplingNeverDropsWarnings(t *testing.T) {
	var buf bytes.Buffer
	core, err := newCore(Config{
		Level:              "info",
		SamplingInitial:    2,
		SamplingThereafter: 1000,
		SamplingWindow:     time.Minute,
	}, zapcore.AddSync(&buf))
	require.NoError(t, err)
	log := zap.New(core)

	for i := 0; i < 5; i++ {
		log.Info("due listed")
		log.Warn("payment rejected")
	}
	log.Debug("below level")

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "due listed"))
	assert.Equal(t, 5, strings.Count(out, "payment rejected"))
	assert.NotContains(t, out, "below level")
}

func TestNewCoreRejectsUnknownLevel(t *testing.T) {
	_, err := newCore(Config{Level: "loud"}, zapcore.AddSync(&bytes.Buffer{}))
	assert.Error(t, err)
}

func TestBaseFieldsCarryMarketTimezone(t *testing.T) {
	fields := baseFields(Config{Environment: "test", MarketTimezone: "America/Lima"})
	keys := map[string]string{}
	for _, f := range fields {
		keys[f.Key] = f.String
	}
	assert.Equal(t, "mercado", keys["service"])
	assert.Equal(t, "America/Lima", keys["market_tz"])
}

func TestWithContextAddsKnownIdentifiers(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	WithContext(context.Background(), base).Info("bare")
	assert.Empty(t, logs.TakeAll()[0].Context)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithOperator(ctx, "caja-2")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
	})
	ctx = trace.ContextWithSpanContext(ctx, sc)

	WithDue(WithContext(ctx, base), "42", "7").Info("payment recorded")
	fields := logs.TakeAll()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "caja-2", fields["operator"])
	assert.Equal(t, sc.TraceID().String(), fields["trace_id"])
	assert.Equal(t, "42", fields["due_id"])
	assert.Equal(t, "7", fields["stand_id"])
	assert.NotContains(t, fields, "correlation_id")
}
