package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifiersRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithCorrelationID(ctx, "01HX")
	ctx = WithOperator(ctx, "caja-2")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "01HX", CorrelationIDFromContext(ctx))
	assert.Equal(t, "caja-2", OperatorFromContext(ctx))
}

func TestEmptyValuesAreNotStored(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, OperatorFromContext(nil))
}
