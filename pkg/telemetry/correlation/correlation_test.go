package correlation

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCorrelationIDGeneratesULID(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background())
	require.NotEmpty(t, cid)
	_, err := ulid.Parse(cid)
	assert.NoError(t, err)
	assert.Equal(t, cid, ExtractCorrelationID(ctx))
}

func TestEnsureCorrelationIDKeepsExisting(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), " abc ")
	_, cid := EnsureCorrelationID(ctx)
	assert.Equal(t, "abc", cid)
}

func TestTraceFieldsWithoutSpan(t *testing.T) {
	fields := TraceFields(WithCorrelationID(context.Background(), "abc"))
	assert.Equal(t, "abc", fields["correlation_id"])
	_, ok := fields["trace_id"]
	assert.False(t, ok)
}
