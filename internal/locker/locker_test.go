package locker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerExclusive(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	token, ok, err := l.TryLock(ctx, "dues:1", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "dues:1", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "dues:1", "someone-else"))
	_, ok, _ = l.TryLock(ctx, "dues:1", time.Second)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "dues:1", token))
	_, ok, err = l.TryLock(ctx, "dues:1", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalLockerExpires(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	_, ok, _ := l.TryLock(ctx, "k", 5*time.Second)
	require.True(t, ok)

	now = now.Add(6 * time.Second)
	_, ok, _ = l.TryLock(ctx, "k", 5*time.Second)
	assert.True(t, ok)
}

func TestLocalLockerRejectsBadInput(t *testing.T) {
	l := NewLocalLocker()
	_, _, err := l.TryLock(context.Background(), "", time.Second)
	assert.Error(t, err)
	_, _, err = l.TryLock(context.Background(), "k", 0)
	assert.Error(t, err)
}
