package extraction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowGuard_AllowsUpToLimit(t *testing.T) {
	g := NewWindowGuard(time.Minute, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := g.Allow(ctx)
		require.NoError(t, err)
		assert.True(t, ok, "call %d should be admitted", i)
	}

	ok, err := g.Allow(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "limit exceeded, call must be rejected")
}

func TestWindowGuard_WindowSlideReadmits(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	g := &windowGuard{
		window:   time.Minute,
		maxCalls: 2,
		now:      func() time.Time { return now },
	}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := g.Allow(ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := g.Allow(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// Slide past the window; the old calls expire and a slot opens.
	now = now.Add(61 * time.Second)
	ok, err = g.Allow(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWindowGuard_PartialSlide(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	g := &windowGuard{
		window:   time.Minute,
		maxCalls: 2,
		now:      func() time.Time { return now },
	}
	ctx := context.Background()

	ok, _ := g.Allow(ctx)
	require.True(t, ok)

	now = now.Add(30 * time.Second)
	ok, _ = g.Allow(ctx)
	require.True(t, ok)

	// First call still inside the window.
	now = now.Add(20 * time.Second)
	ok, _ = g.Allow(ctx)
	require.False(t, ok)

	// First call aged out, second still counted.
	now = now.Add(15 * time.Second)
	ok, _ = g.Allow(ctx)
	assert.True(t, ok)
}
