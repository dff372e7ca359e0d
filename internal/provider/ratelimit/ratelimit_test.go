package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryUnknownSourcePasses(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Wait(t.Context(), "nobody"))
	assert.Nil(t, r.Get("nobody"))
}

func TestRegistryBurstThenBlock(t *testing.T) {
	r := NewRegistry()
	r.Add("fmp", Limit{Every: time.Hour, Burst: 2})

	require.NoError(t, r.Wait(t.Context(), "fmp"))
	require.NoError(t, r.Wait(t.Context(), "fmp"))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, r.Wait(ctx, "fmp"))
}

func TestNewUnlimited(t *testing.T) {
	lim := New(Limit{})
	for i := 0; i < 100; i++ {
		require.True(t, lim.Allow())
	}
}
