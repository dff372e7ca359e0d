package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gem-scanner/internal/financials"
)

type countingProvider struct {
	calls int
	err   error
}

func (c *countingProvider) Name() string { return "counting" }

func (c *countingProvider) FetchDataset(_ context.Context, symbol string) (*financials.Dataset, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	price := 42.0
	return &financials.Dataset{Symbol: symbol, Quote: &financials.Quote{Price: &price}}, nil
}

func openDB(t *testing.T) *Provider {
	t.Helper()
	db, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(&countingProvider{}, db, time.Hour)
}

func TestCacheHit(t *testing.T) {
	p := openDB(t)
	inner := p.inner.(*countingProvider)

	d, err := p.FetchDataset(t.Context(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, 42.0, *d.Quote.Price)

	d, err = p.FetchDataset(t.Context(), " acme ")
	require.NoError(t, err)
	assert.Equal(t, "ACME", d.Symbol)
	assert.Equal(t, 1, inner.calls)

	require.NoError(t, p.Invalidate("ACME"))
	_, err = p.FetchDataset(t.Context(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	p := openDB(t)
	inner := p.inner.(*countingProvider)
	inner.err = errors.New("boom")

	_, err := p.FetchDataset(t.Context(), "ACME")
	assert.Error(t, err)
	_, err = p.FetchDataset(t.Context(), "ACME")
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, "counting", p.Name())
}
