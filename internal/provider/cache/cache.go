// Package cache decorates a dataset provider with a Badger-backed TTL cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"gem-scanner/internal/financials"
	"gem-scanner/internal/interfaces"
	"gem-scanner/internal/logger"
)

const DefaultTTL = 12 * time.Hour

// Open opens a Badger database at dir. An empty dir opens an in-memory store.
func Open(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

// Provider serves datasets from the cache and falls through to inner on a
// miss. Errors from inner are never cached.
type Provider struct {
	inner interfaces.DatasetProvider
	db    *badger.DB
	ttl   time.Duration
}

var _ interfaces.DatasetProvider = (*Provider)(nil)

func New(inner interfaces.DatasetProvider, db *badger.DB, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Provider{inner: inner, db: db, ttl: ttl}
}

func (p *Provider) Name() string { return p.inner.Name() }

func (p *Provider) key(symbol string) []byte {
	return []byte("dataset:" + p.inner.Name() + ":" + strings.ToUpper(strings.TrimSpace(symbol)))
}

func (p *Provider) FetchDataset(ctx context.Context, symbol string) (*financials.Dataset, error) {
	if d, ok := p.load(ctx, symbol); ok {
		return d, nil
	}
	d, err := p.inner.FetchDataset(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := p.store(symbol, d); err != nil {
		logger.Warn(ctx, "dataset cache write failed", "symbol", symbol, "error", err)
	}
	return d, nil
}

func (p *Provider) load(ctx context.Context, symbol string) (*financials.Dataset, bool) {
	var raw []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(p.key(symbol))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			logger.Warn(ctx, "dataset cache read failed", "symbol", symbol, "error", err)
		}
		return nil, false
	}
	var d financials.Dataset
	if err := json.Unmarshal(raw, &d); err != nil {
		logger.Warn(ctx, "dataset cache entry corrupt", "symbol", symbol, "error", err)
		return nil, false
	}
	logger.Debug(ctx, "dataset cache hit", "symbol", symbol)
	return &d, true
}

func (p *Provider) store(symbol string, d *financials.Dataset) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(p.key(symbol), raw).WithTTL(p.ttl))
	})
}

// Invalidate drops the cached dataset for symbol.
func (p *Provider) Invalidate(symbol string) error {
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(p.key(symbol))
	})
}
