// Package scan runs the scoring pipeline over a universe of symbols in
// rate-friendly batches.
package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gem-scanner/internal/interfaces"
	"gem-scanner/internal/journal"
	"gem-scanner/internal/logger"
	"gem-scanner/internal/recorder"
	"gem-scanner/internal/scoring"
	"gem-scanner/internal/timeframe"
)

// ErrAllFailed is returned when no symbol in the universe could be fetched.
var ErrAllFailed = errors.New("scan: every symbol failed to fetch")

type Config struct {
	Market      string
	Horizon     timeframe.Horizon
	Concurrency int
	BatchSize   int
	// BatchPause is waited between batches, not after the last.
	BatchPause time.Duration
}

// Failure is a symbol that could not be scored.
type Failure struct {
	Symbol string
	Err    error
}

// Report is the outcome of one Run. Results keep universe order.
type Report struct {
	Session  Snapshot
	Results  []*scoring.Result
	Failures []Failure
}

type Scanner struct {
	cfg      Config
	provider interfaces.DatasetProvider
	scorer   interfaces.Scorer
	rec      recorder.Recorder
	journal  *journal.Journal
	now      func() time.Time

	mu      sync.Mutex
	current *Session
}

// New creates a scanner. rec and j may be nil.
func New(cfg Config, p interfaces.DatasetProvider, sc interfaces.Scorer, rec recorder.Recorder, j *journal.Journal) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if _, ok := timeframe.ParseHorizon(string(cfg.Horizon)); !ok {
		cfg.Horizon = timeframe.Long
	}
	if rec == nil {
		rec = recorder.NoopRecorder{}
	}
	return &Scanner{cfg: cfg, provider: p, scorer: sc, rec: rec, journal: j, now: time.Now}
}

// Current returns a snapshot of the running or most recent session.
func (s *Scanner) Current() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Snapshot{}, false
	}
	return s.current.Snapshot(), true
}

// Normalize upper-cases, trims and de-duplicates symbols, keeping first
// occurrence order.
func Normalize(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}

// Run scans symbols. Every result is persisted and every tiered result is
// journaled. The macro snapshot is read once so the whole run shares one
// environment. Cancelling ctx stops the scan between fetches and returns the
// partial report with ctx's error.
func (s *Scanner) Run(ctx context.Context, symbols []string) (*Report, error) {
	symbols = Normalize(symbols)
	if len(symbols) == 0 {
		return nil, errors.New("scan: empty universe")
	}

	sess := NewSession(s.cfg.Market, s.cfg.Horizon, len(symbols))
	if err := sess.Start(s.now().UTC()); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	logger.Scan(ctx, sess.ID(), s.cfg.Market, string(StatusRunning),
		"symbols", len(symbols),
		"horizon", s.cfg.Horizon,
		"concurrency", s.cfg.Concurrency,
		"batch_size", s.cfg.BatchSize)
	s.saveSession(ctx, sess)

	opts := scoring.Options{
		Horizon:  s.cfg.Horizon,
		Scanning: true,
		Macro:    s.scorer.MacroSnapshot(),
	}

	results := make([]*scoring.Result, len(symbols))
	var (
		failMu   sync.Mutex
		failures []Failure
	)

	for start := 0; start < len(symbols); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(symbols))

		var g errgroup.Group
		g.SetLimit(s.cfg.Concurrency)
		for i := start; i < end; i++ {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				res, err := s.scoreOne(ctx, sess, symbols[i], opts)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					failMu.Lock()
					failures = append(failures, Failure{Symbol: symbols[i], Err: err})
					failMu.Unlock()
					return nil
				}
				results[i] = res
				return nil
			})
		}
		_ = g.Wait()
		s.saveSession(ctx, sess)

		if ctx.Err() != nil || end == len(symbols) {
			break
		}
		logger.Debug(ctx, "Scan batch done", "session_id", sess.ID(), "processed", end, "total", len(symbols))
		if s.cfg.BatchPause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.BatchPause):
			}
		}
	}

	var runErr error
	switch {
	case ctx.Err() != nil:
		runErr = ctx.Err()
	case len(failures) == len(symbols):
		runErr = ErrAllFailed
	}
	sess.Finish(s.now().UTC(), runErr)
	s.saveSession(context.WithoutCancel(ctx), sess)

	snap := sess.Snapshot()
	logger.Scan(ctx, snap.ID, snap.Market, string(snap.Status),
		"processed", snap.Processed,
		"failed", snap.Failed,
		"qualified", snap.Qualified,
		"tiers", snap.TierCounts,
		"duration", snap.FinishedAt.Sub(snap.StartedAt))

	rep := &Report{Session: snap, Failures: failures}
	for _, r := range results {
		if r != nil {
			rep.Results = append(rep.Results, r)
		}
	}
	return rep, runErr
}

func (s *Scanner) scoreOne(ctx context.Context, sess *Session, symbol string, opts scoring.Options) (*scoring.Result, error) {
	d, err := s.provider.FetchDataset(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		sess.RecordFailure()
		logger.Warn(ctx, "Scan fetch failed", "session_id", sess.ID(), "symbol", symbol, "error", err)
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if d.Market == "" {
		d.Market = s.cfg.Market
	}

	res := s.scorer.Score(ctx, d, opts)
	sess.RecordResult(res)

	if err := s.rec.SaveScore(ctx, recorder.RecordFromResult(res)); err != nil {
		logger.ErrorWithErr(ctx, "Failed to save score", err, "symbol", symbol)
	}
	if s.journal != nil {
		if e, ok := journal.EntryFromResult(sess.ID(), res); ok {
			if err := s.journal.Append(e); err != nil {
				logger.Warn(ctx, "Failed to journal tier", "symbol", symbol, "error", err)
			}
		}
	}
	return res, nil
}

func (s *Scanner) saveSession(ctx context.Context, sess *Session) {
	if err := s.rec.SaveSession(ctx, sess.Snapshot().Record()); err != nil {
		logger.Warn(ctx, "Failed to save scan session", "session_id", sess.ID(), "error", err)
	}
}
