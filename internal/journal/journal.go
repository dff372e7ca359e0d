// Package journal appends every tier assignment to a daily JSONL file and
// gzips days past the retention window.
package journal

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gem-scanner/internal/scoring"
)

// IST is the default journal day boundary.
var IST = time.FixedZone("IST", 19800)

// Entry is one journal line.
type Entry struct {
	Time            string   `json:"time"`
	SessionID       string   `json:"session_id,omitempty"`
	Symbol          string   `json:"symbol"`
	Market          string   `json:"market,omitempty"`
	Sector          string   `json:"sector,omitempty"`
	Tier            string   `json:"tier"`
	Confidence      int      `json:"confidence"`
	QMScore         int      `json:"qm_score"`
	ValueGapPercent *float64 `json:"value_gap_pct"`
	GrowthSignals   int      `json:"growth_signals"`
	Horizon         string   `json:"horizon"`
	HorizonScore    int      `json:"horizon_score"`
	GemTier         string   `json:"gem_tier,omitempty"`
	AdjustedScore   int      `json:"adjusted_score"`
}

// Journal writes under Dir/YYYY-MM-DD.jsonl.
type Journal struct {
	dir string
	loc *time.Location
	now func() time.Time
	mu  sync.Mutex
}

// New creates a journal rooted at dir. A nil loc uses IST.
func New(dir string, loc *time.Location) *Journal {
	if dir == "" {
		dir = filepath.Join("logs", "tiers")
	}
	if loc == nil {
		loc = IST
	}
	return &Journal{dir: dir, loc: loc, now: time.Now}
}

func (j *Journal) Dir() string { return j.dir }

func (j *Journal) path(t time.Time) string {
	return filepath.Join(j.dir, t.In(j.loc).Format(time.DateOnly)+".jsonl")
}

// EntryFromResult builds an entry. ok is false when the result has no tier.
func EntryFromResult(sessionID string, r *scoring.Result) (Entry, bool) {
	if r == nil || r.Tier.Tier == "" {
		return Entry{}, false
	}
	e := Entry{
		SessionID:       sessionID,
		Symbol:          r.Symbol,
		Market:          r.Market,
		Sector:          r.Sector,
		Tier:            string(r.Tier.Tier),
		Confidence:      r.Tier.ConfidenceScore,
		ValueGapPercent: r.Valuation.ValueGapPercent,
		GrowthSignals:   r.Tier.GrowthSignalCount,
		Horizon:         string(r.Horizon.Horizon),
		HorizonScore:    r.Horizon.Score,
		GemTier:         r.Horizon.GemTier,
		AdjustedScore:   r.Macro.AdjustedScore,
	}
	if r.Quality != nil {
		e.QMScore = r.Quality.Total
	}
	return e, true
}

// Append writes e to today's file, stamping its time.
func (j *Journal) Append(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now().In(j.loc)
	e.Time = now.Format(time.DateTime)
	p := j.path(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips journal files whose day is more than retentionDays old
// and removes the originals. It returns the number of files compressed.
func (j *Journal) CompressOlder(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := os.ReadDir(j.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	today := j.now().In(j.loc)
	cutoff := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, j.loc).AddDate(0, 0, -retentionDays)

	n := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".jsonl" {
			continue
		}
		day, err := time.ParseInLocation(time.DateOnly, strings.TrimSuffix(name, ".jsonl"), j.loc)
		if err != nil || !day.Before(cutoff) {
			continue
		}
		p := filepath.Join(j.dir, name)
		if _, err := os.Stat(p + ".gz"); err == nil {
			_ = os.Remove(p)
			continue
		}
		if err := gzipFile(p); err != nil {
			return n, fmt.Errorf("compress %s: %w", name, err)
		}
		n++
	}
	return n, nil
}

func gzipFile(p string) error {
	in, err := os.Open(p)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(p+".gz", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(p + ".gz")
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(p)
}
