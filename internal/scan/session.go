package scan

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"gem-scanner/internal/recorder"
	"gem-scanner/internal/scoring"
	"gem-scanner/internal/timeframe"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Session tracks one scan. It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id         string
	market     string
	horizon    timeframe.Horizon
	status     Status
	total      int
	processed  int
	failed     int
	qualified  int
	tierCounts map[string]int
	errMsg     string
	startedAt  time.Time
	finishedAt time.Time
}

// NewSession creates a pending session with a fresh id.
func NewSession(market string, horizon timeframe.Horizon, total int) *Session {
	return &Session{
		id:         uuid.NewString(),
		market:     market,
		horizon:    horizon,
		status:     StatusPending,
		total:      total,
		tierCounts: make(map[string]int),
	}
}

func (s *Session) ID() string { return s.id }

// Start moves a pending session to running.
func (s *Session) Start(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPending {
		return errors.New("scan: session " + s.id + " already " + string(s.status))
	}
	s.status = StatusRunning
	s.startedAt = now
	return nil
}

// RecordResult counts a scored symbol.
func (s *Session) RecordResult(r *scoring.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
	if r != nil && r.Tier.Tier != "" {
		s.qualified++
		s.tierCounts[string(r.Tier.Tier)]++
	}
}

// RecordFailure counts a symbol whose data could not be fetched.
func (s *Session) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
	s.failed++
}

// Finish closes the session. A nil err completes it, a context error cancels
// it and anything else fails it. Finishing twice is a no-op.
func (s *Session) Finish(now time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.terminal() {
		return
	}
	switch {
	case err == nil:
		s.status = StatusCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.status = StatusCancelled
		s.errMsg = err.Error()
	default:
		s.status = StatusFailed
		s.errMsg = err.Error()
	}
	s.finishedAt = now
}

func (st Status) terminal() bool {
	return st == StatusCompleted || st == StatusFailed || st == StatusCancelled
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID         string            `json:"id"`
	Market     string            `json:"market"`
	Horizon    timeframe.Horizon `json:"horizon"`
	Status     Status            `json:"status"`
	Total      int               `json:"total"`
	Processed  int               `json:"processed"`
	Failed     int               `json:"failed"`
	Qualified  int               `json:"qualified"`
	TierCounts map[string]int    `json:"tier_counts"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:         s.id,
		Market:     s.market,
		Horizon:    s.horizon,
		Status:     s.status,
		Total:      s.total,
		Processed:  s.processed,
		Failed:     s.failed,
		Qualified:  s.qualified,
		TierCounts: maps.Clone(s.tierCounts),
		Error:      s.errMsg,
		StartedAt:  s.startedAt,
		FinishedAt: s.finishedAt,
	}
}

func (s Snapshot) Done() bool { return s.Status.terminal() }

// Progress is the processed share in percent.
func (s Snapshot) Progress() float64 {
	if s.Total == 0 {
		return 100
	}
	return float64(s.Processed) / float64(s.Total) * 100
}

// Record converts the snapshot for persistence.
func (s Snapshot) Record() recorder.SessionRecord {
	rec := recorder.SessionRecord{
		ID:         s.ID,
		Market:     s.Market,
		Horizon:    string(s.Horizon),
		Status:     string(s.Status),
		Total:      s.Total,
		Processed:  s.Processed,
		Failed:     s.Failed,
		Qualified:  s.Qualified,
		TierCounts: s.TierCounts,
		Error:      s.Error,
	}
	if !s.StartedAt.IsZero() {
		t := s.StartedAt
		rec.StartedAt = &t
	}
	if !s.FinishedAt.IsZero() {
		t := s.FinishedAt
		rec.FinishedAt = &t
	}
	return rec
}
