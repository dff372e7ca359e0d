// Package valuation maps a quality score to a fair P/E multiple and compares it
// with the observed one.
package valuation

import "fmt"

// Status labels the relation between fair and observed multiples.
type Status string

const (
	StatusUndervalued Status = "undervalued"
	StatusFair        Status = "fair"
	StatusOvervalued  Status = "overvalued"
	StatusUnknown     Status = "unknown"
)

// Result is the valuation of one symbol.
type Result struct {
	FairPE          float64  `json:"fair_pe"`
	ObservedPE      *float64 `json:"observed_pe"`
	ValueGapPercent *float64 `json:"value_gap_percent"`
	Status          Status   `json:"status"`
}

func (r Result) String() string {
	if r.ValueGapPercent == nil {
		return fmt.Sprintf("fair P/E %.2f, %s", r.FairPE, r.Status)
	}
	return fmt.Sprintf("fair P/E %.2f vs %.2f (%+.1f%%), %s", r.FairPE, *r.ObservedPE, *r.ValueGapPercent, r.Status)
}

// Model holds the parameters of the linear quality-to-multiple mapping.
type Model struct {
	FloorPE   float64 `yaml:"floor_pe" validate:"gt=0"`
	CeilingPE float64 `yaml:"ceiling_pe" validate:"gtfield=FloorPE"`
	MaxScore  int     `yaml:"max_score" validate:"gt=0"`
	// Gap beyond which a stock is labelled under- or overvalued, in percent.
	Band float64 `yaml:"band" validate:"gte=0"`
}

// DefaultModel maps scores 0..8 onto P/E 8..25 with a ±15% fair band.
func DefaultModel() Model {
	return Model{FloorPE: 8, CeilingPE: 25, MaxScore: 8, Band: 15}
}

// FairPE returns the multiple a company with the given score deserves. Scores
// outside 0..MaxScore are clamped.
func (m Model) FairPE(score int) float64 {
	if score < 0 {
		score = 0
	}
	if score > m.MaxScore {
		score = m.MaxScore
	}
	return m.FloorPE + float64(score)/float64(m.MaxScore)*(m.CeilingPE-m.FloorPE)
}

// Evaluate values a company. observedPE nil or non-positive yields StatusUnknown
// with no gap.
func (m Model) Evaluate(score int, observedPE *float64) Result {
	res := Result{FairPE: m.FairPE(score), Status: StatusUnknown}
	if observedPE == nil || *observedPE <= 0 {
		return res
	}

	obs := *observedPE
	gap := (res.FairPE - obs) / res.FairPE * 100
	res.ObservedPE = &obs
	res.ValueGapPercent = &gap

	switch {
	case gap > m.Band:
		res.Status = StatusUndervalued
	case gap < -m.Band:
		res.Status = StatusOvervalued
	default:
		res.Status = StatusFair
	}
	return res
}
