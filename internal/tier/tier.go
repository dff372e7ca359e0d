// Package tier classifies quality/value candidates into gem tiers.
//
// Classification is a two-step gate. A stock must first pass every hard
// eligibility check; only then is a confidence score built and compared with
// the tier table. Each tier also demands minimum raw inputs, so a single
// dominant factor cannot buy a tier through confidence alone.
package tier

import (
	"fmt"
	"math"
)

// Tier is a discrete gem classification. The empty Tier means none.
type Tier string

const (
	None       Tier = ""
	CrownJewel Tier = "crown-jewel"
	Diamond    Tier = "diamond"
	Gold       Tier = "gold"
	Silver     Tier = "silver"
)

const (
	maxGrowth  = 3
	maxQMScore = 8
)

// Rank orders tiers: crown-jewel 4 down to none 0.
func (t Tier) Rank() int {
	switch t {
	case CrownJewel:
		return 4
	case Diamond:
		return 3
	case Gold:
		return 2
	case Silver:
		return 1
	default:
		return 0
	}
}

// Label is the display name.
func (t Tier) Label() string {
	switch t {
	case CrownJewel:
		return "Crown Jewel"
	case Diamond:
		return "Diamond"
	case Gold:
		return "Gold"
	case Silver:
		return "Silver"
	default:
		return "-"
	}
}

// Input is everything the classifier looks at.
type Input struct {
	QMScore           int
	ValueGapPercent   *float64
	GrowthSignalCount int
	SharesDecreasing  bool
	MarketCap         *float64
	LatestFCF         *float64
	// Scanning applies the minimum market cap used for universe scans.
	Scanning bool
}

// Assignment is the classifier output. Confidence is 0 when ineligible.
type Assignment struct {
	Tier              Tier     `json:"tier"`
	Eligible          bool     `json:"eligible"`
	ConfidenceScore   int      `json:"confidence_score"`
	GrowthSignalCount int      `json:"growth_signal_count"`
	Reasons           []string `json:"reasons,omitempty"`
}

// Threshold is one row of the tier table.
type Threshold struct {
	Tier          Tier    `yaml:"tier" validate:"required"`
	MinConfidence int     `yaml:"min_confidence" validate:"gte=0,lte=100"`
	MinQMScore    int     `yaml:"min_qm_score" validate:"gte=0,lte=8"`
	MinGrowth     int     `yaml:"min_growth" validate:"gte=0,lte=3"`
	MinValueGap   float64 `yaml:"min_value_gap"`
}

// Weights controls how confidence is built.
type Weights struct {
	Quality      float64 `yaml:"quality"`        // points at a perfect QM score
	ValueGap     float64 `yaml:"value_gap"`      // cap on value gap points
	ValueGapFull float64 `yaml:"value_gap_full"` // gap % that earns the full cap
	GrowthSignal float64 `yaml:"growth_signal"`  // points per growth signal
	Buyback      float64 `yaml:"buyback"`        // flat points for shrinking share count
}

// Policy is the injectable classification table.
type Policy struct {
	MinQMScore       int     `yaml:"min_qm_score" validate:"gte=0,lte=8"`
	MaxMarketCap     float64 `yaml:"max_market_cap" validate:"gt=0"`
	MinScanMarketCap float64 `yaml:"min_scan_market_cap" validate:"gte=0"`
	MinValueGap      float64 `yaml:"min_value_gap"`
	MinGrowthSignals int     `yaml:"min_growth_signals" validate:"gte=0,lte=3"`
	Weights          Weights `yaml:"weights"`
	// Evaluated top-down; first match wins.
	Tiers []Threshold `yaml:"tiers" validate:"dive"`
}

// DefaultPolicy returns the standard gate and tier table.
func DefaultPolicy() Policy {
	return Policy{
		MinQMScore:       6,
		MaxMarketCap:     50e9,
		MinScanMarketCap: 500e6,
		MinValueGap:      15,
		MinGrowthSignals: 1,
		Weights: Weights{
			Quality:      40,
			ValueGap:     30,
			ValueGapFull: 60,
			GrowthSignal: 6.67,
			Buyback:      10,
		},
		Tiers: []Threshold{
			{Tier: CrownJewel, MinConfidence: 95},
			{Tier: Diamond, MinConfidence: 85, MinQMScore: 8, MinGrowth: 3, MinValueGap: 30},
			{Tier: Gold, MinConfidence: 70, MinQMScore: 7, MinGrowth: 2, MinValueGap: 20},
			{Tier: Silver, MinConfidence: 55, MinQMScore: 6, MinGrowth: 1, MinValueGap: 15},
		},
	}
}

// Classifier applies a Policy. It holds no mutable state.
type Classifier struct {
	policy Policy
}

func NewClassifier(p Policy) *Classifier {
	return &Classifier{policy: p}
}

func (c *Classifier) Policy() Policy {
	return c.policy
}

// Classify runs the eligibility gate and, if it passes, the tier table.
// Out-of-range inputs are clamped.
func (c *Classifier) Classify(in Input) Assignment {
	in = clampInput(in)
	out := Assignment{GrowthSignalCount: in.GrowthSignalCount}

	out.Reasons = c.eligibility(in)
	if len(out.Reasons) > 0 {
		return out
	}
	out.Eligible = true

	gap := *in.ValueGapPercent
	out.ConfidenceScore = c.Confidence(in.QMScore, gap, in.GrowthSignalCount, in.SharesDecreasing)

	for _, th := range c.policy.Tiers {
		if out.ConfidenceScore >= th.MinConfidence &&
			in.QMScore >= th.MinQMScore &&
			in.GrowthSignalCount >= th.MinGrowth &&
			gap >= th.MinValueGap {
			out.Tier = th.Tier
			return out
		}
	}
	out.Reasons = []string{fmt.Sprintf("confidence %d meets no tier threshold", out.ConfidenceScore)}
	return out
}

func (c *Classifier) eligibility(in Input) []string {
	p := c.policy
	var reasons []string

	if in.QMScore < p.MinQMScore {
		reasons = append(reasons, fmt.Sprintf("qm score %d below %d", in.QMScore, p.MinQMScore))
	}

	if in.MarketCap == nil {
		reasons = append(reasons, "market cap unknown")
	} else {
		mc := *in.MarketCap
		if mc >= p.MaxMarketCap {
			reasons = append(reasons, fmt.Sprintf("market cap %.0f not below %.0f", mc, p.MaxMarketCap))
		}
		if in.Scanning && mc < p.MinScanMarketCap {
			reasons = append(reasons, fmt.Sprintf("market cap %.0f below scan minimum %.0f", mc, p.MinScanMarketCap))
		}
	}

	if in.ValueGapPercent == nil {
		reasons = append(reasons, "value gap unknown")
	} else if *in.ValueGapPercent <= p.MinValueGap {
		reasons = append(reasons, fmt.Sprintf("value gap %.1f%% not above %.0f%%", *in.ValueGapPercent, p.MinValueGap))
	}

	if in.LatestFCF == nil {
		reasons = append(reasons, "free cash flow unknown")
	} else if *in.LatestFCF <= 0 {
		reasons = append(reasons, "free cash flow not positive")
	}

	if in.GrowthSignalCount < p.MinGrowthSignals {
		reasons = append(reasons, "no growth signals (value trap)")
	}
	return reasons
}

// Confidence builds the 0..100 score from its four contributions and rounds
// half away from zero.
func (c *Classifier) Confidence(qmScore int, valueGap float64, growthSignals int, sharesDecreasing bool) int {
	w := c.policy.Weights

	q := clampInt(qmScore, 0, maxQMScore)
	g := clampInt(growthSignals, 0, maxGrowth)

	total := float64(q) / maxQMScore * w.Quality
	if valueGap > 0 && w.ValueGapFull > 0 {
		total += math.Min(w.ValueGap, valueGap/w.ValueGapFull*w.ValueGap)
	}
	total += float64(g) * w.GrowthSignal
	if sharesDecreasing {
		total += w.Buyback
	}

	return int(math.Round(math.Min(100, math.Max(0, total))))
}

func clampInput(in Input) Input {
	in.QMScore = clampInt(in.QMScore, 0, maxQMScore)
	in.GrowthSignalCount = clampInt(in.GrowthSignalCount, 0, maxGrowth)
	in.ValueGapPercent = finite(in.ValueGapPercent)
	in.MarketCap = finite(in.MarketCap)
	in.LatestFCF = finite(in.LatestFCF)
	return in
}

// finite drops NaN and infinite values so they read as unknown.
func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
