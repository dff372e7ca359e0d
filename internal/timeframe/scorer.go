// Package timeframe re-weights quality, value, growth and momentum signals for
// a chosen investment horizon.
package timeframe

import (
	"math"
)

// Rating is the recommendation derived from a horizon score.
type Rating string

const (
	StrongBuy Rating = "Strong Buy"
	Buy       Rating = "Buy"
	Hold      Rating = "Hold"
	Sell      Rating = "Sell"
)

// RatingFor maps a 0..100 score onto a rating band.
func RatingFor(score int) Rating {
	switch {
	case score >= 75:
		return StrongBuy
	case score >= 55:
		return Buy
	case score >= 35:
		return Hold
	default:
		return Sell
	}
}

// Signals are the raw per-stock inputs. Nil means not available.
type Signals struct {
	QMScore          int
	ValueGapPercent  *float64
	ObservedPE       *float64
	RevenueGrowthPct *float64
	EPSGrowthPct     *float64
	Price            *float64
	YearHigh         *float64
	YearLow          *float64
	PriceChange3MPct *float64
	MarketCap        *float64
}

// Components are the normalized 0..100 signal scores.
type Components struct {
	Quality  float64 `json:"quality"`
	Value    float64 `json:"value"`
	Growth   float64 `json:"growth"`
	Momentum float64 `json:"momentum"`
}

// Result is the horizon score of one stock. GemTier is empty when the stock was
// not admitted or met no tier.
type Result struct {
	Horizon    Horizon    `json:"horizon"`
	Score      int        `json:"score"`
	Rating     Rating     `json:"rating"`
	GemTier    string     `json:"gem_tier,omitempty"`
	Admitted   bool       `json:"admitted"`
	Components Components `json:"components"`
}

// Scorer holds an injected horizon table.
type Scorer struct {
	profiles Profiles
}

// NewScorer creates a scorer. Missing horizons fall back to the defaults.
func NewScorer(profiles Profiles) *Scorer {
	merged := DefaultProfiles()
	for h, p := range profiles {
		merged[h] = p
	}
	return &Scorer{profiles: merged}
}

// Profile returns the profile used for h.
func (s *Scorer) Profile(h Horizon) Profile {
	if p, ok := s.profiles[h]; ok {
		return p
	}
	return s.profiles[Long]
}

// Score rates the stock for horizon h. Unknown horizons use Long.
func (s *Scorer) Score(sig Signals, h Horizon) Result {
	if _, ok := s.profiles[h]; !ok {
		h = Long
	}
	p := s.profiles[h]

	c := Normalize(sig)
	w := p.Weights
	raw := c.Quality*w.Quality + c.Value*w.Value + c.Growth*w.Growth + c.Momentum*w.Momentum
	score := int(math.Round(clamp(raw, 0, 100)))

	res := Result{
		Horizon:    h,
		Score:      score,
		Rating:     RatingFor(score),
		Components: c,
	}

	res.Admitted = admitted(sig, p.Admission)
	if res.Admitted && meetsGemCriteria(sig, c, p.Gem) {
		for _, t := range p.Tiers {
			if score >= t.MinScore {
				res.GemTier = t.Name
				break
			}
		}
	}
	return res
}

// ScoreAll rates the stock for every horizon.
func (s *Scorer) ScoreAll(sig Signals) map[Horizon]Result {
	out := make(map[Horizon]Result, len(Horizons))
	for _, h := range Horizons {
		out[h] = s.Score(sig, h)
	}
	return out
}

func admitted(sig Signals, a Admission) bool {
	if sig.QMScore < a.MinQMScore {
		return false
	}
	if sig.ValueGapPercent == nil || *sig.ValueGapPercent < a.MinValueGap {
		return false
	}
	if sig.ObservedPE == nil || *sig.ObservedPE <= 0 || *sig.ObservedPE > a.MaxPE {
		return false
	}
	return true
}

func meetsGemCriteria(sig Signals, c Components, g GemCriteria) bool {
	if sig.QMScore < g.MinQuality {
		return false
	}
	if sig.ValueGapPercent == nil || *sig.ValueGapPercent < g.MinValueGap {
		return false
	}
	if sig.MarketCap == nil || *sig.MarketCap > g.MaxMarketCap {
		return false
	}
	if g.RequireMomentum && c.Momentum < g.MinSignalScore {
		return false
	}
	if g.RequireGrowth && c.Growth < g.MinSignalScore {
		return false
	}
	return true
}

// Normalize maps each raw signal to 0..100. Missing inputs score a neutral 50.
func Normalize(sig Signals) Components {
	return Components{
		Quality:  clamp(float64(sig.QMScore)*10, 0, 100),
		Value:    valueScore(sig.ValueGapPercent),
		Growth:   growthScore(sig.RevenueGrowthPct, sig.EPSGrowthPct),
		Momentum: momentumScore(sig),
	}
}

func valueScore(gap *float64) float64 {
	if gap == nil {
		return 50
	}
	return clamp(50+*gap*0.5, 0, 100)
}

// growthScore maps average growth of -20%..+50% onto 0..100.
func growthScore(revenue, eps *float64) float64 {
	var sum float64
	n := 0
	for _, g := range []*float64{revenue, eps} {
		if g != nil && !math.IsNaN(*g) {
			sum += *g
			n++
		}
	}
	if n == 0 {
		return 50
	}
	avg := sum / float64(n)
	return clamp((avg+20)*(100.0/70.0), 0, 100)
}

// momentumScore: up to 50 from the 52-week position, up to 50 from the
// three-month change.
func momentumScore(sig Signals) float64 {
	if sig.Price == nil || sig.YearHigh == nil || sig.YearLow == nil {
		return 50
	}
	price, high, low := *sig.Price, *sig.YearHigh, *sig.YearLow
	if high < low || high <= 0 {
		return 50
	}

	position := 25.0
	if high > low {
		position = clamp((price-low)/(high-low), 0, 1) * 50
	}

	change := 25.0
	if sig.PriceChange3MPct != nil {
		change = clamp((*sig.PriceChange3MPct+30)*50/60, 0, 50)
	}
	return position + change
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
