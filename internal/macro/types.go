package macro

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidEnvironment is returned when an environment update fails validation.
var ErrInvalidEnvironment = errors.New("invalid macro environment")

// Phase is the position in the business cycle.
type Phase string

const (
	PhaseEarlyExpansion Phase = "early-expansion"
	PhaseMidExpansion   Phase = "mid-expansion"
	PhaseLateExpansion  Phase = "late-expansion"
	PhaseRecession      Phase = "recession"
)

// Phases lists the cycle phases in order.
var Phases = []Phase{PhaseEarlyExpansion, PhaseMidExpansion, PhaseLateExpansion, PhaseRecession}

// Liquidity is the monetary liquidity regime.
type Liquidity string

const (
	LiquidityExpanding  Liquidity = "expanding"
	LiquidityStable     Liquidity = "stable"
	LiquidityTightening Liquidity = "tightening"
)

// Direction is +1 when liquidity expands, -1 when it tightens, 0 otherwise.
func (l Liquidity) Direction() float64 {
	switch l {
	case LiquidityExpanding:
		return 1
	case LiquidityTightening:
		return -1
	default:
		return 0
	}
}

// Sentiment is the market's risk appetite.
type Sentiment string

const (
	SentimentRiskOn  Sentiment = "risk-on"
	SentimentNeutral Sentiment = "neutral"
	SentimentRiskOff Sentiment = "risk-off"
)

// Outlook summarizes a sector fit score.
type Outlook string

const (
	OutlookBullish Outlook = "bullish"
	OutlookNeutral Outlook = "neutral"
	OutlookBearish Outlook = "bearish"
)

// RiskLevel is the macro risk of holding a sector right now.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Environment is a snapshot of the macro backdrop. Rates and spreads are in
// percent. Treat values as immutable once published to a Store.
type Environment struct {
	Phase     Phase     `json:"phase" yaml:"phase"`
	Liquidity Liquidity `json:"liquidity" yaml:"liquidity"`
	Sentiment Sentiment `json:"sentiment" yaml:"sentiment"`

	PolicyRate        float64 `json:"policy_rate" yaml:"policy_rate"`
	Inflation         float64 `json:"inflation" yaml:"inflation"`
	Unemployment      float64 `json:"unemployment" yaml:"unemployment"`
	YieldCurveSpread  float64 `json:"yield_curve_spread" yaml:"yield_curve_spread"`
	VIX               float64 `json:"vix" yaml:"vix"`
	MoneySupplyGrowth float64 `json:"money_supply_growth" yaml:"money_supply_growth"`
	CreditSpread      float64 `json:"credit_spread" yaml:"credit_spread"`

	Source    string    `json:"source,omitempty" yaml:"source,omitempty"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// DefaultEnvironment is the snapshot used until an administrator publishes one.
func DefaultEnvironment() Environment {
	return Environment{
		Phase:             PhaseMidExpansion,
		Liquidity:         LiquidityStable,
		Sentiment:         SentimentNeutral,
		PolicyRate:        5.0,
		Inflation:         3.0,
		Unemployment:      4.0,
		YieldCurveSpread:  0.5,
		VIX:               18,
		MoneySupplyGrowth: 4.0,
		CreditSpread:      1.5,
		Source:            "default",
	}
}

// Validate checks enum membership and indicator ranges.
func (e Environment) Validate() error {
	if _, err := ParsePhase(string(e.Phase)); err != nil {
		return err
	}
	if _, err := ParseLiquidity(string(e.Liquidity)); err != nil {
		return err
	}
	if _, err := ParseSentiment(string(e.Sentiment)); err != nil {
		return err
	}
	for _, ind := range []struct {
		name string
		v    float64
	}{
		{"policy rate", e.PolicyRate},
		{"inflation", e.Inflation},
		{"unemployment", e.Unemployment},
		{"yield curve spread", e.YieldCurveSpread},
		{"VIX", e.VIX},
		{"money supply growth", e.MoneySupplyGrowth},
		{"credit spread", e.CreditSpread},
	} {
		if math.IsNaN(ind.v) || math.IsInf(ind.v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidEnvironment, ind.name)
		}
	}
	if e.PolicyRate < -5 || e.PolicyRate > 50 {
		return fmt.Errorf("%w: policy rate %.2f out of range", ErrInvalidEnvironment, e.PolicyRate)
	}
	if e.Unemployment < 0 || e.Unemployment > 100 {
		return fmt.Errorf("%w: unemployment %.2f out of range", ErrInvalidEnvironment, e.Unemployment)
	}
	if e.VIX < 0 {
		return fmt.Errorf("%w: negative VIX %.2f", ErrInvalidEnvironment, e.VIX)
	}
	return nil
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")
	return strings.ReplaceAll(s, " ", "-")
}

// ParsePhase accepts the canonical names plus the short forms early, mid and late.
func ParsePhase(s string) (Phase, error) {
	switch normalize(s) {
	case "early-expansion", "early":
		return PhaseEarlyExpansion, nil
	case "mid-expansion", "mid":
		return PhaseMidExpansion, nil
	case "late-expansion", "late":
		return PhaseLateExpansion, nil
	case "recession", "contraction":
		return PhaseRecession, nil
	}
	return "", fmt.Errorf("%w: unknown phase %q", ErrInvalidEnvironment, s)
}

func ParseLiquidity(s string) (Liquidity, error) {
	switch normalize(s) {
	case "expanding", "easing":
		return LiquidityExpanding, nil
	case "stable", "neutral":
		return LiquidityStable, nil
	case "tightening", "contracting":
		return LiquidityTightening, nil
	}
	return "", fmt.Errorf("%w: unknown liquidity regime %q", ErrInvalidEnvironment, s)
}

func ParseSentiment(s string) (Sentiment, error) {
	switch normalize(s) {
	case "risk-on", "bullish":
		return SentimentRiskOn, nil
	case "neutral":
		return SentimentNeutral, nil
	case "risk-off", "bearish":
		return SentimentRiskOff, nil
	}
	return "", fmt.Errorf("%w: unknown sentiment %q", ErrInvalidEnvironment, s)
}

// SectorProfile describes how a sector behaves across the cycle.
type SectorProfile struct {
	// Suitability 1..10 per phase.
	PhaseScores          map[Phase]float64 `json:"phase_scores" yaml:"phase_scores"`
	LiquiditySensitivity float64           `json:"liquidity_sensitivity" yaml:"liquidity_sensitivity"` // -10..10
	RateSensitivity      float64           `json:"rate_sensitivity" yaml:"rate_sensitivity"`           // -10..10
	Defensiveness        float64           `json:"defensiveness" yaml:"defensiveness"`                 // 0..10
	GrowthPotential      float64           `json:"growth_potential" yaml:"growth_potential"`           // 0..10
}

// Validate checks every field is within its documented range.
func (p SectorProfile) Validate() error {
	for _, ph := range Phases {
		v, ok := p.PhaseScores[ph]
		if !ok {
			return fmt.Errorf("missing %s phase score", ph)
		}
		if v < 1 || v > 10 {
			return fmt.Errorf("%s phase score %.1f outside 1..10", ph, v)
		}
	}
	if p.LiquiditySensitivity < -10 || p.LiquiditySensitivity > 10 {
		return fmt.Errorf("liquidity sensitivity %.1f outside -10..10", p.LiquiditySensitivity)
	}
	if p.RateSensitivity < -10 || p.RateSensitivity > 10 {
		return fmt.Errorf("rate sensitivity %.1f outside -10..10", p.RateSensitivity)
	}
	if p.Defensiveness < 0 || p.Defensiveness > 10 {
		return fmt.Errorf("defensiveness %.1f outside 0..10", p.Defensiveness)
	}
	if p.GrowthPotential < 0 || p.GrowthPotential > 10 {
		return fmt.Errorf("growth potential %.1f outside 0..10", p.GrowthPotential)
	}
	return nil
}

func (p SectorProfile) clone() SectorProfile {
	c := p
	c.PhaseScores = make(map[Phase]float64, len(p.PhaseScores))
	for k, v := range p.PhaseScores {
		c.PhaseScores[k] = v
	}
	return c
}
