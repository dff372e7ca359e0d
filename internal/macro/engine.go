// Package macro adjusts scores for the macroeconomic cycle.
//
// A sector's fit with the current environment is scored 0..100 from three
// bounded components: cycle phase alignment (0..40), liquidity impact (0..30)
// and policy rate impact (0..30). Each component sits at its midpoint for a
// neutral input so the total centres on 50. The fit converts into a small
// bonus or penalty on a base score.
package macro

import (
	"fmt"
	"math"
	"strings"
)

const (
	BullishThreshold = 70.0
	BearishThreshold = 40.0

	// MaxAdjustedScore lets macro tailwinds lift a score above the 100-point base scale.
	MaxAdjustedScore = 110
)

// Fit is the result of scoring a sector against an environment.
type Fit struct {
	Sector          string  `json:"sector"`
	Known           bool    `json:"known"`
	Score           float64 `json:"score"`
	PhaseAlignment  float64 `json:"phase_alignment"`
	LiquidityImpact float64 `json:"liquidity_impact"`
	RateImpact      float64 `json:"rate_impact"`
	Outlook         Outlook `json:"outlook"`
	Reasoning       string  `json:"reasoning"`
}

// Adjustment is a base score corrected for the macro backdrop.
type Adjustment struct {
	BaseScore     int       `json:"base_score"`
	AdjustedScore int       `json:"adjusted_score"`
	Bonus         int       `json:"bonus"`
	Outlook       Outlook   `json:"outlook"`
	RiskLevel     RiskLevel `json:"risk_level"`
	Fit           Fit       `json:"fit"`
}

// Engine scores sectors against environments using an injected profile table.
type Engine struct {
	profiles *ProfileTable
}

// NewEngine creates an engine. A nil table means the built-in defaults.
func NewEngine(profiles *ProfileTable) *Engine {
	if profiles == nil {
		profiles = DefaultProfileTable()
	}
	return &Engine{profiles: profiles}
}

// Profiles returns the table the engine reads from.
func (e *Engine) Profiles() *ProfileTable {
	return e.profiles
}

// SectorFit scores how well sector suits env. Unknown sectors use the neutral
// profile and score 50.
func (e *Engine) SectorFit(sector string, env Environment) Fit {
	name, p, known := e.profiles.Lookup(sector)
	if !known {
		name = strings.TrimSpace(sector)
	}

	phaseScore := clamp(p.PhaseScores[env.Phase], 0, 10)
	if _, ok := p.PhaseScores[env.Phase]; !ok {
		phaseScore = 5
	}
	phase := clamp(phaseScore*4, 0, 40)

	liquidity := clamp(15+p.LiquiditySensitivity*env.Liquidity.Direction()*1.5, 0, 30)

	normalizedRate := clamp(env.PolicyRate, 0, 10) / 10
	rate := clamp(15+p.RateSensitivity*(normalizedRate-0.5)*3, 0, 30)

	total := clamp(phase+liquidity+rate, 0, 100)

	fit := Fit{
		Sector:          name,
		Known:           known,
		Score:           total,
		PhaseAlignment:  phase,
		LiquidityImpact: liquidity,
		RateImpact:      rate,
		Outlook:         outlookFor(total),
	}
	fit.Reasoning = reasoning(fit, phaseScore, p, env)
	return fit
}

// Bonus converts a fit score into points added to a base score, roughly -10..+10.
func Bonus(fitScore float64) int {
	return int(math.Round((fitScore - 50) / 5))
}

// Adjust applies the sector's macro bonus to baseScore. The result is clamped
// to 0..MaxAdjustedScore.
func (e *Engine) Adjust(baseScore int, sector string, env Environment) Adjustment {
	fit := e.SectorFit(sector, env)
	bonus := Bonus(fit.Score)

	adjusted := baseScore + bonus
	if adjusted < 0 {
		adjusted = 0
	}
	if adjusted > MaxAdjustedScore {
		adjusted = MaxAdjustedScore
	}

	_, p, _ := e.profiles.Lookup(sector)
	return Adjustment{
		BaseScore:     baseScore,
		AdjustedScore: adjusted,
		Bonus:         bonus,
		Outlook:       fit.Outlook,
		RiskLevel:     riskLevel(fit.Score, p, env),
		Fit:           fit,
	}
}

// riskLevel: first matching rule wins.
func riskLevel(fitScore float64, p SectorProfile, env Environment) RiskLevel {
	switch {
	case env.Phase == PhaseRecession && p.Defensiveness >= 8:
		return RiskLow
	case env.Phase == PhaseRecession && p.Defensiveness <= 4:
		return RiskHigh
	case env.Liquidity == LiquidityTightening && p.LiquiditySensitivity >= 7:
		return RiskHigh
	case fitScore >= BullishThreshold:
		return RiskLow
	default:
		return RiskMedium
	}
}

func outlookFor(score float64) Outlook {
	switch {
	case score >= BullishThreshold:
		return OutlookBullish
	case score <= BearishThreshold:
		return OutlookBearish
	default:
		return OutlookNeutral
	}
}

func reasoning(fit Fit, phaseScore float64, p SectorProfile, env Environment) string {
	var b strings.Builder
	label := fit.Sector
	if !fit.Known {
		if label == "" {
			label = "Unclassified sector"
		}
		fmt.Fprintf(&b, "%s has no cycle profile, using neutral weights. ", label)
	}
	fmt.Fprintf(&b, "%s rates %.0f/10 in %s.", label, phaseScore, env.Phase)

	switch {
	case env.Liquidity.Direction() == 0 || p.LiquiditySensitivity == 0:
		b.WriteString(" Liquidity is neutral for the sector.")
	case fit.LiquidityImpact > 15:
		fmt.Fprintf(&b, " %s liquidity is a tailwind.", env.Liquidity)
	default:
		fmt.Fprintf(&b, " %s liquidity is a headwind.", env.Liquidity)
	}

	switch {
	case math.Abs(fit.RateImpact-15) < 0.5:
		fmt.Fprintf(&b, " Policy rate %.2f%% has little effect.", env.PolicyRate)
	case fit.RateImpact > 15:
		fmt.Fprintf(&b, " Policy rate %.2f%% helps.", env.PolicyRate)
	default:
		fmt.Fprintf(&b, " Policy rate %.2f%% hurts.", env.PolicyRate)
	}
	return b.String()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
