package timeframe

import (
	"fmt"
	"math"
	"strings"
)

// Horizon is an investment time frame.
type Horizon string

const (
	Short  Horizon = "short"
	Medium Horizon = "medium"
	Long   Horizon = "long"
)

// Horizons lists every supported horizon, shortest first.
var Horizons = []Horizon{Short, Medium, Long}

// ParseHorizon maps user input onto a horizon. Unknown or empty input selects
// Long and reports false.
func ParseHorizon(s string) (Horizon, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short", "short-term", "short_term", "swing":
		return Short, true
	case "medium", "medium-term", "medium_term", "mid":
		return Medium, true
	case "long", "long-term", "long_term":
		return Long, true
	}
	return Long, false
}

// Weights are the signal weights of a horizon. They sum to 1.
type Weights struct {
	Quality  float64 `yaml:"quality" validate:"gte=0,lte=1"`
	Value    float64 `yaml:"value" validate:"gte=0,lte=1"`
	Growth   float64 `yaml:"growth" validate:"gte=0,lte=1"`
	Momentum float64 `yaml:"momentum" validate:"gte=0,lte=1"`
}

func (w Weights) Sum() float64 {
	return w.Quality + w.Value + w.Growth + w.Momentum
}

// Admission is the filter a stock must pass before a gem tier is considered.
type Admission struct {
	MinQMScore  int     `yaml:"min_qm_score" validate:"gte=0,lte=8"`
	MinValueGap float64 `yaml:"min_value_gap"`
	MaxPE       float64 `yaml:"max_pe" validate:"gt=0"`
}

// GemCriteria are the horizon-specific floors on top of admission.
type GemCriteria struct {
	MinQuality      int     `yaml:"min_quality" validate:"gte=0,lte=8"`
	MinValueGap     float64 `yaml:"min_value_gap"`
	MaxMarketCap    float64 `yaml:"max_market_cap" validate:"gt=0"`
	RequireMomentum bool    `yaml:"require_momentum"`
	RequireGrowth   bool    `yaml:"require_growth"`
	// Normalized component score the required signal must reach.
	MinSignalScore float64 `yaml:"min_signal_score" validate:"gte=0,lte=100"`
}

// GemTier is one named rung of a horizon's tier ladder.
type GemTier struct {
	Name     string `yaml:"name" validate:"required"`
	MinScore int    `yaml:"min_score" validate:"gte=0,lte=100"`
}

// Profile is the full configuration of one horizon.
type Profile struct {
	Label     string      `yaml:"label"`
	Weights   Weights     `yaml:"weights"`
	Admission Admission   `yaml:"admission"`
	Gem       GemCriteria `yaml:"gem"`
	// Highest tier first.
	Tiers []GemTier `yaml:"tiers" validate:"min=1,dive"`
}

// Validate checks the weights sum to 1 and the tier ladder descends.
func (p Profile) Validate() error {
	if math.Abs(p.Weights.Sum()-1) > 0.001 {
		return fmt.Errorf("weights sum to %.4f, want 1", p.Weights.Sum())
	}
	if len(p.Tiers) == 0 {
		return fmt.Errorf("no gem tiers")
	}
	for i := 1; i < len(p.Tiers); i++ {
		if p.Tiers[i].MinScore > p.Tiers[i-1].MinScore {
			return fmt.Errorf("tier %q must not require more than %q", p.Tiers[i].Name, p.Tiers[i-1].Name)
		}
	}
	return nil
}

// Profiles maps each horizon to its profile.
type Profiles map[Horizon]Profile

// Validate checks that every horizon is present and valid.
func (ps Profiles) Validate() error {
	for _, h := range Horizons {
		p, ok := ps[h]
		if !ok {
			return fmt.Errorf("missing %s horizon profile", h)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s horizon: %w", h, err)
		}
	}
	return nil
}

// DefaultProfiles returns the built-in horizon table.
func DefaultProfiles() Profiles {
	return Profiles{
		Short: {
			Label:     "Short Term (1-3 months)",
			Weights:   Weights{Quality: 0.15, Value: 0.15, Growth: 0.20, Momentum: 0.50},
			Admission: Admission{MinQMScore: 4, MinValueGap: 0, MaxPE: 40},
			Gem: GemCriteria{
				MinQuality:      5,
				MinValueGap:     0,
				MaxMarketCap:    100e9,
				RequireMomentum: true,
				MinSignalScore:  60,
			},
			Tiers: []GemTier{
				{Name: "Momentum Pick", MinScore: 75},
				{Name: "Swing Candidate", MinScore: 60},
			},
		},
		Medium: {
			Label:     "Medium Term (6-18 months)",
			Weights:   Weights{Quality: 0.30, Value: 0.30, Growth: 0.25, Momentum: 0.15},
			Admission: Admission{MinQMScore: 5, MinValueGap: 10, MaxPE: 30},
			Gem: GemCriteria{
				MinQuality:     6,
				MinValueGap:    10,
				MaxMarketCap:   50e9,
				RequireGrowth:  true,
				MinSignalScore: 60,
			},
			Tiers: []GemTier{
				{Name: "Rising Star", MinScore: 75},
				{Name: "Emerging Gem", MinScore: 60},
			},
		},
		Long: {
			Label:     "Long Term (3+ years)",
			Weights:   Weights{Quality: 0.40, Value: 0.35, Growth: 0.20, Momentum: 0.05},
			Admission: Admission{MinQMScore: 6, MinValueGap: 15, MaxPE: 25},
			Gem: GemCriteria{
				MinQuality:   6,
				MinValueGap:  15,
				MaxMarketCap: 50e9,
			},
			Tiers: []GemTier{
				{Name: "Crown Jewel", MinScore: 85},
				{Name: "Diamond", MinScore: 75},
				{Name: "Gold", MinScore: 65},
				{Name: "Silver", MinScore: 55},
			},
		},
	}
}
