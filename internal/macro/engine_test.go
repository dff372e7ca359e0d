package macro

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(phase Phase, liq Liquidity, rate float64) Environment {
	e := DefaultEnvironment()
	e.Phase = phase
	e.Liquidity = liq
	e.PolicyRate = rate
	return e
}

func TestSectorFitTechnologyLateCycleTightening(t *testing.T) {
	e := NewEngine(nil)
	fit := e.SectorFit("Technology", env(PhaseLateExpansion, LiquidityTightening, 4.5))

	assert.True(t, fit.Known)
	assert.InDelta(t, 24.0, fit.PhaseAlignment, 1e-9)
	assert.InDelta(t, 3.0, fit.LiquidityImpact, 1e-9)
	assert.InDelta(t, 16.05, fit.RateImpact, 1e-9)
	assert.InDelta(t, 43.05, fit.Score, 1e-9)
	assert.Equal(t, OutlookNeutral, fit.Outlook)
	assert.Equal(t, -1, Bonus(fit.Score))
	assert.NotEmpty(t, fit.Reasoning)

	adj := e.Adjust(60, "Technology", env(PhaseLateExpansion, LiquidityTightening, 4.5))
	assert.Equal(t, -1, adj.Bonus)
	assert.Equal(t, 59, adj.AdjustedScore)
	// tightening liquidity with sensitivity 8
	assert.Equal(t, RiskHigh, adj.RiskLevel)
}

func TestSectorFitUnknownSectorIsNeutral(t *testing.T) {
	e := NewEngine(nil)
	for _, phase := range Phases {
		for _, liq := range []Liquidity{LiquidityExpanding, LiquidityStable, LiquidityTightening} {
			fit := e.SectorFit("Shipbuilding", env(phase, liq, 9))
			assert.False(t, fit.Known)
			assert.Equal(t, 50.0, fit.Score)
			assert.Equal(t, OutlookNeutral, fit.Outlook)
			assert.Equal(t, 0, Bonus(fit.Score))
		}
	}
	assert.Equal(t, 50.0, e.SectorFit("", DefaultEnvironment()).Score)
}

func TestSectorLookupAliases(t *testing.T) {
	table := DefaultProfileTable()
	for _, s := range []string{"technology", " TECHNOLOGY ", "Information Technology", "tech"} {
		name, _, ok := table.Lookup(s)
		assert.True(t, ok, s)
		assert.Equal(t, "Technology", name)
	}
	name, _, ok := table.Lookup("Consumer Defensive")
	assert.True(t, ok)
	assert.Equal(t, "Consumer Staples", name)
}

func TestOutlookBoundaries(t *testing.T) {
	assert.Equal(t, OutlookBullish, outlookFor(70))
	assert.Equal(t, OutlookNeutral, outlookFor(69.99))
	assert.Equal(t, OutlookBearish, outlookFor(40))
	assert.Equal(t, OutlookNeutral, outlookFor(40.01))
}

func TestAdjustedScoreBounds(t *testing.T) {
	e := NewEngine(nil)
	sectors := append(e.Profiles().Sectors(), "Unknown")
	for _, sector := range sectors {
		for _, phase := range Phases {
			for _, liq := range []Liquidity{LiquidityExpanding, LiquidityStable, LiquidityTightening} {
				for _, rate := range []float64{-1, 0, 2.5, 5, 10, 25} {
					for _, base := range []int{0, 1, 50, 99, 100} {
						adj := e.Adjust(base, sector, env(phase, liq, rate))
						require.GreaterOrEqual(t, adj.AdjustedScore, 0)
						require.LessOrEqual(t, adj.AdjustedScore, MaxAdjustedScore)
						require.GreaterOrEqual(t, adj.Fit.Score, 0.0)
						require.LessOrEqual(t, adj.Fit.Score, 100.0)
						require.GreaterOrEqual(t, adj.Bonus, -10)
						require.LessOrEqual(t, adj.Bonus, 10)
					}
				}
			}
		}
	}
}

func TestAdjustCanExceedHundred(t *testing.T) {
	e := NewEngine(nil)
	// Real Estate in early expansion with easing liquidity and zero rates
	adj := e.Adjust(100, "Real Estate", env(PhaseEarlyExpansion, LiquidityExpanding, 0))
	assert.Greater(t, adj.Bonus, 0)
	assert.Greater(t, adj.AdjustedScore, 100)
	assert.Equal(t, OutlookBullish, adj.Outlook)

	adj = e.Adjust(0, "Real Estate", env(PhaseRecession, LiquidityTightening, 10))
	assert.Equal(t, 0, adj.AdjustedScore)
}

func TestRiskLevelPriority(t *testing.T) {
	e := NewEngine(nil)
	tests := []struct {
		name   string
		sector string
		env    Environment
		want   RiskLevel
	}{
		{"defensive in recession", "Utilities", env(PhaseRecession, LiquidityTightening, 5), RiskLow},
		{"cyclical in recession", "Consumer Discretionary", env(PhaseRecession, LiquidityExpanding, 1), RiskHigh},
		{"liquidity sensitive while tightening", "Real Estate", env(PhaseMidExpansion, LiquidityTightening, 5), RiskHigh},
		{"strong fit", "Technology", env(PhaseMidExpansion, LiquidityExpanding, 2), RiskLow},
		{"nothing special", "Healthcare", env(PhaseMidExpansion, LiquidityStable, 5), RiskMedium},
		{"unknown sector in recession", "Unknown", env(PhaseRecession, LiquidityStable, 5), RiskMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Adjust(50, tt.sector, tt.env).RiskLevel)
		})
	}
}

func TestProfileTableWithIsCopyOnWrite(t *testing.T) {
	base := DefaultProfileTable()
	custom := profile(10, 10, 10, 10, 0, 0, 5, 5)

	next, err := base.With("tech", custom)
	require.NoError(t, err)

	_, p, _ := base.Lookup("Technology")
	assert.Equal(t, 6.0, p.PhaseScores[PhaseLateExpansion], "original table must not change")
	name, p, ok := next.Lookup("Technology")
	require.True(t, ok)
	assert.Equal(t, "Technology", name)
	assert.Equal(t, 10.0, p.PhaseScores[PhaseLateExpansion])

	added, err := base.With("Shipbuilding", custom)
	require.NoError(t, err)
	_, _, ok = added.Lookup("shipbuilding")
	assert.True(t, ok)
	_, _, ok = base.Lookup("shipbuilding")
	assert.False(t, ok)

	_, err = base.With("Bad", profile(11, 5, 5, 5, 0, 0, 5, 5))
	assert.Error(t, err)
	_, err = base.With("", custom)
	assert.Error(t, err)
}

func TestNewProfileTableRejectsDanglingAlias(t *testing.T) {
	_, err := NewProfileTable(DefaultProfiles(), map[string]string{"chips": "Semiconductors"})
	assert.Error(t, err)
}

func TestParseEnums(t *testing.T) {
	p, err := ParsePhase("Late_Expansion")
	require.NoError(t, err)
	assert.Equal(t, PhaseLateExpansion, p)

	l, err := ParseLiquidity("easing")
	require.NoError(t, err)
	assert.Equal(t, LiquidityExpanding, l)

	s, err := ParseSentiment("Risk Off")
	require.NoError(t, err)
	assert.Equal(t, SentimentRiskOff, s)

	_, err = ParsePhase("boom")
	assert.ErrorIs(t, err, ErrInvalidEnvironment)
}

func TestEnvironmentValidate(t *testing.T) {
	assert.NoError(t, DefaultEnvironment().Validate())

	bad := DefaultEnvironment()
	bad.VIX = -1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidEnvironment)

	bad = DefaultEnvironment()
	bad.Liquidity = "sloshing"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidEnvironment)

	for _, edit := range []func(*Environment){
		func(e *Environment) { e.PolicyRate = math.NaN() },
		func(e *Environment) { e.Inflation = math.Inf(1) },
		func(e *Environment) { e.VIX = math.Inf(1) },
		func(e *Environment) { e.CreditSpread = math.Inf(-1) },
		func(e *Environment) { e.YieldCurveSpread = math.NaN() },
	} {
		bad = DefaultEnvironment()
		edit(&bad)
		assert.ErrorIs(t, bad.Validate(), ErrInvalidEnvironment)
	}

	s, err := NewStore(DefaultEnvironment(), nil)
	require.NoError(t, err)
	bad = DefaultEnvironment()
	bad.PolicyRate = math.NaN()
	assert.Error(t, s.SetEnvironment(bad))
	assert.Equal(t, 5.0, s.Current().PolicyRate)
}

func TestParsePhaseScores(t *testing.T) {
	got, err := ParsePhaseScores("early=8, mid-expansion=9,late=6.5,recession=3")
	require.NoError(t, err)
	assert.Equal(t, map[Phase]float64{
		PhaseEarlyExpansion: 8,
		PhaseMidExpansion:   9,
		PhaseLateExpansion:  6.5,
		PhaseRecession:      3,
	}, got)

	got, err = ParsePhaseScores("contraction=2")
	require.NoError(t, err)
	assert.Equal(t, map[Phase]float64{PhaseRecession: 2}, got)

	_, err = ParsePhaseScores("early:8")
	assert.Error(t, err)
	_, err = ParsePhaseScores("boom=8")
	assert.ErrorIs(t, err, ErrInvalidEnvironment)
	_, err = ParsePhaseScores("early=high")
	assert.Error(t, err)
}
