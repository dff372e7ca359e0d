package timeframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func strongSignals() Signals {
	return Signals{
		QMScore:          8,
		ValueGapPercent:  fp(45),
		ObservedPE:       fp(10),
		RevenueGrowthPct: fp(20),
		EPSGrowthPct:     fp(30),
		Price:            fp(90),
		YearLow:          fp(60),
		YearHigh:         fp(120),
		PriceChange3MPct: fp(15),
		MarketCap:        fp(2e9),
	}
}

func TestDefaultProfilesValid(t *testing.T) {
	require.NoError(t, DefaultProfiles().Validate())

	bad := DefaultProfiles()
	p := bad[Short]
	p.Weights.Momentum = 0.6
	bad[Short] = p
	assert.Error(t, bad.Validate())

	missing := DefaultProfiles()
	delete(missing, Medium)
	assert.Error(t, missing.Validate())
}

func TestNormalize(t *testing.T) {
	c := Normalize(strongSignals())
	assert.InDelta(t, 80.0, c.Quality, 1e-9)
	assert.InDelta(t, 72.5, c.Value, 1e-9)
	assert.InDelta(t, 45*100.0/70, c.Growth, 1e-9)
	assert.InDelta(t, 62.5, c.Momentum, 1e-9)

	neutral := Normalize(Signals{})
	assert.Equal(t, Components{Quality: 0, Value: 50, Growth: 50, Momentum: 50}, neutral)

	clamped := Normalize(Signals{QMScore: 20, ValueGapPercent: fp(-300), RevenueGrowthPct: fp(90)})
	assert.Equal(t, 100.0, clamped.Quality)
	assert.Equal(t, 0.0, clamped.Value)
	assert.Equal(t, 100.0, clamped.Growth)
}

func TestMomentumEdges(t *testing.T) {
	flat := Signals{Price: fp(10), YearHigh: fp(10), YearLow: fp(10)}
	assert.Equal(t, 50.0, Normalize(flat).Momentum)

	atHigh := Signals{Price: fp(130), YearHigh: fp(120), YearLow: fp(60), PriceChange3MPct: fp(80)}
	assert.Equal(t, 100.0, Normalize(atHigh).Momentum)

	crashed := Signals{Price: fp(50), YearHigh: fp(120), YearLow: fp(60), PriceChange3MPct: fp(-45)}
	assert.Equal(t, 0.0, Normalize(crashed).Momentum)

	noBounds := Signals{Price: fp(50), PriceChange3MPct: fp(30)}
	assert.Equal(t, 50.0, Normalize(noBounds).Momentum)
}

func TestScorePerHorizon(t *testing.T) {
	s := NewScorer(nil)
	sig := strongSignals()

	tests := []struct {
		horizon Horizon
		score   int
		rating  Rating
		gem     string
	}{
		{Long, 73, Buy, "Gold"},
		{Medium, 71, Buy, "Emerging Gem"},
		{Short, 67, Buy, "Swing Candidate"},
	}
	for _, tt := range tests {
		t.Run(string(tt.horizon), func(t *testing.T) {
			r := s.Score(sig, tt.horizon)
			assert.Equal(t, tt.horizon, r.Horizon)
			assert.Equal(t, tt.score, r.Score)
			assert.Equal(t, tt.rating, r.Rating)
			assert.True(t, r.Admitted)
			assert.Equal(t, tt.gem, r.GemTier)
		})
	}

	all := s.ScoreAll(sig)
	assert.Len(t, all, 3)
	assert.Equal(t, 73, all[Long].Score)
}

func TestScoreAdmissionAndCriteria(t *testing.T) {
	s := NewScorer(nil)

	expensive := strongSignals()
	expensive.ObservedPE = fp(28)
	r := s.Score(expensive, Long)
	assert.False(t, r.Admitted)
	assert.Empty(t, r.GemTier)
	assert.True(t, s.Score(expensive, Medium).Admitted)

	noPE := strongSignals()
	noPE.ObservedPE = nil
	assert.False(t, s.Score(noPE, Short).Admitted)

	weakMomentum := strongSignals()
	weakMomentum.PriceChange3MPct = fp(-30)
	r = s.Score(weakMomentum, Short)
	assert.True(t, r.Admitted)
	assert.Empty(t, r.GemTier, "short horizon requires momentum")

	shrinking := strongSignals()
	shrinking.RevenueGrowthPct = fp(-5)
	shrinking.EPSGrowthPct = fp(-5)
	r = s.Score(shrinking, Medium)
	assert.True(t, r.Admitted)
	assert.Empty(t, r.GemTier, "medium horizon requires growth")

	mega := strongSignals()
	mega.MarketCap = fp(80e9)
	assert.Empty(t, s.Score(mega, Long).GemTier)
	assert.Equal(t, "Swing Candidate", s.Score(mega, Short).GemTier)
}

func TestScoreUnknownHorizonUsesLong(t *testing.T) {
	s := NewScorer(nil)
	r := s.Score(strongSignals(), Horizon("decade"))
	assert.Equal(t, Long, r.Horizon)

	h, ok := ParseHorizon("")
	assert.False(t, ok)
	assert.Equal(t, Long, h)
	h, ok = ParseHorizon("Short-Term")
	assert.True(t, ok)
	assert.Equal(t, Short, h)
}

func TestRatingBands(t *testing.T) {
	assert.Equal(t, StrongBuy, RatingFor(75))
	assert.Equal(t, Buy, RatingFor(74))
	assert.Equal(t, Buy, RatingFor(55))
	assert.Equal(t, Hold, RatingFor(54))
	assert.Equal(t, Hold, RatingFor(35))
	assert.Equal(t, Sell, RatingFor(34))
}

func TestInjectedProfiles(t *testing.T) {
	custom := DefaultProfiles()[Long]
	custom.Weights = Weights{Quality: 1}
	custom.Tiers = []GemTier{{Name: "Keeper", MinScore: 80}}
	s := NewScorer(Profiles{Long: custom})

	r := s.Score(strongSignals(), Long)
	assert.Equal(t, 80, r.Score)
	assert.Equal(t, "Keeper", r.GemTier)
	// other horizons keep defaults
	assert.Equal(t, 67, s.Score(strongSignals(), Short).Score)
}
