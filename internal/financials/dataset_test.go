package financials

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesWindows(t *testing.T) {
	s := Series{Float(10), nil, Float(6), Float(4), Float(2), Float(1), Float(99)}

	assert.Equal(t, []float64{10, 6, 4, 2}, s.Recent(5))

	sum, ok := s.Sum(5)
	require.True(t, ok)
	assert.Equal(t, 22.0, sum)

	avg, ok := s.Average(5)
	require.True(t, ok)
	assert.Equal(t, 5.5, avg)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, 10.0, latest)

	// Seventh record is beyond the six-year window.
	oldest, ok := s.Oldest()
	require.True(t, ok)
	assert.Equal(t, 1.0, oldest)

	_, ok = s.Previous()
	assert.False(t, ok, "nil previous value must be missing")
}

func TestSeriesDegradesOnShortInput(t *testing.T) {
	var empty Series
	_, ok := empty.Sum(5)
	assert.False(t, ok)
	_, ok = empty.Latest()
	assert.False(t, ok)
	_, ok = empty.Oldest()
	assert.False(t, ok)

	single := Series{Float(3)}
	_, ok = single.Oldest()
	assert.False(t, ok, "single record has no older comparison point")
	assert.Equal(t, []float64{3}, single.Recent(5))

	allNil := Series{nil, nil}
	_, ok = allNil.Sum(5)
	assert.False(t, ok)
}

func TestValueRejectsNonFinite(t *testing.T) {
	_, ok := Value(Float(math.NaN()))
	assert.False(t, ok)
	_, ok = Value(Float(math.Inf(1)))
	assert.False(t, ok)
	v, ok := Value(Float(0))
	assert.True(t, ok, "reported zero is not missing")
	assert.Equal(t, 0.0, v)
}

func TestFreeCashFlowFallback(t *testing.T) {
	cf := []CashFlowStatement{
		{FreeCashFlow: Float(50)},
		{OperatingCashFlow: Float(100), CapitalExpenditure: Float(-30)},
		{OperatingCashFlow: Float(100)},
	}
	d := &Dataset{CashFlowStatements: cf}
	s := d.FreeCashFlow()

	require.Len(t, s, 3)
	assert.Equal(t, 50.0, *s[0])
	assert.Equal(t, 70.0, *s[1])
	assert.Nil(t, s[2])
}

func TestMarketCapAndObservedPE(t *testing.T) {
	tests := []struct {
		name     string
		dataset  Dataset
		wantCap  float64
		wantPE   float64
		wantPEOK bool
	}{
		{
			name:     "quoted pe wins",
			dataset:  Dataset{Quote: &Quote{MarketCap: Float(1000), PE: Float(12)}},
			wantCap:  1000,
			wantPE:   12,
			wantPEOK: true,
		},
		{
			name: "derived from latest net income",
			dataset: Dataset{
				Quote:            &Quote{Price: Float(10), SharesOutstanding: Float(100), PE: Float(-3)},
				IncomeStatements: []IncomeStatement{{NetIncome: Float(50)}},
			},
			wantCap:  1000,
			wantPE:   20,
			wantPEOK: true,
		},
		{
			name: "loss making has no multiple",
			dataset: Dataset{
				Quote:            &Quote{MarketCap: Float(1000)},
				IncomeStatements: []IncomeStatement{{NetIncome: Float(-5)}},
			},
			wantCap: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc, ok := tt.dataset.MarketCap()
			require.True(t, ok)
			assert.Equal(t, tt.wantCap, mc)

			pe, ok := tt.dataset.ObservedPE()
			assert.Equal(t, tt.wantPEOK, ok)
			if tt.wantPEOK {
				assert.InDelta(t, tt.wantPE, pe, 1e-9)
			}
		})
	}

	var noQuote Dataset
	_, ok := noQuote.MarketCap()
	assert.False(t, ok)
	assert.Equal(t, "", noQuote.Sector())
}

func TestYoYGrowth(t *testing.T) {
	g, ok := YoYGrowth(120, 100)
	require.True(t, ok)
	assert.InDelta(t, 20.0, g, 1e-9)

	g, ok = YoYGrowth(-50, -100)
	require.True(t, ok)
	assert.InDelta(t, 50.0, g, 1e-9, "shrinking loss counts as growth")

	_, ok = YoYGrowth(10, 0)
	assert.False(t, ok)

	d := Dataset{IncomeStatements: []IncomeStatement{
		{Revenue: Float(110), EPS: Float(2)},
		{Revenue: Float(100), EPS: nil},
	}}
	rg, ok := d.RevenueGrowthPct()
	require.True(t, ok)
	assert.InDelta(t, 10.0, rg, 1e-9)
	_, ok = d.EPSGrowthPct()
	assert.False(t, ok)
}

func TestTrim(t *testing.T) {
	d := Dataset{IncomeStatements: make([]IncomeStatement, 9)}
	d.Trim()
	assert.Len(t, d.IncomeStatements, MaxYears)
}
