package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gem-scanner/internal/financials"
)

var f = financials.Float

// compounder passes every pillar.
func compounder() *financials.Dataset {
	d := &financials.Dataset{
		Symbol:  "GEM",
		Quote:   &financials.Quote{MarketCap: f(1000)},
		Profile: &financials.Profile{Sector: "Technology"},
	}
	for i := 0; i < 6; i++ {
		step := float64(i)
		d.IncomeStatements = append(d.IncomeStatements, financials.IncomeStatement{
			FiscalYear:            2024 - i,
			Revenue:               f(1000 - 100*step),
			GrossProfit:           f(400 - 40*step),
			OperatingIncome:       f(200 - 20*step),
			NetIncome:             f(100 - 10*step),
			WeightedAverageShares: f(90 + 2*step),
		})
		d.CashFlowStatements = append(d.CashFlowStatements, financials.CashFlowStatement{
			FiscalYear:   2024 - i,
			FreeCashFlow: f(120 - 10*step),
		})
		d.BalanceSheets = append(d.BalanceSheets, financials.BalanceSheet{
			FiscalYear:         2024 - i,
			TotalEquity:        f(800),
			TotalDebt:          f(200),
			LongTermDebt:       f(150),
			TotalCurrentAssets: f(300),
			TotalCurrentLiabs:  f(150),
		})
	}
	return d
}

func measured(t *testing.T, s *Score, id PillarID) float64 {
	t.Helper()
	p, ok := s.Pillar(id)
	require.True(t, ok)
	require.NotNil(t, p.MeasuredValue, id.String())
	return *p.MeasuredValue
}

func assertConsistent(t *testing.T, s *Score) {
	t.Helper()
	require.Len(t, s.Pillars, PillarCount)
	passed := 0
	for _, p := range s.Pillars {
		if p.MeasuredValue == nil {
			assert.False(t, p.Passed, "%s passed without a measured value", p.Name)
		}
		if p.Passed {
			passed++
		}
	}
	assert.Equal(t, passed, s.Total)
	assert.GreaterOrEqual(t, s.Total, 0)
	assert.LessOrEqual(t, s.Total, PillarCount)
}

func TestEvaluateAllPillarsPass(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	s := e.Evaluate(compounder())

	assertConsistent(t, s)
	assert.Equal(t, 8, s.Total)
	assert.Equal(t, "GEM", s.Symbol)

	assert.InDelta(t, 2.5, measured(t, s, PillarPE), 1e-9)
	assert.InDelta(t, 50.0, measured(t, s, PillarROIC), 1e-9)
	assert.InDelta(t, -10.0, measured(t, s, PillarShares), 1e-9)
	assert.InDelta(t, 1.5, measured(t, s, PillarDebtCoverage), 1e-9)
	assert.InDelta(t, 2.0, measured(t, s, PillarPriceToFCF), 1e-9)
	// 120 vs 70 six years back
	assert.InDelta(t, 50.0/70.0*100, measured(t, s, PillarFCFGrowth), 1e-9)

	assert.True(t, s.SharesDecreasing)
	assert.Equal(t, GrowthSignals{RevenueGrowing: true, NetIncomeGrowing: true, FCFGrowing: true}, s.Growth)
	assert.Equal(t, 3, s.Growth.Count())

	require.NotNil(t, s.Auxiliary.ROE)
	assert.InDelta(t, 12.5, *s.Auxiliary.ROE, 1e-9)
	assert.InDelta(t, 40.0, *s.Auxiliary.GrossMargin, 1e-9)
	assert.InDelta(t, 20.0, *s.Auxiliary.OperatingMargin, 1e-9)
	assert.InDelta(t, 2.0, *s.Auxiliary.CurrentRatio, 1e-9)
}

func TestEvaluateMissingData(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(d *financials.Dataset)
		nilPillar []PillarID
		wantTotal int
	}{
		{
			name:      "no quote",
			mutate:    func(d *financials.Dataset) { d.Quote = nil },
			nilPillar: []PillarID{PillarPE, PillarPriceToFCF},
			wantTotal: 6,
		},
		{
			name: "single year of history",
			mutate: func(d *financials.Dataset) {
				d.IncomeStatements = d.IncomeStatements[:1]
				d.CashFlowStatements = d.CashFlowStatements[:1]
				d.BalanceSheets = d.BalanceSheets[:1]
			},
			nilPillar: []PillarID{PillarShares, PillarFCFGrowth, PillarNetIncomeGrowth, PillarRevenueGrowth},
			wantTotal: 4,
		},
		{
			name: "net income sums to zero",
			mutate: func(d *financials.Dataset) {
				for i := range d.IncomeStatements {
					d.IncomeStatements[i].NetIncome = f(0)
				}
			},
			nilPillar: []PillarID{PillarPE, PillarNetIncomeGrowth},
			wantTotal: 6,
		},
		{
			name: "no balance sheets",
			mutate: func(d *financials.Dataset) {
				d.BalanceSheets = nil
			},
			nilPillar: []PillarID{PillarROIC, PillarDebtCoverage},
			wantTotal: 6,
		},
		{
			name: "negative average fcf",
			mutate: func(d *financials.Dataset) {
				for i := range d.CashFlowStatements {
					d.CashFlowStatements[i].FreeCashFlow = f(-10)
				}
			},
			nilPillar: []PillarID{PillarDebtCoverage, PillarPriceToFCF},
			wantTotal: 4,
		},
	}

	e := NewEngine(DefaultThresholds())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := compounder()
			tt.mutate(d)
			s := e.Evaluate(d)

			assertConsistent(t, s)
			for _, id := range tt.nilPillar {
				p, _ := s.Pillar(id)
				assert.Nil(t, p.MeasuredValue, id.String())
				assert.False(t, p.Passed, id.String())
			}
			assert.Equal(t, tt.wantTotal, s.Total)
		})
	}
}

func TestEvaluateThresholdEdges(t *testing.T) {
	e := NewEngine(DefaultThresholds())

	// P/E exactly at the ceiling does not pass.
	d := compounder()
	d.Quote.MarketCap = f(22.5 * 400)
	s := e.Evaluate(d)
	assert.InDelta(t, 22.5, measured(t, s, PillarPE), 1e-9)
	p, _ := s.Pillar(PillarPE)
	assert.False(t, p.Passed)

	// Flat shares are not buybacks.
	d = compounder()
	for i := range d.IncomeStatements {
		d.IncomeStatements[i].WeightedAverageShares = f(100)
	}
	s = e.Evaluate(d)
	assert.False(t, s.SharesDecreasing)
	assert.Equal(t, 0.0, measured(t, s, PillarShares))

	// FCF growth requires the latest year to be positive.
	d = compounder()
	d.CashFlowStatements[0].FreeCashFlow = f(-1)
	d.CashFlowStatements[5].FreeCashFlow = f(-50)
	s = e.Evaluate(d)
	assert.False(t, s.Growth.FCFGrowing)
	assert.NotNil(t, s.Pillars[PillarFCFGrowth].MeasuredValue)
}

func TestEvaluateGrowthFromZero(t *testing.T) {
	d := compounder()
	d.IncomeStatements = d.IncomeStatements[:3]
	d.CashFlowStatements = d.CashFlowStatements[:3]
	for i, v := range []struct{ rev, ni, fcf float64 }{{1000, 100, 80}, {500, 50, 40}, {0, 0, 0}} {
		d.IncomeStatements[i].Revenue = f(v.rev)
		d.IncomeStatements[i].NetIncome = f(v.ni)
		d.CashFlowStatements[i].FreeCashFlow = f(v.fcf)
	}

	s := NewEngine(DefaultThresholds()).Evaluate(d)
	assertConsistent(t, s)
	assert.Equal(t, GrowthSignals{RevenueGrowing: true, NetIncomeGrowing: true, FCFGrowing: true}, s.Growth)
	assert.Equal(t, 1000.0, measured(t, s, PillarRevenueGrowth))
	assert.Equal(t, 100.0, measured(t, s, PillarNetIncomeGrowth))
	assert.Equal(t, 80.0, measured(t, s, PillarFCFGrowth))

	// flat at zero is not growth
	d.IncomeStatements[0].Revenue = f(0)
	d.IncomeStatements[2].Revenue = f(0)
	s = NewEngine(DefaultThresholds()).Evaluate(d)
	assert.False(t, s.Growth.RevenueGrowing)
	assert.Equal(t, 0.0, measured(t, s, PillarRevenueGrowth))
}

func TestEvaluateFallsBackToDerivedFCF(t *testing.T) {
	d := compounder()
	for i := range d.CashFlowStatements {
		d.CashFlowStatements[i].FreeCashFlow = nil
		d.CashFlowStatements[i].OperatingCashFlow = f(150 - 10*float64(i))
		d.CashFlowStatements[i].CapitalExpenditure = f(-30)
	}
	s := NewEngine(DefaultThresholds()).Evaluate(d)
	assert.Equal(t, 8, s.Total)
	assert.InDelta(t, 2.0, measured(t, s, PillarPriceToFCF), 1e-9)
}

func TestEvaluateNilDataset(t *testing.T) {
	s := NewEngine(Thresholds{}).Evaluate(nil)
	assertConsistent(t, s)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0, s.Growth.Count())
}

func TestPillarOrderIndependence(t *testing.T) {
	s := NewEngine(DefaultThresholds()).Evaluate(compounder())
	reversed := make([]PillarResult, len(s.Pillars))
	for i, p := range s.Pillars {
		reversed[len(s.Pillars)-1-i] = p
	}
	count := 0
	for _, p := range reversed {
		if p.Passed {
			count++
		}
	}
	assert.Equal(t, s.Total, count)
	assert.Equal(t, "pe_5y", s.Pillars[0].Key)
	assert.Equal(t, "unknown", PillarID(42).String())
}
