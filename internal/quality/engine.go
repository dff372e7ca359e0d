// Package quality computes the eight-pillar quality score of a company from its
// annual statements.
//
// Evaluation never fails: a pillar whose inputs are missing, or whose ratio has
// a non-positive denominator, reports a nil measured value and does not pass.
package quality

import (
	"fmt"
	"math"

	"gem-scanner/internal/financials"
)

// Engine evaluates datasets against a fixed set of thresholds. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	th Thresholds
}

// NewEngine creates an engine. A zero Window falls back to the defaults.
func NewEngine(th Thresholds) *Engine {
	def := DefaultThresholds()
	if th.Window <= 0 {
		th.Window = def.Window
	}
	if th.Window > financials.MaxYears {
		th.Window = financials.MaxYears
	}
	return &Engine{th: th}
}

// Thresholds returns the cut-offs in use.
func (e *Engine) Thresholds() Thresholds {
	return e.th
}

// Evaluate scores the dataset. A nil dataset scores zero on every pillar.
func (e *Engine) Evaluate(d *financials.Dataset) *Score {
	if d == nil {
		d = &financials.Dataset{}
	}

	fcf := d.FreeCashFlow()
	netIncome := d.NetIncome()

	pillars := []PillarResult{
		e.pe(d, netIncome),
		e.roic(d, fcf),
		e.shares(d),
		growthPillar(PillarFCFGrowth, fcf, true),
		growthPillar(PillarNetIncomeGrowth, netIncome, true),
		growthPillar(PillarRevenueGrowth, d.Revenue(), false),
		e.debtCoverage(d, fcf),
		e.priceToFCF(d, fcf),
	}

	score := &Score{
		Symbol:    d.Symbol,
		Pillars:   pillars,
		Auxiliary: auxiliary(d),
	}
	for _, p := range pillars {
		if p.Passed {
			score.Total++
		}
		switch p.ID {
		case PillarShares:
			score.SharesDecreasing = p.Passed
		case PillarFCFGrowth:
			score.Growth.FCFGrowing = p.Passed
		case PillarNetIncomeGrowth:
			score.Growth.NetIncomeGrowing = p.Passed
		case PillarRevenueGrowth:
			score.Growth.RevenueGrowing = p.Passed
		}
	}
	return score
}

func newPillar(id PillarID, threshold string) PillarResult {
	return PillarResult{
		ID:        id,
		Key:       id.Key(),
		Name:      id.String(),
		Threshold: threshold,
	}
}

// pe: market cap over summed net income of the window; 0 < r < MaxPE.
func (e *Engine) pe(d *financials.Dataset, netIncome financials.Series) PillarResult {
	p := newPillar(PillarPE, fmt.Sprintf("0 < P/E < %g", e.th.MaxPE))
	mc, ok := d.MarketCap()
	if !ok {
		return p
	}
	sum, ok := netIncome.Sum(e.th.Window)
	if !ok || sum <= 0 {
		return p
	}
	r := mc / sum
	p.MeasuredValue = &r
	p.Passed = r > 0 && r < e.th.MaxPE
	return p
}

// roic: summed FCF over latest invested capital (equity + debt), as a percentage.
func (e *Engine) roic(d *financials.Dataset, fcf financials.Series) PillarResult {
	p := newPillar(PillarROIC, fmt.Sprintf("ROIC > %g%%", e.th.MinROIC))
	sum, ok := fcf.Sum(e.th.Window)
	if !ok {
		return p
	}
	bs, ok := d.LatestBalance()
	if !ok {
		return p
	}
	equity, ok := financials.Value(bs.TotalEquity)
	if !ok {
		return p
	}
	debt, ok := bs.Debt()
	if !ok {
		return p
	}
	capital := equity + debt
	if capital <= 0 {
		return p
	}
	r := sum / capital * 100
	p.MeasuredValue = &r
	p.Passed = r > e.th.MinROIC
	return p
}

// shares: percent change of weighted shares from the oldest record; passes on net buybacks.
func (e *Engine) shares(d *financials.Dataset) PillarResult {
	p := newPillar(PillarShares, "current < oldest")
	s := d.WeightedShares()
	current, ok := s.Latest()
	if !ok {
		return p
	}
	oldest, ok := s.Oldest()
	if !ok || oldest <= 0 {
		return p
	}
	change := (current - oldest) / oldest * 100
	p.MeasuredValue = &change
	p.Passed = current < oldest
	return p
}

// growthPillar compares the latest value with the oldest available one. The
// measured value is the percent change against |oldest|, or the absolute
// change when the oldest value is zero.
func growthPillar(id PillarID, s financials.Series, requirePositive bool) PillarResult {
	threshold := "latest > oldest"
	if requirePositive {
		threshold = "latest > oldest and latest > 0"
	}
	p := newPillar(id, threshold)

	latest, ok := s.Latest()
	if !ok {
		return p
	}
	oldest, ok := s.Oldest()
	if !ok {
		return p
	}
	change, ok := financials.YoYGrowth(latest, oldest)
	if !ok {
		change = latest - oldest
	}
	p.MeasuredValue = &change
	p.Passed = latest > oldest && (!requirePositive || latest > 0)
	return p
}

// debtCoverage: latest long-term debt over average FCF; years to repay.
func (e *Engine) debtCoverage(d *financials.Dataset, fcf financials.Series) PillarResult {
	p := newPillar(PillarDebtCoverage, fmt.Sprintf("avg FCF > 0 and debt/FCF < %g", e.th.MaxDebtCoverage))
	bs, ok := d.LatestBalance()
	if !ok {
		return p
	}
	ltd, ok := financials.Value(bs.LongTermDebt)
	if !ok {
		ltd, ok = financials.Value(bs.TotalDebt)
		if !ok {
			return p
		}
	}
	avg, ok := fcf.Average(e.th.Window)
	if !ok || avg <= 0 {
		return p
	}
	r := ltd / avg
	p.MeasuredValue = &r
	p.Passed = r < e.th.MaxDebtCoverage
	return p
}

// priceToFCF: market cap over summed FCF of the window.
func (e *Engine) priceToFCF(d *financials.Dataset, fcf financials.Series) PillarResult {
	p := newPillar(PillarPriceToFCF, fmt.Sprintf("0 < P/FCF < %g", e.th.MaxPriceToFCF))
	mc, ok := d.MarketCap()
	if !ok {
		return p
	}
	sum, ok := fcf.Sum(e.th.Window)
	if !ok || sum <= 0 {
		return p
	}
	r := mc / sum
	p.MeasuredValue = &r
	p.Passed = r > 0 && r < e.th.MaxPriceToFCF
	return p
}

func auxiliary(d *financials.Dataset) AuxiliaryMetrics {
	var aux AuxiliaryMetrics
	if is, ok := d.LatestIncome(); ok {
		aux.GrossMargin = percentOf(is.GrossProfit, is.Revenue)
		aux.OperatingMargin = percentOf(is.OperatingIncome, is.Revenue)
		if bs, ok := d.LatestBalance(); ok {
			aux.ROE = percentOf(is.NetIncome, bs.TotalEquity)
		}
	}
	if bs, ok := d.LatestBalance(); ok {
		aux.CurrentRatio = ratio(bs.TotalCurrentAssets, bs.TotalCurrentLiabs)
	}
	return aux
}

func ratio(num, den *float64) *float64 {
	n, ok := financials.Value(num)
	if !ok {
		return nil
	}
	dv, ok := financials.Value(den)
	if !ok || dv <= 0 {
		return nil
	}
	r := n / dv
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return nil
	}
	return &r
}

func percentOf(num, den *float64) *float64 {
	r := ratio(num, den)
	if r == nil {
		return nil
	}
	v := *r * 100
	return &v
}
