// Package scoring composes the quality, valuation, tier, timeframe and macro
// stages into one pass over a dataset.
package scoring

import (
	"context"
	"time"

	"gem-scanner/internal/financials"
	"gem-scanner/internal/macro"
	"gem-scanner/internal/quality"
	"gem-scanner/internal/tier"
	"gem-scanner/internal/timeframe"
	"gem-scanner/internal/valuation"
)

// MacroSnapshot pins the macro engine and environment for a batch of scores.
type MacroSnapshot struct {
	Engine      *macro.Engine
	Environment macro.Environment
}

// Options tune a single scoring pass.
type Options struct {
	Horizon  timeframe.Horizon
	Scanning bool
	// Macro overrides the pipeline's live snapshot. Scans set it once so every
	// symbol sees the same environment.
	Macro *MacroSnapshot
}

// Result is the full evaluation of one dataset.
type Result struct {
	Symbol      string   `json:"symbol"`
	Market      string   `json:"market,omitempty"`
	CompanyName string   `json:"company_name,omitempty"`
	Sector      string   `json:"sector,omitempty"`
	Price       *float64 `json:"price"`
	MarketCap   *float64 `json:"market_cap"`
	LatestFCF   *float64 `json:"latest_fcf"`

	Quality   *quality.Score   `json:"quality"`
	Valuation valuation.Result `json:"valuation"`
	Tier      tier.Assignment  `json:"tier"`

	Horizon  timeframe.Result                       `json:"horizon"`
	Horizons map[timeframe.Horizon]timeframe.Result `json:"horizons"`
	Macro    macro.Adjustment                       `json:"macro"`

	ScoredAt time.Time `json:"scored_at"`
}

// Pipeline holds the engines built from reference configuration.
type Pipeline struct {
	quality    *quality.Engine
	valuation  valuation.Model
	classifier *tier.Classifier
	timeframes *timeframe.Scorer
	macro      *macro.Store
	now        func() time.Time
}

// Config carries the reference tables each engine is built from.
type Config struct {
	Quality    quality.Thresholds
	Valuation  valuation.Model
	Tier       tier.Policy
	Timeframes timeframe.Profiles
}

// DefaultConfig returns the built-in reference tables.
func DefaultConfig() Config {
	return Config{
		Quality:    quality.DefaultThresholds(),
		Valuation:  valuation.DefaultModel(),
		Tier:       tier.DefaultPolicy(),
		Timeframes: timeframe.DefaultProfiles(),
	}
}

// NewPipeline builds a pipeline. store supplies the macro snapshot when Options
// does not; a nil store uses the default environment and profiles.
func NewPipeline(cfg Config, store *macro.Store) *Pipeline {
	if store == nil {
		store, _ = macro.NewStore(macro.DefaultEnvironment(), nil)
	}
	return &Pipeline{
		quality:    quality.NewEngine(cfg.Quality),
		valuation:  cfg.Valuation,
		classifier: tier.NewClassifier(cfg.Tier),
		timeframes: timeframe.NewScorer(cfg.Timeframes),
		macro:      store,
		now:        time.Now,
	}
}

// MacroSnapshot reads the store once.
func (p *Pipeline) MacroSnapshot() *MacroSnapshot {
	engine, env := p.macro.Snapshot()
	return &MacroSnapshot{Engine: engine, Environment: env}
}

// Score evaluates d. It never fails; missing data shows up as nil fields and
// an empty tier.
func (p *Pipeline) Score(_ context.Context, d *financials.Dataset, opts Options) *Result {
	if d == nil {
		d = &financials.Dataset{}
	}
	snap := opts.Macro
	if snap == nil {
		snap = p.MacroSnapshot()
	}
	horizon := opts.Horizon
	if _, ok := timeframe.ParseHorizon(string(horizon)); !ok {
		horizon = timeframe.Long
	}

	res := &Result{
		Symbol:   d.Symbol,
		Market:   d.Market,
		Sector:   d.Sector(),
		ScoredAt: p.now().UTC(),
	}
	if d.Profile != nil {
		res.CompanyName = d.Profile.CompanyName
	}
	if d.Quote != nil {
		res.Price = d.Quote.Price
	}
	if mc, ok := d.MarketCap(); ok {
		res.MarketCap = &mc
	}
	if fcf, ok := d.FreeCashFlow().Latest(); ok {
		res.LatestFCF = &fcf
	}

	res.Quality = p.quality.Evaluate(d)

	var observed *float64
	if pe, ok := d.ObservedPE(); ok {
		observed = &pe
	}
	res.Valuation = p.valuation.Evaluate(res.Quality.Total, observed)

	res.Tier = p.classifier.Classify(tier.Input{
		QMScore:           res.Quality.Total,
		ValueGapPercent:   res.Valuation.ValueGapPercent,
		GrowthSignalCount: res.Quality.Growth.Count(),
		SharesDecreasing:  res.Quality.SharesDecreasing,
		MarketCap:         res.MarketCap,
		LatestFCF:         res.LatestFCF,
		Scanning:          opts.Scanning,
	})

	res.Horizons = p.timeframes.ScoreAll(signals(d, res))
	res.Horizon = res.Horizons[horizon]

	res.Macro = snap.Engine.Adjust(res.Horizon.Score, res.Sector, snap.Environment)
	return res
}

func signals(d *financials.Dataset, res *Result) timeframe.Signals {
	sig := timeframe.Signals{
		QMScore:         res.Quality.Total,
		ValueGapPercent: res.Valuation.ValueGapPercent,
		ObservedPE:      res.Valuation.ObservedPE,
		MarketCap:       res.MarketCap,
	}
	if g, ok := d.RevenueGrowthPct(); ok {
		sig.RevenueGrowthPct = &g
	}
	if g, ok := d.EPSGrowthPct(); ok {
		sig.EPSGrowthPct = &g
	}
	if q := d.Quote; q != nil {
		sig.Price = q.Price
		sig.YearHigh = q.YearHigh
		sig.YearLow = q.YearLow
		sig.PriceChange3MPct = q.PriceChange3MPct
	}
	return sig
}
