// Package mock generates deterministic synthetic datasets for offline runs.
package mock

import (
	"context"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"time"

	"gem-scanner/internal/financials"
	"gem-scanner/internal/interfaces"
	"gem-scanner/internal/provider"
)

var sectors = []string{
	"Technology", "Healthcare", "Financials", "Consumer Discretionary", "Consumer Staples",
	"Energy", "Industrials", "Materials", "Utilities", "Real Estate", "Communication Services",
}

// Provider returns the same dataset for the same symbol on every call.
type Provider struct {
	market string
	now    func() time.Time
}

var (
	_ interfaces.DatasetProvider = (*Provider)(nil)
	_ interfaces.QuoteSource     = (*Provider)(nil)
)

func New(market string) *Provider {
	return &Provider{market: market, now: time.Now}
}

func (p *Provider) Name() string { return "mock" }

func seed(symbol string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return h.Sum64()
}

func ptr(v float64) *float64 { return &v }

// FetchDataset builds six years of statements. Symbols starting with "ZZ" are
// unknown.
func (p *Provider) FetchDataset(ctx context.Context, symbol string) (*financials.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || strings.HasPrefix(symbol, "ZZ") {
		return nil, provider.ErrNotFound
	}
	s := seed(symbol)
	r := rand.New(rand.NewPCG(s, s>>1))

	// revenue growth, net margin, FCF/NI, yearly share change, revenue, shares, multiple
	growth := -0.05 + r.Float64()*0.25
	margin := 0.04 + r.Float64()*0.20
	fcfRatio := 0.6 + r.Float64()*0.8
	shareDrift := -0.03 + r.Float64()*0.05
	revenue := 5e8 + r.Float64()*2e10
	shares := 5e7 + r.Float64()*1e9
	pe := 6 + r.Float64()*30

	year := p.now().Year() - 1
	d := &financials.Dataset{
		Symbol:    symbol,
		Market:    p.market,
		Profile:   &financials.Profile{CompanyName: symbol + " Holdings", Sector: sectors[s%uint64(len(sectors))]},
		FetchedAt: p.now().UTC(),
	}

	rev, sh := revenue, shares
	for i := 0; i < financials.MaxYears; i++ {
		ni := rev * margin
		fcf := ni * fcfRatio
		date := time.Date(year-i, 12, 31, 0, 0, 0, 0, time.UTC)
		d.IncomeStatements = append(d.IncomeStatements, financials.IncomeStatement{
			Date:                  date,
			FiscalYear:            year - i,
			Revenue:               ptr(rev),
			GrossProfit:           ptr(rev * (margin + 0.25)),
			OperatingIncome:       ptr(rev * (margin + 0.05)),
			NetIncome:             ptr(ni),
			EPS:                   ptr(ni / sh),
			WeightedAverageShares: ptr(sh),
		})
		equity := rev * 0.6
		d.BalanceSheets = append(d.BalanceSheets, financials.BalanceSheet{
			Date:               date,
			FiscalYear:         year - i,
			TotalCurrentAssets: ptr(rev * 0.4),
			TotalCurrentLiabs:  ptr(rev * (0.15 + r.Float64()*0.2)),
			TotalEquity:        ptr(equity),
			TotalDebt:          ptr(equity * r.Float64() * 0.8),
			LongTermDebt:       ptr(equity * r.Float64() * 0.5),
			CashAndEquivalents: ptr(rev * 0.1),
		})
		d.CashFlowStatements = append(d.CashFlowStatements, financials.CashFlowStatement{
			Date:               date,
			FiscalYear:         year - i,
			OperatingCashFlow:  ptr(fcf * 1.3),
			CapitalExpenditure: ptr(-fcf * 0.3),
			FreeCashFlow:       ptr(fcf),
		})
		rev /= 1 + growth
		sh /= 1 + shareDrift
	}

	latestNI := *d.IncomeStatements[0].NetIncome
	price := latestNI * pe / shares
	above := r.Float64() * 0.5
	below := r.Float64() * 0.4
	d.Quote = &financials.Quote{
		Price:             ptr(price),
		MarketCap:         ptr(price * shares),
		SharesOutstanding: ptr(shares),
		PE:                ptr(pe),
		EPS:               ptr(latestNI / shares),
		YearHigh:          ptr(price * (1 + above)),
		YearLow:           ptr(price * (1 - below)),
		PriceChange3MPct:  ptr(-25 + r.Float64()*50),
	}
	return d, nil
}

// FetchQuote returns the quote part of the symbol's dataset.
func (p *Provider) FetchQuote(ctx context.Context, symbol string) (*financials.Quote, error) {
	d, err := p.FetchDataset(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return d.Quote, nil
}
