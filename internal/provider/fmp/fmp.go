// Package fmp fetches fundamentals from the Financial Modeling Prep REST API.
package fmp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"gem-scanner/internal/api"
	"gem-scanner/internal/financials"
	"gem-scanner/internal/interfaces"
	"gem-scanner/internal/logger"
	"gem-scanner/internal/provider"
)

const DefaultBaseURL = "https://financialmodelingprep.com/api/v3"

// Config configures the client.
type Config struct {
	BaseURL string
	APIKey  string
	Market  string
	Timeout time.Duration
	Limiter api.Waiter
	Retry   *api.RetryConfig
}

// Provider implements interfaces.DatasetProvider on FMP.
type Provider struct {
	client *api.Client
	market string
	now    func() time.Time
}

var _ interfaces.DatasetProvider = (*Provider)(nil)

// New creates a provider. An empty BaseURL uses the public endpoint.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("fmp: api key is required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	opts := []api.ClientOption{
		api.WithBaseURL(strings.TrimRight(base, "/")),
		api.WithQueryParam("apikey", cfg.APIKey),
		api.WithHeader("Accept", "application/json"),
		api.WithLogging(true),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, api.WithTimeout(cfg.Timeout))
	}
	if cfg.Limiter != nil {
		opts = append(opts, api.WithLimiter(cfg.Limiter))
	}
	if cfg.Retry != nil {
		opts = append(opts, api.WithRetry(cfg.Retry))
	}
	return &Provider{client: api.NewClient(opts...), market: cfg.Market, now: time.Now}, nil
}

func (p *Provider) Name() string { return "fmp" }

// FetchDataset assembles quote, profile and statements. A failing statement
// endpoint yields an empty slice; only a symbol with neither quote nor
// statements is provider.ErrNotFound.
func (p *Provider) FetchDataset(ctx context.Context, symbol string) (*financials.Dataset, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.New("fmp: empty symbol")
	}
	d := &financials.Dataset{Symbol: symbol, Market: p.market, FetchedAt: p.now().UTC()}

	quote, err := p.fetchQuote(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn(ctx, "fmp quote unavailable", "symbol", symbol, "error", err)
	}
	d.Quote = quote

	if prof, err := p.fetchProfile(ctx, symbol); err != nil {
		logger.Warn(ctx, "fmp profile unavailable", "symbol", symbol, "error", err)
	} else {
		d.Profile = prof
	}

	params := url.Values{"limit": {strconv.Itoa(financials.MaxYears)}}
	if body, err := p.get(ctx, "/income-statement/"+symbol, params); err != nil {
		logger.Warn(ctx, "fmp income statements unavailable", "symbol", symbol, "error", err)
	} else {
		d.IncomeStatements = ParseIncomeStatements(body)
	}
	if body, err := p.get(ctx, "/balance-sheet-statement/"+symbol, params); err != nil {
		logger.Warn(ctx, "fmp balance sheets unavailable", "symbol", symbol, "error", err)
	} else {
		d.BalanceSheets = ParseBalanceSheets(body)
	}
	if body, err := p.get(ctx, "/cash-flow-statement/"+symbol, params); err != nil {
		logger.Warn(ctx, "fmp cash flow statements unavailable", "symbol", symbol, "error", err)
	} else {
		d.CashFlowStatements = ParseCashFlowStatements(body)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if d.Quote == nil && len(d.IncomeStatements) == 0 && len(d.BalanceSheets) == 0 && len(d.CashFlowStatements) == 0 {
		return nil, fmt.Errorf("fmp %s: %w", symbol, provider.ErrNotFound)
	}
	d.Trim()
	return d, nil
}

func (p *Provider) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	resp, err := p.client.Get(ctx, path, params)
	if api.IsNotFound(err) {
		return nil, fmt.Errorf("%s: %w", path, provider.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(resp.Body) {
		return nil, fmt.Errorf("invalid JSON from %s", path)
	}
	// FMP reports bad keys and plan limits as 200 with an error object
	if msg := gjson.GetBytes(resp.Body, "Error Message"); msg.Exists() {
		return nil, fmt.Errorf("fmp error: %s", msg.String())
	}
	return resp.Body, nil
}

func (p *Provider) fetchQuote(ctx context.Context, symbol string) (*financials.Quote, error) {
	body, err := p.get(ctx, "/quote/"+symbol, nil)
	if err != nil {
		return nil, err
	}
	q := ParseQuote(body)
	if q == nil {
		return nil, errors.New("empty quote")
	}
	// the three-month change lives on its own endpoint and is optional
	if change, err := p.get(ctx, "/stock-price-change/"+symbol, nil); err == nil {
		q.PriceChange3MPct = num(gjson.GetBytes(change, "0"), "3M")
	}
	return q, nil
}

func (p *Provider) fetchProfile(ctx context.Context, symbol string) (*financials.Profile, error) {
	body, err := p.get(ctx, "/profile/"+symbol, nil)
	if err != nil {
		return nil, err
	}
	prof := ParseProfile(body)
	if prof == nil {
		return nil, errors.New("empty profile")
	}
	return prof, nil
}

// num reads a numeric field; anything else is nil.
func num(r gjson.Result, key string) *float64 {
	v := r.Get(key)
	if v.Type != gjson.Number {
		return nil
	}
	f := v.Float()
	return &f
}

func first(body []byte) (gjson.Result, bool) {
	r := gjson.ParseBytes(body)
	if r.IsArray() {
		r = r.Get("0")
	}
	return r, r.IsObject()
}

// ParseQuote reads the first element of a /quote response.
func ParseQuote(body []byte) *financials.Quote {
	r, ok := first(body)
	if !ok {
		return nil
	}
	return &financials.Quote{
		Price:             num(r, "price"),
		MarketCap:         num(r, "marketCap"),
		SharesOutstanding: num(r, "sharesOutstanding"),
		PE:                num(r, "pe"),
		EPS:               num(r, "eps"),
		YearHigh:          num(r, "yearHigh"),
		YearLow:           num(r, "yearLow"),
	}
}

// ParseProfile reads the first element of a /profile response.
func ParseProfile(body []byte) *financials.Profile {
	r, ok := first(body)
	if !ok {
		return nil
	}
	return &financials.Profile{
		CompanyName: r.Get("companyName").String(),
		Sector:      r.Get("sector").String(),
		Industry:    r.Get("industry").String(),
		Country:     r.Get("country").String(),
		Exchange:    r.Get("exchangeShortName").String(),
		Currency:    r.Get("currency").String(),
	}
}

func statementMeta(r gjson.Result) (time.Time, int) {
	date, _ := time.Parse(time.DateOnly, r.Get("date").String())
	year := int(r.Get("calendarYear").Int())
	if year == 0 && !date.IsZero() {
		year = date.Year()
	}
	return date, year
}

// eachRecord calls fn for every object of a top-level JSON array.
func eachRecord(body []byte, fn func(r gjson.Result)) {
	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		return
	}
	res.ForEach(func(_, r gjson.Result) bool {
		if r.IsObject() {
			fn(r)
		}
		return true
	})
}

func newestFirst[T any](items []T, date func(T) time.Time) []T {
	slices.SortStableFunc(items, func(a, b T) int {
		return date(b).Compare(date(a))
	})
	return items
}

func ParseIncomeStatements(body []byte) []financials.IncomeStatement {
	var out []financials.IncomeStatement
	eachRecord(body, func(r gjson.Result) {
		date, year := statementMeta(r)
		out = append(out, financials.IncomeStatement{
			Date:                     date,
			FiscalYear:               year,
			Revenue:                  num(r, "revenue"),
			GrossProfit:              num(r, "grossProfit"),
			OperatingIncome:          num(r, "operatingIncome"),
			NetIncome:                num(r, "netIncome"),
			EPS:                      num(r, "eps"),
			WeightedAverageShares:    num(r, "weightedAverageShsOut"),
			WeightedAverageDilShares: num(r, "weightedAverageShsOutDil"),
		})
	})
	return newestFirst(out, func(s financials.IncomeStatement) time.Time { return s.Date })
}

func ParseBalanceSheets(body []byte) []financials.BalanceSheet {
	var out []financials.BalanceSheet
	eachRecord(body, func(r gjson.Result) {
		date, year := statementMeta(r)
		out = append(out, financials.BalanceSheet{
			Date:               date,
			FiscalYear:         year,
			TotalCurrentAssets: num(r, "totalCurrentAssets"),
			TotalCurrentLiabs:  num(r, "totalCurrentLiabilities"),
			TotalEquity:        num(r, "totalStockholdersEquity"),
			TotalDebt:          num(r, "totalDebt"),
			LongTermDebt:       num(r, "longTermDebt"),
			CashAndEquivalents: num(r, "cashAndCashEquivalents"),
		})
	})
	return newestFirst(out, func(s financials.BalanceSheet) time.Time { return s.Date })
}

func ParseCashFlowStatements(body []byte) []financials.CashFlowStatement {
	var out []financials.CashFlowStatement
	eachRecord(body, func(r gjson.Result) {
		date, year := statementMeta(r)
		out = append(out, financials.CashFlowStatement{
			Date:               date,
			FiscalYear:         year,
			OperatingCashFlow:  num(r, "operatingCashFlow"),
			CapitalExpenditure: num(r, "capitalExpenditure"),
			FreeCashFlow:       num(r, "freeCashFlow"),
		})
	})
	return newestFirst(out, func(s financials.CashFlowStatement) time.Time { return s.Date })
}
