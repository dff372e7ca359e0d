package fmp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gem-scanner/internal/api"
	"gem-scanner/internal/provider"
)

const (
	quoteJSON   = `[{"symbol":"ACME","price":50.5,"marketCap":5050000000,"pe":14.2,"eps":3.55,"yearHigh":61,"yearLow":38,"sharesOutstanding":100000000}]`
	changeJSON  = `[{"symbol":"ACME","1M":2.1,"3M":-4.5,"1Y":20}]`
	profileJSON = `[{"companyName":"Acme Corp","sector":"Industrials","industry":"Machinery","country":"US","exchangeShortName":"NYSE","currency":"USD"}]`
	incomeJSON  = `[
		{"date":"2023-12-31","calendarYear":"2023","revenue":900,"grossProfit":300,"operatingIncome":150,"netIncome":90,"eps":0.9,"weightedAverageShsOut":100},
		{"date":"2024-12-31","calendarYear":"2024","revenue":1000,"grossProfit":350,"operatingIncome":170,"netIncome":100,"eps":1.0,"weightedAverageShsOut":98}
	]`
	balanceJSON = `[{"date":"2024-12-31","calendarYear":"2024","totalCurrentAssets":400,"totalCurrentLiabilities":200,"totalStockholdersEquity":800,"totalDebt":150,"longTermDebt":null,"cashAndCashEquivalents":60}]`
	cashJSON    = `[{"date":"2024-12-31","operatingCashFlow":140,"capitalExpenditure":-30,"freeCashFlow":110}]`
)

func newServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		for prefix, body := range routes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
				return
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newProvider(t *testing.T, url string) *Provider {
	t.Helper()
	p, err := New(Config{
		BaseURL: url,
		APIKey:  "test-key",
		Market:  "US",
		Retry:   &api.RetryConfig{MaxAttempts: 1},
	})
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	return p
}

func TestFetchDataset(t *testing.T) {
	srv := newServer(t, map[string]string{
		"/quote/":                   quoteJSON,
		"/stock-price-change/":      changeJSON,
		"/profile/":                 profileJSON,
		"/income-statement/":        incomeJSON,
		"/balance-sheet-statement/": balanceJSON,
		"/cash-flow-statement/":     cashJSON,
	})
	p := newProvider(t, srv.URL)

	d, err := p.FetchDataset(t.Context(), " acme ")
	require.NoError(t, err)

	assert.Equal(t, "ACME", d.Symbol)
	assert.Equal(t, "US", d.Market)
	require.NotNil(t, d.Quote)
	assert.Equal(t, 50.5, *d.Quote.Price)
	assert.Equal(t, 14.2, *d.Quote.PE)
	require.NotNil(t, d.Quote.PriceChange3MPct)
	assert.Equal(t, -4.5, *d.Quote.PriceChange3MPct)
	assert.Equal(t, "Industrials", d.Sector())

	require.Len(t, d.IncomeStatements, 2)
	assert.Equal(t, 2024, d.IncomeStatements[0].FiscalYear, "newest first")
	assert.Equal(t, 100.0, *d.IncomeStatements[0].NetIncome)

	require.Len(t, d.BalanceSheets, 1)
	assert.Nil(t, d.BalanceSheets[0].LongTermDebt)
	assert.Equal(t, 800.0, *d.BalanceSheets[0].TotalEquity)

	require.Len(t, d.CashFlowStatements, 1)
	assert.Equal(t, 2024, d.CashFlowStatements[0].FiscalYear, "year from date")
	assert.Equal(t, 110.0, *d.CashFlowStatements[0].FreeCashFlow)
}

func TestFetchDatasetPartialData(t *testing.T) {
	// statements fail, quote survives
	srv := newServer(t, map[string]string{
		"/quote/":   quoteJSON,
		"/profile/": `[]`,
	})
	p := newProvider(t, srv.URL)

	d, err := p.FetchDataset(t.Context(), "ACME")
	require.NoError(t, err)
	assert.NotNil(t, d.Quote)
	assert.Nil(t, d.Quote.PriceChange3MPct)
	assert.Nil(t, d.Profile)
	assert.Empty(t, d.IncomeStatements)
	assert.Empty(t, d.BalanceSheets)
}

func TestFetchDatasetNotFound(t *testing.T) {
	srv := newServer(t, map[string]string{
		"/quote/":            `[]`,
		"/income-statement/": `{"Error Message":"Invalid API KEY."}`,
	})
	p := newProvider(t, srv.URL)

	_, err := p.FetchDataset(t.Context(), "NOPE")
	assert.ErrorIs(t, err, provider.ErrNotFound)

	_, err = p.FetchDataset(t.Context(), "  ")
	assert.Error(t, err)
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestParsersIgnoreNonNumbers(t *testing.T) {
	q := ParseQuote([]byte(`[{"price":"n/a","marketCap":null,"pe":12}]`))
	require.NotNil(t, q)
	assert.Nil(t, q.Price)
	assert.Nil(t, q.MarketCap)
	assert.Equal(t, 12.0, *q.PE)

	assert.Nil(t, ParseQuote([]byte(`[]`)))
	assert.Nil(t, ParseIncomeStatements([]byte(`{"Error Message":"x"}`)))
}
