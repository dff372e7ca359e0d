// Package kite derives NSE market data (price, 52-week range, 3-month change)
// from Zerodha Kite quotes and daily candles.
package kite

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"gem-scanner/internal/api"
	"gem-scanner/internal/financials"
	"gem-scanner/internal/interfaces"
	"gem-scanner/internal/provider"
	"gem-scanner/internal/ta"
)

// Candle is one daily bar.
type Candle struct {
	Date  time.Time
	High  float64
	Low   float64
	Close float64
}

// market is the slice of the Kite API this package needs.
type market interface {
	LastPrice(instrument string) (token int, price float64, err error)
	DailyCandles(token int, from, to time.Time) ([]Candle, error)
}

// Source implements interfaces.QuoteSource on Kite.
type Source struct {
	mkt      market
	exchange string
	limiter  api.Waiter
	now      func() time.Time
}

var _ interfaces.QuoteSource = (*Source)(nil)

// Config holds Kite credentials.
type Config struct {
	APIKey      string
	AccessToken string
	Exchange    string
	Limiter     api.Waiter
}

// New connects a Kite client with an existing access token.
func New(cfg Config) (*Source, error) {
	if cfg.APIKey == "" || cfg.AccessToken == "" {
		return nil, errors.New("kite: api key and access token are required")
	}
	kc := kiteconnect.New(cfg.APIKey)
	kc.SetAccessToken(cfg.AccessToken)
	return newSource(kiteClient{kc}, cfg.Exchange, cfg.Limiter), nil
}

func newSource(mkt market, exchange string, limiter api.Waiter) *Source {
	if exchange == "" {
		exchange = "NSE"
	}
	return &Source{mkt: mkt, exchange: exchange, limiter: limiter, now: time.Now}
}

func (s *Source) Name() string { return "kite" }

func (s *Source) wait(ctx context.Context) error {
	if s.limiter == nil {
		return ctx.Err()
	}
	return s.limiter.Wait(ctx)
}

// FetchQuote returns the last price plus the range and change computed from a
// year of daily candles. Missing candles leave those fields nil.
func (s *Source) FetchQuote(ctx context.Context, symbol string) (*financials.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.New("kite: empty symbol")
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	token, price, err := s.mkt.LastPrice(s.exchange + ":" + symbol)
	if err != nil {
		return nil, fmt.Errorf("kite ltp %s: %w", symbol, err)
	}
	if token == 0 {
		return nil, fmt.Errorf("kite %s: %w", symbol, provider.ErrNotFound)
	}
	q := &financials.Quote{Price: &price}

	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	to := s.now()
	candles, err := s.mkt.DailyCandles(token, to.AddDate(-1, 0, -7), to)
	if err != nil {
		return q, nil
	}
	applyCandles(q, candles)
	return q, nil
}

func applyCandles(q *financials.Quote, candles []Candle) {
	if len(candles) == 0 {
		return
	}
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i], lows[i], closes[i] = c.High, c.Low, c.Close
	}
	high, low := ta.Range(highs, lows, ta.TradingDaysPerYear)
	if !math.IsNaN(high) {
		q.YearHigh, q.YearLow = &high, &low
	}
	if change := ta.ChangePct(closes, ta.TradingDaysPerQuarter); !math.IsNaN(change) {
		q.PriceChange3MPct = &change
	}
}

// kiteClient adapts *kiteconnect.Client to market.
type kiteClient struct {
	kc *kiteconnect.Client
}

func (k kiteClient) LastPrice(instrument string) (int, float64, error) {
	ltp, err := k.kc.GetLTP(instrument)
	if err != nil {
		return 0, 0, err
	}
	q, ok := ltp[instrument]
	if !ok {
		return 0, 0, nil
	}
	return q.InstrumentToken, q.LastPrice, nil
}

func (k kiteClient) DailyCandles(token int, from, to time.Time) ([]Candle, error) {
	data, err := k.kc.GetHistoricalData(token, "day", from, to, false, false)
	if err != nil {
		return nil, err
	}
	out := make([]Candle, 0, len(data))
	for _, d := range data {
		out = append(out, Candle{Date: d.Date.Time, High: d.High, Low: d.Low, Close: d.Close})
	}
	return out, nil
}
