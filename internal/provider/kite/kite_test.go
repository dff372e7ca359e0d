package kite

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gem-scanner/internal/provider"
)

type fakeMarket struct {
	token   int
	price   float64
	ltpErr  error
	candles []Candle
	histErr error
	asked   string
}

func (f *fakeMarket) LastPrice(instrument string) (int, float64, error) {
	f.asked = instrument
	return f.token, f.price, f.ltpErr
}

func (f *fakeMarket) DailyCandles(int, time.Time, time.Time) ([]Candle, error) {
	return f.candles, f.histErr
}

// rising builds n daily candles closing at 100, 101, 102, ...
func rising(n int) []Candle {
	out := make([]Candle, n)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		c := 100 + float64(i)
		out[i] = Candle{Date: start.AddDate(0, 0, i), High: c + 1, Low: c - 1, Close: c}
	}
	return out
}

func TestFetchQuote(t *testing.T) {
	fm := &fakeMarket{token: 408065, price: 400, candles: rising(300)}
	s := newSource(fm, "", nil)

	q, err := s.FetchQuote(t.Context(), "infy")
	require.NoError(t, err)
	assert.Equal(t, "NSE:INFY", fm.asked)
	assert.Equal(t, 400.0, *q.Price)

	// last 252 candles: closes 148..399
	require.NotNil(t, q.YearHigh)
	assert.Equal(t, 400.0, *q.YearHigh)
	assert.Equal(t, 147.0, *q.YearLow)

	// 399 vs 63 bars earlier (336)
	require.NotNil(t, q.PriceChange3MPct)
	assert.InDelta(t, (399.0-336.0)/336.0*100, *q.PriceChange3MPct, 1e-9)
}

func TestFetchQuoteWithoutCandles(t *testing.T) {
	s := newSource(&fakeMarket{token: 1, price: 10, histErr: errors.New("no access")}, "BSE", nil)
	q, err := s.FetchQuote(t.Context(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, 10.0, *q.Price)
	assert.Nil(t, q.YearHigh)
	assert.Nil(t, q.PriceChange3MPct)
}

func TestFetchQuoteErrors(t *testing.T) {
	_, err := newSource(&fakeMarket{}, "", nil).FetchQuote(t.Context(), "NOPE")
	assert.ErrorIs(t, err, provider.ErrNotFound)

	_, err = newSource(&fakeMarket{ltpErr: errors.New("token expired")}, "", nil).FetchQuote(t.Context(), "X")
	assert.ErrorContains(t, err, "token expired")

	_, err = New(Config{APIKey: "k"})
	assert.Error(t, err)
}
