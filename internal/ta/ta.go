// Package ta holds the price-series helpers behind the momentum inputs.
// Series are ordered oldest first.
package ta

import "math"

// TradingDaysPerYear and TradingDaysPerQuarter size the lookback windows.
const (
	TradingDaysPerYear    = 252
	TradingDaysPerQuarter = 63
)

// Range returns the highest high and lowest low over the last n bars.
func Range(highs, lows []float64, n int) (high, low float64) {
	if len(highs) != len(lows) || len(highs) == 0 || n <= 0 {
		return math.NaN(), math.NaN()
	}
	if n > len(highs) {
		n = len(highs)
	}
	high, low = math.Inf(-1), math.Inf(1)
	for i := len(highs) - n; i < len(highs); i++ {
		high = math.Max(high, highs[i])
		low = math.Min(low, lows[i])
	}
	return high, low
}

// ChangePct is the percent change of the last close against the close n bars
// earlier. Shorter series use their first close.
func ChangePct(closes []float64, n int) float64 {
	if len(closes) < 2 || n <= 0 {
		return math.NaN()
	}
	from := len(closes) - 1 - n
	if from < 0 {
		from = 0
	}
	base := closes[from]
	if base == 0 {
		return math.NaN()
	}
	return (closes[len(closes)-1] - base) / base * 100
}
