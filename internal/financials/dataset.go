package financials

import (
	"math"
	"strings"
)

// Float returns a pointer to v. Handy for building datasets in providers and tests.
func Float(v float64) *float64 {
	return &v
}

// Value unwraps a nullable field. NaN and Inf are treated as missing.
func Value(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}

// Series is an ordered (newest first) run of nullable yearly values.
type Series []*float64

// Recent returns the reported values among the n most recent records.
func (s Series) Recent(n int) []float64 {
	if n > len(s) {
		n = len(s)
	}
	out := make([]float64, 0, n)
	for _, p := range s[:n] {
		if v, ok := Value(p); ok {
			out = append(out, v)
		}
	}
	return out
}

// Sum adds the reported values among the n most recent records.
// ok is false when none of them were reported.
func (s Series) Sum(n int) (sum float64, ok bool) {
	vals := s.Recent(n)
	if len(vals) == 0 {
		return 0, false
	}
	for _, v := range vals {
		sum += v
	}
	return sum, true
}

// Average is the mean of the reported values among the n most recent records.
func (s Series) Average(n int) (float64, bool) {
	vals := s.Recent(n)
	if len(vals) == 0 {
		return 0, false
	}
	sum, _ := s.Sum(n)
	return sum / float64(len(vals)), true
}

// Latest is the value of the newest record.
func (s Series) Latest() (float64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	return Value(s[0])
}

// Oldest is the value of the oldest reported record other than the newest one,
// looking back at most MaxYears records.
func (s Series) Oldest() (float64, bool) {
	last := len(s) - 1
	if last > MaxYears-1 {
		last = MaxYears - 1
	}
	for i := last; i >= 1; i-- {
		if v, ok := Value(s[i]); ok {
			return v, true
		}
	}
	return 0, false
}

// Previous is the value of the second newest record.
func (s Series) Previous() (float64, bool) {
	if len(s) < 2 {
		return 0, false
	}
	return Value(s[1])
}

// NetIncome is the net income series.
func (d *Dataset) NetIncome() Series {
	out := make(Series, len(d.IncomeStatements))
	for i := range d.IncomeStatements {
		out[i] = d.IncomeStatements[i].NetIncome
	}
	return out
}

// Revenue is the revenue series.
func (d *Dataset) Revenue() Series {
	out := make(Series, len(d.IncomeStatements))
	for i := range d.IncomeStatements {
		out[i] = d.IncomeStatements[i].Revenue
	}
	return out
}

// EPS is the earnings-per-share series.
func (d *Dataset) EPS() Series {
	out := make(Series, len(d.IncomeStatements))
	for i := range d.IncomeStatements {
		out[i] = d.IncomeStatements[i].EPS
	}
	return out
}

// WeightedShares is the weighted average shares series, falling back to the
// diluted count when the basic one is not reported.
func (d *Dataset) WeightedShares() Series {
	out := make(Series, len(d.IncomeStatements))
	for i := range d.IncomeStatements {
		st := d.IncomeStatements[i]
		if st.WeightedAverageShares != nil {
			out[i] = st.WeightedAverageShares
		} else {
			out[i] = st.WeightedAverageDilShares
		}
	}
	return out
}

// FreeCashFlow is the free cash flow series. When a year does not report FCF
// directly it is derived as operating cash flow minus capital expenditure.
func (d *Dataset) FreeCashFlow() Series {
	out := make(Series, len(d.CashFlowStatements))
	for i := range d.CashFlowStatements {
		out[i] = d.CashFlowStatements[i].FCF()
	}
	return out
}

// FCF returns the reported or derived free cash flow of the statement.
func (c CashFlowStatement) FCF() *float64 {
	if _, ok := Value(c.FreeCashFlow); ok {
		return c.FreeCashFlow
	}
	ocf, ok1 := Value(c.OperatingCashFlow)
	capex, ok2 := Value(c.CapitalExpenditure)
	if !ok1 || !ok2 {
		return nil
	}
	return Float(ocf - math.Abs(capex))
}

// LatestIncome returns the newest income statement.
func (d *Dataset) LatestIncome() (*IncomeStatement, bool) {
	if len(d.IncomeStatements) == 0 {
		return nil, false
	}
	return &d.IncomeStatements[0], true
}

// LatestBalance returns the newest balance sheet.
func (d *Dataset) LatestBalance() (*BalanceSheet, bool) {
	if len(d.BalanceSheets) == 0 {
		return nil, false
	}
	return &d.BalanceSheets[0], true
}

// Debt is the balance sheet's total debt, or long-term debt when total debt is
// not reported.
func (b *BalanceSheet) Debt() (float64, bool) {
	if v, ok := Value(b.TotalDebt); ok {
		return v, true
	}
	return Value(b.LongTermDebt)
}

// MarketCap returns the quoted market capitalization, or price × shares when the
// quote omits it. Non-positive values count as missing.
func (d *Dataset) MarketCap() (float64, bool) {
	if d.Quote == nil {
		return 0, false
	}
	if v, ok := Value(d.Quote.MarketCap); ok && v > 0 {
		return v, true
	}
	price, ok1 := Value(d.Quote.Price)
	shares, ok2 := Value(d.Quote.SharesOutstanding)
	if ok1 && ok2 && price > 0 && shares > 0 {
		return price * shares, true
	}
	return 0, false
}

// ObservedPE is the quoted P/E when positive, otherwise market cap over the
// latest net income. Returns false when neither yields a positive multiple.
func (d *Dataset) ObservedPE() (float64, bool) {
	if d.Quote != nil {
		if v, ok := Value(d.Quote.PE); ok && v > 0 {
			return v, true
		}
	}
	mc, ok := d.MarketCap()
	if !ok {
		return 0, false
	}
	ni, ok := d.NetIncome().Latest()
	if !ok || ni <= 0 {
		return 0, false
	}
	return mc / ni, true
}

// Sector returns the profile sector, or "" when the profile is missing.
func (d *Dataset) Sector() string {
	if d.Profile == nil {
		return ""
	}
	return strings.TrimSpace(d.Profile.Sector)
}

// YoYGrowth is the percent change from prev to latest, measured against |prev|.
func YoYGrowth(latest, prev float64) (float64, bool) {
	if prev == 0 {
		return 0, false
	}
	return (latest - prev) / math.Abs(prev) * 100, true
}

// RevenueGrowthPct is year-over-year revenue growth from the two newest records.
func (d *Dataset) RevenueGrowthPct() (float64, bool) {
	return seriesGrowth(d.Revenue())
}

// EPSGrowthPct is year-over-year EPS growth from the two newest records.
func (d *Dataset) EPSGrowthPct() (float64, bool) {
	return seriesGrowth(d.EPS())
}

func seriesGrowth(s Series) (float64, bool) {
	latest, ok := s.Latest()
	if !ok {
		return 0, false
	}
	prev, ok := s.Previous()
	if !ok {
		return 0, false
	}
	return YoYGrowth(latest, prev)
}

// Trim caps each statement slice at MaxYears records.
func (d *Dataset) Trim() {
	if len(d.IncomeStatements) > MaxYears {
		d.IncomeStatements = d.IncomeStatements[:MaxYears]
	}
	if len(d.BalanceSheets) > MaxYears {
		d.BalanceSheets = d.BalanceSheets[:MaxYears]
	}
	if len(d.CashFlowStatements) > MaxYears {
		d.CashFlowStatements = d.CashFlowStatements[:MaxYears]
	}
}
