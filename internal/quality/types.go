package quality

// PillarID identifies one of the eight quality checks. The order of the
// constants is the order pillars are reported in.
type PillarID int

const (
	PillarPE PillarID = iota
	PillarROIC
	PillarShares
	PillarFCFGrowth
	PillarNetIncomeGrowth
	PillarRevenueGrowth
	PillarDebtCoverage
	PillarPriceToFCF

	pillarCount
)

// PillarCount is the maximum quality score.
const PillarCount = int(pillarCount)

var pillarNames = [...]string{
	PillarPE:              "5Y P/E",
	PillarROIC:            "5Y ROIC",
	PillarShares:          "Shares Outstanding",
	PillarFCFGrowth:       "FCF Growth",
	PillarNetIncomeGrowth: "Net Income Growth",
	PillarRevenueGrowth:   "Revenue Growth",
	PillarDebtCoverage:    "Debt / FCF",
	PillarPriceToFCF:      "5Y Price/FCF",
}

var pillarKeys = [...]string{
	PillarPE:              "pe_5y",
	PillarROIC:            "roic_5y",
	PillarShares:          "shares_trend",
	PillarFCFGrowth:       "fcf_growth",
	PillarNetIncomeGrowth: "net_income_growth",
	PillarRevenueGrowth:   "revenue_growth",
	PillarDebtCoverage:    "debt_coverage",
	PillarPriceToFCF:      "price_to_fcf_5y",
}

func (p PillarID) String() string {
	if p < 0 || p >= pillarCount {
		return "unknown"
	}
	return pillarNames[p]
}

// Key is the stable snake_case identifier used in storage and reports.
func (p PillarID) Key() string {
	if p < 0 || p >= pillarCount {
		return "unknown"
	}
	return pillarKeys[p]
}

// PillarResult is the outcome of one check. MeasuredValue is nil when the
// inputs were missing or the denominator was not positive; such a pillar never
// passes.
type PillarResult struct {
	ID            PillarID `json:"-"`
	Key           string   `json:"key"`
	Name          string   `json:"name"`
	MeasuredValue *float64 `json:"measured_value"`
	Threshold     string   `json:"threshold"`
	Passed        bool     `json:"passed"`
}

// AuxiliaryMetrics are single-year ratios reported alongside the score. They
// never affect it.
type AuxiliaryMetrics struct {
	ROE             *float64 `json:"roe"`              // in percentage
	GrossMargin     *float64 `json:"gross_margin"`     // in percentage
	OperatingMargin *float64 `json:"operating_margin"` // in percentage
	CurrentRatio    *float64 `json:"current_ratio"`
}

// GrowthSignals is the revenue / net income / FCF growth triad. It is produced
// once per evaluation and shared by the tier and timeframe stages.
type GrowthSignals struct {
	RevenueGrowing   bool `json:"revenue_growing"`
	NetIncomeGrowing bool `json:"net_income_growing"`
	FCFGrowing       bool `json:"fcf_growing"`
}

// Count returns how many of the three signals are set (0..3).
func (g GrowthSignals) Count() int {
	n := 0
	for _, b := range []bool{g.RevenueGrowing, g.NetIncomeGrowing, g.FCFGrowing} {
		if b {
			n++
		}
	}
	return n
}

// Score is the quality evaluation of one dataset.
type Score struct {
	Symbol           string           `json:"symbol"`
	Total            int              `json:"total_score"`
	Pillars          []PillarResult   `json:"pillars"`
	Auxiliary        AuxiliaryMetrics `json:"auxiliary_metrics"`
	Growth           GrowthSignals    `json:"growth_signals"`
	SharesDecreasing bool             `json:"shares_decreasing"`
}

// Pillar returns the result for id.
func (s *Score) Pillar(id PillarID) (PillarResult, bool) {
	for _, p := range s.Pillars {
		if p.ID == id {
			return p, true
		}
	}
	return PillarResult{}, false
}

// Thresholds holds the cut-offs the pillars compare against.
type Thresholds struct {
	Window          int     `yaml:"window" validate:"gte=1,lte=6"`
	MaxPE           float64 `yaml:"max_pe" validate:"gt=0"`
	MinROIC         float64 `yaml:"min_roic"`
	MaxDebtCoverage float64 `yaml:"max_debt_coverage" validate:"gt=0"`
	MaxPriceToFCF   float64 `yaml:"max_price_to_fcf" validate:"gt=0"`
}

// DefaultThresholds returns the standard eight-pillar cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Window:          5,
		MaxPE:           22.5,
		MinROIC:         9,
		MaxDebtCoverage: 5,
		MaxPriceToFCF:   22.5,
	}
}
