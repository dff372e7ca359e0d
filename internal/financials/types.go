// Package financials holds the normalized per-symbol bundle of quote, profile and
// annual statements that every scoring stage reads from.
//
// Numeric statement fields are pointers: nil means the provider did not report the
// value, which is different from a reported zero.
package financials

import "time"

// MaxYears is the number of annual records a dataset keeps per statement kind.
const MaxYears = 6

// Quote is the latest market snapshot for a symbol.
type Quote struct {
	Price             *float64 `json:"price"`
	MarketCap         *float64 `json:"market_cap"`
	SharesOutstanding *float64 `json:"shares_outstanding"`
	PE                *float64 `json:"pe"`
	EPS               *float64 `json:"eps"`
	YearHigh          *float64 `json:"year_high"`
	YearLow           *float64 `json:"year_low"`
	PriceChange3MPct  *float64 `json:"price_change_3m_pct"` // in percentage
}

// Profile is descriptive company metadata.
type Profile struct {
	CompanyName string `json:"company_name"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
	Country     string `json:"country"`
	Exchange    string `json:"exchange"`
	Currency    string `json:"currency"`
}

// IncomeStatement is one fiscal year of income data.
type IncomeStatement struct {
	Date                     time.Time `json:"date"`
	FiscalYear               int       `json:"fiscal_year"`
	Revenue                  *float64  `json:"revenue"`
	GrossProfit              *float64  `json:"gross_profit"`
	OperatingIncome          *float64  `json:"operating_income"`
	NetIncome                *float64  `json:"net_income"`
	EPS                      *float64  `json:"eps"`
	WeightedAverageShares    *float64  `json:"weighted_average_shares"`
	WeightedAverageDilShares *float64  `json:"weighted_average_diluted_shares"`
}

// BalanceSheet is one fiscal year-end balance sheet.
type BalanceSheet struct {
	Date               time.Time `json:"date"`
	FiscalYear         int       `json:"fiscal_year"`
	TotalCurrentAssets *float64  `json:"total_current_assets"`
	TotalCurrentLiabs  *float64  `json:"total_current_liabilities"`
	TotalEquity        *float64  `json:"total_equity"`
	TotalDebt          *float64  `json:"total_debt"`
	LongTermDebt       *float64  `json:"long_term_debt"`
	CashAndEquivalents *float64  `json:"cash_and_equivalents"`
}

// CashFlowStatement is one fiscal year of cash-flow data.
type CashFlowStatement struct {
	Date               time.Time `json:"date"`
	FiscalYear         int       `json:"fiscal_year"`
	OperatingCashFlow  *float64  `json:"operating_cash_flow"`
	CapitalExpenditure *float64  `json:"capital_expenditure"`
	FreeCashFlow       *float64  `json:"free_cash_flow"`
}

// Dataset is the normalized bundle for one symbol. Statement slices are ordered
// newest first and share a common currency.
type Dataset struct {
	Symbol             string              `json:"symbol"`
	Market             string              `json:"market,omitempty"`
	Quote              *Quote              `json:"quote"`
	Profile            *Profile            `json:"profile"`
	IncomeStatements   []IncomeStatement   `json:"income_statements"`
	BalanceSheets      []BalanceSheet      `json:"balance_sheets"`
	CashFlowStatements []CashFlowStatement `json:"cash_flow_statements"`
	FetchedAt          time.Time           `json:"fetched_at"`
}
