package interfaces

import (
	"context"

	"gem-scanner/internal/financials"
)

// DatasetProvider fetches the normalized financial bundle for a symbol.
type DatasetProvider interface {
	Name() string
	FetchDataset(ctx context.Context, symbol string) (*financials.Dataset, error)
}

// QuoteSource supplies market data only: price, 52-week range and recent change.
type QuoteSource interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (*financials.Quote, error)
}
