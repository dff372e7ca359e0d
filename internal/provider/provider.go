// Package provider holds the dataset sources and the composite that merges
// fundamentals from one source with market data from another.
package provider

import (
	"context"
	"errors"
	"fmt"

	"gem-scanner/internal/financials"
	"gem-scanner/internal/interfaces"
	"gem-scanner/internal/logger"
)

// ErrNotFound means the source knows nothing about the symbol: no quote and no
// statements.
var ErrNotFound = errors.New("symbol not found")

// Composite fetches fundamentals from Base and overlays the quote fields
// reported by Quotes. A failing quote source leaves the base quote in place.
type Composite struct {
	Base   interfaces.DatasetProvider
	Quotes interfaces.QuoteSource
}

var _ interfaces.DatasetProvider = (*Composite)(nil)

// NewComposite builds a composite. A nil quotes source makes it a pass-through.
func NewComposite(base interfaces.DatasetProvider, quotes interfaces.QuoteSource) *Composite {
	return &Composite{Base: base, Quotes: quotes}
}

func (c *Composite) Name() string {
	if c.Quotes == nil {
		return c.Base.Name()
	}
	return c.Base.Name() + "+" + c.Quotes.Name()
}

func (c *Composite) FetchDataset(ctx context.Context, symbol string) (*financials.Dataset, error) {
	d, err := c.Base.FetchDataset(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Base.Name(), err)
	}
	if c.Quotes == nil {
		return d, nil
	}

	q, err := c.Quotes.FetchQuote(ctx, symbol)
	if err != nil {
		logger.Warn(ctx, "quote override failed, keeping base quote",
			"symbol", symbol, "source", c.Quotes.Name(), "error", err)
		return d, nil
	}
	d.Quote = MergeQuote(d.Quote, q)
	return d, nil
}

// MergeQuote returns base with every non-nil field of override applied.
func MergeQuote(base, override *financials.Quote) *financials.Quote {
	if override == nil {
		return base
	}
	out := financials.Quote{}
	if base != nil {
		out = *base
	}
	pick := func(dst **float64, v *float64) {
		if v != nil {
			*dst = v
		}
	}
	pick(&out.Price, override.Price)
	pick(&out.MarketCap, override.MarketCap)
	pick(&out.SharesOutstanding, override.SharesOutstanding)
	pick(&out.PE, override.PE)
	pick(&out.EPS, override.EPS)
	pick(&out.YearHigh, override.YearHigh)
	pick(&out.YearLow, override.YearLow)
	pick(&out.PriceChange3MPct, override.PriceChange3MPct)

	// a new price invalidates a market cap derived from the old one
	if override.Price != nil && override.MarketCap == nil && out.SharesOutstanding != nil {
		mc := *override.Price * *out.SharesOutstanding
		out.MarketCap = &mc
	}
	return &out
}
