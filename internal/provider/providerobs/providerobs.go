package providerobs

import (
	"context"
	"errors"

	"gem-scanner/internal/financials"
	"gem-scanner/internal/interfaces"
	"gem-scanner/internal/logger"
	"gem-scanner/internal/provider"
	"gem-scanner/internal/trace"
)

// observableProvider wraps a DatasetProvider with logging and tracing.
type observableProvider struct {
	provider interfaces.DatasetProvider
}

var _ interfaces.DatasetProvider = (*observableProvider)(nil)

// Wrap wraps a dataset provider with observability middleware.
func Wrap(provider interfaces.DatasetProvider) interfaces.DatasetProvider {
	return &observableProvider{provider: provider}
}

func (op *observableProvider) Name() string { return op.provider.Name() }

// FetchDataset fetches a dataset with observability.
func (op *observableProvider) FetchDataset(ctx context.Context, symbol string) (*financials.Dataset, error) {
	ctx, span := trace.StartSymbolSpan(ctx, "provider.FetchDataset", symbol, op.provider.Name())
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching dataset", "symbol", symbol, "source", op.provider.Name())

	d, err := op.provider.FetchDataset(ctx, symbol)
	if errors.Is(err, provider.ErrNotFound) {
		logger.WarnSkip(ctx, 1, "Symbol not found", "symbol", symbol, "source", op.provider.Name())
		return nil, err
	}
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch dataset", err, "symbol", symbol, "source", op.provider.Name())
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Dataset fetched",
		"symbol", symbol,
		"source", op.provider.Name(),
		"income_years", len(d.IncomeStatements),
		"balance_years", len(d.BalanceSheets),
		"cashflow_years", len(d.CashFlowStatements),
		"has_quote", d.Quote != nil,
	)
	return d, nil
}

// observableQuotes wraps a QuoteSource with logging and tracing.
type observableQuotes struct {
	source interfaces.QuoteSource
}

var _ interfaces.QuoteSource = (*observableQuotes)(nil)

// WrapQuotes wraps a quote source with observability middleware.
func WrapQuotes(source interfaces.QuoteSource) interfaces.QuoteSource {
	return &observableQuotes{source: source}
}

func (oq *observableQuotes) Name() string { return oq.source.Name() }

// FetchQuote fetches a quote with observability.
func (oq *observableQuotes) FetchQuote(ctx context.Context, symbol string) (*financials.Quote, error) {
	ctx, span := trace.StartSymbolSpan(ctx, "provider.FetchQuote", symbol, oq.source.Name())
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching quote", "symbol", symbol, "source", oq.source.Name())

	q, err := oq.source.FetchQuote(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch quote", err, "symbol", symbol, "source", oq.source.Name())
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Quote fetched", "symbol", symbol, "source", oq.source.Name())
	return q, nil
}
