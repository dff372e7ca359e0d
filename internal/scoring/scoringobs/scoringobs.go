package scoringobs

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"gem-scanner/internal/financials"
	"gem-scanner/internal/interfaces"
	"gem-scanner/internal/logger"
	"gem-scanner/internal/scoring"
	"gem-scanner/internal/trace"
)

// observableScorer wraps a Scorer with logging and tracing.
type observableScorer struct {
	scorer interfaces.Scorer
}

var _ interfaces.Scorer = (*observableScorer)(nil)

// Wrap wraps a scorer with observability middleware.
func Wrap(scorer interfaces.Scorer) interfaces.Scorer {
	return &observableScorer{scorer: scorer}
}

// Score scores the dataset and logs the outcome. Every tier assignment is
// logged through logger.Tier.
func (o *observableScorer) Score(ctx context.Context, d *financials.Dataset, opts scoring.Options) *scoring.Result {
	symbol := ""
	if d != nil {
		symbol = d.Symbol
	}
	ctx, span := trace.StartSymbolSpan(ctx, "scoring.Score", symbol, "pipeline")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Scoring dataset", "symbol", symbol, "horizon", opts.Horizon, "scanning", opts.Scanning)

	res := o.scorer.Score(ctx, d, opts)

	span.SetAttributes(
		attribute.String("horizon", string(opts.Horizon)),
		attribute.Int("qm_score", res.Quality.Total),
		attribute.String("tier", string(res.Tier.Tier)),
		attribute.Int("confidence", res.Tier.ConfidenceScore),
		attribute.Int("adjusted_score", res.Macro.AdjustedScore),
	)

	logger.DebugSkip(ctx, 1, "Dataset scored",
		"symbol", symbol,
		"qm_score", res.Quality.Total,
		"valuation", res.Valuation.Status,
		"eligible", res.Tier.Eligible,
		"horizon_score", res.Horizon.Score,
		"adjusted_score", res.Macro.AdjustedScore,
	)
	if res.Tier.Tier != "" {
		gap := 0.0
		if res.Valuation.ValueGapPercent != nil {
			gap = *res.Valuation.ValueGapPercent
		}
		logger.Tier(ctx, symbol, string(res.Tier.Tier), res.Tier.ConfidenceScore, res.Quality.Total,
			"value_gap_pct", gap,
			"growth_signals", res.Tier.GrowthSignalCount,
			"gem_tier", res.Horizon.GemTier,
		)
	}
	return res
}

// MacroSnapshot returns the snapshot of the wrapped scorer.
func (o *observableScorer) MacroSnapshot() *scoring.MacroSnapshot {
	snap := o.scorer.MacroSnapshot()
	logger.DebugSkip(context.Background(), 1, "Macro snapshot pinned",
		"phase", snap.Environment.Phase,
		"liquidity", snap.Environment.Liquidity,
		"sentiment", snap.Environment.Sentiment,
	)
	return snap
}
