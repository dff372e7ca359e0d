package interfaces

import (
	"context"

	"gem-scanner/internal/financials"
	"gem-scanner/internal/scoring"
)

// Scorer runs the full scoring pipeline over one dataset.
type Scorer interface {
	Score(ctx context.Context, d *financials.Dataset, opts scoring.Options) *scoring.Result
	MacroSnapshot() *scoring.MacroSnapshot
}
