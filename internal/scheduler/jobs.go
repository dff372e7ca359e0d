package scheduler

import (
	"context"
	"fmt"
	"time"

	"gem-scanner/internal/logger"
	"gem-scanner/internal/macro"
	"gem-scanner/internal/recorder"
	"gem-scanner/internal/scan"
)

// IndicatorSource supplies fresh macro readings. *macro.Source satisfies it.
type IndicatorSource interface {
	Fetch(ctx context.Context) (macro.Indicators, error)
}

// MacroRefreshJob scrapes indicators, applies them to the current environment
// and publishes the result. Phase, liquidity and sentiment stay as the
// administrator set them.
func MacroRefreshJob(name string, src IndicatorSource, ms *macro.Store, rec recorder.Recorder) Job {
	return func(ctx context.Context) error {
		ind, err := src.Fetch(ctx)
		if err != nil {
			return fmt.Errorf("macro refresh: %w", err)
		}
		env := ind.Apply(ms.Current())
		env.Source = name
		env.UpdatedAt = time.Now().UTC()
		if err := ms.SetEnvironment(env); err != nil {
			return fmt.Errorf("macro refresh: %w", err)
		}
		if rec != nil {
			if err := rec.SaveMacroEnvironment(ctx, env); err != nil {
				return fmt.Errorf("macro refresh: persist: %w", err)
			}
		}
		logger.Macro(ctx, string(env.Phase), string(env.Liquidity), string(env.Sentiment),
			"source", name, "indicators", len(ind), "policy_rate", env.PolicyRate, "vix", env.VIX)
		return nil
	}
}

// ScanJob runs a scan over universe() and hands the report to done.
func ScanJob(sc *scan.Scanner, universe func() []string, done func(context.Context, *scan.Report)) Job {
	return func(ctx context.Context) error {
		rep, err := sc.Run(ctx, universe())
		if rep != nil && done != nil {
			done(ctx, rep)
		}
		return err
	}
}
