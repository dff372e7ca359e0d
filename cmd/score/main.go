package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"gem-scanner/internal/bootstrap"
	"gem-scanner/internal/logger"
	"gem-scanner/internal/recorder"
	"gem-scanner/internal/scoring"
	"gem-scanner/internal/timeframe"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	symbol := flag.String("symbol", "", "stock symbol to score (required)")
	horizon := flag.String("horizon", "", "short, medium or long (default from config)")
	format := flag.String("format", "text", "output format: text or json")
	save := flag.Bool("save", false, "persist the score")
	flag.Parse()

	if *symbol == "" {
		fmt.Println("Error: -symbol is required")
		flag.Usage()
		os.Exit(1)
	}
	if err := bootstrap.InitSystem(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx := context.Background()
	defer bootstrap.ShutdownSystem(ctx)

	if err := run(ctx, *configPath, *symbol, *horizon, *format, *save); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, symbol, horizon, format string, save bool) error {
	cfg, err := bootstrap.LoadConfig(ctx, configPath)
	if err != nil {
		return err
	}
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if horizon == "" {
		horizon = cfg.Horizon
	}
	h, ok := timeframe.ParseHorizon(horizon)
	if !ok {
		return fmt.Errorf("unknown horizon %q", horizon)
	}

	d, err := app.Provider.FetchDataset(ctx, symbol)
	if err != nil {
		return err
	}
	res := app.Scorer.Score(ctx, d, scoring.Options{Horizon: h})

	if save {
		if err := app.Recorder.SaveScore(ctx, recorder.RecordFromResult(res)); err != nil {
			logger.Warn(ctx, "Failed to save score", "error", err)
		}
	}

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(os.Stdout, res)
	return nil
}

func num(v *float64, suffix string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%s", *v, suffix)
}

func printResult(w io.Writer, r *scoring.Result) {
	name := r.CompanyName
	if name == "" {
		name = r.Symbol
	}
	fmt.Fprintf(w, "%s (%s)  sector=%s  price=%s  market cap=%s\n",
		name, r.Symbol, r.Sector, num(r.Price, ""), num(r.MarketCap, ""))
	fmt.Fprintln(w, strings.Repeat("─", 72))

	if q := r.Quality; q != nil {
		fmt.Fprintf(w, "QM score %d/8\n", q.Total)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, p := range q.Pillars {
			mark := "✗"
			if p.Passed {
				mark = "✓"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", mark, p.Name, num(p.MeasuredValue, ""), p.Threshold)
		}
		tw.Flush()
		fmt.Fprintf(w, "Growth signals %d/3, shares decreasing: %t\n", q.Growth.Count(), q.SharesDecreasing)
	}

	fmt.Fprintf(w, "\nValuation: %s\n", r.Valuation)

	t := r.Tier
	fmt.Fprintf(w, "\nTier: %s  confidence=%d  eligible=%t\n", t.Tier.Label(), t.ConfidenceScore, t.Eligible)
	for _, reason := range t.Reasons {
		fmt.Fprintf(w, "  - %s\n", reason)
	}

	fmt.Fprintln(w, "\nHorizons:")
	for _, h := range timeframe.Horizons {
		hr, ok := r.Horizons[h]
		if !ok {
			continue
		}
		gem := hr.GemTier
		if gem == "" {
			gem = "-"
		}
		marker := " "
		if h == r.Horizon.Horizon {
			marker = "*"
		}
		fmt.Fprintf(w, " %s %-6s score=%3d  %-11s gem=%s\n", marker, h, hr.Score, hr.Rating, gem)
	}

	m := r.Macro
	fmt.Fprintf(w, "\nMacro: fit=%.1f (%s) bonus=%+d adjusted=%d risk=%s\n",
		m.Fit.Score, m.Outlook, m.Bonus, m.AdjustedScore, m.RiskLevel)
	if m.Fit.Reasoning != "" {
		fmt.Fprintf(w, "  %s\n", m.Fit.Reasoning)
	}
}
