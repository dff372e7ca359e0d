package main

import (
	"context"
	"flag"
	"fmt"
	"maps"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"gem-scanner/internal/bootstrap"
	"gem-scanner/internal/logger"
	"gem-scanner/internal/macro"
	"gem-scanner/internal/scheduler"
)

const usage = `usage: macro <command> [flags]

commands:
  show      print the current environment and sector table
  set       update phase, liquidity, sentiment or indicator readings
  scrape    fetch indicator readings from the configured source
  profile   add or replace a sector profile`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(2)
	}
	if err := bootstrap.InitSystem(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx := context.Background()
	defer bootstrap.ShutdownSystem(ctx)

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "show":
		err = show(ctx, args)
	case "set":
		err = set(ctx, args)
	case "scrape":
		err = scrape(ctx, args)
	case "profile":
		err = profile(ctx, args)
	default:
		fmt.Println(usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func open(ctx context.Context, path string) (*bootstrap.App, error) {
	cfg, err := bootstrap.LoadConfig(ctx, path)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg)
}

func show(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	_ = fs.Parse(args)

	app, err := open(ctx, *configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	env := app.Macro.Current()
	fmt.Printf("Phase %s, liquidity %s, sentiment %s (source %s, updated %s)\n",
		env.Phase, env.Liquidity, env.Sentiment, env.Source, env.UpdatedAt.Format(time.RFC3339))
	fmt.Printf("Policy rate %.2f%%  inflation %.2f%%  unemployment %.2f%%  curve %.2f  VIX %.1f  M2 %.2f%%  credit %.2f\n\n",
		env.PolicyRate, env.Inflation, env.Unemployment, env.YieldCurveSpread, env.VIX, env.MoneySupplyGrowth, env.CreditSpread)

	engine, _ := app.Macro.Snapshot()
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTOR\tFIT\tOUTLOOK")
	for _, sector := range app.Macro.Profiles().Sectors() {
		fit := engine.SectorFit(sector, env)
		fmt.Fprintf(tw, "%s\t%.1f\t%s\n", sector, fit.Score, fit.Outlook)
	}
	return tw.Flush()
}

func set(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	phase := fs.String("phase", "", "early-expansion, mid-expansion, late-expansion or recession")
	liquidity := fs.String("liquidity", "", "expanding, stable or tightening")
	sentiment := fs.String("sentiment", "", "risk-on, neutral or risk-off")
	readings := map[macro.Indicator]*float64{
		macro.IndicatorPolicyRate:        fs.Float64("policy-rate", 0, "policy rate in percent"),
		macro.IndicatorInflation:         fs.Float64("inflation", 0, "inflation in percent"),
		macro.IndicatorUnemployment:      fs.Float64("unemployment", 0, "unemployment in percent"),
		macro.IndicatorYieldCurveSpread:  fs.Float64("yield-curve", 0, "10y-2y spread"),
		macro.IndicatorVIX:               fs.Float64("vix", 0, "VIX level"),
		macro.IndicatorMoneySupplyGrowth: fs.Float64("m2-growth", 0, "money supply growth in percent"),
		macro.IndicatorCreditSpread:      fs.Float64("credit-spread", 0, "credit spread"),
	}
	flagIndicator := map[string]macro.Indicator{
		"policy-rate": macro.IndicatorPolicyRate, "inflation": macro.IndicatorInflation,
		"unemployment": macro.IndicatorUnemployment, "yield-curve": macro.IndicatorYieldCurveSpread,
		"vix": macro.IndicatorVIX, "m2-growth": macro.IndicatorMoneySupplyGrowth,
		"credit-spread": macro.IndicatorCreditSpread,
	}
	_ = fs.Parse(args)

	app, err := open(ctx, *configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	env := app.Macro.Current()
	if *phase != "" {
		if env.Phase, err = macro.ParsePhase(*phase); err != nil {
			return err
		}
	}
	if *liquidity != "" {
		if env.Liquidity, err = macro.ParseLiquidity(*liquidity); err != nil {
			return err
		}
	}
	if *sentiment != "" {
		if env.Sentiment, err = macro.ParseSentiment(*sentiment); err != nil {
			return err
		}
	}
	changed := macro.Indicators{}
	fs.Visit(func(f *flag.Flag) {
		if ind, ok := flagIndicator[f.Name]; ok {
			changed[ind] = *readings[ind]
		}
	})
	env = changed.Apply(env)
	env.Source = "admin"
	env.UpdatedAt = time.Now().UTC()

	if err := app.Macro.SetEnvironment(env); err != nil {
		return err
	}
	if err := app.Recorder.SaveMacroEnvironment(ctx, env); err != nil {
		return err
	}
	logger.Macro(ctx, string(env.Phase), string(env.Liquidity), string(env.Sentiment),
		"source", env.Source, "indicators", len(changed))
	fmt.Printf("Macro environment updated: %s / %s / %s\n", env.Phase, env.Liquidity, env.Sentiment)
	return nil
}

func scrape(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	url := fs.String("url", "", "page to scrape (default from config)")
	_ = fs.Parse(args)

	app, err := open(ctx, *configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	srcCfg := app.Config.Macro.Source
	if *url != "" {
		srcCfg.URL = *url
	}
	job := scheduler.MacroRefreshJob(srcCfg.Name, macro.NewSource(srcCfg), app.Macro, app.Recorder)
	if err := job(ctx); err != nil {
		return err
	}
	env := app.Macro.Current()
	fmt.Printf("Indicators refreshed from %s: policy rate %.2f, VIX %.1f\n", env.Source, env.PolicyRate, env.VIX)
	return nil
}

func profile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	sector := fs.String("sector", "", "sector name (required)")
	phaseScores := fs.String("phase-scores", "", "e.g. early=8,mid=9,late=6,recession=3")
	liq := fs.Float64("liquidity-sensitivity", 0, "-10..10")
	rate := fs.Float64("rate-sensitivity", 0, "-10..10")
	def := fs.Float64("defensiveness", 0, "0..10")
	growth := fs.Float64("growth-potential", 0, "0..10")
	_ = fs.Parse(args)

	if strings.TrimSpace(*sector) == "" {
		fs.Usage()
		return fmt.Errorf("-sector is required")
	}

	app, err := open(ctx, *configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	// start from the current profile so unset flags keep their values
	name, p, ok := app.Macro.Profiles().Lookup(*sector)
	if !ok {
		name = strings.TrimSpace(*sector)
	}
	p.PhaseScores = maps.Clone(p.PhaseScores)
	if *phaseScores != "" {
		scores, err := macro.ParsePhaseScores(*phaseScores)
		if err != nil {
			return err
		}
		maps.Copy(p.PhaseScores, scores)
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "liquidity-sensitivity":
			p.LiquiditySensitivity = *liq
		case "rate-sensitivity":
			p.RateSensitivity = *rate
		case "defensiveness":
			p.Defensiveness = *def
		case "growth-potential":
			p.GrowthPotential = *growth
		}
	})

	if err := app.Macro.SetSectorProfile(name, p); err != nil {
		return err
	}
	if err := app.Recorder.SaveSectorProfile(ctx, name, p); err != nil {
		return err
	}
	fit := macro.NewEngine(app.Macro.Profiles()).SectorFit(name, app.Macro.Current())
	logger.Info(ctx, "Sector profile saved", "sector", name, "fit", fit.Score)
	fmt.Printf("Sector %s saved; fit in the current environment %.1f (%s)\n", name, fit.Score, fit.Outlook)
	return nil
}
