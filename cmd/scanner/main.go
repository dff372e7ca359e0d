package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gem-scanner/internal/bootstrap"
	"gem-scanner/internal/logger"
	"gem-scanner/internal/macro"
	"gem-scanner/internal/report"
	"gem-scanner/internal/scan"
	"gem-scanner/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	horizon := flag.String("horizon", "", "short, medium or long (default from config)")
	symbols := flag.String("symbols", "", "comma-separated symbols overriding the configured universe")
	showAll := flag.Bool("all", false, "list untiered stocks in the summary")
	daemon := flag.Bool("daemon", false, "stay running and scan on the configured cron schedule")
	flag.Parse()

	if err := bootstrap.InitSystem(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer bootstrap.ShutdownSystem(context.Background())

	if err := run(ctx, *configPath, *horizon, *symbols, *showAll, *daemon); err != nil {
		logger.ErrorWithErr(ctx, "Scanner failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, horizon, symbols string, showAll, daemon bool) error {
	cfg, err := bootstrap.LoadConfig(ctx, configPath)
	if err != nil {
		return err
	}
	if symbols != "" {
		cfg.Universe = strings.Split(symbols, ",")
	}

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	sc := app.Scanner(horizon)
	universe := func() []string { return cfg.Universe }
	done := func(ctx context.Context, rep *scan.Report) {
		if p, err := report.WriteCSVFile(cfg.Reports.Dir, rep); err != nil {
			logger.Warn(ctx, "Failed to write CSV report", "error", err)
		} else {
			logger.Info(ctx, "CSV report written", "path", p)
		}
		if err := report.WriteSummary(os.Stdout, rep, showAll); err != nil {
			logger.Warn(ctx, "Failed to print summary", "error", err)
		}
	}

	if !daemon {
		rep, err := sc.Run(ctx, universe())
		if rep != nil {
			done(ctx, rep)
		}
		return err
	}

	sched := scheduler.New(ctx)
	if err := sched.Register("scan", cfg.Schedule.Scan, scheduler.ScanJob(sc, universe, done)); err != nil {
		return err
	}
	if cfg.Macro.Source.URL != "" {
		src := macro.NewSource(cfg.Macro.Source)
		job := scheduler.MacroRefreshJob(cfg.Macro.Source.Name, src, app.Macro, app.Recorder)
		if err := sched.Register("macro_refresh", cfg.Schedule.MacroRefresh, job); err != nil {
			return err
		}
	} else {
		logger.Warn(ctx, "No macro source url configured - macro refresh disabled")
	}

	sched.Start()
	if next, ok := sched.Next("scan"); ok {
		logger.Info(ctx, "Scanner daemon running", "next_scan", next)
	}
	<-ctx.Done()
	logger.Info(ctx, "Shutting down...")
	sched.Stop()
	return nil
}
