// Package bootstrap builds the runtime components from configuration. Every
// command goes through it so they share one wiring.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"gem-scanner/internal/api"
	"gem-scanner/internal/interfaces"
	"gem-scanner/internal/journal"
	"gem-scanner/internal/logger"
	"gem-scanner/internal/macro"
	"gem-scanner/internal/provider"
	"gem-scanner/internal/provider/cache"
	"gem-scanner/internal/provider/fmp"
	"gem-scanner/internal/provider/kite"
	"gem-scanner/internal/provider/mock"
	"gem-scanner/internal/provider/providerobs"
	"gem-scanner/internal/provider/ratelimit"
	"gem-scanner/internal/recorder"
	"gem-scanner/internal/scan"
	"gem-scanner/internal/scoring"
	"gem-scanner/internal/scoring/scoringobs"
	"gem-scanner/internal/store"
	"gem-scanner/internal/timeframe"
	"gem-scanner/internal/trace"
)

// InitSystem loads .env and initializes logging and tracing.
func InitSystem() error {
	store.LoadEnv()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// ShutdownSystem flushes the tracer and closes the log file.
func ShutdownSystem(ctx context.Context) {
	if err := trace.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to shut down tracer: %v\n", err)
	}
	if err := logger.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close log file: %v\n", err)
	}
}

// LoadConfig loads path and logs failures.
func LoadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// App holds the wired components.
type App struct {
	Config   *store.Config
	Provider interfaces.DatasetProvider
	Scorer   interfaces.Scorer
	Macro    *macro.Store
	Recorder recorder.Recorder
	Journal  *journal.Journal
	Limits   *ratelimit.Registry

	cacheDB *badger.DB
}

// New wires every component. The macro store starts from the last persisted
// environment, then the configured one, then the default.
func New(ctx context.Context, cfg *store.Config) (*App, error) {
	a := &App{Config: cfg, Limits: ratelimit.NewRegistry()}
	for name, l := range cfg.RateLimits {
		a.Limits.Add(name, l)
	}

	rec, err := openRecorder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Recorder = rec

	if a.Macro, err = loadMacro(ctx, cfg, rec); err != nil {
		a.Close()
		return nil, err
	}

	pipeline := scoring.NewPipeline(cfg.Reference.Pipeline(), a.Macro)
	a.Scorer = scoringobs.Wrap(pipeline)

	if a.Provider, err = a.buildProvider(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Journal = journal.New(cfg.Journal.Dir, nil)
	if n, err := a.Journal.CompressOlder(cfg.Journal.RetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old journal files", "error", err)
	} else if n > 0 {
		logger.Info(ctx, "Compressed old journal files", "count", n)
	}
	return a, nil
}

func (a *App) waiter(source string) api.Waiter {
	if l := a.Limits.Get(source); l != nil {
		return l
	}
	return nil
}

func (a *App) buildProvider(ctx context.Context) (interfaces.DatasetProvider, error) {
	cfg := a.Config
	var base interfaces.DatasetProvider
	switch cfg.DataSource {
	case "FMP":
		p, err := fmp.New(fmp.Config{
			BaseURL: cfg.Providers.FMP.BaseURL,
			APIKey:  cfg.Providers.FMP.APIKey,
			Market:  cfg.Market,
			Timeout: cfg.Providers.FMP.Timeout,
			Limiter: a.waiter("fmp"),
		})
		if err != nil {
			return nil, err
		}
		base = p
		logger.Info(ctx, "Using LIVE fundamentals from FMP")
	default:
		base = mock.New(cfg.Market)
		logger.Warn(ctx, "Using MOCK fundamentals - scores are synthetic")
	}

	if cfg.Providers.Kite.Enabled {
		q, err := kite.New(kite.Config{
			APIKey:      cfg.Providers.Kite.APIKey,
			AccessToken: cfg.Providers.Kite.AccessToken,
			Exchange:    cfg.Providers.Kite.Exchange,
			Limiter:     a.waiter("kite"),
		})
		if err != nil {
			return nil, err
		}
		base = provider.NewComposite(base, providerobs.WrapQuotes(q))
		logger.Info(ctx, "Using Kite quotes", "exchange", cfg.Providers.Kite.Exchange)
	}

	if cfg.Cache.Enabled {
		db, err := cache.Open(cfg.Cache.Dir)
		if err != nil {
			return nil, err
		}
		a.cacheDB = db
		base = cache.New(base, db, cfg.Cache.TTL)
	}
	return providerobs.Wrap(base), nil
}

func openRecorder(ctx context.Context, cfg *store.Config) (recorder.Recorder, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		return recorder.NewPostgresRecorder(ctx, cfg.Storage.DatabaseURL)
	case "sqlite":
		if dir := filepath.Dir(cfg.Storage.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return recorder.NewSQLiteRecorder(ctx, cfg.Storage.SQLitePath)
	default:
		logger.Warn(ctx, "Storage disabled - scores will not be persisted")
		return recorder.NoopRecorder{}, nil
	}
}

func loadMacro(ctx context.Context, cfg *store.Config, rec recorder.Recorder) (*macro.Store, error) {
	table, err := cfg.Reference.ProfileTable()
	if err != nil {
		return nil, err
	}
	saved, err := rec.LoadSectorProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sector profiles: %w", err)
	}
	for sector, p := range saved {
		if table, err = table.With(sector, p); err != nil {
			return nil, fmt.Errorf("sector profile %s: %w", sector, err)
		}
	}

	env := macro.DefaultEnvironment()
	switch stored, err := rec.LoadMacroEnvironment(ctx); {
	case err == nil:
		env = *stored
	case !errors.Is(err, recorder.ErrNotFound):
		return nil, fmt.Errorf("load macro environment: %w", err)
	case cfg.Macro.Environment != nil:
		env = *cfg.Macro.Environment
	}

	ms, err := macro.NewStore(env, table)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Macro environment loaded",
		"phase", env.Phase, "liquidity", env.Liquidity, "sentiment", env.Sentiment,
		"source", env.Source, "custom_sectors", len(saved))
	return ms, nil
}

// Scanner builds a scanner for the configured market. An empty horizon uses
// the configured one.
func (a *App) Scanner(horizon string) *scan.Scanner {
	if horizon == "" {
		horizon = a.Config.Horizon
	}
	h, _ := timeframe.ParseHorizon(horizon)
	return scan.New(scan.Config{
		Market:      a.Config.Market,
		Horizon:     h,
		Concurrency: a.Config.Scan.Concurrency,
		BatchSize:   a.Config.Scan.BatchSize,
		BatchPause:  a.Config.Scan.BatchPause,
	}, a.Provider, a.Scorer, a.Recorder, a.Journal)
}

// Close releases the recorder and cache.
func (a *App) Close() error {
	var errs []error
	if a.Recorder != nil {
		errs = append(errs, a.Recorder.Close())
	}
	if a.cacheDB != nil {
		errs = append(errs, a.cacheDB.Close())
	}
	return errors.Join(errs...)
}
