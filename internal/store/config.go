package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"gem-scanner/internal/macro"
	"gem-scanner/internal/provider/ratelimit"
	"gem-scanner/internal/quality"
	"gem-scanner/internal/scoring"
	"gem-scanner/internal/tier"
	"gem-scanner/internal/timeframe"
	"gem-scanner/internal/valuation"
)

type Config struct {
	Market     string   `yaml:"market" validate:"required"`
	DataSource string   `yaml:"data_source" validate:"oneof=FMP MOCK"`
	Horizon    string   `yaml:"horizon" validate:"omitempty,oneof=short medium long"`
	Universe   []string `yaml:"universe" validate:"min=1,dive,required"`

	Providers struct {
		FMP struct {
			BaseURL string        `yaml:"base_url" validate:"omitempty,url"`
			APIKey  string        `yaml:"-"`
			Timeout time.Duration `yaml:"timeout"`
		} `yaml:"fmp"`
		Kite struct {
			Enabled     bool   `yaml:"enabled"`
			Exchange    string `yaml:"exchange"`
			APIKey      string `yaml:"-"`
			AccessToken string `yaml:"-"`
		} `yaml:"kite"`
	} `yaml:"providers"`

	RateLimits map[string]ratelimit.Limit `yaml:"rate_limits"`

	Cache struct {
		Enabled bool          `yaml:"enabled"`
		Dir     string        `yaml:"dir"`
		TTL     time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Scan struct {
		Concurrency int           `yaml:"concurrency" validate:"gte=1,lte=64"`
		BatchSize   int           `yaml:"batch_size" validate:"gte=1"`
		BatchPause  time.Duration `yaml:"batch_pause" validate:"gte=0"`
	} `yaml:"scan"`

	Storage struct {
		// sqlite, postgres or none
		Driver      string `yaml:"driver" validate:"oneof=sqlite postgres none"`
		SQLitePath  string `yaml:"sqlite_path"`
		DatabaseURL string `yaml:"-"`
	} `yaml:"storage"`

	Journal struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days" validate:"gte=0"`
	} `yaml:"journal"`

	Reports struct {
		Dir string `yaml:"dir"`
	} `yaml:"reports"`

	Schedule struct {
		Scan         string `yaml:"scan"`
		MacroRefresh string `yaml:"macro_refresh"`
	} `yaml:"schedule"`

	Macro struct {
		// Used when nothing has been persisted yet.
		Environment *macro.Environment `yaml:"environment"`
		Source      macro.SourceConfig `yaml:"source"`
	} `yaml:"macro"`

	Reference Reference `yaml:"reference"`
}

// Reference holds the tables the scoring engines are built from.
type Reference struct {
	Quality       quality.Thresholds             `yaml:"quality"`
	Valuation     valuation.Model                `yaml:"valuation"`
	Tier          tier.Policy                    `yaml:"tier"`
	Timeframes    timeframe.Profiles             `yaml:"timeframes" validate:"dive"`
	Sectors       map[string]macro.SectorProfile `yaml:"sectors"`
	SectorAliases map[string]string              `yaml:"sector_aliases"`
}

// DefaultReference returns the built-in tables.
func DefaultReference() Reference {
	return Reference{
		Quality:       quality.DefaultThresholds(),
		Valuation:     valuation.DefaultModel(),
		Tier:          tier.DefaultPolicy(),
		Timeframes:    timeframe.DefaultProfiles(),
		Sectors:       macro.DefaultProfiles(),
		SectorAliases: macro.DefaultAliases(),
	}
}

// Pipeline returns the scoring configuration.
func (r Reference) Pipeline() scoring.Config {
	return scoring.Config{
		Quality:    r.Quality,
		Valuation:  r.Valuation,
		Tier:       r.Tier,
		Timeframes: r.Timeframes,
	}
}

// ProfileTable builds the sector table.
func (r Reference) ProfileTable() (*macro.ProfileTable, error) {
	return macro.NewProfileTable(r.Sectors, r.SectorAliases)
}

// Default returns a configuration that runs the mock provider against
// a local SQLite file.
func Default() Config {
	var c Config
	c.Market = "US"
	c.DataSource = "MOCK"
	c.Horizon = string(timeframe.Long)
	c.Universe = []string{"AAPL", "MSFT", "GOOGL", "NVDA", "KO", "JNJ", "XOM", "JPM"}
	c.Providers.FMP.Timeout = 20 * time.Second
	c.Providers.Kite.Exchange = "NSE"
	c.RateLimits = map[string]ratelimit.Limit{
		"fmp":  {Every: 250 * time.Millisecond, Burst: 4},
		"kite": {Every: 350 * time.Millisecond, Burst: 1},
	}
	c.Cache.Dir = "data/cache"
	c.Cache.TTL = 12 * time.Hour
	c.Scan.Concurrency = 4
	c.Scan.BatchSize = 20
	c.Scan.BatchPause = 2 * time.Second
	c.Storage.Driver = "sqlite"
	c.Storage.SQLitePath = "data/scores.db"
	c.Journal.Dir = "logs/tiers"
	c.Reports.Dir = "reports"
	c.Schedule.Scan = "0 30 18 * * 1-5"
	c.Schedule.MacroRefresh = "0 0 7 * * *"
	c.Macro.Source = macro.DefaultSourceConfig()
	c.Reference = DefaultReference()
	return c
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	if c.DataSource == "FMP" && c.Providers.FMP.APIKey == "" {
		return errors.New("data_source FMP requires FMP_API_KEY")
	}
	if c.Providers.Kite.Enabled && (c.Providers.Kite.APIKey == "" || c.Providers.Kite.AccessToken == "") {
		return errors.New("providers.kite requires KITE_API_KEY and KITE_ACCESS_TOKEN")
	}
	if c.Storage.Driver == "postgres" && c.Storage.DatabaseURL == "" {
		return errors.New("storage driver postgres requires DATABASE_URL")
	}
	if c.Storage.Driver == "sqlite" && c.Storage.SQLitePath == "" {
		return errors.New("storage.sqlite_path cannot be empty")
	}
	if err := c.Reference.Timeframes.Validate(); err != nil {
		return fmt.Errorf("reference.timeframes: %w", err)
	}
	if len(c.Reference.Tier.Tiers) == 0 {
		return errors.New("reference.tier.tiers cannot be empty")
	}
	if _, err := c.Reference.ProfileTable(); err != nil {
		return fmt.Errorf("reference.sectors: %w", err)
	}
	if c.Macro.Environment != nil {
		if err := c.Macro.Environment.Validate(); err != nil {
			return fmt.Errorf("macro.environment: %w", err)
		}
	}
	return nil
}

// LoadEnv reads .env files into the process environment. Missing files are
// ignored.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// LoadConfig reads path over the defaults, applies environment overrides and
// validates. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	c.Market = strings.ToUpper(strings.TrimSpace(c.Market))
	c.DataSource = strings.ToUpper(strings.TrimSpace(c.DataSource))
	for i, s := range c.Universe {
		c.Universe[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	if c.Scan.Concurrency == 0 {
		c.Scan.Concurrency = 4
	}
	if c.Scan.BatchSize == 0 {
		c.Scan.BatchSize = 20
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("FMP_API_KEY"); v != "" {
		c.Providers.FMP.APIKey = v
	}
	if v := getenv("KITE_API_KEY"); v != "" {
		c.Providers.Kite.APIKey = v
	}
	if v := getenv("KITE_ACCESS_TOKEN"); v != "" {
		c.Providers.Kite.AccessToken = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.Storage.DatabaseURL = v
		c.Storage.Driver = "postgres"
	}
	if v := getenv("SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := getenv("SCAN_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCAN_CONCURRENCY: %w", err)
		}
		c.Scan.Concurrency = n
	}
	if v := getenv("TIER_JOURNAL_RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TIER_JOURNAL_RETENTION_DAYS: %w", err)
		}
		c.Journal.RetentionDays = n
	}
	return nil
}
