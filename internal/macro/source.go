package macro

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"gem-scanner/internal/logger"
)

// Indicator names the continuous series a page can report.
type Indicator string

const (
	IndicatorPolicyRate        Indicator = "policy_rate"
	IndicatorInflation         Indicator = "inflation"
	IndicatorUnemployment      Indicator = "unemployment"
	IndicatorYieldCurveSpread  Indicator = "yield_curve_spread"
	IndicatorVIX               Indicator = "vix"
	IndicatorMoneySupplyGrowth Indicator = "money_supply_growth"
	IndicatorCreditSpread      Indicator = "credit_spread"
)

// Indicators is a partial set of scraped readings, keyed by indicator.
type Indicators map[Indicator]float64

// Apply copies every reading present onto env and returns the result.
func (ind Indicators) Apply(env Environment) Environment {
	for k, v := range ind {
		switch k {
		case IndicatorPolicyRate:
			env.PolicyRate = v
		case IndicatorInflation:
			env.Inflation = v
		case IndicatorUnemployment:
			env.Unemployment = v
		case IndicatorYieldCurveSpread:
			env.YieldCurveSpread = v
		case IndicatorVIX:
			env.VIX = v
		case IndicatorMoneySupplyGrowth:
			env.MoneySupplyGrowth = v
		case IndicatorCreditSpread:
			env.CreditSpread = v
		}
	}
	return env
}

// SourceConfig describes an HTML page listing indicators as label/value rows.
type SourceConfig struct {
	Name          string        `yaml:"name"`
	URL           string        `yaml:"url" validate:"omitempty,url"`
	RowSelector   string        `yaml:"row_selector"`
	LabelSelector string        `yaml:"label_selector"`
	ValueSelector string        `yaml:"value_selector"`
	Timeout       time.Duration `yaml:"timeout"`
	// Labels maps a case-insensitive label substring to the indicator it reports.
	Labels map[string]Indicator `yaml:"labels"`
}

// DefaultSourceConfig returns selectors for a plain two-column table.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		Name:          "indicators",
		RowSelector:   "table tr",
		LabelSelector: "td:nth-child(1), th:nth-child(1)",
		ValueSelector: "td:nth-child(2)",
		Timeout:       15 * time.Second,
		Labels: map[string]Indicator{
			"fed funds":         IndicatorPolicyRate,
			"policy rate":       IndicatorPolicyRate,
			"repo rate":         IndicatorPolicyRate,
			"inflation":         IndicatorInflation,
			"cpi":               IndicatorInflation,
			"unemployment":      IndicatorUnemployment,
			"yield curve":       IndicatorYieldCurveSpread,
			"10y-2y":            IndicatorYieldCurveSpread,
			"vix":               IndicatorVIX,
			"volatility":        IndicatorVIX,
			"m2":                IndicatorMoneySupplyGrowth,
			"money supply":      IndicatorMoneySupplyGrowth,
			"credit spread":     IndicatorCreditSpread,
			"high yield spread": IndicatorCreditSpread,
		},
	}
}

// Source scrapes indicator readings from a web page.
type Source struct {
	cfg SourceConfig
}

func NewSource(cfg SourceConfig) *Source {
	def := DefaultSourceConfig()
	if cfg.RowSelector == "" {
		cfg.RowSelector = def.RowSelector
	}
	if cfg.LabelSelector == "" {
		cfg.LabelSelector = def.LabelSelector
	}
	if cfg.ValueSelector == "" {
		cfg.ValueSelector = def.ValueSelector
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if len(cfg.Labels) == 0 {
		cfg.Labels = def.Labels
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	return &Source{cfg: cfg}
}

// Fetch visits the configured page and returns whatever readings it finds.
func (s *Source) Fetch(ctx context.Context) (Indicators, error) {
	if s.cfg.URL == "" {
		return nil, fmt.Errorf("macro source %s: no url configured", s.cfg.Name)
	}

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(s.cfg.URL)),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.cfg.Timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (compatible; gem-scanner/1.0)")
	})

	var (
		found     Indicators
		scrapeErr error
	)
	c.OnHTML("html", func(e *colly.HTMLElement) {
		found = parseSelection(e.DOM, s.cfg)
	})
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = err
		logger.ErrorWithErr(ctx, "Macro indicator scrape failed", err,
			"source", s.cfg.Name, "url", r.Request.URL.String(), "status", r.StatusCode)
	})

	if err := c.Visit(s.cfg.URL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", s.cfg.URL, err)
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, fmt.Errorf("scrape %s: %w", s.cfg.Name, scrapeErr)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("scrape %s: no indicators found", s.cfg.Name)
	}

	logger.Info(ctx, "Macro indicators scraped", "source", s.cfg.Name, "count", len(found))
	return found, nil
}

// ParseIndicators reads indicator rows from an HTML document.
func ParseIndicators(r io.Reader, cfg SourceConfig) (Indicators, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return parseSelection(doc.Selection, NewSource(cfg).cfg), nil
}

func parseSelection(sel *goquery.Selection, cfg SourceConfig) Indicators {
	out := Indicators{}
	sel.Find(cfg.RowSelector).Each(func(_ int, row *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(row.Find(cfg.LabelSelector).First().Text()))
		if label == "" {
			return
		}
		ind, ok := matchLabel(label, cfg.Labels)
		if !ok {
			return
		}
		if _, seen := out[ind]; seen {
			return
		}
		v, err := parseNumber(row.Find(cfg.ValueSelector).First().Text())
		if err != nil {
			return
		}
		out[ind] = v
	})
	return out
}

// matchLabel picks the longest configured substring contained in label.
func matchLabel(label string, labels map[string]Indicator) (Indicator, bool) {
	var (
		best    Indicator
		bestLen int
	)
	for sub, ind := range labels {
		sub = strings.ToLower(sub)
		if strings.Contains(label, sub) && len(sub) > bestLen {
			best, bestLen = ind, len(sub)
		}
	}
	return best, bestLen > 0
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("%", "", ",", "", "−", "-", "+", "").Replace(s)
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	return strconv.ParseFloat(s, 64)
}

func getDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
