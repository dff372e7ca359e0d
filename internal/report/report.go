// Package report renders scan results as CSV and as a console summary.
package report

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"gem-scanner/internal/scan"
	"gem-scanner/internal/scoring"
)

// Sort orders results by tier, then confidence, then adjusted score, then
// symbol. It sorts in place and returns results.
func Sort(results []*scoring.Result) []*scoring.Result {
	slices.SortStableFunc(results, func(a, b *scoring.Result) int {
		if c := cmp.Compare(b.Tier.Tier.Rank(), a.Tier.Tier.Rank()); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Tier.ConfidenceScore, a.Tier.ConfidenceScore); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Macro.AdjustedScore, a.Macro.AdjustedScore); c != 0 {
			return c
		}
		return strings.Compare(a.Symbol, b.Symbol)
	})
	return results
}

var csvHeader = []string{
	"symbol", "market", "company", "sector", "price", "market_cap",
	"qm_score", "fair_pe", "observed_pe", "value_gap_pct", "valuation",
	"tier", "confidence", "growth_signals", "shares_decreasing",
	"horizon", "horizon_score", "rating", "gem_tier",
	"sector_fit", "macro_bonus", "adjusted_score", "outlook", "risk",
}

func optFloat(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

// WriteCSV writes one row per result in Sort order. Null values are empty cells.
func WriteCSV(w io.Writer, results []*scoring.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range Sort(slices.Clone(results)) {
		qm := ""
		if r.Quality != nil {
			qm = strconv.Itoa(r.Quality.Total)
		}
		row := []string{
			r.Symbol, r.Market, r.CompanyName, r.Sector,
			optFloat(r.Price, 2), optFloat(r.MarketCap, 0),
			qm,
			strconv.FormatFloat(r.Valuation.FairPE, 'f', 2, 64),
			optFloat(r.Valuation.ObservedPE, 2),
			optFloat(r.Valuation.ValueGapPercent, 2),
			string(r.Valuation.Status),
			string(r.Tier.Tier),
			strconv.Itoa(r.Tier.ConfidenceScore),
			strconv.Itoa(r.Tier.GrowthSignalCount),
			strconv.FormatBool(r.Quality != nil && r.Quality.SharesDecreasing),
			string(r.Horizon.Horizon),
			strconv.Itoa(r.Horizon.Score),
			string(r.Horizon.Rating),
			r.Horizon.GemTier,
			strconv.FormatFloat(r.Macro.Fit.Score, 'f', 1, 64),
			strconv.Itoa(r.Macro.Bonus),
			strconv.Itoa(r.Macro.AdjustedScore),
			string(r.Macro.Outlook),
			string(r.Macro.RiskLevel),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVPath is where the CSV for a session is written under dir.
func CSVPath(dir, sessionID string) string {
	if dir == "" {
		dir = "reports"
	}
	return filepath.Join(dir, "scan-"+sessionID+".csv")
}

// WriteCSVFile writes the session's CSV and returns its path.
func WriteCSVFile(dir string, rep *scan.Report) (string, error) {
	p := CSVPath(dir, rep.Session.ID)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(p)
	if err != nil {
		return "", err
	}
	if err := WriteCSV(f, rep.Results); err != nil {
		f.Close()
		return "", err
	}
	return p, f.Close()
}

func money(v *float64) string {
	if v == nil {
		return "-"
	}
	return humanize.FormatFloat("#,###.##", *v)
}

func capital(v *float64) string {
	if v == nil {
		return "-"
	}
	return strings.TrimSpace(humanize.SIWithDigits(*v, 1, ""))
}

func gap(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.1f%%", *v)
}

// WriteSummary prints the session header and a table of tiered results. With
// all set, untiered results are listed too.
func WriteSummary(w io.Writer, rep *scan.Report, all bool) error {
	s := rep.Session
	fmt.Fprintf(w, "Scan %s  market=%s  horizon=%s  status=%s\n", s.ID, s.Market, s.Horizon, s.Status)
	dur := "-"
	if !s.FinishedAt.IsZero() && !s.StartedAt.IsZero() {
		dur = s.FinishedAt.Sub(s.StartedAt).Round(time.Second).String()
	}
	fmt.Fprintf(w, "Scanned %s of %s symbols in %s, %s failed, %s qualified\n",
		humanize.Comma(int64(s.Processed)), humanize.Comma(int64(s.Total)), dur,
		humanize.Comma(int64(s.Failed)), humanize.Comma(int64(s.Qualified)))

	tiers := make([]string, 0, len(s.TierCounts))
	for _, r := range []string{"crown-jewel", "diamond", "gold", "silver"} {
		if n := s.TierCounts[r]; n > 0 {
			tiers = append(tiers, fmt.Sprintf("%s=%d", r, n))
		}
	}
	if len(tiers) > 0 {
		fmt.Fprintf(w, "Tiers: %s\n", strings.Join(tiers, " "))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSYMBOL\tTIER\tCONF\tQM\tGAP\tPRICE\tMCAP\tHORIZON\tGEM\tADJ\tOUTLOOK")
	rank := 0
	for _, r := range Sort(slices.Clone(rep.Results)) {
		if !all && r.Tier.Tier == "" {
			continue
		}
		rank++
		qm := "-"
		if r.Quality != nil {
			qm = fmt.Sprintf("%d/8", r.Quality.Total)
		}
		gem := r.Horizon.GemTier
		if gem == "" {
			gem = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%d (%s)\t%s\t%d\t%s\n",
			humanize.Ordinal(rank), r.Symbol, r.Tier.Tier.Label(), r.Tier.ConfidenceScore, qm,
			gap(r.Valuation.ValueGapPercent), money(r.Price), capital(r.MarketCap),
			r.Horizon.Score, r.Horizon.Rating, gem, r.Macro.AdjustedScore, r.Macro.Outlook)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if rank == 0 {
		fmt.Fprintln(w, "No qualifying stocks.")
	}
	for _, f := range rep.Failures {
		fmt.Fprintf(w, "failed: %s: %v\n", f.Symbol, f.Err)
	}
	return nil
}
