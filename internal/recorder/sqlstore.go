package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"gem-scanner/internal/macro"
	"gem-scanner/internal/quality"
)

// dialect captures the SQL differences between SQLite and Postgres.
type dialect struct {
	name    string
	real    string
	boolean string
	serial  string
	bind    func(i int) string
}

var (
	sqliteDialect = dialect{
		name:    "sqlite",
		real:    "REAL",
		boolean: "INTEGER",
		serial:  "INTEGER PRIMARY KEY AUTOINCREMENT",
		bind:    func(int) string { return "?" },
	}
	postgresDialect = dialect{
		name:    "postgres",
		real:    "DOUBLE PRECISION",
		boolean: "BOOLEAN",
		serial:  "BIGSERIAL PRIMARY KEY",
		bind:    func(i int) string { return fmt.Sprintf("$%d", i) },
	}
)

func (d dialect) placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = d.bind(from + i)
	}
	return strings.Join(parts, ", ")
}

func (d dialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS scores (
			symbol TEXT NOT NULL,
			market TEXT NOT NULL,
			company_name TEXT NOT NULL DEFAULT '',
			sector TEXT NOT NULL DEFAULT '',
			price ` + d.real + `,
			market_cap ` + d.real + `,
			latest_fcf ` + d.real + `,
			qm_score INTEGER NOT NULL,
			pillars TEXT NOT NULL,
			roe ` + d.real + `,
			gross_margin ` + d.real + `,
			operating_margin ` + d.real + `,
			current_ratio ` + d.real + `,
			fair_pe ` + d.real + ` NOT NULL,
			observed_pe ` + d.real + `,
			value_gap_pct ` + d.real + `,
			valuation_status TEXT NOT NULL,
			tier TEXT,
			confidence_score INTEGER NOT NULL,
			growth_signals INTEGER NOT NULL,
			shares_decreasing ` + d.boolean + ` NOT NULL,
			horizon TEXT NOT NULL,
			horizon_score INTEGER NOT NULL,
			rating TEXT NOT NULL,
			gem_tier TEXT,
			sector_fit ` + d.real + ` NOT NULL,
			macro_bonus INTEGER NOT NULL,
			adjusted_score INTEGER NOT NULL,
			outlook TEXT NOT NULL,
			risk_level TEXT NOT NULL,
			scored_at BIGINT NOT NULL,
			PRIMARY KEY (symbol, market)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_tier ON scores(tier, confidence_score)`,
		`CREATE TABLE IF NOT EXISTS macro_environment (
			id ` + d.serial + `,
			phase TEXT NOT NULL,
			liquidity TEXT NOT NULL,
			sentiment TEXT NOT NULL,
			indicators TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sector_profiles (
			sector TEXT PRIMARY KEY,
			profile TEXT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scan_sessions (
			id TEXT PRIMARY KEY,
			market TEXT NOT NULL,
			horizon TEXT NOT NULL,
			status TEXT NOT NULL,
			total INTEGER NOT NULL,
			processed INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			qualified INTEGER NOT NULL,
			tier_counts TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			started_at BIGINT,
			finished_at BIGINT
		)`,
	}
}

// row and rows are the subset of database/sql and pgx the store needs.
type row interface {
	Scan(dest ...any) error
}

type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// conn adapts a driver handle to the shared store.
type conn interface {
	exec(ctx context.Context, q string, args ...any) error
	queryRow(ctx context.Context, q string, args ...any) row
	query(ctx context.Context, q string, args ...any) (rows, func(), error)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

// sqlStore implements Recorder over any conn.
type sqlStore struct {
	d    dialect
	c    conn
	now  func() time.Time
	stop func() error
}

func (s *sqlStore) migrate(ctx context.Context) error {
	for _, stmt := range s.d.schema() {
		if err := s.c.exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

var scoreColumns = []string{
	"symbol", "market", "company_name", "sector", "price", "market_cap", "latest_fcf",
	"qm_score", "pillars", "roe", "gross_margin", "operating_margin", "current_ratio",
	"fair_pe", "observed_pe", "value_gap_pct", "valuation_status",
	"tier", "confidence_score", "growth_signals", "shares_decreasing",
	"horizon", "horizon_score", "rating", "gem_tier",
	"sector_fit", "macro_bonus", "adjusted_score", "outlook", "risk_level",
	"scored_at",
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func unixOrNil(t *time.Time) *int64 {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Unix()
	return &v
}

func timeOrNil(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := time.Unix(*v, 0).UTC()
	return &t
}

func (s *sqlStore) SaveScore(ctx context.Context, rec ScoreRecord) error {
	if rec.Symbol == "" {
		return errors.New("save score: empty symbol")
	}
	pillars, err := json.Marshal(rec.Pillars)
	if err != nil {
		return fmt.Errorf("marshal pillars: %w", err)
	}
	if rec.ScoredAt.IsZero() {
		rec.ScoredAt = s.now()
	}

	updates := make([]string, 0, len(scoreColumns)-2)
	for _, c := range scoreColumns[2:] {
		updates = append(updates, c+" = excluded."+c)
	}
	q := fmt.Sprintf(`INSERT INTO scores (%s) VALUES (%s)
		ON CONFLICT (symbol, market) DO UPDATE SET %s`,
		strings.Join(scoreColumns, ", "),
		s.d.placeholders(1, len(scoreColumns)),
		strings.Join(updates, ", "))

	err = s.c.exec(ctx, q,
		rec.Symbol, rec.Market, rec.CompanyName, rec.Sector, rec.Price, rec.MarketCap, rec.LatestFCF,
		rec.QMScore, string(pillars), rec.ROE, rec.GrossMargin, rec.OperatingMargin, rec.CurrentRatio,
		rec.FairPE, rec.ObservedPE, rec.ValueGapPercent, rec.ValuationStatus,
		nullString(rec.Tier), rec.ConfidenceScore, rec.GrowthSignalCount, rec.SharesDecreasing,
		rec.Horizon, rec.HorizonScore, rec.Rating, nullString(rec.GemTier),
		rec.SectorFit, rec.MacroBonus, rec.AdjustedScore, rec.Outlook, rec.RiskLevel,
		rec.ScoredAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert score %s: %w", rec.Symbol, err)
	}
	return nil
}

func scanScore(r row) (*ScoreRecord, error) {
	var (
		rec      ScoreRecord
		pillars  string
		tierName *string
		gemTier  *string
		scoredAt int64
	)
	err := r.Scan(
		&rec.Symbol, &rec.Market, &rec.CompanyName, &rec.Sector, &rec.Price, &rec.MarketCap, &rec.LatestFCF,
		&rec.QMScore, &pillars, &rec.ROE, &rec.GrossMargin, &rec.OperatingMargin, &rec.CurrentRatio,
		&rec.FairPE, &rec.ObservedPE, &rec.ValueGapPercent, &rec.ValuationStatus,
		&tierName, &rec.ConfidenceScore, &rec.GrowthSignalCount, &rec.SharesDecreasing,
		&rec.Horizon, &rec.HorizonScore, &rec.Rating, &gemTier,
		&rec.SectorFit, &rec.MacroBonus, &rec.AdjustedScore, &rec.Outlook, &rec.RiskLevel,
		&scoredAt,
	)
	if err != nil {
		return nil, err
	}
	if tierName != nil {
		rec.Tier = *tierName
	}
	if gemTier != nil {
		rec.GemTier = *gemTier
	}
	rec.ScoredAt = time.Unix(scoredAt, 0).UTC()
	if err := json.Unmarshal([]byte(pillars), &rec.Pillars); err != nil {
		return nil, fmt.Errorf("unmarshal pillars: %w", err)
	}
	for i := range rec.Pillars {
		rec.Pillars[i].ID = quality.PillarID(i)
	}
	return &rec, nil
}

func (s *sqlStore) LoadScore(ctx context.Context, symbol, market string) (*ScoreRecord, error) {
	q := fmt.Sprintf(`SELECT %s FROM scores WHERE symbol = %s AND market = %s`,
		strings.Join(scoreColumns, ", "), s.d.bind(1), s.d.bind(2))
	rec, err := scanScore(s.c.queryRow(ctx, q, symbol, market))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load score %s: %w", symbol, err)
	}
	return rec, nil
}

func (s *sqlStore) ListScores(ctx context.Context, f ScoreFilter) ([]ScoreRecord, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, s.d.bind(len(args))))
	}
	if f.Market != "" {
		add("market = %s", f.Market)
	}
	if f.Tier != "" {
		add("tier = %s", f.Tier)
	} else if f.TieredOnly {
		where = append(where, "tier IS NOT NULL")
	}
	if f.MinConfidence > 0 {
		add("confidence_score >= %s", f.MinConfidence)
	}

	q := fmt.Sprintf("SELECT %s FROM scores", strings.Join(scoreColumns, ", "))
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY confidence_score DESC, qm_score DESC, symbol ASC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += " LIMIT " + s.d.bind(len(args))
	}

	rs, closeRows, err := s.c.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer closeRows()

	var out []ScoreRecord
	for rs.Next() {
		rec, err := scanScore(rs)
		if err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rs.Err()
}

// envIndicators is the JSON shape of the numeric environment fields.
type envIndicators struct {
	PolicyRate        float64 `json:"policy_rate"`
	Inflation         float64 `json:"inflation"`
	Unemployment      float64 `json:"unemployment"`
	YieldCurveSpread  float64 `json:"yield_curve_spread"`
	VIX               float64 `json:"vix"`
	MoneySupplyGrowth float64 `json:"money_supply_growth"`
	CreditSpread      float64 `json:"credit_spread"`
}

// SaveMacroEnvironment appends a row; the newest row is the current environment.
func (s *sqlStore) SaveMacroEnvironment(ctx context.Context, env macro.Environment) error {
	if err := env.Validate(); err != nil {
		return err
	}
	ind, err := json.Marshal(envIndicators{
		PolicyRate:        env.PolicyRate,
		Inflation:         env.Inflation,
		Unemployment:      env.Unemployment,
		YieldCurveSpread:  env.YieldCurveSpread,
		VIX:               env.VIX,
		MoneySupplyGrowth: env.MoneySupplyGrowth,
		CreditSpread:      env.CreditSpread,
	})
	if err != nil {
		return fmt.Errorf("marshal indicators: %w", err)
	}
	updated := env.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	q := fmt.Sprintf(`INSERT INTO macro_environment (phase, liquidity, sentiment, indicators, source, updated_at)
		VALUES (%s)`, s.d.placeholders(1, 6))
	if err := s.c.exec(ctx, q, string(env.Phase), string(env.Liquidity), string(env.Sentiment),
		string(ind), env.Source, updated.Unix()); err != nil {
		return fmt.Errorf("insert macro environment: %w", err)
	}
	return nil
}

func (s *sqlStore) LoadMacroEnvironment(ctx context.Context) (*macro.Environment, error) {
	var (
		env     macro.Environment
		phase   string
		liq     string
		sent    string
		ind     string
		updated int64
	)
	err := s.c.queryRow(ctx, `SELECT phase, liquidity, sentiment, indicators, source, updated_at
		FROM macro_environment ORDER BY id DESC LIMIT 1`).
		Scan(&phase, &liq, &sent, &ind, &env.Source, &updated)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load macro environment: %w", err)
	}

	var vals envIndicators
	if err := json.Unmarshal([]byte(ind), &vals); err != nil {
		return nil, fmt.Errorf("unmarshal indicators: %w", err)
	}
	env.Phase = macro.Phase(phase)
	env.Liquidity = macro.Liquidity(liq)
	env.Sentiment = macro.Sentiment(sent)
	env.PolicyRate = vals.PolicyRate
	env.Inflation = vals.Inflation
	env.Unemployment = vals.Unemployment
	env.YieldCurveSpread = vals.YieldCurveSpread
	env.VIX = vals.VIX
	env.MoneySupplyGrowth = vals.MoneySupplyGrowth
	env.CreditSpread = vals.CreditSpread
	env.UpdatedAt = time.Unix(updated, 0).UTC()
	return &env, nil
}

// profileJSON is the stored shape of a sector profile.
type profileJSON struct {
	PhaseScores          map[string]float64 `json:"phase_scores"`
	LiquiditySensitivity float64            `json:"liquidity_sensitivity"`
	RateSensitivity      float64            `json:"rate_sensitivity"`
	Defensiveness        float64            `json:"defensiveness"`
	GrowthPotential      float64            `json:"growth_potential"`
}

func (s *sqlStore) SaveSectorProfile(ctx context.Context, sector string, p macro.SectorProfile) error {
	if strings.TrimSpace(sector) == "" {
		return errors.New("save sector profile: empty sector")
	}
	if err := p.Validate(); err != nil {
		return err
	}
	pj := profileJSON{
		PhaseScores:          make(map[string]float64, len(p.PhaseScores)),
		LiquiditySensitivity: p.LiquiditySensitivity,
		RateSensitivity:      p.RateSensitivity,
		Defensiveness:        p.Defensiveness,
		GrowthPotential:      p.GrowthPotential,
	}
	for ph, v := range p.PhaseScores {
		pj.PhaseScores[string(ph)] = v
	}
	blob, err := json.Marshal(pj)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO sector_profiles (sector, profile, updated_at) VALUES (%s)
		ON CONFLICT (sector) DO UPDATE SET profile = excluded.profile, updated_at = excluded.updated_at`,
		s.d.placeholders(1, 3))
	if err := s.c.exec(ctx, q, sector, string(blob), s.now().Unix()); err != nil {
		return fmt.Errorf("upsert sector profile %s: %w", sector, err)
	}
	return nil
}

func (s *sqlStore) LoadSectorProfiles(ctx context.Context) (map[string]macro.SectorProfile, error) {
	rs, closeRows, err := s.c.query(ctx, `SELECT sector, profile FROM sector_profiles ORDER BY sector`)
	if err != nil {
		return nil, fmt.Errorf("list sector profiles: %w", err)
	}
	defer closeRows()

	out := make(map[string]macro.SectorProfile)
	for rs.Next() {
		var sector, blob string
		if err := rs.Scan(&sector, &blob); err != nil {
			return nil, fmt.Errorf("scan sector profile: %w", err)
		}
		var pj profileJSON
		if err := json.Unmarshal([]byte(blob), &pj); err != nil {
			return nil, fmt.Errorf("unmarshal profile %s: %w", sector, err)
		}
		p := macro.SectorProfile{
			PhaseScores:          make(map[macro.Phase]float64, len(pj.PhaseScores)),
			LiquiditySensitivity: pj.LiquiditySensitivity,
			RateSensitivity:      pj.RateSensitivity,
			Defensiveness:        pj.Defensiveness,
			GrowthPotential:      pj.GrowthPotential,
		}
		for ph, v := range pj.PhaseScores {
			p.PhaseScores[macro.Phase(ph)] = v
		}
		out[sector] = p
	}
	return out, rs.Err()
}

func (s *sqlStore) SaveSession(ctx context.Context, sess SessionRecord) error {
	if sess.ID == "" {
		return errors.New("save session: empty id")
	}
	counts := sess.TierCounts
	if counts == nil {
		counts = map[string]int{}
	}
	blob, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("marshal tier counts: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO scan_sessions
		(id, market, horizon, status, total, processed, failed, qualified, tier_counts, error, started_at, finished_at)
		VALUES (%s)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			total = excluded.total,
			processed = excluded.processed,
			failed = excluded.failed,
			qualified = excluded.qualified,
			tier_counts = excluded.tier_counts,
			error = excluded.error,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at`, s.d.placeholders(1, 12))
	err = s.c.exec(ctx, q, sess.ID, sess.Market, sess.Horizon, sess.Status,
		sess.Total, sess.Processed, sess.Failed, sess.Qualified, string(blob), sess.Error,
		unixOrNil(sess.StartedAt), unixOrNil(sess.FinishedAt))
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *sqlStore) LoadSession(ctx context.Context, id string) (*SessionRecord, error) {
	var (
		sess     SessionRecord
		counts   string
		started  *int64
		finished *int64
	)
	q := fmt.Sprintf(`SELECT id, market, horizon, status, total, processed, failed, qualified,
		tier_counts, error, started_at, finished_at FROM scan_sessions WHERE id = %s`, s.d.bind(1))
	err := s.c.queryRow(ctx, q, id).Scan(&sess.ID, &sess.Market, &sess.Horizon, &sess.Status,
		&sess.Total, &sess.Processed, &sess.Failed, &sess.Qualified,
		&counts, &sess.Error, &started, &finished)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(counts), &sess.TierCounts); err != nil {
		return nil, fmt.Errorf("unmarshal tier counts: %w", err)
	}
	sess.StartedAt = timeOrNil(started)
	sess.FinishedAt = timeOrNil(finished)
	return &sess, nil
}

func (s *sqlStore) Close() error {
	if s.stop == nil {
		return nil
	}
	return s.stop()
}
