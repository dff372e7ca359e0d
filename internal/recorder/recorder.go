package recorder

import (
	"context"
	"errors"
	"time"

	"gem-scanner/internal/macro"
	"gem-scanner/internal/quality"
	"gem-scanner/internal/scoring"
)

// ErrNotFound is returned by loads that match no row.
var ErrNotFound = errors.New("record not found")

// ScoreRecord is the persisted form of a scoring result. Nullable fields stay
// nil rather than zero so "unknown" survives a round trip.
type ScoreRecord struct {
	Symbol      string
	Market      string
	CompanyName string
	Sector      string
	Price       *float64
	MarketCap   *float64
	LatestFCF   *float64

	QMScore         int
	Pillars         []quality.PillarResult
	ROE             *float64
	GrossMargin     *float64
	OperatingMargin *float64
	CurrentRatio    *float64

	FairPE          float64
	ObservedPE      *float64
	ValueGapPercent *float64
	ValuationStatus string

	Tier              string // "" when no tier
	ConfidenceScore   int
	GrowthSignalCount int
	SharesDecreasing  bool

	Horizon       string
	HorizonScore  int
	Rating        string
	GemTier       string // "" when none
	SectorFit     float64
	MacroBonus    int
	AdjustedScore int
	Outlook       string
	RiskLevel     string

	ScoredAt time.Time
}

// RecordFromResult flattens a scoring result into a row.
func RecordFromResult(r *scoring.Result) ScoreRecord {
	rec := ScoreRecord{
		Symbol:      r.Symbol,
		Market:      r.Market,
		CompanyName: r.CompanyName,
		Sector:      r.Sector,
		Price:       r.Price,
		MarketCap:   r.MarketCap,
		LatestFCF:   r.LatestFCF,

		FairPE:          r.Valuation.FairPE,
		ObservedPE:      r.Valuation.ObservedPE,
		ValueGapPercent: r.Valuation.ValueGapPercent,
		ValuationStatus: string(r.Valuation.Status),

		Tier:              string(r.Tier.Tier),
		ConfidenceScore:   r.Tier.ConfidenceScore,
		GrowthSignalCount: r.Tier.GrowthSignalCount,

		Horizon:       string(r.Horizon.Horizon),
		HorizonScore:  r.Horizon.Score,
		Rating:        string(r.Horizon.Rating),
		GemTier:       r.Horizon.GemTier,
		SectorFit:     r.Macro.Fit.Score,
		MacroBonus:    r.Macro.Bonus,
		AdjustedScore: r.Macro.AdjustedScore,
		Outlook:       string(r.Macro.Outlook),
		RiskLevel:     string(r.Macro.RiskLevel),

		ScoredAt: r.ScoredAt,
	}
	if q := r.Quality; q != nil {
		rec.QMScore = q.Total
		rec.Pillars = q.Pillars
		rec.ROE = q.Auxiliary.ROE
		rec.GrossMargin = q.Auxiliary.GrossMargin
		rec.OperatingMargin = q.Auxiliary.OperatingMargin
		rec.CurrentRatio = q.Auxiliary.CurrentRatio
		rec.SharesDecreasing = q.SharesDecreasing
	}
	return rec
}

// ScoreFilter narrows ListScores. Zero values match everything.
type ScoreFilter struct {
	Market        string
	Tier          string
	TieredOnly    bool
	MinConfidence int
	Limit         int
}

// SessionRecord is the persisted state of a scan session.
type SessionRecord struct {
	ID         string
	Market     string
	Horizon    string
	Status     string
	Total      int
	Processed  int
	Failed     int
	Qualified  int
	TierCounts map[string]int
	Error      string
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Recorder persists scores, macro state and scan sessions.
type Recorder interface {
	SaveScore(ctx context.Context, rec ScoreRecord) error
	LoadScore(ctx context.Context, symbol, market string) (*ScoreRecord, error)
	ListScores(ctx context.Context, f ScoreFilter) ([]ScoreRecord, error)

	SaveMacroEnvironment(ctx context.Context, env macro.Environment) error
	LoadMacroEnvironment(ctx context.Context) (*macro.Environment, error)
	SaveSectorProfile(ctx context.Context, sector string, p macro.SectorProfile) error
	LoadSectorProfiles(ctx context.Context) (map[string]macro.SectorProfile, error)

	SaveSession(ctx context.Context, s SessionRecord) error
	LoadSession(ctx context.Context, id string) (*SessionRecord, error)

	Close() error
}
