package recorder

import (
	"context"

	"gem-scanner/internal/macro"
)

// NoopRecorder discards writes and reports every load as not found.
type NoopRecorder struct{}

func (NoopRecorder) SaveScore(context.Context, ScoreRecord) error { return nil }
func (NoopRecorder) LoadScore(context.Context, string, string) (*ScoreRecord, error) {
	return nil, ErrNotFound
}
func (NoopRecorder) ListScores(context.Context, ScoreFilter) ([]ScoreRecord, error) { return nil, nil }
func (NoopRecorder) SaveMacroEnvironment(context.Context, macro.Environment) error { return nil }
func (NoopRecorder) LoadMacroEnvironment(context.Context) (*macro.Environment, error) {
	return nil, ErrNotFound
}
func (NoopRecorder) SaveSectorProfile(context.Context, string, macro.SectorProfile) error {
	return nil
}
func (NoopRecorder) LoadSectorProfiles(context.Context) (map[string]macro.SectorProfile, error) {
	return nil, nil
}
func (NoopRecorder) SaveSession(context.Context, SessionRecord) error { return nil }
func (NoopRecorder) LoadSession(context.Context, string) (*SessionRecord, error) {
	return nil, ErrNotFound
}
func (NoopRecorder) Close() error { return nil }

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*SQLiteRecorder)(nil)
	_ Recorder = (*PostgresRecorder)(nil)
)
