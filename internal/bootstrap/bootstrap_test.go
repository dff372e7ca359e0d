package bootstrap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gem-scanner/internal/macro"
	"gem-scanner/internal/recorder"
	"gem-scanner/internal/scan"
	"gem-scanner/internal/store"
	"gem-scanner/internal/timeframe"
)

func testConfig(t *testing.T) *store.Config {
	t.Helper()
	c := store.Default()
	dir := t.TempDir()
	c.Storage.SQLitePath = filepath.Join(dir, "db", "scores.db")
	c.Journal.Dir = filepath.Join(dir, "tiers")
	c.Cache.Enabled = true
	c.Cache.Dir = ""
	c.Scan.BatchPause = 0
	require.NoError(t, c.Validate())
	return &c
}

func TestNewScansWithMock(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(t.Context(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.Equal(t, "mock", a.Provider.Name())
	assert.Equal(t, macro.PhaseMidExpansion, a.Macro.Current().Phase)

	rep, err := a.Scanner("short").Run(t.Context(), []string{"AAA", "BBB"})
	require.NoError(t, err)
	assert.Equal(t, scan.StatusCompleted, rep.Session.Status)
	assert.Equal(t, timeframe.Short, rep.Session.Horizon)

	scores, err := a.Recorder.ListScores(t.Context(), recorder.ScoreFilter{})
	require.NoError(t, err)
	assert.Len(t, scores, 2)
}

func TestNewPrefersPersistedMacro(t *testing.T) {
	cfg := testConfig(t)
	configured := macro.DefaultEnvironment()
	configured.Phase = macro.PhaseEarlyExpansion
	cfg.Macro.Environment = &configured

	a, err := New(t.Context(), cfg)
	require.NoError(t, err)
	assert.Equal(t, macro.PhaseEarlyExpansion, a.Macro.Current().Phase, "config seeds an empty database")

	saved := macro.DefaultEnvironment()
	saved.Phase = macro.PhaseRecession
	require.NoError(t, a.Recorder.SaveMacroEnvironment(t.Context(), saved))
	ship := macro.NeutralProfile()
	ship.GrowthPotential = 9
	require.NoError(t, a.Recorder.SaveSectorProfile(t.Context(), "Shipbuilding", ship))
	require.NoError(t, a.Close())

	b, err := New(t.Context(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	assert.Equal(t, macro.PhaseRecession, b.Macro.Current().Phase)
	_, p, ok := b.Macro.Profiles().Lookup("shipbuilding")
	require.True(t, ok)
	assert.Equal(t, 9.0, p.GrowthPotential)
}

func TestNewWithoutStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "none"
	cfg.Cache.Enabled = false
	a, err := New(t.Context(), cfg)
	require.NoError(t, err)
	assert.IsType(t, recorder.NoopRecorder{}, a.Recorder)
	assert.NoError(t, a.Close())
}
