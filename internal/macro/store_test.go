package macro

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreReplacesSnapshotAtomically(t *testing.T) {
	s, err := NewStore(DefaultEnvironment(), nil)
	require.NoError(t, err)

	first := s.Current()

	next := env(PhaseRecession, LiquidityTightening, 7)
	require.NoError(t, s.SetEnvironment(next))

	assert.Equal(t, PhaseMidExpansion, first.Phase, "earlier snapshot must not change")
	cur := s.Current()
	assert.Equal(t, PhaseRecession, cur.Phase)
	assert.False(t, cur.UpdatedAt.IsZero())

	bad := next
	bad.Phase = "sideways"
	assert.ErrorIs(t, s.SetEnvironment(bad), ErrInvalidEnvironment)
	assert.Equal(t, PhaseRecession, s.Current().Phase)
}

func TestStoreConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	s, err := NewStore(env(PhaseEarlyExpansion, LiquidityExpanding, 1), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				e := s.Current()
				// writers only publish these two combinations
				consistent := (e.Phase == PhaseEarlyExpansion && e.PolicyRate == 1) ||
					(e.Phase == PhaseRecession && e.PolicyRate == 9)
				if !consistent {
					t.Errorf("torn snapshot: %s at %.1f", e.Phase, e.PolicyRate)
					return
				}
			}
		}()
	}
	for j := 0; j < 200; j++ {
		if j%2 == 0 {
			require.NoError(t, s.SetEnvironment(env(PhaseRecession, LiquidityTightening, 9)))
		} else {
			require.NoError(t, s.SetEnvironment(env(PhaseEarlyExpansion, LiquidityExpanding, 1)))
		}
	}
	wg.Wait()
}

func TestStoreSetSectorProfile(t *testing.T) {
	s, err := NewStore(DefaultEnvironment(), nil)
	require.NoError(t, err)

	engine, _ := s.Snapshot()
	before := engine.SectorFit("Shipbuilding", s.Current())
	assert.False(t, before.Known)

	require.NoError(t, s.SetSectorProfile("Shipbuilding", profile(9, 9, 9, 9, 0, 0, 5, 5)))
	assert.Error(t, s.SetSectorProfile("Shipbuilding", SectorProfile{}))

	after, _ := s.Snapshot()
	fit := after.SectorFit("Shipbuilding", s.Current())
	assert.True(t, fit.Known)
	assert.InDelta(t, 66.0, fit.Score, 1e-9)

	// engine taken before the update keeps its table
	assert.False(t, engine.SectorFit("Shipbuilding", s.Current()).Known)
}

const indicatorPage = `<html><body>
<table>
  <tr><th>Indicator</th><th>Value</th></tr>
  <tr><td>Fed Funds Rate</td><td>4.50%</td></tr>
  <tr><td>CPI Inflation (YoY)</td><td>3.1 %</td></tr>
  <tr><td>Unemployment Rate</td><td>4.2</td></tr>
  <tr><td>Yield Curve (10Y-2Y)</td><td>&minus;0.35</td></tr>
  <tr><td>VIX</td><td>21.4</td></tr>
  <tr><td>M2 Money Supply Growth</td><td>n/a</td></tr>
  <tr><td>High Yield Spread</td><td>3.80</td></tr>
  <tr><td>Copper</td><td>4.1</td></tr>
</table></body></html>`

func TestParseIndicators(t *testing.T) {
	ind, err := ParseIndicators(strings.NewReader(indicatorPage), SourceConfig{})
	require.NoError(t, err)

	assert.Equal(t, Indicators{
		IndicatorPolicyRate:       4.5,
		IndicatorInflation:        3.1,
		IndicatorUnemployment:     4.2,
		IndicatorYieldCurveSpread: -0.35,
		IndicatorVIX:              21.4,
		IndicatorCreditSpread:     3.8,
	}, ind)

	applied := ind.Apply(DefaultEnvironment())
	assert.Equal(t, 4.5, applied.PolicyRate)
	assert.Equal(t, DefaultEnvironment().MoneySupplyGrowth, applied.MoneySupplyGrowth)
	assert.Equal(t, PhaseMidExpansion, applied.Phase)
}

func TestSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/macro" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, indicatorPage)
	}))
	defer srv.Close()

	ind, err := NewSource(SourceConfig{Name: "test", URL: srv.URL + "/macro"}).Fetch(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 21.4, ind[IndicatorVIX])

	_, err = NewSource(SourceConfig{Name: "missing", URL: srv.URL + "/nope"}).Fetch(t.Context())
	assert.Error(t, err)

	_, err = NewSource(SourceConfig{}).Fetch(t.Context())
	assert.Error(t, err)
}
