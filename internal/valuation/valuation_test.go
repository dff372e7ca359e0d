package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pe(v float64) *float64 { return &v }

func TestFairPE(t *testing.T) {
	m := DefaultModel()

	assert.Equal(t, 8.0, m.FairPE(0))
	assert.Equal(t, 25.0, m.FairPE(8))
	assert.InDelta(t, 8+2.125*4, m.FairPE(4), 1e-12)

	prev := math.Inf(-1)
	for s := -2; s <= 10; s++ {
		got := m.FairPE(s)
		assert.GreaterOrEqual(t, got, prev, "score %d", s)
		prev = got
	}
	assert.Equal(t, 8.0, m.FairPE(-5))
	assert.Equal(t, 25.0, m.FairPE(12))
}

func TestEvaluate(t *testing.T) {
	m := DefaultModel()

	tests := []struct {
		name     string
		score    int
		observed *float64
		want     Status
		wantGap  float64
	}{
		{"nil observed", 8, nil, StatusUnknown, 0},
		{"zero observed", 8, pe(0), StatusUnknown, 0},
		{"negative observed", 8, pe(-12), StatusUnknown, 0},
		{"deep value", 8, pe(10), StatusUndervalued, 60},
		{"rich", 0, pe(12), StatusOvervalued, -50},
		{"in band", 8, pe(24), StatusFair, 4},
		// 25 * 0.85 = 21.25 leaves a gap of exactly 15
		{"upper tie is fair", 8, pe(21.25), StatusFair, 15},
		{"lower tie is fair", 8, pe(28.75), StatusFair, -15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := m.Evaluate(tt.score, tt.observed)
			assert.Equal(t, tt.want, r.Status)
			if tt.want == StatusUnknown {
				assert.Nil(t, r.ValueGapPercent)
				assert.Nil(t, r.ObservedPE)
				return
			}
			require.NotNil(t, r.ValueGapPercent)
			assert.InDelta(t, tt.wantGap, *r.ValueGapPercent, 1e-9)
			assert.NotEmpty(t, r.String())
		})
	}
}
