package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/newsletter/internal/domain"
)

var t0 = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

func TestElapsedDays(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want int
	}{
		{"same instant", 0, 0},
		{"future", -48 * time.Hour, 0},
		{"under a day", 23 * time.Hour, 0},
		{"floors", 47 * time.Hour, 1},
		{"exact", 72 * time.Hour, 3},
		{"clamped", 45 * 24 * time.Hour, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ElapsedDays(t0, t0.Add(tt.d), 30))
		})
	}
}

func TestBlend(t *testing.T) {
	p := DefaultParams()

	assert.InDelta(t, 11.0, p.Blend(10, 2, t0, t0), 1e-12)
	assert.InDelta(t, 10*0.95+1, p.Blend(10, 2, t0, t0.Add(24*time.Hour)), 1e-12)

	capped := 10*math.Pow(0.95, 30) + 1
	assert.InDelta(t, capped, p.Blend(10, 2, t0, t0.Add(30*24*time.Hour)), 1e-12)
	assert.InDelta(t, capped, p.Blend(10, 2, t0, t0.Add(400*24*time.Hour)), 1e-12)
}

func TestUpdater(t *testing.T) {
	up := DefaultParams().Updater()
	now := t0.Add(2 * 24 * time.Hour)

	rows, err := up(
		map[string]float64{"go": 0.4, "Rust": 0.2, "rust ": 0.1},
		map[string]domain.KeywordWeight{"go": {Keyword: "go", Weight: 1, LastUpdated: t0}},
		now,
	)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "go", rows[0].Keyword)
	assert.InDelta(t, 1*0.95*0.95+0.2, rows[0].Weight, 1e-12)
	assert.True(t, rows[0].LastUpdated.Equal(now))

	// colliding keys are merged before the new-keyword rule applies
	assert.Equal(t, "rust", rows[1].Keyword)
	assert.InDelta(t, 0.3, rows[1].Weight, 1e-12)
}

func TestUpdaterRejectsBadImportance(t *testing.T) {
	up := DefaultParams().Updater()
	for _, bad := range []float64{-0.1, math.NaN(), math.Inf(1)} {
		_, err := up(map[string]float64{"go": bad}, nil, t0)
		assert.True(t, errors.Is(err, domain.ErrMalformedSnapshot), "importance %v", bad)
	}
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.DecayRate = 1.2
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.MaxDecayDays = -1
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.BlendFactor = -0.5
	assert.Error(t, p.Validate())
}
