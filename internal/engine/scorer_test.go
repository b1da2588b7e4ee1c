package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	weights := map[string]float64{"go": 1.0, "rust": 0.25}

	assert.InDelta(t, 0.8, Score(map[string]float64{"go": 0.8}, weights, 0.5), 1e-12)
	assert.InDelta(t, 0.2, Score(map[string]float64{"python": 0.4}, weights, 0.5), 1e-12)
	assert.InDelta(t, 0.8+0.05+0.2,
		Score(map[string]float64{"go": 0.8, "rust": 0.2, "python": 0.4}, weights, 0.5), 1e-12)
	assert.Zero(t, Score(nil, weights, 0.5))
}

func TestScoreNotLengthNormalized(t *testing.T) {
	one := map[string]float64{"a": 0.5}
	two := map[string]float64{"a": 0.5, "b": 0.5}
	assert.Greater(t, Score(two, nil, 0.5), Score(one, nil, 0.5))
}
