package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegretMatchingNormalizesPositiveRegrets(t *testing.T) {
	// 2 actions x 2 hands, action-major layout
	regrets := []float32{
		1, -3, // action 0
		3, -1, // action 1
	}
	strategy := regretMatching(regrets, 2, 2)

	assert.InDelta(t, 0.25, float64(strategy[0]), 1e-6)
	assert.InDelta(t, 0.75, float64(strategy[2]), 1e-6)

	// all regrets non-positive resolves to uniform
	assert.InDelta(t, 0.5, float64(strategy[1]), 1e-6)
	assert.InDelta(t, 0.5, float64(strategy[3]), 1e-6)
}

func TestRegretMatchingDropsNegative(t *testing.T) {
	regrets := []float32{
		2,  // action 0
		-5, // action 1
		0,  // action 2
	}
	strategy := regretMatching(regrets, 3, 1)
	assert.InDelta(t, 1.0, float64(strategy[0]), 1e-6)
	assert.Zero(t, strategy[1])
	assert.Zero(t, strategy[2])
}

func TestDiscountSchedules(t *testing.T) {
	dcfr := Config{Algorithm: AlgorithmDCFR}
	dcfr = dcfr.WithDefaults()
	d := dcfr.discountsFor(4)
	// alpha=1.5: 8/9; beta=0: 1/2; gamma=2: (4/5)^2
	assert.InDelta(t, 8.0/9.0, d.positive, 1e-9)
	assert.InDelta(t, 0.5, d.negative, 1e-9)
	assert.InDelta(t, 0.64, d.strategy, 1e-9)
	assert.False(t, d.plus)

	plus := Config{Algorithm: AlgorithmCFRPlus}
	plus = plus.WithDefaults()
	d = plus.discountsFor(9)
	assert.Equal(t, 1.0, d.positive)
	assert.True(t, d.plus)
	assert.InDelta(t, 0.9, d.strategy, 1e-9)

	linear := Config{Algorithm: AlgorithmLinear}
	linear = linear.WithDefaults()
	d = linear.discountsFor(9)
	assert.InDelta(t, 0.9, d.positive, 1e-9)
	assert.InDelta(t, 0.9, d.negative, 1e-9)
	assert.InDelta(t, 0.9, d.strategy, 1e-9)
	assert.False(t, d.plus)
}

func TestApplySwap(t *testing.T) {
	v := []float32{1, 2, 3, 4}
	applySwap(v, [][2]uint16{{0, 1}, {2, 3}})
	assert.Equal(t, []float32{2, 1, 4, 3}, v)

	// applying the same swap twice restores the vector
	applySwap(v, [][2]uint16{{0, 1}, {2, 3}})
	assert.Equal(t, []float32{1, 2, 3, 4}, v)
}

func TestConfigValidate(t *testing.T) {
	bad := []Config{
		{MaxIterations: -1},
		{TargetExploitability: -1},
		{ParallelDepth: -1},
	}
	for i, cfg := range bad {
		assert.Error(t, cfg.Validate(), "config %d", i)
	}
	good := Config{MaxIterations: 10}
	assert.NoError(t, good.Validate())
}
