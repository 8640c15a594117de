package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two effects, two items. Item 0 feeds effect 0, item 1 feeds effect 1 and
// pushes its exponent.
func twoByTwo(t *testing.T, opts ...Option) *Problem {
	t.Helper()
	store := storeOf(t, 2, 2,
		[]float64{
			0, 0,
			1, 0,
		},
		[]float64{
			1, 0,
			0, 2,
		})
	p, err := NewProblem(store, []float64{1, 1}, opts...)
	require.NoError(t, err)
	return p
}

func TestEvaluateFormula(t *testing.T) {
	// alloc [2,1]: Sv = [2,2], Sb = [0,2].
	e0 := 2.0
	e1 := 2.0 * 1.1 * 1.1
	p0 := 20 * e0 / (e0 + e1) * math.Sqrt(3)
	p1 := 20 * e1 / (e0 + e1) * math.Sqrt(3)

	t.Run("uncapped", func(t *testing.T) {
		p := twoByTwo(t)
		got, err := p.Evaluate([]int{2, 1})
		require.NoError(t, err)
		assert.InDelta(t, 0.5*p0+0.5*p1, got, 1e-12)
		// Shares sum to one, so the uncapped score only depends on the total.
		assert.InDelta(t, 10*math.Sqrt(3), got, 1e-12)

		probs, err := p.EffectProbabilities([]int{2, 1})
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{p0, p1}, probs, 1e-12)
	})

	t.Run("capped", func(t *testing.T) {
		p := twoByTwo(t, WithProbCaps([]float64{5, 100}))
		got, err := p.Evaluate([]int{2, 1})
		require.NoError(t, err)
		assert.InDelta(t, 0.5*5+0.5*p1, got, 1e-12)

		// Probabilities are reported before capping.
		probs, err := p.EffectProbabilities([]int{2, 1})
		require.NoError(t, err)
		assert.InDelta(t, p0, probs[0], 1e-12)
	})

	t.Run("score from projections", func(t *testing.T) {
		p := twoByTwo(t)
		got := p.Score([]float64{2, 2}, []float64{0, 2}, 3)
		assert.InDelta(t, 10*math.Sqrt(3), got, 1e-12)
	})
}

func TestScoreZeroCases(t *testing.T) {
	p := twoByTwo(t)
	tests := []struct {
		name   string
		sv, sb []float64
		total  int
	}{
		{"empty allocation", []float64{1, 1}, []float64{0, 0}, 0},
		{"negative total", []float64{1, 1}, []float64{0, 0}, -1},
		{"no positive energy", []float64{-1, 0}, []float64{3, 3}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Zero(t, p.Score(tt.sv, tt.sb, tt.total))
		})
	}

	probs, err := p.EffectProbabilities([]int{0, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, probs)
}

func TestZeroWeightEffectsStillShareEnergy(t *testing.T) {
	store := storeOf(t, 2, 2,
		[]float64{0, 0, 0, 0},
		[]float64{
			1, 0,
			0, 1,
		})
	p, err := NewProblem(store, []float64{1, 0})
	require.NoError(t, err)

	// Item 1 only feeds the unweighted effect but still dilutes effect 0.
	only0, err := p.Evaluate([]int{4, 0})
	require.NoError(t, err)
	mixed, err := p.Evaluate([]int{4, 4})
	require.NoError(t, err)
	assert.InDelta(t, 40, only0, 1e-12)
	assert.InDelta(t, 10*math.Sqrt(8), mixed, 1e-12)
}

func TestObjectiveFeasibility(t *testing.T) {
	p := newTestProblem(t, []float64{1, 2, 3},
		WithForcedZero(3),
		WithItemBound(10),
	)
	at := func(pairs ...int) []int {
		a := make([]int, testItems)
		for i := 0; i < len(pairs); i += 2 {
			a[pairs[i]] = pairs[i+1]
		}
		return a
	}
	tests := []struct {
		name       string
		allocation []int
	}{
		{"wrong length", make([]int, testItems-1)},
		{"negative entry", at(0, -1, 1, 2)},
		{"over budget", at(0, 10, 1, 10, 2, 6)},
		{"over bound", at(0, 11)},
		{"forced item", at(3, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Infeasible, p.Objective(tt.allocation))
		})
	}

	assert.Zero(t, p.Objective(make([]int, testItems)))

	feasible := at(0, 10, 1, 10, 7, 5)
	want, err := p.Evaluate(feasible)
	require.NoError(t, err)
	assert.Equal(t, want, p.Objective(feasible))
}

func TestObjectiveCache(t *testing.T) {
	p := newTestProblem(t, []float64{1, 1, 1, 1})
	alloc := []int{1, 0, 2, 0, 0, 3, 0, 0, 4, 0, 0, 5}

	first := p.Objective(alloc)
	second := p.Objective(alloc)
	assert.Equal(t, first, second)

	want, err := p.Evaluate(alloc)
	require.NoError(t, err)
	assert.Equal(t, want, first)

	stats := p.CacheStats()
	assert.Equal(t, CacheStats{Entries: 1, Hits: 1, Misses: 1}, stats)
}

func TestWrongLengthErrors(t *testing.T) {
	p := newTestProblem(t, []float64{1})
	short := make([]int, testItems-2)

	_, err := p.Evaluate(short)
	assert.ErrorIs(t, err, ErrAllocationLength)
	_, err = p.EffectProbabilities(short)
	assert.ErrorIs(t, err, ErrAllocationLength)
	_, err = p.NewState(short)
	assert.ErrorIs(t, err, ErrAllocationLength)
	_, err = p.Greedy(short, nil)
	assert.ErrorIs(t, err, ErrAllocationLength)
}
