package optimizer

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"cauldron-optimizer/internal/coeff"
)

const (
	testCategories = 24
	testItems      = 12
)

// testStore returns a reproducible 24x12 dataset shaped like the
// production one. V[0][7] is positive so item 7 alone yields energy.
func testStore(t testing.TB) *coeff.Store {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 11))
	b := mat.NewDense(testCategories, testItems, nil)
	v := mat.NewDense(testCategories, testItems, nil)
	for i := 0; i < testCategories; i++ {
		for j := 0; j < testItems; j++ {
			b.Set(i, j, rng.Float64()*0.8-0.4)
			v.Set(i, j, rng.Float64()*3-1)
		}
	}
	v.Set(0, 7, 1.5)
	s, err := coeff.New(b, v)
	require.NoError(t, err)
	return s
}

// storeOf builds a store from row-major B and V values.
func storeOf(t testing.TB, rows, cols int, b, v []float64) *coeff.Store {
	t.Helper()
	s, err := coeff.New(mat.NewDense(rows, cols, b), mat.NewDense(rows, cols, v))
	require.NoError(t, err)
	return s
}

func newTestProblem(t testing.TB, weights []float64, opts ...Option) *Problem {
	t.Helper()
	p, err := NewProblem(testStore(t), weights, opts...)
	require.NoError(t, err)
	return p
}

func sum(alloc []int) int {
	total := 0
	for _, a := range alloc {
		total += a
	}
	return total
}

// checkFeasible asserts the budget, bound and forced-zero invariants.
func checkFeasible(t testing.TB, p *Problem, alloc []int) {
	t.Helper()
	require.Len(t, alloc, p.Items())
	require.LessOrEqual(t, sum(alloc), p.Budget())
	bounds := p.Bounds()
	for j, a := range alloc {
		require.GreaterOrEqual(t, a, 0, "item %d", j)
		require.LessOrEqual(t, a, bounds[j], "item %d", j)
		if p.Forced(j) {
			require.Zero(t, a, "forced item %d", j)
		}
	}
}
