package optimizer

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// Result is the outcome of a search.
type Result struct {
	// Allocation is full-length; forced items hold zero units.
	Allocation []int
	Score      float64
	// Start is the index of the restart that produced the result.
	Start int
	Stats Stats
}

// Stats counts search work.
type Stats struct {
	Starts      int
	Iterations  int // committed moves
	Evaluations int // objective evaluations, committed or not
}

func (s *Stats) add(o Stats) {
	s.Starts += o.Starts
	s.Iterations += o.Iterations
	s.Evaluations += o.Evaluations
}

type moveKind int

const (
	moveNone moveKind = iota
	moveAdd
	moveTransfer
)

// move is a candidate neighbor of the current state.
type move struct {
	kind     moveKind
	from, to int
	score    float64
}

// better is the candidate comparator. A candidate replaces the incumbent
// only when its score is strictly higher, so among equal scores the first
// enumerated wins: add moves by ascending item, then transfers by
// ascending donor and recipient.
func (m move) better(than move) bool {
	return m.score > than.score
}

// Greedy runs one steepest-ascent search from a full-length start
// allocation (nil starts from zero). The start is clipped to the item
// bounds, forced items are zeroed, and while the total exceeds the budget
// one unit is removed from a uniformly chosen non-empty item. A nil rng
// uses a generator seeded from the configured seed.
func (p *Problem) Greedy(start []int, rng *rand.Rand) (Result, error) {
	if start == nil {
		start = make([]int, p.n)
	}
	if len(start) != p.n {
		return Result{}, fmt.Errorf("%w: got %d, want %d", ErrAllocationLength, len(start), p.n)
	}
	if rng == nil {
		rng = p.rngFor(0)
	}
	reduced := p.reduce(start)
	for i, a := range reduced {
		reduced[i] = min(max(a, 0), p.bounds[i])
	}
	p.trim(reduced, rng)
	return p.search(0, reduced), nil
}

// trim removes random units until the allocation fits the budget.
func (p *Problem) trim(reduced []int, rng *rand.Rand) {
	total := 0
	for _, a := range reduced {
		total += a
	}
	candidates := make([]int, 0, len(reduced))
	for total > p.budget {
		candidates = candidates[:0]
		for i, a := range reduced {
			if a > 0 {
				candidates = append(candidates, i)
			}
		}
		j := candidates[rng.IntN(len(candidates))]
		reduced[j]--
		total--
	}
}

// search climbs from a feasible reduced allocation, which it takes over.
func (p *Problem) search(start int, reduced []int) Result {
	st := p.stateOf(reduced)
	score, stats := p.climb(start, st, p.newEvaluator())
	stats.Starts = 1
	return Result{
		Allocation: st.Allocation(),
		Score:      score,
		Start:      start,
		Stats:      stats,
	}
}

// climb applies the best add or transfer move until none improves the
// score by more than epsilon. Candidates are scored on hypothetical
// projections; the committed state only changes when a move is applied.
func (p *Problem) climb(start int, st *State, ev *evaluator) (float64, Stats) {
	var stats Stats
	current := ev.score(st.sv, st.sb, st.total)
	stats.Evaluations++
	p.observe(start, st, current)

	n := len(st.alloc)
	svN := make([]float64, p.d)
	sbN := make([]float64, p.d)
	svMinus := make([]float64, p.d)
	sbMinus := make([]float64, p.d)

	for p.cfg.MaxIterations <= 0 || stats.Iterations < p.cfg.MaxIterations {
		best := move{kind: moveNone, score: current}

		if st.total < p.budget {
			for j := 0; j < n; j++ {
				if st.alloc[j] >= p.bounds[j] {
					continue
				}
				floats.AddTo(svN, st.sv, p.vcols[j])
				floats.AddTo(sbN, st.sb, p.bcols[j])
				cand := move{kind: moveAdd, to: j, score: ev.score(svN, sbN, st.total+1)}
				stats.Evaluations++
				if cand.better(best) {
					best = cand
				}
			}
		}

		if p.cfg.Transfers {
			for k := 0; k < n; k++ {
				if st.alloc[k] <= 0 {
					continue
				}
				floats.SubTo(svMinus, st.sv, p.vcols[k])
				floats.SubTo(sbMinus, st.sb, p.bcols[k])
				for j := 0; j < n; j++ {
					if j == k || st.alloc[j] >= p.bounds[j] {
						continue
					}
					floats.AddTo(svN, svMinus, p.vcols[j])
					floats.AddTo(sbN, sbMinus, p.bcols[j])
					cand := move{kind: moveTransfer, from: k, to: j, score: ev.score(svN, sbN, st.total)}
					stats.Evaluations++
					if cand.better(best) {
						best = cand
					}
				}
			}
		}

		if best.score <= current+epsilon {
			break
		}
		switch best.kind {
		case moveAdd:
			st.Add(best.to)
		case moveTransfer:
			st.Transfer(best.from, best.to)
		}
		current = best.score
		stats.Iterations++
		p.observe(start, st, current)
	}
	return current, stats
}

func (p *Problem) observe(start int, st *State, score float64) {
	if p.cfg.OnCommit != nil {
		p.cfg.OnCommit(start, st.Allocation(), score)
	}
}

// rngFor returns the generator of restart i. Each restart draws from its
// own stream so results do not depend on scheduling.
func (p *Problem) rngFor(i int) *rand.Rand {
	return rand.New(rand.NewPCG(p.cfg.Seed, uint64(i)))
}
