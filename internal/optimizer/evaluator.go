package optimizer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// evaluator scores projections. It owns a scratch buffer, so each
// goroutine needs its own; use Problem.newEvaluator.
type evaluator struct {
	weights []float64
	caps    []float64
	energy  []float64
}

func (p *Problem) newEvaluator() *evaluator {
	return &evaluator{
		weights: p.weights,
		caps:    p.caps,
		energy:  make([]float64, p.d),
	}
}

// energies fills e.energy with max(Sv,0)·1.1^Sb per category and returns the sum.
func (e *evaluator) energies(sv, sb []float64) float64 {
	var sum float64
	for d := range e.energy {
		x := math.Max(sv[d], 0) * math.Pow(energyBase, sb[d])
		e.energy[d] = x
		sum += x
	}
	return sum
}

// score is the capped, weighted objective of the projections of an
// allocation holding total units.
func (e *evaluator) score(sv, sb []float64, total int) float64 {
	if total <= 0 {
		return 0
	}
	sum := e.energies(sv, sb)
	if sum <= 0 {
		return 0
	}
	root := math.Sqrt(float64(total))
	var s float64
	for d, x := range e.energy {
		prob := probScale * x / sum * root
		s += e.weights[d] * math.Min(prob, e.caps[d])
	}
	return s
}

// probabilities writes the uncapped per-effect probabilities into dst.
func (e *evaluator) probabilities(dst, sv, sb []float64, total int) []float64 {
	for d := range dst {
		dst[d] = 0
	}
	if total <= 0 {
		return dst
	}
	sum := e.energies(sv, sb)
	if sum <= 0 {
		return dst
	}
	root := math.Sqrt(float64(total))
	for d, x := range e.energy {
		dst[d] = probScale * x / sum * root
	}
	return dst
}

// project computes Sv = V·alpha, Sb = B·alpha and the unit total of a
// reduced allocation from scratch.
func (p *Problem) project(reduced []int) (sv, sb []float64, total int) {
	sv = make([]float64, p.d)
	sb = make([]float64, p.d)
	if len(reduced) == 0 {
		return sv, sb, 0
	}
	alpha := make([]float64, len(reduced))
	for i, a := range reduced {
		alpha[i] = float64(a)
		total += a
	}
	x := mat.NewVecDense(len(alpha), alpha)
	mat.NewVecDense(p.d, sv).MulVec(p.vred, x)
	mat.NewVecDense(p.d, sb).MulVec(p.bred, x)
	return sv, sb, total
}

// Score evaluates the objective from precomputed projections Sv and Sb
// (each of length Categories) and the allocation's unit total. It is the
// entry point used by incremental search.
func (p *Problem) Score(sv, sb []float64, total int) float64 {
	return p.newEvaluator().score(sv, sb, total)
}

// Evaluate scores a full-length allocation from scratch, without the
// feasibility checks or the cache of Objective. Units on forced items are
// ignored.
func (p *Problem) Evaluate(allocation []int) (float64, error) {
	if len(allocation) != p.n {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrAllocationLength, len(allocation), p.n)
	}
	sv, sb, total := p.project(p.reduce(allocation))
	return p.newEvaluator().score(sv, sb, total), nil
}

// EffectProbabilities returns the uncapped probability of each active
// effect for a full-length allocation. Units on forced items are ignored.
func (p *Problem) EffectProbabilities(allocation []int) ([]float64, error) {
	if len(allocation) != p.n {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrAllocationLength, len(allocation), p.n)
	}
	sv, sb, total := p.project(p.reduce(allocation))
	return p.newEvaluator().probabilities(make([]float64, p.d), sv, sb, total), nil
}

// Objective is the memoized, feasibility-checked score of a full-length
// allocation. Allocations with a negative entry, an entry above its bound,
// units on a forced item, a total above the budget or the wrong length
// score Infeasible.
func (p *Problem) Objective(allocation []int) float64 {
	key := cacheKey(allocation)
	if v, ok := p.cache.Get(key); ok {
		return v
	}
	v := p.objective(allocation)
	p.cache.Put(key, v)
	return v
}

func (p *Problem) objective(allocation []int) float64 {
	if len(allocation) != p.n {
		return Infeasible
	}
	sum := 0
	for _, a := range allocation {
		if a < 0 {
			return Infeasible
		}
		sum += a
	}
	if sum > p.budget {
		return Infeasible
	}
	for i, j := range p.free {
		if allocation[j] > p.bounds[i] {
			return Infeasible
		}
	}
	it := p.forced.Iterator()
	for it.HasNext() {
		if allocation[it.Next()] != 0 {
			return Infeasible
		}
	}
	if sum == 0 {
		return 0
	}
	sv, sb, total := p.project(p.reduce(allocation))
	return p.newEvaluator().score(sv, sb, total)
}
