package optimizer

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Multistart runs nStarts independent local searches from random starting
// allocations and returns the best one. Ties keep the lowest start index, so
// for a fixed seed the result is the same for any number of workers.
func (p *Problem) Multistart(nStarts int) (Result, error) {
	if nStarts < 1 {
		return Result{}, fmt.Errorf("%w: %d", ErrStarts, nStarts)
	}
	begin := time.Now()
	workers := p.workers(nStarts)
	klog.V(2).InfoS("[init] multistart", "starts", nStarts, "workers", workers,
		"categories", p.d, "freeItems", len(p.free), "seed", p.cfg.Seed)

	results := make([]Result, nStarts)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < nStarts; i++ {
		g.Go(func() error {
			rng := p.rngFor(i)
			results[i] = p.search(i, p.randomStart(rng))
			klog.V(4).InfoS("[start] done", "start", i, "score", results[i].Score,
				"iterations", results[i].Stats.Iterations)
			return nil
		})
	}
	_ = g.Wait()

	best := results[0]
	var stats Stats
	for _, r := range results {
		stats.add(r.Stats)
		if r.Score > best.Score {
			best = r
		}
	}
	best.Stats = stats

	klog.V(1).InfoS("[done] multistart", "best", best.Score, "start", best.Start,
		"iterations", stats.Iterations, "evaluations", stats.Evaluations,
		"elapsed", time.Since(begin))
	return best, nil
}

func (p *Problem) workers(nStarts int) int {
	w := p.cfg.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	return min(w, nStarts)
}

// randomStart draws a total uniformly from [1, budget] and spreads it over
// items with headroom, each step adding a uniform amount in
// [1, min(remaining, headroom)] to a uniformly chosen item.
func (p *Problem) randomStart(rng *rand.Rand) []int {
	alloc := make([]int, len(p.free))
	open := make([]int, 0, len(p.free))
	for j, b := range p.bounds {
		if b > 0 {
			open = append(open, j)
		}
	}
	remaining := rng.IntN(p.budget) + 1
	for remaining > 0 && len(open) > 0 {
		pick := rng.IntN(len(open))
		j := open[pick]
		add := rng.IntN(min(remaining, p.bounds[j]-alloc[j])) + 1
		alloc[j] += add
		remaining -= add
		if alloc[j] >= p.bounds[j] {
			open = slices.Delete(open, pick, pick+1)
		}
	}
	return alloc
}
