package service

import (
	"fmt"
	"math"
	"slices"
	"time"

	"k8s.io/klog/v2"

	"cauldron-optimizer/internal/coeff"
	"cauldron-optimizer/internal/optimizer"
)

// Effect is one effect of a result with a non-zero probability.
type Effect struct {
	Index  int     `json:"index"`
	Name   string  `json:"name"`
	Value  float64 `json:"value"` // percent, rounded to 2 decimals
	Weight float64 `json:"weight"`
}

// Response is the outcome of a run.
type Response struct {
	Version    string   `json:"version,omitempty"`
	Score      float64  `json:"score"`
	Allocation []int    `json:"allocation"`
	ItemNames  []string `json:"itemNames"`
	Effects    []Effect `json:"effects"`
	TimeMs     int64    `json:"timeMs"`

	Stats   optimizer.Stats      `json:"-"`
	Cache   optimizer.CacheStats `json:"-"`
	Elapsed time.Duration        `json:"-"`
}

// Run validates req and either optimizes it or, when it carries an
// allocation, scores that allocation with the request's weight count.
func Run(store *coeff.Store, req Request, cfg optimizer.Config) (Response, error) {
	req = req.WithDefaults()
	if err := req.Validate(store); err != nil {
		return Response{}, err
	}
	if req.Allocation != nil {
		return Formula(store, len(req.Weights), req.Allocation)
	}
	return optimize(store, req, cfg)
}

// Optimize validates req and runs a multistart search for it. The request
// seed overrides cfg.Seed.
func Optimize(store *coeff.Store, req Request, cfg optimizer.Config) (Response, error) {
	req = req.WithDefaults()
	req.Allocation = nil
	if err := req.Validate(store); err != nil {
		return Response{}, err
	}
	return optimize(store, req, cfg)
}

func optimize(store *coeff.Store, req Request, cfg optimizer.Config) (Response, error) {
	cfg.Seed = req.Seed
	p, err := optimizer.NewProblem(store, req.Weights,
		optimizer.WithForcedZero(req.forced(store)...),
		optimizer.WithItemBound(req.ItemBound),
		optimizer.WithProbCap(req.ProbCap),
		optimizer.WithConfig(cfg),
	)
	if err != nil {
		return Response{}, fmt.Errorf("building problem: %w", err)
	}

	start := time.Now()
	res, err := p.Multistart(req.Starts)
	if err != nil {
		return Response{}, fmt.Errorf("multistart: %w", err)
	}
	elapsed := time.Since(start)
	if p.Objective(res.Allocation) == optimizer.Infeasible {
		return Response{}, fmt.Errorf("multistart returned an infeasible allocation %v", res.Allocation)
	}

	probs, err := p.EffectProbabilities(res.Allocation)
	if err != nil {
		return Response{}, fmt.Errorf("effect probabilities: %w", err)
	}
	resp := newResponse(store, res.Allocation, res.Score, effects(store, probs, req.Weights), elapsed)
	resp.Stats = res.Stats
	resp.Cache = p.CacheStats()

	klog.V(1).InfoS("[done] optimize", "version", store.Version(), "score", res.Score,
		"starts", req.Starts, "freeItems", len(p.FreeItems()), "elapsed", elapsed)
	return resp, nil
}

// Formula scores an allocation over the first categories effects with
// uniform weights, without searching. categories is clamped to the
// dataset's range. Bounds and the budget are not enforced.
func Formula(store *coeff.Store, categories int, allocation []int) (Response, error) {
	limits := optimizer.LimitsOf(store)
	categories = max(1, min(categories, limits.MaxCategories))
	if len(allocation) != limits.Items {
		return Response{}, invalid("allocation", "need %d entries, got %d", limits.Items, len(allocation))
	}
	for j, a := range allocation {
		if a < 0 {
			return Response{}, invalid("allocation", "item %d has %d units", j, a)
		}
	}

	weights := make([]float64, categories)
	for i := range weights {
		weights[i] = 1
	}
	p, err := optimizer.NewProblem(store, weights)
	if err != nil {
		return Response{}, fmt.Errorf("building problem: %w", err)
	}

	start := time.Now()
	probs, err := p.EffectProbabilities(allocation)
	if err != nil {
		return Response{}, fmt.Errorf("effect probabilities: %w", err)
	}
	score, err := p.Evaluate(allocation)
	if err != nil {
		return Response{}, fmt.Errorf("evaluate: %w", err)
	}
	return newResponse(store, slices.Clone(allocation), score, effects(store, probs, weights), time.Since(start)), nil
}

func newResponse(store *coeff.Store, allocation []int, score float64, effects []Effect, elapsed time.Duration) Response {
	_, items := store.Dims()
	names := make([]string, items)
	for j := range names {
		names[j] = store.ItemName(j)
	}
	return Response{
		Version:    store.Version(),
		Score:      score,
		Allocation: allocation,
		ItemNames:  names,
		Effects:    effects,
		TimeMs:     elapsed.Milliseconds(),
		Elapsed:    elapsed,
	}
}

// effects lists the effects with a positive probability, highest first and
// ties by index.
func effects(store *coeff.Store, probs, weights []float64) []Effect {
	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case probs[a] > probs[b]:
			return -1
		case probs[a] < probs[b]:
			return 1
		}
		return a - b
	})

	out := []Effect{}
	for _, i := range order {
		if probs[i] <= 0 {
			continue
		}
		out = append(out, Effect{
			Index:  i,
			Name:   store.EffectName(i),
			Value:  round2(probs[i]),
			Weight: weights[i],
		})
	}
	return out
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
