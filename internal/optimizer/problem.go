// Package optimizer searches for the integer distribution of a fixed unit
// budget across items that maximizes a weighted, capped score over effects.
package optimizer

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/mat"

	"cauldron-optimizer/internal/coeff"
)

// Problem is one reduced optimization instance: the coefficient rows of the
// active effects restricted to the items that may receive units. It is
// immutable after construction except for its objective cache, and may be
// shared by concurrent searches.
type Problem struct {
	store *coeff.Store
	cfg   Config

	d      int // active categories
	n      int // total items
	budget int

	forced *roaring.Bitmap
	free   []int // reduced index -> item index

	// Per free item columns of the active rows, in reduced order.
	vcols, bcols [][]float64

	// The same columns as matrices for from-scratch projections; nil when
	// no item is free.
	vred, bred *mat.Dense

	weights []float64
	bounds  []int // per free item
	caps    []float64

	cache *Cache
}

type problemOptions struct {
	forced    []int
	itemBound int
	bounds    []int
	probCap   float64
	caps      []float64
	cacheMax  int
	cfg       Config
}

// Option configures a Problem.
type Option func(*problemOptions)

// WithForcedZero pins the given items to zero units for the lifetime of the Problem.
func WithForcedZero(items ...int) Option {
	return func(o *problemOptions) {
		o.forced = append(o.forced, items...)
	}
}

// WithItemBound sets the same upper bound for every item.
func WithItemBound(bound int) Option {
	return func(o *problemOptions) {
		o.itemBound = bound
		o.bounds = nil
	}
}

// WithItemBounds sets one upper bound per item, indexed like the full item list.
func WithItemBounds(bounds []int) Option {
	return func(o *problemOptions) {
		o.bounds = append([]int(nil), bounds...)
	}
}

// WithProbCap sets the same probability cap for every effect.
func WithProbCap(limit float64) Option {
	return func(o *problemOptions) {
		o.probCap = limit
		o.caps = nil
	}
}

// WithProbCaps sets one probability cap per active effect.
func WithProbCaps(caps []float64) Option {
	return func(o *problemOptions) {
		o.caps = append([]float64(nil), caps...)
	}
}

// WithCacheMaxSize sets the entry ceiling of the objective cache.
func WithCacheMaxSize(size int) Option {
	return func(o *problemOptions) {
		o.cacheMax = size
	}
}

// WithConfig sets the search parameters.
func WithConfig(cfg Config) Option {
	return func(o *problemOptions) {
		o.cfg = cfg
	}
}

// LimitsOf returns the bounds callers must respect when building a Problem
// over store.
func LimitsOf(store *coeff.Store) Limits {
	categories, items := store.Dims()
	return Limits{MaxCategories: categories, Items: items, Budget: Budget}
}

// NewProblem reduces store to the effects named by weights (one weight per
// effect row, in order) and to the items not forced to zero.
//
// Weights are normalized to sum to one. When they sum to zero every effect
// gets the same weight.
func NewProblem(store *coeff.Store, weights []float64, opts ...Option) (*Problem, error) {
	o := problemOptions{
		itemBound: Budget,
		probCap:   DefaultProbCap,
		cacheMax:  DefaultCacheMaxSize,
		cfg:       DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	maxCategories, n := store.Dims()
	d := len(weights)
	if d == 0 {
		return nil, ErrNoCategories
	}
	if d > maxCategories {
		return nil, fmt.Errorf("%w: %d requested, %d available", ErrTooManyCategories, d, maxCategories)
	}
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: weight %d is %v", ErrInvalidWeight, i, w)
		}
	}
	if o.cacheMax < 1 {
		return nil, fmt.Errorf("%w: %d", ErrCacheSize, o.cacheMax)
	}

	forced := roaring.New()
	for _, j := range o.forced {
		if j < 0 || j >= n {
			return nil, fmt.Errorf("%w: forced item %d, %d items", ErrItemIndex, j, n)
		}
		forced.Add(uint32(j))
	}

	fullBounds := o.bounds
	if fullBounds == nil {
		fullBounds = make([]int, n)
		for j := range fullBounds {
			fullBounds[j] = o.itemBound
		}
	} else if len(fullBounds) != n {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBoundLength, len(fullBounds), n)
	}
	for j, b := range fullBounds {
		if b < 0 {
			return nil, fmt.Errorf("%w: item %d bound %d", ErrNegativeBound, j, b)
		}
	}

	caps := o.caps
	if caps == nil {
		caps = make([]float64, d)
		for i := range caps {
			caps[i] = o.probCap
		}
	} else if len(caps) != d {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCapLength, len(caps), d)
	}
	for i, c := range caps {
		if c < 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%w: cap %d is %v", ErrInvalidCap, i, c)
		}
	}

	p := &Problem{
		store:   store,
		cfg:     o.cfg,
		d:       d,
		n:       n,
		budget:  Budget,
		forced:  forced,
		weights: normalizeWeights(weights),
		caps:    caps,
		cache:   NewCache(o.cacheMax),
	}
	for j := 0; j < n; j++ {
		if !forced.Contains(uint32(j)) {
			p.free = append(p.free, j)
			p.bounds = append(p.bounds, fullBounds[j])
		}
	}
	p.reduceColumns()
	return p, nil
}

func normalizeWeights(weights []float64) []float64 {
	w := make([]float64, len(weights))
	var sum float64
	for _, x := range weights {
		sum += x
	}
	if sum == 0 {
		for i := range w {
			w[i] = 1 / float64(len(w))
		}
		return w
	}
	for i, x := range weights {
		w[i] = x / sum
	}
	return w
}

// reduceColumns copies the active rows of the free columns out of the store.
func (p *Problem) reduceColumns() {
	nf := len(p.free)
	p.vcols = make([][]float64, nf)
	p.bcols = make([][]float64, nf)
	if nf == 0 {
		return
	}
	vdata := make([]float64, p.d*nf)
	bdata := make([]float64, p.d*nf)
	vm, bm := p.store.V(), p.store.B()
	for i, j := range p.free {
		vc := make([]float64, p.d)
		bc := make([]float64, p.d)
		for r := 0; r < p.d; r++ {
			vc[r] = vm.At(r, j)
			bc[r] = bm.At(r, j)
			vdata[r*nf+i] = vc[r]
			bdata[r*nf+i] = bc[r]
		}
		p.vcols[i] = vc
		p.bcols[i] = bc
	}
	p.vred = mat.NewDense(p.d, nf, vdata)
	p.bred = mat.NewDense(p.d, nf, bdata)
}

// reduce projects a full-length allocation onto the free items.
func (p *Problem) reduce(allocation []int) []int {
	out := make([]int, len(p.free))
	for i, j := range p.free {
		out[i] = allocation[j]
	}
	return out
}

// expand lifts a reduced allocation back to full length, forced items at zero.
func (p *Problem) expand(reduced []int) []int {
	out := make([]int, p.n)
	for i, j := range p.free {
		out[j] = reduced[i]
	}
	return out
}

// Categories returns the number of active effects.
func (p *Problem) Categories() int { return p.d }

// Items returns the full item count.
func (p *Problem) Items() int { return p.n }

// Budget returns the unit budget.
func (p *Problem) Budget() int { return p.budget }

// FreeItems returns the items that may receive units, in ascending order.
func (p *Problem) FreeItems() []int { return append([]int(nil), p.free...) }

// Forced reports whether item j is pinned to zero.
func (p *Problem) Forced(j int) bool { return p.forced.Contains(uint32(j)) }

// Weights returns the normalized effect weights.
func (p *Problem) Weights() []float64 { return append([]float64(nil), p.weights...) }

// Caps returns the per-effect probability caps.
func (p *Problem) Caps() []float64 { return append([]float64(nil), p.caps...) }

// Bounds returns the per-item upper bounds at full length; forced items are 0.
func (p *Problem) Bounds() []int { return p.expand(p.bounds) }

// CacheStats reports objective cache activity.
func (p *Problem) CacheStats() CacheStats { return p.cache.Stats() }
