package optimizer

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// State is a reduced allocation together with its running projections
// Sv = V·alpha and Sb = B·alpha and its unit total. Item indices are
// reduced indices, i.e. positions in Problem.FreeItems.
//
// Each mutation costs O(Categories). A State is owned by one search and is
// not safe for concurrent use.
type State struct {
	p      *Problem
	alloc  []int
	sv, sb []float64
	total  int
}

// NewState returns the state of a full-length allocation. Units on forced
// items are dropped.
func (p *Problem) NewState(allocation []int) (*State, error) {
	if allocation == nil {
		allocation = make([]int, p.n)
	}
	if len(allocation) != p.n {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrAllocationLength, len(allocation), p.n)
	}
	return p.stateOf(p.reduce(allocation)), nil
}

// stateOf takes ownership of a reduced allocation.
func (p *Problem) stateOf(reduced []int) *State {
	sv, sb, total := p.project(reduced)
	return &State{p: p, alloc: reduced, sv: sv, sb: sb, total: total}
}

// Add puts one more unit on item j.
func (s *State) Add(j int) {
	s.alloc[j]++
	floats.Add(s.sv, s.p.vcols[j])
	floats.Add(s.sb, s.p.bcols[j])
	s.total++
}

// Remove takes one unit off item j. It reports false, leaving the state
// untouched, when item j holds no units.
func (s *State) Remove(j int) bool {
	if s.alloc[j] <= 0 {
		return false
	}
	s.alloc[j]--
	floats.Sub(s.sv, s.p.vcols[j])
	floats.Sub(s.sb, s.p.bcols[j])
	s.total--
	return true
}

// Transfer moves one unit from item k to item j in a single pass over the
// categories. The total is unchanged. It reports false when k holds no
// units or k == j.
func (s *State) Transfer(k, j int) bool {
	if k == j || s.alloc[k] <= 0 {
		return false
	}
	s.alloc[k]--
	s.alloc[j]++
	vk, vj := s.p.vcols[k], s.p.vcols[j]
	bk, bj := s.p.bcols[k], s.p.bcols[j]
	for d := range s.sv {
		s.sv[d] = s.sv[d] - vk[d] + vj[d]
		s.sb[d] = s.sb[d] - bk[d] + bj[d]
	}
	return true
}

// Units returns the units on reduced item j.
func (s *State) Units(j int) int { return s.alloc[j] }

// Total returns the number of allocated units.
func (s *State) Total() int { return s.total }

// Projections returns copies of Sv and Sb.
func (s *State) Projections() (sv, sb []float64) {
	return append([]float64(nil), s.sv...), append([]float64(nil), s.sb...)
}

// Allocation returns the full-length allocation.
func (s *State) Allocation() []int { return s.p.expand(s.alloc) }
