// Package service validates user requests and runs the optimizer on them.
// It is shared by the CLI and the Lambda handler.
package service

import (
	"errors"
	"fmt"
	"math"

	"cauldron-optimizer/internal/coeff"
	"cauldron-optimizer/internal/optimizer"
)

const (
	// MaxStarts bounds the search depth a request may ask for.
	MaxStarts = 500
	// DefaultStarts is the search depth used when a request names none.
	DefaultStarts = 20
	// MaxProbCap is the largest accepted per-effect probability cap.
	MaxProbCap = 100
)

// Request describes one optimization run.
type Request struct {
	// Weights holds one desirability weight in [0,1] per active effect.
	Weights []float64 `json:"weights"`
	// Premium lists item indices that must receive no units.
	Premium []int `json:"premium,omitempty"`
	// PremiumNames lists items by name; they are resolved against the dataset.
	PremiumNames []string `json:"premiumNames,omitempty"`
	// ItemBound caps the units of any single item. 0 means the budget.
	ItemBound int `json:"itemBound,omitempty"`
	// ProbCap caps the probability credited to any single effect. 0 means 100.
	ProbCap float64 `json:"probCap,omitempty"`
	// Starts is the number of random restarts. 0 means DefaultStarts.
	Starts int    `json:"starts,omitempty"`
	Seed   uint64 `json:"seed,omitempty"`
	// Allocation, when set, is scored as given instead of optimized.
	Allocation []int `json:"allocation,omitempty"`
}

// ValidationError reports a request field the caller must fix.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError returns true if err is a request validation error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// WithDefaults returns a copy of r with zero fields replaced by their defaults.
func (r Request) WithDefaults() Request {
	if r.ItemBound == 0 {
		r.ItemBound = optimizer.Budget
	}
	if r.ProbCap == 0 {
		r.ProbCap = MaxProbCap
	}
	if r.Starts == 0 {
		r.Starts = DefaultStarts
	}
	return r
}

// Validate checks r against the limits of store. Defaults must already be
// applied. It returns a *ValidationError on the first bad field.
func (r Request) Validate(store *coeff.Store) error {
	limits := optimizer.LimitsOf(store)

	if len(r.Weights) < 1 || len(r.Weights) > limits.MaxCategories {
		return invalid("weights", "need between 1 and %d weights, got %d", limits.MaxCategories, len(r.Weights))
	}
	if r.Allocation == nil {
		var sum float64
		for i, w := range r.Weights {
			if math.IsNaN(w) || w < 0 || w > 1 {
				return invalid("weights", "weight %d is %v, want a value in [0,1]", i, w)
			}
			sum += w
		}
		if sum == 0 {
			return invalid("weights", "at least one effect must have a positive weight")
		}
	}
	if r.ItemBound < 1 || r.ItemBound > limits.Budget {
		return invalid("itemBound", "must be between 1 and %d, got %d", limits.Budget, r.ItemBound)
	}
	if math.IsNaN(r.ProbCap) || r.ProbCap < 1 || r.ProbCap > MaxProbCap {
		return invalid("probCap", "must be between 1 and %d, got %v", MaxProbCap, r.ProbCap)
	}
	if r.Starts < 1 || r.Starts > MaxStarts {
		return invalid("starts", "must be between 1 and %d, got %d", MaxStarts, r.Starts)
	}
	for _, j := range r.Premium {
		if j < 0 || j >= limits.Items {
			return invalid("premium", "item %d out of range [0,%d)", j, limits.Items)
		}
	}
	for _, name := range r.PremiumNames {
		if _, ok := store.ItemIndex(name); !ok {
			return invalid("premiumNames", "unknown item %q", name)
		}
	}
	if r.Allocation != nil {
		if len(r.Allocation) != limits.Items {
			return invalid("allocation", "need %d entries, got %d", limits.Items, len(r.Allocation))
		}
		for j, a := range r.Allocation {
			if a < 0 {
				return invalid("allocation", "item %d has %d units", j, a)
			}
		}
	}
	return nil
}

// forced merges Premium and the indices of PremiumNames. Names must have
// been validated.
func (r Request) forced(store *coeff.Store) []int {
	out := append([]int(nil), r.Premium...)
	for _, name := range r.PremiumNames {
		j, _ := store.ItemIndex(name)
		out = append(out, j)
	}
	return out
}
