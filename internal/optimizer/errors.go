package optimizer

import "errors"

// Construction errors. They indicate a caller bug and are never returned
// for user-facing conditions such as infeasible allocations.
var (
	ErrNoCategories      = errors.New("at least one effect weight is required")
	ErrTooManyCategories = errors.New("more effect weights than coefficient rows")
	ErrInvalidWeight     = errors.New("effect weights must be finite and non-negative")
	ErrItemIndex         = errors.New("item index out of range")
	ErrBoundLength       = errors.New("item bound vector length mismatch")
	ErrNegativeBound     = errors.New("item bounds must be non-negative")
	ErrCapLength         = errors.New("probability cap vector length mismatch")
	ErrInvalidCap        = errors.New("probability caps must be finite and non-negative")
	ErrCacheSize         = errors.New("cache size must be positive")
)

// Run errors.
var (
	ErrStarts           = errors.New("number of starts must be positive")
	ErrAllocationLength = errors.New("allocation length does not match item count")
)
