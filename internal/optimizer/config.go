package optimizer

const (
	// Budget is the fixed ceiling on the total number of units in an allocation.
	Budget = 25
	// Infeasible is the score given to allocations that break a bound or the budget.
	Infeasible = -1e12
	// DefaultProbCap is the per-effect probability cap used when none is given.
	DefaultProbCap = 100.0
	// DefaultCacheMaxSize is the objective cache ceiling used when none is given.
	DefaultCacheMaxSize = 1_000_000

	// epsilon is the minimum gain for a move to be committed.
	epsilon = 1e-12
	// probScale converts an energy share into a probability in percent.
	probScale = 20.0
	// energyBase is the base of the exponential B-projection term.
	energyBase = 1.1
)

// Config holds search tuning parameters. Adjust these to trade speed for
// solution quality.
type Config struct {
	// Seed feeds the per-start random generators. Equal seeds give equal results.
	Seed uint64
	// Workers bounds how many restarts run concurrently. 0 uses GOMAXPROCS,
	// 1 runs the restarts sequentially.
	Workers int
	// Transfers enables unit-transfer moves next to single-unit additions.
	Transfers bool
	// MaxIterations caps the committed moves of one local search. 0 means no cap.
	MaxIterations int
	// OnCommit, when set, observes the start allocation and every committed
	// move of each local search. It is called from the worker running that
	// start, so it must be safe for concurrent use when Workers != 1.
	OnCommit func(start int, allocation []int, score float64)
}

// DefaultConfig returns the default search parameters.
func DefaultConfig() Config {
	return Config{
		Transfers: true,
	}
}

// Limits are the dataset-derived bounds callers validate against before
// building a Problem.
type Limits struct {
	MaxCategories int
	Items         int
	Budget        int
}
