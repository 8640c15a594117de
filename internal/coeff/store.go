// Package coeff holds the two coefficient matrices (B and V) the optimizer
// reads from, together with the loaders for the datasets they ship in.
package coeff

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShapeMismatch is returned when B and V do not share the same dimensions.
	ErrShapeMismatch = errors.New("coefficient matrices differ in shape")
	// ErrEmptyMatrix is returned for matrices without rows or columns.
	ErrEmptyMatrix = errors.New("coefficient matrix is empty")
	// ErrNonFinite is returned when a matrix holds NaN or Inf.
	ErrNonFinite = errors.New("coefficient matrix holds a non-finite value")
	// ErrBadDataset is returned when a dataset cannot be decoded.
	ErrBadDataset = errors.New("malformed coefficient dataset")
	// ErrNameCount is returned when effect or item names do not match the matrix shape.
	ErrNameCount = errors.New("name count does not match matrix shape")
)

// Store is an immutable pair of coefficient matrices shaped
// (categories x items). Rows are effects, columns are items.
type Store struct {
	b, v       *mat.Dense
	categories int
	items      int

	version   string
	effects   []string
	itemNames []string
}

// Option configures optional Store metadata.
type Option func(*Store)

// WithVersion records the dataset version the matrices came from.
func WithVersion(version string) Option {
	return func(s *Store) {
		s.version = version
	}
}

// WithEffectNames sets one display name per category (row).
func WithEffectNames(names []string) Option {
	return func(s *Store) {
		s.effects = append([]string(nil), names...)
	}
}

// WithItemNames sets one display name per item (column).
func WithItemNames(names []string) Option {
	return func(s *Store) {
		s.itemNames = append([]string(nil), names...)
	}
}

// New builds a Store from copies of b and v.
func New(b, v *mat.Dense, opts ...Option) (*Store, error) {
	if b == nil || v == nil || b.IsEmpty() || v.IsEmpty() {
		return nil, ErrEmptyMatrix
	}
	br, bc := b.Dims()
	vr, vc := v.Dims()
	if br != vr || bc != vc {
		return nil, fmt.Errorf("%w: B is %dx%d, V is %dx%d", ErrShapeMismatch, br, bc, vr, vc)
	}
	for name, m := range map[string]*mat.Dense{"B": b, "V": v} {
		if err := checkFinite(name, m); err != nil {
			return nil, err
		}
	}

	s := &Store{
		b:          mat.DenseCopyOf(b),
		v:          mat.DenseCopyOf(v),
		categories: br,
		items:      bc,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.effects == nil {
		s.effects = defaultNames("effect", br)
	} else if len(s.effects) != br {
		return nil, fmt.Errorf("%w: %d effect names for %d categories", ErrNameCount, len(s.effects), br)
	}
	if s.itemNames == nil {
		s.itemNames = defaultNames("item", bc)
	} else if len(s.itemNames) != bc {
		return nil, fmt.Errorf("%w: %d item names for %d items", ErrNameCount, len(s.itemNames), bc)
	}
	return s, nil
}

func checkFinite(name string, m *mat.Dense) error {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			x := m.At(i, j)
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("%w: %s[%d][%d]", ErrNonFinite, name, i, j)
			}
		}
	}
	return nil
}

func defaultNames(prefix string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = prefix + "-" + strconv.Itoa(i+1)
	}
	return names
}

// Dims returns the number of categories (rows) and items (columns).
func (s *Store) Dims() (categories, items int) {
	return s.categories, s.items
}

// B returns the B matrix. The returned matrix must be treated as read-only.
func (s *Store) B() mat.Matrix { return s.b }

// V returns the V matrix. The returned matrix must be treated as read-only.
func (s *Store) V() mat.Matrix { return s.v }

// Version returns the dataset version, or "" when unknown.
func (s *Store) Version() string { return s.version }

// EffectName returns the display name of category d.
func (s *Store) EffectName(d int) string { return s.effects[d] }

// ItemName returns the display name of item j.
func (s *Store) ItemName(j int) string { return s.itemNames[j] }

// ItemIndex resolves an item display name to its column index.
func (s *Store) ItemIndex(name string) (int, bool) {
	for j, n := range s.itemNames {
		if n == name {
			return j, true
		}
	}
	return -1, false
}
