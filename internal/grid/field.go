package grid

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/ctessum/sparse"
)

var (
	// ErrShapeMismatch is returned when two operands cannot be aligned by
	// dimension name: a shared dimension differs in length or coordinates.
	ErrShapeMismatch = errors.New("grid: shape mismatch")

	// ErrReleased is returned when a field is used after its owner released it.
	ErrReleased = errors.New("grid: field already released")

	// ErrInvalidField is returned when dims, shape, and values are inconsistent.
	ErrInvalidField = errors.New("grid: invalid field")
)

// Attrs holds descriptive metadata attached to a field. Values are strings or numbers.
type Attrs map[string]any

// Field is a labeled multi-dimensional array of float64 cells stored in
// row-major order. Dimensions are addressed by name; Coords optionally holds
// a coordinate vector per dimension.
//
// A Field is owned by exactly one holder at a time. Passing it to a transform
// hands over ownership, and the transform releases it when done.
type Field struct {
	Dims   []string
	Coords map[string][]float64
	Attrs  Attrs

	data      *sparse.DenseArray
	released  bool
	onRelease []func()
}

// New creates a field from dimension names, their sizes, and row-major values.
// The values slice is copied.
func New(dims []string, shape []int, values []float64) (*Field, error) {
	if len(dims) != len(shape) {
		return nil, fmt.Errorf("%w: %d dims but %d sizes", ErrInvalidField, len(dims), len(shape))
	}
	seen := make(map[string]bool, len(dims))
	for i, d := range dims {
		if d == "" {
			return nil, fmt.Errorf("%w: dimension %d has no name", ErrInvalidField, i)
		}
		if seen[d] {
			return nil, fmt.Errorf("%w: duplicate dimension %q", ErrInvalidField, d)
		}
		seen[d] = true
	}
	size, err := cellCount(shape)
	if err != nil {
		return nil, err
	}
	if len(values) != size {
		return nil, fmt.Errorf("%w: shape %v holds %d cells, got %d values", ErrInvalidField, shape, size, len(values))
	}

	f := &Field{
		Dims: slices.Clone(dims),
		data: sparse.ZerosDense(slices.Clone(shape)...),
	}
	copy(f.data.Elements, values)
	return f, nil
}

// cellCount returns the number of cells a shape holds. Shapes whose cell
// count does not fit in an int are rejected.
func cellCount(shape []int) (int, error) {
	size := 1
	for i, n := range shape {
		if n < 0 {
			return 0, fmt.Errorf("%w: dimension %d has negative size %d", ErrInvalidField, i, n)
		}
		if n != 0 && size > math.MaxInt/n {
			return 0, fmt.Errorf("%w: shape %v has too many cells", ErrInvalidField, shape)
		}
		size *= n
	}
	return size, nil
}

// Scalar creates a zero-dimensional field holding v.
func Scalar(v float64) *Field {
	f, _ := New(nil, nil, []float64{v})
	return f
}

// Full creates a field of the given layout with every cell set to v.
func Full(dims []string, shape []int, v float64) (*Field, error) {
	size, err := cellCount(shape)
	if err != nil {
		return nil, err
	}
	values := make([]float64, size)
	for i := range values {
		values[i] = v
	}
	return New(dims, shape, values)
}

// SetCoords attaches a coordinate vector to dimension dim.
func (f *Field) SetCoords(dim string, values []float64) error {
	i := slices.Index(f.Dims, dim)
	if i < 0 {
		return fmt.Errorf("%w: no dimension %q", ErrInvalidField, dim)
	}
	if f.data != nil && len(values) != f.data.Shape[i] {
		return fmt.Errorf("%w: %d coordinates for dimension %q of size %d", ErrInvalidField, len(values), dim, f.data.Shape[i])
	}
	if f.Coords == nil {
		f.Coords = make(map[string][]float64)
	}
	f.Coords[dim] = slices.Clone(values)
	return nil
}

// Shape returns a copy of the dimension sizes, or nil once released.
func (f *Field) Shape() []int {
	if f.data == nil {
		return nil
	}
	return slices.Clone(f.data.Shape)
}

// Size returns the number of cells.
func (f *Field) Size() int {
	if f.data == nil {
		return 0
	}
	return len(f.data.Elements)
}

// Values exposes the row-major cells. The slice aliases the field's storage
// and is nil once the field is released.
func (f *Field) Values() []float64 {
	if f.data == nil {
		return nil
	}
	return f.data.Elements
}

// At returns the cell at the given per-dimension index.
func (f *Field) At(index ...int) float64 {
	return f.data.Get(index...)
}

// Clone returns an independently owned deep copy, including attributes and
// coordinates. Release hooks are not carried over.
func (f *Field) Clone() (*Field, error) {
	if err := live(f); err != nil {
		return nil, err
	}
	c := &Field{
		Dims:   slices.Clone(f.Dims),
		Coords: cloneCoords(f.Coords),
		data:   f.data.Copy(),
	}
	c.data.Shape = slices.Clone(f.data.Shape)
	if f.Attrs != nil {
		c.Attrs = make(Attrs, len(f.Attrs))
		for k, v := range f.Attrs {
			c.Attrs[k] = v
		}
	}
	return c, nil
}

// OnRelease registers fn to run when the field is released. Hooks run once,
// most recently registered first.
func (f *Field) OnRelease(fn func()) {
	f.onRelease = append(f.onRelease, fn)
}

// Release drops the field's storage and runs its release hooks. Calling
// Release more than once is a no-op.
func (f *Field) Release() {
	if f == nil || f.released {
		return
	}
	f.released = true
	f.data = nil
	for i := len(f.onRelease) - 1; i >= 0; i-- {
		f.onRelease[i]()
	}
	f.onRelease = nil
}

// Released reports whether Release has been called.
func (f *Field) Released() bool {
	return f.released
}

// Release releases every non-nil field.
func Release(fields ...*Field) {
	for _, f := range fields {
		f.Release()
	}
}

func live(fields ...*Field) error {
	for _, f := range fields {
		if f == nil {
			return fmt.Errorf("%w: nil field", ErrInvalidField)
		}
		if f.released {
			return ErrReleased
		}
	}
	return nil
}

func cloneCoords(coords map[string][]float64) map[string][]float64 {
	if coords == nil {
		return nil
	}
	out := make(map[string][]float64, len(coords))
	for k, v := range coords {
		out[k] = slices.Clone(v)
	}
	return out
}
