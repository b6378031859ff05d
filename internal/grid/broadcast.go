package grid

import (
	"fmt"
	"math"
	"slices"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// layout describes the output of a binary operation and how each operand's
// flat index advances along every output dimension.
type layout struct {
	dims    []string
	shape   []int
	coords  map[string][]float64
	aStride []int
	bStride []int
	same    bool
}

// align matches a and b by dimension name. The output keeps a's dimensions
// in order followed by any dimensions only b has.
func align(a, b *Field) (layout, error) {
	aShape, bShape := a.data.Shape, b.data.Shape
	aStrides, bStrides := strides(aShape), strides(bShape)

	l := layout{
		dims:  slices.Clone(a.Dims),
		shape: slices.Clone(aShape),
		same:  slices.Equal(a.Dims, b.Dims) && slices.Equal(aShape, bShape),
	}
	l.aStride = slices.Clone(aStrides)
	l.bStride = make([]int, len(a.Dims))

	for j, d := range b.Dims {
		i := slices.Index(a.Dims, d)
		if i < 0 {
			l.dims = append(l.dims, d)
			l.shape = append(l.shape, bShape[j])
			l.aStride = append(l.aStride, 0)
			l.bStride = append(l.bStride, bStrides[j])
			continue
		}
		if aShape[i] != bShape[j] {
			return layout{}, fmt.Errorf("%w: dimension %q has size %d and %d", ErrShapeMismatch, d, aShape[i], bShape[j])
		}
		if ac, bc := a.Coords[d], b.Coords[d]; ac != nil && bc != nil && !sameCoords(ac, bc) {
			return layout{}, fmt.Errorf("%w: dimension %q has different coordinates", ErrShapeMismatch, d)
		}
		l.bStride[i] = bStrides[j]
	}
	if _, err := cellCount(l.shape); err != nil {
		return layout{}, fmt.Errorf("broadcast %v over %v: %w", b.Dims, a.Dims, err)
	}

	for _, d := range l.dims {
		c := a.Coords[d]
		if c == nil {
			c = b.Coords[d]
		}
		if c == nil {
			continue
		}
		if l.coords == nil {
			l.coords = make(map[string][]float64)
		}
		l.coords[d] = slices.Clone(c)
	}
	return l, nil
}

func (l layout) newField() *Field {
	return &Field{
		Dims:   l.dims,
		Coords: l.coords,
		data:   sparse.ZerosDense(slices.Clone(l.shape)...),
	}
}

// strides returns row-major element strides for shape.
func strides(shape []int) []int {
	s := make([]int, len(shape))
	n := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = n
		n *= shape[i]
	}
	return s
}

func sameCoords(a, b []float64) bool {
	return slices.EqualFunc(a, b, func(x, y float64) bool {
		return x == y || (math.IsNaN(x) && math.IsNaN(y))
	})
}

// Apply2 evaluates fn cell by cell over a and b, broadcasting by dimension
// name. The result carries no attributes.
func Apply2(a, b *Field, fn func(x, y float64) float64) (*Field, error) {
	if err := live(a, b); err != nil {
		return nil, err
	}
	l, err := align(a, b)
	if err != nil {
		return nil, err
	}
	out := l.newField()
	ae, be, oe := a.data.Elements, b.data.Elements, out.data.Elements

	if l.same {
		for i := range oe {
			oe[i] = fn(ae[i], be[i])
		}
		return out, nil
	}

	idx := make([]int, len(l.shape))
	ai, bi := 0, 0
	for i := range oe {
		oe[i] = fn(ae[ai], be[bi])
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			ai += l.aStride[d]
			bi += l.bStride[d]
			if idx[d] < l.shape[d] {
				break
			}
			ai -= l.aStride[d] * l.shape[d]
			bi -= l.bStride[d] * l.shape[d]
			idx[d] = 0
		}
	}
	return out, nil
}

// Mul multiplies a and b cell by cell with broadcasting.
func Mul(a, b *Field) (*Field, error) {
	if err := live(a, b); err != nil {
		return nil, err
	}
	if slices.Equal(a.Dims, b.Dims) && slices.Equal(a.data.Shape, b.data.Shape) {
		l, err := align(a, b)
		if err != nil {
			return nil, err
		}
		out := l.newField()
		floats.MulTo(out.data.Elements, a.data.Elements, b.data.Elements)
		return out, nil
	}
	return Apply2(a, b, func(x, y float64) float64 { return x * y })
}

// Scale returns c*f.
func Scale(f *Field, c float64) (*Field, error) {
	out, err := bare(f)
	if err != nil {
		return nil, err
	}
	copy(out.data.Elements, f.data.Elements)
	floats.Scale(c, out.data.Elements)
	return out, nil
}

// AddConst returns f+c.
func AddConst(f *Field, c float64) (*Field, error) {
	out, err := bare(f)
	if err != nil {
		return nil, err
	}
	copy(out.data.Elements, f.data.Elements)
	floats.AddConst(c, out.data.Elements)
	return out, nil
}

// bare allocates a zeroed field with f's layout and no attributes.
func bare(f *Field) (*Field, error) {
	if err := live(f); err != nil {
		return nil, err
	}
	return &Field{
		Dims:   slices.Clone(f.Dims),
		Coords: cloneCoords(f.Coords),
		data:   sparse.ZerosDense(slices.Clone(f.data.Shape)...),
	}, nil
}
