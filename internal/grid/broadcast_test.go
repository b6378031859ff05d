package grid

import (
	"math"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sub(x, y float64) float64 { return x - y }

func TestApply2_SameLayout(t *testing.T) {
	a := mustField(t, []string{"lat", "lon"}, []int{2, 2}, 10, 20, 30, 40)
	b := mustField(t, []string{"lat", "lon"}, []int{2, 2}, 1, 2, 3, 4)

	out, err := Apply2(a, b, sub)
	require.NoError(t, err)
	assert.Equal(t, []string{"lat", "lon"}, out.Dims)
	assert.Equal(t, []float64{9, 18, 27, 36}, out.Values())
	assert.Empty(t, out.Attrs)
}

func TestApply2_Scalar(t *testing.T) {
	a := mustField(t, []string{"x"}, []int{3}, 1, 2, 3)

	out, err := Apply2(a, Scalar(1), sub)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, out.Values())

	out, err = Apply2(Scalar(10), a, sub)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, out.Dims)
	assert.Equal(t, []float64{9, 8, 7}, out.Values())
}

func TestApply2_BroadcastsMissingDimension(t *testing.T) {
	// (time, lat) against (lat): the lat-only operand repeats over time.
	a := mustField(t, []string{"time", "lat"}, []int{2, 3}, 1, 2, 3, 4, 5, 6)
	b := mustField(t, []string{"lat"}, []int{3}, 10, 20, 30)

	out, err := Apply2(a, b, func(x, y float64) float64 { return x + y })
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, out.Shape())
	assert.Equal(t, []float64{11, 22, 33, 14, 25, 36}, out.Values())
}

func TestApply2_OuterProduct(t *testing.T) {
	a := mustField(t, []string{"lat"}, []int{2}, 1, 2)
	b := mustField(t, []string{"lon"}, []int{3}, 10, 20, 30)

	out, err := Apply2(a, b, func(x, y float64) float64 { return x * y })
	require.NoError(t, err)
	assert.Equal(t, []string{"lat", "lon"}, out.Dims)
	assert.Equal(t, []int{2, 3}, out.Shape())
	assert.Equal(t, []float64{10, 20, 30, 20, 40, 60}, out.Values())
}

func TestApply2_TransposedOperand(t *testing.T) {
	a := mustField(t, []string{"lat", "lon"}, []int{2, 3}, 0, 0, 0, 0, 0, 0)
	// b[lon][lat]
	b := mustField(t, []string{"lon", "lat"}, []int{3, 2}, 1, 4, 2, 5, 3, 6)

	out, err := Apply2(a, b, func(x, y float64) float64 { return x + y })
	require.NoError(t, err)
	assert.Equal(t, []string{"lat", "lon"}, out.Dims)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, out.Values())
}

func TestApply2_ShapeMismatch(t *testing.T) {
	a := mustField(t, []string{"lat", "lon"}, []int{2, 2}, 1, 2, 3, 4)
	b := mustField(t, []string{"lat", "lon"}, []int{2, 3}, 1, 2, 3, 4, 5, 6)

	_, err := Apply2(a, b, sub)
	require.ErrorIs(t, err, ErrShapeMismatch)
	assert.Contains(t, err.Error(), `"lon"`)
}

func TestApply2_CoordinateMismatch(t *testing.T) {
	a := mustField(t, []string{"lat"}, []int{2}, 1, 2)
	b := mustField(t, []string{"lat"}, []int{2}, 1, 2)
	require.NoError(t, a.SetCoords("lat", []float64{-37.5, -37}))
	require.NoError(t, b.SetCoords("lat", []float64{-33.5, -33}))

	_, err := Apply2(a, b, sub)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestApply2_CoordinatesCarried(t *testing.T) {
	a := mustField(t, []string{"lat"}, []int{2}, 1, 2)
	b := mustField(t, []string{"lon"}, []int{1}, 1)
	require.NoError(t, b.SetCoords("lon", []float64{145}))

	out, err := Apply2(a, b, sub)
	require.NoError(t, err)
	assert.Equal(t, map[string][]float64{"lon": {145}}, out.Coords)
}

func TestApply2_NonFinitePropagates(t *testing.T) {
	a := mustField(t, []string{"x"}, []int{2}, 1, 1)
	b := mustField(t, []string{"x"}, []int{2}, 0, math.NaN())

	out, err := Apply2(a, b, func(x, y float64) float64 { return x / y })
	require.NoError(t, err)
	assert.True(t, math.IsInf(out.Values()[0], 1))
	assert.True(t, math.IsNaN(out.Values()[1]))
}

func TestApply2_NilOperand(t *testing.T) {
	_, err := Apply2(Scalar(1), nil, sub)
	require.ErrorIs(t, err, ErrInvalidField)
}

func TestApply2_BroadcastTooLarge(t *testing.T) {
	a := &Field{Dims: []string{"x"}, data: &sparse.DenseArray{Shape: []int{1 << 40}}}
	b := &Field{Dims: []string{"y"}, data: &sparse.DenseArray{Shape: []int{1 << 40}}}

	_, err := Apply2(a, b, sub)
	require.ErrorIs(t, err, ErrInvalidField)
}

func TestMul(t *testing.T) {
	a := mustField(t, []string{"x"}, []int{3}, 1, 2, 3)
	b := mustField(t, []string{"x"}, []int{3}, 4, 5, 6)

	out, err := Mul(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 10, 18}, out.Values())

	out, err = Mul(a, Scalar(2))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6}, out.Values())

	c := mustField(t, []string{"x"}, []int{2}, 1, 2)
	_, err = Mul(a, c)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestScaleAndAddConst(t *testing.T) {
	a := mustField(t, []string{"x"}, []int{2}, 3, 6)
	a.Attrs = Attrs{"units": "km h-1"}

	scaled, err := Scale(a, 50.0/3.0)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, scaled.Values()[0], 1e-12)
	assert.InDelta(t, 100.0, scaled.Values()[1], 1e-12)
	assert.Empty(t, scaled.Attrs)

	shifted, err := AddConst(a, 12)
	require.NoError(t, err)
	assert.Equal(t, []float64{15, 18}, shifted.Values())
	assert.Equal(t, []float64{3, 6}, a.Values())
}

func TestStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, strides([]int{2, 3, 4}))
	assert.Empty(t, strides(nil))
}
