package spatialstat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// gridPoints returns the points of an nx×ny unit lattice, row by row.
func gridPoints(nx, ny int) [][]float64 {
	pts := make([][]float64, 0, nx*ny)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			pts = append(pts, []float64{float64(x), float64(y)})
		}
	}
	return pts
}

func rookWeights(t *testing.T, nx, ny int) ([][]int, *WeightMatrix) {
	t.Helper()
	nb, err := KDTreeNeighbors(gridPoints(nx, ny), nil, KDTreeSearch{Radius: 1})
	require.NoError(t, err)
	w, err := SpatialWeights(nb, nil)
	require.NoError(t, err)
	return nb, w
}

// denseMoran evaluates Moran's I straight from the dense definition.
func denseMoran(x []float64, w *mat.Dense) float64 {
	n := len(x)
	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)
	var s0, num, den float64
	for i := 0; i < n; i++ {
		den += (x[i] - mean) * (x[i] - mean)
		for j := 0; j < n; j++ {
			s0 += w.At(i, j)
			num += w.At(i, j) * (x[i] - mean) * (x[j] - mean)
		}
	}
	return float64(n) / s0 * num / den
}

func denseGeary(x []float64, w *mat.Dense) float64 {
	n := len(x)
	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)
	var s0, num, den float64
	for i := 0; i < n; i++ {
		den += (x[i] - mean) * (x[i] - mean)
		for j := 0; j < n; j++ {
			s0 += w.At(i, j)
			num += w.At(i, j) * (x[i] - x[j]) * (x[i] - x[j])
		}
	}
	return float64(n-1) / (2 * s0) * num / den
}

func TestMoransI_MatchesDense(t *testing.T) {
	_, w := rookWeights(t, 6, 5)
	x := make([]float64, w.N())
	for i := range x {
		x[i] = math.Sin(float64(i)*0.9) + float64(i%6)*0.3
	}
	r, err := MoransI(x, w, true)
	require.NoError(t, err)
	assert.InDelta(t, denseMoran(x, w.Dense()), r.Value, 1e-12)
	assert.InDelta(t, -1.0/29, r.Expected, floatTol)
	assert.Greater(t, r.Variance, 0.0)
	assert.InDelta(t, (r.Value-r.Expected)/math.Sqrt(r.Variance), r.ZScore, 1e-12)
}

func TestGearysC_MatchesDense(t *testing.T) {
	_, w := rookWeights(t, 6, 5)
	x := make([]float64, w.N())
	for i := range x {
		x[i] = math.Cos(float64(i) * 1.3)
	}
	r, err := GearysC(x, w)
	require.NoError(t, err)
	assert.InDelta(t, denseGeary(x, w.Dense()), r.Value, 1e-12)
	assert.Equal(t, 1.0, r.Expected)
}

func TestMoransI_ClusteredAndDispersed(t *testing.T) {
	_, w := rookWeights(t, 10, 10)
	halves := make([]float64, 100)
	checker := make([]float64, 100)
	for i := range halves {
		x, y := i%10, i/10
		if x < 5 {
			halves[i] = 1
		}
		checker[i] = float64((x + y) % 2)
	}

	r, err := MoransI(halves, w, false)
	require.NoError(t, err)
	assert.Greater(t, r.Value, r.Expected)
	assert.Less(t, r.PValue, 0.05)

	r, err = MoransI(checker, w, true)
	require.NoError(t, err)
	assert.Less(t, r.Value, r.Expected)
	assert.Less(t, r.PValue, 0.05)

	c, err := GearysC(halves, w)
	require.NoError(t, err)
	assert.Less(t, c.Value, 1.0)
	assert.Less(t, c.PValue, 0.05)
}

func TestMoransI_TwoTailedDoubles(t *testing.T) {
	_, w := rookWeights(t, 5, 5)
	x := make([]float64, 25)
	for i := range x {
		x[i] = float64(i % 7)
	}
	one, err := MoransI(x, w, false)
	require.NoError(t, err)
	two, err := MoransI(x, w, true)
	require.NoError(t, err)
	assert.InDelta(t, math.Min(2*one.PValue, 1), two.PValue, 1e-15)
}

func TestAutocorr_Degenerate(t *testing.T) {
	_, w := rookWeights(t, 4, 4)
	constant := make([]float64, 16)
	for i := range constant {
		constant[i] = 3
	}
	_, err := MoransI(constant, w, true)
	assert.ErrorIs(t, err, ErrDegenerateInput)
	_, err = GearysC(constant, w)
	assert.ErrorIs(t, err, ErrDegenerateInput)

	single, err := SpatialWeights([][]int{{0}}, nil)
	require.NoError(t, err)
	_, err = MoransI([]float64{1}, single, true)
	assert.ErrorIs(t, err, ErrDegenerateInput)

	empty, err := SpatialWeights([][]int{{}, {}}, nil)
	require.NoError(t, err)
	_, err = MoransI([]float64{1, 2}, empty, true)
	assert.ErrorIs(t, err, ErrDegenerateInput)

	_, err = MoransI([]float64{1, 2}, w, true)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestSpatialAutocorr_Batch(t *testing.T) {
	nb, w := rookWeights(t, 8, 8)
	rows := make([][]float64, 5)
	for g := range rows {
		rows[g] = make([]float64, 64)
		for i := range rows[g] {
			rows[g][i] = math.Sin(float64(i*(g+1)) * 0.37)
		}
	}
	rows[2] = make([]float64, 64) // constant

	for _, workers := range []int{1, 4} {
		cfg := DefaultConfig()
		cfg.Workers = workers
		results, err := SpatialAutocorr(rows, nb, nil, MoranI{TwoTailed: true}, cfg)
		require.NoError(t, err)
		require.Len(t, results, len(rows))
		for g, r := range results {
			if g == 2 {
				assert.ErrorIs(t, r.Err, ErrDegenerateInput)
				continue
			}
			require.NoError(t, r.Err)
			want, err := MoransI(rows[g], w, true)
			require.NoError(t, err)
			assert.Equal(t, want.Value, r.Value)
			assert.Equal(t, want.PValue, r.PValue)
		}
	}
}

func TestSpatialAutocorr_Methods(t *testing.T) {
	m, err := ParseAutocorrMethod("geary_c")
	require.NoError(t, err)
	assert.Equal(t, GearyC{}, m)

	m, err = ParseAutocorrMethod("moran_i")
	require.NoError(t, err)
	assert.Equal(t, MoranI{TwoTailed: true}, m)

	_, err = ParseAutocorrMethod("getis")
	require.ErrorIs(t, err, ErrInvalidMethod)
	assert.Contains(t, err.Error(), "getis not found, available options are moran_i, geary_c")

	_, err = SpatialAutocorr(nil, squareNeighbors, nil, nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidMethod)

	_, err = SpatialAutocorr(nil, [][]int{{0, 9}}, nil, GearyC{}, DefaultConfig())
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
