package spatialstat

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const floatTol = 1e-10

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// unitSquare is the corner set (0,0),(0,1),(1,1),(1,0) used across tests.
var unitSquare = [][]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}}

// randomPoints returns n uniform points in [0, scale)^dims.
func randomPoints(n, dims int, scale float64, seed uint64) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, 1))
	out := make([][]float64, n)
	for i := range out {
		p := make([]float64, dims)
		for d := range p {
			p[d] = rng.Float64() * scale
		}
		out[i] = p
	}
	return out
}

func TestEuclidean_HandComputed(t *testing.T) {
	// sqrt(9+16+0) = 5
	assert.InDelta(t, 5.0, euclidean([]float64{1, 2, 3}, []float64{4, 6, 3}), floatTol)
	assert.Equal(t, 25.0, squaredEuclidean([]float64{1, 2, 3}, []float64{4, 6, 3}))
	assert.Zero(t, euclidean([]float64{1, 2}, []float64{1, 2}))
}

func TestPointDims(t *testing.T) {
	d, err := pointDims(nil)
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = pointDims([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, 3, d)

	_, err = pointDims([][]float64{{1}})
	assert.ErrorIs(t, err, ErrUnsupportedDimension)

	_, err = pointDims([][]float64{{1, 2}, {1, 2, 3}})
	assert.ErrorIs(t, err, ErrUnsupportedDimension)
}

func TestPairwiseDistances_Condensed(t *testing.T) {
	pts := [][]float64{{1, 0}, {3, 0}, {1, 2}}
	got := pairwiseDistances(pts)
	want := []float64{2, 2, math.Sqrt(8)}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], floatTol)
	}
	assert.Nil(t, pairwiseDistances(pts[:1]))
}
