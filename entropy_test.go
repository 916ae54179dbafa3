package spatialstat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridTypes labels a 10x10 lattice: stripes alternate by column, halves
// split it into a left and a right block.
func gridTypes(layout string) []string {
	types := make([]string, 100)
	for i := range types {
		x := i % 10
		switch layout {
		case "stripes":
			types[i] = []string{"a", "b"}[x%2]
		case "halves":
			if x < 5 {
				types[i] = "a"
			} else {
				types[i] = "b"
			}
		}
	}
	return types
}

func TestLeibovici_HandComputed(t *testing.T) {
	points := gridPoints(10, 10)
	results, err := SpatialEntropy(
		[][][]float64{points, points},
		[][]string{gridTypes("stripes"), gridTypes("halves")},
		Leibovici{Distance: 1},
		DefaultConfig(),
	)
	require.NoError(t, err)

	// Stripes: 90 a-b pairs, 45 a-a, 45 b-b.
	assert.InDelta(t, 1.5, results[0].Value, 1e-12)

	// Halves: 10 a-b pairs, 85 a-a, 85 b-b.
	p := []float64{10.0 / 180, 85.0 / 180, 85.0 / 180}
	var want float64
	for _, v := range p {
		want -= v * math.Log2(v)
	}
	assert.InDelta(t, want, results[1].Value, 1e-12)
	assert.Greater(t, results[0].Value, results[1].Value)
}

func TestLeibovici_DefaultDistance(t *testing.T) {
	// The region's box is 90x90, so pairs closer than 9 count.
	points := [][]float64{{0, 0}, {5, 0}, {90, 90}, {85, 90}}
	results, err := SpatialEntropy([][][]float64{points}, [][]string{{"a", "b", "a", "a"}}, Leibovici{}, DefaultConfig())
	require.NoError(t, err)
	// One a-b pair and one a-a pair.
	assert.InDelta(t, 1.0, results[0].Value, 1e-12)
}

func TestAltieri_MixingOrdersResidual(t *testing.T) {
	points := gridPoints(10, 10)
	results, err := SpatialEntropy(
		[][][]float64{points, points},
		[][]string{gridTypes("stripes"), gridTypes("halves")},
		Altieri{},
		DefaultConfig(),
	)
	require.NoError(t, err)
	stripes, halves := results[0], results[1]
	assert.Greater(t, stripes.Value, halves.Value)
	assert.Greater(t, halves.MutualInfo, stripes.MutualInfo)
}

func TestAltieri_Decomposition(t *testing.T) {
	points := randomPoints(60, 3, 10, 8)
	types := make([]string, len(points))
	for i := range types {
		types[i] = []string{"x", "y", "z"}[i%3]
	}
	for _, cut := range []int{1, 3, 7} {
		results, err := SpatialEntropy([][][]float64{points}, [][]string{types}, Altieri{Cut: cut}, DefaultConfig())
		require.NoError(t, err)
		r := results[0]
		require.NoError(t, r.Err)

		// Residual plus mutual information equals the global pair entropy.
		counts := pairCounter{}
		for i := range types {
			for j := i + 1; j < len(types); j++ {
				counts[makeTypePair(types[i], types[j])]++
			}
		}
		var global float64
		for _, p := range counts.distribution(counts.keys()) {
			global -= p * math.Log2(p)
		}
		assert.InDelta(t, global, r.Value+r.MutualInfo, 1e-9, "cut=%d", cut)
		assert.GreaterOrEqual(t, r.MutualInfo, -1e-12)
		assert.LessOrEqual(t, r.Value, math.Log2(float64(len(counts)))+1e-12)
		if cut == 1 {
			assert.InDelta(t, 0, r.MutualInfo, 1e-12)
		}
	}
}

func TestSpatialEntropy_SmallRegions(t *testing.T) {
	results, err := SpatialEntropy(
		[][][]float64{nil, {{1, 1}}},
		[][]string{nil, {"a"}},
		Altieri{},
		DefaultConfig(),
	)
	require.NoError(t, err)
	for _, r := range results {
		require.NoError(t, r.Err)
		assert.Zero(t, r.Value)
	}
}

func TestSpatialEntropy_Validation(t *testing.T) {
	points := [][][]float64{unitSquare}
	_, err := SpatialEntropy(points, [][]string{{"a", "b"}}, Leibovici{}, DefaultConfig())
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = SpatialEntropy(points, nil, Leibovici{}, DefaultConfig())
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = SpatialEntropy(points, [][]string{{"a", "b", "a", "b"}}, nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidMethod)

	_, err = SpatialEntropy(points, [][]string{{"a", "b", "a", "b"}}, Altieri{Cut: -1}, DefaultConfig())
	assert.Error(t, err)

	_, err = ParseEntropyMethod("shannon")
	require.ErrorIs(t, err, ErrInvalidMethod)
	assert.Contains(t, err.Error(), "available options are leibovici, altieri")
}
