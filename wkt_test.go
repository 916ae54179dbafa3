package spatialstat

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointToWKT_Format(t *testing.T) {
	s, err := PointToWKT([]float64{1.5, -2})
	require.NoError(t, err)
	assert.Equal(t, "POINT(1.5 -2)", s)

	_, err = PointToWKT([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrUnsupportedDimension)
}

func TestPointWKT_RoundTripExact(t *testing.T) {
	for _, p := range [][]float64{
		{0, 0},
		{0.1, 0.2},
		{math.Pi, -math.E},
		{1e-300, 1e300},
		{123456.789012345, -0.000001},
	} {
		s, err := PointToWKT(p)
		require.NoError(t, err)
		got, err := PointFromWKT(s)
		require.NoError(t, err)
		assert.Equal(t, p, got, "round trip of %s", s)
	}
}

func TestPolygonWKT_RoundTripExact(t *testing.T) {
	poly := [][]float64{{0, 0}, {0.1, 0.3}, {1.7, 1.1}, {1, 0}}
	s, err := PolygonToWKT(poly)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s, "POLYGON(("), s)
	assert.True(t, strings.HasSuffix(s, "0 0))"), "closing vertex missing: %s", s)

	got, err := PolygonFromWKT(s)
	require.NoError(t, err)
	assert.Equal(t, poly, got)
}

func TestPolygonFromWKT_Errors(t *testing.T) {
	_, err := PolygonFromWKT("POINT(1 2)")
	assert.Error(t, err)

	_, err = PolygonToWKT(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestWKT_SliceVariants(t *testing.T) {
	points := randomPoints(20, 2, 50, 4)
	strs, err := PointsToWKT(points)
	require.NoError(t, err)
	back, err := PointsFromWKT(strs)
	require.NoError(t, err)
	assert.Equal(t, points, back)

	polys := [][][]float64{unitSquare, {{0, 0}, {2, 0}, {1, 3}}}
	pstrs, err := PolygonsToWKT(polys)
	require.NoError(t, err)
	pback, err := PolygonsFromWKT(pstrs)
	require.NoError(t, err)
	assert.Equal(t, polys, pback)

	_, err = PointsFromWKT([]string{"POINT(1 2)", "garbage"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 1")
}
