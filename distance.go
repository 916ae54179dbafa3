package spatialstat

import (
	"fmt"
	"math"
)

// squaredEuclidean returns the squared Euclidean distance (the reduced
// distance used for tree pruning, skipping sqrt).
func squaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// euclidean computes the Euclidean (L2) distance.
func euclidean(a, b []float64) float64 {
	return math.Sqrt(squaredEuclidean(a, b))
}

// pointDims returns the shared dimensionality of points. Every point must
// have 2 or 3 coordinates and all must agree. An empty collection reports
// (0, nil) so callers can decide whether empty input is acceptable.
func pointDims(points [][]float64) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	dims := len(points[0])
	if dims != 2 && dims != 3 {
		return 0, fmt.Errorf("%w: point 0 has %d coordinates, want 2 or 3", ErrUnsupportedDimension, dims)
	}
	for i, p := range points {
		if len(p) != dims {
			return 0, fmt.Errorf("%w: point %d has %d coordinates, collection is %dD",
				ErrUnsupportedDimension, i, len(p), dims)
		}
	}
	return dims, nil
}

// flatten copies points into a flat row-major array.
func flatten(points [][]float64, dims int) []float64 {
	flat := make([]float64, len(points)*dims)
	for i, p := range points {
		copy(flat[i*dims:], p)
	}
	return flat
}

// pairwiseDistances computes the condensed upper-triangle distance vector
// for points (pair (i, j), i < j, in row-major order), skipping self pairs.
func pairwiseDistances(points [][]float64) []float64 {
	n := len(points)
	if n < 2 {
		return nil
	}
	result := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			result = append(result, euclidean(points[i], points[j]))
		}
	}
	return result
}
