package spatialstat

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Construction tests ---

func TestKDTree_Construction_BasicProperties(t *testing.T) {
	points := [][]float64{{0, 0}, {1, 0}, {2, 0}, {0, 3}, {1, 3}, {2, 3}}
	tree := NewKDTree(points, 2)

	assert.Equal(t, 6, tree.NumPoints())
	assert.Equal(t, 2, tree.Dims())

	// idxArray must be a permutation of 0..n-1.
	seen := make(map[int]bool)
	for _, v := range tree.idxArray {
		require.True(t, v >= 0 && v < 6, "out-of-range index %d", v)
		require.False(t, seen[v], "duplicate index %d", v)
		seen[v] = true
	}
}

func TestKDTree_Construction_LeafSize1(t *testing.T) {
	tree := NewKDTree([][]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}}, 1)
	for _, nd := range tree.nodes {
		if nd.used && nd.isLeaf {
			assert.Equal(t, 1, nd.end-nd.start)
		}
	}
}

func TestKDTree_Construction_Empty(t *testing.T) {
	tree := NewKDTree(nil, 16)
	assert.Zero(t, tree.NumPoints())
	idx, dist := tree.QueryKNN([]float64{0, 0}, 3)
	assert.Empty(t, idx)
	assert.Empty(t, dist)
	assert.Empty(t, tree.QueryRadius([]float64{0, 0}, 1))
}

// --- KNN query tests ---

func TestKDTree_KNN_BruteForceMatch(t *testing.T) {
	for _, dims := range []int{2, 3} {
		points := randomPoints(200, dims, 10, uint64(dims))
		tree := NewKDTree(points, 4)
		for _, k := range []int{1, 2, 5, 17} {
			for q := 0; q < len(points); q += 7 {
				idx, dist := tree.QueryKNN(points[q], k)
				wantIdx, wantDist := bruteForceKNN(points, points[q], k)
				require.Equal(t, wantIdx, idx, "dims=%d k=%d query=%d", dims, k, q)
				for i := range wantDist {
					assert.InDelta(t, wantDist[i], dist[i], floatTol)
				}
			}
		}
	}
}

func TestKDTree_KNN_SelfFirst(t *testing.T) {
	tree := NewKDTree(unitSquare, 1)
	for i, p := range unitSquare {
		idx, dist := tree.QueryKNN(p, 1)
		assert.Equal(t, []int{i}, idx)
		assert.Equal(t, []float64{0}, dist)
	}
}

func TestKDTree_KNN_KLargerThanN(t *testing.T) {
	tree := NewKDTree(unitSquare, 2)
	idx, _ := tree.QueryKNN([]float64{0, 0}, 10)
	assert.Len(t, idx, 4)
}

func TestKDTree_KNNWithin_RespectsRadius(t *testing.T) {
	points := randomPoints(150, 2, 10, 7)
	tree := NewKDTree(points, 8)
	for q := 0; q < len(points); q += 5 {
		idx, dist := tree.QueryKNNWithin(points[q], 1.5, 4)
		assert.LessOrEqual(t, len(idx), 4)
		for _, d := range dist {
			assert.LessOrEqual(t, d, 1.5)
		}
		// Must be a prefix of the unrestricted KNN result.
		full, _ := tree.QueryKNN(points[q], 4)
		assert.Equal(t, full[:len(idx)], idx)
	}
}

// --- Radius query tests ---

func TestKDTree_Radius_BruteForceMatch(t *testing.T) {
	for _, dims := range []int{2, 3} {
		points := randomPoints(300, dims, 10, uint64(10+dims))
		tree := NewKDTree(points, 8)
		for _, r := range []float64{0.5, 1, 2.5} {
			for q := 0; q < len(points); q += 11 {
				want := bruteForceRadius(points, points[q], r)
				assert.Equal(t, want, tree.QueryRadius(points[q], r), "dims=%d r=%v q=%d", dims, r, q)
				assert.Equal(t, len(want), tree.CountWithin(points[q], r))
			}
		}
	}
}

func TestKDTree_Radius_Inclusive(t *testing.T) {
	tree := NewKDTree(unitSquare, 1)
	assert.Equal(t, []int{0, 1, 3}, tree.QueryRadius([]float64{0, 0}, 1.0))
}

// --- helpers ---

func bruteForceKNN(points [][]float64, query []float64, k int) ([]int, []float64) {
	type distIdx struct {
		rdist float64
		index int
	}
	all := make([]distIdx, len(points))
	for i, p := range points {
		all[i] = distIdx{rdist: squaredEuclidean(query, p), index: i}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].rdist == all[j].rdist {
			return all[i].index < all[j].index
		}
		return all[i].rdist < all[j].rdist
	})
	if k > len(points) {
		k = len(points)
	}
	idx := make([]int, k)
	dists := make([]float64, k)
	for i := 0; i < k; i++ {
		idx[i] = all[i].index
		dists[i] = euclidean(query, points[all[i].index])
	}
	return idx, dists
}

func bruteForceRadius(points [][]float64, query []float64, r float64) []int {
	var out []int
	for i, p := range points {
		if squaredEuclidean(query, p) <= r*r {
			out = append(out, i)
		}
	}
	return out
}
