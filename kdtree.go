package spatialstat

import (
	"container/heap"
	"math"
	"sort"
)

// KDTree is a KD-tree spatial index for Euclidean radius and nearest-neighbor
// queries in 2D or 3D. Points are stored in a flat row-major array and
// reordered internally via an index permutation array.
//
// The tree is stored as a complete binary tree in array form:
//   - node i has children at 2*i+1 and 2*i+2
//   - node bounds are stored as min/max per dimension per node
//
// All distances handled internally are squared (reduced) distances.
type KDTree struct {
	data     []float64 // flat row-major point data (n * dims)
	n        int       // number of points
	dims     int       // dimensionality
	leafSize int
	idxArray []int      // permutation: tree-order position → original index
	nodes    []kdNode   // one entry per tree node
	// boundsMin[node*dims + j] = min value of coordinate j in node
	boundsMin []float64
	// boundsMax[node*dims + j] = max value of coordinate j in node
	boundsMax []float64
}

type kdNode struct {
	start, end int
	isLeaf     bool
	used       bool
}

// defaultLeafSize is the leaf capacity used by the neighbor builders.
const defaultLeafSize = 16

// NewKDTree builds a KD-tree over points (all of the same dimensionality).
// leafSize controls the max points per leaf node.
func NewKDTree(points [][]float64, leafSize int) *KDTree {
	dims := 0
	if len(points) > 0 {
		dims = len(points[0])
	}
	return newKDTreeFlat(flatten(points, dims), len(points), dims, leafSize)
}

func newKDTreeFlat(data []float64, n, dims, leafSize int) *KDTree {
	if leafSize < 1 {
		leafSize = 1
	}

	idxArray := make([]int, n)
	for i := range idxArray {
		idxArray[i] = i
	}

	maxNodes := kdMaxNodes(n, leafSize)

	t := &KDTree{
		data:      data,
		n:         n,
		dims:      dims,
		leafSize:  leafSize,
		idxArray:  idxArray,
		nodes:     make([]kdNode, maxNodes),
		boundsMin: make([]float64, maxNodes*dims),
		boundsMax: make([]float64, maxNodes*dims),
	}

	if n > 0 {
		t.buildNode(0, 0, n)
	}

	return t
}

// kdMaxNodes returns an upper bound on the number of nodes needed for a
// binary tree with n points and the given leaf size.
func kdMaxNodes(n, leafSize int) int {
	if n == 0 {
		return 1
	}
	leaves := (n + leafSize - 1) / leafSize
	depth := 0
	v := 1
	for v < leaves {
		v *= 2
		depth++
	}
	return (1 << (depth + 1)) - 1 + 2
}

// buildNode recursively builds the tree for points in idxArray[start:end].
func (t *KDTree) buildNode(nodeID, start, end int) {
	for nodeID >= len(t.nodes) {
		t.nodes = append(t.nodes, kdNode{})
		t.boundsMin = append(t.boundsMin, make([]float64, t.dims)...)
		t.boundsMax = append(t.boundsMax, make([]float64, t.dims)...)
	}

	t.computeNodeBounds(nodeID, start, end)

	count := end - start
	if count <= t.leafSize {
		t.nodes[nodeID] = kdNode{start: start, end: end, isLeaf: true, used: true}
		return
	}

	// Split on the dimension with the greatest spread, at the median.
	splitDim := 0
	maxSpread := -1.0
	for d := 0; d < t.dims; d++ {
		spread := t.boundsMax[nodeID*t.dims+d] - t.boundsMin[nodeID*t.dims+d]
		if spread > maxSpread {
			maxSpread = spread
			splitDim = d
		}
	}

	t.sortByDimension(start, end, splitDim)
	mid := start + count/2

	t.nodes[nodeID] = kdNode{start: start, end: end, used: true}

	t.buildNode(2*nodeID+1, start, mid)
	t.buildNode(2*nodeID+2, mid, end)
}

func (t *KDTree) computeNodeBounds(nodeID, start, end int) {
	base := nodeID * t.dims
	for d := 0; d < t.dims; d++ {
		t.boundsMin[base+d] = math.Inf(1)
		t.boundsMax[base+d] = math.Inf(-1)
	}
	for i := start; i < end; i++ {
		ptIdx := t.idxArray[i]
		for d := 0; d < t.dims; d++ {
			v := t.data[ptIdx*t.dims+d]
			if v < t.boundsMin[base+d] {
				t.boundsMin[base+d] = v
			}
			if v > t.boundsMax[base+d] {
				t.boundsMax[base+d] = v
			}
		}
	}
}

// sortByDimension sorts idxArray[start:end] by the given dimension, breaking
// ties by original index so the layout is deterministic.
func (t *KDTree) sortByDimension(start, end, dim int) {
	sub := t.idxArray[start:end]
	dims := t.dims
	data := t.data
	sort.Slice(sub, func(i, j int) bool {
		a, b := data[sub[i]*dims+dim], data[sub[j]*dims+dim]
		if a != b {
			return a < b
		}
		return sub[i] < sub[j]
	})
}

// NumPoints returns the number of points in the tree.
func (t *KDTree) NumPoints() int { return t.n }

// Dims returns the dimensionality of each point.
func (t *KDTree) Dims() int { return t.dims }

func (t *KDTree) point(idx int) []float64 {
	return t.data[idx*t.dims : (idx+1)*t.dims]
}

func (t *KDTree) valid(nodeID int) bool {
	return nodeID < len(t.nodes) && t.nodes[nodeID].used
}

// minRdist returns a lower bound on the squared distance between query and
// any point in the node.
func (t *KDTree) minRdist(nodeID int, query []float64) float64 {
	if !t.valid(nodeID) {
		return math.Inf(1)
	}
	base := nodeID * t.dims
	var rdist float64
	for j := 0; j < t.dims; j++ {
		lo := t.boundsMin[base+j]
		hi := t.boundsMax[base+j]
		var d float64
		if query[j] < lo {
			d = lo - query[j]
		} else if query[j] > hi {
			d = query[j] - hi
		}
		rdist += d * d
	}
	return rdist
}

// QueryKNN returns the k nearest points to query, sorted by ascending
// distance (ties by ascending index), along with their Euclidean distances.
// A point in the tree at the query location is its own nearest neighbor.
func (t *KDTree) QueryKNN(query []float64, k int) ([]int, []float64) {
	return t.queryKNN(query, k, math.Inf(1))
}

// QueryKNNWithin returns at most k nearest points whose distance to query is
// <= r, sorted by ascending distance.
func (t *KDTree) QueryKNNWithin(query []float64, r float64, k int) ([]int, []float64) {
	return t.queryKNN(query, k, r*r)
}

func (t *KDTree) queryKNN(query []float64, k int, maxRdist float64) ([]int, []float64) {
	if k <= 0 || t.n == 0 {
		return nil, nil
	}
	h := &knnHeap{}
	heap.Init(h)
	t.knnSearch(0, query, k, maxRdist, h)

	nResults := h.Len()
	idx := make([]int, nResults)
	dist := make([]float64, nResults)
	for i := nResults - 1; i >= 0; i-- {
		item := heap.Pop(h).(knnItem)
		idx[i] = item.index
		dist[i] = math.Sqrt(item.rdist)
	}
	return idx, dist
}

// knnSearch performs a single-tree KNN traversal using a max-heap of size k.
// Only points with rdist <= maxRdist are admitted.
func (t *KDTree) knnSearch(nodeID int, query []float64, k int, maxRdist float64, h *knnHeap) {
	if !t.valid(nodeID) {
		return
	}
	node := t.nodes[nodeID]

	if node.isLeaf {
		for i := node.start; i < node.end; i++ {
			ptIdx := t.idxArray[i]
			d := squaredEuclidean(query, t.point(ptIdx))
			if d > maxRdist {
				continue
			}
			item := knnItem{index: ptIdx, rdist: d}
			if h.Len() < k {
				heap.Push(h, item)
			} else if item.closerThan((*h)[0]) {
				(*h)[0] = item
				heap.Fix(h, 0)
			}
		}
		return
	}

	left := 2*nodeID + 1
	right := 2*nodeID + 2

	leftRdist := t.minRdist(left, query)
	rightRdist := t.minRdist(right, query)

	nearChild, farChild := left, right
	nearRdist, farRdist := leftRdist, rightRdist
	if rightRdist < leftRdist {
		nearChild, farChild = right, left
		nearRdist, farRdist = rightRdist, leftRdist
	}

	if nearRdist <= maxRdist {
		t.knnSearch(nearChild, query, k, maxRdist, h)
	}

	// Prune the far child if its lower bound exceeds the current k-th
	// distance; ties are still visited so equal-distance lower indices win.
	if farRdist <= maxRdist && (h.Len() < k || farRdist <= (*h)[0].rdist) {
		t.knnSearch(farChild, query, k, maxRdist, h)
	}
}

// QueryRadius returns the indices of all points within distance r of query
// (inclusive), in ascending index order.
func (t *KDTree) QueryRadius(query []float64, r float64) []int {
	if t.n == 0 || r < 0 {
		return nil
	}
	var out []int
	t.radiusSearch(0, query, r*r, func(idx int) { out = append(out, idx) })
	sort.Ints(out)
	return out
}

// CountWithin returns the number of points within distance r of query.
func (t *KDTree) CountWithin(query []float64, r float64) int {
	if t.n == 0 || r < 0 {
		return 0
	}
	count := 0
	t.radiusSearch(0, query, r*r, func(int) { count++ })
	return count
}

func (t *KDTree) radiusSearch(nodeID int, query []float64, rdist float64, visit func(int)) {
	if !t.valid(nodeID) || t.minRdist(nodeID, query) > rdist {
		return
	}
	node := t.nodes[nodeID]
	if node.isLeaf {
		for i := node.start; i < node.end; i++ {
			ptIdx := t.idxArray[i]
			if squaredEuclidean(query, t.point(ptIdx)) <= rdist {
				visit(ptIdx)
			}
		}
		return
	}
	t.radiusSearch(2*nodeID+1, query, rdist, visit)
	t.radiusSearch(2*nodeID+2, query, rdist, visit)
}

// --- max-heap for KNN queries ---

type knnItem struct {
	index int
	rdist float64
}

// closerThan orders by distance, then by index.
func (a knnItem) closerThan(b knnItem) bool {
	if a.rdist != b.rdist {
		return a.rdist < b.rdist
	}
	return a.index < b.index
}

// knnHeap is a max-heap of knnItem (farthest on top) used as a bounded
// priority queue for KNN queries.
type knnHeap []knnItem

func (h knnHeap) Len() int            { return len(h) }
func (h knnHeap) Less(i, j int) bool  { return h[j].closerThan(h[i]) }
func (h knnHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *knnHeap) Push(x interface{}) { *h = append(*h, x.(knnItem)) }
func (h *knnHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
