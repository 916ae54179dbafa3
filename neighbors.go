package spatialstat

import (
	"fmt"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
)

// Neighbor lists
//
// Every builder returns a [][]int with one row per input point (or box), in
// input order. Row i holds the labels of i's neighbors, sorted ascending,
// and always includes i's own label: downstream statistics (row
// normalization, autocorrelation, composition counts) rely on this
// self-adjacency. When labels is nil, positions 0..N-1 are used as labels.

// NeighborMethod selects how point neighbors are found. The concrete
// variants are [KDTreeSearch] and [DelaunaySearch].
type NeighborMethod interface {
	neighborMethod() string
}

// KDTreeSearch finds neighbors with a KD-tree. With only Radius set, all
// points within Radius are returned; with only K set, the K nearest points
// (self included, so K-1 others); with both, at most K nearest points within
// Radius. Non-positive values mean "unset". If neither is set, K = 5.
type KDTreeSearch struct {
	Radius float64
	K      int
}

// DelaunaySearch connects points that share a Delaunay triangle edge.
// 2D only.
type DelaunaySearch struct{}

func (KDTreeSearch) neighborMethod() string   { return "kdtree" }
func (DelaunaySearch) neighborMethod() string { return "delaunay" }

// neighborMethodNames lists the accepted selector names.
var neighborMethodNames = []string{"kdtree", "delaunay"}

// ParseNeighborMethod maps a selector name to its method with default
// parameters.
func ParseNeighborMethod(name string) (NeighborMethod, error) {
	switch name {
	case "kdtree":
		return KDTreeSearch{}, nil
	case "delaunay":
		return DelaunaySearch{}, nil
	}
	return nil, optionsError(name, neighborMethodNames)
}

// defaultK is the neighbor count used when neither radius nor k is given.
const defaultK = 5

// PointsNeighbors builds the neighbor list of points with the given method.
// Empty input yields an empty list.
func PointsNeighbors(points [][]float64, labels []int, method NeighborMethod) ([][]int, error) {
	if err := checkNeighborMethod(method); err != nil {
		return nil, err
	}
	switch m := method.(type) {
	case KDTreeSearch:
		return KDTreeNeighbors(points, labels, m)
	default:
		return DelaunayNeighbors(points, labels)
	}
}

func checkNeighborMethod(method NeighborMethod) error {
	switch method.(type) {
	case KDTreeSearch, DelaunaySearch:
		return nil
	case nil:
		return optionsError("<nil>", neighborMethodNames)
	default:
		return optionsError(method.neighborMethod(), neighborMethodNames)
	}
}

// KDTreeNeighbors finds neighbors by radius and/or k-nearest search in 2D or 3D.
func KDTreeNeighbors(points [][]float64, labels []int, search KDTreeSearch) ([][]int, error) {
	dims, err := pointDims(points)
	if err != nil {
		return nil, err
	}
	labels, err = resolveLabels(labels, len(points))
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return [][]int{}, nil
	}

	r, k := search.Radius, search.K
	if r <= 0 && k <= 0 {
		k = defaultK
	}

	tree := newKDTreeFlat(flatten(points, dims), len(points), dims, defaultLeafSize)
	out := make([][]int, len(points))
	for i, p := range points {
		var idx []int
		switch {
		case r > 0 && k > 0:
			idx, _ = tree.QueryKNNWithin(p, r, k)
			idx = keepSelf(idx, i, k)
		case r > 0:
			idx = tree.QueryRadius(p, r)
		default:
			idx, _ = tree.QueryKNN(p, k)
			idx = keepSelf(idx, i, k)
		}
		out[i] = withSelf(idx, i, labels)
	}
	return out, nil
}

// keepSelf makes room for self in a full k-nearest result. Coincident points
// tie with self at distance zero and can push it out of the k slots.
func keepSelf(idx []int, self, k int) []int {
	for _, j := range idx {
		if j == self {
			return idx
		}
	}
	if len(idx) >= k {
		idx = idx[:k-1]
	}
	return idx
}

// BBoxSearch controls how boxes are enlarged before the overlap test.
// Expand > 0 adds an absolute buffer on every side; otherwise each box is
// scaled about its center by Scale (0 means the default, 1.3).
type BBoxSearch struct {
	Expand float64
	Scale  float64
}

// DefaultBBoxSearch returns the default search: no buffer, scale 1.3.
func DefaultBBoxSearch() BBoxSearch {
	return BBoxSearch{Expand: -1, Scale: 1.3}
}

// BBoxNeighbors finds, for every 2D box, the boxes whose extent overlaps its
// enlarged extent, using an R-tree. A box is always its own neighbor.
func BBoxNeighbors(boxes []BoundingBox, labels []int, search BBoxSearch) ([][]int, error) {
	labels, err := resolveLabels(labels, len(boxes))
	if err != nil {
		return nil, err
	}
	for i, b := range boxes {
		if err := b.validate(); err != nil {
			return nil, fmt.Errorf("box %d: %w", i, err)
		}
		if b.Dims() != 2 {
			return nil, fmt.Errorf("%w: box %d is %dD, R-tree search is 2D", ErrUnsupportedDimension, i, b.Dims())
		}
	}
	if len(boxes) == 0 {
		return [][]int{}, nil
	}

	tree := rtreego.NewTree(2, 25, 50)
	for i, b := range boxes {
		tree.Insert(&boxEntry{index: i, rect: boxRect(b.Min[0], b.Min[1], b.Max[0], b.Max[1])})
	}

	out := make([][]int, len(boxes))
	for i, b := range boxes {
		minx, miny, maxx, maxy := enlargeBox(b, search)
		hits := tree.SearchIntersect(boxRect(minx, miny, maxx, maxy))
		idx := make([]int, 0, len(hits)+1)
		for _, h := range hits {
			idx = append(idx, h.(*boxEntry).index)
		}
		out[i] = withSelf(idx, i, labels)
	}
	return out, nil
}

// boxEntry is a box stored in the R-tree.
type boxEntry struct {
	index int
	rect  rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *boxEntry) Bounds() rtreego.Rect { return e.rect }

// boxRect builds an R-tree rectangle, padding zero-length sides so
// degenerate boxes (points, segments) can still be indexed.
func boxRect(minx, miny, maxx, maxy float64) rtreego.Rect {
	if minx > maxx {
		minx, maxx = maxx, minx
	}
	if miny > maxy {
		miny, maxy = maxy, miny
	}
	w := padLength(minx, maxx)
	h := padLength(miny, maxy)
	rect, err := rtreego.NewRect(rtreego.Point{minx, miny}, []float64{w, h})
	if err != nil {
		// Lengths are strictly positive by construction.
		panic(fmt.Sprintf("spatialstat: invalid R-tree rect: %v", err))
	}
	return rect
}

func padLength(lo, hi float64) float64 {
	if l := hi - lo; l > 0 {
		return l
	}
	return 1e-9 * math.Max(1, math.Abs(lo))
}

func enlargeBox(b BoundingBox, search BBoxSearch) (minx, miny, maxx, maxy float64) {
	minx, miny, maxx, maxy = b.Min[0], b.Min[1], b.Max[0], b.Max[1]
	if search.Expand > 0 {
		e := search.Expand
		return minx - e, miny - e, maxx + e, maxy + e
	}
	scale := search.Scale
	if scale <= 0 {
		scale = 1.3
	}
	dx := (maxx - minx) * (scale - 1) / 2
	dy := (maxy - miny) * (scale - 1) / 2
	return minx - dx, miny - dy, maxx + dx, maxy + dy
}

// NeighborResult is one region's outcome in a batched neighbor search.
type NeighborResult struct {
	Neighbors [][]int
	Err       error
}

// PointsNeighborsBatch builds neighbor lists for independent regions in
// parallel. labels may be nil (positional labels for every region) or hold
// one label slice per region. A failing region reports its error in its own
// result slot without affecting the others.
func PointsNeighborsBatch(collections [][][]float64, labels [][]int, method NeighborMethod, cfg Config) ([]NeighborResult, error) {
	if err := prepareConfig(&cfg); err != nil {
		return nil, err
	}
	if labels != nil && len(labels) != len(collections) {
		return nil, shapeError("label collections", len(labels), len(collections))
	}
	if err := checkNeighborMethod(method); err != nil {
		return nil, err
	}
	return parallelMap(len(collections), cfg.Workers, func(i int) NeighborResult {
		nb, err := PointsNeighbors(collections[i], labelsAt(labels, i), method)
		return NeighborResult{Neighbors: nb, Err: err}
	}), nil
}

// BBoxNeighborsBatch runs [BBoxNeighbors] over independent regions in parallel.
func BBoxNeighborsBatch(collections [][]BoundingBox, labels [][]int, search BBoxSearch, cfg Config) ([]NeighborResult, error) {
	if err := prepareConfig(&cfg); err != nil {
		return nil, err
	}
	if labels != nil && len(labels) != len(collections) {
		return nil, shapeError("label collections", len(labels), len(collections))
	}
	return parallelMap(len(collections), cfg.Workers, func(i int) NeighborResult {
		nb, err := BBoxNeighbors(collections[i], labelsAt(labels, i), search)
		return NeighborResult{Neighbors: nb, Err: err}
	}), nil
}

func labelsAt(labels [][]int, i int) []int {
	if labels == nil {
		return nil
	}
	return labels[i]
}

// resolveLabels returns positional labels when labels is nil, and checks
// length and uniqueness otherwise.
func resolveLabels(labels []int, n int) ([]int, error) {
	if labels == nil {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	if len(labels) != n {
		return nil, shapeError("labels", len(labels), n)
	}
	seen := make(map[int]struct{}, n)
	for _, l := range labels {
		if _, dup := seen[l]; dup {
			return nil, fmt.Errorf("%w: duplicate label %d", ErrShapeMismatch, l)
		}
		seen[l] = struct{}{}
	}
	return labels, nil
}

// labelIndex maps each label to its position.
func labelIndex(labels []int) map[int]int {
	m := make(map[int]int, len(labels))
	for i, l := range labels {
		m[l] = i
	}
	return m
}

// withSelf converts neighbor positions to a sorted, de-duplicated label row
// that includes self.
func withSelf(idx []int, self int, labels []int) []int {
	seen := make(map[int]struct{}, len(idx)+1)
	row := make([]int, 0, len(idx)+1)
	for _, j := range append(idx, self) {
		if _, ok := seen[j]; ok {
			continue
		}
		seen[j] = struct{}{}
		row = append(row, labels[j])
	}
	sort.Ints(row)
	return row
}
