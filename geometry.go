package spatialstat

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// BoundingBox is an axis-aligned box in 2D or 3D. Min and Max have the same
// length (the dimensionality). Callers may pass degenerate boxes; side
// lengths are taken as absolute differences.
type BoundingBox struct {
	Min, Max []float64
}

// BBox2D builds a 2D box from (minx, miny, maxx, maxy).
func BBox2D(minx, miny, maxx, maxy float64) BoundingBox {
	return BoundingBox{Min: []float64{minx, miny}, Max: []float64{maxx, maxy}}
}

// BBox3D builds a 3D box from (minx, miny, minz, maxx, maxy, maxz).
func BBox3D(minx, miny, minz, maxx, maxy, maxz float64) BoundingBox {
	return BoundingBox{Min: []float64{minx, miny, minz}, Max: []float64{maxx, maxy, maxz}}
}

// Dims returns the dimensionality of the box.
func (b BoundingBox) Dims() int { return len(b.Min) }

// Side returns the absolute extent along axis i.
func (b BoundingBox) Side(i int) float64 { return math.Abs(b.Max[i] - b.Min[i]) }

// ShortestSide returns the smallest absolute extent over all axes.
func (b BoundingBox) ShortestSide() float64 {
	s := math.Inf(1)
	for i := range b.Min {
		s = math.Min(s, b.Side(i))
	}
	return s
}

// Measure returns the area (2D) or volume (3D) of the box.
func (b BoundingBox) Measure() float64 {
	m := 1.0
	for i := range b.Min {
		m *= b.Side(i)
	}
	return m
}

// Covers reports whether every point lies inside the box (inclusive).
func (b BoundingBox) Covers(points [][]float64) bool {
	for _, p := range points {
		for i := range b.Min {
			if p[i] < b.Min[i] || p[i] > b.Max[i] {
				return false
			}
		}
	}
	return true
}

func (b BoundingBox) validate() error {
	if len(b.Min) != len(b.Max) {
		return fmt.Errorf("%w: bbox min has %d axes, max has %d", ErrShapeMismatch, len(b.Min), len(b.Max))
	}
	if d := len(b.Min); d != 2 && d != 3 {
		return fmt.Errorf("%w: bbox has %d axes, want 2 or 3", ErrUnsupportedDimension, d)
	}
	return nil
}

// DefaultRadius returns 10% of the box's shortest side. It is the default
// search radius for index-of-dispersion windows and Leibovici co-occurrence.
func DefaultRadius(bbox BoundingBox) float64 {
	return bbox.ShortestSide() * 0.1
}

// PointsBBox returns the minimum bounding box of a 2D or 3D point collection.
func PointsBBox(points [][]float64) (BoundingBox, error) {
	if len(points) == 0 {
		return BoundingBox{}, fmt.Errorf("%w: bounding box of zero points", ErrEmptyInput)
	}
	dims, err := pointDims(points)
	if err != nil {
		return BoundingBox{}, err
	}

	if dims == 2 {
		bound := toOrbMultiPoint(points).Bound()
		return BBox2D(bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]), nil
	}

	box := BoundingBox{Min: make([]float64, dims), Max: make([]float64, dims)}
	copy(box.Min, points[0])
	copy(box.Max, points[0])
	for _, p := range points[1:] {
		for i, v := range p {
			box.Min[i] = math.Min(box.Min[i], v)
			box.Max[i] = math.Max(box.Max[i], v)
		}
	}
	return box, nil
}

// MultiPointsBBox returns the bounding box of every collection, in order.
func MultiPointsBBox(collections [][][]float64) ([]BoundingBox, error) {
	out := make([]BoundingBox, len(collections))
	for i, points := range collections {
		b, err := PointsBBox(points)
		if err != nil {
			return nil, fmt.Errorf("collection %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

// PolygonArea returns the unsigned area of a 2D polygon (shoelace formula).
// The polygon is implicitly closed; a repeated closing vertex is accepted.
func PolygonArea(polygon [][]float64) (float64, error) {
	if len(polygon) == 0 {
		return 0, fmt.Errorf("%w: polygon has no vertices", ErrEmptyInput)
	}
	if err := require2D(polygon); err != nil {
		return 0, err
	}
	return math.Abs(planar.Area(orb.Polygon{closedRing(polygon)})), nil
}

// MultiPolygonsArea returns the area of every polygon, in order.
func MultiPolygonsArea(polygons [][][]float64) ([]float64, error) {
	out := make([]float64, len(polygons))
	for i, p := range polygons {
		a, err := PolygonArea(p)
		if err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}
		out[i] = a
	}
	return out, nil
}

// HullMethod selects the shape used to outline a point cloud.
type HullMethod string

const (
	HullConvex  HullMethod = "convex"
	HullConcave HullMethod = "concave"
)

// ParseHullMethod validates a hull method name.
func ParseHullMethod(name string) (HullMethod, error) {
	switch m := HullMethod(name); m {
	case HullConvex, HullConcave:
		return m, nil
	}
	return "", optionsError(name, []string{string(HullConvex), string(HullConcave)})
}

// PointsShape outlines points with the selected hull. concavity is only
// used by HullConcave.
func PointsShape(points [][]float64, method HullMethod, concavity float64) ([][]float64, error) {
	switch method {
	case HullConvex:
		return ConvexHull(points)
	case HullConcave:
		return ConcaveHull(points, concavity)
	}
	return nil, optionsError(string(method), []string{string(HullConvex), string(HullConcave)})
}

// ConvexHull returns the convex hull of 2D points in counter-clockwise order,
// starting from the lowest-x (then lowest-y) vertex, without repeating the
// first vertex. Collinear boundary points are dropped. With fewer than 3
// distinct points the distinct points are returned in sorted order.
func ConvexHull(points [][]float64) ([][]float64, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: hull of zero points", ErrEmptyInput)
	}
	if err := require2D(points); err != nil {
		return nil, err
	}
	return fromOrbPoints(convexHull(distinctSorted(points))), nil
}

// ConcaveHull returns a hull that may indent toward interior points.
//
// Starting from the convex hull, the longest boundary edge (a, b) is
// replaced by (a, p, b), where p is the interior point nearest to the edge,
// whenever concavity * |ab| > min(|pa|, |pb|), the new edges cross no other
// boundary edge, and no remaining point would fall outside. This repeats
// until no edge can be carved. concavity <= 0 yields the convex hull; larger
// values carve more. The result is deterministic for identical input.
func ConcaveHull(points [][]float64, concavity float64) ([][]float64, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: hull of zero points", ErrEmptyInput)
	}
	if err := require2D(points); err != nil {
		return nil, err
	}
	pts := distinctSorted(points)
	hull := convexHull(pts)
	if concavity <= 0 || len(hull) < 3 {
		return fromOrbPoints(hull), nil
	}

	onHull := make(map[orb.Point]bool, len(hull))
	for _, p := range hull {
		onHull[p] = true
	}
	interior := make([]orb.Point, 0, len(pts)-len(hull))
	for _, p := range pts {
		if !onHull[p] {
			interior = append(interior, p)
		}
	}

	for len(interior) > 0 {
		carved := false
		for _, e := range edgesByLength(hull) {
			a, b := hull[e], hull[(e+1)%len(hull)]
			pi := nearestToSegment(interior, a, b)
			if pi < 0 {
				break
			}
			p := interior[pi]
			dd := math.Min(planar.Distance(p, a), planar.Distance(p, b))
			if concavity*planar.Distance(a, b) <= dd {
				continue
			}
			if !canCarve(hull, e, p, interior, pi) {
				continue
			}
			hull = insertHullPoint(hull, e+1, p)
			interior = append(interior[:pi], interior[pi+1:]...)
			carved = true
			break
		}
		if !carved {
			break
		}
	}

	return fromOrbPoints(hull), nil
}

// convexHull computes the convex hull with Andrew's monotone chain. points
// must be distinct and sorted by x, then y.
func convexHull(sorted []orb.Point) []orb.Point {
	n := len(sorted)
	if n < 3 {
		result := make([]orb.Point, n)
		copy(result, sorted)
		return result
	}

	hull := make([]orb.Point, 0, 2*n)

	// Lower hull
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// Upper hull
	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// Last point duplicates the first.
	return hull[:len(hull)-1]
}

// cross returns the cross product of vectors OA and OB.
func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// edgesByLength returns hull edge indices sorted by descending length, ties
// by ascending index.
func edgesByLength(hull []orb.Point) []int {
	n := len(hull)
	lengths := make([]float64, n)
	order := make([]int, n)
	for i := range hull {
		lengths[i] = planar.Distance(hull[i], hull[(i+1)%n])
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return lengths[order[i]] > lengths[order[j]]
	})
	return order
}

// nearestToSegment returns the index of the point closest to segment ab,
// or -1 if there are no points. Ties keep the first (lowest sorted) point.
func nearestToSegment(points []orb.Point, a, b orb.Point) int {
	best, bestD := -1, math.Inf(1)
	for i, p := range points {
		if d := segmentDistance(p, a, b); d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func segmentDistance(p, a, b orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return planar.Distance(p, a)
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return planar.Distance(p, orb.Point{a[0] + t*dx, a[1] + t*dy})
}

// canCarve reports whether edge e of hull can be replaced by (a, p, b):
// p must lie strictly inside relative to the edge, the new edges must not
// cross any other boundary edge and no other interior point may end up in
// the removed triangle.
func canCarve(hull []orb.Point, e int, p orb.Point, interior []orb.Point, skip int) bool {
	n := len(hull)
	a, b := hull[e], hull[(e+1)%n]
	if cross(a, b, p) <= 0 {
		return false
	}
	for i := 0; i < n; i++ {
		if i == e {
			continue
		}
		c, d := hull[i], hull[(i+1)%n]
		if segmentsCross(a, p, c, d) || segmentsCross(p, b, c, d) {
			return false
		}
	}
	for i, q := range interior {
		if i == skip {
			continue
		}
		if cross(a, b, q) >= 0 && cross(b, p, q) >= 0 && cross(p, a, q) >= 0 {
			return false
		}
	}
	return true
}

// segmentsCross reports a proper crossing of segments pq and rs. Segments
// that only share an endpoint do not cross.
func segmentsCross(p, q, r, s orb.Point) bool {
	if p == r || p == s || q == r || q == s {
		return false
	}
	d1 := cross(r, s, p)
	d2 := cross(r, s, q)
	d3 := cross(p, q, r)
	d4 := cross(p, q, s)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func insertHullPoint(hull []orb.Point, at int, p orb.Point) []orb.Point {
	hull = append(hull, orb.Point{})
	copy(hull[at+1:], hull[at:])
	hull[at] = p
	return hull
}

func require2D(points [][]float64) error {
	dims, err := pointDims(points)
	if err != nil {
		return err
	}
	if dims != 2 {
		return fmt.Errorf("%w: %dD points, want 2D", ErrUnsupportedDimension, dims)
	}
	return nil
}

// distinctSorted converts 2D points to orb points sorted by x then y with
// duplicates removed.
func distinctSorted(points [][]float64) []orb.Point {
	sorted := make([]orb.Point, len(points))
	for i, p := range points {
		sorted[i] = orb.Point{p[0], p[1]}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})
	out := sorted[:0]
	for i, p := range sorted {
		if i == 0 || p != sorted[i-1] {
			out = append(out, p)
		}
	}
	return out
}

func toOrbMultiPoint(points [][]float64) orb.MultiPoint {
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = orb.Point{p[0], p[1]}
	}
	return mp
}

// closedRing converts a polygon to an orb ring whose last vertex repeats the
// first.
func closedRing(polygon [][]float64) orb.Ring {
	ring := make(orb.Ring, 0, len(polygon)+1)
	for _, p := range polygon {
		ring = append(ring, orb.Point{p[0], p[1]})
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

func fromOrbPoints(points []orb.Point) [][]float64 {
	out := make([][]float64, len(points))
	for i, p := range points {
		out[i] = []float64{p[0], p[1]}
	}
	return out
}
