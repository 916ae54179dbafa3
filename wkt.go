package spatialstat

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// PointToWKT serializes a 2D point as "POINT(x y)". Coordinates are written
// with the shortest representation that parses back to the same float64.
func PointToWKT(p []float64) (string, error) {
	if len(p) != 2 {
		return "", fmt.Errorf("%w: WKT point has %d coordinates, want 2", ErrUnsupportedDimension, len(p))
	}
	return wkt.MarshalString(orb.Point{p[0], p[1]}), nil
}

// PointFromWKT parses a "POINT(x y)" string.
func PointFromWKT(s string) ([]float64, error) {
	p, err := wkt.UnmarshalPoint(s)
	if err != nil {
		return nil, fmt.Errorf("spatialstat: parse point %q: %w", s, err)
	}
	return []float64{p[0], p[1]}, nil
}

// PolygonToWKT serializes a 2D polygon as "POLYGON((x y,x y,...,x y))" with
// the first vertex repeated at the end.
func PolygonToWKT(polygon [][]float64) (string, error) {
	if len(polygon) == 0 {
		return "", fmt.Errorf("%w: polygon has no vertices", ErrEmptyInput)
	}
	if err := require2D(polygon); err != nil {
		return "", err
	}
	return wkt.MarshalString(orb.Polygon{closedRing(polygon)}), nil
}

// PolygonFromWKT parses the exterior ring of a "POLYGON((...))" string. The
// closing vertex is dropped, so PolygonFromWKT(PolygonToWKT(p)) == p for an
// open polygon p.
func PolygonFromWKT(s string) ([][]float64, error) {
	poly, err := wkt.UnmarshalPolygon(s)
	if err != nil {
		return nil, fmt.Errorf("spatialstat: parse polygon %q: %w", s, err)
	}
	if len(poly) == 0 || len(poly[0]) == 0 {
		return nil, fmt.Errorf("%w: polygon %q has no exterior ring", ErrEmptyInput, s)
	}
	ring := poly[0]
	if len(ring) > 1 && ring.Closed() {
		ring = ring[:len(ring)-1]
	}
	return fromOrbPoints(ring), nil
}

// PointsToWKT serializes every point, in order.
func PointsToWKT(points [][]float64) ([]string, error) {
	return mapErr(points, PointToWKT)
}

// PointsFromWKT parses every string, in order.
func PointsFromWKT(items []string) ([][]float64, error) {
	return mapErr(items, PointFromWKT)
}

// PolygonsToWKT serializes every polygon, in order.
func PolygonsToWKT(polygons [][][]float64) ([]string, error) {
	return mapErr(polygons, PolygonToWKT)
}

// PolygonsFromWKT parses every string, in order.
func PolygonsFromWKT(items []string) ([][][]float64, error) {
	return mapErr(items, PolygonFromWKT)
}

func mapErr[S, T any](in []S, fn func(S) (T, error)) ([]T, error) {
	out := make([]T, len(in))
	for i, v := range in {
		r, err := fn(v)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}
