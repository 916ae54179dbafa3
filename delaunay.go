package spatialstat

import (
	"sort"
)

// DelaunayNeighbors connects every 2D point to the points it shares a
// Delaunay triangle edge with (plus itself). Points with identical
// coordinates are neighbors of each other and share their neighbors. If all
// points are collinear there is no triangulation and each point is linked to
// its predecessor and successor along the line.
func DelaunayNeighbors(points [][]float64, labels []int) ([][]int, error) {
	labels, err := resolveLabels(labels, len(points))
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return [][]int{}, nil
	}
	if err := require2D(points); err != nil {
		return nil, err
	}

	// Collapse duplicates onto the first occurrence.
	canon := make([]int, len(points))
	first := make(map[[2]float64]int, len(points))
	var unique []int
	for i, p := range points {
		key := [2]float64{p[0], p[1]}
		if j, ok := first[key]; ok {
			canon[i] = canon[j]
			continue
		}
		first[key] = i
		canon[i] = len(unique)
		unique = append(unique, i)
	}

	uniquePts := make([][2]float64, len(unique))
	for u, i := range unique {
		uniquePts[u] = [2]float64{points[i][0], points[i][1]}
	}
	adj := triangulate(uniquePts)

	// members[u] lists all input positions that collapsed onto unique point u.
	members := make([][]int, len(unique))
	for i, u := range canon {
		members[u] = append(members[u], i)
	}

	out := make([][]int, len(points))
	for i, u := range canon {
		var idx []int
		idx = append(idx, members[u]...)
		for _, v := range adj[u] {
			idx = append(idx, members[v]...)
		}
		out[i] = withSelf(idx, i, labels)
	}
	return out, nil
}

// ghost stands for the vertex at infinity. Every convex hull edge (a, b)
// carries a ghost triangle (a, b, ghost) lying outside the hull.
const ghost = -1

// triangle vertices are in counter-clockwise order. A ghost triangle keeps
// the ghost in v[2].
type triangle struct{ v [3]int }

func (t triangle) isGhost() bool { return t.v[2] == ghost }

type edge struct{ a, b int }

// triangulate runs Bowyer-Watson over distinct points and returns the
// adjacency (sorted, without self) of the resulting triangulation. If all
// points are collinear the points are chained along the line instead.
func triangulate(pts [][2]float64) [][]int {
	n := len(pts)
	if n < 2 {
		return make([][]int, n)
	}

	// Seed with the first non-degenerate triangle.
	c := -1
	for i := 2; i < n; i++ {
		if orient(pts[0], pts[1], pts[i]) != 0 {
			c = i
			break
		}
	}
	if c < 0 {
		return chainCollinear(pts)
	}
	a, b := 0, 1
	if orient(pts[a], pts[b], pts[c]) < 0 {
		a, b = b, a
	}
	triangles := []triangle{
		{v: [3]int{a, b, c}},
		{v: [3]int{b, a, ghost}},
		{v: [3]int{c, b, ghost}},
		{v: [3]int{a, c, ghost}},
	}

	for pi := 0; pi < n; pi++ {
		if pi == a || pi == b || pi == c {
			continue
		}
		triangles = insertPoint(pts, triangles, pi)
	}

	sets := make([]map[int]bool, n)
	for i := range sets {
		sets[i] = make(map[int]bool)
	}
	for _, t := range triangles {
		if t.isGhost() {
			continue
		}
		for k := 0; k < 3; k++ {
			u, v := t.v[k], t.v[(k+1)%3]
			sets[u][v] = true
			sets[v][u] = true
		}
	}

	adj := make([][]int, n)
	for i, s := range sets {
		keys := make([]int, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		adj[i] = keys
	}
	return adj
}

// insertPoint removes every triangle in conflict with point pi and fans the
// resulting cavity out from pi.
func insertPoint(pts [][2]float64, triangles []triangle, pi int) []triangle {
	p := pts[pi]
	bad := make(map[int]bool)
	seed := -1
	for ti, t := range triangles {
		if !inConflict(pts, t, p) {
			continue
		}
		bad[ti] = true
		if seed < 0 && (t.isGhost() || inTriangle(pts, t, p)) {
			seed = ti
		}
	}
	if len(bad) == 0 {
		return triangles
	}
	cavity := connectedCavity(triangles, bad, seed)

	edgeCount := make(map[edge]int)
	for ti := range cavity {
		t := triangles[ti]
		for k := 0; k < 3; k++ {
			edgeCount[normEdge(t.v[k], t.v[(k+1)%3])]++
		}
	}
	var boundary []edge
	for ti := range cavity {
		t := triangles[ti]
		for k := 0; k < 3; k++ {
			e := edge{t.v[k], t.v[(k+1)%3]}
			if edgeCount[normEdge(e.a, e.b)] == 1 {
				boundary = append(boundary, e)
			}
		}
	}

	kept := make([]triangle, 0, len(triangles)-len(cavity)+len(boundary))
	for ti, t := range triangles {
		if !cavity[ti] {
			kept = append(kept, t)
		}
	}
	for _, e := range boundary {
		switch {
		case e.b == ghost:
			kept = append(kept, triangle{v: [3]int{pi, e.a, ghost}})
		case e.a == ghost:
			kept = append(kept, triangle{v: [3]int{e.b, pi, ghost}})
		default:
			kept = append(kept, triangle{v: [3]int{e.a, e.b, pi}})
		}
	}
	return kept
}

// connectedCavity keeps the conflicting triangles reachable from seed across
// shared edges. Rounding in near-cocircular input can flag isolated
// triangles that would otherwise tear the cavity apart.
func connectedCavity(triangles []triangle, bad map[int]bool, seed int) map[int]bool {
	if seed < 0 {
		for ti := range bad {
			if seed < 0 || ti < seed {
				seed = ti
			}
		}
	}
	byEdge := make(map[edge][]int)
	for ti := range bad {
		t := triangles[ti]
		for k := 0; k < 3; k++ {
			e := normEdge(t.v[k], t.v[(k+1)%3])
			byEdge[e] = append(byEdge[e], ti)
		}
	}
	cavity := map[int]bool{seed: true}
	stack := []int{seed}
	for len(stack) > 0 {
		ti := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t := triangles[ti]
		for k := 0; k < 3; k++ {
			for _, tj := range byEdge[normEdge(t.v[k], t.v[(k+1)%3])] {
				if !cavity[tj] {
					cavity[tj] = true
					stack = append(stack, tj)
				}
			}
		}
	}
	return cavity
}

// inConflict reports whether p invalidates t. For a finite triangle that
// means p lies strictly inside its circumcircle; for a ghost triangle on
// hull edge (a, b) it means p lies strictly outside the edge or on its
// open segment.
func inConflict(pts [][2]float64, t triangle, p [2]float64) bool {
	if !t.isGhost() {
		return inCircumcircle(p, pts[t.v[0]], pts[t.v[1]], pts[t.v[2]])
	}
	a, b := pts[t.v[0]], pts[t.v[1]]
	o := orient(a, b, p)
	if o != 0 {
		return o > 0
	}
	dot := (p[0]-a[0])*(b[0]-a[0]) + (p[1]-a[1])*(b[1]-a[1])
	lenSq := (b[0]-a[0])*(b[0]-a[0]) + (b[1]-a[1])*(b[1]-a[1])
	return dot > 0 && dot < lenSq
}

// inTriangle reports whether p lies in the closed finite triangle t.
func inTriangle(pts [][2]float64, t triangle, p [2]float64) bool {
	a, b, c := pts[t.v[0]], pts[t.v[1]], pts[t.v[2]]
	return orient(a, b, p) >= 0 && orient(b, c, p) >= 0 && orient(c, a, p) >= 0
}

func normEdge(a, b int) edge {
	if a > b {
		a, b = b, a
	}
	return edge{a, b}
}

// chainCollinear links collinear points to their neighbors along the line.
func chainCollinear(pts [][2]float64) [][]int {
	order := make([]int, len(pts))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := pts[order[i]], pts[order[j]]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})
	adj := make([][]int, len(pts))
	for k := 1; k < len(order); k++ {
		a, b := order[k-1], order[k]
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	for _, row := range adj {
		sort.Ints(row)
	}
	return adj
}

func orient(a, b, c [2]float64) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// inCircumcircle reports whether p lies strictly inside the circumcircle of
// triangle (a, b, c), using the determinant test.
func inCircumcircle(p, a, b, c [2]float64) bool {
	ax, ay := a[0]-p[0], a[1]-p[1]
	bx, by := b[0]-p[0], b[1]-p[1]
	cx, cy := c[0]-p[0], c[1]-p[1]

	det := ax*(by*(cx*cx+cy*cy)-cy*(bx*bx+by*by)) -
		ay*(bx*(cx*cx+cy*cy)-cx*(bx*bx+by*by)) +
		(ax*ax+ay*ay)*(bx*cy-cx*by)

	if orient(a, b, c) < 0 {
		det = -det
	}
	return det > 0
}
