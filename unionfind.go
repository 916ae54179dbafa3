package spatialstat

// disjointSet implements a disjoint-set forest over positions 0..n-1 with
// path compression and union by size.
type disjointSet struct {
	parent []int
	size   []int
}

func newDisjointSet(n int) *disjointSet {
	parent := make([]int, n)
	size := make([]int, n)
	for i := range parent {
		parent[i] = -1 // -1 means "is a root"
		size[i] = 1
	}
	return &disjointSet{parent: parent, size: size}
}

// find returns the root of the set containing x, with path compression.
func (s *disjointSet) find(x int) int {
	root := x
	for s.parent[root] != -1 {
		root = s.parent[root]
	}
	for s.parent[x] != -1 {
		x, s.parent[x] = s.parent[x], root
	}
	return root
}

// union merges the sets containing x and y by attaching the smaller tree
// under the larger. Returns the new root.
func (s *disjointSet) union(x, y int) int {
	rootX, rootY := s.find(x), s.find(y)
	if rootX == rootY {
		return rootX
	}
	if s.size[rootX] < s.size[rootY] {
		rootX, rootY = rootY, rootX
	}
	s.parent[rootY] = rootX
	s.size[rootX] += s.size[rootY]
	return rootX
}

// NeighborComponents returns the connected component of every point of a
// neighbor graph, with edges taken as undirected. Components are numbered
// 0, 1, ... in order of their first point.
func NeighborComponents(neighbors [][]int, labels []int) ([]int, error) {
	labels, err := resolveLabels(labels, len(neighbors))
	if err != nil {
		return nil, err
	}
	pos := labelIndex(labels)
	ds := newDisjointSet(len(neighbors))
	for i, row := range neighbors {
		for _, l := range row {
			j, ok := pos[l]
			if !ok {
				return nil, unknownLabelError(i, l)
			}
			ds.union(i, j)
		}
	}

	ids := make(map[int]int)
	out := make([]int, len(neighbors))
	for i := range out {
		root := ds.find(i)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		out[i] = id
	}
	return out, nil
}
