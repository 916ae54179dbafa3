package spatialstat

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// defaultQuad is the grid used when neither a quadrat count nor a quadrat
// side is given.
var defaultQuad = [2]int{10, 10}

// quadratGrid is a regular nx×ny partition of a 2D bounding box. Cell ids
// run row-major from the lower-left corner: id = iy*nx + ix.
type quadratGrid struct {
	nx, ny int
	bbox   BoundingBox
	// cellOf[i] is the cell holding point i.
	cellOf []int
	counts []int
}

// gridShape resolves the grid size from quad, then rectSide, then the
// 10×10 default.
func gridShape(bbox BoundingBox, quad [2]int, rectSide [2]float64) (nx, ny int, err error) {
	switch {
	case quad[0] > 0 || quad[1] > 0:
		nx, ny = quad[0], quad[1]
	case rectSide[0] > 0 || rectSide[1] > 0:
		if rectSide[0] <= 0 || rectSide[1] <= 0 {
			return 0, 0, fmt.Errorf("%w: quadrat side %v must be positive", ErrDegenerateInput, rectSide)
		}
		nx = int(math.Floor(bbox.Side(0) / rectSide[0]))
		ny = int(math.Floor(bbox.Side(1) / rectSide[1]))
		if nx == 0 || ny == 0 {
			return 0, 0, fmt.Errorf("%w: quadrat side %v is larger than the bounding box", ErrDegenerateInput, rectSide)
		}
	default:
		nx, ny = defaultQuad[0], defaultQuad[1]
	}
	if nx <= 0 || ny <= 0 {
		return 0, 0, fmt.Errorf("%w: quadrat grid %dx%d has no cells", ErrDegenerateInput, nx, ny)
	}
	return nx, ny, nil
}

// newQuadratGrid assigns 2D points to the cells of a grid over bbox. A zero
// bbox, or one that does not cover the points, is replaced by the points'
// own bounding box.
func newQuadratGrid(points [][]float64, bbox BoundingBox, quad [2]int, rectSide [2]float64, logger *zap.Logger) (*quadratGrid, error) {
	if len(points) > 0 {
		own, err := PointsBBox(points)
		if err != nil {
			return nil, err
		}
		switch {
		case bbox.Dims() == 0:
			bbox = own
		case !bbox.Covers(points):
			logger.Warn("bounding box does not cover all points, using the points' own bounding box",
				zap.Float64s("bbox_min", bbox.Min), zap.Float64s("bbox_max", bbox.Max),
				zap.Float64s("points_min", own.Min), zap.Float64s("points_max", own.Max))
			bbox = own
		}
	}

	nx, ny, err := gridShape(bbox, quad, rectSide)
	if err != nil {
		return nil, err
	}

	g := &quadratGrid{
		nx:     nx,
		ny:     ny,
		bbox:   bbox,
		cellOf: make([]int, len(points)),
		counts: make([]int, nx*ny),
	}
	for i, p := range points {
		ix := g.axisIndex(p[0], 0, nx)
		iy := g.axisIndex(p[1], 1, ny)
		id := iy*nx + ix
		g.cellOf[i] = id
		g.counts[id]++
	}
	return g, nil
}

func (g *quadratGrid) axisIndex(v float64, axis, n int) int {
	lo := math.Min(g.bbox.Min[axis], g.bbox.Max[axis])
	side := g.bbox.Side(axis)
	if side == 0 {
		return 0
	}
	i := int(math.Floor((v - lo) / (side / float64(n))))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (g *quadratGrid) cells() int { return g.nx * g.ny }

// cellXY splits a cell id into its column and row.
func (g *quadratGrid) cellXY(id int) (ix, iy int) { return id % g.nx, id / g.nx }

// ring returns the ids of every cell within Chebyshev distance level of id,
// id included, clipped to the grid.
func (g *quadratGrid) ring(id, level int) []int {
	cx, cy := g.cellXY(id)
	var out []int
	for y := max(0, cy-level); y <= min(g.ny-1, cy+level); y++ {
		for x := max(0, cx-level); x <= min(g.nx-1, cx+level); x++ {
			out = append(out, y*g.nx+x)
		}
	}
	return out
}
