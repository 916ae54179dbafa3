package spatialstat

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// HotspotOptions configures the quadrat grid and neighborhood of [Hotspot].
type HotspotOptions struct {
	// SearchLevel is the number of rings of adjacent quadrats around each
	// quadrat included in its local sum. Default: 3.
	SearchLevel int

	// Quad and RectSide choose the grid as for [Morisita].
	Quad     [2]int
	RectSide [2]float64
}

// DefaultHotspotOptions returns options with SearchLevel 3 and a 10×10 grid.
func DefaultHotspotOptions() HotspotOptions {
	return HotspotOptions{SearchLevel: 3}
}

const defaultSearchLevel = 3

// minHotspotQuadrats is the smallest grid the Gi* statistic is tested on.
const minHotspotQuadrats = 9

// Hotspot flags every 2D point that falls in a quadrat whose local
// Getis-Ord Gi* statistic is significant at cfg.PValue (two-tailed). values
// holds one value per point; nil means each point counts 1. Quadrats with
// fewer than cfg.MinCells points are never flagged. Empty input returns an
// empty result.
func Hotspot(points [][]float64, values []float64, bbox BoundingBox, opts HotspotOptions, cfg Config) ([]bool, error) {
	if err := prepareConfig(&cfg); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return []bool{}, nil
	}
	if values != nil && len(values) != len(points) {
		return nil, shapeError("values", len(values), len(points))
	}
	if err := require2D(points); err != nil {
		return nil, err
	}
	if bbox.Dims() != 0 {
		if err := bbox.validate(); err != nil {
			return nil, err
		}
		if bbox.Dims() != 2 {
			return nil, fmt.Errorf("%w: hotspot bbox is %dD, want 2D", ErrUnsupportedDimension, bbox.Dims())
		}
	}
	level := opts.SearchLevel
	if level == 0 {
		level = defaultSearchLevel
	}
	if level < 0 {
		return nil, fmt.Errorf("spatialstat: SearchLevel must be >= 0, got %d", level)
	}

	g, err := newQuadratGrid(points, bbox, opts.Quad, opts.RectSide, cfg.Logger)
	if err != nil {
		return nil, err
	}
	flags := make([]bool, len(points))
	q := g.cells()
	if q < minHotspotQuadrats {
		cfg.Logger.Debug("too few quadrats for hotspot detection", zap.Int("quadrats", q))
		return flags, nil
	}

	sums := make([]float64, q)
	for i, id := range g.cellOf {
		if values == nil {
			sums[id]++
		} else {
			sums[id] += values[i]
		}
	}

	var mean, sq float64
	for _, s := range sums {
		mean += s
		sq += s * s
	}
	qf := float64(q)
	mean /= qf
	sd := math.Sqrt(math.Max(sq/qf-mean*mean, 0))
	if sd == 0 {
		return flags, nil
	}

	hot := make([]bool, q)
	for id := range hot {
		if g.counts[id] < cfg.MinCells {
			continue
		}
		ring := g.ring(id, level)
		var local float64
		for _, j := range ring {
			local += sums[j]
		}
		w := float64(len(ring))
		u := math.Sqrt((qf*w - w*w) / (qf - 1))
		if u == 0 {
			continue
		}
		z := (local - mean*w) / (sd * u)
		hot[id] = normalPValue(z, true) < cfg.PValue
	}

	for i, id := range g.cellOf {
		flags[i] = hot[id]
	}
	return flags, nil
}

// HotspotResult is one region's outcome in [HotspotBatch].
type HotspotResult struct {
	Flags []bool
	Err   error
}

// HotspotBatch runs [Hotspot] over independent regions in parallel. values
// may be nil (counts everywhere) or hold one value slice per region.
func HotspotBatch(collections [][][]float64, values [][]float64, bbox BoundingBox, opts HotspotOptions, cfg Config) ([]HotspotResult, error) {
	if err := prepareConfig(&cfg); err != nil {
		return nil, err
	}
	if values != nil && len(values) != len(collections) {
		return nil, shapeError("value collections", len(values), len(collections))
	}
	return parallelMap(len(collections), cfg.Workers, func(i int) HotspotResult {
		var v []float64
		if values != nil {
			v = values[i]
		}
		f, err := Hotspot(collections[i], v, bbox, opts, cfg)
		if err != nil {
			return HotspotResult{Err: fmt.Errorf("region %d: %w", i, err)}
		}
		return HotspotResult{Flags: f}
	}), nil
}
