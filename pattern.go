package spatialstat

import (
	"fmt"
	"math"
	"math/rand/v2"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Pattern classifies the spatial distribution of a point collection.
type Pattern int

const (
	// PatternInsufficient means the collection had too few points (or an
	// empty sample) for the statistic to be computed.
	PatternInsufficient Pattern = iota
	PatternRandom
	PatternRegular
	PatternClustered
)

func (p Pattern) String() string {
	switch p {
	case PatternRandom:
		return "random"
	case PatternRegular:
		return "regular"
	case PatternClustered:
		return "clustered"
	default:
		return "insufficient"
	}
}

// PatternResult is the outcome for one collection.
type PatternResult struct {
	Index   float64
	PValue  float64
	Pattern Pattern
	Err     error
}

// PatternMethod selects the distribution index. The concrete variants are
// [IndexOfDispersion], [Morisita] and [ClarkEvans].
type PatternMethod interface {
	patternMethod() string
}

// IndexOfDispersion samples Resample random windows (discs in 2D, balls in
// 3D) of the given Radius and tests the variance-to-mean ratio of their
// counts. Zero values select the defaults: Radius = DefaultRadius(bbox),
// Resample = 1000.
type IndexOfDispersion struct {
	Radius   float64
	Resample int
}

// Morisita computes Morisita's index over a quadrat grid given either as a
// cell count (Quad) or a cell size (RectSide). Neither set means 10×10.
// 2D only.
type Morisita struct {
	Quad     [2]int
	RectSide [2]float64
}

// ClarkEvans compares the mean nearest-neighbor distance against its
// expectation under complete spatial randomness. 2D only.
type ClarkEvans struct{}

func (IndexOfDispersion) patternMethod() string { return "id" }
func (Morisita) patternMethod() string          { return "morisita" }
func (ClarkEvans) patternMethod() string        { return "clark_evans" }

var patternMethodNames = []string{"id", "morisita", "clark_evans"}

// ParsePatternMethod maps a selector name to its method with default
// parameters.
func ParsePatternMethod(name string) (PatternMethod, error) {
	switch name {
	case "id":
		return IndexOfDispersion{}, nil
	case "morisita":
		return Morisita{}, nil
	case "clark_evans":
		return ClarkEvans{}, nil
	}
	return nil, optionsError(name, patternMethodNames)
}

const defaultResample = 1000

// clarkEvansSE is the standard-error constant of the mean nearest-neighbor
// distance under complete spatial randomness: sqrt((4-pi)/(4pi)).
const clarkEvansSE = 0.26136

// DistributionPattern classifies every point collection inside a shared
// bounding box. Collections run in parallel; one that cannot be computed
// reports Err in its own slot. Method and dimension problems common to the
// whole batch fail the call.
func DistributionPattern(collections [][][]float64, bbox BoundingBox, method PatternMethod, cfg Config) ([]PatternResult, error) {
	if err := prepareConfig(&cfg); err != nil {
		return nil, err
	}
	if err := bbox.validate(); err != nil {
		return nil, err
	}

	var run func(points [][]float64, rng *rand.Rand) (PatternResult, error)
	switch m := method.(type) {
	case IndexOfDispersion:
		if m.Resample == 0 {
			m.Resample = defaultResample
		}
		if m.Resample < 2 {
			return nil, fmt.Errorf("spatialstat: Resample must be >= 2, got %d", m.Resample)
		}
		if m.Radius <= 0 {
			m.Radius = DefaultRadius(bbox)
		}
		run = func(points [][]float64, rng *rand.Rand) (PatternResult, error) {
			return indexOfDispersion(points, bbox, m, cfg, rng)
		}
	case Morisita:
		run = func(points [][]float64, _ *rand.Rand) (PatternResult, error) {
			return morisitaIndex(points, bbox, m, cfg)
		}
	case ClarkEvans:
		run = func(points [][]float64, _ *rand.Rand) (PatternResult, error) {
			return clarkEvansIndex(points, bbox, cfg)
		}
	case nil:
		return nil, optionsError("<nil>", patternMethodNames)
	default:
		return nil, optionsError(method.patternMethod(), patternMethodNames)
	}

	for i, points := range collections {
		dims, err := pointDims(points)
		if err != nil {
			return nil, fmt.Errorf("collection %d: %w", i, err)
		}
		if dims == 0 {
			continue
		}
		if dims != bbox.Dims() {
			return nil, fmt.Errorf("%w: collection %d is %dD, bbox is %dD",
				ErrUnsupportedDimension, i, dims, bbox.Dims())
		}
		if _, ok := method.(IndexOfDispersion); !ok && dims == 3 {
			return nil, fmt.Errorf("%w: %s supports 2D points only", ErrUnsupportedDimension, method.patternMethod())
		}
	}

	return parallelMap(len(collections), cfg.Workers, func(i int) PatternResult {
		points := collections[i]
		if len(points) < cfg.MinCells {
			return PatternResult{Pattern: PatternInsufficient}
		}
		rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
		r, err := run(points, rng)
		if err != nil {
			cfg.Logger.Debug("distribution pattern skipped", zap.Int("collection", i), zap.Error(err))
			return PatternResult{Err: fmt.Errorf("collection %d: %w", i, err)}
		}
		return r
	}), nil
}

// classify maps an index (1 under randomness) and its p-value to a pattern.
// Values above 1 mean clustering unless inverted is set, as for Clark-Evans
// where small ratios mean clustering.
func classify(index, p, alpha float64, inverted bool) Pattern {
	if p >= alpha || index == 1 {
		return PatternRandom
	}
	clustered := index > 1
	if inverted {
		clustered = !clustered
	}
	if clustered {
		return PatternClustered
	}
	return PatternRegular
}

// chiSquareTail returns the p-value of a chi-square statistic, taken from
// the upper tail when the index suggests clustering (index > 1) and from
// the lower tail otherwise.
func chiSquareTail(chi2, df, index float64) float64 {
	// Rounding can push an exact zero slightly negative.
	chi2 = math.Max(chi2, 0)
	dist := distuv.ChiSquared{K: df}
	if index > 1 {
		return dist.Survival(chi2)
	}
	return dist.CDF(chi2)
}

func indexOfDispersion(points [][]float64, bbox BoundingBox, m IndexOfDispersion, cfg Config, rng *rand.Rand) (PatternResult, error) {
	dims := bbox.Dims()
	tree := newKDTreeFlat(flatten(points, dims), len(points), dims, defaultLeafSize)

	counts := make([]float64, m.Resample)
	center := make([]float64, dims)
	for s := range counts {
		for d := 0; d < dims; d++ {
			lo := math.Min(bbox.Min[d], bbox.Max[d])
			center[d] = lo + rng.Float64()*bbox.Side(d)
		}
		counts[s] = float64(tree.CountWithin(center, m.Radius))
	}

	vmr, chi2, ok := dispersionChi2(counts)
	if !ok {
		return PatternResult{Pattern: PatternInsufficient}, nil
	}
	p := chiSquareTail(chi2, float64(m.Resample-1), vmr)
	return PatternResult{Index: vmr, PValue: p, Pattern: classify(vmr, p, cfg.PValue, false)}, nil
}

// dispersionChi2 returns the variance-to-mean ratio of window counts and the
// dispersion statistic sum((x-mean)^2)/mean. ok is false when every window
// is empty.
func dispersionChi2(counts []float64) (vmr, chi2 float64, ok bool) {
	mean, variance := stat.PopMeanVariance(counts, nil)
	if mean == 0 {
		return 0, 0, false
	}
	vmr = variance / mean
	return vmr, float64(len(counts)) * vmr, true
}

func morisitaIndex(points [][]float64, bbox BoundingBox, m Morisita, cfg Config) (PatternResult, error) {
	g, err := newQuadratGrid(points, bbox, m.Quad, m.RectSide, cfg.Logger)
	if err != nil {
		return PatternResult{}, err
	}
	q := float64(g.cells())
	if q < 2 {
		return PatternResult{}, fmt.Errorf("%w: Morisita's index needs at least 2 quadrats", ErrDegenerateInput)
	}

	var n, sum float64
	for _, c := range g.counts {
		f := float64(c)
		n += f
		sum += f * (f - 1)
	}
	if n < 2 {
		return PatternResult{Pattern: PatternInsufficient}, nil
	}
	index := q * sum / (n * (n - 1))
	chi2 := index*(n-1) + q - n
	p := chiSquareTail(chi2, q-1, index)
	return PatternResult{Index: index, PValue: p, Pattern: classify(index, p, cfg.PValue, false)}, nil
}

func clarkEvansIndex(points [][]float64, bbox BoundingBox, cfg Config) (PatternResult, error) {
	n := len(points)
	if n < 2 {
		return PatternResult{Pattern: PatternInsufficient}, nil
	}
	area := bbox.Measure()
	if area == 0 {
		return PatternResult{}, fmt.Errorf("%w: bounding box has zero area", ErrDegenerateInput)
	}

	tree := newKDTreeFlat(flatten(points, 2), n, 2, defaultLeafSize)
	var total float64
	for i, p := range points {
		idx, dist := tree.QueryKNN(p, 2)
		for k, j := range idx {
			if j != i {
				total += dist[k]
				break
			}
		}
	}

	intensity := float64(n) / area
	observed := total / float64(n)
	expected := 0.5 / math.Sqrt(intensity)
	se := clarkEvansSE / math.Sqrt(float64(n)*intensity)
	ratio := observed / expected
	z := (observed - expected) / se
	p := normalPValue(z, true)
	return PatternResult{Index: ratio, PValue: p, Pattern: classify(ratio, p, cfg.PValue, true)}, nil
}
