package spatialstat

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// EntropyResult is one region's co-occurrence entropy in bits. MutualInfo
// is only set by [Altieri].
type EntropyResult struct {
	Value      float64
	MutualInfo float64
	Err        error
}

// EntropyMethod selects the entropy measure. The concrete variants are
// [Leibovici] and [Altieri].
type EntropyMethod interface {
	entropyMethod() string
}

// Leibovici is the Shannon entropy of the type pairs of all point pairs
// closer than Distance. Zero Distance means 10% of the shorter side of each
// region's own bounding box.
type Leibovici struct {
	Distance float64
}

// Altieri splits the pair distances into Cut equal-width bands and
// decomposes the co-occurrence entropy into a residual part (Value) and the
// mutual information between type pairs and distance (MutualInfo). Zero Cut
// means 3.
type Altieri struct {
	Cut int
}

func (Leibovici) entropyMethod() string { return "leibovici" }
func (Altieri) entropyMethod() string   { return "altieri" }

var entropyMethodNames = []string{"leibovici", "altieri"}

const defaultCut = 3

// ParseEntropyMethod maps a selector name to its method with default
// parameters.
func ParseEntropyMethod(name string) (EntropyMethod, error) {
	switch name {
	case "leibovici":
		return Leibovici{}, nil
	case "altieri":
		return Altieri{}, nil
	}
	return nil, optionsError(name, entropyMethodNames)
}

// SpatialEntropy computes the chosen entropy for every region. types[i]
// assigns a type to every point of collections[i]. Regions run in parallel.
func SpatialEntropy(collections [][][]float64, types [][]string, method EntropyMethod, cfg Config) ([]EntropyResult, error) {
	if err := prepareConfig(&cfg); err != nil {
		return nil, err
	}
	var run func(points [][]float64, types []string) (EntropyResult, error)
	switch m := method.(type) {
	case Leibovici:
		if m.Distance < 0 {
			return nil, fmt.Errorf("spatialstat: Distance must be >= 0, got %g", m.Distance)
		}
		run = func(points [][]float64, types []string) (EntropyResult, error) {
			return leibovici(points, types, m.Distance)
		}
	case Altieri:
		if m.Cut == 0 {
			m.Cut = defaultCut
		}
		if m.Cut < 1 {
			return nil, fmt.Errorf("spatialstat: Cut must be >= 1, got %d", m.Cut)
		}
		run = func(points [][]float64, types []string) (EntropyResult, error) {
			return altieri(points, types, m.Cut)
		}
	case nil:
		return nil, optionsError("<nil>", entropyMethodNames)
	default:
		return nil, optionsError(method.entropyMethod(), entropyMethodNames)
	}

	if len(types) != len(collections) {
		return nil, shapeError("type collections", len(types), len(collections))
	}
	for i := range collections {
		if len(types[i]) != len(collections[i]) {
			return nil, fmt.Errorf("region %d: %w", i, shapeError("types", len(types[i]), len(collections[i])))
		}
		if _, err := pointDims(collections[i]); err != nil {
			return nil, fmt.Errorf("region %d: %w", i, err)
		}
	}

	return parallelMap(len(collections), cfg.Workers, func(i int) EntropyResult {
		r, err := run(collections[i], types[i])
		if err != nil {
			cfg.Logger.Debug("entropy skipped", zap.Int("region", i), zap.Error(err))
			return EntropyResult{Err: fmt.Errorf("region %d: %w", i, err)}
		}
		return r
	}), nil
}

// typePair is an unordered pair of types, stored with a <= b.
type typePair struct{ a, b string }

func makeTypePair(x, y string) typePair {
	if x > y {
		x, y = y, x
	}
	return typePair{x, y}
}

// pairCounter counts type-pair occurrences.
type pairCounter map[typePair]float64

func (c pairCounter) total() float64 {
	var t float64
	for _, v := range c {
		t += v
	}
	return t
}

// keys returns the pairs in a fixed order so float sums are reproducible.
func (c pairCounter) keys() []typePair {
	keys := make([]typePair, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})
	return keys
}

// distribution returns the probabilities of keys under c.
func (c pairCounter) distribution(keys []typePair) []float64 {
	t := c.total()
	p := make([]float64, len(keys))
	for i, k := range keys {
		p[i] = c[k] / t
	}
	return p
}

// bits converts a natural-log entropy to bits.
func bits(nats float64) float64 { return nats / math.Ln2 }

func leibovici(points [][]float64, types []string, d float64) (EntropyResult, error) {
	if len(points) < 2 {
		return EntropyResult{}, nil
	}
	dims := len(points[0])
	if d == 0 {
		bbox, err := PointsBBox(points)
		if err != nil {
			return EntropyResult{}, err
		}
		d = DefaultRadius(bbox)
	}

	tree := newKDTreeFlat(flatten(points, dims), len(points), dims, defaultLeafSize)
	counts := pairCounter{}
	for i, p := range points {
		for _, j := range tree.QueryRadius(p, d) {
			if j > i {
				counts[makeTypePair(types[i], types[j])]++
			}
		}
	}
	if len(counts) == 0 {
		return EntropyResult{}, nil
	}
	return EntropyResult{Value: bits(stat.Entropy(counts.distribution(counts.keys())))}, nil
}

func altieri(points [][]float64, types []string, cut int) (EntropyResult, error) {
	if len(points) < 2 {
		return EntropyResult{}, nil
	}
	dist := pairwiseDistances(points)
	var maxDist float64
	for _, v := range dist {
		maxDist = math.Max(maxDist, v)
	}
	width := maxDist / float64(cut)

	bands := make([]pairCounter, cut)
	for k := range bands {
		bands[k] = pairCounter{}
	}
	global := pairCounter{}
	pos := 0
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			k := 0
			if width > 0 {
				k = min(int(dist[pos]/width), cut-1)
			}
			pair := makeTypePair(types[i], types[j])
			bands[k][pair]++
			global[pair]++
			pos++
		}
	}

	keys := global.keys()
	pGlobal := global.distribution(keys)
	total := global.total()

	var residual, mutual float64
	for _, band := range bands {
		n := band.total()
		if n == 0 {
			continue
		}
		w := n / total
		pBand := band.distribution(keys)
		residual += w * bits(stat.Entropy(pBand))
		mutual += w * bits(stat.KullbackLeibler(pBand, pGlobal))
	}
	return EntropyResult{Value: residual, MutualInfo: mutual}, nil
}
