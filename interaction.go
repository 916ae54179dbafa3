package spatialstat

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// NeighborComposition counts, for every point, how many of its neighbors
// belong to each type. It returns the sorted distinct types and one count
// row per point aligned with them. A point's own entry in its neighbor row
// is counted only when countSelf is set; repeated neighbors count once.
func NeighborComposition(neighbors [][]int, labels []int, types []string, countSelf bool) ([]string, [][]int, error) {
	g, err := newTypedGraph(neighbors, labels, types)
	if err != nil {
		return nil, nil, err
	}

	counts := make([][]int, len(neighbors))
	for i, row := range g.adj {
		c := make([]int, len(g.types))
		if countSelf && g.self[i] {
			c[g.typeOf[i]]++
		}
		for _, j := range row {
			c[g.typeOf[j]]++
		}
		counts[i] = c
	}
	return g.types, counts, nil
}

// Relation is the outcome of an adjacency enrichment test.
type Relation int

const (
	Neutral Relation = iota
	Enriched
	Depleted
)

func (r Relation) String() string {
	switch r {
	case Enriched:
		return "enriched"
	case Depleted:
		return "depleted"
	default:
		return "neutral"
	}
}

// Interaction is the adjacency test result for one unordered type pair.
// Low and High are the cfg.PValue and 1-cfg.PValue quantiles of the
// permutation null distribution. PValue is the empirical p-value of the
// observed count in its nearer tail, counted over iterations+1. Z is the
// observed count standardized by the null mean and standard deviation, or 0
// when the null is constant.
type Interaction struct {
	TypeA, TypeB string
	Observed     int
	Low, High    float64
	PValue       float64
	Z            float64
	Relation     Relation
}

const defaultIterations = 1000

// CombBootstrap tests every unordered type pair (same-type pairs included)
// for adjacency enrichment. The observed statistic is the number of
// distinct neighbor edges (self loops excluded) joining the two types; the
// null distribution comes from iterations random permutations of the type
// labels over a fixed graph. A pair is Enriched when the observed count is
// at or above the upper quantile and Depleted when at or below the lower
// one. Results are sorted by (TypeA, TypeB) and depend only on cfg.Seed.
func CombBootstrap(neighbors [][]int, labels []int, types []string, iterations int, cfg Config) ([]Interaction, error) {
	if err := prepareConfig(&cfg); err != nil {
		return nil, err
	}
	if iterations == 0 {
		iterations = defaultIterations
	}
	if iterations < 1 {
		return nil, fmt.Errorf("spatialstat: iterations must be >= 1, got %d", iterations)
	}
	g, err := newTypedGraph(neighbors, labels, types)
	if err != nil {
		return nil, err
	}
	edges := g.edges()
	nt := len(g.types)

	observed := pairCounts(edges, g.typeOf, nt)
	null := parallelMap(iterations, cfg.Workers, func(it int) []int {
		rng := rand.New(rand.NewPCG(cfg.Seed, uint64(it)))
		perm := append([]int(nil), g.typeOf...)
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		return pairCounts(edges, perm, nt)
	})

	var out []Interaction
	sample := make([]float64, iterations)
	for a := 0; a < nt; a++ {
		for b := a; b < nt; b++ {
			k := a*nt + b
			for it, c := range null {
				sample[it] = float64(c[k])
			}
			sort.Float64s(sample)
			low := stat.Quantile(cfg.PValue, stat.Empirical, sample, nil)
			high := stat.Quantile(1-cfg.PValue, stat.Empirical, sample, nil)
			obs := float64(observed[k])

			rel := Neutral
			switch up, down := obs >= high, obs <= low; {
			case up && !down:
				rel = Enriched
			case down && !up:
				rel = Depleted
			}
			out = append(out, Interaction{
				TypeA:    g.types[a],
				TypeB:    g.types[b],
				Observed: observed[k],
				Low:      low,
				High:     high,
				PValue:   empiricalPValue(obs, sample),
				Z:        zScore(obs, sample),
				Relation: rel,
			})
		}
	}
	return out, nil
}

// neighborGraph is a neighbor list resolved to positions.
type neighborGraph struct {
	adj  [][]int // distinct neighbor positions, self excluded
	self []bool  // whether the row listed the point itself
}

func newNeighborGraph(neighbors [][]int, labels []int) (*neighborGraph, error) {
	labels, err := resolveLabels(labels, len(neighbors))
	if err != nil {
		return nil, err
	}
	pos := labelIndex(labels)
	g := &neighborGraph{
		adj:  make([][]int, len(neighbors)),
		self: make([]bool, len(neighbors)),
	}
	for i, row := range neighbors {
		seen := make(map[int]struct{}, len(row))
		for _, l := range row {
			j, ok := pos[l]
			if !ok {
				return nil, unknownLabelError(i, l)
			}
			if j == i {
				g.self[i] = true
				continue
			}
			if _, dup := seen[j]; dup {
				continue
			}
			seen[j] = struct{}{}
			g.adj[i] = append(g.adj[i], j)
		}
	}
	return g, nil
}

// typedGraph is a neighbor graph with a type per position.
type typedGraph struct {
	*neighborGraph
	types  []string // sorted distinct types
	typeOf []int    // position -> index into types
}

func newTypedGraph(neighbors [][]int, labels []int, types []string) (*typedGraph, error) {
	if len(types) != len(neighbors) {
		return nil, shapeError("types", len(types), len(neighbors))
	}
	ng, err := newNeighborGraph(neighbors, labels)
	if err != nil {
		return nil, err
	}

	distinct := make(map[string]struct{})
	for _, t := range types {
		distinct[t] = struct{}{}
	}
	g := &typedGraph{neighborGraph: ng, typeOf: make([]int, len(types))}
	for t := range distinct {
		g.types = append(g.types, t)
	}
	sort.Strings(g.types)
	index := make(map[string]int, len(g.types))
	for i, t := range g.types {
		index[t] = i
	}
	for i, t := range types {
		g.typeOf[i] = index[t]
	}
	return g, nil
}

// edges returns every distinct undirected edge once as (i, j), i < j.
func (g *neighborGraph) edges() [][2]int {
	set := make(map[[2]int]struct{})
	var out [][2]int
	for i, row := range g.adj {
		for _, j := range row {
			e := [2]int{min(i, j), max(i, j)}
			if _, ok := set[e]; ok {
				continue
			}
			set[e] = struct{}{}
			out = append(out, e)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a][0] != out[b][0] {
			return out[a][0] < out[b][0]
		}
		return out[a][1] < out[b][1]
	})
	return out
}

// pairCounts tallies edges by unordered type pair into an nt×nt row-major
// table whose upper triangle (a <= b) is filled.
func pairCounts(edges [][2]int, typeOf []int, nt int) []int {
	c := make([]int, nt*nt)
	for _, e := range edges {
		a, b := typeOf[e[0]], typeOf[e[1]]
		if a > b {
			a, b = b, a
		}
		c[a*nt+b]++
	}
	return c
}

// empiricalPValue returns the share of the null sample at or beyond obs in
// its nearer tail, with iterations+1 in the denominator.
func empiricalPValue(obs float64, null []float64) float64 {
	var gt, lt float64
	for _, v := range null {
		if v >= obs {
			gt++
		}
		if v <= obs {
			lt++
		}
	}
	return min(gt, lt) / float64(len(null)+1)
}

// zScore standardizes obs against the null sample; a constant null gives 0.
func zScore(obs float64, null []float64) float64 {
	mean, sd := stat.MeanStdDev(null, nil)
	if !(sd > 0) {
		return 0
	}
	return (obs - mean) / sd
}

// MarkerInteraction is the co-expression test result for one marker pair.
type MarkerInteraction struct {
	MarkerA, MarkerB string
	Observed         int
	Z                float64
	PValue           float64
	Relation         Relation
}

// MarkerBootstrap tests whether points expressing one marker sit next to
// points expressing another more (Enriched) or less (Depleted) often than
// chance. expression holds one row per marker and one column per point.
//
// For a pair (A, B) the observed statistic counts, over every distinct
// neighbor edge in both directions, the ends where the source expresses A
// and the target expresses B. The null distribution permutes B's
// expression over the points and keeps A fixed. The one-tailed normal
// p-value of the z-score decides significance against cfg.PValue; a
// constant null is Neutral with PValue 1.
//
// Pairs are taken with replacement in marker order. When ordered is set,
// (B, A) is tested separately with A permuted instead; otherwise only
// (A, B) is reported.
func MarkerBootstrap(expression [][]bool, markers []string, neighbors [][]int, labels []int, ordered bool, iterations int, cfg Config) ([]MarkerInteraction, error) {
	if err := prepareConfig(&cfg); err != nil {
		return nil, err
	}
	if iterations == 0 {
		iterations = defaultIterations
	}
	if iterations < 1 {
		return nil, fmt.Errorf("spatialstat: iterations must be >= 1, got %d", iterations)
	}
	if len(expression) != len(markers) {
		return nil, shapeError("expression rows", len(expression), len(markers))
	}
	for m, row := range expression {
		if len(row) != len(neighbors) {
			return nil, fmt.Errorf("marker %q: %w", markers[m], shapeError("expression columns", len(row), len(neighbors)))
		}
	}
	g, err := newNeighborGraph(neighbors, labels)
	if err != nil {
		return nil, err
	}
	edges := g.edges()

	type job struct{ x, y int }
	var jobs []job
	for a := range markers {
		for b := a; b < len(markers); b++ {
			jobs = append(jobs, job{a, b})
			if ordered && a != b {
				jobs = append(jobs, job{b, a})
			}
		}
	}

	return parallelMap(len(jobs), cfg.Workers, func(i int) MarkerInteraction {
		x, y := expression[jobs[i].x], expression[jobs[i].y]
		rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
		obs := coExpressed(edges, x, y)
		null := make([]float64, iterations)
		shuffled := append([]bool(nil), y...)
		for it := range null {
			rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
			null[it] = float64(coExpressed(edges, x, shuffled))
		}

		r := MarkerInteraction{
			MarkerA:  markers[jobs[i].x],
			MarkerB:  markers[jobs[i].y],
			Observed: obs,
			PValue:   1,
		}
		if mean, sd := stat.MeanStdDev(null, nil); sd > 0 {
			r.Z = (float64(obs) - mean) / sd
			r.PValue = normalPValue(r.Z, false)
			switch {
			case r.PValue >= cfg.PValue:
			case r.Z > 0:
				r.Relation = Enriched
			case r.Z < 0:
				r.Relation = Depleted
			}
		}
		return r
	}), nil
}

// coExpressed counts directed edge ends with x at the source and y at the
// target, taking each undirected edge both ways.
func coExpressed(edges [][2]int, x, y []bool) int {
	n := 0
	for _, e := range edges {
		if x[e[0]] && y[e[1]] {
			n++
		}
		if x[e[1]] && y[e[0]] {
			n++
		}
	}
	return n
}
