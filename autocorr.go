package spatialstat

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// AutocorrResult holds a global autocorrelation statistic with its
// expectation and variance under the normality assumption.
type AutocorrResult struct {
	Value    float64
	Expected float64
	Variance float64
	ZScore   float64
	PValue   float64

	// Err is set by [SpatialAutocorr] when this row could not be computed.
	Err error
}

// AutocorrMethod selects the statistic computed by [SpatialAutocorr]. The
// concrete variants are [MoranI] and [GearyC].
type AutocorrMethod interface {
	autocorrMethod() string
}

// MoranI selects Moran's I. TwoTailed doubles the one-sided p-value.
type MoranI struct {
	TwoTailed bool
}

// GearyC selects Geary's C, always tested two-tailed.
type GearyC struct{}

func (MoranI) autocorrMethod() string { return "moran_i" }
func (GearyC) autocorrMethod() string { return "geary_c" }

var autocorrMethodNames = []string{"moran_i", "geary_c"}

// ParseAutocorrMethod maps a selector name to its method. Moran's I defaults
// to a two-tailed test.
func ParseAutocorrMethod(name string) (AutocorrMethod, error) {
	switch name {
	case "moran_i":
		return MoranI{TwoTailed: true}, nil
	case "geary_c":
		return GearyC{}, nil
	}
	return nil, optionsError(name, autocorrMethodNames)
}

// weightMoments caches the S0, S1 and S2 sums of a weight matrix.
type weightMoments struct {
	s0, s1, s2 float64
}

func moments(w *WeightMatrix) weightMoments {
	var m weightMoments
	m.s0 = w.Sum()

	for i := 0; i < w.N(); i++ {
		cols, vals := w.Row(i)
		for k, j := range cols {
			wji := w.At(j, i)
			s := vals[k] + wji
			m.s1 += s * s
			if wji == 0 {
				// (j, i) is not stored, so its ordered pair is counted here.
				m.s1 += vals[k] * vals[k]
			}
		}
	}
	m.s1 /= 2

	rows, cols := w.RowSums(), w.ColSums()
	for i := range rows {
		s := rows[i] + cols[i]
		m.s2 += s * s
	}
	return m
}

// deviations returns x minus its mean and the sum of squared deviations.
func deviations(x []float64) ([]float64, float64) {
	mean := stat.Mean(x, nil)
	z := make([]float64, len(x))
	var ss float64
	for i, v := range x {
		z[i] = v - mean
		ss += z[i] * z[i]
	}
	return z, ss
}

func checkAutocorrInput(x []float64, w *WeightMatrix) error {
	if len(x) != w.N() {
		return shapeError("feature row", len(x), w.N())
	}
	if len(x) < 2 {
		return fmt.Errorf("%w: need at least 2 points, got %d", ErrDegenerateInput, len(x))
	}
	return nil
}

var stdNormal = distuv.UnitNormal

// normalPValue converts a z-score to a p-value from the upper tail of the
// standard normal, doubled for a two-tailed test.
func normalPValue(z float64, twoTailed bool) float64 {
	p := stdNormal.Survival(math.Abs(z))
	if twoTailed {
		p *= 2
	}
	return math.Min(p, 1)
}

// MoransI computes Moran's I of x over w.
func MoransI(x []float64, w *WeightMatrix, twoTailed bool) (AutocorrResult, error) {
	if err := checkAutocorrInput(x, w); err != nil {
		return AutocorrResult{}, err
	}
	m := moments(w)
	if m.s0 == 0 {
		return AutocorrResult{}, fmt.Errorf("%w: total weight is zero", ErrDegenerateInput)
	}
	z, ss := deviations(x)
	if ss == 0 {
		return AutocorrResult{}, fmt.Errorf("%w: feature row is constant", ErrDegenerateInput)
	}

	var cross float64
	for i := 0; i < w.N(); i++ {
		cols, vals := w.Row(i)
		for k, j := range cols {
			cross += vals[k] * z[i] * z[j]
		}
	}

	n := float64(len(x))
	value := n / m.s0 * cross / ss
	expected := -1 / (n - 1)
	s02 := m.s0 * m.s0
	variance := (n*n*m.s1-n*m.s2+3*s02)/((n-1)*(n+1)*s02) - expected*expected
	if variance <= 0 {
		return AutocorrResult{}, fmt.Errorf("%w: Moran's I variance is %g", ErrDegenerateInput, variance)
	}

	zs := (value - expected) / math.Sqrt(variance)
	return AutocorrResult{
		Value:    value,
		Expected: expected,
		Variance: variance,
		ZScore:   zs,
		PValue:   normalPValue(zs, twoTailed),
	}, nil
}

// GearysC computes Geary's C of x over w.
func GearysC(x []float64, w *WeightMatrix) (AutocorrResult, error) {
	if err := checkAutocorrInput(x, w); err != nil {
		return AutocorrResult{}, err
	}
	m := moments(w)
	if m.s0 == 0 {
		return AutocorrResult{}, fmt.Errorf("%w: total weight is zero", ErrDegenerateInput)
	}
	_, ss := deviations(x)
	if ss == 0 {
		return AutocorrResult{}, fmt.Errorf("%w: feature row is constant", ErrDegenerateInput)
	}

	var num float64
	for i := 0; i < w.N(); i++ {
		cols, vals := w.Row(i)
		for k, j := range cols {
			d := x[i] - x[j]
			num += vals[k] * d * d
		}
	}

	n := float64(len(x))
	value := (n - 1) / (2 * m.s0) * num / ss
	s02 := m.s0 * m.s0
	variance := ((2*m.s1+m.s2)*(n-1) - 4*s02) / (2 * (n + 1) * s02)
	if variance <= 0 {
		return AutocorrResult{}, fmt.Errorf("%w: Geary's C variance is %g", ErrDegenerateInput, variance)
	}

	zs := (value - 1) / math.Sqrt(variance)
	return AutocorrResult{
		Value:    value,
		Expected: 1,
		Variance: variance,
		ZScore:   zs,
		PValue:   normalPValue(zs, true),
	}, nil
}

// SpatialAutocorr computes the chosen statistic for every feature row over
// one shared neighbor graph. The weight matrix is built once; rows run in
// parallel and a failing row only sets its own Err.
func SpatialAutocorr(rows [][]float64, neighbors [][]int, labels []int, method AutocorrMethod, cfg Config) ([]AutocorrResult, error) {
	if err := prepareConfig(&cfg); err != nil {
		return nil, err
	}
	var compute func(x []float64, w *WeightMatrix) (AutocorrResult, error)
	switch m := method.(type) {
	case MoranI:
		compute = func(x []float64, w *WeightMatrix) (AutocorrResult, error) {
			return MoransI(x, w, m.TwoTailed)
		}
	case GearyC:
		compute = GearysC
	case nil:
		return nil, optionsError("<nil>", autocorrMethodNames)
	default:
		return nil, optionsError(method.autocorrMethod(), autocorrMethodNames)
	}

	w, err := SpatialWeights(neighbors, labels)
	if err != nil {
		return nil, err
	}

	return parallelMap(len(rows), cfg.Workers, func(i int) AutocorrResult {
		r, err := compute(rows[i], w)
		if err != nil {
			cfg.Logger.Debug("autocorrelation row skipped", zap.Int("row", i), zap.Error(err))
			return AutocorrResult{Err: fmt.Errorf("row %d: %w", i, err)}
		}
		return r
	}), nil
}
