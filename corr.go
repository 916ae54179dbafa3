package spatialstat

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// CorrelationMethod names a correlation coefficient.
type CorrelationMethod string

const (
	Pearson  CorrelationMethod = "pearson"
	Spearman CorrelationMethod = "spearman"
)

var correlationMethodNames = []string{string(Pearson), string(Spearman)}

// ParseCorrelationMethod validates a correlation method name.
func ParseCorrelationMethod(name string) (CorrelationMethod, error) {
	switch m := CorrelationMethod(name); m {
	case Pearson, Spearman:
		return m, nil
	}
	return "", optionsError(name, correlationMethodNames)
}

// PairwiseCorrelation returns the len(a)×len(b) matrix of correlations
// between every row of a and every row of b. All rows must have the same
// length. Rows of a are processed in parallel. A constant row yields NaN.
func PairwiseCorrelation(a, b [][]float64, method CorrelationMethod, cfg Config) ([][]float64, error) {
	if err := prepareConfig(&cfg); err != nil {
		return nil, err
	}
	if _, err := ParseCorrelationMethod(string(method)); err != nil {
		return nil, err
	}

	width := -1
	for _, m := range []struct {
		name string
		rows [][]float64
	}{{"a", a}, {"b", b}} {
		for i, r := range m.rows {
			if width < 0 {
				width = len(r)
			}
			if len(r) != width {
				return nil, fmt.Errorf("%s row %d: %w", m.name, i, shapeError("row", len(r), width))
			}
		}
	}

	if method == Spearman {
		a = rankRows(a, cfg.Workers)
		b = rankRows(b, cfg.Workers)
	}

	return parallelMap(len(a), cfg.Workers, func(i int) []float64 {
		row := make([]float64, len(b))
		for j := range b {
			row[j] = stat.Correlation(a[i], b[j], nil)
		}
		return row
	}), nil
}

func rankRows(rows [][]float64, workers int) [][]float64 {
	return parallelMap(len(rows), workers, func(i int) []float64 {
		return rank(rows[i])
	})
}

// rank returns 1-based ranks of x, giving tied values the mean of the ranks
// they span.
func rank(x []float64) []float64 {
	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return x[order[i]] < x[order[j]] })

	ranks := make([]float64, len(x))
	for lo := 0; lo < len(order); {
		hi := lo + 1
		for hi < len(order) && x[order[hi]] == x[order[lo]] {
			hi++
		}
		// positions lo..hi-1 hold ranks lo+1..hi
		avg := float64(lo+hi+1) / 2
		for k := lo; k < hi; k++ {
			ranks[order[k]] = avg
		}
		lo = hi
	}
	return ranks
}
