package spatialstat

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// WeightMatrix is a row-stochastic sparse spatial weight matrix in
// compressed sparse row form. Row i holds the neighbors of the point at
// position i; column indices are positions as well. Labels maps positions
// back to the caller's labels.
type WeightMatrix struct {
	Indptr  []int
	Indices []int
	Data    []float64
	Labels  []int
}

// SpatialWeights converts a neighbor list into a row-normalized weight
// matrix. neighbors[i] lists labels; each distinct neighbor of row i gets
// weight 1/degree_i where the degree counts self when present. labels may be
// nil for positional labels.
func SpatialWeights(neighbors [][]int, labels []int) (*WeightMatrix, error) {
	labels, err := resolveLabels(labels, len(neighbors))
	if err != nil {
		return nil, err
	}
	pos := labelIndex(labels)

	n := len(neighbors)
	w := &WeightMatrix{
		Indptr: make([]int, n+1),
		Labels: append([]int(nil), labels...),
	}
	for i, row := range neighbors {
		cols := make([]int, 0, len(row))
		for _, l := range row {
			j, ok := pos[l]
			if !ok {
				return nil, unknownLabelError(i, l)
			}
			cols = append(cols, j)
		}
		sort.Ints(cols)
		cols = dedupSorted(cols)

		var weight float64
		if len(cols) > 0 {
			weight = 1 / float64(len(cols))
		}
		for _, j := range cols {
			w.Indices = append(w.Indices, j)
			w.Data = append(w.Data, weight)
		}
		w.Indptr[i+1] = len(w.Indices)
	}
	return w, nil
}

func dedupSorted(s []int) []int {
	if len(s) < 2 {
		return s
	}
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// N returns the number of rows (and columns).
func (w *WeightMatrix) N() int { return len(w.Indptr) - 1 }

// NNZ returns the number of stored entries.
func (w *WeightMatrix) NNZ() int { return len(w.Data) }

// Row returns the column indices and weights of row i. The slices alias the
// matrix storage.
func (w *WeightMatrix) Row(i int) ([]int, []float64) {
	lo, hi := w.Indptr[i], w.Indptr[i+1]
	return w.Indices[lo:hi], w.Data[lo:hi]
}

// At returns the weight at (i, j), zero if absent.
func (w *WeightMatrix) At(i, j int) float64 {
	cols, vals := w.Row(i)
	k := sort.SearchInts(cols, j)
	if k < len(cols) && cols[k] == j {
		return vals[k]
	}
	return 0
}

// RowSums returns the sum of each row.
func (w *WeightMatrix) RowSums() []float64 {
	out := make([]float64, w.N())
	for i := range out {
		_, vals := w.Row(i)
		for _, v := range vals {
			out[i] += v
		}
	}
	return out
}

// ColSums returns the sum of each column.
func (w *WeightMatrix) ColSums() []float64 {
	out := make([]float64, w.N())
	for k, j := range w.Indices {
		out[j] += w.Data[k]
	}
	return out
}

// Sum returns the total weight S0.
func (w *WeightMatrix) Sum() float64 {
	var s float64
	for _, v := range w.Data {
		s += v
	}
	return s
}

// Dense expands the matrix into a gonum dense matrix. An empty matrix yields
// nil since gonum does not allow zero-sized dense matrices.
func (w *WeightMatrix) Dense() *mat.Dense {
	n := w.N()
	if n == 0 {
		return nil
	}
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		cols, vals := w.Row(i)
		for k, j := range cols {
			d.Set(i, j, vals[k])
		}
	}
	return d
}
