package spatialstat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank_AverageTies(t *testing.T) {
	assert.Equal(t, []float64{2.5, 1, 2.5, 4}, rank([]float64{3, 1, 3, 7}))
	assert.Equal(t, []float64{2, 2, 2}, rank([]float64{5, 5, 5}))
	assert.Empty(t, rank(nil))
}

func TestPairwiseCorrelation_SelfIsOne(t *testing.T) {
	rows := [][]float64{
		{1, 2, 3, 4, 5},
		{2, 9, 1, 4, 4},
		{0.5, -1, 3, 8, 2},
	}
	for _, method := range []CorrelationMethod{Pearson, Spearman} {
		m, err := PairwiseCorrelation(rows, rows, method, DefaultConfig())
		require.NoError(t, err)
		require.Len(t, m, 3)
		for i := range rows {
			require.Len(t, m[i], 3)
			assert.InDelta(t, 1.0, m[i][i], 1e-12, "%s row %d", method, i)
			for j := range rows {
				assert.InDelta(t, m[i][j], m[j][i], 1e-12)
			}
		}
	}
}

func TestPairwiseCorrelation_PearsonHandComputed(t *testing.T) {
	a := [][]float64{{1, 2, 3}}
	b := [][]float64{{2, 4, 6}, {3, 2, 1}, {1, 3, 2}}
	m, err := PairwiseCorrelation(a, b, Pearson, DefaultConfig())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m[0][0], 1e-12)
	assert.InDelta(t, -1.0, m[0][1], 1e-12)
	assert.InDelta(t, 0.5, m[0][2], 1e-12)
}

func TestPairwiseCorrelation_SpearmanMonotoneInvariant(t *testing.T) {
	a := [][]float64{{0.3, 1.2, -0.7, 2.5, 0.9, 1.1}}
	b := [][]float64{{1, 5, 2, 2, 8, 3}}
	transformed := [][]float64{make([]float64, 6)}
	for i, v := range a[0] {
		transformed[0][i] = math.Exp(3*v) + 10
	}

	want, err := PairwiseCorrelation(a, b, Spearman, DefaultConfig())
	require.NoError(t, err)
	got, err := PairwiseCorrelation(transformed, b, Spearman, DefaultConfig())
	require.NoError(t, err)
	assert.InDelta(t, want[0][0], got[0][0], 1e-12)

	pearson, err := PairwiseCorrelation(transformed, b, Pearson, DefaultConfig())
	require.NoError(t, err)
	assert.NotEqual(t, want[0][0], pearson[0][0])
}

func TestPairwiseCorrelation_ParallelMatchesSequential(t *testing.T) {
	a := randomPoints(30, 3, 1, 51)
	b := randomPoints(17, 3, 1, 52)
	cfg := DefaultConfig()
	cfg.Workers = 1
	want, err := PairwiseCorrelation(a, b, Spearman, cfg)
	require.NoError(t, err)
	cfg.Workers = 6
	got, err := PairwiseCorrelation(a, b, Spearman, cfg)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPairwiseCorrelation_Validation(t *testing.T) {
	_, err := PairwiseCorrelation([][]float64{{1, 2}}, [][]float64{{1, 2}}, CorrelationMethod("kendall"), DefaultConfig())
	require.ErrorIs(t, err, ErrInvalidMethod)
	assert.Contains(t, err.Error(), "kendall not found, available options are pearson, spearman")

	_, err = PairwiseCorrelation([][]float64{{1, 2}}, [][]float64{{1, 2, 3}}, Pearson, DefaultConfig())
	assert.ErrorIs(t, err, ErrShapeMismatch)

	m, err := ParseCorrelationMethod("spearman")
	require.NoError(t, err)
	assert.Equal(t, Spearman, m)
}
