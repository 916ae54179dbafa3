package cli

import (
	"math"

	"github.com/spf13/cobra"

	"github.com/TrevorS/spatialstat"
)

func newCorrCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corr <a.csv> [b.csv]",
		Short: "Pairwise row correlations between two matrices",
		Long: "corr correlates every row of the first matrix with every row of the\n" +
			"second (or of the first again when only one is given). Undefined\n" +
			"coefficients, such as those of constant rows, are written as null.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ma, err := readMatrix(cmd, args[0])
			if err != nil {
				return err
			}
			mb := ma
			if len(args) == 2 {
				if mb, err = readMatrix(cmd, args[1]); err != nil {
					return err
				}
			}
			method, err := spatialstat.ParseCorrelationMethod(a.v.GetString("method"))
			if err != nil {
				return err
			}

			m, err := spatialstat.PairwiseCorrelation(ma, mb, method, a.cfg)
			if err != nil {
				return err
			}
			out := make([][]*float64, len(m))
			for i, row := range m {
				out[i] = make([]*float64, len(row))
				for j, v := range row {
					if !math.IsNaN(v) {
						out[i][j] = &row[j]
					}
				}
			}
			return writeJSON(cmd, out)
		},
	}
	cmd.Flags().String("method", "pearson", "coefficient: pearson, spearman")
	return cmd
}
