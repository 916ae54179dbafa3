package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TrevorS/spatialstat"
)

type autocorrOutput struct {
	Feature  int     `json:"feature"`
	Value    float64 `json:"value"`
	Expected float64 `json:"expected"`
	Variance float64 `json:"variance"`
	ZScore   float64 `json:"z_score"`
	PValue   float64 `json:"p_value"`
	Error    string  `json:"error,omitempty"`
}

func newAutocorrCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autocorr <points.csv> <features.csv>",
		Short: "Global Moran's I or Geary's C for every feature row",
		Long: "autocorr builds a neighbor graph over a single region of points and tests\n" +
			"each row of the feature matrix (one column per point) for spatial\n" +
			"autocorrelation.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readPoints(cmd, args[0])
			if err != nil {
				return err
			}
			if err := table.single(); err != nil {
				return err
			}
			rows, err := readMatrix(cmd, args[1])
			if err != nil {
				return err
			}
			method, err := spatialstat.ParseAutocorrMethod(a.v.GetString("method"))
			if err != nil {
				return err
			}
			if _, ok := method.(spatialstat.MoranI); ok && a.v.GetBool("one-tailed") {
				method = spatialstat.MoranI{TwoTailed: false}
			}
			nm, err := neighborMethod(a)
			if err != nil {
				return err
			}
			neighbors, err := spatialstat.PointsNeighbors(table.points[0], nil, nm)
			if err != nil {
				return fmt.Errorf("building neighbors: %w", err)
			}

			results, err := spatialstat.SpatialAutocorr(rows, neighbors, nil, method, a.cfg)
			if err != nil {
				return err
			}
			out := make([]autocorrOutput, len(results))
			for i, r := range results {
				out[i] = autocorrOutput{
					Feature:  i,
					Value:    r.Value,
					Expected: r.Expected,
					Variance: r.Variance,
					ZScore:   r.ZScore,
					PValue:   r.PValue,
					Error:    errString(r.Err),
				}
			}
			return writeJSON(cmd, out)
		},
	}
	cmd.Flags().String("method", "moran_i", "statistic: moran_i, geary_c")
	cmd.Flags().Bool("one-tailed", false, "one-tailed p-value for Moran's I")
	addNeighborFlags(cmd.Flags())
	return cmd
}
