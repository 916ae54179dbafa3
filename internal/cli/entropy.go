package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/TrevorS/spatialstat"
)

type entropyOutput struct {
	Region     string  `json:"region"`
	Value      float64 `json:"value"`
	MutualInfo float64 `json:"mutual_info,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func newEntropyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entropy <points.csv>",
		Short: "Co-occurrence entropy of point types for every region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readPoints(cmd, args[0])
			if err != nil {
				return err
			}
			if table.types == nil {
				return errors.New("entropy needs a type column")
			}
			method, err := spatialstat.ParseEntropyMethod(a.v.GetString("method"))
			if err != nil {
				return err
			}
			switch method.(type) {
			case spatialstat.Leibovici:
				method = spatialstat.Leibovici{Distance: a.v.GetFloat64("distance")}
			case spatialstat.Altieri:
				method = spatialstat.Altieri{Cut: a.v.GetInt("cut")}
			}

			results, err := spatialstat.SpatialEntropy(table.points, table.types, method, a.cfg)
			if err != nil {
				return err
			}
			out := make([]entropyOutput, len(results))
			for i, r := range results {
				out[i] = entropyOutput{
					Region:     table.regions[i],
					Value:      r.Value,
					MutualInfo: r.MutualInfo,
					Error:      errString(r.Err),
				}
			}
			return writeJSON(cmd, out)
		},
	}
	fs := cmd.Flags()
	fs.String("method", "leibovici", "entropy: leibovici, altieri")
	fs.Float64("distance", 0, "leibovici: pair distance (0 = 10% of each region's shortest side)")
	fs.Int("cut", 0, "altieri: number of distance bands (0 = 3)")
	return cmd
}
