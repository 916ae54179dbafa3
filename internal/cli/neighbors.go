package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/TrevorS/spatialstat"
)

type neighborsOutput struct {
	Region     string  `json:"region"`
	Neighbors  [][]int `json:"neighbors,omitempty"`
	Components []int   `json:"components,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func newNeighborsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "neighbors <points.csv>",
		Short: "Build per-point neighbor lists for every region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readPoints(cmd, args[0])
			if err != nil {
				return err
			}
			method, err := neighborMethod(a)
			if err != nil {
				return err
			}
			results, err := spatialstat.PointsNeighborsBatch(table.points, nil, method, a.cfg)
			if err != nil {
				return err
			}
			out := make([]neighborsOutput, len(results))
			for i, r := range results {
				out[i] = neighborsOutput{Region: table.regions[i], Neighbors: r.Neighbors, Error: errString(r.Err)}
				if r.Err != nil {
					continue
				}
				if out[i].Components, err = spatialstat.NeighborComponents(r.Neighbors, nil); err != nil {
					return err
				}
			}
			return writeJSON(cmd, out)
		},
	}
	addNeighborFlags(cmd.Flags())
	return cmd
}

// addNeighborFlags registers the flags read by neighborMethod.
func addNeighborFlags(fs *pflag.FlagSet) {
	fs.String("neighbor-method", "kdtree", "neighbor search: kdtree, delaunay")
	fs.Float64("radius", 0, "kdtree search radius (0 = unset)")
	fs.Int("k", 0, "kdtree nearest-neighbor count, self included (0 = unset)")
}

func neighborMethod(a *app) (spatialstat.NeighborMethod, error) {
	m, err := spatialstat.ParseNeighborMethod(a.v.GetString("neighbor-method"))
	if err != nil {
		return nil, err
	}
	if _, ok := m.(spatialstat.KDTreeSearch); ok {
		return spatialstat.KDTreeSearch{Radius: a.v.GetFloat64("radius"), K: a.v.GetInt("k")}, nil
	}
	return m, nil
}
