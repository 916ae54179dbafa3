package cli

import (
	"github.com/spf13/cobra"

	"github.com/TrevorS/spatialstat"
)

type hotspotOutput struct {
	Region   string `json:"region"`
	Hotspots []bool `json:"hotspots"`
	Error    string `json:"error,omitempty"`
}

func newHotspotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hotspot <points.csv>",
		Short: "Flag points in Getis-Ord Gi* hotspot quadrats",
		Long: "hotspot lays a quadrat grid over the shared bounding box and flags every\n" +
			"point whose quadrat is significant. A value column weights the points;\n" +
			"without one every point counts 1.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readPoints(cmd, args[0])
			if err != nil {
				return err
			}
			bbox, err := parseBBox(a.v.GetString("bbox"), table.all())
			if err != nil {
				return err
			}
			quad, side, err := gridFlags(a)
			if err != nil {
				return err
			}
			opts := spatialstat.HotspotOptions{
				SearchLevel: a.v.GetInt("search-level"),
				Quad:        quad,
				RectSide:    side,
			}

			results, err := spatialstat.HotspotBatch(table.points, table.values, bbox, opts, a.cfg)
			if err != nil {
				return err
			}
			out := make([]hotspotOutput, len(results))
			for i, r := range results {
				out[i] = hotspotOutput{Region: table.regions[i], Hotspots: r.Flags, Error: errString(r.Err)}
			}
			return writeJSON(cmd, out)
		},
	}
	fs := cmd.Flags()
	fs.String("bbox", "", "shared bounding box minx,miny,maxx,maxy (default: all points)")
	fs.Int("search-level", spatialstat.DefaultHotspotOptions().SearchLevel, "rings of neighboring quadrats in each local sum")
	fs.String("quad", "", "quadrat grid nx,ny (default 10,10)")
	fs.String("rect-side", "", "quadrat size w,h")
	return cmd
}
