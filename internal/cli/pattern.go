package cli

import (
	"github.com/spf13/cobra"

	"github.com/TrevorS/spatialstat"
)

type patternOutput struct {
	Region  string  `json:"region"`
	Index   float64 `json:"index"`
	PValue  float64 `json:"p_value"`
	Pattern string  `json:"pattern"`
	Error   string  `json:"error,omitempty"`
}

func newPatternCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pattern <points.csv>",
		Short: "Classify each region as random, regular or clustered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readPoints(cmd, args[0])
			if err != nil {
				return err
			}
			bbox, err := parseBBox(a.v.GetString("bbox"), table.all())
			if err != nil {
				return err
			}
			method, err := patternMethod(a)
			if err != nil {
				return err
			}

			results, err := spatialstat.DistributionPattern(table.points, bbox, method, a.cfg)
			if err != nil {
				return err
			}
			out := make([]patternOutput, len(results))
			for i, r := range results {
				out[i] = patternOutput{
					Region:  table.regions[i],
					Index:   r.Index,
					PValue:  r.PValue,
					Pattern: r.Pattern.String(),
					Error:   errString(r.Err),
				}
			}
			return writeJSON(cmd, out)
		},
	}
	fs := cmd.Flags()
	fs.String("method", "id", "index: id, morisita, clark_evans")
	fs.String("bbox", "", "shared bounding box: minx,miny,maxx,maxy or minx,miny,minz,maxx,maxy,maxz (default: all points)")
	fs.Float64("radius", 0, "id: sampling window radius (0 = 10% of the shortest side)")
	fs.Int("resample", 0, "id: number of sampling windows (0 = 1000)")
	fs.String("quad", "", "morisita: quadrat grid nx,ny")
	fs.String("rect-side", "", "morisita: quadrat size w,h")
	return cmd
}

func patternMethod(a *app) (spatialstat.PatternMethod, error) {
	m, err := spatialstat.ParsePatternMethod(a.v.GetString("method"))
	if err != nil {
		return nil, err
	}
	switch m.(type) {
	case spatialstat.IndexOfDispersion:
		return spatialstat.IndexOfDispersion{
			Radius:   a.v.GetFloat64("radius"),
			Resample: a.v.GetInt("resample"),
		}, nil
	case spatialstat.Morisita:
		quad, side, err := gridFlags(a)
		if err != nil {
			return nil, err
		}
		return spatialstat.Morisita{Quad: quad, RectSide: side}, nil
	}
	return m, nil
}
