package cli

import (
	"github.com/spf13/cobra"

	"github.com/TrevorS/spatialstat"
)

type shapeOutput struct {
	Region string  `json:"region"`
	WKT    string  `json:"wkt,omitempty"`
	Area   float64 `json:"area"`
	Error  string  `json:"error,omitempty"`
}

func newShapeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shape <points.csv>",
		Short: "Outline each region with a convex or concave hull",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readPoints(cmd, args[0])
			if err != nil {
				return err
			}
			method, err := spatialstat.ParseHullMethod(a.v.GetString("method"))
			if err != nil {
				return err
			}
			concavity := a.v.GetFloat64("concavity")

			out := make([]shapeOutput, len(table.points))
			for i, points := range table.points {
				out[i] = outlineRegion(table.regions[i], points, method, concavity)
			}
			return writeJSON(cmd, out)
		},
	}
	cmd.Flags().String("method", "convex", "hull: convex, concave")
	cmd.Flags().Float64("concavity", 2, "concave: carving aggressiveness (<= 0 gives the convex hull)")
	return cmd
}

func outlineRegion(region string, points [][]float64, method spatialstat.HullMethod, concavity float64) shapeOutput {
	out := shapeOutput{Region: region}
	hull, err := spatialstat.PointsShape(points, method, concavity)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	if out.WKT, err = spatialstat.PolygonToWKT(hull); err != nil {
		out.Error = err.Error()
		return out
	}
	if out.Area, err = spatialstat.PolygonArea(hull); err != nil {
		out.Error = err.Error()
	}
	return out
}
