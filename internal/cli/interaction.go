package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TrevorS/spatialstat"
)

type interactionOutput struct {
	Region       string             `json:"region"`
	Types        []string           `json:"types,omitempty"`
	Composition  [][]int            `json:"composition,omitempty"`
	Interactions []interactionEntry `json:"interactions,omitempty"`
	Error        string             `json:"error,omitempty"`
}

type interactionEntry struct {
	TypeA    string  `json:"type_a"`
	TypeB    string  `json:"type_b"`
	Observed int     `json:"observed"`
	Low      float64 `json:"low"`
	High     float64 `json:"high"`
	PValue   float64 `json:"p_value"`
	Z        float64 `json:"z"`
	Relation string  `json:"relation"`
}

func newInteractionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interaction <points.csv>",
		Short: "Permutation test of type adjacency for every region",
		Long: "interaction builds a neighbor graph per region, reports each point's\n" +
			"neighbor type composition and tests every type pair for enriched or\n" +
			"depleted adjacency against label permutations.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readPoints(cmd, args[0])
			if err != nil {
				return err
			}
			if table.types == nil {
				return errors.New("interaction needs a type column")
			}
			method, err := neighborMethod(a)
			if err != nil {
				return err
			}
			graphs, err := spatialstat.PointsNeighborsBatch(table.points, nil, method, a.cfg)
			if err != nil {
				return err
			}

			iterations := a.v.GetInt("iterations")
			countSelf := a.v.GetBool("count-self")
			out := make([]interactionOutput, len(graphs))
			for i, g := range graphs {
				out[i] = interactionOutput{Region: table.regions[i]}
				if g.Err != nil {
					out[i].Error = g.Err.Error()
					continue
				}
				types := table.types[i]
				distinct, comp, err := spatialstat.NeighborComposition(g.Neighbors, nil, types, countSelf)
				if err != nil {
					out[i].Error = err.Error()
					continue
				}
				results, err := spatialstat.CombBootstrap(g.Neighbors, nil, types, iterations, a.cfg)
				if err != nil {
					out[i].Error = err.Error()
					continue
				}
				a.logger.Debug("interaction tested",
					zap.String("region", table.regions[i]),
					zap.Int("points", len(types)),
					zap.Int("pairs", len(results)))

				out[i].Types = distinct
				out[i].Composition = comp
				for _, r := range results {
					out[i].Interactions = append(out[i].Interactions, interactionEntry{
						TypeA:    r.TypeA,
						TypeB:    r.TypeB,
						Observed: r.Observed,
						Low:      r.Low,
						High:     r.High,
						PValue:   r.PValue,
						Z:        r.Z,
						Relation: r.Relation.String(),
					})
				}
			}
			return writeJSON(cmd, out)
		},
	}
	fs := cmd.Flags()
	fs.Int("iterations", 0, "label permutations (0 = 1000)")
	fs.Bool("count-self", true, "count each point's own type in its composition")
	addNeighborFlags(fs)
	return cmd
}
