// Package cli implements the spatialstat command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/TrevorS/spatialstat"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// envPrefix maps settings such as --min-cells to SPATIALSTAT_MIN_CELLS.
const envPrefix = "SPATIALSTAT"

// app carries the state every subcommand shares. It is filled in by the
// root command's PersistentPreRunE.
type app struct {
	v      *viper.Viper
	logger *zap.Logger
	cfg    spatialstat.Config
}

// NewRootCommand builds the root command with its global flags and all
// subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "spatialstat",
		Short: "Spatial statistics over point clouds",
		Long: "spatialstat computes neighbor graphs, spatial autocorrelation, distribution\n" +
			"patterns, co-occurrence entropy, hotspots and cell-type interactions from\n" +
			"CSV point tables. Results are written to stdout as JSON.",
		Version:       fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	defaults := spatialstat.DefaultConfig()
	pf := cmd.PersistentFlags()
	pf.String("config", "", "optional YAML file with flag defaults")
	pf.Int("workers", 0, "worker goroutines for batched work (0 = all CPUs)")
	pf.Uint64("seed", 0, "seed for Monte-Carlo steps")
	pf.Float64("pvalue", defaults.PValue, "significance threshold")
	pf.Int("min-cells", defaults.MinCells, "minimum points per region (per quadrat for hotspots)")
	pf.BoolP("verbose", "v", false, "development logging at debug level")

	cmd.AddCommand(
		newNeighborsCmd(a),
		newAutocorrCmd(a),
		newPatternCmd(a),
		newEntropyCmd(a),
		newHotspotCmd(a),
		newCorrCmd(a),
		newShapeCmd(a),
		newInteractionCmd(a),
	)
	return cmd
}

// init binds flags and SPATIALSTAT_* environment variables, reads the
// optional config file, and builds the logger and engine config.
// Precedence: flags > env > file > defaults.
func (a *app) init(cmd *cobra.Command) error {
	a.v.SetConfigType("yaml")
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", path, err)
		}
	}

	logger, err := newLogger(a.v.GetBool("verbose"))
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	a.logger = logger

	a.cfg = spatialstat.Config{
		Workers:  a.v.GetInt("workers"),
		Seed:     a.v.GetUint64("seed"),
		PValue:   a.v.GetFloat64("pvalue"),
		MinCells: a.v.GetInt("min-cells"),
		Logger:   logger,
	}
	logger.Debug("configuration loaded",
		zap.String("command", cmd.Name()),
		zap.Int("workers", a.cfg.Workers),
		zap.Uint64("seed", a.cfg.Seed),
		zap.Float64("pvalue", a.cfg.PValue),
		zap.Int("min_cells", a.cfg.MinCells))
	return nil
}

// newLogger writes to stderr so stdout carries only results.
func newLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if verbose {
		zc = zap.NewDevelopmentConfig()
	}
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// writeJSON prints v as indented JSON on the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// errString renders a per-item error for JSON output.
func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
