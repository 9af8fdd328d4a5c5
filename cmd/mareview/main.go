// Command mareview loads the lunar mare and crater data and drives the map
// core from the command line: one-shot filters and region summaries, an
// interactive control loop, and a dataset integrity check.
package main

import (
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/mare-crater-map/internal/config"
	"github.com/couchcryptid/mare-crater-map/internal/observability"
)

var (
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics

	modeFlag string
)

var rootCmd = &cobra.Command{
	Use:   "mareview",
	Short: "Lunar mare crater map",
	Long: "Loads mare outlines, mare metadata, and crater records, filters craters by diameter bin " +
		"or timestep, and renders map frames and region statistics as JSON lines or text.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if modeFlag != "" {
			if modeFlag != config.ModeBin && modeFlag != config.ModeTimestep {
				return eris.Errorf("--mode must be %s or %s", config.ModeBin, config.ModeTimestep)
			}
			c.FilterMode = modeFlag
		}
		cfg = c
		logger = observability.NewLogger(cfg)
		if metrics == nil {
			metrics = observability.NewMetrics()
		}
		return nil
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return writeMetrics()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "control mode: bin or timestep (default FILTER_MODE)")
}

// writeMetrics snapshots the default registry to METRICS_TEXTFILE for the
// node_exporter textfile collector.
func writeMetrics() error {
	if cfg == nil || cfg.MetricsTextfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(cfg.MetricsTextfile, prometheus.DefaultGatherer); err != nil {
		return eris.Wrapf(err, "write metrics to %s", cfg.MetricsTextfile)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
