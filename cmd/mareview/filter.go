package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	filterValue      int
	filterRegion     string
	filterNoMarkers  bool
	filterNoGeometry bool
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Render one frame for a control value",
	Long: "Loads the dataset, renders the base layer and the crater frame for --value, and " +
		"optionally the region panel for --region, as JSON lines on stdout.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(cfg, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.close()
		a.console.OmitMarkers = filterNoMarkers
		a.console.OmitGeometry = filterNoGeometry

		if err := a.load(ctx); err != nil {
			return err
		}
		if filterRegion != "" {
			if _, err := a.controller.SelectRegion(ctx, filterRegion); err != nil {
				return err
			}
		}
		frame, err := a.controller.Recompute(ctx, filterValue)
		if err != nil {
			return err
		}
		logger.Info("frame rendered", "label", frame.Label, "visible", frame.Visible, "total", frame.Total)
		return nil
	},
}

func init() {
	filterCmd.Flags().IntVar(&filterValue, "value", 0, "control value: bin index or timestep")
	filterCmd.Flags().StringVar(&filterRegion, "region", "", "region key to open the panel for")
	filterCmd.Flags().BoolVar(&filterNoMarkers, "no-markers", false, "omit per-crater markers from frames")
	filterCmd.Flags().BoolVar(&filterNoGeometry, "no-geometry", false, "omit region outlines from the base layer")
	rootCmd.AddCommand(filterCmd)
}
