package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/mare-crater-map/internal/pipeline"
	"github.com/couchcryptid/mare-crater-map/internal/stats"
)

var (
	histogramValue  int
	histogramRegion string
	histogramWidth  int
)

var histogramCmd = &cobra.Command{
	Use:   "histogram",
	Short: "Print the crater size histogram of a region",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if histogramRegion == "" {
			return errors.New("--region is required")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(cfg, nil)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.load(ctx); err != nil {
			return err
		}

		d, err := a.controller.Detail(histogramRegion, pipeline.Control{Mode: a.controller.Mode(), Value: histogramValue})
		if err != nil {
			return eris.Wrap(err, "histogram")
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s, %s\n", d.Title, a.controller.Label(histogramValue))
		if d.NoData || d.Histogram == nil {
			fmt.Fprintln(out, "No data available")
			return nil
		}
		printHistogram(out, *d.Histogram, histogramWidth)
		return nil
	},
}

func init() {
	histogramCmd.Flags().IntVar(&histogramValue, "value", 0, "control value: bin index or timestep")
	histogramCmd.Flags().StringVar(&histogramRegion, "region", "", "region key")
	histogramCmd.Flags().IntVar(&histogramWidth, "width", 40, "width of the longest bar in characters")
	rootCmd.AddCommand(histogramCmd)
}

func printHistogram(w io.Writer, h stats.Histogram, width int) {
	tallest := h.MaxCount()
	for i, b := range h.Bins {
		closing := ")"
		if i == len(h.Bins)-1 {
			closing = "]"
		}
		bar := 0
		if tallest > 0 {
			bar = b.Count * width / tallest
		}
		fmt.Fprintf(w, "[%8.3f, %8.3f%s %5d %s\n", b.Lower, b.Upper, closing, b.Count, strings.Repeat("#", bar))
	}
}
