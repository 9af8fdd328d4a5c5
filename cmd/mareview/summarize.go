package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/mare-crater-map/internal/pipeline"
)

var (
	summarizeValue  int
	summarizeRegion string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Print region statistics for a control value",
	Long: "Summarizes crater diameters per region at --value. In timestep mode the precomputed " +
		"statistics table is used when it has an entry; otherwise craters are summarized live.",
	RunE: func(cmd *cobra.Command, _ []string) error {
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

		control := pipeline.Control{Mode: a.controller.Mode(), Value: summarizeValue}
		keys := []string{summarizeRegion}
		if summarizeRegion == "" {
			keys = regionKeys(a)
		}

		details := make([]pipeline.Detail, 0, len(keys))
		for _, key := range keys {
			d, err := a.controller.Detail(key, control)
			if err != nil {
				return err
			}
			details = append(details, d)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", a.controller.Label(summarizeValue))
		return printSummaries(cmd.OutOrStdout(), details)
	},
}

func init() {
	summarizeCmd.Flags().IntVar(&summarizeValue, "value", 0, "control value: bin index or timestep")
	summarizeCmd.Flags().StringVar(&summarizeRegion, "region", "", "region key (default all regions)")
	rootCmd.AddCommand(summarizeCmd)
}

func regionKeys(a *app) []string {
	var keys []string
	for _, s := range a.controller.State().Index.Regions() {
		keys = append(keys, s.Key)
	}
	return keys
}

func printSummaries(w io.Writer, details []pipeline.Detail) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tSOURCE\tCRATERS\tMIN (m)\tMAX (m)\tMEAN (m)\tMEDIAN (m)")
	for _, d := range details {
		if d.NoData {
			fmt.Fprintf(tw, "%s\t%s\t0\t-\t-\t-\t-\n", d.Title, d.Source)
			continue
		}
		s := d.Stats.Summary
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.3f\t%.3f\t%.3f\t%.3f\n", d.Title, d.Source, s.Count, s.Min, s.Max, s.Mean, s.Median)
	}
	return tw.Flush()
}
