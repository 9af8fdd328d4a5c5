package main

import (
	"fmt"
	"io"
	"math"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/mare-crater-map/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the dataset for integrity problems",
	Long: "Loads every input and checks that outlines join to metadata, crater records are " +
		"consistent, and the precomputed statistics agree with themselves and the outlines.",
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
		st := a.controller.State()
		phases := []*phase{
			validateGeometry(st),
			validateCraters(st),
			validateStats(st),
		}
		if !report(cmd.OutOrStdout(), phases, st) {
			return eris.New("validation failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// report prints the phase table and the detailed errors, and reports whether
// every phase passed.
func report(w io.Writer, phases []*phase, st *pipeline.State) bool {
	fmt.Fprintln(w, "=== Mare Crater Data Validation ===")
	fmt.Fprintln(w)

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-32s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Regions: %d (%d matched), craters: %d (%d rejected), stats table regions: %d\n",
		st.Index.Len(), len(st.Join.Matched), st.Store.Len(), st.Craters.Rejected, st.Stats.Len())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
	} else {
		fmt.Fprintln(w, "\nValidation FAILED.")
	}
	return allPassed
}

func validateGeometry(st *pipeline.State) *phase {
	p := &phase{name: "Outlines join to metadata"}
	for _, m := range st.Join.Mismatches {
		p.errorf("%s: no metadata row for key %q", m.File, m.Key)
	}
	for _, key := range st.Join.Unused {
		p.errorf("metadata row %q has no outline", key)
	}
	for _, r := range st.Index.Regions() {
		if r.Geometry == nil || r.Geometry.NumPolygons() == 0 {
			p.errorf("%s: empty geometry", r.Key)
		}
	}
	return p
}

func validateCraters(st *pipeline.State) *phase {
	p := &phase{name: "Crater records"}
	if st.Craters.Rejected > 0 {
		p.errorf("%d of %d records rejected by validation", st.Craters.Rejected, st.Craters.Read)
	}
	for i, c := range st.Store.All() {
		if erased, ok := c.Erased(); ok && erased < c.Created() {
			p.errorf("record %d: erased at step %d before created at step %d", i, erased, c.Created())
		}
		if c.RegionKey != "" {
			if _, ok := st.Index.Get(c.RegionKey); !ok {
				p.errorf("record %d: unknown region %q", i, c.RegionKey)
			}
		}
	}
	return p
}

func validateStats(st *pipeline.State) *phase {
	p := &phase{name: "Precomputed statistics"}
	if st.Stats == nil {
		return p
	}
	for _, rs := range st.Stats.All() {
		id := rs.Key
		if rs.Step != nil {
			id = fmt.Sprintf("%s@%d", rs.Key, *rs.Step)
		}
		if _, ok := st.Index.Get(rs.Key); !ok {
			p.errorf("%s: region not among the outlines", id)
		}
		s := rs.Summary
		if s.Count != len(rs.Sizes) {
			p.errorf("%s: num_craters %d but %d sizes", id, s.Count, len(rs.Sizes))
		}
		if s.Count == 0 {
			continue
		}
		if s.Min > s.Median || s.Median > s.Max {
			p.errorf("%s: expected min <= median <= max, got %g, %g, %g", id, s.Min, s.Median, s.Max)
		}
		if s.Mean < s.Min || s.Mean > s.Max || math.IsNaN(s.Mean) {
			p.errorf("%s: mean %g outside [%g, %g]", id, s.Mean, s.Min, s.Max)
		}
		if rs.Smallest == nil || rs.Largest == nil {
			continue
		}
		if rs.Smallest.Diameter != s.Min || rs.Largest.Diameter != s.Max {
			p.errorf("%s: plotted craters %g/%g do not match min/max %g/%g",
				id, rs.Smallest.Diameter, rs.Largest.Diameter, s.Min, s.Max)
		}
	}
	return p
}
