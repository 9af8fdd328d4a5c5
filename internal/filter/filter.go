// Package filter decides which craters are visible for a control value.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/couchcryptid/mare-crater-map/internal/domain"
)

// DefaultThresholds are the lower bounds (meters) of the diameter bins.
var DefaultThresholds = []float64{0, 1, 2, 3, 5, 6, 7, 8, 9, 10}

// Policy is a visibility rule over crater records.
type Policy interface {
	Name() string
	Visible(c domain.CraterRecord) bool
}

// BinPolicy shows craters whose diameter falls in bin Index of Thresholds:
// T[i] <= d < T[i+1], with the top bin open-ended. An index outside the
// thresholds shows nothing.
type BinPolicy struct {
	Thresholds []float64
	Index      int
}

func (p BinPolicy) Name() string { return "bin" }

func (p BinPolicy) Visible(c domain.CraterRecord) bool {
	if p.Index < 0 || p.Index >= len(p.Thresholds) {
		return false
	}
	if c.Diameter < p.Thresholds[p.Index] {
		return false
	}
	if p.Index == len(p.Thresholds)-1 {
		return true
	}
	return c.Diameter < p.Thresholds[p.Index+1]
}

// TimestepPolicy shows craters that exist at Step: created at or before it
// and not yet erased.
type TimestepPolicy struct {
	Step int
}

func (p TimestepPolicy) Name() string { return "timestep" }

func (p TimestepPolicy) Visible(c domain.CraterRecord) bool {
	return c.VisibleAt(p.Step)
}

// Membership answers region containment for records without a region key.
type Membership interface {
	ContainsPoint(key string, lon, lat float64) bool
}

// RegionScoped restricts a policy to one region. Records that already carry
// a region key are compared by key; the rest fall back to point-in-polygon.
type RegionScoped struct {
	Policy Policy
	Key    string
	Index  Membership
}

func (p RegionScoped) Name() string { return p.Policy.Name() + "@" + p.Key }

func (p RegionScoped) Visible(c domain.CraterRecord) bool {
	if !p.Policy.Visible(c) {
		return false
	}
	if c.RegionKey != "" {
		return c.RegionKey == p.Key
	}
	if p.Index == nil {
		return false
	}
	return p.Index.ContainsPoint(p.Key, c.Longitude, c.Latitude)
}

// Apply returns the visible records in input order.
func Apply(records []domain.CraterRecord, p Policy) []domain.CraterRecord {
	out := make([]domain.CraterRecord, 0, len(records))
	for _, c := range records {
		if p.Visible(c) {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many records are visible without materialising them.
func Count(records []domain.CraterRecord, p Policy) int {
	n := 0
	for _, c := range records {
		if p.Visible(c) {
			n++
		}
	}
	return n
}

// BinLabel renders the label shown next to the bin control, e.g. "2–3 m" or
// "> 10 m" for the top bin.
func BinLabel(thresholds []float64, i int) string {
	if i < 0 || i >= len(thresholds) {
		return ""
	}
	if i == len(thresholds)-1 {
		return fmt.Sprintf("> %s m", formatBound(thresholds[i]))
	}
	return fmt.Sprintf("%s–%s m", formatBound(thresholds[i]), formatBound(thresholds[i+1]))
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseThresholds parses a comma-separated, strictly ascending list.
func ParseThresholds(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "filter: threshold %q", part)
		}
		if n := len(out); n > 0 && v <= out[n-1] {
			return nil, eris.Errorf("filter: thresholds must be strictly ascending, got %v after %v", v, out[n-1])
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, eris.New("filter: no thresholds")
	}
	return out, nil
}
