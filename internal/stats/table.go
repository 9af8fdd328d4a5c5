package stats

import (
	"cmp"
	"context"
	"encoding/json"
	"os"
	"slices"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/couchcryptid/mare-crater-map/internal/domain"
)

// Table is the precomputed statistics blob: region key, then step, then the
// summary for that region at that step.
type Table struct {
	entries map[string]map[string]domain.RegionStats
}

type tableEntry struct {
	SummStat    domain.Summary `json:"summ_stat"`
	Sizes       []float64      `json:"sizes"`
	PlotCraters *struct {
		Smallest tableCrater `json:"smallest"`
		Largest  tableCrater `json:"largest"`
	} `json:"plot_craters"`
}

type tableCrater struct {
	Longitude float64  `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
	Lattitude *float64 `json:"lattitude"`
	Diameter  float64  `json:"diameter"`
}

func (c tableCrater) record(key string) domain.CraterRecord {
	r := domain.CraterRecord{Longitude: c.Longitude, Diameter: c.Diameter, RegionKey: key}
	switch {
	case c.Latitude != nil:
		r.Latitude = *c.Latitude
	case c.Lattitude != nil:
		r.Latitude = *c.Lattitude
	}
	return r
}

// LoadTable reads a statistics table from path.
func LoadTable(ctx context.Context, path string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "stats: context cancelled")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "stats: read table %s", path)
	}
	return ParseTable(data)
}

// ParseTable decodes a statistics table. Region keys are normalized.
func ParseTable(data []byte) (*Table, error) {
	var raw map[string]map[string]tableEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "stats: decode table")
	}

	t := &Table{entries: make(map[string]map[string]domain.RegionStats, len(raw))}
	for name, steps := range raw {
		key := domain.NormalizeKey(name)
		bySteps := make(map[string]domain.RegionStats, len(steps))
		for step, e := range steps {
			rs := domain.RegionStats{Key: key, Summary: e.SummStat, Sizes: e.Sizes}
			if n, err := strconv.Atoi(step); err == nil {
				rs.Step = domain.Step(n)
			}
			if e.PlotCraters != nil {
				smallest := e.PlotCraters.Smallest.record(key)
				largest := e.PlotCraters.Largest.record(key)
				rs.Smallest, rs.Largest = &smallest, &largest
			}
			bySteps[step] = rs
		}
		t.entries[key] = bySteps
	}
	return t, nil
}

// Has reports whether the table carries an entry for key at step, empty or
// not. A nil table has no entries.
func (t *Table) Has(key string, step int) bool {
	if t == nil {
		return false
	}
	_, ok := t.entries[key][strconv.Itoa(step)]
	return ok
}

// Lookup returns the precomputed stats for a region at step, or
// domain.ErrNoData when the table has no such entry or the entry counts no
// craters.
func (t *Table) Lookup(key string, step int) (domain.RegionStats, error) {
	if !t.Has(key, step) {
		return domain.RegionStats{}, domain.ErrNoData
	}
	rs := t.entries[key][strconv.Itoa(step)]
	if rs.Summary.Count == 0 {
		return domain.RegionStats{}, domain.ErrNoData
	}
	return rs, nil
}

// All returns every entry ordered by region key, then step.
func (t *Table) All() []domain.RegionStats {
	if t == nil {
		return nil
	}
	var out []domain.RegionStats
	for _, steps := range t.entries {
		for _, rs := range steps {
			out = append(out, rs)
		}
	}
	slices.SortFunc(out, func(a, b domain.RegionStats) int {
		if c := cmp.Compare(a.Key, b.Key); c != 0 {
			return c
		}
		return cmp.Compare(stepOf(a), stepOf(b))
	})
	return out
}

func stepOf(rs domain.RegionStats) int {
	if rs.Step == nil {
		return -1
	}
	return *rs.Step
}

// Len returns the number of regions in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
