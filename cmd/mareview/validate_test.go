package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/couchcryptid/mare-crater-map/internal/crater"
	"github.com/couchcryptid/mare-crater-map/internal/domain"
	"github.com/couchcryptid/mare-crater-map/internal/pipeline"
	"github.com/couchcryptid/mare-crater-map/internal/region"
	"github.com/couchcryptid/mare-crater-map/internal/stats"
)

func square(x, y, size float64) *geom.MultiPolygon {
	return geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{{
		{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y},
	}}})
}

const consistentTable = `{
  "Mare Alpha": {
    "0": {
      "summ_stat": {"num_craters": 2, "min_size": 1, "max_size": 3, "mean_size": 2, "med_size": 2},
      "sizes": [1, 3],
      "plot_craters": {
        "smallest": {"longitude": 1, "latitude": 1, "diameter": 1},
        "largest": {"longitude": 2, "lattitude": 2, "diameter": 3}
      }
    }
  }
}`

func newValidState(t *testing.T) *pipeline.State {
	t.Helper()
	info := domain.MareInfo{Mare: "Mare Alpha"}
	index := region.NewIndex([]domain.RegionPolygon{
		{Key: "mare_alpha", Name: "Mare Alpha", Geometry: square(0, 0, 10), Info: &info},
	})
	store := crater.NewStore(nil)
	store.Replace([]domain.CraterRecord{
		{Longitude: 1, Latitude: 1, Diameter: 1, RegionKey: "mare_alpha", CreatedStep: domain.Step(0)},
		{Longitude: 2, Latitude: 2, Diameter: 3, RegionKey: "mare_alpha", CreatedStep: domain.Step(0), ErasedStep: domain.Step(4)},
	})
	table, err := stats.ParseTable([]byte(consistentTable))
	require.NoError(t, err)
	return &pipeline.State{
		Store:   store,
		Index:   index,
		Stats:   table,
		Join:    region.JoinReport{Matched: []string{"mare_alpha"}},
		Craters: crater.Report{Read: 2},
	}
}

func TestValidate_ConsistentDataPasses(t *testing.T) {
	st := newValidState(t)
	phases := []*phase{validateGeometry(st), validateCraters(st), validateStats(st)}
	for _, p := range phases {
		assert.True(t, p.passed(), "%s: %v", p.name, p.errors)
	}

	var buf bytes.Buffer
	assert.True(t, report(&buf, phases, st))
	assert.Contains(t, buf.String(), "All validations passed.")
}

func TestValidateGeometry_ReportsJoinProblems(t *testing.T) {
	st := newValidState(t)
	st.Join.Mismatches = []*domain.JoinMismatchError{{Key: "mare_beta", File: "mare_beta.geojson"}}
	st.Join.Unused = []string{"mare_gamma"}

	p := validateGeometry(st)
	require.Len(t, p.errors, 2)
	assert.Contains(t, p.errors[0], "mare_beta")
	assert.Contains(t, p.errors[1], "mare_gamma")
}

func TestValidateCraters(t *testing.T) {
	st := newValidState(t)
	st.Craters = crater.Report{Read: 5, Rejected: 1}
	st.Store.Replace([]domain.CraterRecord{
		{Longitude: 1, Latitude: 1, Diameter: 1, CreatedStep: domain.Step(5), ErasedStep: domain.Step(2)},
		{Longitude: 1, Latitude: 1, Diameter: 1, RegionKey: "mare_nowhere"},
	})

	p := validateCraters(st)
	require.Len(t, p.errors, 3)
	assert.Contains(t, p.errors[0], "1 of 5 records rejected")
	assert.Contains(t, p.errors[1], "erased at step 2 before created at step 5")
	assert.Contains(t, p.errors[2], `unknown region "mare_nowhere"`)
}

func TestValidateStats(t *testing.T) {
	st := newValidState(t)
	table, err := stats.ParseTable([]byte(`{
	  "Mare Zeta": {
	    "3": {
	      "summ_stat": {"num_craters": 3, "min_size": 4, "max_size": 2, "mean_size": 3, "med_size": 3},
	      "sizes": [2, 4]
	    }
	  }
	}`))
	require.NoError(t, err)
	st.Stats = table

	p := validateStats(st)
	assert.False(t, p.passed())
	joined := ""
	for _, e := range p.errors {
		joined += e + "\n"
	}
	assert.Contains(t, joined, "mare_zeta@3: region not among the outlines")
	assert.Contains(t, joined, "num_craters 3 but 2 sizes")
	assert.Contains(t, joined, "expected min <= median <= max")
}

func TestValidateStats_NoTable(t *testing.T) {
	st := newValidState(t)
	st.Stats = nil
	assert.True(t, validateStats(st).passed())
}

func TestReport_Failure(t *testing.T) {
	st := newValidState(t)
	failing := &phase{name: "Crater records"}
	failing.errorf("record %d: broken", 7)

	var buf bytes.Buffer
	assert.False(t, report(&buf, []*phase{failing}, st))
	out := buf.String()
	assert.Contains(t, out, "FAIL (1 errors)")
	assert.Contains(t, out, "[1] record 7: broken")
	assert.Contains(t, out, "Validation FAILED.")
}
