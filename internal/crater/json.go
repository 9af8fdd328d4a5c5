package crater

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/couchcryptid/mare-crater-map/internal/domain"
)

// JSONSource reads a pre-joined crater array:
//
//	[{"longitude": -17.2, "latitude": 33.1, "size": 4.2, "polygon_name": "Mare Imbrium"}]
type JSONSource struct {
	Path string
	Unit domain.Unit
}

func (s JSONSource) Name() string { return s.Path }

// jsonRow accepts both the current and the historical field spellings.
type jsonRow struct {
	Longitude   number `json:"longitude"`
	Latitude    number `json:"latitude"`
	Lattitude   number `json:"lattitude"`
	Size        number `json:"size"`
	Diameter    number `json:"diameter"`
	Depth       number `json:"depth"`
	Timestep    number `json:"timestep"`
	CreatedStep number `json:"created_step"`
	ErasedStep  number `json:"erased_step"`
	PolygonName string `json:"polygon_name"`
	Region      string `json:"region"`
}

func (s JSONSource) Read(ctx context.Context) ([]domain.CraterRecord, Report, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, Report{}, eris.Wrap(err, "crater: read json")
	}
	if err := ctx.Err(); err != nil {
		return nil, Report{}, eris.Wrap(err, "crater: context cancelled")
	}

	var rows []jsonRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, Report{}, eris.Wrap(err, "crater: decode json")
	}

	unit := s.Unit
	if unit == "" {
		unit = domain.Meters
	}

	report := Report{Read: len(rows)}
	records := make([]domain.CraterRecord, 0, len(rows))
	for _, row := range rows {
		rec, ok := row.record()
		if !ok {
			report.Rejected++
			continue
		}
		rec, err := domain.NormalizeCrater(rec, unit)
		if err != nil {
			report.Rejected++
			continue
		}
		records = append(records, rec)
	}
	return records, report, nil
}

// record maps the row onto a CraterRecord. It reports false when a required
// field (coordinates, diameter) is missing or a step is invalid.
func (r jsonRow) record() (domain.CraterRecord, bool) {
	lat := r.Latitude
	if !lat.ok {
		lat = r.Lattitude
	}
	size := r.Size
	if !size.ok {
		size = r.Diameter
	}
	if !r.Longitude.ok || !lat.ok || !size.ok {
		return domain.CraterRecord{}, false
	}

	rec := domain.CraterRecord{
		Longitude: r.Longitude.v,
		Latitude:  lat.v,
		Diameter:  size.v,
		Depth:     r.Depth.ptr(),
		RegionKey: r.Region,
	}
	if rec.RegionKey == "" {
		rec.RegionKey = r.PolygonName
	}
	created := r.CreatedStep
	if !created.ok {
		created = r.Timestep
	}
	var okCreated, okErased bool
	rec.CreatedStep, okCreated = created.step(false)
	rec.ErasedStep, okErased = r.ErasedStep.step(true)
	return rec, okCreated && okErased
}

// number is a JSON value coerced to float64: numbers and numeric strings are
// accepted, null and empty strings are absent.
type number struct {
	v  float64
	ok bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = number{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = number{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return eris.Wrapf(err, "crater: numeric field %q", s)
		}
		*n = number{v: v, ok: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = number{v: v, ok: true}
	return nil
}

func (n number) ptr() *float64 {
	if !n.ok {
		return nil
	}
	v := n.v
	return &v
}

// step validates n as a timestep. Absent is a nil step; an invalid value
// reports false.
func (n number) step(erasure bool) (*int, bool) {
	if !n.ok {
		return nil, true
	}
	s, err := domain.StepValue(n.v, erasure)
	return s, err == nil
}
