package crater

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/mare-crater-map/internal/domain"
)

// CSVSource reads the two timestep tables: craters that survive to the end
// of the simulation and craters erased along the way. The erased table
// carries an erasure-step column; the survived table may omit it.
//
//	longitude,latitude,diameter,timestep[,erased_step]
type CSVSource struct {
	SurvivedPath string
	ErasedPath   string
	Unit         domain.Unit
}

func (s CSVSource) Name() string {
	if s.ErasedPath == "" {
		return s.SurvivedPath
	}
	return s.SurvivedPath + "+" + s.ErasedPath
}

// column aliases, first match wins.
var (
	lonColumns     = []string{"longitude", "lon"}
	latColumns     = []string{"latitude", "lattitude", "lat"}
	sizeColumns    = []string{"diameter", "size"}
	depthColumns   = []string{"depth"}
	createdColumns = []string{"created_step", "creation_step", "timestep"}
	erasedColumns  = []string{"erased_step", "erasure_step", "erased"}
	regionColumns  = []string{"region", "polygon_name", "mare"}
)

// Read loads both tables concurrently. Records keep file order: survived first.
func (s CSVSource) Read(ctx context.Context) ([]domain.CraterRecord, Report, error) {
	unit := s.Unit
	if unit == "" {
		unit = domain.Meters
	}

	var survived, erased []domain.CraterRecord
	var survivedReport, erasedReport Report

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		survived, survivedReport, err = readCSVFile(gctx, s.SurvivedPath, unit)
		return err
	})
	if s.ErasedPath != "" {
		g.Go(func() error {
			var err error
			erased, erasedReport, err = readCSVFile(gctx, s.ErasedPath, unit)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Report{}, err
	}

	records := make([]domain.CraterRecord, 0, len(survived)+len(erased))
	records = append(records, survived...)
	records = append(records, erased...)
	return records, Report{
		Read:     survivedReport.Read + erasedReport.Read,
		Rejected: survivedReport.Rejected + erasedReport.Rejected,
	}, nil
}

func readCSVFile(ctx context.Context, path string, unit domain.Unit) ([]domain.CraterRecord, Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Report{}, eris.Wrapf(err, "crater: open %s", path)
	}
	defer f.Close()
	return readCSV(ctx, f, unit)
}

func readCSV(ctx context.Context, r io.Reader, unit domain.Unit) ([]domain.CraterRecord, Report, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, Report{}, eris.Wrap(err, "crater: read csv header")
	}
	cols := indexColumns(header)
	lonIdx, latIdx, sizeIdx := cols.find(lonColumns), cols.find(latColumns), cols.find(sizeColumns)
	if lonIdx < 0 || latIdx < 0 || sizeIdx < 0 {
		return nil, Report{}, eris.Errorf("crater: csv header %v lacks longitude/latitude/diameter", header)
	}
	depthIdx := cols.find(depthColumns)
	createdIdx := cols.find(createdColumns)
	erasedIdx := cols.find(erasedColumns)
	regionIdx := cols.find(regionColumns)

	var report Report
	var records []domain.CraterRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, Report{}, eris.Wrap(err, "crater: context cancelled")
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Report{}, eris.Wrap(err, "crater: read csv row")
		}
		report.Read++

		lon, okLon := parseField(row, lonIdx)
		lat, okLat := parseField(row, latIdx)
		size, okSize := parseField(row, sizeIdx)
		if !okLon || !okLat || !okSize {
			report.Rejected++
			continue
		}
		rec := domain.CraterRecord{Longitude: lon, Latitude: lat, Diameter: size}
		if v, ok := parseField(row, depthIdx); ok {
			rec.Depth = &v
		}
		created, okCreated := parseStep(row, createdIdx, false)
		erased, okErased := parseStep(row, erasedIdx, true)
		if !okCreated || !okErased {
			report.Rejected++
			continue
		}
		rec.CreatedStep, rec.ErasedStep = created, erased
		if regionIdx >= 0 && regionIdx < len(row) {
			rec.RegionKey = row[regionIdx]
		}

		rec, err = domain.NormalizeCrater(rec, unit)
		if err != nil {
			report.Rejected++
			continue
		}
		records = append(records, rec)
	}
	return records, report, nil
}

// parseStep reads a step column. An absent or blank cell is a nil step;
// a present value that is not a valid step reports false.
func parseStep(row []string, i int, erasure bool) (*int, bool) {
	v, ok := parseField(row, i)
	if !ok {
		return nil, true
	}
	step, err := domain.StepValue(v, erasure)
	return step, err == nil
}

type columnIndex map[string]int

func indexColumns(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func (c columnIndex) find(aliases []string) int {
	for _, a := range aliases {
		if i, ok := c[a]; ok {
			return i
		}
	}
	return -1
}

// parseField parses row[i] as a float. Missing columns, blanks, and
// non-numeric values report false.
func parseField(row []string, i int) (float64, bool) {
	if i < 0 || i >= len(row) {
		return 0, false
	}
	s := strings.TrimSpace(row[i])
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
