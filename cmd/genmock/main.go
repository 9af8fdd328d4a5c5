// Command genmock writes a synthetic map dataset: the mare metadata table,
// one GeoJSON outline per mare, the pre-joined crater array, the
// survived/erased crater tables, and the precomputed statistics table. It
// uses the real domain and stats packages so the fixtures match what the
// loader expects.
//
// Usage:
//
//	go run ./cmd/genmock -out data -craters 400 -steps 10 -seed 1
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/couchcryptid/mare-crater-map/internal/domain"
	"github.com/couchcryptid/mare-crater-map/internal/filter"
	"github.com/couchcryptid/mare-crater-map/internal/stats"
)

// Mean lunar radius in km, for converting mare diameters to degrees.
const moonRadiusKm = 1737.4

type mare struct {
	name        string
	englishName string
	lat, lon    float64
	diameterKm  float64
}

var maria = []mare{
	{"Mare Imbrium", "Sea of Showers", 32.8, -15.6, 1146},
	{"Mare Vaporum", "Sea of Vapors", 13.3, 3.6, 245},
	{"Mare Tranquillitatis", "Sea of Tranquility", 8.5, 31.4, 873},
	{"Mare Serenitatis", "Sea of Serenity", 28.0, 17.5, 707},
	{"Mare Fecunditatis", "Sea of Fecundity", -7.8, 51.3, 909},
	{"Mare Crisium", "Sea of Crises", 17.0, 59.1, 556},
	{"Oceanus Procellarum", "Ocean of Storms", 18.4, -57.4, 2568},
}

// windingFlipped lists outlines written clockwise, as the upstream data has them.
var windingFlipped = map[string]bool{"mare_tranquillitatis": true}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output data directory")
	perMare := flag.Int("craters", 200, "craters generated per mare")
	outside := flag.Int("outside", 50, "craters generated outside every mare")
	steps := flag.Int("steps", 10, "number of timesteps")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))

	if err := writeMetadata(filepath.Join(*out, "mareInfo.csv")); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	for _, m := range maria {
		key := domain.NormalizeKey(m.name)
		path := filepath.Join(*out, key+".geojson")
		if err := writeOutline(path, m, windingFlipped[key]); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	var craters []domain.CraterRecord
	for _, m := range maria {
		for range *perMare {
			craters = append(craters, randomCrater(rng, m, *steps))
		}
	}
	for range *outside {
		c := randomCrater(rng, mare{lat: rng.Float64()*120 - 60, lon: rng.Float64()*300 - 150, diameterKm: 200}, *steps)
		c.RegionKey = ""
		craters = append(craters, c)
	}
	log.Printf("craters: %d", len(craters))

	if err := writeCraterJSON(filepath.Join(*out, "filtered_craters.json"), craters); err != nil {
		return fmt.Errorf("writing crater json: %w", err)
	}
	if err := writeCraterCSVs(*out, craters); err != nil {
		return fmt.Errorf("writing crater csv: %w", err)
	}
	entries, err := writeStatsTable(filepath.Join(*out, "output_new.json"), craters, *steps)
	if err != nil {
		return fmt.Errorf("writing stats table: %w", err)
	}
	log.Printf("stats entries: %d", entries)
	log.Printf("wrote dataset: %s", *out)

	printBins(craters)
	return nil
}

func writeMetadata(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rows := [][]string{{"Mare", "English Name", "Latitude", "Longitude", "Diameter"}}
	for _, m := range maria {
		rows = append(rows, []string{
			m.name,
			m.englishName,
			strconv.FormatFloat(m.lat, 'f', 1, 64),
			strconv.FormatFloat(m.lon, 'f', 1, 64),
			strconv.FormatFloat(m.diameterKm, 'f', 0, 64) + " km",
		})
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func radiusDeg(m mare) float64 {
	return m.diameterKm / 2 / (moonRadiusKm * math.Pi / 180)
}

// writeOutline writes the mare as a 48-gon around its centre. Longitude is
// stretched by 1/cos(lat) so the outline stays round on the sphere.
func writeOutline(path string, m mare, clockwise bool) error {
	const vertices = 48
	r := radiusDeg(m)
	stretch := 1 / math.Max(math.Cos(m.lat*math.Pi/180), 0.2)

	ring := make([]geom.Coord, 0, vertices+1)
	for i := range vertices {
		a := 2 * math.Pi * float64(i) / vertices
		if clockwise {
			a = -a
		}
		lat := math.Max(-89, math.Min(89, m.lat+r*math.Sin(a)))
		lon := math.Max(-180, math.Min(180, m.lon+r*stretch*math.Cos(a)))
		ring = append(ring, geom.Coord{lon, lat})
	}
	ring = append(ring, ring[0])

	polygon, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{ring})
	if err != nil {
		return err
	}
	fc := geojson.FeatureCollection{Features: []*geojson.Feature{{
		Geometry:   polygon,
		Properties: map[string]any{"name": m.name},
	}}}
	return writeJSON(path, &fc)
}

func randomCrater(rng *rand.Rand, m mare, steps int) domain.CraterRecord {
	r := radiusDeg(m) * math.Sqrt(rng.Float64()) * 0.9
	a := rng.Float64() * 2 * math.Pi
	stretch := 1 / math.Max(math.Cos(m.lat*math.Pi/180), 0.2)
	lat := math.Max(-89, math.Min(89, m.lat+r*math.Sin(a)))
	lon := math.Max(-180, math.Min(180, m.lon+r*stretch*math.Cos(a)))

	size := math.Exp(rng.NormFloat64()*0.9 + 0.8)
	size = math.Round(math.Min(math.Max(size, 0.1), 50)*1000) / 1000

	c := domain.CraterRecord{
		Longitude:   math.Round(lon*1e5) / 1e5,
		Latitude:    math.Round(lat*1e5) / 1e5,
		Diameter:    size,
		CreatedStep: domain.Step(rng.IntN(steps)),
		RegionKey:   domain.NormalizeKey(m.name),
	}
	if rng.Float64() < 0.4 {
		if rest := steps - c.Created(); rest > 1 {
			c.ErasedStep = domain.Step(c.Created() + 1 + rng.IntN(rest-1))
		}
	}
	return c
}

// craterRow is the pre-joined crater array format. Every tenth row uses the
// legacy "lattitude" spelling, which the loader must accept.
type craterRow struct {
	Longitude   float64  `json:"longitude"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Lattitude   *float64 `json:"lattitude,omitempty"`
	Size        float64  `json:"size"`
	Timestep    int      `json:"timestep"`
	ErasedStep  *int     `json:"erased_step,omitempty"`
	PolygonName string   `json:"polygon_name,omitempty"`
}

func writeCraterJSON(path string, craters []domain.CraterRecord) error {
	rows := make([]craterRow, len(craters))
	for i, c := range craters {
		lat := c.Latitude
		rows[i] = craterRow{
			Longitude:   c.Longitude,
			Size:        c.Diameter,
			Timestep:    c.Created(),
			ErasedStep:  c.ErasedStep,
			PolygonName: domain.DisplayName(c.RegionKey),
		}
		if i%10 == 9 {
			rows[i].Lattitude = &lat
		} else {
			rows[i].Latitude = &lat
		}
	}
	return writeJSON(path, rows)
}

func writeCraterCSVs(dir string, craters []domain.CraterRecord) error {
	survived := [][]string{{"longitude", "latitude", "diameter", "timestep", "region"}}
	erased := [][]string{{"longitude", "latitude", "diameter", "timestep", "erased_step", "region"}}
	for _, c := range craters {
		row := []string{
			strconv.FormatFloat(c.Longitude, 'f', -1, 64),
			strconv.FormatFloat(c.Latitude, 'f', -1, 64),
			strconv.FormatFloat(c.Diameter, 'f', -1, 64),
			strconv.Itoa(c.Created()),
		}
		if step, ok := c.Erased(); ok {
			erased = append(erased, append(row, strconv.Itoa(step), c.RegionKey))
			continue
		}
		survived = append(survived, append(row, c.RegionKey))
	}
	for name, rows := range map[string][][]string{
		"craters_survived.csv": survived,
		"craters_erased.csv":   erased,
	} {
		if err := writeCSV(filepath.Join(dir, name), rows); err != nil {
			return err
		}
	}
	return nil
}

type tableCrater struct {
	Longitude float64 `json:"longitude"`
	Lattitude float64 `json:"lattitude"`
	Diameter  float64 `json:"diameter"`
}

type tableEntry struct {
	SummStat    domain.Summary `json:"summ_stat"`
	Sizes       []float64      `json:"sizes"`
	PlotCraters struct {
		Smallest tableCrater `json:"smallest"`
		Largest  tableCrater `json:"largest"`
	} `json:"plot_craters"`
}

// writeStatsTable precomputes the region summary at every step, skipping
// steps where the region has no visible crater.
func writeStatsTable(path string, craters []domain.CraterRecord, steps int) (int, error) {
	byRegion := stats.GroupByRegion(craters)
	table := make(map[string]map[string]tableEntry)
	entries := 0
	for _, m := range maria {
		key := domain.NormalizeKey(m.name)
		for t := range steps {
			visible := filter.Apply(byRegion[key], filter.TimestepPolicy{Step: t})
			rs, err := stats.Summarize(key, visible)
			if err != nil {
				continue
			}
			var e tableEntry
			e.SummStat = rs.Summary
			e.Sizes = rs.Sizes
			e.PlotCraters.Smallest = tableCrater{rs.Smallest.Longitude, rs.Smallest.Latitude, rs.Smallest.Diameter}
			e.PlotCraters.Largest = tableCrater{rs.Largest.Longitude, rs.Largest.Latitude, rs.Largest.Diameter}
			if table[key] == nil {
				table[key] = make(map[string]tableEntry)
			}
			table[key][strconv.Itoa(t)] = e
			entries++
		}
	}
	return entries, writeJSON(path, table)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := csv.NewWriter(f).WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func printBins(craters []domain.CraterRecord) {
	fmt.Println("\n=== Diameter bins ===")
	for i := range filter.DefaultThresholds {
		n := filter.Count(craters, filter.BinPolicy{Thresholds: filter.DefaultThresholds, Index: i})
		fmt.Printf("  %-8s %d\n", filter.BinLabel(filter.DefaultThresholds, i), n)
	}
}
