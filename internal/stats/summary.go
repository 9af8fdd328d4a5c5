// Package stats derives per-region summaries and histograms from crater
// records, and serves the precomputed statistics table.
package stats

import (
	"slices"

	"github.com/couchcryptid/mare-crater-map/internal/domain"
)

// Summarize computes descriptive statistics over the records' diameters.
// Smallest and Largest are the first such record in input order. Sizes keeps
// input order. An empty input yields domain.ErrNoData.
func Summarize(key string, records []domain.CraterRecord) (domain.RegionStats, error) {
	if len(records) == 0 {
		return domain.RegionStats{}, domain.ErrNoData
	}

	sizes := make([]float64, len(records))
	smallest, largest := 0, 0
	sum := 0.0
	for i, r := range records {
		sizes[i] = r.Diameter
		sum += r.Diameter
		if r.Diameter < records[smallest].Diameter {
			smallest = i
		}
		if r.Diameter > records[largest].Diameter {
			largest = i
		}
	}

	smallestRec, largestRec := records[smallest], records[largest]
	return domain.RegionStats{
		Key: key,
		Summary: domain.Summary{
			Count:  len(records),
			Min:    records[smallest].Diameter,
			Max:    records[largest].Diameter,
			Mean:   sum / float64(len(records)),
			Median: median(sizes),
		},
		Sizes:    sizes,
		Smallest: &smallestRec,
		Largest:  &largestRec,
	}, nil
}

// median averages the two middle values for even-length input.
func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// GroupByRegion buckets records by region key. Records with no region are
// grouped under "". Each bucket keeps input order.
func GroupByRegion(records []domain.CraterRecord) map[string][]domain.CraterRecord {
	out := make(map[string][]domain.CraterRecord)
	for _, r := range records {
		out[r.RegionKey] = append(out[r.RegionKey], r)
	}
	return out
}
