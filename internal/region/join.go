package region

import (
	"maps"
	"slices"

	"github.com/couchcryptid/mare-crater-map/internal/domain"
)

// JoinOptions tunes the geometry/metadata join.
type JoinOptions struct {
	// ReverseRings lists region keys whose first ring is stored with the
	// wrong winding upstream and must be flipped.
	ReverseRings []string
}

// JoinReport describes how geometry files matched metadata rows.
type JoinReport struct {
	Matched    []string
	Mismatches []*domain.JoinMismatchError
	// Unused lists metadata keys with no geometry file, sorted.
	Unused []string
}

// Join combines features with metadata on the normalized key. Unmatched
// features are kept with a nil Info and reported; unused metadata rows are
// ignored. The input features are not modified, so joining the same inputs
// twice yields identical regions.
func Join(features []Feature, metadata map[string]domain.MareInfo, opts JoinOptions) ([]domain.RegionPolygon, JoinReport, error) {
	var report JoinReport
	seen := make(map[string]bool, len(features))
	regions := make([]domain.RegionPolygon, 0, len(features))

	for _, f := range features {
		geometry := f.Geometry
		if slices.Contains(opts.ReverseRings, f.Key) {
			reversed, err := reverseFirstRing(geometry)
			if err != nil {
				return nil, JoinReport{}, err
			}
			geometry = reversed
		}

		r := domain.RegionPolygon{
			Key:        f.Key,
			SourceFile: f.File,
			Geometry:   geometry,
			Properties: maps.Clone(f.Properties),
		}
		if info, ok := metadata[f.Key]; ok {
			r = Merge(r, info)
			report.Matched = append(report.Matched, f.Key)
			seen[f.Key] = true
		} else {
			if r.Properties == nil {
				r.Properties = make(map[string]any)
			}
			report.Mismatches = append(report.Mismatches, &domain.JoinMismatchError{Key: f.Key, File: f.File})
		}
		r.Name = regionName(r)
		regions = append(regions, r)
	}

	for key := range metadata {
		if !seen[key] {
			report.Unused = append(report.Unused, key)
		}
	}
	slices.Sort(report.Unused)
	return regions, report, nil
}

// Merge overlays a metadata row on a region. The merge is shallow and the
// metadata wins on key collisions; merging the same row again is a no-op.
func Merge(r domain.RegionPolygon, info domain.MareInfo) domain.RegionPolygon {
	props := maps.Clone(r.Properties)
	if props == nil {
		props = make(map[string]any)
	}
	for k, v := range info.Extra {
		props[k] = v
	}
	props[ColMare] = info.Mare
	props[ColEnglishName] = info.EnglishName
	props[ColLatitude] = info.Latitude
	props[ColLongitude] = info.Longitude
	props[ColDiameter] = info.Diameter

	infoCopy := info
	infoCopy.Extra = maps.Clone(info.Extra)
	r.Properties = props
	r.Info = &infoCopy
	return r
}

func regionName(r domain.RegionPolygon) string {
	if r.Info != nil && r.Info.Mare != "" {
		return r.Info.Mare
	}
	if name, ok := r.Properties["name"].(string); ok && name != "" {
		return name
	}
	return domain.DisplayName(r.Key)
}
