package domain

import "github.com/twpayne/go-geom"

// MareInfo is one row of the mare metadata table. The named columns are kept
// verbatim for display; anything else lands in Extra.
type MareInfo struct {
	Mare        string            `json:"mare"`
	EnglishName string            `json:"english_name,omitempty"`
	Latitude    string            `json:"latitude,omitempty"`
	Longitude   string            `json:"longitude,omitempty"`
	Diameter    string            `json:"diameter,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// RegionPolygon is a mare outline joined with its metadata row.
type RegionPolygon struct {
	Key        string
	Name       string
	SourceFile string

	// Geometry always holds at least one polygon; single polygons from the
	// source are promoted to a one-member multi-polygon.
	Geometry *geom.MultiPolygon

	// Properties is the GeoJSON property bag with metadata merged on top.
	Properties map[string]any

	// Info is nil when the geometry file had no metadata counterpart.
	Info *MareInfo
}

// Matched reports whether the region was joined to a metadata row.
func (r RegionPolygon) Matched() bool { return r.Info != nil }

// Title returns the best human label for the region: the English name when
// known, then the metadata mare name, then the derived display name.
func (r RegionPolygon) Title() string {
	if r.Info != nil {
		if r.Info.EnglishName != "" {
			return r.Info.EnglishName
		}
		if r.Info.Mare != "" {
			return r.Info.Mare
		}
	}
	if r.Name != "" {
		return r.Name
	}
	return DisplayName(r.Key)
}
