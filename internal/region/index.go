package region

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/couchcryptid/mare-crater-map/internal/domain"
)

// Index answers point queries against the joined regions. It is immutable
// once built; a reload builds a new Index.
type Index struct {
	regions []domain.RegionPolygon
	bounds  []*geom.Bounds
	byKey   map[string]int
}

// NewIndex builds an index over regions, keeping their order. A later
// region with a duplicate key shadows an earlier one for key lookups.
func NewIndex(regions []domain.RegionPolygon) *Index {
	ix := &Index{
		regions: regions,
		bounds:  make([]*geom.Bounds, len(regions)),
		byKey:   make(map[string]int, len(regions)),
	}
	for i, r := range regions {
		if r.Geometry != nil {
			ix.bounds[i] = r.Geometry.Bounds()
		}
		ix.byKey[r.Key] = i
	}
	return ix
}

// Regions returns all regions in load order.
func (ix *Index) Regions() []domain.RegionPolygon { return ix.regions }

// Len returns the number of regions.
func (ix *Index) Len() int { return len(ix.regions) }

// Get returns the region with key.
func (ix *Index) Get(key string) (domain.RegionPolygon, bool) {
	i, ok := ix.byKey[key]
	if !ok {
		return domain.RegionPolygon{}, false
	}
	return ix.regions[i], true
}

// ContainsPoint reports whether (lon, lat) lies inside the region's
// geometry: inside or on the exterior ring of any member polygon and not
// inside one of its holes. Unknown keys contain nothing.
func (ix *Index) ContainsPoint(key string, lon, lat float64) bool {
	i, ok := ix.byKey[key]
	if !ok {
		return false
	}
	return ix.contains(i, geom.Coord{lon, lat})
}

// Locate returns the key of the first region containing (lon, lat).
func (ix *Index) Locate(lon, lat float64) (string, bool) {
	c := geom.Coord{lon, lat}
	for i := range ix.regions {
		if ix.contains(i, c) {
			return ix.regions[i].Key, true
		}
	}
	return "", false
}

func (ix *Index) contains(i int, c geom.Coord) bool {
	mp := ix.regions[i].Geometry
	if mp == nil || !inBounds(ix.bounds[i], c) {
		return false
	}
	for p := 0; p < mp.NumPolygons(); p++ {
		if polygonContains(mp.Polygon(p), c) {
			return true
		}
	}
	return false
}

func polygonContains(p *geom.Polygon, c geom.Coord) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	layout := p.Layout()
	if !xy.IsPointInRing(layout, c, p.LinearRing(0).FlatCoords()) {
		return false
	}
	for h := 1; h < p.NumLinearRings(); h++ {
		if xy.IsPointInRing(layout, c, p.LinearRing(h).FlatCoords()) {
			return false
		}
	}
	return true
}

func inBounds(b *geom.Bounds, c geom.Coord) bool {
	if b == nil || b.IsEmpty() {
		return false
	}
	return c[0] >= b.Min(0) && c[0] <= b.Max(0) && c[1] >= b.Min(1) && c[1] <= b.Max(1)
}

// LabelAnchor returns the point a callout for the region should point at:
// the centroid of its largest member polygon. Smaller islands of a
// multi-polygon are ignored for placement only.
func (ix *Index) LabelAnchor(key string) (lon, lat float64, ok bool) {
	r, found := ix.Get(key)
	if !found || r.Geometry == nil || r.Geometry.NumPolygons() == 0 {
		return 0, 0, false
	}
	largest := LargestPolygon(r.Geometry)
	if centroid, err := xy.Centroid(largest); err == nil && len(centroid) >= 2 {
		return centroid[0], centroid[1], true
	}
	b := largest.Bounds()
	return (b.Min(0) + b.Max(0)) / 2, (b.Min(1) + b.Max(1)) / 2, true
}

// LargestPolygon returns the member polygon with the greatest area, the
// first one on ties.
func LargestPolygon(mp *geom.MultiPolygon) *geom.Polygon {
	var best *geom.Polygon
	bestArea := -1.0
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		if a := p.Area(); a > bestArea {
			best, bestArea = p, a
		}
	}
	return best
}
