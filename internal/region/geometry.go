package region

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/mare-crater-map/internal/domain"
)

// Feature is the first feature of one geometry file, before the metadata join.
type Feature struct {
	Key        string
	File       string
	Geometry   *geom.MultiPolygon
	Properties map[string]any
}

// LoadGeometry decodes a GeoJSON FeatureCollection and keeps its first
// feature. The key is derived from the filename stem.
func LoadGeometry(ctx context.Context, path string) (Feature, error) {
	if err := ctx.Err(); err != nil {
		return Feature{}, eris.Wrap(err, "region: context cancelled")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Feature{}, eris.Wrapf(err, "region: read geometry %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return Feature{}, eris.Wrapf(err, "region: decode geometry %s", path)
	}
	if len(fc.Features) == 0 || fc.Features[0] == nil {
		return Feature{}, eris.Errorf("region: %s has no features", path)
	}
	first := fc.Features[0]

	mp, err := toMultiPolygon(first.Geometry)
	if err != nil {
		return Feature{}, eris.Wrapf(err, "region: %s", path)
	}
	return Feature{
		Key:        domain.KeyFromFilename(path),
		File:       path,
		Geometry:   mp,
		Properties: first.Properties,
	}, nil
}

// LoadGeometries loads every file concurrently and returns features in the
// order of paths. The first failure cancels the rest.
func LoadGeometries(ctx context.Context, paths []string) ([]Feature, error) {
	features := make([]Feature, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			f, err := LoadGeometry(gctx, path)
			if err != nil {
				return err
			}
			features[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return features, nil
}

func toMultiPolygon(g geom.T) (*geom.MultiPolygon, error) {
	switch g := g.(type) {
	case *geom.MultiPolygon:
		if g.NumPolygons() == 0 {
			return nil, eris.New("empty multipolygon")
		}
		return g, nil
	case *geom.Polygon:
		if g.NumLinearRings() == 0 {
			return nil, eris.New("empty polygon")
		}
		mp := geom.NewMultiPolygon(g.Layout())
		if err := mp.Push(g); err != nil {
			return nil, eris.Wrap(err, "promote polygon")
		}
		return mp, nil
	case nil:
		return nil, eris.New("feature has no geometry")
	default:
		return nil, eris.Errorf("unsupported geometry %T", g)
	}
}

// reverseFirstRing returns a copy of mp whose first ring (the exterior of
// the first polygon) has its vertex order reversed.
func reverseFirstRing(mp *geom.MultiPolygon) (*geom.MultiPolygon, error) {
	out := geom.NewMultiPolygon(mp.Layout())
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		if i == 0 {
			p = reversedExterior(p)
		}
		if err := out.Push(p); err != nil {
			return nil, eris.Wrap(err, "region: rebuild multipolygon")
		}
	}
	return out, nil
}

func reversedExterior(p *geom.Polygon) *geom.Polygon {
	stride := p.Stride()
	flat := append([]float64(nil), p.FlatCoords()...)
	ends := append([]int(nil), p.Ends()...)
	if len(ends) == 0 {
		return p
	}
	n := ends[0] / stride
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		for k := 0; k < stride; k++ {
			flat[i*stride+k], flat[j*stride+k] = flat[j*stride+k], flat[i*stride+k]
		}
	}
	return geom.NewPolygonFlat(p.Layout(), flat, ends)
}
