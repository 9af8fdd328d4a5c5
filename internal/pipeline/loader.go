package pipeline

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/couchcryptid/mare-crater-map/internal/crater"
	"github.com/couchcryptid/mare-crater-map/internal/domain"
	"github.com/couchcryptid/mare-crater-map/internal/observability"
	"github.com/couchcryptid/mare-crater-map/internal/region"
	"github.com/couchcryptid/mare-crater-map/internal/stats"
)

// Load sources, used as LoadError sources and metric labels.
const (
	SourceMetadata = "metadata"
	SourceGeometry = "geometry"
	SourceStats    = "stats"
	SourceCraters  = "craters"
)

// LoaderConfig names the inputs of one load.
type LoaderConfig struct {
	MetadataPath  string
	GeometryPaths []string
	// StatsPath is optional; an empty path skips the precomputed table.
	StatsPath        string
	Craters          crater.Source
	ReverseRings     []string
	LocatorCacheSize int
}

// Loader performs the startup load sequence: metadata, then all geometry
// files concurrently, then the join and base layer, then the statistics
// table, then the craters.
type Loader struct {
	cfg     LoaderConfig
	base    BaseSink
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewLoader creates a Loader. base may be nil.
func NewLoader(cfg LoaderConfig, base BaseSink, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loader{cfg: cfg, base: base, clock: clock, logger: logger, metrics: metrics}
}

// Load runs the sequence once. Metadata and statistics failures degrade the
// view and are logged; geometry and crater failures are returned as
// *domain.LoadError and leave nothing loaded. There is no retry.
func (l *Loader) Load(ctx context.Context) (*State, error) {
	metadata, err := region.LoadMetadata(ctx, l.cfg.MetadataPath)
	if err != nil {
		l.fail(SourceMetadata, err, "metadata unavailable, regions will be unnamed")
		metadata = map[string]domain.MareInfo{}
	}

	features, err := region.LoadGeometries(ctx, l.cfg.GeometryPaths)
	if err != nil {
		l.fail(SourceGeometry, err, "")
		return nil, domain.NewLoadError(SourceGeometry, err)
	}

	regions, report, err := region.Join(features, metadata, region.JoinOptions{ReverseRings: l.cfg.ReverseRings})
	if err != nil {
		l.fail(SourceGeometry, err, "")
		return nil, domain.NewLoadError(SourceGeometry, err)
	}
	for _, m := range report.Mismatches {
		l.logger.Warn("region without metadata", "key", m.Key, "file", m.File)
	}
	l.metrics.JoinMismatches.Add(float64(len(report.Mismatches)))

	index := region.NewIndex(regions)
	l.metrics.RegionsLoaded.Set(float64(index.Len()))
	if l.base != nil {
		if err := l.base.RenderRegions(ctx, Shapes(index)); err != nil {
			l.logger.Error("render base layer failed", "error", err)
		}
	}

	var table *stats.Table
	if l.cfg.StatsPath != "" {
		table, err = stats.LoadTable(ctx, l.cfg.StatsPath)
		if err != nil {
			l.fail(SourceStats, err, "falling back to live summaries")
			table = nil
		}
	}

	if l.cfg.Craters == nil {
		err := eris.New("no crater source configured")
		l.fail(SourceCraters, err, "")
		return nil, domain.NewLoadError(SourceCraters, err)
	}
	store := crater.NewStore(l.clock)
	craterReport, err := store.Load(ctx, l.cfg.Craters)
	if err != nil {
		l.fail(SourceCraters, err, "")
		return nil, err
	}
	l.metrics.RecordsRejected.Add(float64(craterReport.Rejected))
	if craterReport.Rejected > 0 {
		l.logger.Warn("rejected invalid crater records", "rejected", craterReport.Rejected, "read", craterReport.Read)
	}

	locator := region.NewCachedLocator(index, l.cfg.LocatorCacheSize, l.metrics)
	assigned := AssignRegions(store.All(), locator)
	store.Replace(assigned)
	l.metrics.CratersLoaded.Set(float64(store.Len()))

	l.logger.Info("map data loaded",
		"regions", index.Len(),
		"matched", len(report.Matched),
		"craters", store.Len(),
		"stats_table", table != nil,
		"loaded_at", store.LoadedAt(),
	)
	return &State{
		Store:   store,
		Index:   index,
		Stats:   table,
		Join:    report,
		Craters: craterReport,
		Locator: locator,
	}, nil
}

func (l *Loader) fail(source string, err error, fallback string) {
	l.metrics.LoadErrors.WithLabelValues(source).Inc()
	if fallback != "" {
		l.logger.Warn("load failed", "source", source, "error", err, "fallback", fallback)
		return
	}
	l.logger.Error("load failed", "source", source, "error", err)
}

// AssignRegions returns a copy of records in which every record without a
// region key gets the key of the region containing it, if any.
func AssignRegions(records []domain.CraterRecord, locator region.Locator) []domain.CraterRecord {
	out := make([]domain.CraterRecord, len(records))
	for i, r := range records {
		if r.RegionKey == "" {
			if key, ok := locator.Locate(r.Longitude, r.Latitude); ok {
				r.RegionKey = key
			}
		}
		out[i] = r
	}
	return out
}

// Shapes converts the index into base-layer shapes in load order.
func Shapes(index *region.Index) []RegionShape {
	shapes := make([]RegionShape, 0, index.Len())
	for _, r := range index.Regions() {
		s := RegionShape{
			Key:        r.Key,
			Name:       r.Name,
			Title:      r.Title(),
			Matched:    r.Matched(),
			Properties: r.Properties,
		}
		if g, err := geojson.Encode(r.Geometry); err == nil {
			s.Geometry = g
		}
		s.AnchorLon, s.AnchorLat, _ = index.LabelAnchor(r.Key)
		shapes = append(shapes, s)
	}
	return shapes
}
