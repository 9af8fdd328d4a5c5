package pipeline

import (
	"context"
	"errors"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/couchcryptid/mare-crater-map/internal/domain"
	"github.com/couchcryptid/mare-crater-map/internal/stats"
)

// Mode selects which filter policy the control drives.
type Mode string

const (
	ModeBin      Mode = "bin"
	ModeTimestep Mode = "timestep"
)

// Control is the current control position.
type Control struct {
	Mode  Mode `json:"mode"`
	Value int  `json:"value"`
}

// Marker is a crater projected onto the map canvas.
type Marker struct {
	Lon    float64 `json:"lon"`
	Lat    float64 `json:"lat"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	R      float64 `json:"r"`
	Size   float64 `json:"size"`
	Region string  `json:"region,omitempty"`
	// Role tags highlight markers in a detail view ("smallest", "largest").
	Role string `json:"role,omitempty"`
}

// Frame is the full crater layer for one control value.
type Frame struct {
	Seq     uint64   `json:"seq"`
	Control Control  `json:"control"`
	Label   string   `json:"label"`
	Visible int      `json:"visible"`
	Total   int      `json:"total"`
	Markers []Marker `json:"markers"`
}

// Detail is the region panel content. Exactly one of Stats and NoData is set.
type Detail struct {
	Key       string              `json:"key"`
	Title     string              `json:"title"`
	Control   Control             `json:"control"`
	Step      *int                `json:"step,omitempty"`
	Source    string              `json:"source"` // table, live or none
	Stats     *domain.RegionStats `json:"stats,omitempty"`
	NoData    bool                `json:"no_data"`
	Histogram *stats.Histogram    `json:"histogram,omitempty"`
	Markers   []Marker            `json:"markers,omitempty"`
}

// RegionShape is one region of the static base layer.
type RegionShape struct {
	Key        string            `json:"key"`
	Name       string            `json:"name"`
	Title      string            `json:"title"`
	Matched    bool              `json:"matched"`
	AnchorLon  float64           `json:"anchor_lon"`
	AnchorLat  float64           `json:"anchor_lat"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties map[string]any    `json:"properties,omitempty"`
}

// FrameSink draws the crater layer.
type FrameSink interface {
	RenderFrame(ctx context.Context, f Frame) error
}

// BaseSink draws the static region layer once per load.
type BaseSink interface {
	RenderRegions(ctx context.Context, regions []RegionShape) error
}

// DetailSink shows the region panel.
type DetailSink interface {
	ShowRegion(ctx context.Context, d Detail) error
}

// Sink is a render target that handles every layer.
type Sink interface {
	FrameSink
	BaseSink
	DetailSink
}

// FanOut delivers to every sink in order and joins their errors.
type FanOut []Sink

func (f FanOut) RenderFrame(ctx context.Context, frame Frame) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.RenderFrame(ctx, frame))
	}
	return errors.Join(errs...)
}

func (f FanOut) RenderRegions(ctx context.Context, regions []RegionShape) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.RenderRegions(ctx, regions))
	}
	return errors.Join(errs...)
}

func (f FanOut) ShowRegion(ctx context.Context, d Detail) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.ShowRegion(ctx, d))
	}
	return errors.Join(errs...)
}
