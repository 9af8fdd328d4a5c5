// Package console writes map layers as JSON lines, one envelope per layer
// update, for the command-line host and for piping into other tools.
package console

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/couchcryptid/mare-crater-map/internal/pipeline"
)

// Envelope is one output line.
type Envelope struct {
	Kind    string                 `json:"kind"`
	Frame   *pipeline.Frame        `json:"frame,omitempty"`
	Regions []pipeline.RegionShape `json:"regions,omitempty"`
	Detail  *pipeline.Detail       `json:"detail,omitempty"`
}

// Sink implements pipeline.Sink over an io.Writer. It is safe for
// concurrent use.
type Sink struct {
	mu  sync.Mutex
	enc *json.Encoder
	// OmitMarkers drops per-crater markers from frames, leaving the counts.
	OmitMarkers bool
	// OmitGeometry drops region outlines from the base layer.
	OmitGeometry bool
}

// NewSink creates a Sink writing to w.
func NewSink(w io.Writer) *Sink {
	return &Sink{enc: json.NewEncoder(w)}
}

func (s *Sink) RenderFrame(_ context.Context, f pipeline.Frame) error {
	if s.OmitMarkers {
		f.Markers = nil
	}
	return s.write(Envelope{Kind: "frame", Frame: &f})
}

func (s *Sink) RenderRegions(_ context.Context, regions []pipeline.RegionShape) error {
	if s.OmitGeometry {
		stripped := make([]pipeline.RegionShape, len(regions))
		for i, r := range regions {
			r.Geometry = nil
			stripped[i] = r
		}
		regions = stripped
	}
	return s.write(Envelope{Kind: "regions", Regions: regions})
}

func (s *Sink) ShowRegion(_ context.Context, d pipeline.Detail) error {
	return s.write(Envelope{Kind: "detail", Detail: &d})
}

func (s *Sink) write(e Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(e); err != nil {
		return eris.Wrapf(err, "console: write %s", e.Kind)
	}
	return nil
}
