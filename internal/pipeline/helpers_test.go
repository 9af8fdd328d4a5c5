package pipeline_test

import (
	"context"
	"log/slog"
	"sync"

	"github.com/twpayne/go-geom"

	"github.com/couchcryptid/mare-crater-map/internal/pipeline"
)

type recordingSink struct {
	mu       sync.Mutex
	frames   []pipeline.Frame
	regions  [][]pipeline.RegionShape
	details  []pipeline.Detail
	frameErr error
	notify   chan pipeline.Frame
}

func newRecordingSink() *recordingSink {
	return &recordingSink{notify: make(chan pipeline.Frame, 16)}
}

func (s *recordingSink) RenderFrame(_ context.Context, f pipeline.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frameErr != nil {
		return s.frameErr
	}
	s.frames = append(s.frames, f)
	s.notify <- f
	return nil
}

func (s *recordingSink) RenderRegions(_ context.Context, regions []pipeline.RegionShape) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions = append(s.regions, regions)
	return nil
}

func (s *recordingSink) ShowRegion(_ context.Context, d pipeline.Detail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details = append(s.details, d)
	return nil
}

func (s *recordingSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *recordingSink) lastDetail() pipeline.Detail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.details[len(s.details)-1]
}

func (s *recordingSink) detailCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.details)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func square(x, y, size float64) *geom.MultiPolygon {
	p := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y},
	}})
	mp := geom.NewMultiPolygon(geom.XY)
	if err := mp.Push(p); err != nil {
		panic(err)
	}
	return mp
}
