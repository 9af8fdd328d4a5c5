package main

import (
	"context"
	"io"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"

	"github.com/couchcryptid/mare-crater-map/internal/adapter/console"
	kafkaadapter "github.com/couchcryptid/mare-crater-map/internal/adapter/kafka"
	"github.com/couchcryptid/mare-crater-map/internal/config"
	"github.com/couchcryptid/mare-crater-map/internal/crater"
	"github.com/couchcryptid/mare-crater-map/internal/domain"
	"github.com/couchcryptid/mare-crater-map/internal/pipeline"
	"github.com/couchcryptid/mare-crater-map/internal/projection"
)

// app is one wired view: loader, controller, and sinks.
type app struct {
	loader     *pipeline.Loader
	controller *pipeline.Controller
	console    *console.Sink
	kafka      *kafkaadapter.FrameWriter
}

// newApp wires the view around cfg. Layers go to out as JSON lines unless
// out is nil, and to the frame topic when KAFKA_ENABLED is set.
func newApp(cfg *config.Config, out io.Writer) (*app, error) {
	src, err := craterSource(cfg)
	if err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()
	a := &app{}
	var sinks pipeline.FanOut
	if out != nil {
		a.console = console.NewSink(out)
		sinks = append(sinks, a.console)
	}
	if cfg.KafkaEnabled {
		a.kafka = kafkaadapter.NewFrameWriter(cfg, clock, logger)
		sinks = append(sinks, a.kafka)
		logger.Info("kafka frame sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaFrameTopic)
	}

	a.loader = pipeline.NewLoader(loaderConfig(cfg, src), sinks, clock, logger, metrics)
	a.controller = pipeline.NewController(pipeline.Options{
		Mode:       pipeline.Mode(cfg.FilterMode),
		Thresholds: cfg.DiameterBins,
		Debounce:   cfg.DebounceInterval,
		Projection: projection.Equirectangular{Width: cfg.MapWidth, Height: cfg.MapHeight},
		Clock:      clock,
		EventLoop:  true,
	}, sinks, sinks, logger, metrics)
	return a, nil
}

// load runs the load sequence and installs the result. On failure the
// previously installed data, if any, stays in place.
func (a *app) load(ctx context.Context) error {
	st, err := a.loader.Load(ctx)
	if err != nil {
		return err
	}
	a.controller.SetState(st)
	return nil
}

func (a *app) close() {
	a.controller.Close()
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
}

func craterSource(cfg *config.Config) (crater.Source, error) {
	unit, err := domain.ParseUnit(cfg.CraterSizeUnit)
	if err != nil {
		return nil, eris.Wrap(err, "CRATER_SIZE_UNIT")
	}
	if cfg.CratersSurvivedPath != "" {
		return crater.CSVSource{
			SurvivedPath: cfg.CratersSurvivedPath,
			ErasedPath:   cfg.CratersErasedPath,
			Unit:         unit,
		}, nil
	}
	return crater.JSONSource{Path: cfg.CratersPath, Unit: unit}, nil
}

func loaderConfig(cfg *config.Config, src crater.Source) pipeline.LoaderConfig {
	return pipeline.LoaderConfig{
		MetadataPath:     cfg.MareInfoPath,
		GeometryPaths:    cfg.MareGeometryFiles,
		StatsPath:        cfg.MareStatsPath,
		Craters:          src,
		ReverseRings:     cfg.ReversedRingRegions,
		LocatorCacheSize: cfg.LocatorCacheSize,
	}
}
