package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/mare-crater-map/internal/config"
	"github.com/couchcryptid/mare-crater-map/internal/pipeline"
)

// Message kinds carried in the "kind" header.
const (
	KindFrame  = "frame"
	KindRegion = "region"
	KindDetail = "detail"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// FrameWriter publishes map layers to a Kafka topic as JSON for a remote
// renderer. It implements pipeline.Sink.
type FrameWriter struct {
	writer messageWriter
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewFrameWriter creates a Kafka producer for the configured frame topic.
func NewFrameWriter(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger) *FrameWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaFrameTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		Compression:  kafkago.Snappy,
	}
	return newFrameWriter(w, clock, logger)
}

func newFrameWriter(w messageWriter, clock clockwork.Clock, logger *slog.Logger) *FrameWriter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FrameWriter{writer: w, clock: clock, logger: logger}
}

// RenderFrame publishes one crater frame keyed by control mode, so frames of
// one view stay ordered on a single partition.
func (w *FrameWriter) RenderFrame(ctx context.Context, f pipeline.Frame) error {
	msg, err := w.message(KindFrame, string(f.Control.Mode), f,
		kafkago.Header{Key: "seq", Value: []byte(strconv.FormatUint(f.Seq, 10))},
		kafkago.Header{Key: "visible", Value: []byte(strconv.Itoa(f.Visible))},
	)
	if err != nil {
		return err
	}
	return w.write(ctx, msg)
}

// RenderRegions publishes the base layer, one message per region, in a
// single WriteMessages call.
func (w *FrameWriter) RenderRegions(ctx context.Context, regions []pipeline.RegionShape) error {
	if len(regions) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(regions))
	for i := range regions {
		msg, err := w.message(KindRegion, regions[i].Key, regions[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.write(ctx, msgs...)
}

// ShowRegion publishes a region panel keyed by region.
func (w *FrameWriter) ShowRegion(ctx context.Context, d pipeline.Detail) error {
	msg, err := w.message(KindDetail, d.Key, d,
		kafkago.Header{Key: "source", Value: []byte(d.Source)},
	)
	if err != nil {
		return err
	}
	return w.write(ctx, msg)
}

func (w *FrameWriter) Close() error {
	return w.writer.Close()
}

func (w *FrameWriter) write(ctx context.Context, msgs ...kafkago.Message) error {
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		w.logger.Error("publish failed", "kind", headerValue(msgs[0], "kind"), "messages", len(msgs), "error", err)
		return eris.Wrap(err, "kafka: write messages")
	}
	return nil
}

// message marshals v into a Kafka message with the common headers.
func (w *FrameWriter) message(kind, key string, v any, extra ...kafkago.Header) (kafkago.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kafkago.Message{}, eris.Wrapf(err, "kafka: serialize %s", kind)
	}
	headers := append([]kafkago.Header{
		{Key: "kind", Value: []byte(kind)},
		{Key: "published_at", Value: []byte(w.clock.Now().UTC().Format(time.RFC3339))},
	}, extra...)
	return kafkago.Message{
		Key:     []byte(key),
		Value:   data,
		Headers: headers,
	}, nil
}

func headerValue(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
