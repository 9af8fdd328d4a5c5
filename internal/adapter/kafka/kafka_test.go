package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/mare-crater-map/internal/domain"
	"github.com/couchcryptid/mare-crater-map/internal/pipeline"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var testNow = time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

func newTestWriter(fw *fakeWriter) *FrameWriter {
	return newFrameWriter(fw, clockwork.NewFakeClockAt(testNow), slog.New(slog.DiscardHandler))
}

func headers(msg kafkago.Message) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestFrameWriter_RenderFrame(t *testing.T) {
	fw := &fakeWriter{}
	w := newTestWriter(fw)

	frame := pipeline.Frame{
		Seq:     7,
		Control: pipeline.Control{Mode: pipeline.ModeBin, Value: 2},
		Label:   "2–3 m",
		Visible: 1,
		Total:   10,
		Markers: []pipeline.Marker{{Lon: 1, Lat: 2, X: 3, Y: 4, R: 1.5, Size: 2.5, Region: "mare_imbrium"}},
	}
	require.NoError(t, w.RenderFrame(context.Background(), frame))
	require.Len(t, fw.msgs, 1)

	msg := fw.msgs[0]
	assert.Equal(t, []byte("bin"), msg.Key)
	h := headers(msg)
	assert.Equal(t, KindFrame, h["kind"])
	assert.Equal(t, "7", h["seq"])
	assert.Equal(t, "1", h["visible"])
	assert.Equal(t, testNow.Format(time.RFC3339), h["published_at"])

	var got pipeline.Frame
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, frame, got)
}

func TestFrameWriter_RenderRegions(t *testing.T) {
	fw := &fakeWriter{}
	w := newTestWriter(fw)

	require.NoError(t, w.RenderRegions(context.Background(), nil))
	assert.Empty(t, fw.msgs)

	regions := []pipeline.RegionShape{
		{Key: "mare_imbrium", Title: "Sea of Showers", Matched: true},
		{Key: "mare_vaporum", Title: "Sea of Vapors", Matched: true},
	}
	require.NoError(t, w.RenderRegions(context.Background(), regions))
	require.Len(t, fw.msgs, 2)
	assert.Equal(t, []byte("mare_vaporum"), fw.msgs[1].Key)
	assert.Equal(t, KindRegion, headers(fw.msgs[1])["kind"])
	assert.Contains(t, string(fw.msgs[0].Value), `"title":"Sea of Showers"`)
}

func TestFrameWriter_ShowRegion(t *testing.T) {
	fw := &fakeWriter{}
	w := newTestWriter(fw)

	d := pipeline.Detail{
		Key:    "mare_crisium",
		Title:  "Sea of Crises",
		Source: "table",
		Stats:  &domain.RegionStats{Key: "mare_crisium", Summary: domain.Summary{Count: 3}},
	}
	require.NoError(t, w.ShowRegion(context.Background(), d))
	require.Len(t, fw.msgs, 1)
	assert.Equal(t, []byte("mare_crisium"), fw.msgs[0].Key)
	assert.Equal(t, "table", headers(fw.msgs[0])["source"])
	assert.Contains(t, string(fw.msgs[0].Value), `"num_craters":3`)
}

func TestFrameWriter_WriteError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker unavailable")}
	w := newTestWriter(fw)

	err := w.RenderFrame(context.Background(), pipeline.Frame{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}
