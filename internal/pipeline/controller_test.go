package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/mare-crater-map/internal/crater"
	"github.com/couchcryptid/mare-crater-map/internal/domain"
	"github.com/couchcryptid/mare-crater-map/internal/observability"
	"github.com/couchcryptid/mare-crater-map/internal/pipeline"
	"github.com/couchcryptid/mare-crater-map/internal/projection"
	"github.com/couchcryptid/mare-crater-map/internal/region"
	"github.com/couchcryptid/mare-crater-map/internal/stats"
)

func newTestState(t *testing.T) *pipeline.State {
	t.Helper()
	index := region.NewIndex([]domain.RegionPolygon{
		{
			Key:      "mare_alpha",
			Name:     "Mare Alpha",
			Geometry: square(0, 0, 10),
			Info:     &domain.MareInfo{Mare: "Mare Alpha", EnglishName: "Sea of Alpha"},
		},
		{Key: "mare_beta", Geometry: square(20, 0, 10)},
	})
	store := crater.NewStore(clockwork.NewFakeClock())
	store.Replace([]domain.CraterRecord{
		{Longitude: 1, Latitude: 1, Diameter: 0.5, CreatedStep: domain.Step(0), ErasedStep: domain.Step(3), RegionKey: "mare_alpha"},
		{Longitude: 2, Latitude: 2, Diameter: 2.5, CreatedStep: domain.Step(1), RegionKey: "mare_alpha"},
		{Longitude: 21, Latitude: 1, Diameter: 0.7, CreatedStep: domain.Step(2)},
		{Longitude: 50, Latitude: 50, Diameter: 12, CreatedStep: domain.Step(4)},
	})
	return &pipeline.State{Store: store, Index: index}
}

func newTestController(mode pipeline.Mode, sink *recordingSink, clock clockwork.Clock) (*pipeline.Controller, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	c := pipeline.NewController(pipeline.Options{
		Mode:     mode,
		Debounce: 50 * time.Millisecond,
		Clock:    clock,
	}, sink, sink, discardLogger(), metrics)
	return c, metrics
}

func TestController_NotReady(t *testing.T) {
	sink := newRecordingSink()
	c, _ := newTestController(pipeline.ModeBin, sink, clockwork.NewFakeClock())

	assert.False(t, c.Ready())

	_, err := c.Recompute(context.Background(), 0)
	assert.ErrorIs(t, err, pipeline.ErrNotReady)
	_, err = c.SelectRegion(context.Background(), "mare_alpha")
	assert.ErrorIs(t, err, pipeline.ErrNotReady)
	assert.Zero(t, sink.frameCount())
}

func TestController_RecomputeBin(t *testing.T) {
	sink := newRecordingSink()
	c, metrics := newTestController(pipeline.ModeBin, sink, clockwork.NewFakeClock())
	c.SetState(newTestState(t))
	require.True(t, c.Ready())

	frame, err := c.Recompute(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, pipeline.Control{Mode: pipeline.ModeBin, Value: 0}, frame.Control)
	assert.Equal(t, "0–1 m", frame.Label)
	assert.Equal(t, 2, frame.Visible)
	assert.Equal(t, 4, frame.Total)
	require.Len(t, frame.Markers, 2)
	assert.Equal(t, 0.5, frame.Markers[0].Size, "markers keep store order")
	assert.Equal(t, 0.7, frame.Markers[1].Size)

	x, y := projection.Default().Project(1, 1)
	assert.InDelta(t, x, frame.Markers[0].X, 1e-9)
	assert.InDelta(t, y, frame.Markers[0].Y, 1e-9)
	assert.InDelta(t, projection.MarkerRadius(0.5), frame.Markers[0].R, 1e-12)

	assert.Equal(t, 1, sink.frameCount())
	assert.Equal(t, c.Control(), frame.Control)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Recomputes.WithLabelValues("bin")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.VisibleCraters))

	lo, hi := c.Range()
	assert.Equal(t, 0, lo)
	assert.Equal(t, 9, hi)

	frame, err = c.Recompute(context.Background(), 42)
	require.NoError(t, err)
	assert.Zero(t, frame.Visible, "out-of-range bin shows nothing")
	assert.Empty(t, frame.Markers)
}

func TestController_RecomputeTimestep(t *testing.T) {
	sink := newRecordingSink()
	c, _ := newTestController(pipeline.ModeTimestep, sink, clockwork.NewFakeClock())
	c.SetState(newTestState(t))

	frame, err := c.Recompute(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, frame.Visible)
	assert.Equal(t, "t = 2", frame.Label)

	frame, err = c.Recompute(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Visible, "first crater erased at step 3")

	lo, hi := c.Range()
	assert.Equal(t, 0, lo)
	assert.Equal(t, 4, hi)
}

func TestController_InputIsDebounced(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := newRecordingSink()
	c, metrics := newTestController(pipeline.ModeBin, sink, clock)
	defer c.Close()
	c.SetState(newTestState(t))

	ctx := context.Background()
	c.Input(ctx, 0)
	c.Input(ctx, 1)
	c.Input(ctx, 2)
	clock.Advance(50 * time.Millisecond)

	select {
	case f := <-sink.notify:
		assert.Equal(t, 2, f.Control.Value)
		assert.Equal(t, 1, f.Visible)
	case <-time.After(time.Second):
		t.Fatal("no frame rendered")
	}

	select {
	case f := <-sink.notify:
		t.Fatalf("unexpected extra frame for value %d", f.Control.Value)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, sink.frameCount())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.InputsSuperseded))
}

func TestController_InputMovingBackward(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := newRecordingSink()
	c, metrics := newTestController(pipeline.ModeBin, sink, clock)
	defer c.Close()
	c.SetState(newTestState(t))

	nextFrame := func() pipeline.Frame {
		t.Helper()
		select {
		case f := <-sink.notify:
			return f
		case <-time.After(time.Second):
			t.Fatal("no frame rendered")
			return pipeline.Frame{}
		}
	}

	ctx := context.Background()
	c.Input(ctx, 5)
	c.Input(ctx, 3)
	c.Input(ctx, 1)
	clock.Advance(50 * time.Millisecond)
	f := nextFrame()
	assert.Equal(t, 1, f.Control.Value, "last value of a descending burst wins")
	assert.Zero(t, f.Visible)

	c.Input(ctx, 0)
	clock.Advance(50 * time.Millisecond)
	f = nextFrame()
	assert.Equal(t, 0, f.Control.Value)
	assert.Equal(t, 2, f.Visible)

	select {
	case f := <-sink.notify:
		t.Fatalf("unexpected extra frame for value %d", f.Control.Value)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 2, sink.frameCount())
	assert.Equal(t, 0, c.Control().Value)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.InputsSuperseded))
}

func TestController_SelectRegionLive(t *testing.T) {
	sink := newRecordingSink()
	c, metrics := newTestController(pipeline.ModeBin, sink, clockwork.NewFakeClock())
	c.SetState(newTestState(t))

	_, err := c.Recompute(context.Background(), 0)
	require.NoError(t, err)

	d, err := c.SelectRegion(context.Background(), "mare_beta")
	require.NoError(t, err)
	assert.Equal(t, "mare_beta", c.Selected())
	assert.Equal(t, "Mare Beta", d.Title)
	assert.Equal(t, "live", d.Source)
	assert.False(t, d.NoData)
	require.NotNil(t, d.Stats)
	assert.Equal(t, 1, d.Stats.Summary.Count, "unkeyed crater matched by containment")
	assert.Equal(t, 0.7, d.Stats.Summary.Max)
	require.NotNil(t, d.Histogram)
	assert.Len(t, d.Histogram.Bins, 6)
	require.Len(t, d.Markers, 2)
	assert.Equal(t, "smallest", d.Markers[0].Role)
	assert.Equal(t, "largest", d.Markers[1].Role)
	assert.Equal(t, 1, sink.detailCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DetailQueries.WithLabelValues("live")))

	// A recompute refreshes the open panel.
	_, err = c.Recompute(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, sink.detailCount())
	assert.Equal(t, 2, sink.lastDetail().Control.Value)

	c.ClearRegion()
	_, err = c.Recompute(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, sink.detailCount(), "closed panel is not refreshed")
}

func TestController_SelectRegionNoData(t *testing.T) {
	sink := newRecordingSink()
	c, metrics := newTestController(pipeline.ModeBin, sink, clockwork.NewFakeClock())
	c.SetState(newTestState(t))

	_, err := c.Recompute(context.Background(), 9)
	require.NoError(t, err)

	d, err := c.SelectRegion(context.Background(), "mare_alpha")
	require.NoError(t, err)
	assert.True(t, d.NoData)
	assert.Nil(t, d.Stats)
	assert.Nil(t, d.Histogram)
	assert.Equal(t, "Sea of Alpha", d.Title)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DetailQueries.WithLabelValues("no_data")))
}

func TestController_DetailPrefersTable(t *testing.T) {
	table, err := stats.ParseTable([]byte(`{"mare_alpha": {"2": {
		"summ_stat": {"num_craters": 40, "min_size": 0.1, "max_size": 9, "mean_size": 2, "med_size": 1.5},
		"sizes": [0.1, 1.5, 9],
		"plot_craters": {"smallest": {"longitude": 3, "lattitude": 4, "diameter": 0.1},
		                 "largest": {"longitude": 5, "latitude": 6, "diameter": 9}}}}}`))
	require.NoError(t, err)

	sink := newRecordingSink()
	c, _ := newTestController(pipeline.ModeTimestep, sink, clockwork.NewFakeClock())
	st := newTestState(t)
	st.Stats = table
	c.SetState(st)

	d, err := c.Detail("mare_alpha", pipeline.Control{Mode: pipeline.ModeTimestep, Value: 2})
	require.NoError(t, err)
	assert.Equal(t, "table", d.Source)
	require.NotNil(t, d.Step)
	assert.Equal(t, 2, *d.Step)
	assert.Equal(t, 40, d.Stats.Summary.Count)
	assert.Equal(t, 4.0, d.Markers[0].Lat)

	d, err = c.Detail("mare_alpha", pipeline.Control{Mode: pipeline.ModeTimestep, Value: 1})
	require.NoError(t, err)
	assert.Equal(t, "live", d.Source, "table miss falls back to a live summary")
	assert.Equal(t, 2, d.Stats.Summary.Count)
	assert.Equal(t, 1, *d.Stats.Step)
}

func TestController_DetailEmptyTableEntry(t *testing.T) {
	table, err := stats.ParseTable([]byte(`{"mare_alpha": {"1": {
		"summ_stat": {"num_craters": 0, "min_size": 0, "max_size": 0, "mean_size": 0, "med_size": 0},
		"sizes": []}}}`))
	require.NoError(t, err)

	sink := newRecordingSink()
	c, metrics := newTestController(pipeline.ModeTimestep, sink, clockwork.NewFakeClock())
	st := newTestState(t)
	st.Stats = table
	c.SetState(st)

	d, err := c.Detail("mare_alpha", pipeline.Control{Mode: pipeline.ModeTimestep, Value: 1})
	require.NoError(t, err)
	assert.True(t, d.NoData, "an empty table entry is no data, not a zero summary")
	assert.Equal(t, "table", d.Source)
	assert.Nil(t, d.Stats)
	assert.Nil(t, d.Histogram)
	assert.Empty(t, d.Markers)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DetailQueries.WithLabelValues("no_data")))
}

func TestController_DetailTableWithoutPlotCraters(t *testing.T) {
	table, err := stats.ParseTable([]byte(`{"mare_alpha": {"2": {
		"summ_stat": {"num_craters": 2, "min_size": 0.5, "max_size": 2.5, "mean_size": 1.5, "med_size": 1.5},
		"sizes": [0.5, 2.5]}}}`))
	require.NoError(t, err)

	sink := newRecordingSink()
	c, _ := newTestController(pipeline.ModeTimestep, sink, clockwork.NewFakeClock())
	st := newTestState(t)
	st.Stats = table
	c.SetState(st)

	d, err := c.Detail("mare_alpha", pipeline.Control{Mode: pipeline.ModeTimestep, Value: 2})
	require.NoError(t, err)
	assert.Equal(t, "table", d.Source)
	require.NotNil(t, d.Stats)
	assert.Equal(t, 2, d.Stats.Summary.Count)
	assert.NotNil(t, d.Histogram)
	assert.Empty(t, d.Markers, "no highlight markers without recorded extremes")
}

func TestController_DetailUsesCachedMembership(t *testing.T) {
	sink := newRecordingSink()
	c, metrics := newTestController(pipeline.ModeBin, sink, clockwork.NewFakeClock())
	st := newTestState(t)
	st.Locator = region.NewCachedLocator(st.Index, 16, metrics)
	c.SetState(st)

	for range 2 {
		d, err := c.Detail("mare_beta", pipeline.Control{Mode: pipeline.ModeBin, Value: 0})
		require.NoError(t, err)
		require.NotNil(t, d.Stats)
		assert.Equal(t, 1, d.Stats.Summary.Count)
		assert.Equal(t, 0.7, d.Stats.Summary.Max)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LocatorCache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LocatorCache.WithLabelValues("hit")))
}

func TestController_SelectUnknownRegion(t *testing.T) {
	sink := newRecordingSink()
	c, _ := newTestController(pipeline.ModeBin, sink, clockwork.NewFakeClock())
	c.SetState(newTestState(t))

	_, err := c.SelectRegion(context.Background(), "mare_nowhere")
	require.Error(t, err)
	assert.Empty(t, c.Selected())
}

func TestController_FrameSinkError(t *testing.T) {
	sink := newRecordingSink()
	sink.frameErr = errors.New("sink down")
	c, metrics := newTestController(pipeline.ModeBin, sink, clockwork.NewFakeClock())
	c.SetState(newTestState(t))

	_, err := c.Recompute(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink down")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FramePublishError))
	assert.Zero(t, testutil.ToFloat64(metrics.FramesPublished))
}

func TestController_Flush(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := newRecordingSink()
	c, _ := newTestController(pipeline.ModeBin, sink, clock)
	c.SetState(newTestState(t))

	flushed, err := c.Flush(context.Background())
	require.NoError(t, err)
	assert.False(t, flushed)

	c.Input(context.Background(), 1)
	flushed, err = c.Flush(context.Background())
	require.NoError(t, err)
	assert.True(t, flushed)
	assert.Equal(t, 1, sink.frameCount())
	assert.Equal(t, 1, c.Control().Value)
}

func newEventLoopController(sink *recordingSink, clock clockwork.Clock) *pipeline.Controller {
	return pipeline.NewController(pipeline.Options{
		Mode:      pipeline.ModeBin,
		Debounce:  50 * time.Millisecond,
		Clock:     clock,
		EventLoop: true,
	}, sink, sink, discardLogger(), observability.NewMetricsForTesting())
}

func TestController_EventLoopDeliversFiredValues(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := newRecordingSink()
	c := newEventLoopController(sink, clock)
	defer c.Close()
	c.SetState(newTestState(t))

	ctx := context.Background()
	c.Input(ctx, 0)
	c.Input(ctx, 2)
	clock.Advance(50 * time.Millisecond)

	var v int
	select {
	case v = <-c.Fired():
	case <-time.After(time.Second):
		t.Fatal("no value fired")
	}
	assert.Equal(t, 2, v)
	assert.Zero(t, sink.frameCount(), "the timer never recomputes in event loop mode")

	_, err := c.Recompute(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, 1, sink.frameCount())
}

func TestController_EventLoopFlushTakesFiredValue(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := newRecordingSink()
	c := newEventLoopController(sink, clock)
	defer c.Close()
	c.SetState(newTestState(t))

	c.Input(context.Background(), 1)
	clock.Advance(50 * time.Millisecond)
	require.Eventually(t, func() bool { return len(c.Fired()) == 1 }, time.Second, time.Millisecond)

	flushed, err := c.Flush(context.Background())
	require.NoError(t, err)
	assert.True(t, flushed)
	assert.Equal(t, 1, c.Control().Value)
	assert.Equal(t, 1, sink.frameCount())
}

func TestController_FiredIsNilWithoutEventLoop(t *testing.T) {
	c, _ := newTestController(pipeline.ModeBin, newRecordingSink(), clockwork.NewFakeClock())
	assert.Nil(t, c.Fired())
}
