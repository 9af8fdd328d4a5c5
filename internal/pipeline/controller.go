// Package pipeline binds the map control to the filter, the aggregator, and
// the render sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"

	"github.com/couchcryptid/mare-crater-map/internal/crater"
	"github.com/couchcryptid/mare-crater-map/internal/domain"
	"github.com/couchcryptid/mare-crater-map/internal/filter"
	"github.com/couchcryptid/mare-crater-map/internal/observability"
	"github.com/couchcryptid/mare-crater-map/internal/projection"
	"github.com/couchcryptid/mare-crater-map/internal/region"
	"github.com/couchcryptid/mare-crater-map/internal/stats"
)

// ErrNotReady is returned by queries issued before the first successful load.
var ErrNotReady = errors.New("map data has not been loaded yet")

// State is everything one load produced. It is replaced wholesale on reload.
type State struct {
	Store *crater.Store
	Index *region.Index
	// Stats is nil when the precomputed table could not be loaded.
	Stats   *stats.Table
	Join    region.JoinReport
	Craters crater.Report
	// Locator answers point queries against Index through a cache; nil
	// means query Index directly.
	Locator *region.CachedLocator
}

// membership returns the containment test for region-scoped filtering.
func (s *State) membership() filter.Membership {
	if s.Locator != nil {
		return s.Locator
	}
	return s.Index
}

// Options configures a Controller.
type Options struct {
	Mode       Mode
	Thresholds []float64
	Debounce   time.Duration
	Projection projection.Equirectangular
	Clock      clockwork.Clock
	// EventLoop hands debounced values to the host on Fired instead of
	// recomputing on the timer goroutine, so every recompute runs on the
	// host's loop.
	EventLoop bool
}

type request struct {
	ctx   context.Context
	value int
}

// Controller owns the view state: the loaded data, the control position, and
// the selected region. Control input is debounced; a recompute always runs
// over the full store.
type Controller struct {
	mode       Mode
	thresholds []float64
	proj       projection.Equirectangular
	frames     FrameSink
	details    DetailSink
	logger     *slog.Logger
	metrics    *observability.Metrics
	debouncer  *Debouncer[request]
	fired      chan int

	state atomic.Pointer[State]
	seq   atomic.Uint64

	mu       sync.Mutex
	control  Control
	selected string
}

// NewController creates a controller. details may be nil when no region
// panel is shown.
func NewController(opts Options, frames FrameSink, details DetailSink, logger *slog.Logger, metrics *observability.Metrics) *Controller {
	if len(opts.Thresholds) == 0 {
		opts.Thresholds = filter.DefaultThresholds
	}
	if opts.Mode == "" {
		opts.Mode = ModeBin
	}
	if opts.Projection.Width == 0 || opts.Projection.Height == 0 {
		opts.Projection = projection.Default()
	}
	c := &Controller{
		mode:       opts.Mode,
		thresholds: opts.Thresholds,
		proj:       opts.Projection,
		frames:     frames,
		details:    details,
		logger:     logger,
		metrics:    metrics,
		control:    Control{Mode: opts.Mode},
	}
	if opts.EventLoop {
		c.fired = make(chan int, 1)
		c.debouncer = NewDebouncer(opts.Clock, opts.Debounce, func(r request) { c.deliver(r.value) })
		return c
	}
	c.debouncer = NewDebouncer(opts.Clock, opts.Debounce, func(r request) {
		if _, err := c.Recompute(r.ctx, r.value); err != nil {
			c.logger.Error("recompute failed", "value", r.value, "error", err)
		}
	})
	return c
}

// Fired delivers debounced control values when the controller runs in
// EventLoop mode; the receiver calls Recompute. It is nil otherwise.
func (c *Controller) Fired() <-chan int { return c.fired }

// deliver replaces an unconsumed value so the loop only sees the latest.
func (c *Controller) deliver(v int) {
	for {
		select {
		case c.fired <- v:
			return
		default:
		}
		select {
		case <-c.fired:
		default:
		}
	}
}

// SetState installs freshly loaded data. The next recompute uses it.
func (c *Controller) SetState(s *State) { c.state.Store(s) }

// State returns the installed data, nil before the first load.
func (c *Controller) State() *State { return c.state.Load() }

// Ready reports whether data has been loaded.
func (c *Controller) Ready() bool { return c.state.Load() != nil }

// Mode returns the control mode.
func (c *Controller) Mode() Mode { return c.mode }

// Control returns the control value of the last recompute.
func (c *Controller) Control() Control {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.control
}

// Range returns the inclusive bounds of the control for the current mode.
func (c *Controller) Range() (lo, hi int) {
	if c.mode == ModeTimestep {
		if s := c.state.Load(); s != nil {
			return 0, s.Store.MaxCreatedStep()
		}
		return 0, 0
	}
	return 0, len(c.thresholds) - 1
}

// Input feeds a raw control value. Bursts collapse to the last value, which
// is recomputed once the debounce window closes, or in EventLoop mode
// delivered on Fired.
func (c *Controller) Input(ctx context.Context, v int) {
	if c.debouncer.Submit(request{ctx: ctx, value: v}) {
		c.metrics.InputsSuperseded.Inc()
	}
}

// Flush recomputes a pending input right away under ctx instead of waiting
// for the debounce window. It reports whether there was one.
func (c *Controller) Flush(ctx context.Context) (bool, error) {
	v, ok := c.pending()
	if !ok {
		return false, nil
	}
	_, err := c.Recompute(ctx, v)
	return true, err
}

// pending takes the value still waiting in the debouncer or, in EventLoop
// mode, fired but not yet consumed.
func (c *Controller) pending() (int, bool) {
	if r, ok := c.debouncer.Flush(); ok {
		return r.value, true
	}
	select {
	case v := <-c.fired:
		return v, true
	default:
		return 0, false
	}
}

// Close drops any pending input.
func (c *Controller) Close() { c.debouncer.Stop() }

// Recompute filters the full store for v, renders the frame, and refreshes
// the region panel when a region is selected.
func (c *Controller) Recompute(ctx context.Context, v int) (Frame, error) {
	st := c.state.Load()
	if st == nil {
		return Frame{}, ErrNotReady
	}
	control := Control{Mode: c.mode, Value: v}

	start := time.Now()
	all := st.Store.All()
	visible := filter.Apply(all, c.policy(v))
	c.metrics.FilterDuration.Observe(time.Since(start).Seconds())
	c.metrics.Recomputes.WithLabelValues(string(c.mode)).Inc()
	c.metrics.VisibleCraters.Set(float64(len(visible)))

	frame := Frame{
		Seq:     c.seq.Add(1),
		Control: control,
		Label:   c.Label(v),
		Visible: len(visible),
		Total:   len(all),
		Markers: c.markers(visible),
	}

	c.mu.Lock()
	c.control = control
	selected := c.selected
	c.mu.Unlock()

	if err := c.frames.RenderFrame(ctx, frame); err != nil {
		c.metrics.FramePublishError.Inc()
		return frame, eris.Wrap(err, "pipeline: render frame")
	}
	c.metrics.FramesPublished.Inc()
	c.logger.Debug("frame rendered", "mode", c.mode, "value", v, "visible", len(visible))

	if selected != "" && c.details != nil {
		if _, err := c.showDetail(ctx, st, selected, control); err != nil {
			return frame, err
		}
	}
	return frame, nil
}

// SelectRegion opens the panel for key at the current control value.
func (c *Controller) SelectRegion(ctx context.Context, key string) (Detail, error) {
	st := c.state.Load()
	if st == nil {
		return Detail{}, ErrNotReady
	}
	if _, ok := st.Index.Get(key); !ok {
		return Detail{}, eris.Errorf("pipeline: unknown region %q", key)
	}

	c.mu.Lock()
	c.selected = key
	control := c.control
	c.mu.Unlock()

	return c.showDetail(ctx, st, key, control)
}

// ClearRegion closes the region panel.
func (c *Controller) ClearRegion() {
	c.mu.Lock()
	c.selected = ""
	c.mu.Unlock()
}

// Selected returns the key of the open region panel, empty if none.
func (c *Controller) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Detail computes the panel content for key at control without rendering it.
// In timestep mode the precomputed table is consulted first; otherwise, or
// on a table miss, the visible records of the region are summarized live.
func (c *Controller) Detail(key string, control Control) (Detail, error) {
	st := c.state.Load()
	if st == nil {
		return Detail{}, ErrNotReady
	}
	return c.detail(st, key, control), nil
}

func (c *Controller) showDetail(ctx context.Context, st *State, key string, control Control) (Detail, error) {
	d := c.detail(st, key, control)
	if c.details == nil {
		return d, nil
	}
	if err := c.details.ShowRegion(ctx, d); err != nil {
		return d, eris.Wrapf(err, "pipeline: show region %s", key)
	}
	return d, nil
}

func (c *Controller) detail(st *State, key string, control Control) Detail {
	d := Detail{Key: key, Title: domain.DisplayName(key), Control: control, Source: "none"}
	if r, ok := st.Index.Get(key); ok {
		d.Title = r.Title()
	}

	var (
		rs  domain.RegionStats
		err error
	)
	if control.Mode == ModeTimestep {
		d.Step = domain.Step(control.Value)
	}
	// A table entry, even an empty one, is authoritative for its step.
	if control.Mode == ModeTimestep && st.Stats.Has(key, control.Value) {
		d.Source = "table"
		rs, err = st.Stats.Lookup(key, control.Value)
	} else {
		scoped := filter.RegionScoped{Policy: c.policy(control.Value), Key: key, Index: st.membership()}
		rs, err = stats.Summarize(key, filter.Apply(st.Store.All(), scoped))
		if err == nil {
			d.Source = "live"
			rs.Step = d.Step
		}
	}
	if errors.Is(err, domain.ErrNoData) {
		d.NoData = true
		c.metrics.DetailQueries.WithLabelValues("no_data").Inc()
		return d
	}
	c.metrics.DetailQueries.WithLabelValues(d.Source).Inc()

	d.Stats = &rs
	if h, err := stats.NewHistogram(rs.Sizes); err == nil {
		d.Histogram = &h
	}
	if rs.Smallest != nil {
		d.Markers = append(d.Markers, c.marker(*rs.Smallest, "smallest"))
	}
	if rs.Largest != nil {
		d.Markers = append(d.Markers, c.marker(*rs.Largest, "largest"))
	}
	return d
}

// Label returns the caption for control value v.
func (c *Controller) Label(v int) string {
	if c.mode == ModeTimestep {
		return fmt.Sprintf("t = %d", v)
	}
	return filter.BinLabel(c.thresholds, v)
}

func (c *Controller) policy(v int) filter.Policy {
	if c.mode == ModeTimestep {
		return filter.TimestepPolicy{Step: v}
	}
	return filter.BinPolicy{Thresholds: c.thresholds, Index: v}
}

func (c *Controller) markers(records []domain.CraterRecord) []Marker {
	out := make([]Marker, len(records))
	for i, r := range records {
		out[i] = c.marker(r, "")
	}
	return out
}

func (c *Controller) marker(r domain.CraterRecord, role string) Marker {
	x, y := c.proj.Project(r.Longitude, r.Latitude)
	return Marker{
		Lon:    r.Longitude,
		Lat:    r.Latitude,
		X:      x,
		Y:      y,
		R:      projection.MarkerRadius(r.Diameter),
		Size:   r.Diameter,
		Region: r.RegionKey,
		Role:   role,
	}
}
