// Package layer provides a single map layer that accepts mixed geojson and draws it through
// up to three sub-renderers, one each for polygons, lines and points.
//
// A raw feature collection is partitioned in the background; the sub-renderers are created once
// partitioning completes. Pre-split collections skip that step.
package layer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ONSdigital/dp-glify-layer/partition"
	"github.com/ONSdigital/dp-glify-layer/renderer"
	"github.com/ONSdigital/dp-glify-layer/scheduler"
	"github.com/ONSdigital/go-ns/log"
	"github.com/json-iterator/go"
	"github.com/paulmach/go.geojson"
)

// A list of errors returned from package
var (
	ErrNoInput         = errors.New("no geojson or separate types provided")
	ErrAlreadyAttached = errors.New("layer is already attached to a map")
	ErrDetached        = errors.New("layer was detached before partitioning completed")
)

// State is the lifecycle stage of a Layer.
type State int

// Layer states
const (
	Uninitialized State = iota
	Partitioning
	Active
	Removed
	// Failed means partitioning produced nothing to draw.
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Partitioning:
		return "partitioning"
	case Active:
		return "active"
	case Removed:
		return "removed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Types are feature collections that have already been split by geometry type.
type Types struct {
	Shapes *geojson.FeatureCollection `json:"shapes,omitempty"`
	Lines  *geojson.FeatureCollection `json:"lines,omitempty"`
	Points *geojson.FeatureCollection `json:"points,omitempty"`
}

// Options configure a Layer. Exactly one of Types and GeoJSON should be set; Types wins if both are.
type Options struct {
	Types   *Types
	GeoJSON *geojson.FeatureCollection

	// Style is overlaid on renderer.DefaultSettings.
	Style renderer.StyleOptions
	// NumWorkers defaults to the host parallelism.
	NumWorkers int
	PaneName   string
	Policy     partition.Policy
	Timeout    time.Duration

	OnAdd        func()
	OnRemove     func()
	OnLayersInit func()
	// OnError receives partitioning failures, including partial ones.
	OnError func(error)
}

// Layer composes the shapes, lines and points sub-renderers behind one API.
type Layer struct {
	opts    Options
	factory renderer.Factory
	panes   PaneManager

	mu          sync.Mutex
	state       State
	style       renderer.Settings
	shapes      *geojson.FeatureCollection
	lines       *geojson.FeatureCollection
	points      [][]float64
	shapesLayer renderer.SubRenderer
	linesLayer  renderer.SubRenderer
	pointsLayer renderer.SubRenderer
	ready       chan struct{}
	err         error
}

// New creates a layer that builds its sub-renderers with factory.
func New(factory renderer.Factory, opts Options) *Layer {
	return &Layer{opts: opts, factory: factory, ready: make(chan struct{})}
}

// Attach binds the layer to the map. Pre-split types are copied and drawn straight away; raw geojson
// is partitioned in the background and drawn when that completes. With neither, nothing is drawn and
// ErrNoInput is returned.
func (l *Layer) Attach(ctx context.Context, m Map) error {
	l.mu.Lock()
	if l.state == Partitioning || l.state == Active {
		l.mu.Unlock()
		return ErrAlreadyAttached
	}

	l.panes.Resolve(m, l.opts.PaneName)
	l.style = renderer.DefaultSettings()
	l.opts.Style.Apply(&l.style)
	l.style.Map = m
	l.style.Pane = l.panes.Name()
	l.ready = make(chan struct{})
	l.err = nil

	var initialised bool
	switch {
	case l.opts.Types != nil:
		if err := l.copyTypes(); err != nil {
			l.fail(err)
			l.mu.Unlock()
			log.ErrorC("copying pre-split types", err, nil)
			return err
		}
		l.createLayers()
		l.state = Active
		close(l.ready)
		initialised = true

	case l.opts.GeoJSON != nil:
		l.state = Partitioning
		features := append([]*geojson.Feature(nil), l.opts.GeoJSON.Features...)
		ready := l.ready
		scheduler.Dispatch(ctx, features, scheduler.Options{
			Workers: l.opts.NumWorkers,
			Policy:  l.opts.Policy,
			Timeout: l.opts.Timeout,
		}, func(b *scheduler.Buckets, err error) {
			l.partitioned(ready, b, err)
		})

	default:
		l.err = ErrNoInput
		close(l.ready)
		l.mu.Unlock()
		log.Error(ErrNoInput, log.Data{"pane": l.panes.Name()})
		return ErrNoInput
	}
	l.mu.Unlock()

	if initialised && l.opts.OnLayersInit != nil {
		l.opts.OnLayersInit()
	}
	if l.opts.OnAdd != nil {
		l.opts.OnAdd()
	}
	return nil
}

// Detach removes every sub-renderer from the map. A partition still running is left to finish and
// its result discarded; the pending attach settles straight away with ErrDetached.
func (l *Layer) Detach() {
	l.mu.Lock()
	l.forEach(func(r renderer.SubRenderer) { r.Remove(renderer.All) })
	l.shapesLayer, l.linesLayer, l.pointsLayer = nil, nil, nil
	if l.state == Partitioning {
		l.err = ErrDetached
		close(l.ready)
	}
	l.state = Removed
	l.mu.Unlock()

	if l.opts.OnRemove != nil {
		l.opts.OnRemove()
	}
}

// Bounds returns the rectangle enclosing every coordinate drawn by the active sub-renderers:
// polygon outer rings, line vertices and points. All pairs are read as [lng, lat].
// It returns false if nothing is drawn.
func (l *Layer) Bounds() (LatLngBounds, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var coords [][]float64
	if l.shapesLayer != nil {
		coords = append(coords, outerRings(collectionOf(l.shapesLayer))...)
	}
	if l.linesLayer != nil {
		coords = append(coords, vertices(collectionOf(l.linesLayer))...)
	}
	if l.pointsLayer != nil {
		if points, ok := l.pointsLayer.Settings().Data.([][]float64); ok {
			coords = append(coords, points...)
		}
	}
	return boundsOf(coords)
}

// collectionOf returns the features r currently draws, which may differ from what it was created
// with once Update or Remove have been called.
func collectionOf(r renderer.SubRenderer) *geojson.FeatureCollection {
	fc, _ := r.Settings().Data.(*geojson.FeatureCollection)
	return fc
}

// Update forwards to every sub-renderer.
func (l *Layer) Update(data interface{}, index int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.forEach(func(r renderer.SubRenderer) { r.Update(data, index) })
}

// Remove forwards to every sub-renderer. Use renderer.All to remove them from the map.
func (l *Layer) Remove(index int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.forEach(func(r renderer.SubRenderer) { r.Remove(index) })
}

// Render re-renders every sub-renderer.
func (l *Layer) Render() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.forEach(func(r renderer.SubRenderer) { r.Render() })
}

// SetStyle merges opts into the live settings of every sub-renderer and re-renders them.
func (l *Layer) SetStyle(opts renderer.StyleOptions) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.forEach(func(r renderer.SubRenderer) { r.SetStyle(opts) })
}

// State returns the current lifecycle state.
func (l *Layer) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Pane returns the pane the layer draws into, or nil before Attach.
func (l *Layer) Pane() Pane {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.panes.Pane()
}

// Ready returns a channel that is closed once the latest Attach has settled: sub-renderers created,
// partitioning failed, the layer was detached first, or no input was given.
func (l *Layer) Ready() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

// Wait blocks until Ready is closed or ctx is done, returning the error the attach settled with.
// A *scheduler.PartialError means the layer is drawing only part of the input.
func (l *Layer) Wait(ctx context.Context) error {
	select {
	case <-l.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// partitioned receives the result of a background partition started by Attach.
func (l *Layer) partitioned(ready chan struct{}, b *scheduler.Buckets, err error) {
	l.mu.Lock()
	if l.ready != ready || l.state != Partitioning {
		l.mu.Unlock()
		log.Debug("discarding partition result for detached layer", nil)
		return
	}

	if b == nil {
		l.fail(err)
		l.mu.Unlock()
		log.ErrorC("partitioning failed", err, nil)
		if l.opts.OnError != nil {
			l.opts.OnError(err)
		}
		return
	}

	l.shapes, l.lines, l.points = b.Shapes, b.Lines, b.Points
	l.createLayers()
	l.state = Active
	l.err = err
	l.mu.Unlock()

	log.Debug("partitioning complete", log.Data{
		"shapes": len(b.Shapes.Features),
		"lines":  len(b.Lines.Features),
		"points": len(b.Points),
	})
	if l.opts.OnLayersInit != nil {
		l.opts.OnLayersInit()
	}
	// ready is closed here, in fail or in Detach; the guard above keeps those exclusive.
	close(ready)
	if err != nil && l.opts.OnError != nil {
		l.opts.OnError(err)
	}
}

// fail settles the current attach with err. Called with mu held.
func (l *Layer) fail(err error) {
	l.state = Failed
	l.err = err
	close(l.ready)
}

// createLayers constructs a sub-renderer for every non-empty bucket. Polygons keep the renderer's
// default coordinate order; lines and points are handed over in geojson order. Called with mu held.
func (l *Layer) createLayers() {
	if len(l.shapes.Features) > 0 {
		l.shapesLayer = l.factory.Shapes(l.settings(l.shapes, renderer.LatLng))
	}
	if len(l.lines.Features) > 0 {
		l.linesLayer = l.factory.Lines(l.settings(l.lines, renderer.LngLat))
	}
	if len(l.points) > 0 {
		l.pointsLayer = l.factory.Points(l.settings(l.points, renderer.LngLat))
	}
}

// settings returns a copy of the layer style for one sub-renderer.
func (l *Layer) settings(data interface{}, order renderer.CoordinateOrder) *renderer.Settings {
	s := l.style
	s.Data = data
	s.Order = order
	return &s
}

func (l *Layer) forEach(fn func(renderer.SubRenderer)) {
	for _, r := range []renderer.SubRenderer{l.shapesLayer, l.linesLayer, l.pointsLayer} {
		if r != nil {
			fn(r)
		}
	}
}

// copyTypes deep copies the pre-split collections so the caller's features are never shared. Called with mu held.
func (l *Layer) copyTypes() error {
	t := l.opts.Types
	var err error
	if l.shapes, err = clone(t.Shapes); err != nil {
		return err
	}
	if l.lines, err = clone(t.Lines); err != nil {
		return err
	}
	points, err := clone(t.Points)
	if err != nil {
		return err
	}
	l.points = partition.PointCoordinates(points)
	return nil
}

// clone copies fc through its json encoding. A nil collection becomes an empty one.
func clone(fc *geojson.FeatureCollection) (*geojson.FeatureCollection, error) {
	if fc == nil {
		return geojson.NewFeatureCollection(), nil
	}
	b, err := jsoniter.Marshal(fc)
	if err != nil {
		return nil, err
	}
	c := geojson.NewFeatureCollection()
	if err := jsoniter.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}
