package layer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ONSdigital/dp-glify-layer/partition"
	"github.com/ONSdigital/dp-glify-layer/renderer"
	"github.com/ONSdigital/dp-glify-layer/scheduler"
	"github.com/paulmach/go.geojson"
	. "github.com/smartystreets/goconvey/convey"
)

type pane string

func (p pane) Name() string { return string(p) }

type mapMock struct {
	panes   map[string]Pane
	created []string
}

func newMap(existing ...string) *mapMock {
	m := &mapMock{panes: map[string]Pane{}}
	for _, name := range existing {
		m.panes[name] = pane(name)
	}
	return m
}

func (m *mapMock) GetPane(name string) (Pane, bool) {
	p, ok := m.panes[name]
	return p, ok
}

func (m *mapMock) CreatePane(name string) Pane {
	m.created = append(m.created, name)
	m.panes[name] = pane(name)
	return m.panes[name]
}

type update struct {
	data  interface{}
	index int
}

type subRendererMock struct {
	kind     renderer.Kind
	settings *renderer.Settings
	updates  []update
	removes  []int
	renders  int
}

func (r *subRendererMock) Update(data interface{}, index int) {
	r.updates = append(r.updates, update{data, index})
}
func (r *subRendererMock) Remove(index int)              { r.removes = append(r.removes, index) }
func (r *subRendererMock) Render()                       { r.renders++ }
func (r *subRendererMock) Settings() *renderer.Settings { return r.settings }

func (r *subRendererMock) SetStyle(opts renderer.StyleOptions) {
	opts.Apply(r.settings)
	r.renders++
}

type factoryMock struct {
	built []*subRendererMock
	// orders records the coordinate order each constructor saw at construction time.
	orders []renderer.CoordinateOrder
}

func (f *factoryMock) build(kind renderer.Kind, s *renderer.Settings) renderer.SubRenderer {
	r := &subRendererMock{kind: kind, settings: s}
	f.built = append(f.built, r)
	f.orders = append(f.orders, s.Order)
	return r
}

func (f *factoryMock) Shapes(s *renderer.Settings) renderer.SubRenderer { return f.build(renderer.Shapes, s) }
func (f *factoryMock) Lines(s *renderer.Settings) renderer.SubRenderer  { return f.build(renderer.Lines, s) }
func (f *factoryMock) Points(s *renderer.Settings) renderer.SubRenderer { return f.build(renderer.Points, s) }

func (f *factoryMock) kind(k renderer.Kind) *subRendererMock {
	for _, r := range f.built {
		if r.kind == k {
			return r
		}
	}
	return nil
}

var square = [][][]float64{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}

func collection(features ...*geojson.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		fc.AddFeature(f)
	}
	return fc
}

func wait(l *Layer) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return l.Wait(ctx)
}

func TestAttachWithGeoJSON(t *testing.T) {
	Convey("Given a point and a polygon partitioned by one worker", t, func() {
		f := &factoryMock{}
		inits := make(chan struct{}, 1)
		l := New(f, Options{
			GeoJSON:      collection(geojson.NewPointFeature([]float64{1, 2}), geojson.NewPolygonFeature(square)),
			NumWorkers:   1,
			OnLayersInit: func() { inits <- struct{}{} },
		})

		So(l.Attach(context.Background(), newMap()), ShouldBeNil)
		So(wait(l), ShouldBeNil)

		Convey("The shapes and points sub-renderers are built, but no lines", func() {
			So(l.State(), ShouldEqual, Active)
			So(f.built, ShouldHaveLength, 2)
			So(f.kind(renderer.Lines), ShouldBeNil)

			shapes := f.kind(renderer.Shapes).settings.Data.(*geojson.FeatureCollection)
			So(shapes.Type, ShouldEqual, "FeatureCollection")
			So(shapes.Features, ShouldHaveLength, 1)
			So(f.kind(renderer.Points).settings.Data, ShouldResemble, [][]float64{{1, 2}})
			So(inits, ShouldHaveLength, 1)
		})

		Convey("Attaching again while active is refused", func() {
			So(l.Attach(context.Background(), newMap()), ShouldEqual, ErrAlreadyAttached)
		})
	})

	Convey("Given only lines", t, func() {
		f := &factoryMock{}
		l := New(f, Options{GeoJSON: collection(geojson.NewLineStringFeature([][]float64{{0, 0}, {1, 1}})), NumWorkers: 3})

		So(l.Attach(context.Background(), newMap()), ShouldBeNil)
		So(wait(l), ShouldBeNil)

		So(f.built, ShouldHaveLength, 1)
		So(f.built[0].kind, ShouldEqual, renderer.Lines)
	})
}

func TestAttachWithTypes(t *testing.T) {
	Convey("Given pre-split types", t, func() {
		f := &factoryMock{}
		polygon := geojson.NewPolygonFeature([][][]float64{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}})
		var calls []string
		types := &Types{
			Shapes: collection(polygon),
			Lines:  collection(geojson.NewLineStringFeature([][]float64{{0, 0}, {5, 5}})),
			Points: collection(geojson.NewPointFeature([]float64{3, 4})),
		}
		l := New(f, Options{
			Types:        types,
			OnLayersInit: func() { calls = append(calls, "layersInit") },
			OnAdd:        func() { calls = append(calls, "add") },
		})

		So(l.Attach(context.Background(), newMap()), ShouldBeNil)

		Convey("Every sub-renderer is built synchronously", func() {
			So(l.State(), ShouldEqual, Active)
			So(f.built, ShouldHaveLength, 3)
			So(calls, ShouldResemble, []string{"layersInit", "add"})
			So(wait(l), ShouldBeNil)
		})

		Convey("The buckets are copies of the caller's collections", func() {
			shapes := f.kind(renderer.Shapes).settings.Data.(*geojson.FeatureCollection)
			So(shapes, ShouldNotPointTo, types.Shapes)
			So(shapes.Features[0], ShouldNotPointTo, polygon)
			So(shapes.Features[0].Geometry.Polygon, ShouldResemble, [][][]float64{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}})

			polygon.Geometry.Polygon[0][0][0] = 42
			So(shapes.Features[0].Geometry.Polygon[0][0][0], ShouldEqual, 0)
			So(f.kind(renderer.Points).settings.Data, ShouldResemble, [][]float64{{3, 4}})
		})

		Convey("Each sub-renderer gets its own coordinate order", func() {
			So(f.orders, ShouldResemble, []renderer.CoordinateOrder{renderer.LatLng, renderer.LngLat, renderer.LngLat})
			So(f.kind(renderer.Shapes).settings.Order, ShouldEqual, renderer.LatLng)
			So(f.kind(renderer.Shapes).settings.Order.LatitudeKey(), ShouldEqual, 0)
			So(f.kind(renderer.Points).settings.Order.LatitudeKey(), ShouldEqual, 1)
			So(f.kind(renderer.Shapes).settings, ShouldNotPointTo, f.kind(renderer.Lines).settings)
		})
	})

	Convey("Missing buckets in the types produce no sub-renderer", t, func() {
		f := &factoryMock{}
		l := New(f, Options{Types: &Types{Points: collection(geojson.NewPointFeature([]float64{3, 4}))}})

		So(l.Attach(context.Background(), newMap()), ShouldBeNil)
		So(f.built, ShouldHaveLength, 1)
		So(f.built[0].kind, ShouldEqual, renderer.Points)
	})
}

func TestAttachWithoutInput(t *testing.T) {
	Convey("Attaching with neither types nor geojson constructs nothing", t, func() {
		f := &factoryMock{}
		added := false
		l := New(f, Options{OnAdd: func() { added = true }})

		err := l.Attach(context.Background(), newMap())

		So(err, ShouldEqual, ErrNoInput)
		So(f.built, ShouldBeEmpty)
		So(added, ShouldBeFalse)
		So(l.State(), ShouldEqual, Uninitialized)
		So(wait(l), ShouldEqual, ErrNoInput)
	})
}

func TestPane(t *testing.T) {
	Convey("An existing pane is reused", t, func() {
		m := newMap("markers")
		l := New(&factoryMock{}, Options{PaneName: "markers", Types: &Types{}})
		So(l.Attach(context.Background(), m), ShouldBeNil)

		So(m.created, ShouldBeEmpty)
		So(l.Pane().Name(), ShouldEqual, "markers")
	})

	Convey("A missing pane is created", t, func() {
		m := newMap()
		f := &factoryMock{}
		l := New(f, Options{PaneName: "glify", Types: &Types{Shapes: collection(geojson.NewPolygonFeature(square))}})
		So(l.Attach(context.Background(), m), ShouldBeNil)

		So(m.created, ShouldResemble, []string{"glify"})
		So(f.built[0].settings.Pane, ShouldEqual, "glify")
		So(f.built[0].settings.Map, ShouldPointTo, m)
	})

	Convey("The overlay pane is the default", t, func() {
		l := New(&factoryMock{}, Options{Types: &Types{}})
		So(l.Pane(), ShouldBeNil)
		So(l.Attach(context.Background(), newMap(DefaultPaneName)), ShouldBeNil)
		So(l.Pane().Name(), ShouldEqual, DefaultPaneName)
	})
}

func TestStyle(t *testing.T) {
	Convey("Given a layer with user style options", t, func() {
		f := &factoryMock{}
		l := New(f, Options{
			Style: renderer.StyleOptions{Size: renderer.Float(4)},
			Types: &Types{
				Shapes: collection(geojson.NewPolygonFeature(square)),
				Points: collection(geojson.NewPointFeature([]float64{1, 1})),
			},
		})
		So(l.Attach(context.Background(), newMap()), ShouldBeNil)

		Convey("User options are merged over the defaults", func() {
			s := f.kind(renderer.Shapes).settings
			So(s.Size, ShouldEqual, 4)
			So(s.Opacity, ShouldEqual, 0.2)
			So(s.Border, ShouldBeTrue)
		})

		Convey("Restyling is last-write-wins per key and re-renders", func() {
			l.SetStyle(renderer.StyleOptions{Opacity: renderer.Float(0.5), Border: renderer.Bool(false)})
			l.SetStyle(renderer.StyleOptions{Opacity: renderer.Float(0.9)})

			for _, r := range f.built {
				So(r.settings.Opacity, ShouldEqual, 0.9)
				So(r.settings.Border, ShouldBeFalse)
				So(r.settings.Size, ShouldEqual, 4)
				So(r.renders, ShouldEqual, 2)
			}
		})
	})
}

func TestForwarding(t *testing.T) {
	Convey("Given a layer with only polygons", t, func() {
		f := &factoryMock{}
		l := New(f, Options{Types: &Types{Shapes: collection(geojson.NewPolygonFeature(square))}})
		So(l.Attach(context.Background(), newMap()), ShouldBeNil)
		shapes := f.kind(renderer.Shapes)

		Convey("Update, Remove and Render reach the polygon renderer only", func() {
			l.Update("data", 3)
			l.Render()
			l.Render()
			l.Remove(1)

			So(f.built, ShouldHaveLength, 1)
			So(shapes.updates, ShouldResemble, []update{{"data", 3}})
			So(shapes.renders, ShouldEqual, 2)
			So(shapes.removes, ShouldResemble, []int{1})
			So(shapes.settings.Data.(*geojson.FeatureCollection).Features, ShouldHaveLength, 1)
		})

		Convey("Detach removes the sub-renderers and voids them", func() {
			removed := false
			l.opts.OnRemove = func() { removed = true }

			l.Detach()

			So(shapes.removes, ShouldResemble, []int{renderer.All})
			So(removed, ShouldBeTrue)
			So(l.State(), ShouldEqual, Removed)
			_, ok := l.Bounds()
			So(ok, ShouldBeFalse)

			l.Render()
			So(shapes.renders, ShouldEqual, 0)
		})
	})

	Convey("Calls before attach are no-ops", t, func() {
		l := New(&factoryMock{}, Options{})
		So(func() {
			l.Update(nil, 0)
			l.Render()
			l.SetStyle(renderer.StyleOptions{})
			l.Detach()
		}, ShouldNotPanic)
	})
}

func TestBounds(t *testing.T) {
	Convey("A single point collapses the bounds to its latitude and longitude", t, func() {
		l := New(&factoryMock{}, Options{Types: &Types{Points: collection(geojson.NewPointFeature([]float64{10, 20}))}})
		So(l.Attach(context.Background(), newMap()), ShouldBeNil)

		b, ok := l.Bounds()

		So(ok, ShouldBeTrue)
		So(b.SouthWest, ShouldResemble, LatLng{Lat: 20, Lng: 10})
		So(b.NorthEast, ShouldResemble, LatLng{Lat: 20, Lng: 10})
	})

	Convey("Bounds cover polygon outer rings, line vertices and points", t, func() {
		l := New(&factoryMock{}, Options{Types: &Types{
			Shapes: collection(geojson.NewPolygonFeature([][][]float64{
				{{0, 0}, {4, 0}, {4, 4}, {0, 0}},
				{{-50, -50}, {-49, -50}, {-49, -49}, {-50, -50}},
			})),
			Lines:  collection(geojson.NewLineStringFeature([][]float64{{-5, 1}, {2, 8}})),
			Points: collection(geojson.NewPointFeature([]float64{3, -2})),
		}})
		So(l.Attach(context.Background(), newMap()), ShouldBeNil)

		b, ok := l.Bounds()

		So(ok, ShouldBeTrue)
		So(b.SouthWest, ShouldResemble, LatLng{Lat: -2, Lng: -5})
		So(b.NorthEast, ShouldResemble, LatLng{Lat: 8, Lng: 4})
	})

	Convey("Bounds follow points and lines added through Update", t, func() {
		f := renderer.NewSVGFactory()
		l := New(f, Options{Types: &Types{
			Lines:  collection(geojson.NewLineStringFeature([][]float64{{0, 0}, {1, 1}})),
			Points: collection(geojson.NewPointFeature([]float64{10, 20})),
		}})
		So(l.Attach(context.Background(), newMap()), ShouldBeNil)

		l.Update([]float64{50, 60}, 1)
		l.Update(geojson.NewLineStringFeature([][]float64{{-30, -40}, {0, 0}}), 1)
		b, ok := l.Bounds()

		So(ok, ShouldBeTrue)
		So(b.SouthWest, ShouldResemble, LatLng{Lat: -40, Lng: -30})
		So(b.NorthEast, ShouldResemble, LatLng{Lat: 60, Lng: 50})
	})

	Convey("An empty layer has no bounds", t, func() {
		l := New(&factoryMock{}, Options{Types: &Types{}})
		So(l.Attach(context.Background(), newMap()), ShouldBeNil)
		_, ok := l.Bounds()
		So(ok, ShouldBeFalse)
	})
}

func TestPartitionFailures(t *testing.T) {
	Convey("A failed chunk leaves the layer drawing the rest", t, func() {
		f := &factoryMock{}
		errs := make(chan error, 1)
		l := New(f, Options{
			GeoJSON: collection(
				geojson.NewPointFeature([]float64{1, 2}),
				geojson.NewPolygonFeature(square),
				nil,
				geojson.NewLineStringFeature([][]float64{{0, 0}, {1, 1}}),
			),
			NumWorkers: 2,
			Policy:     partition.Fail,
			OnError:    func(err error) { errs <- err },
		})

		So(l.Attach(context.Background(), newMap()), ShouldBeNil)
		err := wait(l)

		var pe *scheduler.PartialError
		So(errors.As(err, &pe), ShouldBeTrue)
		So(l.State(), ShouldEqual, Active)
		So(f.built, ShouldHaveLength, 2)
		So(f.kind(renderer.Lines), ShouldBeNil)

		select {
		case reported := <-errs:
			So(reported, ShouldEqual, err)
		case <-time.After(5 * time.Second):
			So("OnError was not called", ShouldBeEmpty)
		}
	})

	Convey("A partition with no result fails the layer", t, func() {
		f := &factoryMock{}
		l := New(f, Options{GeoJSON: collection()})
		l.mu.Lock()
		l.state = Partitioning
		ready := l.ready
		l.mu.Unlock()

		l.partitioned(ready, nil, context.DeadlineExceeded)

		So(l.State(), ShouldEqual, Failed)
		So(wait(l), ShouldEqual, context.DeadlineExceeded)
		So(f.built, ShouldBeEmpty)
	})

	Convey("A result arriving after detach is discarded", t, func() {
		f := &factoryMock{}
		l := New(f, Options{GeoJSON: collection()})
		l.mu.Lock()
		l.state = Partitioning
		ready := l.ready
		l.mu.Unlock()
		l.Detach()

		b := &scheduler.Buckets{
			Shapes: collection(geojson.NewPolygonFeature(square)),
			Lines:  collection(),
			Points: [][]float64{{1, 2}},
		}
		l.partitioned(ready, b, nil)

		So(l.State(), ShouldEqual, Removed)
		So(f.built, ShouldBeEmpty)
		So(wait(l), ShouldEqual, ErrDetached)
	})

	Convey("Detaching while partitioning settles the attach without waiting for the workers", t, func() {
		features := make([]*geojson.Feature, 50000)
		for i := range features {
			features[i] = geojson.NewPointFeature([]float64{float64(i % 180), float64(i % 90)})
		}
		f := &factoryMock{}
		l := New(f, Options{GeoJSON: collection(features...), NumWorkers: 2})

		So(l.Attach(context.Background(), newMap()), ShouldBeNil)
		l.Detach()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := l.Wait(ctx)

		So(err, ShouldNotEqual, context.DeadlineExceeded)
		So(l.State(), ShouldEqual, Removed)
	})
}

func TestStateString(t *testing.T) {
	Convey("States have readable names", t, func() {
		So(Partitioning.String(), ShouldEqual, "partitioning")
		So(State(99).String(), ShouldEqual, "unknown")
	})
}
