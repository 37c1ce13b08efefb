package renderer

import (
	"fmt"
	"sync"

	g2s "github.com/ONSdigital/dp-glify-layer/geojson2svg"
	"github.com/ONSdigital/go-ns/log"
	"github.com/paulmach/go.geojson"
)

// Canvas collects the output of every SVG sub-renderer created by one SVGFactory.
type Canvas struct {
	mu     sync.Mutex
	layers []*svgLayer
}

// SVGFactory is a headless Factory. Its sub-renderers keep their data in memory and
// draw onto a shared Canvas.
type SVGFactory struct {
	canvas *Canvas
}

// NewSVGFactory creates a factory with an empty canvas.
func NewSVGFactory() *SVGFactory {
	return &SVGFactory{canvas: &Canvas{}}
}

// Canvas returns the canvas the factory's sub-renderers draw on.
func (f *SVGFactory) Canvas() *Canvas {
	return f.canvas
}

// Shapes creates a polygon sub-renderer. Data must be a *geojson.FeatureCollection.
func (f *SVGFactory) Shapes(settings *Settings) SubRenderer {
	return f.canvas.add(Shapes, settings)
}

// Lines creates a line sub-renderer. Data must be a *geojson.FeatureCollection.
func (f *SVGFactory) Lines(settings *Settings) SubRenderer {
	return f.canvas.add(Lines, settings)
}

// Points creates a point sub-renderer. Data must be a [][]float64.
func (f *SVGFactory) Points(settings *Settings) SubRenderer {
	return f.canvas.add(Points, settings)
}

func (c *Canvas) add(kind Kind, settings *Settings) *svgLayer {
	l := &svgLayer{canvas: c, kind: kind, settings: settings}
	c.mu.Lock()
	c.layers = append(c.layers, l)
	c.mu.Unlock()
	return l
}

// Layers returns the number of sub-renderers still on the canvas.
func (c *Canvas) Layers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.layers)
}

// Renders returns the number of Render calls received by the sub-renderers still on the canvas.
func (c *Canvas) Renders() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.layers {
		n += l.renders
	}
	return n
}

// Draw renders every sub-renderer, in creation order, into a single Mercator-projected SVG.
func (c *Canvas) Draw(width, height float64, opts ...g2s.Option) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.svg().DrawWithProjection(width, height, g2s.MercatorProjection, viewBox(width, height, opts)...)
}

// DrawUnprojected is Draw for coordinates that are already planar: they are only scaled to fit.
func (c *Canvas) DrawUnprojected(width, height float64, opts ...g2s.Option) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.svg().Draw(width, height, viewBox(width, height, opts)...)
}

// svg collects every sub-renderer's elements. Called with mu held.
func (c *Canvas) svg() *g2s.SVG {
	svg := g2s.New()
	for _, l := range c.layers {
		l.draw(svg)
	}
	return svg
}

func viewBox(width, height float64, opts []g2s.Option) []g2s.Option {
	return append([]g2s.Option{g2s.WithAttribute("viewBox", fmt.Sprintf("0 0 %g %g", width, height))}, opts...)
}

func (c *Canvas) remove(l *svgLayer) {
	for i, x := range c.layers {
		if x == l {
			c.layers = append(c.layers[:i], c.layers[i+1:]...)
			return
		}
	}
}

// svgLayer is one sub-renderer on a Canvas.
type svgLayer struct {
	canvas   *Canvas
	kind     Kind
	settings *Settings
	renders  int
}

func (l *svgLayer) Settings() *Settings {
	return l.settings
}

func (l *svgLayer) Render() {
	l.canvas.mu.Lock()
	l.renders++
	l.canvas.mu.Unlock()
}

// SetStyle applies opts under the canvas lock so a concurrent Draw never sees a half-applied style.
func (l *svgLayer) SetStyle(opts StyleOptions) {
	l.canvas.mu.Lock()
	opts.Apply(l.settings)
	l.renders++
	l.canvas.mu.Unlock()
}

// Update replaces the feature (shapes, lines) or coordinate pair (points) at index.
// An index one past the end appends.
func (l *svgLayer) Update(data interface{}, index int) {
	l.canvas.mu.Lock()
	defer l.canvas.mu.Unlock()

	switch d := l.settings.Data.(type) {
	case *geojson.FeatureCollection:
		f, ok := data.(*geojson.Feature)
		if !ok || index < 0 || index > len(d.Features) {
			log.Debug("ignoring update", log.Data{"kind": l.kind.String(), "index": index})
			return
		}
		if index == len(d.Features) {
			d.Features = append(d.Features, f)
		} else {
			d.Features[index] = f
		}
	case [][]float64:
		p, ok := data.([]float64)
		if !ok || index < 0 || index > len(d) {
			log.Debug("ignoring update", log.Data{"kind": l.kind.String(), "index": index})
			return
		}
		if index == len(d) {
			l.settings.Data = append(d, p)
		} else {
			d[index] = p
		}
	}
}

// Remove deletes the item at index, or takes the sub-renderer off the canvas when index is All.
func (l *svgLayer) Remove(index int) {
	l.canvas.mu.Lock()
	defer l.canvas.mu.Unlock()

	if index == All {
		l.canvas.remove(l)
		return
	}
	switch d := l.settings.Data.(type) {
	case *geojson.FeatureCollection:
		if index >= 0 && index < len(d.Features) {
			d.Features = append(d.Features[:index], d.Features[index+1:]...)
		}
	case [][]float64:
		if index >= 0 && index < len(d) {
			l.settings.Data = append(d[:index], d[index+1:]...)
		}
	}
}

// draw appends the sub-renderer's data to svg, styled by its current settings.
// Shapes are always read in geojson order; Order only applies to lines and points.
func (l *svgLayer) draw(svg *g2s.SVG) {
	s := l.settings
	switch d := s.Data.(type) {
	case *geojson.FeatureCollection:
		for i, f := range d.Features {
			svg.AppendFeature(l.orient(f), l.attributes(s.Color.At(i, f)))
		}
	case [][]float64:
		for i, p := range d {
			lng, lat := s.Order.Split(p)
			svg.AppendPoint(lng, lat, s.Size/2, l.attributes(s.Color.At(i, p)))
		}
	}
}

// orient returns f with its line coordinates in [lng, lat] order.
func (l *svgLayer) orient(f *geojson.Feature) *geojson.Feature {
	if l.kind != Lines || l.settings.Order == LngLat || f == nil || f.Geometry == nil || !f.Geometry.IsLineString() {
		return f
	}
	line := make([][]float64, len(f.Geometry.LineString))
	for i, c := range f.Geometry.LineString {
		lng, lat := l.settings.Order.Split(c)
		line[i] = []float64{lng, lat}
	}
	o := geojson.NewLineStringFeature(line)
	o.ID = f.ID
	o.Properties = f.Properties
	return o
}

func (l *svgLayer) attributes(c RGBA) map[string]string {
	s := l.settings
	attrs := map[string]string{"class": "glify-" + l.kind.String()}
	opacity := fmt.Sprintf("%g", s.Opacity)
	switch l.kind {
	case Lines:
		attrs["stroke"] = c.CSS()
		attrs["stroke-opacity"] = opacity
	default:
		attrs["fill"] = c.CSS()
		attrs["fill-opacity"] = opacity
		if s.Border {
			attrs["stroke"] = c.CSS()
		}
	}
	return attrs
}
