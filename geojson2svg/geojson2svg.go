// Package geojson2svg provides the SVG type to draw geojson features and
// loose points into a SVG image.
//
// See the tests for usage examples.
package geojson2svg

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/paulmach/go.geojson"
)

const newline = "\n"

// ScaleFunc accepts x,y coordinates and transforms them, returning a new pair of x,y coordinates.
type ScaleFunc func(float64, float64) (float64, float64)

// SVG represents the SVG that should be created.
// Use the New function to create a SVG. New will handle the default values.
//
// default padding (top: 0, right: 0, bottom: 0, left: 0)
//
// default properties (class)
//
// default attributes ()
type SVG struct {
	useProp    func(string) bool
	padding    Padding
	attributes map[string]string
	elements   []*element
}

// element is a single drawable item. Features carry their geometry; points carry x, y and a radius.
type element struct {
	feature    *geojson.Feature
	point      []float64
	radius     float64
	attributes map[string]string
}

// Padding represents the possible padding of the SVG.
type Padding struct{ Top, Right, Bottom, Left float64 }

// An Option represents a single SVG option.
type Option func(*SVG)

// New returns a new SVG that can be used to draw geojson features and points.
func New() *SVG {
	return &SVG{
		useProp:    func(prop string) bool { return prop == "class" },
		attributes: make(map[string]string),
	}
}

// Len returns the number of elements appended so far.
func (svg *SVG) Len() int {
	return len(svg.elements)
}

// AppendFeature adds a geojson Feature to the svg. The attributes are written on the feature's element,
// after any properties selected with UseProperties.
func (svg *SVG) AppendFeature(f *geojson.Feature, attributes map[string]string) {
	if f == nil || f.Geometry == nil {
		return
	}
	svg.elements = append(svg.elements, &element{feature: f, attributes: attributes})
}

// AppendPoint adds a circle of the given radius at x, y.
func (svg *SVG) AppendPoint(x, y, radius float64, attributes map[string]string) {
	svg.elements = append(svg.elements, &element{point: []float64{x, y}, radius: radius, attributes: attributes})
}

// Draw renders the final SVG with the given options to a string.
// All coordinates will be scaled to fit into the svg.
func (svg *SVG) Draw(width, height float64, opts ...Option) string {
	return svg.DrawWithProjection(width, height, func(x, y float64) (float64, float64) { return x, y }, opts...)
}

// DrawWithProjection renders the final SVG with the given options to a string.
// All coordinates will be converted by the given projection, then scaled to fit into the svg.
func (svg *SVG) DrawWithProjection(width, height float64, projection ScaleFunc, opts ...Option) string {
	for _, o := range opts {
		o(svg)
	}

	sf := makeScaleFunc(width, height, svg.padding, svg.points(), projection)

	content := bytes.NewBufferString("")
	for _, e := range svg.elements {
		if e.point != nil {
			drawPoint(sf, content, e.point, e.radius, makeAttributes(e.attributes))
			continue
		}
		process(sf, content, e.feature.Geometry, svg.featureAttributes(e))
	}

	attributes := makeAttributes(svg.attributes)
	return fmt.Sprintf(`<svg width="%g" height="%g"%s>%s%s</svg>`, width, height, attributes, content, newline)
}

// WithAttribute adds the key value pair as attribute to the
// resulting SVG root element.
func WithAttribute(k, v string) Option {
	return func(svg *SVG) {
		svg.attributes[k] = v
	}
}

// WithPadding configures the SVG to use the specified padding.
func WithPadding(p Padding) Option {
	return func(svg *SVG) {
		svg.padding = p
	}
}

// UseProperties configures which geojson properties should be copied to the
// resulting SVG element.
func UseProperties(props []string) Option {
	return func(svg *SVG) {
		svg.useProp = func(prop string) bool {
			for _, p := range props {
				if p == prop {
					return true
				}
			}
			return false
		}
	}
}

func (svg *SVG) points() [][]float64 {
	ps := [][]float64{}
	for _, e := range svg.elements {
		if e.point != nil {
			ps = append(ps, e.point)
			continue
		}
		ps = append(ps, collect(e.feature.Geometry)...)
	}
	return ps
}

// featureAttributes merges the selected feature properties with the element's own attributes.
func (svg *SVG) featureAttributes(e *element) string {
	attrs := make(map[string]string)
	id, isString := e.feature.ID.(string)
	if isString && len(id) > 0 {
		attrs["id"] = id
	}
	for k, v := range e.feature.Properties {
		if svg.useProp(k) {
			attrs[k] = fmt.Sprintf("%v", v)
		}
	}
	for k, v := range e.attributes {
		attrs[k] = v
	}
	return makeAttributes(attrs)
}

func process(sf ScaleFunc, w io.Writer, g *geojson.Geometry, attributes string) {
	switch {
	case g.IsPoint():
		drawPoint(sf, w, g.Point, 1, attributes)
	case g.IsMultiPoint():
		fmt.Fprintf(w, `%s<g%s>`, newline, attributes)
		for _, p := range g.MultiPoint {
			drawPoint(sf, w, p, 1, "")
		}
		fmt.Fprintf(w, `%s</g>`, newline)
	case g.IsLineString():
		drawLineString(sf, w, g.LineString, attributes)
	case g.IsMultiLineString():
		fmt.Fprintf(w, `%s<g%s>`, newline, attributes)
		for _, ps := range g.MultiLineString {
			drawLineString(sf, w, ps, "")
		}
		fmt.Fprintf(w, `%s</g>`, newline)
	case g.IsPolygon():
		drawPolygon(sf, w, g.Polygon, attributes)
	case g.IsMultiPolygon():
		fmt.Fprintf(w, `%s<g%s>`, newline, attributes)
		for _, pps := range g.MultiPolygon {
			drawPolygon(sf, w, pps, "")
		}
		fmt.Fprintf(w, `%s</g>`, newline)
	case g.IsCollection():
		fmt.Fprintf(w, `%s<g%s>`, newline, attributes)
		for _, x := range g.Geometries {
			process(sf, w, x, "")
		}
		fmt.Fprintf(w, `%s</g>`, newline)
	}
}

func collect(g *geojson.Geometry) (ps [][]float64) {
	switch {
	case g.IsPoint():
		ps = append(ps, g.Point)
	case g.IsMultiPoint():
		ps = append(ps, g.MultiPoint...)
	case g.IsLineString():
		ps = append(ps, g.LineString...)
	case g.IsMultiLineString():
		for _, x := range g.MultiLineString {
			ps = append(ps, x...)
		}
	case g.IsPolygon():
		for _, x := range g.Polygon {
			ps = append(ps, x...)
		}
	case g.IsMultiPolygon():
		for _, xs := range g.MultiPolygon {
			for _, x := range xs {
				ps = append(ps, x...)
			}
		}
	case g.IsCollection():
		for _, g := range g.Geometries {
			ps = append(ps, collect(g)...)
		}
	}
	return ps
}

func drawPoint(sf ScaleFunc, w io.Writer, p []float64, radius float64, attributes string) {
	x, y := sf(p[0], p[1])
	fmt.Fprintf(w, `%s<circle cx="%f" cy="%f" r="%g"%s/>`, newline, x, y, radius, attributes)
}

func drawLineString(sf ScaleFunc, w io.Writer, ps [][]float64, attributes string) {
	fmt.Fprintf(w, `%s<path d="%s" fill="none"%s/>`, newline, path(sf, ps), attributes)
}

func drawPolygon(sf ScaleFunc, w io.Writer, pps [][][]float64, attributes string) {
	rings := make([]string, len(pps))
	for i, ps := range pps {
		rings[i] = path(sf, ps)
	}
	fmt.Fprintf(w, `%s<path d="%s Z"%s/>`, newline, strings.Join(rings, " "), attributes)
}

// path writes the points as an svg move-to path: "Mx1 y1,x2 y2".
func path(sf ScaleFunc, ps [][]float64) string {
	coords := make([]string, len(ps))
	for i, p := range ps {
		x, y := sf(p[0], p[1])
		coords[i] = fmt.Sprintf("%f %f", x, y)
	}
	return "M" + strings.Join(coords, ",")
}

// makeAttributes converts the given map into a string with each key="value" pair in sorted order
func makeAttributes(as map[string]string) string {
	keys := make([]string, 0, len(as))
	for k := range as {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	res := bytes.NewBufferString("")
	for _, k := range keys {
		fmt.Fprintf(res, ` %s="%s"`, k, as[k])
	}
	return res.String()
}

// makeScaleFunc creates a function that will scale a pair of coordinates so that they fit within the width and height,
// passing them through the projection first.
func makeScaleFunc(width, height float64, padding Padding, ps [][]float64, projection ScaleFunc) ScaleFunc {
	w := width - padding.Left - padding.Right
	h := height - padding.Top - padding.Bottom

	if len(ps) == 0 {
		return func(x, y float64) (float64, float64) { return projection(x, y) }
	}

	minX, minY, maxX, maxY := getBoundingRectangle(projection, ps)
	if minX == maxX && minY == maxY {
		return func(x, y float64) (float64, float64) { return w/2 + padding.Left, h/2 + padding.Top }
	}

	xRes := (maxX - minX) / w
	yRes := (maxY - minY) / h
	res := math.Max(xRes, yRes)

	return func(x, y float64) (float64, float64) {
		x, y = projection(x, y)
		return (x-minX)/res + padding.Left, (maxY-y)/res + padding.Top
	}
}

func getBoundingRectangle(projection ScaleFunc, ps [][]float64) (float64, float64, float64, float64) {
	if len(ps) == 0 || len(ps[0]) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY := projection(ps[0][0], ps[0][1])
	maxX, maxY := minX, minY
	for _, p := range ps[1:] {
		x, y := projection(p[0], p[1])
		minX = math.Min(minX, x)
		maxX = math.Max(maxX, x)
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}
	return minX, minY, maxX, maxY
}

// MercatorProjection is a projection function that will convert longitude & latitude into x,y coordinates for a Mercator map.
var MercatorProjection = func(longitude, latitude float64) (float64, float64) {
	mapWidth, mapHeight := 100.0, 100.0
	x := (longitude + 180) * (mapWidth / 360)

	latRad := latitude * math.Pi / 180

	mercN := math.Log(math.Tan((math.Pi / 4) + (latRad / 2)))
	y := (mapHeight / 2) - (mapHeight * mercN / (2 * math.Pi))
	// invert the y-axis to put the map the right way up
	return x, mapHeight - y
}
