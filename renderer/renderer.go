// Package renderer defines the contract between the glify layer and the renderers it
// composes, one per geometry type, and provides a headless SVG implementation of it.
package renderer

// All is the index passed to Remove to take the whole sub-renderer off the map.
const All = -1

// Kind identifies which geometry type a sub-renderer draws.
type Kind int

// Sub-renderer kinds
const (
	Shapes Kind = iota
	Lines
	Points
)

func (k Kind) String() string {
	switch k {
	case Shapes:
		return "shapes"
	case Lines:
		return "lines"
	case Points:
		return "points"
	}
	return "unknown"
}

// CoordinateOrder tells a sub-renderer how to read a coordinate pair.
type CoordinateOrder int

const (
	// LatLng reads pairs as [latitude, longitude]. This is the renderer library's default.
	LatLng CoordinateOrder = iota
	// LngLat reads pairs as [longitude, latitude], the geojson order.
	LngLat
)

// LatitudeKey is the index of the latitude within a coordinate pair.
func (o CoordinateOrder) LatitudeKey() int {
	if o == LngLat {
		return 1
	}
	return 0
}

// LongitudeKey is the index of the longitude within a coordinate pair.
func (o CoordinateOrder) LongitudeKey() int {
	if o == LngLat {
		return 0
	}
	return 1
}

// Split returns the longitude and latitude of the coordinate pair c.
func (o CoordinateOrder) Split(c []float64) (lng, lat float64) {
	return c[o.LongitudeKey()], c[o.LatitudeKey()]
}

// SubRenderer draws the features of one geometry type.
type SubRenderer interface {
	// Update replaces the data item at index. Implementations decide what data may be.
	Update(data interface{}, index int)
	// Remove removes the data item at index, or the whole sub-renderer if index is All.
	Remove(index int)
	Render()
	// SetStyle merges opts into the live settings and re-renders.
	SetStyle(opts StyleOptions)
	// Settings returns the live settings. They must not be changed directly while the sub-renderer
	// may be drawing; use SetStyle.
	Settings() *Settings
}

// Factory constructs sub-renderers. Each constructor receives its own Settings, whose Data holds
// a *geojson.FeatureCollection for Shapes and Lines, and a [][]float64 for Points.
type Factory interface {
	Shapes(settings *Settings) SubRenderer
	Lines(settings *Settings) SubRenderer
	Points(settings *Settings) SubRenderer
}
