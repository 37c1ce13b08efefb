package layer

import (
	"github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
)

// LatLng is a geographical point.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LatLngBounds is the rectangle between the south-west and north-east corners.
type LatLngBounds struct {
	SouthWest LatLng `json:"south_west"`
	NorthEast LatLng `json:"north_east"`
}

// boundsOf returns the smallest rectangle holding every coordinate. Each pair is read as [lng, lat].
func boundsOf(coords [][]float64) (LatLngBounds, bool) {
	mp := make(orb.MultiPoint, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		mp = append(mp, orb.Point{c[0], c[1]})
	}
	if len(mp) == 0 {
		return LatLngBounds{}, false
	}
	b := mp.Bound()
	return LatLngBounds{
		SouthWest: LatLng{Lat: b.Min.Lat(), Lng: b.Min.Lon()},
		NorthEast: LatLng{Lat: b.Max.Lat(), Lng: b.Max.Lon()},
	}, true
}

// outerRings returns the vertices of the outer ring of every polygon.
func outerRings(fc *geojson.FeatureCollection) [][]float64 {
	if fc == nil {
		return nil
	}
	var coords [][]float64
	for _, f := range fc.Features {
		if f != nil && f.Geometry != nil && f.Geometry.IsPolygon() && len(f.Geometry.Polygon) > 0 {
			coords = append(coords, f.Geometry.Polygon[0]...)
		}
	}
	return coords
}

// vertices returns the vertices of every line.
func vertices(fc *geojson.FeatureCollection) [][]float64 {
	if fc == nil {
		return nil
	}
	var coords [][]float64
	for _, f := range fc.Features {
		if f != nil && f.Geometry != nil && f.Geometry.IsLineString() {
			coords = append(coords, f.Geometry.LineString...)
		}
	}
	return coords
}
