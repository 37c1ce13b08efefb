// Package partition splits a mixed geojson feature list into the three
// geometry buckets the glify renderers consume: polygons, line strings
// and raw point coordinates.
package partition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/go.geojson"
)

// Policy decides what happens to a feature that has no geometry, or a geometry without a type.
type Policy int

// Malformed feature policies. Tolerate is the default.
const (
	// Tolerate treats malformed features as unrecognised and drops them silently.
	Tolerate Policy = iota
	// Skip drops malformed features and records a FeatureError for each one.
	Skip
	// Fail rejects the whole batch on the first malformed feature.
	Fail
)

var policyNames = map[Policy]string{
	Tolerate: "tolerate",
	Skip:     "skip",
	Fail:     "fail",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ErrUnknownPolicy is returned by ParsePolicy for a name it does not recognise.
var ErrUnknownPolicy = errors.New("unknown malformed feature policy")

// ParsePolicy converts a policy name (tolerate, skip or fail) into a Policy. An empty name is Tolerate.
func ParsePolicy(name string) (Policy, error) {
	if len(name) == 0 {
		return Tolerate, nil
	}
	for p, n := range policyNames {
		if strings.EqualFold(n, name) {
			return p, nil
		}
	}
	return Tolerate, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// Decode implements envconfig.Decoder so a Policy can be read straight from the environment.
func (p *Policy) Decode(value string) error {
	parsed, err := ParsePolicy(value)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// FeatureError describes a single malformed feature.
type FeatureError struct {
	Index  int
	Reason string
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("malformed feature at index %d: %s", e.Index, e.Reason)
}

// Result holds the three buckets produced from one list of features.
type Result struct {
	Shapes []*geojson.Feature
	Lines  []*geojson.Feature
	Points [][]float64
	// Errors is only populated under the Skip policy.
	Errors []*FeatureError
}

// Partition routes each feature to exactly one of shapes, lines or points according to its geometry type.
// Points are flattened to their coordinates. Features with any other geometry type are dropped.
// The relative order of the input is kept within every bucket.
func Partition(features []*geojson.Feature, policy Policy) (*Result, error) {
	res := &Result{
		Shapes: []*geojson.Feature{},
		Lines:  []*geojson.Feature{},
		Points: [][]float64{},
	}

	for i, f := range features {
		if reason := malformed(f); len(reason) > 0 {
			switch policy {
			case Fail:
				return nil, &FeatureError{Index: i, Reason: reason}
			case Skip:
				res.Errors = append(res.Errors, &FeatureError{Index: i, Reason: reason})
			}
			continue
		}

		switch f.Geometry.Type {
		case geojson.GeometryPolygon:
			res.Shapes = append(res.Shapes, f)
		case geojson.GeometryLineString:
			res.Lines = append(res.Lines, f)
		case geojson.GeometryPoint:
			res.Points = append(res.Points, f.Geometry.Point)
		}
	}

	return res, nil
}

// PointCoordinates returns the coordinates of every point feature in the collection, in order.
// Features that are not points are ignored.
func PointCoordinates(fc *geojson.FeatureCollection) [][]float64 {
	points := [][]float64{}
	if fc == nil {
		return points
	}
	for _, f := range fc.Features {
		if len(malformed(f)) == 0 && f.Geometry.IsPoint() {
			points = append(points, f.Geometry.Point)
		}
	}
	return points
}

// malformed returns a description of what is wrong with the feature, or an empty string if it can be routed.
func malformed(f *geojson.Feature) string {
	switch {
	case f == nil:
		return "feature is null"
	case f.Geometry == nil:
		return "feature has no geometry"
	case len(f.Geometry.Type) == 0:
		return "geometry has no type"
	}
	return ""
}
