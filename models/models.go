package models

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"

	g2s "github.com/ONSdigital/dp-glify-layer/geojson2svg"
	"github.com/ONSdigital/dp-glify-layer/layer"
	"github.com/ONSdigital/dp-glify-layer/partition"
	"github.com/ONSdigital/dp-glify-layer/renderer"
	"github.com/ONSdigital/dp-glify-layer/scheduler"
	"github.com/ONSdigital/go-ns/log"
	"github.com/json-iterator/go"
	"github.com/paulmach/go.geojson"
	"github.com/rubenv/topojson"
)

// A list of errors returned from package
var (
	ErrorReadingBody = errors.New("Failed to read message body")
	ErrorNoData      = errors.New("Bad request - Missing data in body")
)

// Projections accepted for svg rendering
const (
	ProjectionMercator = "mercator"
	ProjectionNone     = "none"
)

// LayerRequest represents the options for a glify layer, sent as json
type LayerRequest struct {
	GeoJSON      *geojson.FeatureCollection `json:"geojson,omitempty"`
	Types        *layer.Types               `json:"types,omitempty"`
	Topojson     *topojson.Topology         `json:"topojson,omitempty"`
	GlifyOptions renderer.StyleOptions      `json:"glify_options"`
	NumWorkers   int                        `json:"num_workers,omitempty"`
	PaneName     string                     `json:"pane_name,omitempty"`
	Policy       string                     `json:"policy,omitempty"`
	Width        float64                    `json:"width,omitempty"`
	Height       float64                    `json:"height,omitempty"`
	// Padding, Properties and Projection only affect svg rendering.
	Padding    *g2s.Padding `json:"padding,omitempty"`
	Properties []string     `json:"properties,omitempty"`
	Projection string       `json:"projection,omitempty"`
}

// PartitionResponse is the worker response, with shapes and lines wrapped in feature collections
type PartitionResponse struct {
	Shapes *geojson.FeatureCollection `json:"shapes"`
	Lines  *geojson.FeatureCollection `json:"lines"`
	Points [][]float64                `json:"points"`
	// Messages describe malformed features that were skipped.
	Messages []*Message `json:"messages,omitempty"`
}

// BoundsResponse is a latitude/longitude rectangle
type BoundsResponse struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Message represents a message with a level type
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// CreateLayerRequest manages the creation of a LayerRequest from a reader
func CreateLayerRequest(reader io.Reader) (*LayerRequest, error) {
	bytes, err := ioutil.ReadAll(reader)
	if err != nil {
		log.Error(err, log.Data{"request_body": string(bytes)})
		return nil, ErrorReadingBody
	}

	var request LayerRequest
	err = jsoniter.Unmarshal(bytes, &request)
	if err != nil {
		log.Error(err, log.Data{"request_body": string(bytes)})
		return nil, err
	}

	// This should be the last check before returning LayerRequest
	if len(bytes) == 2 {
		return &request, ErrorNoData
	}

	return &request, nil
}

// CreateFeatureCollection reads a geojson FeatureCollection from a reader
func CreateFeatureCollection(reader io.Reader) (*geojson.FeatureCollection, error) {
	bytes, err := ioutil.ReadAll(reader)
	if err != nil {
		log.Error(err, nil)
		return nil, ErrorReadingBody
	}
	if len(bytes) == 0 {
		return nil, ErrorNoData
	}

	fc := geojson.NewFeatureCollection()
	if err = jsoniter.Unmarshal(bytes, fc); err != nil {
		log.Error(err, log.Data{"request_body": string(bytes)})
		return nil, err
	}
	return fc, nil
}

// ValidateLayerRequest checks the content of the request structure
func (r *LayerRequest) ValidateLayerRequest() error {
	if r.GeoJSON == nil && r.Types == nil && r.Topojson == nil {
		return fmt.Errorf("Missing mandatory field(s): one of %v", []string{"geojson", "types", "topojson"})
	}
	if r.NumWorkers < 0 {
		return fmt.Errorf("num_workers must be >=0: num_workers=%v", r.NumWorkers)
	}
	if r.Width < 0 || r.Height < 0 {
		return fmt.Errorf("width and height must be >=0: width=%v, height=%v", r.Width, r.Height)
	}
	if _, err := partition.ParsePolicy(r.Policy); err != nil {
		return err
	}
	switch r.Projection {
	case "", ProjectionMercator, ProjectionNone:
	default:
		return fmt.Errorf("projection must be one of %v: projection=%v", []string{ProjectionMercator, ProjectionNone}, r.Projection)
	}
	return nil
}

// Projected reports whether the svg should be drawn with the Mercator projection.
func (r *LayerRequest) Projected() bool {
	return r.Projection != ProjectionNone
}

// SVGOptions returns the drawing options selected by the request.
func (r *LayerRequest) SVGOptions() []g2s.Option {
	var opts []g2s.Option
	if r.Padding != nil {
		opts = append(opts, g2s.WithPadding(*r.Padding))
	}
	if len(r.Properties) > 0 {
		opts = append(opts, g2s.UseProperties(r.Properties))
	}
	return opts
}

// LayerOptions converts the request into layer options. Topojson is converted to geojson when no geojson was given.
// Workers, policy and timeout are the service defaults, overridden by the request where it sets them.
func (r *LayerRequest) LayerOptions(defaults scheduler.Options) (layer.Options, error) {
	policy := defaults.Policy
	if len(r.Policy) > 0 {
		p, err := partition.ParsePolicy(r.Policy)
		if err != nil {
			return layer.Options{}, err
		}
		policy = p
	}
	workers := defaults.Workers
	if r.NumWorkers > 0 {
		workers = r.NumWorkers
	}

	fc := r.GeoJSON
	if fc == nil && r.Types == nil && r.Topojson != nil {
		fc = r.Topojson.ToGeoJSON()
	}

	return layer.Options{
		Types:      r.Types,
		GeoJSON:    fc,
		Style:      r.GlifyOptions,
		NumWorkers: workers,
		PaneName:   r.PaneName,
		Policy:     policy,
		Timeout:    defaults.Timeout,
	}, nil
}

// NewPartitionResponse builds a response from scheduler buckets
func NewPartitionResponse(b *scheduler.Buckets) *PartitionResponse {
	res := &PartitionResponse{Shapes: b.Shapes, Lines: b.Lines, Points: b.Points}
	for _, fe := range b.Errors {
		res.Messages = append(res.Messages, &Message{Level: "warn", Text: fe.Error()})
	}
	return res
}

// NewBoundsResponse converts layer bounds into a response
func NewBoundsResponse(b layer.LatLngBounds) *BoundsResponse {
	return &BoundsResponse{
		South: b.SouthWest.Lat,
		West:  b.SouthWest.Lng,
		North: b.NorthEast.Lat,
		East:  b.NorthEast.Lng,
	}
}

// AnalyseResponse describes how a collection will be partitioned
type AnalyseResponse struct {
	Shapes       int            `json:"shapes"`
	Lines        int            `json:"lines"`
	Points       int            `json:"points"`
	Unrecognised map[string]int `json:"unrecognised"`
	Messages     []*Message     `json:"messages"`
}
