package scheduler

import (
	"github.com/ONSdigital/dp-glify-layer/partition"
	"github.com/paulmach/go.geojson"
)

// Request is the message handed to a worker: the chunk of features it owns.
type Request struct {
	Features []*geojson.Feature `json:"features"`
}

// Response is the message a worker returns once its chunk is partitioned.
type Response struct {
	Shapes []*geojson.Feature `json:"shapes"`
	Lines  []*geojson.Feature `json:"lines"`
	Points [][]float64        `json:"points"`
	// Errors holds per-feature diagnostics under the Skip policy. Indexes are relative to the chunk.
	Errors []*partition.FeatureError `json:"-"`
}

// Work partitions the features of a single request.
func Work(req *Request, policy partition.Policy) (*Response, error) {
	res, err := partition.Partition(req.Features, policy)
	if err != nil {
		return nil, err
	}
	return &Response{Shapes: res.Shapes, Lines: res.Lines, Points: res.Points, Errors: res.Errors}, nil
}
