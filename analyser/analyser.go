package analyser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ONSdigital/dp-glify-layer/models"
	"github.com/ONSdigital/dp-glify-layer/partition"
	"github.com/paulmach/go.geojson"
)

// AnalyseCollection reports how a feature collection will be partitioned: how many features go to each
// sub-renderer, and which are dropped because their geometry type is not drawn or the feature is malformed.
func AnalyseCollection(fc *geojson.FeatureCollection) (*models.AnalyseResponse, error) {
	if fc == nil {
		return nil, models.ErrorNoData
	}
	res, err := partition.Partition(fc.Features, partition.Skip)
	if err != nil {
		return nil, err
	}

	unrecognised := getUnrecognisedTypes(fc.Features)

	messages := []*models.Message{}
	if len(res.Errors) > 0 {
		indexes := make([]string, len(res.Errors))
		for i, fe := range res.Errors {
			indexes[i] = fmt.Sprint(fe.Index)
		}
		messages = append(messages, &models.Message{Level: "warn", Text: fmt.Sprintf("%d features are malformed and will not be drawn. Feature indexes: [%v]", len(res.Errors), strings.Join(indexes, ", "))})
	}
	if len(unrecognised) > 0 {
		types := make([]string, 0, len(unrecognised))
		count := 0
		for t, n := range unrecognised {
			types = append(types, t)
			count += n
		}
		sort.Strings(types)
		messages = append(messages, &models.Message{Level: "warn", Text: fmt.Sprintf("%d features have geometry types that are not drawn. Types: [%v]", count, strings.Join(types, ", "))})
	}

	drawn := len(res.Shapes) + len(res.Lines) + len(res.Points)
	messages = append(messages, &models.Message{Level: "info", Text: fmt.Sprintf("%d of %d features will be drawn", drawn, len(fc.Features))})

	return &models.AnalyseResponse{
		Shapes:       len(res.Shapes),
		Lines:        len(res.Lines),
		Points:       len(res.Points),
		Unrecognised: unrecognised,
		Messages:     messages,
	}, nil
}

// getUnrecognisedTypes counts the features of each geometry type that the partitioner drops
func getUnrecognisedTypes(features []*geojson.Feature) map[string]int {
	m := make(map[string]int)
	for _, f := range features {
		if f == nil || f.Geometry == nil || len(f.Geometry.Type) == 0 {
			continue
		}
		switch f.Geometry.Type {
		case geojson.GeometryPolygon, geojson.GeometryLineString, geojson.GeometryPoint:
		default:
			m[string(f.Geometry.Type)]++
		}
	}
	return m
}
