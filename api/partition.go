package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ONSdigital/dp-glify-layer/models"
	"github.com/ONSdigital/dp-glify-layer/partition"
	"github.com/ONSdigital/dp-glify-layer/scheduler"
	"github.com/ONSdigital/go-ns/log"
	"github.com/json-iterator/go"
)

// partition splits a posted FeatureCollection into shapes, lines and points.
// The worker count and malformed feature policy may be overridden with the workers and policy query parameters.
func (api *LayerAPI) partition(w http.ResponseWriter, r *http.Request) {
	log.Debug("partition", log.Data{"headers": r.Header})

	opts, err := api.schedulerOptions(r)
	if err != nil {
		log.Error(err, nil)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fc, err := models.CreateFeatureCollection(r.Body)
	if err != nil {
		log.Error(err, nil)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	buckets, err := scheduler.Run(r.Context(), fc.Features, opts)
	if err != nil {
		log.Error(err, log.Data{"features": len(fc.Features)})
		setErrorCode(w, err)
		return
	}

	bytes, err := jsoniter.Marshal(models.NewPartitionResponse(buckets))
	if err != nil {
		log.Error(err, log.Data{})
		setErrorCode(w, err)
		return
	}
	writeBody(w, contentJSON, bytes)
}

// schedulerOptions overlays the request's query parameters on the service defaults
func (api *LayerAPI) schedulerOptions(r *http.Request) (scheduler.Options, error) {
	opts := api.defaults
	q := r.URL.Query()
	if s := q.Get("workers"); len(s) > 0 {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return opts, errors.New("workers must be a positive integer")
		}
		opts.Workers = n
	}
	if s := q.Get("policy"); len(s) > 0 {
		p, err := partition.ParsePolicy(s)
		if err != nil {
			return opts, err
		}
		opts.Policy = p
	}
	return opts, nil
}
