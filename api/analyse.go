package api

import (
	"net/http"

	"github.com/ONSdigital/dp-glify-layer/analyser"
	"github.com/ONSdigital/dp-glify-layer/models"
	"github.com/ONSdigital/go-ns/log"
	"github.com/json-iterator/go"
)

func (api *LayerAPI) analyse(w http.ResponseWriter, r *http.Request) {

	log.Debug("analyse", log.Data{"headers": r.Header})
	fc, err := models.CreateFeatureCollection(r.Body)
	if err != nil {
		log.Error(err, nil)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response, err := analyser.AnalyseCollection(fc)
	if err != nil {
		log.Error(err, log.Data{})
		setErrorCode(w, err)
		return
	}

	bytes, err := jsoniter.Marshal(response)
	if err != nil {
		log.Error(err, log.Data{})
		setErrorCode(w, err)
		return
	}
	writeBody(w, contentJSON, bytes)
}
