package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ONSdigital/dp-glify-layer/layer"
	"github.com/ONSdigital/dp-glify-layer/models"
	"github.com/ONSdigital/dp-glify-layer/partition"
	"github.com/ONSdigital/dp-glify-layer/renderer"
	"github.com/ONSdigital/go-ns/log"
	"github.com/gorilla/mux"
	"github.com/json-iterator/go"
)

// Error types
var (
	internalError     = "Failed to process the request due to an internal error"
	unknownRenderType = "Unknown render type"
	noBounds          = "Nothing to bound - the layer holds no drawable geometry"
)

// Content types
var (
	contentSVG  = "image/svg+xml"
	contentJSON = "application/json"
)

const (
	defaultWidth  = 400.0
	defaultHeight = 400.0
)

func (api *LayerAPI) render(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	renderType := vars["render_type"]

	if renderType != "svg" {
		log.Error(errors.New("Unknown render type"), log.Data{"render_type": renderType})
		http.Error(w, unknownRenderType, http.StatusNotFound)
		return
	}

	request, ok := readLayerRequest(w, r)
	if !ok {
		return
	}

	l, factory, err := api.attachLayer(r.Context(), request)
	if err != nil {
		setErrorCode(w, err)
		return
	}
	defer l.Detach()
	l.Render()

	width, height := request.Width, request.Height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	draw := factory.Canvas().Draw
	if !request.Projected() {
		draw = factory.Canvas().DrawUnprojected
	}
	writeBody(w, contentSVG, []byte(draw(width, height, request.SVGOptions()...)))
}

func (api *LayerAPI) bounds(w http.ResponseWriter, r *http.Request) {
	request, ok := readLayerRequest(w, r)
	if !ok {
		return
	}

	l, _, err := api.attachLayer(r.Context(), request)
	if err != nil {
		setErrorCode(w, err)
		return
	}
	defer l.Detach()

	b, ok := l.Bounds()
	if !ok {
		http.Error(w, noBounds, http.StatusNotFound)
		return
	}

	bytes, err := jsoniter.Marshal(models.NewBoundsResponse(b))
	if err != nil {
		log.Error(err, log.Data{})
		setErrorCode(w, err)
		return
	}
	writeBody(w, contentJSON, bytes)
}

// readLayerRequest decodes and validates the body, writing a bad request response if either fails
func readLayerRequest(w http.ResponseWriter, r *http.Request) (*models.LayerRequest, bool) {
	log.Debug("layer request", log.Data{"path": r.URL.Path, "headers": r.Header})
	request, err := models.CreateLayerRequest(r.Body)
	if err != nil {
		log.Error(err, nil)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	if err = request.ValidateLayerRequest(); err != nil {
		log.Error(err, nil)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return request, true
}

// attachLayer creates a layer drawing onto a headless SVG canvas and waits for its sub-renderers.
// Partial partition failures are logged and the layer is used as it is.
func (api *LayerAPI) attachLayer(ctx context.Context, request *models.LayerRequest) (*layer.Layer, *renderer.SVGFactory, error) {
	opts, err := request.LayerOptions(api.defaults)
	if err != nil {
		return nil, nil, err
	}

	factory := renderer.NewSVGFactory()
	l := layer.New(factory, opts)
	if err := l.Attach(ctx, newHeadlessMap()); err != nil {
		return nil, nil, err
	}

	if err := l.Wait(ctx); err != nil {
		if l.State() != layer.Active {
			return nil, nil, err
		}
		log.ErrorC("layer drawn from partial data", err, nil)
	}
	return l, factory, nil
}

func writeBody(w http.ResponseWriter, contentType string, bytes []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(bytes); err != nil {
		log.Error(err, log.Data{})
	}
}

func setErrorCode(w http.ResponseWriter, err error) {
	log.Debug("error is", log.Data{"error": err})
	var fe *partition.FeatureError
	switch {
	case errors.As(err, &fe), errors.Is(err, partition.ErrUnknownPolicy), errors.Is(err, layer.ErrNoInput), errors.Is(err, models.ErrorNoData):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, internalError, http.StatusInternalServerError)
	}
}
