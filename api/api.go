package api

import (
	"context"

	"github.com/ONSdigital/dp-glify-layer/health"
	"github.com/ONSdigital/dp-glify-layer/scheduler"
	"github.com/ONSdigital/go-ns/log"
	"github.com/ONSdigital/go-ns/server"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"net/http"
)

var httpServer *server.Server

// LayerAPI partitions mixed geojson and renders glify layers
type LayerAPI struct {
	router   *mux.Router
	defaults scheduler.Options
}

// CreateLayerAPI manages all the routes configured to the layer service
func CreateLayerAPI(bindAddr string, allowedOrigins string, defaults scheduler.Options, errorChan chan error) {
	router := mux.NewRouter()
	routes(router, defaults)

	httpServer = server.New(bindAddr, createCORSHandler(allowedOrigins, router))
	// Disable this here to allow main to manage graceful shutdown of the entire app.
	httpServer.HandleOSSignals = false

	go func() {
		log.Debug("Starting glify layer service...", nil)
		if err := httpServer.ListenAndServe(); err != nil {
			log.ErrorC("Main", err, log.Data{"MethodInError": "httpServer.ListenAndServe()"})
			errorChan <- err
		}
	}()
}

// createCORSHandler wraps the router in a CORS handler that responds to OPTIONS requests and returns the headers necessary to allow CORS-enabled clients to work
func createCORSHandler(allowedOrigins string, router *mux.Router) http.Handler {
	headersOk := handlers.AllowedHeaders([]string{"Accept", "Content-Type", "Access-Control-Allow-Origin", "Access-Control-Allow-Methods", "X-Requested-With"})
	originsOk := handlers.AllowedOrigins([]string{allowedOrigins})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})

	return handlers.CORS(originsOk, headersOk, methodsOk)(router)
}

// routes contain all endpoints for the layer service
func routes(router *mux.Router, defaults scheduler.Options) *LayerAPI {
	api := LayerAPI{router: router, defaults: defaults}

	router.Path("/healthcheck").Methods("GET").HandlerFunc(health.EmptyHealthcheck)

	api.router.HandleFunc("/partition", api.partition).Methods("POST")
	api.router.HandleFunc("/analyse", api.analyse).Methods("POST")
	api.router.HandleFunc("/bounds", api.bounds).Methods("POST")
	api.router.HandleFunc("/render/{render_type}", api.render).Methods("POST")
	return &api
}

// Close represents the graceful shutting down of the http server
func Close(ctx context.Context) error {
	if err := httpServer.Shutdown(ctx); err != nil {
		return err
	}

	log.Info("graceful shutdown of http server complete", nil)
	return nil
}
