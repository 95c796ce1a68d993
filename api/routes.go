package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"postergrid/handlers"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleOptions handles OPTIONS requests for CORS preflight
func handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	metadataHandler *handlers.MetadataHandler,
	collectionsHandler *handlers.CollectionsHandler,
) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	// Title resolution and batch grids
	api.HandleFunc("/search", metadataHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/search", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/grid", metadataHandler.Grid).Methods(http.MethodPost)
	api.HandleFunc("/grid", handleOptions).Methods(http.MethodOptions)

	// Curated catalogues
	api.HandleFunc("/catalogue/top-rated", metadataHandler.TopRated).Methods(http.MethodGet)
	api.HandleFunc("/catalogue/top-rated", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/catalogue/year/{year}", metadataHandler.Year).Methods(http.MethodGet)
	api.HandleFunc("/catalogue/year/{year}", handleOptions).Methods(http.MethodOptions)

	// Favorites and watchlist
	api.HandleFunc("/collections/{name}", collectionsHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/collections/{name}", collectionsHandler.Add).Methods(http.MethodPost)
	api.HandleFunc("/collections/{name}", collectionsHandler.Clear).Methods(http.MethodDelete)
	api.HandleFunc("/collections/{name}", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/collections/{name}/toggle", collectionsHandler.Toggle).Methods(http.MethodPost)
	api.HandleFunc("/collections/{name}/toggle", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/collections/{name}/move", collectionsHandler.Move).Methods(http.MethodPost)
	api.HandleFunc("/collections/{name}/move", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/collections/{name}/{id}", collectionsHandler.Remove).Methods(http.MethodDelete)
	api.HandleFunc("/collections/{name}/{id}", handleOptions).Methods(http.MethodOptions)
}
