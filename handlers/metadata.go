package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"postergrid/models"
	"postergrid/services/batch"
	"postergrid/services/enrich"
	"postergrid/services/metadata"
	"postergrid/utils/sorting"
)

type MetadataHandler struct {
	Service  *metadata.Service
	Resolver *batch.Resolver
	Pipeline *enrich.Pipeline
}

func NewMetadataHandler(svc *metadata.Service, resolver *batch.Resolver, pipeline *enrich.Pipeline) *MetadataHandler {
	return &MetadataHandler{Service: svc, Resolver: resolver, Pipeline: pipeline}
}

// Search resolves a single title: GET /api/search?title=...
func (h *MetadataHandler) Search(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title parameter is required"})
		return
	}

	movie, err := h.Service.SearchByTitle(r.Context(), title)
	if err != nil {
		log.Printf("[handlers] search failed title=%q: %v", title, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

// GridRequest carries a user-curated batch. Titles may be given as a list
// or pasted as raw text, one per line.
type GridRequest struct {
	Titles []string `json:"titles"`
	Text   string   `json:"text"`
	Sort   string   `json:"sort"`
}

// GridResponse is the rendered batch plus its per-title failures.
type GridResponse struct {
	Movies   []models.Movie  `json:"movies"`
	Failures []batch.Failure `json:"failures"`
}

// Grid resolves a batch of titles in order: POST /api/grid
func (h *MetadataHandler) Grid(w http.ResponseWriter, r *http.Request) {
	var req GridRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	titles := req.Titles
	if len(titles) == 0 && req.Text != "" {
		titles = batch.ParseTitles(req.Text)
	}
	if len(titles) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no titles provided"})
		return
	}

	outcome, err := h.Resolver.Resolve(r.Context(), titles, func(index, total int, title string) {
		log.Printf("[handlers] grid progress %d/%d title=%q", index, total, title)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	movies := outcome.Movies
	if req.Sort != "" {
		movies = sorting.Sort(movies, req.Sort)
	}
	writeJSON(w, http.StatusOK, GridResponse{Movies: movies, Failures: outcome.Failures})
}

// TopRated serves the fixed catalogue: GET /api/catalogue/top-rated
func (h *MetadataHandler) TopRated(w http.ResponseWriter, r *http.Request) {
	movies, enriched, err := h.Service.TopRated(r.Context())
	if err != nil {
		log.Printf("[handlers] top rated fetch failed: %v", err)
		writeError(w, err)
		return
	}

	if sortBy := r.URL.Query().Get("sort"); sortBy != "" {
		movies = sorting.Sort(movies, sortBy)
	}
	writeJSON(w, http.StatusOK, map[string]any{"movies": movies})

	// An enriched cache hit has nothing left to fetch; spending gated
	// calls on it would starve interactive lookups.
	if enriched {
		return
	}
	h.enrichAsync(movies, func(upgraded []models.Movie) {
		h.Service.CacheTopRated(upgraded, true)
	})
}

// Year serves the best movies of one year: GET /api/catalogue/year/{year}
func (h *MetadataHandler) Year(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(mux.Vars(r)["year"])
	if err != nil || year < 1888 || year > 2100 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid year"})
		return
	}

	movies, enriched, err := h.Service.DiscoverByYear(r.Context(), year)
	if err != nil {
		log.Printf("[handlers] year fetch failed year=%d: %v", year, err)
		writeError(w, err)
		return
	}

	if sortBy := r.URL.Query().Get("sort"); sortBy != "" {
		movies = sorting.Sort(movies, sortBy)
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "movies": movies})

	if enriched {
		return
	}
	h.enrichAsync(movies, func(upgraded []models.Movie) {
		h.Service.CacheYear(year, upgraded, true)
	})
}

// enrichAsync runs the secondary upgrade pass after the response has been
// written, re-caching the batch so the next request serves enriched data.
// The pass copies the slice first: the request's own buffer must not be
// mutated once the handler returns.
func (h *MetadataHandler) enrichAsync(movies []models.Movie, persist enrich.Persist) {
	if h.Pipeline == nil || len(movies) == 0 {
		return
	}
	batchCopy := make([]models.Movie, len(movies))
	copy(batchCopy, movies)
	go h.Pipeline.Run(context.Background(), batchCopy, nil, persist)
}
