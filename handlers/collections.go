package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"postergrid/models"
	"postergrid/services/collections"
	"postergrid/utils/sorting"
)

type CollectionsHandler struct {
	Service *collections.Service
}

func NewCollectionsHandler(svc *collections.Service) *CollectionsHandler {
	return &CollectionsHandler{Service: svc}
}

func collectionName(r *http.Request) models.CollectionName {
	return models.CollectionName(mux.Vars(r)["name"])
}

// List returns a collection: GET /api/collections/{name}?sort=...
func (h *CollectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(collectionName(r))
	if err != nil {
		writeCollectionError(w, err)
		return
	}
	if sortBy := r.URL.Query().Get("sort"); sortBy != "" {
		items = sorting.SortItems(items, sortBy)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Add inserts a movie: POST /api/collections/{name}
func (h *CollectionsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var movie models.Movie
	if err := json.NewDecoder(r.Body).Decode(&movie); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.Service.Add(collectionName(r), movie); err != nil {
		writeCollectionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"added": movie.Resolved()})
}

// Toggle flips membership: POST /api/collections/{name}/toggle
func (h *CollectionsHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var movie models.Movie
	if err := json.NewDecoder(r.Body).Decode(&movie); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	member, err := h.Service.Toggle(collectionName(r), movie)
	if err != nil {
		writeCollectionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"member": member})
}

// Remove deletes one entry: DELETE /api/collections/{name}/{id}
func (h *CollectionsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid movie id"})
		return
	}
	removed, err := h.Service.Remove(collectionName(r), id)
	if err != nil {
		writeCollectionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

// Clear empties the collection: DELETE /api/collections/{name}
func (h *CollectionsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Clear(collectionName(r)); err != nil {
		writeCollectionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// MoveRequest names the destination of a transfer.
type MoveRequest struct {
	To models.CollectionName `json:"to"`
	ID int64                 `json:"id"`
}

// Move transfers an entry between collections: POST /api/collections/{name}/move
func (h *CollectionsHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.Service.Move(collectionName(r), req.To, req.ID); err != nil {
		writeCollectionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"moved": true})
}

func writeCollectionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, collections.ErrUnknownCollection):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown collection"})
	case errors.Is(err, collections.ErrNotInCollection):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "movie not in collection"})
	default:
		// Raw error text stays in the logs, never in the response.
		log.Printf("[handlers] collection operation failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": models.UserMessage(err)})
	}
}
