package http

import (
	"net/http"
	"strconv"

	"cardioml/db"
)

// RegisterFeatureHandlers registers the clinical feature record routes.
func RegisterFeatureHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/features", handleCreateFeatures)
	mux.HandleFunc("GET /api/features", handleListFeatures)
	mux.HandleFunc("GET /api/features/{id}", handleGetFeatures)
}

func handleCreateFeatures(w http.ResponseWriter, r *http.Request) {
	var request FeatureCreateRequest
	if err := decodeJSON(r, &request); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := request.Data.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if request.Target != nil && (*request.Target < 0 || *request.Target > 1) {
		respondError(w, http.StatusBadRequest, "target must be 0 or 1")
		return
	}

	id, err := db.AddFeatures(request.Data.Record(request.Target))
	if err != nil {
		respondDBError(w, err)
		return
	}

	record, err := db.GetFeatures(id)
	if err != nil {
		respondDBError(w, err)
		return
	}
	respondStatus(w, http.StatusCreated, record)
}

func handleListFeatures(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	records, err := db.ListFeatures(limit)
	if err != nil {
		respondDBError(w, err)
		return
	}
	respondJSON(w, map[string]interface{}{
		"features": records,
		"count":    len(records),
	})
}

func handleGetFeatures(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid feature id")
		return
	}
	record, err := db.GetFeatures(id)
	if err != nil {
		respondDBError(w, err)
		return
	}
	respondJSON(w, record)
}
