package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"

	"cardioml/ml"
	"cardioml/monitoring"
)

// ModelProvider is the prediction surface the handlers depend on; the
// ml.Registry satisfies it.
type ModelProvider interface {
	Names() []string
	Predict(name string, features []float64) (ml.Prediction, error)
	PredictAll(features []float64) []ml.Prediction
}

var (
	provider  ModelProvider
	metrics   *monitoring.Metrics
	eventHub  *monitoring.Hub
	loggerRef atomic.Pointer[zap.Logger]
)

// SetModelProvider installs the prediction backend.
func SetModelProvider(p ModelProvider) { provider = p }

// SetMetrics installs the metrics collector.
func SetMetrics(m *monitoring.Metrics) { metrics = m }

// SetEventHub installs the websocket event hub.
func SetEventHub(h *monitoring.Hub) { eventHub = h }

// SetLogger installs the package logger.
func SetLogger(log *zap.Logger) {
	if log != nil {
		loggerRef.Store(log)
	}
}

func logger() *zap.Logger {
	if log := loggerRef.Load(); log != nil {
		return log
	}
	return zap.NewNop()
}

// RegisterHandlers registers the health, model and monitoring routes.
func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/models", handleModels)
	mux.HandleFunc("GET /api/metadata", handleMetadata)
	mux.HandleFunc("GET /api/metrics", handleMetrics)
	mux.HandleFunc("GET /api/ws/monitor", handleMonitorWS)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func respondStatus(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondStatus(w, status, map[string]string{"error": message})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func handleModels(w http.ResponseWriter, r *http.Request) {
	if provider == nil {
		respondError(w, http.StatusServiceUnavailable, "model registry not available")
		return
	}
	names := provider.Names()
	displayNames := make(map[string]string, len(names))
	for _, name := range names {
		displayNames[name] = ml.DisplayName(name)
	}
	respondJSON(w, map[string]interface{}{
		"models":        names,
		"display_names": displayNames,
	})
}

func handleMetadata(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, Metadata{
		Name:    "cardioml",
		Version: "v1",
		Author:  "CardioML Authors",
		License: "MIT or Apache",
	})
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	if metrics == nil {
		respondError(w, http.StatusServiceUnavailable, "metrics not available")
		return
	}
	respondJSON(w, metrics.Snapshot())
}

func handleMonitorWS(w http.ResponseWriter, r *http.Request) {
	if eventHub == nil {
		respondError(w, http.StatusServiceUnavailable, "event stream not available")
		return
	}
	eventHub.HandleWebSocket(w, r)
}
