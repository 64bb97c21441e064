package http

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"cardioml/db"
	"cardioml/ml"
	"cardioml/monitoring"
)

// Injection points for tests.
var (
	loadTrainingLog = db.LoadTrainingLog
	savePrediction  = db.SavePrediction
)

// RegisterPredictHandlers registers the prediction routes.
func RegisterPredictHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/predict", handlePredict)
	mux.HandleFunc("POST /api/predict/all", handlePredictAll)
	mux.HandleFunc("POST /api/batch-predict", handleBatchPredict)
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	if provider == nil {
		respondError(w, http.StatusServiceUnavailable, "model registry not available")
		return
	}

	var request PredictionRequest
	if err := decodeJSON(r, &request); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := request.Data.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	modelName := request.ModelName
	if modelName == "" {
		modelName = defaultModelName()
		if modelName == "" {
			respondError(w, http.StatusServiceUnavailable, "no models loaded")
			return
		}
	}

	start := time.Now()
	prediction, err := provider.Predict(modelName, request.Data.Vector())
	if err != nil {
		if metrics != nil {
			metrics.RecordError()
		}
		if errors.Is(err, ml.ErrModelNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	recordPrediction(prediction, time.Since(start))
	respondJSON(w, prediction)
}

func handlePredictAll(w http.ResponseWriter, r *http.Request) {
	if provider == nil {
		respondError(w, http.StatusServiceUnavailable, "model registry not available")
		return
	}

	var request PredictionRequest
	if err := decodeJSON(r, &request); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := request.Data.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(provider.Names()) == 0 {
		respondError(w, http.StatusServiceUnavailable, "no models loaded")
		return
	}

	start := time.Now()
	predictions := provider.PredictAll(request.Data.Vector())
	elapsed := time.Since(start)
	for _, prediction := range predictions {
		recordPrediction(prediction, elapsed)
	}

	respondJSON(w, map[string]interface{}{"predictions": predictions})
}

func handleBatchPredict(w http.ResponseWriter, r *http.Request) {
	if provider == nil {
		respondError(w, http.StatusServiceUnavailable, "model registry not available")
		return
	}

	var request BatchPredictionRequest
	if err := decodeJSON(r, &request); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if request.ModelName == "" {
		respondError(w, http.StatusBadRequest, "model_name is required")
		return
	}
	if len(request.Values) == 0 {
		respondError(w, http.StatusBadRequest, "values must not be empty")
		return
	}

	response := BatchResponse{Values: make([]RecordResponse, 0, len(request.Values))}
	for _, record := range request.Values {
		result := RecordResponse{RecordID: record.RecordID}

		if err := record.Data.Validate(); err != nil {
			result.Errors = append(result.Errors, Message{Message: err.Error()})
			response.Values = append(response.Values, result)
			continue
		}

		start := time.Now()
		prediction, err := provider.Predict(request.ModelName, record.Data.Vector())
		if err != nil {
			if metrics != nil {
				metrics.RecordError()
			}
			result.Errors = append(result.Errors, Message{Message: err.Error()})
			response.Values = append(response.Values, result)
			continue
		}

		recordPrediction(prediction, time.Since(start))
		result.Data = &prediction
		response.Values = append(response.Values, result)
	}

	respondJSON(w, response)
}

// defaultModelName picks the loaded model with the best recorded
// accuracy, falling back to the first loaded model.
func defaultModelName() string {
	names := provider.Names()
	if len(names) == 0 {
		return ""
	}
	loaded := make(map[string]bool, len(names))
	for _, name := range names {
		loaded[name] = true
	}

	best := ""
	bestAccuracy := -1.0
	if logs, err := loadTrainingLog(); err == nil {
		for _, entry := range logs {
			if loaded[entry.ModelName] && entry.Accuracy > bestAccuracy {
				best = entry.ModelName
				bestAccuracy = entry.Accuracy
			}
		}
	}
	if best == "" {
		best = names[0]
	}
	return best
}

func recordPrediction(prediction ml.Prediction, latency time.Duration) {
	if metrics != nil {
		metrics.RecordPrediction(prediction.ModelName, latency)
	}
	if eventHub != nil {
		eventHub.Publish(monitoring.EventPrediction, prediction)
	}
	label := 0
	if prediction.HasHeartDisease {
		label = 1
	}
	if err := savePrediction(prediction.ModelName, label, prediction.ConfidenceScore); err != nil {
		logger().Warn("failed to persist prediction", zap.Error(err))
	}
}
