package http

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"cardioml/db"
	"cardioml/ml"
	"cardioml/monitoring"
)

// TrainingConfig controls a training run kicked off over the API.
type TrainingConfig struct {
	DataPath     string  `json:"data_path"`
	ModelType    string  `json:"model_type,omitempty"`
	TestRatio    float64 `json:"test_ratio,omitempty"`
	MaxTreeDepth int     `json:"max_tree_depth,omitempty"`
	Neighbors    int     `json:"neighbors,omitempty"`
	Epochs       int     `json:"epochs,omitempty"`
}

// TrainingResult reports one trained model.
type TrainingResult struct {
	ModelName  string        `json:"model_name"`
	ModelPath  string        `json:"model_path"`
	Evaluation ml.Evaluation `json:"evaluation"`
	Duration   string        `json:"duration"`
}

var (
	trainMu        sync.Mutex
	modelDir       = "models"
	addTrainingLog = db.AddTrainingLog
)

// SetModelDir sets the directory trained models are written to.
func SetModelDir(dir string) {
	if dir != "" {
		modelDir = dir
	}
}

// RegisterTrainingHandlers registers the training routes.
func RegisterTrainingHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/train", handleTrain)
	mux.HandleFunc("GET /api/training/log", handleTrainingLog)
}

func handleTrain(w http.ResponseWriter, r *http.Request) {
	var cfg TrainingConfig
	if err := decodeJSON(r, &cfg); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if cfg.DataPath == "" {
		respondError(w, http.StatusBadRequest, "data_path is required")
		return
	}

	types, err := resolveModelTypes(cfg.ModelType)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// One training run at a time; concurrent runs would race on the
	// model files.
	if !trainMu.TryLock() {
		respondError(w, http.StatusConflict, "a training run is already in progress")
		return
	}
	defer trainMu.Unlock()

	results, err := TrainModels(cfg, types)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, map[string]interface{}{"results": results})
}

func handleTrainingLog(w http.ResponseWriter, r *http.Request) {
	logs, err := loadTrainingLog()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, map[string]interface{}{
		"entries": logs,
		"count":   len(logs),
	})
}

func resolveModelTypes(modelType string) ([]string, error) {
	if modelType == "" || modelType == "all" {
		return ml.ModelTypes(), nil
	}
	for _, known := range ml.ModelTypes() {
		if modelType == known {
			return []string{modelType}, nil
		}
	}
	return nil, fmt.Errorf("unknown model type %q", modelType)
}

// TrainModels loads the dataset, trains each requested model type,
// evaluates on the held-out split, saves the model file and records a
// training log entry.
func TrainModels(cfg TrainingConfig, types []string) ([]TrainingResult, error) {
	dataset, err := ml.LoadCSV(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model dir: %w", err)
	}
	trainX, trainY, testX, testY := dataset.Split(cfg.TestRatio, time.Now().UnixNano())

	results := make([]TrainingResult, 0, len(types))
	for _, modelType := range types {
		result, err := trainOne(cfg, modelType, trainX, trainY, testX, testY)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func trainOne(cfg TrainingConfig, modelType string, trainX [][]float64, trainY []int, testX [][]float64, testY []int) (TrainingResult, error) {
	model, err := newClassifier(cfg, modelType)
	if err != nil {
		return TrainingResult{}, err
	}

	start := time.Now()
	if err := model.Train(trainX, trainY); err != nil {
		return TrainingResult{}, fmt.Errorf("failed to train %s: %w", modelType, err)
	}
	elapsed := time.Since(start)

	evaluation, err := ml.Evaluate(model, testX, testY)
	if err != nil {
		return TrainingResult{}, fmt.Errorf("failed to evaluate %s: %w", modelType, err)
	}

	path := filepath.Join(modelDir, modelType+".model")
	if err := model.Save(path); err != nil {
		return TrainingResult{}, fmt.Errorf("failed to save %s: %w", modelType, err)
	}

	entry := db.TrainingLog{
		ModelName:  modelType,
		Accuracy:   evaluation.Accuracy,
		Precision:  evaluation.Precision,
		Recall:     evaluation.Recall,
		DataPoints: evaluation.Samples,
	}
	if err := addTrainingLog(entry); err != nil {
		logger().Warn("failed to record training log", zap.String("model", modelType), zap.Error(err))
	}
	if eventHub != nil {
		eventHub.Publish(monitoring.EventTraining, entry)
	}
	logger().Info("trained model",
		zap.String("model", modelType),
		zap.Float64("accuracy", evaluation.Accuracy),
		zap.Duration("duration", elapsed))

	return TrainingResult{
		ModelName:  modelType,
		ModelPath:  path,
		Evaluation: evaluation,
		Duration:   elapsed.Round(time.Millisecond).String(),
	}, nil
}

func newClassifier(cfg TrainingConfig, modelType string) (ml.Classifier, error) {
	switch modelType {
	case ml.TypeDecisionTree:
		return ml.NewDecisionTree(cfg.MaxTreeDepth), nil
	case ml.TypeKNN:
		return ml.NewKNN(cfg.Neighbors), nil
	case ml.TypeSVM:
		return ml.NewSVM(cfg.Epochs), nil
	default:
		return ml.NewClassifier(modelType)
	}
}
