package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cardioml/db"
	"cardioml/ml"
)

func writeTrainingCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("age,sex,cp,trestbps,chol,fbs,restecg,thalach,exang,oldpeak,slope,ca,thal,target\n")
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, "%d,0,1,120,200,0,0,%d,0,0.2,1,0,2,0\n", 40+i, 170+i)
		fmt.Fprintf(&b, "%d,1,3,150,280,1,1,%d,1,2.5,2,2,3,1\n", 60+i, 110+i)
	}
	path := filepath.Join(t.TempDir(), "heart.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func stubTraining(t *testing.T) *[]db.TrainingLog {
	t.Helper()
	var recorded []db.TrainingLog
	originalAdd := addTrainingLog
	originalDir := modelDir
	addTrainingLog = func(entry db.TrainingLog) error {
		recorded = append(recorded, entry)
		return nil
	}
	SetModelDir(t.TempDir())
	t.Cleanup(func() {
		addTrainingLog = originalAdd
		modelDir = originalDir
	})
	return &recorded
}

func TestTrainModels(t *testing.T) {
	recorded := stubTraining(t)
	dataPath := writeTrainingCSV(t)

	results, err := TrainModels(TrainingConfig{DataPath: dataPath}, ml.ModelTypes())
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, result := range results {
		if result.Evaluation.Accuracy < 0.5 {
			t.Fatalf("%s: implausible accuracy %v", result.ModelName, result.Evaluation.Accuracy)
		}
		if _, err := os.Stat(result.ModelPath); err != nil {
			t.Fatalf("%s: model file missing: %v", result.ModelName, err)
		}
	}
	if len(*recorded) != 4 {
		t.Fatalf("expected 4 training log entries, got %d", len(*recorded))
	}
}

func TestHandleTrain(t *testing.T) {
	stubTraining(t)
	dataPath := writeTrainingCSV(t)

	body := fmt.Sprintf(`{"data_path":%q,"model_type":"knn"}`, dataPath)
	req := httptest.NewRequest(http.MethodPost, "/api/train", strings.NewReader(body))
	w := httptest.NewRecorder()
	newMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var payload struct {
		Results []TrainingResult `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(payload.Results) != 1 || payload.Results[0].ModelName != ml.TypeKNN {
		t.Fatalf("unexpected results: %+v", payload.Results)
	}
}

func TestHandleTrainValidation(t *testing.T) {
	stubTraining(t)

	if w := postJSON(t, "/api/train", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing data_path, got %d", w.Code)
	}
	if w := postJSON(t, "/api/train", `{"data_path":"x.csv","model_type":"forest"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown model type, got %d", w.Code)
	}
}

func TestHandleTrainingLog(t *testing.T) {
	original := loadTrainingLog
	loadTrainingLog = func() ([]db.TrainingLog, error) {
		return []db.TrainingLog{{ModelName: "svm", Accuracy: 0.9}}, nil
	}
	defer func() { loadTrainingLog = original }()

	req := httptest.NewRequest(http.MethodGet, "/api/training/log", nil)
	w := httptest.NewRecorder()
	newMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var payload struct {
		Entries []db.TrainingLog `json:"entries"`
		Count   int              `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload.Count != 1 || payload.Entries[0].ModelName != "svm" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestResolveModelTypes(t *testing.T) {
	types, err := resolveModelTypes("all")
	if err != nil || len(types) != 4 {
		t.Fatalf("unexpected: %v %v", types, err)
	}
	types, err = resolveModelTypes("")
	if err != nil || len(types) != 4 {
		t.Fatalf("unexpected: %v %v", types, err)
	}
	types, err = resolveModelTypes("svm")
	if err != nil || len(types) != 1 || types[0] != "svm" {
		t.Fatalf("unexpected: %v %v", types, err)
	}
	if _, err := resolveModelTypes("forest"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
