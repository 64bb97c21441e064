package ml

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func writeModels(t *testing.T, types ...string) string {
	t.Helper()
	dir := t.TempDir()
	features, labels := heartSamples()
	for _, modelType := range types {
		model, err := NewClassifier(modelType)
		if err != nil {
			t.Fatalf("new classifier: %v", err)
		}
		if err := model.Train(features, labels); err != nil {
			t.Fatalf("train %s: %v", modelType, err)
		}
		if err := model.Save(filepath.Join(dir, modelType+".model")); err != nil {
			t.Fatalf("save %s: %v", modelType, err)
		}
	}
	return dir
}

func TestOpenRegistryScansDir(t *testing.T) {
	dir := writeModels(t, TypeKNN, TypeNaiveBayes)
	registry, err := OpenRegistry(dir, 16, zap.NewNop())
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	defer registry.Close()

	names := registry.Names()
	if len(names) != 2 || names[0] != TypeKNN || names[1] != TypeNaiveBayes {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestOpenRegistryMissingDir(t *testing.T) {
	if _, err := OpenRegistry(filepath.Join(t.TempDir(), "nope"), 16, zap.NewNop()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestOpenRegistrySkipsBrokenFiles(t *testing.T) {
	dir := writeModels(t, TypeKNN)
	// A dt.model holding knn payload must be skipped, not fatal.
	knn := trainOn(t, NewKNN(3))
	if err := knn.Save(filepath.Join(dir, "dt.model")); err != nil {
		t.Fatalf("save: %v", err)
	}

	registry, err := OpenRegistry(dir, 16, zap.NewNop())
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	defer registry.Close()

	if registry.Len() != 1 {
		t.Fatalf("expected 1 model, got %d", registry.Len())
	}
}

func TestRegistryPredict(t *testing.T) {
	dir := writeModels(t, TypeKNN)
	registry, err := OpenRegistry(dir, 16, zap.NewNop())
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	defer registry.Close()

	prediction, err := registry.Predict(TypeKNN, diseasedSample())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if prediction.ModelName != TypeKNN {
		t.Fatalf("unexpected model name: %q", prediction.ModelName)
	}
	if !prediction.HasHeartDisease {
		t.Fatal("expected positive prediction")
	}
	if prediction.ConfidenceScore <= 0 || prediction.ConfidenceScore > 100 {
		t.Fatalf("confidence score out of range: %v", prediction.ConfidenceScore)
	}

	// Second call is served from cache and must match.
	cached, err := registry.Predict(TypeKNN, diseasedSample())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if cached != prediction {
		t.Fatalf("cached prediction diverged: %+v vs %+v", cached, prediction)
	}
}

func TestRegistryPredictUnknownModel(t *testing.T) {
	dir := writeModels(t, TypeKNN)
	registry, err := OpenRegistry(dir, 16, zap.NewNop())
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	defer registry.Close()

	if _, err := registry.Predict("forest", healthySample()); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
}

func TestRegistryPredictAll(t *testing.T) {
	dir := writeModels(t, TypeKNN, TypeNaiveBayes, TypeDecisionTree)
	registry, err := OpenRegistry(dir, 16, zap.NewNop())
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	defer registry.Close()

	predictions := registry.PredictAll(healthySample())
	if len(predictions) != 3 {
		t.Fatalf("expected 3 predictions, got %d", len(predictions))
	}
	for _, prediction := range predictions {
		if prediction.HasHeartDisease {
			t.Fatalf("%s: expected negative prediction", prediction.ModelName)
		}
	}
}

func TestRegistryWatchPicksUpNewModel(t *testing.T) {
	dir := writeModels(t, TypeKNN)
	registry, err := OpenRegistry(dir, 16, zap.NewNop())
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	defer registry.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := registry.Watch(ctx); err != nil {
		t.Fatalf("watch: %v", err)
	}

	nb := trainOn(t, NewNaiveBayes())
	if err := nb.Save(filepath.Join(dir, "nb.model")); err != nil {
		t.Fatalf("save: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for registry.Len() != 2 {
		select {
		case <-deadline:
			t.Fatalf("watcher did not pick up nb.model, have %v", registry.Names())
		case <-time.After(50 * time.Millisecond):
		}
	}
}
