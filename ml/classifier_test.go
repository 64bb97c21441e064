package ml

import "testing"

// heartSamples builds a small separable dataset: healthy records have
// low age and high peak heart rate, diseased records the opposite.
func heartSamples() ([][]float64, []int) {
	var features [][]float64
	var labels []int
	for i := 0; i < 10; i++ {
		healthy := []float64{
			40 + float64(i), 0, 1, 120, 200, 0, 0, 170 + float64(i),
			0, 0.2, 1, 0, 2,
		}
		diseased := []float64{
			62 + float64(i), 1, 3, 150, 280, 1, 1, 112 + float64(i),
			1, 2.5, 2, 2, 3,
		}
		features = append(features, healthy, diseased)
		labels = append(labels, 0, 1)
	}
	return features, labels
}

func healthySample() []float64 {
	return []float64{44, 0, 1, 118, 195, 0, 0, 176, 0, 0.1, 1, 0, 2}
}

func diseasedSample() []float64 {
	return []float64{66, 1, 3, 155, 290, 1, 1, 108, 1, 2.8, 2, 3, 3}
}

func trainOn(t *testing.T, model Classifier) Classifier {
	t.Helper()
	features, labels := heartSamples()
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("train failed: %v", err)
	}
	return model
}

func assertClassifies(t *testing.T, model Classifier) {
	t.Helper()

	label, confidence, err := model.Predict(healthySample())
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if label != 0 {
		t.Fatalf("expected healthy sample to classify as 0, got %d", label)
	}
	if confidence < 0 || confidence > 1 {
		t.Fatalf("confidence out of range: %v", confidence)
	}

	label, confidence, err = model.Predict(diseasedSample())
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if label != 1 {
		t.Fatalf("expected diseased sample to classify as 1, got %d", label)
	}
	if confidence < 0 || confidence > 1 {
		t.Fatalf("confidence out of range: %v", confidence)
	}
}

func TestTrainRejectsBadInput(t *testing.T) {
	models := []Classifier{NewDecisionTree(0), NewNaiveBayes(), NewKNN(0), NewSVM(0)}
	for _, model := range models {
		if err := model.Train(nil, nil); err == nil {
			t.Fatalf("%s: expected error for empty training data", model.Name())
		}
		if err := model.Train([][]float64{{1, 2}}, []int{0, 1}); err == nil {
			t.Fatalf("%s: expected error for size mismatch", model.Name())
		}
	}
}

func TestPredictBeforeTrain(t *testing.T) {
	models := []Classifier{NewDecisionTree(0), NewNaiveBayes(), NewKNN(0), NewSVM(0)}
	for _, model := range models {
		if _, _, err := model.Predict(healthySample()); err == nil {
			t.Fatalf("%s: expected error before training", model.Name())
		}
	}
}

func TestNewClassifier(t *testing.T) {
	for _, modelType := range ModelTypes() {
		model, err := NewClassifier(modelType)
		if err != nil {
			t.Fatalf("NewClassifier(%q) failed: %v", modelType, err)
		}
		if model.Name() != modelType {
			t.Fatalf("expected name %q, got %q", modelType, model.Name())
		}
	}
	if _, err := NewClassifier("forest"); err == nil {
		t.Fatal("expected error for unknown model type")
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName(TypeSVM); got != "Support Vector Machine" {
		t.Fatalf("unexpected display name: %q", got)
	}
	if got := DisplayName("forest"); got != "forest" {
		t.Fatalf("expected unknown type to pass through, got %q", got)
	}
}
