package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"cardioml/db"
	"cardioml/ml"
)

func main() {
	dataPath := flag.String("data", "heart.csv", "training dataset CSV path")
	modelDir := flag.String("model-dir", "./models", "directory to write model files to")
	modelType := flag.String("model", "all", "model type to train (svm, nb, dt, knn or all)")
	testRatio := flag.Float64("test-ratio", 0.2, "held-out test fraction")
	maxDepth := flag.Int("max-depth", 5, "decision tree max depth")
	neighbors := flag.Int("k", 5, "k-NN neighbor count")
	epochs := flag.Int("epochs", 100, "SVM training epochs")
	dbPath := flag.String("db", "", "optional database path for recording training runs")
	seed := flag.Int64("seed", 0, "split seed (0 uses the current time)")
	flag.Parse()

	types, err := resolveTypes(*modelType)
	if err != nil {
		log.Fatal(err)
	}

	if *dbPath != "" {
		if err := db.InitDB(*dbPath); err != nil {
			log.Fatalf("failed to initialize database: %v", err)
		}
	}

	dataset, err := ml.LoadCSV(*dataPath)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	log.Printf("loaded %d samples from %s", len(dataset.Labels), *dataPath)

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	trainX, trainY, testX, testY := dataset.Split(*testRatio, *seed)
	log.Printf("train=%d test=%d", len(trainY), len(testY))

	if err := os.MkdirAll(*modelDir, 0o755); err != nil {
		log.Fatalf("failed to create model dir: %v", err)
	}

	for _, name := range types {
		model, err := newClassifier(name, *maxDepth, *neighbors, *epochs)
		if err != nil {
			log.Fatal(err)
		}

		start := time.Now()
		if err := model.Train(trainX, trainY); err != nil {
			log.Fatalf("failed to train %s: %v", name, err)
		}

		evaluation, err := ml.Evaluate(model, testX, testY)
		if err != nil {
			log.Fatalf("failed to evaluate %s: %v", name, err)
		}
		log.Printf("%s: accuracy=%.4f precision=%.4f recall=%.4f (%d samples, %s)",
			name, evaluation.Accuracy, evaluation.Precision, evaluation.Recall,
			evaluation.Samples, time.Since(start).Round(time.Millisecond))

		path := filepath.Join(*modelDir, name+".model")
		if err := model.Save(path); err != nil {
			log.Fatalf("failed to save %s: %v", name, err)
		}
		fmt.Printf("model saved to %s\n", path)

		if *dbPath != "" {
			entry := db.TrainingLog{
				ModelName:  name,
				Accuracy:   evaluation.Accuracy,
				Precision:  evaluation.Precision,
				Recall:     evaluation.Recall,
				DataPoints: evaluation.Samples,
			}
			if err := db.AddTrainingLog(entry); err != nil {
				log.Printf("failed to record training run for %s: %v", name, err)
			}
		}
	}
}

func resolveTypes(modelType string) ([]string, error) {
	if modelType == "all" {
		return ml.ModelTypes(), nil
	}
	for _, known := range ml.ModelTypes() {
		if modelType == known {
			return []string{modelType}, nil
		}
	}
	return nil, fmt.Errorf("unknown model type %q", modelType)
}

func newClassifier(name string, maxDepth, neighbors, epochs int) (ml.Classifier, error) {
	switch name {
	case ml.TypeDecisionTree:
		return ml.NewDecisionTree(maxDepth), nil
	case ml.TypeKNN:
		return ml.NewKNN(neighbors), nil
	case ml.TypeSVM:
		return ml.NewSVM(epochs), nil
	default:
		return ml.NewClassifier(name)
	}
}
