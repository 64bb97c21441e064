package ml

import (
	"errors"
	"math"
	"sort"
)

// KNN classifies by majority vote over the k nearest training samples.
type KNN struct {
	K        int
	features [][]float64
	labels   []int
}

type knnPayload struct {
	K        int         `json:"k"`
	Features [][]float64 `json:"features"`
	Labels   []int       `json:"labels"`
}

func NewKNN(k int) *KNN {
	if k <= 0 {
		k = 5
	}
	return &KNN{K: k}
}

func (knn *KNN) Name() string { return TypeKNN }

func (knn *KNN) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if knn.K <= 0 {
		knn.K = 5
	}

	knn.features = make([][]float64, len(features))
	for i, vector := range features {
		knn.features[i] = append([]float64(nil), vector...)
	}
	knn.labels = append([]int(nil), labels...)
	return nil
}

func (knn *KNN) Predict(features []float64) (int, float64, error) {
	if len(knn.features) == 0 {
		return 0, 0, errors.New("model not trained")
	}
	if len(features) != len(knn.features[0]) {
		return 0, 0, errors.New("feature vector length mismatch")
	}

	type neighbor struct {
		distance float64
		label    int
	}
	neighbors := make([]neighbor, len(knn.features))
	for i, sample := range knn.features {
		var sum float64
		for j, value := range sample {
			diff := value - features[j]
			sum += diff * diff
		}
		neighbors[i] = neighbor{distance: math.Sqrt(sum), label: knn.labels[i]}
	}
	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].distance < neighbors[j].distance
	})

	k := knn.K
	if k > len(neighbors) {
		k = len(neighbors)
	}
	votes := make(map[int]int)
	for _, n := range neighbors[:k] {
		votes[n.label]++
	}

	bestLabel := neighbors[0].label
	bestVotes := 0
	for label, count := range votes {
		if count > bestVotes || (count == bestVotes && label < bestLabel) {
			bestVotes = count
			bestLabel = label
		}
	}

	return bestLabel, float64(bestVotes) / float64(k), nil
}

func (knn *KNN) Save(path string) error {
	if len(knn.features) == 0 {
		return errors.New("model not trained")
	}
	return saveModelFile(path, TypeKNN, knnPayload{
		K:        knn.K,
		Features: knn.features,
		Labels:   knn.labels,
	})
}

func (knn *KNN) Load(path string) error {
	var payload knnPayload
	if err := loadModelFile(path, TypeKNN, &payload); err != nil {
		return err
	}
	if len(payload.Features) == 0 || len(payload.Features) != len(payload.Labels) {
		return errors.New("invalid knn model data")
	}
	knn.K = payload.K
	if knn.K <= 0 {
		knn.K = 5
	}
	knn.features = payload.Features
	knn.labels = payload.Labels
	return nil
}
