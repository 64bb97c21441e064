package ml

import (
	"errors"
	"math"
	"math/rand"
)

// SVM is a linear support vector machine trained with Pegasos-style
// stochastic subgradient descent on the hinge loss. Inputs are
// standardized with statistics captured at training time, since the raw
// clinical features span very different scales.
type SVM struct {
	Lambda  float64
	Epochs  int
	weights []float64
	bias    float64
	means   []float64
	stddevs []float64
}

type svmPayload struct {
	Lambda  float64   `json:"lambda"`
	Epochs  int       `json:"epochs"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Means   []float64 `json:"means"`
	Stddevs []float64 `json:"stddevs"`
}

func NewSVM(epochs int) *SVM {
	if epochs <= 0 {
		epochs = 100
	}
	return &SVM{Lambda: 0.01, Epochs: epochs}
}

func (svm *SVM) Name() string { return TypeSVM }

func (svm *SVM) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if svm.Lambda <= 0 {
		svm.Lambda = 0.01
	}
	if svm.Epochs <= 0 {
		svm.Epochs = 100
	}

	featureCount := len(features[0])
	svm.means, svm.stddevs = standardStats(features)
	scaled := make([][]float64, len(features))
	for i, vector := range features {
		if len(vector) != featureCount {
			return errors.New("inconsistent feature vector length")
		}
		scaled[i] = svm.standardize(vector)
	}

	// Labels map to {-1, +1}: any positive class is +1.
	targets := make([]float64, len(labels))
	for i, label := range labels {
		if label > 0 {
			targets[i] = 1
		} else {
			targets[i] = -1
		}
	}

	weights := make([]float64, featureCount)
	bias := 0.0
	rnd := rand.New(rand.NewSource(1))
	step := 0

	for epoch := 0; epoch < svm.Epochs; epoch++ {
		for _, i := range rnd.Perm(len(scaled)) {
			step++
			eta := 1.0 / (svm.Lambda * float64(step))
			margin := targets[i] * (dot(weights, scaled[i]) + bias)
			for j := range weights {
				weights[j] -= eta * svm.Lambda * weights[j]
			}
			if margin < 1 {
				for j := range weights {
					weights[j] += eta * targets[i] * scaled[i][j]
				}
				bias += eta * targets[i]
			}
		}
	}

	svm.weights = weights
	svm.bias = bias
	return nil
}

func (svm *SVM) Predict(features []float64) (int, float64, error) {
	if len(svm.weights) == 0 {
		return 0, 0, errors.New("model not trained")
	}
	if len(features) != len(svm.weights) {
		return 0, 0, errors.New("feature vector length mismatch")
	}

	margin := dot(svm.weights, svm.standardize(features)) + svm.bias
	label := 0
	if margin > 0 {
		label = 1
	}
	confidence := 1.0 / (1.0 + math.Exp(-math.Abs(margin)))
	return label, confidence, nil
}

func (svm *SVM) Save(path string) error {
	if len(svm.weights) == 0 {
		return errors.New("model not trained")
	}
	return saveModelFile(path, TypeSVM, svmPayload{
		Lambda:  svm.Lambda,
		Epochs:  svm.Epochs,
		Weights: svm.weights,
		Bias:    svm.bias,
		Means:   svm.means,
		Stddevs: svm.stddevs,
	})
}

func (svm *SVM) Load(path string) error {
	var payload svmPayload
	if err := loadModelFile(path, TypeSVM, &payload); err != nil {
		return err
	}
	if len(payload.Weights) == 0 {
		return errors.New("empty svm model")
	}
	svm.Lambda = payload.Lambda
	svm.Epochs = payload.Epochs
	svm.weights = payload.Weights
	svm.bias = payload.Bias
	svm.means = payload.Means
	svm.stddevs = payload.Stddevs
	return nil
}

func (svm *SVM) standardize(features []float64) []float64 {
	scaled := make([]float64, len(features))
	for j, value := range features {
		scaled[j] = (value - svm.means[j]) / svm.stddevs[j]
	}
	return scaled
}

func standardStats(features [][]float64) (means, stddevs []float64) {
	featureCount := len(features[0])
	means = make([]float64, featureCount)
	stddevs = make([]float64, featureCount)

	for _, vector := range features {
		for j, value := range vector {
			means[j] += value
		}
	}
	for j := range means {
		means[j] /= float64(len(features))
	}
	for _, vector := range features {
		for j, value := range vector {
			diff := value - means[j]
			stddevs[j] += diff * diff
		}
	}
	for j := range stddevs {
		stddevs[j] = math.Sqrt(stddevs[j] / float64(len(features)))
		if stddevs[j] == 0 {
			stddevs[j] = 1
		}
	}
	return means, stddevs
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
