package ml

import (
	"errors"
	"math"
	"sort"
)

// NaiveBayes is a Gaussian naive Bayes classifier: one prior and one
// (mean, variance) pair per feature for each class.
type NaiveBayes struct {
	classes   []int
	priors    map[int]float64
	means     map[int][]float64
	variances map[int][]float64
}

type naiveBayesPayload struct {
	Classes   []int             `json:"classes"`
	Priors    map[int]float64   `json:"priors"`
	Means     map[int][]float64 `json:"means"`
	Variances map[int][]float64 `json:"variances"`
}

func NewNaiveBayes() *NaiveBayes {
	return &NaiveBayes{}
}

func (nb *NaiveBayes) Name() string { return TypeNaiveBayes }

func (nb *NaiveBayes) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}

	featureCount := len(features[0])
	grouped := make(map[int][][]float64)
	for i, vector := range features {
		if len(vector) != featureCount {
			return errors.New("inconsistent feature vector length")
		}
		grouped[labels[i]] = append(grouped[labels[i]], vector)
	}

	classes := make([]int, 0, len(grouped))
	for label := range grouped {
		classes = append(classes, label)
	}
	sort.Ints(classes)

	priors := make(map[int]float64, len(classes))
	means := make(map[int][]float64, len(classes))
	variances := make(map[int][]float64, len(classes))
	var maxVariance float64

	for _, label := range classes {
		samples := grouped[label]
		priors[label] = float64(len(samples)) / float64(len(features))

		mean := make([]float64, featureCount)
		for _, vector := range samples {
			for j, value := range vector {
				mean[j] += value
			}
		}
		for j := range mean {
			mean[j] /= float64(len(samples))
		}

		variance := make([]float64, featureCount)
		for _, vector := range samples {
			for j, value := range vector {
				diff := value - mean[j]
				variance[j] += diff * diff
			}
		}
		for j := range variance {
			variance[j] /= float64(len(samples))
			if variance[j] > maxVariance {
				maxVariance = variance[j]
			}
		}

		means[label] = mean
		variances[label] = variance
	}

	// Variance smoothing keeps constant features from producing zero
	// densities.
	smoothing := 1e-9 * maxVariance
	if smoothing <= 0 {
		smoothing = 1e-9
	}
	for _, variance := range variances {
		for j := range variance {
			variance[j] += smoothing
		}
	}

	nb.classes = classes
	nb.priors = priors
	nb.means = means
	nb.variances = variances
	return nil
}

func (nb *NaiveBayes) Predict(features []float64) (int, float64, error) {
	if len(nb.classes) == 0 {
		return 0, 0, errors.New("model not trained")
	}
	if len(features) != len(nb.means[nb.classes[0]]) {
		return 0, 0, errors.New("feature vector length mismatch")
	}

	logPosteriors := make([]float64, len(nb.classes))
	for i, label := range nb.classes {
		logPosterior := math.Log(nb.priors[label])
		mean := nb.means[label]
		variance := nb.variances[label]
		for j, value := range features {
			diff := value - mean[j]
			logPosterior -= 0.5 * (math.Log(2*math.Pi*variance[j]) + diff*diff/variance[j])
		}
		logPosteriors[i] = logPosterior
	}

	bestIdx := 0
	for i, lp := range logPosteriors {
		if lp > logPosteriors[bestIdx] {
			bestIdx = i
		}
	}

	// Normalize in log space for a stable posterior probability.
	maxLog := logPosteriors[bestIdx]
	var total float64
	for _, lp := range logPosteriors {
		total += math.Exp(lp - maxLog)
	}
	confidence := 1.0 / total

	return nb.classes[bestIdx], confidence, nil
}

func (nb *NaiveBayes) Save(path string) error {
	if len(nb.classes) == 0 {
		return errors.New("model not trained")
	}
	return saveModelFile(path, TypeNaiveBayes, naiveBayesPayload{
		Classes:   nb.classes,
		Priors:    nb.priors,
		Means:     nb.means,
		Variances: nb.variances,
	})
}

func (nb *NaiveBayes) Load(path string) error {
	var payload naiveBayesPayload
	if err := loadModelFile(path, TypeNaiveBayes, &payload); err != nil {
		return err
	}
	if len(payload.Classes) == 0 {
		return errors.New("empty naive bayes model")
	}
	nb.classes = payload.Classes
	nb.priors = payload.Priors
	nb.means = payload.Means
	nb.variances = payload.Variances
	return nil
}
