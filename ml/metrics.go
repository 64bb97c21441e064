package ml

import (
	"errors"
	"sort"
)

// Evaluation summarizes classifier performance on a held-out split.
// Precision and recall treat any positive label as the disease class.
type Evaluation struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Samples   int     `json:"samples"`
	Labels    []int   `json:"labels"`
	Confusion [][]int `json:"confusion"`
}

// Evaluate runs the model over the test split and computes accuracy,
// precision, recall and the confusion matrix.
func Evaluate(model Classifier, testX [][]float64, testY []int) (Evaluation, error) {
	if len(testX) == 0 {
		return Evaluation{}, errors.New("test set is empty")
	}
	if len(testX) != len(testY) {
		return Evaluation{}, errors.New("features and labels size mismatch")
	}

	predicted := make([]int, len(testX))
	var correct, truePositive, predictedPositive, actualPositive int

	for i, vector := range testX {
		label, _, err := model.Predict(vector)
		if err != nil {
			return Evaluation{}, err
		}
		predicted[i] = label
		if label == testY[i] {
			correct++
		}
		if label > 0 {
			predictedPositive++
		}
		if testY[i] > 0 {
			actualPositive++
			if label > 0 {
				truePositive++
			}
		}
	}

	eval := Evaluation{
		Accuracy: float64(correct) / float64(len(testX)),
		Samples:  len(testX),
	}
	if predictedPositive > 0 {
		eval.Precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		eval.Recall = float64(truePositive) / float64(actualPositive)
	}
	eval.Confusion, eval.Labels = ConfusionMatrix(testY, predicted)
	return eval, nil
}

// ConfusionMatrix returns a matrix whose i-th row and j-th column counts
// samples with true label labels[i] predicted as labels[j], over the
// sorted set of labels seen in either slice.
func ConfusionMatrix(yTrue, yPred []int) ([][]int, []int) {
	seen := make(map[int]bool)
	for _, label := range yTrue {
		seen[label] = true
	}
	for _, label := range yPred {
		seen[label] = true
	}
	labels := make([]int, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Ints(labels)

	index := make(map[int]int, len(labels))
	for i, label := range labels {
		index[label] = i
	}

	matrix := make([][]int, len(labels))
	for i := range matrix {
		matrix[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		matrix[index[yTrue[i]]][index[yPred[i]]]++
	}
	return matrix, labels
}
