package ml

import (
	"fmt"
)

// NewClassifier returns an untrained classifier for a model type, using
// default hyperparameters.
func NewClassifier(modelType string) (Classifier, error) {
	switch modelType {
	case TypeDecisionTree:
		return NewDecisionTree(0), nil
	case TypeNaiveBayes:
		return NewNaiveBayes(), nil
	case TypeKNN:
		return NewKNN(0), nil
	case TypeSVM:
		return NewSVM(0), nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}

// LoadModel loads a trained classifier of the given type from path.
func LoadModel(modelType, path string) (Classifier, error) {
	model, err := NewClassifier(modelType)
	if err != nil {
		return nil, err
	}
	if err := model.Load(path); err != nil {
		return nil, err
	}
	return model, nil
}
