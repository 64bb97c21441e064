package ml

// Model type identifiers double as the filename stems for saved models
// (svm.model, nb.model, dt.model, knn.model).
const (
	TypeSVM          = "svm"
	TypeNaiveBayes   = "nb"
	TypeDecisionTree = "dt"
	TypeKNN          = "knn"
)

// Classifier is implemented by every model the registry can serve.
type Classifier interface {
	Train(features [][]float64, labels []int) error
	Predict(features []float64) (int, float64, error)
	Save(path string) error
	Load(path string) error
	Name() string
}

var displayNames = map[string]string{
	TypeSVM:          "Support Vector Machine",
	TypeNaiveBayes:   "Naive Bayes",
	TypeDecisionTree: "Decision Tree",
	TypeKNN:          "K-Nearest Neighbors",
}

// DisplayName returns the human-readable name for a model type, or the
// type itself when unknown.
func DisplayName(modelType string) string {
	if name, ok := displayNames[modelType]; ok {
		return name
	}
	return modelType
}

// ModelTypes lists the supported model type identifiers.
func ModelTypes() []string {
	return []string{TypeSVM, TypeNaiveBayes, TypeDecisionTree, TypeKNN}
}
