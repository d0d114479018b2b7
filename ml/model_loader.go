package ml

import "fmt"

// NewClassifier returns an unfitted classifier of the named family.
func NewClassifier(family string) (Classifier, error) {
	switch family {
	case "logistic":
		return NewLogisticRegression(), nil
	case "mlp":
		return NewMLP(), nil
	default:
		return nil, fmt.Errorf("unsupported model family %q", family)
	}
}

// LoadClassifier reloads a persisted classifier of the named family.
// Failures wrap ErrArtifactLoad.
func LoadClassifier(family, path string) (Classifier, error) {
	model, err := NewClassifier(family)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactLoad, err)
	}
	if err := model.Load(path); err != nil {
		return nil, fmt.Errorf("%w: classifier: %v", ErrArtifactLoad, err)
	}
	return model, nil
}
