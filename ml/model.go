package ml

import (
	"errors"
	"fmt"
)

// Classifier is a fitted binary probabilistic model. Any model family
// satisfying this contract is substitutable; preprocessing is deliberately
// decoupled from model architecture.
type Classifier interface {
	Fit(features [][]float64, labels []int) error
	PredictProba(features []float64) (float64, error)
	Width() int
	Save(path string) error
	Load(path string) error
}

// ErrArtifactLoad marks a fitted artifact that is missing or corrupt.
// It is fatal at startup: the process must not begin serving without its
// fitted preprocessor and classifier.
var ErrArtifactLoad = errors.New("artifact load failed")

// ErrNotFitted is returned when inference is attempted before training.
var ErrNotFitted = errors.New("classifier not fitted")

// InferenceError reports a transformed vector whose width disagrees with the
// width fixed at fit time. It indicates artifact or schema drift and is a
// server-side failure.
type InferenceError struct {
	Want int
	Got  int
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference error: expected vector width %d, got %d", e.Want, e.Got)
}
