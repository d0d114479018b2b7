package ml

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
)

// LogisticRegression is the default classifier family: a single sigmoid unit
// trained with mini-batch gradient descent on binary cross-entropy.
type LogisticRegression struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`

	Lr        float64 `json:"-"`
	Epochs    int     `json:"-"`
	BatchSize int     `json:"-"`
	Seed      int64   `json:"-"`
}

// NewLogisticRegression returns an unfitted model with default
// hyperparameters.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{
		Lr:        0.1,
		Epochs:    200,
		BatchSize: 16,
		Seed:      42,
	}
}

// Fit trains the model. Training is deterministic for a fixed Seed.
func (m *LogisticRegression) Fit(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}

	dim := len(features[0])
	rng := rand.New(rand.NewSource(m.Seed))
	m.Weights = make([]float64, dim)
	for i := range m.Weights {
		// small random init to break symmetry
		m.Weights[i] = rng.NormFloat64() * 0.01
	}
	m.Bias = 0

	batchSize := m.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}

	for ep := 0; ep < m.Epochs; ep++ {
		order := rng.Perm(len(features))
		for start := 0; start < len(order); start += batchSize {
			end := start + batchSize
			if end > len(order) {
				end = len(order)
			}

			gW := make([]float64, dim)
			gB := 0.0
			for _, idx := range order[start:end] {
				row := features[idx]
				if len(row) != dim {
					return errors.New("inconsistent feature width in training data")
				}
				p, err := m.PredictProba(row)
				if err != nil {
					return err
				}
				// BCE gradient wrt the pre-sigmoid sum
				d := (p - float64(labels[idx])) / float64(end-start)
				for j, v := range row {
					gW[j] += d * v
				}
				gB += d
			}

			for j := range m.Weights {
				m.Weights[j] -= m.Lr * gW[j]
			}
			m.Bias -= m.Lr * gB
		}
	}
	return nil
}

// PredictProba returns the probability of the positive class. It is a pure
// function of the input for a fitted instance.
func (m *LogisticRegression) PredictProba(features []float64) (float64, error) {
	if len(m.Weights) == 0 {
		return 0, ErrNotFitted
	}
	if len(features) != len(m.Weights) {
		return 0, &InferenceError{Want: len(m.Weights), Got: len(features)}
	}
	sum := m.Bias
	for j, v := range features {
		sum += m.Weights[j] * v
	}
	return sigmoid(sum), nil
}

// Width returns the input vector width fixed at fit time.
func (m *LogisticRegression) Width() int { return len(m.Weights) }

// Save persists the fitted weights as JSON.
func (m *LogisticRegression) Save(path string) error {
	if len(m.Weights) == 0 {
		return ErrNotFitted
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// Load restores a fitted model written by Save.
func (m *LogisticRegression) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, m); err != nil {
		return err
	}
	if len(m.Weights) == 0 {
		return errors.New("model file has no weights")
	}
	return nil
}
