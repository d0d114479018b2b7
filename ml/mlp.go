package ml

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
)

type denseLayer struct {
	W [][]float64 `json:"w"` // [out][in]
	B []float64   `json:"b"`
}

// MLP is a small feed-forward network: ReLU hidden layers and a single
// sigmoid output unit, trained with per-sample SGD on binary cross-entropy.
type MLP struct {
	Layers []denseLayer `json:"layers"`

	Hidden []int   `json:"-"`
	Lr     float64 `json:"-"`
	Epochs int     `json:"-"`
	Seed   int64   `json:"-"`
}

// NewMLP returns an unfitted network with the default 32-16 hidden layout.
func NewMLP() *MLP {
	return &MLP{
		Hidden: []int{32, 16},
		Lr:     0.05,
		Epochs: 60,
		Seed:   42,
	}
}

// Fit trains the network. Training is deterministic for a fixed Seed.
func (m *MLP) Fit(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}

	dim := len(features[0])
	rng := rand.New(rand.NewSource(m.Seed))
	m.Layers = nil

	sizes := append([]int{dim}, m.Hidden...)
	sizes = append(sizes, 1)
	for l := 1; l < len(sizes); l++ {
		layer := denseLayer{
			W: make([][]float64, sizes[l]),
			B: make([]float64, sizes[l]),
		}
		for i := range layer.W {
			layer.W[i] = make([]float64, sizes[l-1])
			for j := range layer.W[i] {
				layer.W[i][j] = rng.NormFloat64() * 0.1
			}
		}
		m.Layers = append(m.Layers, layer)
	}

	for ep := 0; ep < m.Epochs; ep++ {
		for _, idx := range rng.Perm(len(features)) {
			if len(features[idx]) != dim {
				return errors.New("inconsistent feature width in training data")
			}
			m.step(features[idx], float64(labels[idx]))
		}
	}
	return nil
}

// step runs one forward/backward pass and updates weights in place.
func (m *MLP) step(x []float64, y float64) {
	pre, act := m.forward(x)

	// sigmoid output with BCE: output delta reduces to p - y
	last := len(m.Layers) - 1
	deltas := make([][]float64, len(m.Layers))
	deltas[last] = []float64{act[last+1][0] - y}

	for l := last - 1; l >= 0; l-- {
		next := m.Layers[l+1]
		delta := make([]float64, len(m.Layers[l].B))
		for i := range delta {
			sum := 0.0
			for k := range next.W {
				sum += next.W[k][i] * deltas[l+1][k]
			}
			if pre[l][i] > 0 {
				delta[i] = sum
			}
		}
		deltas[l] = delta
	}

	for l, layer := range m.Layers {
		input := act[l]
		for i := range layer.W {
			d := deltas[l][i]
			for j := range layer.W[i] {
				layer.W[i][j] -= m.Lr * d * input[j]
			}
			layer.B[i] -= m.Lr * d
		}
	}
}

// forward returns pre-activations per layer and activations per layer
// (act[0] is the input, act[len(layers)] the sigmoid output).
func (m *MLP) forward(x []float64) (pre [][]float64, act [][]float64) {
	pre = make([][]float64, len(m.Layers))
	act = make([][]float64, len(m.Layers)+1)
	act[0] = x

	for l, layer := range m.Layers {
		z := make([]float64, len(layer.B))
		a := make([]float64, len(layer.B))
		for i := range layer.W {
			sum := layer.B[i]
			for j, v := range act[l] {
				sum += layer.W[i][j] * v
			}
			z[i] = sum
			if l == len(m.Layers)-1 {
				a[i] = sigmoid(sum)
			} else {
				a[i] = relu(sum)
			}
		}
		pre[l] = z
		act[l+1] = a
	}
	return pre, act
}

// PredictProba returns the probability of the positive class.
func (m *MLP) PredictProba(features []float64) (float64, error) {
	if len(m.Layers) == 0 {
		return 0, ErrNotFitted
	}
	if len(features) != m.Width() {
		return 0, &InferenceError{Want: m.Width(), Got: len(features)}
	}
	_, act := m.forward(features)
	return act[len(m.Layers)][0], nil
}

// Width returns the input vector width fixed at fit time.
func (m *MLP) Width() int {
	if len(m.Layers) == 0 || len(m.Layers[0].W) == 0 {
		return 0
	}
	return len(m.Layers[0].W[0])
}

// Save persists the fitted layers as JSON.
func (m *MLP) Save(path string) error {
	if len(m.Layers) == 0 {
		return ErrNotFitted
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// Load restores a fitted network written by Save.
func (m *MLP) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, m); err != nil {
		return err
	}
	if len(m.Layers) == 0 {
		return errors.New("model file has no layers")
	}
	return nil
}
