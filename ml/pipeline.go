package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"pcodrisk/schema"
)

// Prediction is the outcome of one pass through the inference pipeline.
type Prediction struct {
	Probability float64 `json:"probability"`
	RiskLabel   string  `json:"risk_label"`
}

// Pipeline is the read-only serving handle composing the four inference
// stages: reorder, transform, infer, categorize. It is constructed once at
// startup and safe for concurrent use; both Transform and PredictProba are
// pure for a fitted instance, so an expirable LRU memoizes repeated payloads.
type Pipeline struct {
	schema *schema.Schema
	pre    *Preprocessor
	model  Classifier
	cache  *expirable.LRU[string, Prediction]
}

// NewPipeline wires the fitted artifacts together and cross-checks the
// column-order contract between them: schema feature order must match the
// preprocessor's fitted grouping, and the preprocessor's output width must
// match the classifier's input width. Drift is an ErrArtifactLoad.
func NewPipeline(s *schema.Schema, pre *Preprocessor, model Classifier, cacheSize int, cacheTTL time.Duration) (*Pipeline, error) {
	fitted := pre.Groups.FeatureOrder()
	if len(fitted) != len(s.FeatureOrder) {
		return nil, fmt.Errorf("%w: schema declares %d features, preprocessor fitted %d", ErrArtifactLoad, len(s.FeatureOrder), len(fitted))
	}
	for i, name := range s.FeatureOrder {
		if fitted[i] != name {
			return nil, fmt.Errorf("%w: feature order drift at position %d: schema %q, preprocessor %q", ErrArtifactLoad, i, name, fitted[i])
		}
	}
	if model.Width() != pre.Width() {
		return nil, fmt.Errorf("%w: preprocessor emits width %d, classifier expects %d", ErrArtifactLoad, pre.Width(), model.Width())
	}

	p := &Pipeline{schema: s, pre: pre, model: model}
	if cacheSize > 0 {
		p.cache = expirable.NewLRU[string, Prediction](cacheSize, nil, cacheTTL)
	}
	return p, nil
}

// Schema exposes the schema document for publication to callers.
func (p *Pipeline) Schema() *schema.Schema { return p.schema }

// Predict runs a raw payload through the full pipeline. Failures are
// synchronous with no partial results: schema.MismatchError for client-side
// payload problems, InferenceError for artifact drift.
func (p *Pipeline) Predict(payload map[string]interface{}) (Prediction, error) {
	key := ""
	if p.cache != nil {
		// map keys marshal in sorted order, so the key is canonical
		if raw, err := json.Marshal(payload); err == nil {
			key = string(raw)
			if hit, ok := p.cache.Get(key); ok {
				return hit, nil
			}
		}
	}

	row, err := p.schema.BuildRow(payload)
	if err != nil {
		return Prediction{}, err
	}
	vector, err := p.pre.Transform(row)
	if err != nil {
		return Prediction{}, err
	}
	proba, err := p.model.PredictProba(vector)
	if err != nil {
		return Prediction{}, err
	}

	result := Prediction{
		Probability: math.Round(proba*10000) / 10000,
		RiskLabel:   Categorize(proba),
	}
	if p.cache != nil && key != "" {
		p.cache.Add(key, result)
	}
	return result, nil
}
