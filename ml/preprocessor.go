package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"pcodrisk/schema"
)

// ColumnGroups declares which features are numeric, binary, and categorical.
// The declaration order fixes the block order of the transformed vector and
// is an implicit part of the classifier's input contract.
type ColumnGroups struct {
	Numeric     []string `json:"numeric"`
	Binary      []string `json:"binary"`
	Categorical []string `json:"categorical"`
}

// FeatureOrder returns the positional feature order implied by the grouping:
// numeric columns, then binary, then categorical.
func (g ColumnGroups) FeatureOrder() []string {
	order := make([]string, 0, len(g.Numeric)+len(g.Binary)+len(g.Categorical))
	order = append(order, g.Numeric...)
	order = append(order, g.Binary...)
	order = append(order, g.Categorical...)
	return order
}

type numericStats struct {
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

// Preprocessor is the fitted transformation from a raw feature row to a
// fixed-width numeric vector. Once fitted it is read-only; Transform is pure.
type Preprocessor struct {
	Groups       ColumnGroups            `json:"groups"`
	NumericStats map[string]numericStats `json:"numeric_stats"`
	BinaryFill   map[string]float64      `json:"binary_fill"`
	CategoryFill map[string]string       `json:"category_fill"`
	Vocab        map[string][]string     `json:"vocab"`
}

// FitPreprocessor learns imputation statistics, scaling parameters, and
// one-hot vocabularies from the training rows. Missing values (nil) are
// skipped when computing statistics. Vocabularies are sorted so the encoding
// is independent of row order.
func FitPreprocessor(rows []schema.Row, groups ColumnGroups) (*Preprocessor, error) {
	if len(rows) == 0 {
		return nil, errors.New("no training rows")
	}

	p := &Preprocessor{
		Groups:       groups,
		NumericStats: make(map[string]numericStats, len(groups.Numeric)),
		BinaryFill:   make(map[string]float64, len(groups.Binary)),
		CategoryFill: make(map[string]string, len(groups.Categorical)),
		Vocab:        make(map[string][]string, len(groups.Categorical)),
	}

	for _, name := range groups.Numeric {
		values, err := numericColumn(rows, name)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("numeric column %q has no observed values", name)
		}
		mean, std := meanStd(values)
		if std == 0 {
			// zero-variance column: centering still applies, scaling is identity
			std = 1
		}
		p.NumericStats[name] = numericStats{Median: median(values), Mean: mean, Std: std}
	}

	for _, name := range groups.Binary {
		values, err := numericColumn(rows, name)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("binary column %q has no observed values", name)
		}
		p.BinaryFill[name] = mostFrequentFloat(values)
	}

	for _, name := range groups.Categorical {
		values, err := categoryColumn(rows, name)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("categorical column %q has no observed values", name)
		}
		p.CategoryFill[name] = mostFrequentString(values)

		seen := make(map[string]bool)
		var vocab []string
		for _, v := range values {
			if !seen[v] {
				seen[v] = true
				vocab = append(vocab, v)
			}
		}
		sort.Strings(vocab)
		p.Vocab[name] = vocab
	}

	return p, nil
}

// Width returns the length of every vector Transform produces.
func (p *Preprocessor) Width() int {
	width := len(p.Groups.Numeric) + len(p.Groups.Binary)
	for _, name := range p.Groups.Categorical {
		width += len(p.Vocab[name])
	}
	return width
}

// Transform converts a raw row into the fitted numeric vector. Explicit nil
// values are imputed; a feature key absent from the row entirely is a
// schema.MismatchError. Unseen categories produce an all-zero indicator
// block, never an error.
func (p *Preprocessor) Transform(row schema.Row) ([]float64, error) {
	out := make([]float64, 0, p.Width())

	for _, name := range p.Groups.Numeric {
		raw, ok := row[name]
		if !ok {
			return nil, &schema.MismatchError{MissingKeys: []string{name}}
		}
		stats := p.NumericStats[name]
		v := stats.Median
		if raw != nil {
			f, err := toFloat(raw)
			if err != nil {
				return nil, &schema.MismatchError{Field: name, Reason: err.Error()}
			}
			v = f
		}
		out = append(out, (v-stats.Mean)/stats.Std)
	}

	for _, name := range p.Groups.Binary {
		raw, ok := row[name]
		if !ok {
			return nil, &schema.MismatchError{MissingKeys: []string{name}}
		}
		v := p.BinaryFill[name]
		if raw != nil {
			f, err := toFloat(raw)
			if err != nil {
				return nil, &schema.MismatchError{Field: name, Reason: err.Error()}
			}
			v = f
		}
		out = append(out, v)
	}

	for _, name := range p.Groups.Categorical {
		raw, ok := row[name]
		if !ok {
			return nil, &schema.MismatchError{MissingKeys: []string{name}}
		}
		v := p.CategoryFill[name]
		if raw != nil {
			s, ok := raw.(string)
			if !ok {
				return nil, &schema.MismatchError{Field: name, Reason: fmt.Sprintf("expected string category, got %T", raw)}
			}
			v = schema.Canonical(s)
		}
		block := make([]float64, len(p.Vocab[name]))
		for i, known := range p.Vocab[name] {
			if known == v {
				block[i] = 1
				break
			}
		}
		out = append(out, block...)
	}

	return out, nil
}

// Save persists the fitted preprocessor as JSON.
func (p *Preprocessor) Save(path string) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// LoadPreprocessor reloads a previously fitted preprocessor. Failures wrap
// ErrArtifactLoad and are fatal at startup.
func LoadPreprocessor(path string) (*Preprocessor, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: preprocessor: %v", ErrArtifactLoad, err)
	}
	var p Preprocessor
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: preprocessor: %v", ErrArtifactLoad, err)
	}
	if p.Width() == 0 {
		return nil, fmt.Errorf("%w: preprocessor has zero output width", ErrArtifactLoad)
	}
	return &p, nil
}

func toFloat(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", raw)
	}
}

func numericColumn(rows []schema.Row, name string) ([]float64, error) {
	var values []float64
	for _, row := range rows {
		raw, ok := row[name]
		if !ok {
			return nil, &schema.MismatchError{MissingKeys: []string{name}}
		}
		if raw == nil {
			continue
		}
		f, err := toFloat(raw)
		if err != nil {
			return nil, &schema.MismatchError{Field: name, Reason: err.Error()}
		}
		values = append(values, f)
	}
	return values, nil
}

func categoryColumn(rows []schema.Row, name string) ([]string, error) {
	var values []string
	for _, row := range rows {
		raw, ok := row[name]
		if !ok {
			return nil, &schema.MismatchError{MissingKeys: []string{name}}
		}
		if raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return nil, &schema.MismatchError{Field: name, Reason: fmt.Sprintf("expected string category, got %T", raw)}
		}
		values = append(values, schema.Canonical(s))
	}
	return values, nil
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func meanStd(values []float64) (float64, float64) {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

func mostFrequentFloat(values []float64) float64 {
	counts := make(map[float64]int)
	for _, v := range values {
		counts[v]++
	}
	best := values[0]
	for v, c := range counts {
		if c > counts[best] || (c == counts[best] && v < best) {
			best = v
		}
	}
	return best
}

func mostFrequentString(values []string) string {
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}
	best := values[0]
	for v, c := range counts {
		if c > counts[best] || (c == counts[best] && v < best) {
			best = v
		}
	}
	return best
}
