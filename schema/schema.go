// Package schema declares the feature schema fitted at training time and
// consumed at serving time to validate and reorder incoming payloads.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FieldMeta describes a single feature for form generation: either a free
// numeric input or a select with an enumerated option set.
type FieldMeta struct {
	Type    string        `json:"type"`
	Options []interface{} `json:"options,omitempty"`
}

// Schema is the positional contract between a raw payload and the fitted
// preprocessor. FeatureOrder is fixed after training and must match the
// preprocessor's fitted column order exactly.
type Schema struct {
	FeatureOrder []string             `json:"feature_order"`
	FieldMeta    map[string]FieldMeta `json:"field_meta"`
}

// Row is one observation's raw values keyed by feature name. A nil value is
// an explicit missing entry and is filled by the fitted imputation statistic.
type Row map[string]interface{}

// MismatchError reports a payload that violates the schema contract: a
// declared feature key absent entirely, or a value the declared kind cannot
// use.
type MismatchError struct {
	MissingKeys []string
	Field       string
	Reason      string
}

func (e *MismatchError) Error() string {
	if len(e.MissingKeys) > 0 {
		return fmt.Sprintf("schema mismatch: missing feature keys %v", e.MissingKeys)
	}
	return fmt.Sprintf("schema mismatch: field %q: %s", e.Field, e.Reason)
}

var titleCaser = cases.Title(language.English)

// Canonical normalizes a categorical value to the Title-case form used by the
// fitted vocabulary, so "HEALTHY" and " healthy " both resolve to "Healthy".
func Canonical(s string) string {
	return titleCaser.String(strings.TrimSpace(s))
}

// BuildRow validates that every declared feature key is present in the
// payload and reorders it into a Row. Explicit nulls pass through; an absent
// key is a MismatchError.
func (s *Schema) BuildRow(payload map[string]interface{}) (Row, error) {
	var missing []string
	for _, name := range s.FeatureOrder {
		if _, ok := payload[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MismatchError{MissingKeys: missing}
	}

	row := make(Row, len(s.FeatureOrder))
	for _, name := range s.FeatureOrder {
		row[name] = payload[name]
	}
	return row, nil
}

// Save writes the schema document for callers that generate input forms.
func (s *Schema) Save(path string) error {
	payload, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// Load reads a schema document written by Save.
func Load(path string) (*Schema, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Schema
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, err
	}
	if len(s.FeatureOrder) == 0 {
		return nil, fmt.Errorf("schema has empty feature_order")
	}
	return &s, nil
}
