package ml

import (
	"errors"
	"path/filepath"
	"testing"

	"pcodrisk/schema"
)

func testGroups() ColumnGroups {
	return ColumnGroups{
		Numeric:     []string{"Age", "BMI"},
		Binary:      []string{"Acne"},
		Categorical: []string{"Diet"},
	}
}

func testRows() []schema.Row {
	return []schema.Row{
		{"Age": 25.0, "BMI": 22.0, "Acne": 1.0, "Diet": "Healthy"},
		{"Age": 30.0, "BMI": 27.5, "Acne": 0.0, "Diet": "Unhealthy"},
		{"Age": 35.0, "BMI": 31.0, "Acne": 1.0, "Diet": "Moderate"},
		{"Age": 28.0, "BMI": 24.0, "Acne": 1.0, "Diet": "Healthy"},
	}
}

func fitTestPreprocessor(t *testing.T) *Preprocessor {
	t.Helper()
	p, err := FitPreprocessor(testRows(), testGroups())
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	return p
}

func TestTransformWidth(t *testing.T) {
	p := fitTestPreprocessor(t)

	// 2 numeric + 1 binary + 3 vocabulary entries
	if p.Width() != 6 {
		t.Fatalf("expected width 6, got %d", p.Width())
	}

	vector, err := p.Transform(testRows()[0])
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	if len(vector) != p.Width() {
		t.Fatalf("expected vector length %d, got %d", p.Width(), len(vector))
	}
}

func TestTransformIdempotent(t *testing.T) {
	p := fitTestPreprocessor(t)
	row := testRows()[1]

	first, err := p.Transform(row)
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	second, err := p.Transform(row)
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("transform not idempotent at %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestTransformImputesNulls(t *testing.T) {
	p := fitTestPreprocessor(t)

	withNulls := schema.Row{"Age": nil, "BMI": nil, "Acne": nil, "Diet": nil}
	imputed := schema.Row{
		"Age":  p.NumericStats["Age"].Median,
		"BMI":  p.NumericStats["BMI"].Median,
		"Acne": p.BinaryFill["Acne"],
		"Diet": p.CategoryFill["Diet"],
	}

	got, err := p.Transform(withNulls)
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	want, err := p.Transform(imputed)
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("imputation mismatch at %d: %v vs %v", i, got[i], want[i])
		}
	}
}

func TestTransformUnknownCategory(t *testing.T) {
	p := fitTestPreprocessor(t)

	vector, err := p.Transform(schema.Row{"Age": 30.0, "BMI": 25.0, "Acne": 0.0, "Diet": "Keto"})
	if err != nil {
		t.Fatalf("unknown category must not fail: %v", err)
	}
	block := vector[len(vector)-len(p.Vocab["Diet"]):]
	for i, v := range block {
		if v != 0 {
			t.Fatalf("expected all-zero indicator block, got %v at %d", v, i)
		}
	}
}

func TestTransformCanonicalizesCategory(t *testing.T) {
	p := fitTestPreprocessor(t)

	upper, err := p.Transform(schema.Row{"Age": 30.0, "BMI": 25.0, "Acne": 0.0, "Diet": "HEALTHY"})
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	canon, err := p.Transform(schema.Row{"Age": 30.0, "BMI": 25.0, "Acne": 0.0, "Diet": "Healthy"})
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	for i := range upper {
		if upper[i] != canon[i] {
			t.Fatalf("case variants should encode identically, differ at %d", i)
		}
	}
}

func TestTransformMissingKey(t *testing.T) {
	p := fitTestPreprocessor(t)

	_, err := p.Transform(schema.Row{"Age": 30.0, "BMI": 25.0, "Acne": 0.0})
	var mismatch *schema.MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected MismatchError, got %v", err)
	}
}

func TestTransformRejectsWrongType(t *testing.T) {
	p := fitTestPreprocessor(t)

	_, err := p.Transform(schema.Row{"Age": "not-a-number", "BMI": 25.0, "Acne": 0.0, "Diet": "Healthy"})
	var mismatch *schema.MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected MismatchError for unusable numeric value, got %v", err)
	}
}

func TestFitZeroVarianceColumn(t *testing.T) {
	rows := []schema.Row{
		{"Age": 30.0, "BMI": 25.0, "Acne": 1.0, "Diet": "Healthy"},
		{"Age": 30.0, "BMI": 26.0, "Acne": 0.0, "Diet": "Moderate"},
	}
	p, err := FitPreprocessor(rows, testGroups())
	if err != nil {
		t.Fatalf("zero-variance column must not fail fit: %v", err)
	}
	vector, err := p.Transform(rows[0])
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	if vector[0] != 0 {
		t.Fatalf("zero-variance column should center to 0, got %v", vector[0])
	}
}

func TestPreprocessorSaveLoad(t *testing.T) {
	p := fitTestPreprocessor(t)
	path := filepath.Join(t.TempDir(), "preprocessor.json")
	if err := p.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadPreprocessor(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Width() != p.Width() {
		t.Fatalf("width drift after reload: %d vs %d", loaded.Width(), p.Width())
	}

	row := testRows()[2]
	want, _ := p.Transform(row)
	got, err := loaded.Transform(row)
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reloaded transform differs at %d", i)
		}
	}
}

func TestLoadPreprocessorMissing(t *testing.T) {
	_, err := LoadPreprocessor(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, ErrArtifactLoad) {
		t.Fatalf("expected ErrArtifactLoad, got %v", err)
	}
}
