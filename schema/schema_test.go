package schema

import (
	"errors"
	"path/filepath"
	"testing"
)

func testSchema() *Schema {
	return &Schema{
		FeatureOrder: []string{"Age", "Diet"},
		FieldMeta: map[string]FieldMeta{
			"Age":  {Type: "number"},
			"Diet": {Type: "select", Options: []interface{}{"Healthy", "Moderate", "Unhealthy"}},
		},
	}
}

func TestBuildRowMissingKey(t *testing.T) {
	s := testSchema()
	_, err := s.BuildRow(map[string]interface{}{"Age": 28.0})

	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected MismatchError, got %v", err)
	}
	if len(mismatch.MissingKeys) != 1 || mismatch.MissingKeys[0] != "Diet" {
		t.Fatalf("unexpected missing keys: %v", mismatch.MissingKeys)
	}
}

func TestBuildRowExplicitNull(t *testing.T) {
	s := testSchema()
	row, err := s.BuildRow(map[string]interface{}{"Age": 28.0, "Diet": nil})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := row["Diet"]; !ok || v != nil {
		t.Fatalf("expected explicit nil for Diet, got %v (present=%v)", v, ok)
	}
}

func TestCanonical(t *testing.T) {
	cases := map[string]string{
		"HEALTHY":   "Healthy",
		" healthy ": "Healthy",
		"Moderate":  "Moderate",
		"low":       "Low",
	}
	for in, want := range cases {
		if got := Canonical(in); got != want {
			t.Fatalf("Canonical(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	s := testSchema()
	if err := s.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.FeatureOrder) != 2 || loaded.FeatureOrder[1] != "Diet" {
		t.Fatalf("unexpected feature order: %v", loaded.FeatureOrder)
	}
	if loaded.FieldMeta["Diet"].Type != "select" {
		t.Fatalf("unexpected field meta: %+v", loaded.FieldMeta["Diet"])
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing schema file")
	}
}
