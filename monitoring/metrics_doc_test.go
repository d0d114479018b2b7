package monitoring

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMetricsStoreAbsentDocument(t *testing.T) {
	store := NewMetricsStore(filepath.Join(t.TempDir(), "metrics.json"))
	if _, err := store.Current(); !errors.Is(err, ErrMetricsUnavailable) {
		t.Fatalf("expected ErrMetricsUnavailable, got %v", err)
	}
}

func TestMetricsStoreServesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")
	doc := `{"AUC": 0.91, "Accuracy": 0.85, "Precision": 0.8, "Recall": 0.75, "F1": 0.77}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	store := NewMetricsStore(path)
	current, err := store.Current()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if current["AUC"] != 0.91 {
		t.Fatalf("unexpected AUC: %v", current["AUC"])
	}
}

func TestMetricsStoreCopyIsolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")
	if err := os.WriteFile(path, []byte(`{"AUC": 0.5}`), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	store := NewMetricsStore(path)
	first, err := store.Current()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first["AUC"] = 0

	second, _ := store.Current()
	if second["AUC"] != 0.5 {
		t.Fatal("Current must return a copy, not the shared document")
	}
}
