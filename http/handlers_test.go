package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pcodrisk/ml"
	"pcodrisk/monitoring"
	"pcodrisk/schema"
)

type fixedModel struct {
	proba float64
	width int
}

func (m fixedModel) Fit([][]float64, []int) error { return nil }
func (m fixedModel) Width() int                   { return m.width }
func (m fixedModel) Save(string) error            { return nil }
func (m fixedModel) Load(string) error            { return nil }
func (m fixedModel) PredictProba(features []float64) (float64, error) {
	if len(features) != m.width {
		return 0, &ml.InferenceError{Want: m.width, Got: len(features)}
	}
	return m.proba, nil
}

func testPipeline(t *testing.T, proba float64) *ml.Pipeline {
	t.Helper()

	groups := ml.ColumnGroups{
		Numeric:     []string{"Age", "BMI"},
		Binary:      []string{"Acne"},
		Categorical: []string{"Diet"},
	}
	rows := []schema.Row{
		{"Age": 24.0, "BMI": 21.0, "Acne": 0.0, "Diet": "Healthy"},
		{"Age": 31.0, "BMI": 29.0, "Acne": 1.0, "Diet": "Unhealthy"},
		{"Age": 27.0, "BMI": 24.0, "Acne": 0.0, "Diet": "Moderate"},
	}
	pre, err := ml.FitPreprocessor(rows, groups)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	s := &schema.Schema{
		FeatureOrder: groups.FeatureOrder(),
		FieldMeta: map[string]schema.FieldMeta{
			"Age":  {Type: "number"},
			"BMI":  {Type: "number"},
			"Acne": {Type: "select", Options: []interface{}{0, 1}},
			"Diet": {Type: "select", Options: []interface{}{"Healthy", "Moderate", "Unhealthy"}},
		},
	}

	pipeline, err := ml.NewPipeline(s, pre, fixedModel{proba: proba, width: pre.Width()}, 0, 0)
	if err != nil {
		t.Fatalf("pipeline construction failed: %v", err)
	}
	return pipeline
}

func testAPI(t *testing.T, proba float64, metricsPath string) *http.ServeMux {
	t.Helper()
	if metricsPath == "" {
		metricsPath = filepath.Join(t.TempDir(), "metrics.json")
	}
	api := &API{
		Pipeline: testPipeline(t, proba),
		Metrics:  monitoring.NewMetricsStore(metricsPath),
	}
	mux := http.NewServeMux()
	api.Register(mux)
	return mux
}

func TestHandleHealth(t *testing.T) {
	mux := testAPI(t, 0.5, "")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHandleSchema(t *testing.T) {
	mux := testAPI(t, 0.5, "")

	req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var doc schema.Schema
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(doc.FeatureOrder) != 4 {
		t.Fatalf("unexpected feature order: %v", doc.FeatureOrder)
	}
}

func TestHandleMetricsNotFound(t *testing.T) {
	mux := testAPI(t, 0.5, "")

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for absent metrics, got %d", w.Code)
	}
}

func TestHandleMetricsServed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")
	if err := os.WriteFile(path, []byte(`{"AUC": 0.9}`), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	mux := testAPI(t, 0.5, path)

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var doc map[string]float64
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if doc["AUC"] != 0.9 {
		t.Fatalf("unexpected AUC: %v", doc["AUC"])
	}
}

func predictBody() string {
	return `{"payload": {"Age": 28, "BMI": 24.5, "Acne": 1, "Diet": "Healthy"}}`
}

func TestHandlePredict(t *testing.T) {
	mux := testAPI(t, 0.82, "")

	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(predictBody()))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp predictResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Probability != 0.82 {
		t.Fatalf("unexpected probability: %v", resp.Probability)
	}
	if resp.RiskLabel != ml.HighRisk {
		t.Fatalf("unexpected label: %q", resp.RiskLabel)
	}
	if resp.InputsUsed["Diet"] != "Healthy" {
		t.Fatalf("inputs_used should echo the payload, got %v", resp.InputsUsed)
	}
}

func TestHandlePredictMissingKey(t *testing.T) {
	mux := testAPI(t, 0.5, "")

	body := `{"payload": {"Age": 28, "BMI": 24.5, "Acne": 1}}`
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing key, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Diet") {
		t.Fatalf("error should name the missing key: %s", w.Body.String())
	}
}

func TestHandlePredictUnseenCategory(t *testing.T) {
	mux := testAPI(t, 0.3, "")

	body := `{"payload": {"Age": 28, "BMI": 24.5, "Acne": 1, "Diet": "Keto"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unseen category must not fail, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandlePredictExplicitNull(t *testing.T) {
	mux := testAPI(t, 0.5, "")

	body := `{"payload": {"Age": null, "BMI": 24.5, "Acne": 1, "Diet": "Healthy"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("explicit null must be imputed, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandlePredictEmptyBody(t *testing.T) {
	mux := testAPI(t, 0.5, "")

	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty payload, got %d", w.Code)
	}
}

func TestMiddlewareChainServesRequest(t *testing.T) {
	mux := testAPI(t, 0.5, "")
	chain := Chain(
		RecoveryMiddleware,
		LoggerMiddleware,
		SecurityHeadersMiddleware,
		CORSMiddleware([]string{"*"}),
		TimeoutMiddleware(2*time.Second),
		RequestSizeMiddleware(1<<20),
	)
	handler := chain(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("missing CORS header")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing security header")
	}
}
