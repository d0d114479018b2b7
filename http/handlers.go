package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"pcodrisk/db"
	"pcodrisk/ml"
	"pcodrisk/monitoring"
	"pcodrisk/schema"
)

// API holds the read-only serving handles constructed at startup and
// injected into request handling.
type API struct {
	Pipeline *ml.Pipeline
	Metrics  *monitoring.MetricsStore
	Hub      *monitoring.Hub

	// LogPredictions enables the SQLite prediction log.
	LogPredictions bool
}

// Register wires the API routes onto the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /", a.handleRoot)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/schema", a.handleSchema)
	mux.HandleFunc("GET /api/metrics", a.handleMetrics)
	mux.HandleFunc("POST /api/predict", a.handlePredict)
	mux.HandleFunc("GET /api/predictions", a.handlePredictions)
	if a.Hub != nil {
		mux.HandleFunc("GET /api/ws/predictions", a.Hub.ServeWS)
	}
}

func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "PCOD probability API is running"})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Pipeline.Schema())
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	doc, err := a.Metrics.Current()
	if err != nil {
		if errors.Is(err, monitoring.ErrMetricsUnavailable) {
			writeError(w, http.StatusNotFound, "metrics not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type predictRequest struct {
	Payload map[string]interface{} `json:"payload"`
}

type predictResponse struct {
	Probability float64                `json:"probability"`
	RiskLabel   string                 `json:"risk_label"`
	InputsUsed  map[string]interface{} `json:"inputs_used"`
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Payload) == 0 {
		writeError(w, http.StatusBadRequest, "payload is required")
		return
	}

	result, err := a.Pipeline.Predict(req.Payload)
	if err != nil {
		var mismatch *schema.MismatchError
		if errors.As(err, &mismatch) {
			writeError(w, http.StatusBadRequest, mismatch.Error())
			return
		}
		zap.S().Errorw("prediction failed", "id", GetRequestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	resp := predictResponse{
		Probability: result.Probability,
		RiskLabel:   result.RiskLabel,
		InputsUsed:  req.Payload,
	}

	if a.LogPredictions {
		if raw, err := json.Marshal(req.Payload); err == nil {
			if err := db.SavePrediction(raw, result.Probability, result.RiskLabel); err != nil {
				zap.S().Warnw("prediction log write failed", "error", err)
			}
		}
	}
	if a.Hub != nil {
		a.Hub.Publish("prediction", resp)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handlePredictions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := db.QueryPredictions(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": records})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"error": detail})
}
