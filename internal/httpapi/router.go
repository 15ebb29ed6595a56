// Package httpapi serves the research agent core's HTTP surface: POST
// /api/v1/predict, POST /api/v1/predict/detailed, GET /health, and
// GET /metrics, on a chi.Router.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brightfieldai/researchcore/internal/logging"
	"github.com/brightfieldai/researchcore/internal/metrics"
	"github.com/brightfieldai/researchcore/internal/orchestrator"
)

// NewRouter builds the chi.Router serving predict/predict-detailed/health.
// counters may be nil (metrics disabled).
func NewRouter(orch *orchestrator.Orchestrator, counters *metrics.Counters, startedAt time.Time) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	h := &handlers{orch: orch, counters: counters, startedAt: startedAt}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/predict", h.predict)
		r.Post("/predict/detailed", h.predictDetailed)
	})
	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type handlers struct {
	orch      *orchestrator.Orchestrator
	counters  *metrics.Counters
	startedAt time.Time
}

type predictRequest struct {
	Question string `json:"question"`
}

type predictResponse struct {
	Answer string `json:"answer"`
}

type detailedResponse struct {
	Answer     string                `json:"answer"`
	Confidence float64               `json:"confidence"`
	Reasoning  string                `json:"reasoning,omitempty"`
	Success    bool                  `json:"success"`
	Errors     []string              `json:"errors,omitempty"`
	Trace      json.RawMessage       `json:"trace,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// predict implements POST /api/v1/predict: a minimal {"answer": string}
// response, with status 200/400/504/500 depending on outcome.
func (h *handlers) predict(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	resp := h.orch.ProcessTask(r.Context(), req.Question, middleware.GetReqID(r.Context()))
	if !resp.Success && resp.Answer == "" {
		writeJSON(w, statusForErrors(resp.Errors), errorResponse{Error: firstOr(resp.Errors, "internal")})
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{Answer: resp.Answer})
}

// predictDetailed implements POST /api/v1/predict/detailed.
func (h *handlers) predictDetailed(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	resp := h.orch.ProcessTask(r.Context(), req.Question, middleware.GetReqID(r.Context()))
	out := detailedResponse{
		Answer:     resp.Answer,
		Confidence: resp.Confidence,
		Reasoning:  resp.Reasoning,
		Success:    resp.Success,
		Errors:     resp.Errors,
	}
	if resp.Trace != nil {
		if raw, err := json.Marshal(resp.Trace); err == nil {
			out.Trace = raw
		}
	}

	status := http.StatusOK
	if !resp.Success {
		status = statusForErrors(resp.Errors)
	}
	writeJSON(w, status, out)
}

// health implements GET /health: a {status, agent_status, timestamp,
// metrics} liveness/readiness report.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":       "ok",
		"agent_status": "ready",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"uptime_s":     time.Since(h.startedAt).Seconds(),
	}
	if h.counters != nil {
		body["metrics"] = h.counters.Snapshot()
	}
	writeJSON(w, http.StatusOK, body)
}

func decodeQuestion(w http.ResponseWriter, r *http.Request) (predictRequest, bool) {
	var req predictRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return req, false
	}
	return req, true
}

func statusForErrors(errs []string) int {
	for _, e := range errs {
		if e == "timeout" {
			return http.StatusGatewayTimeout
		}
		if e == "invalid input" {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func firstOr(errs []string, fallback string) string {
	if len(errs) == 0 {
		return fallback
	}
	return errs[0]
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.L().Debug("http request",
			"method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// NewRequestID returns a fresh request identifier, used when chi's
// middleware.RequestID is bypassed (e.g. the CLI's one-shot `ask` command).
func NewRequestID() string {
	return uuid.New().String()
}
