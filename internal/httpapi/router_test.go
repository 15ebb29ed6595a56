package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightfieldai/researchcore/internal/agent"
	"github.com/brightfieldai/researchcore/internal/config"
	"github.com/brightfieldai/researchcore/internal/memory"
	"github.com/brightfieldai/researchcore/internal/orchestrator"
	"github.com/brightfieldai/researchcore/internal/toolhub"
	"github.com/brightfieldai/researchcore/internal/workflow"
)

func testOrchestrator() *orchestrator.Orchestrator {
	cfg := config.Default()
	cfg.Task.Timeout = 2 * time.Second
	mem := memory.New(50)
	hub := toolhub.New(nil)
	var llm agent.LLM
	planner := agent.NewPlanningAgent(llm)
	executor := agent.NewExecutionAgent(hub, llm, 1)
	verifier := agent.NewVerificationAgent()
	engine := workflow.New(planner, executor, verifier, llm, false)
	router := agent.NewTaskRouter()
	return orchestrator.New(cfg, mem, hub, engine, router, llm, nil, nil)
}

func TestPredictGreetingReturnsAnswer(t *testing.T) {
	r := NewRouter(testOrchestrator(), nil, time.Now())
	body, _ := json.Marshal(map[string]string{"question": "hi"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var out predictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.NotEmpty(t, out.Answer)
}

func TestPredictRejectsInvalidJSON(t *testing.T) {
	r := NewRouter(testOrchestrator(), nil, time.Now())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictRejectsEmptyQuestion(t *testing.T) {
	r := NewRouter(testOrchestrator(), nil, time.Now())
	body, _ := json.Marshal(map[string]string{"question": "   "})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictDetailedReturnsFullShape(t *testing.T) {
	r := NewRouter(testOrchestrator(), nil, time.Now())
	body, _ := json.Marshal(map[string]string{"question": "what can you do"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict/detailed", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var out detailedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.Answer)
}

func TestHealthReportsOK(t *testing.T) {
	r := NewRouter(testOrchestrator(), nil, time.Now())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "ok", out["status"])
}

func TestPredictTimeoutMapsTo504(t *testing.T) {
	cfg := config.Default()
	cfg.Task.Timeout = 20 * time.Millisecond
	mem := memory.New(50)
	hub := toolhub.New(nil)
	llm := &delayedLLM{delay: 200 * time.Millisecond}
	planner := agent.NewPlanningAgent(llm)
	executor := agent.NewExecutionAgent(hub, llm, 0)
	verifier := agent.NewVerificationAgent()
	engine := workflow.New(planner, executor, verifier, llm, false)
	router := agent.NewTaskRouter()
	orch := orchestrator.New(cfg, mem, hub, engine, router, llm, nil, nil)

	r := NewRouter(orch, nil, time.Now())
	body, _ := json.Marshal(map[string]string{"question": "a slow question needing planning"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	r := NewRouter(testOrchestrator(), nil, time.Now())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

type delayedLLM struct{ delay time.Duration }

func (d *delayedLLM) Generate(ctx context.Context, prompt string, opts agent.GenerateOptions) (string, error) {
	select {
	case <-time.After(d.delay):
		return `{"steps":[{"id":1,"description":"x","tool_type":"none","dependencies":[]}]}`, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
