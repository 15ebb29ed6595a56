package llmclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightfieldai/researchcore/internal/apperr"
	"github.com/brightfieldai/researchcore/internal/toolhub"
)

func TestHTTPGenerateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"14"}}]}`))
	}))
	defer srv.Close()

	c := NewHTTP(HTTPConfig{BaseURL: srv.URL, Model: "test-model"}, nil)
	out, err := c.Generate(context.Background(), "2 + 3 * 4", toolhub.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "14", out)
}

func TestHTTPGenerateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer srv.Close()

	c := NewHTTP(HTTPConfig{BaseURL: srv.URL}, nil)
	_, err := c.Generate(context.Background(), "hi", toolhub.GenerateOptions{})
	require.Error(t, err)
	var ae apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindLLMHTTP, ae.Kind())
}

func TestHTTPGenerateParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewHTTP(HTTPConfig{BaseURL: srv.URL}, nil)
	_, err := c.Generate(context.Background(), "hi", toolhub.GenerateOptions{})
	require.Error(t, err)
	var ae apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindLLMParse, ae.Kind())
}

func TestFakeGeneratePlanShape(t *testing.T) {
	f := NewFake()
	out, err := f.Generate(context.Background(), `Respond with a JSON plan: {"steps": [...]}. Question: what time is it?`, toolhub.GenerateOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, `"steps"`)
}

func TestFakeGenerateRouterShape(t *testing.T) {
	f := NewFake()
	out, err := f.Generate(context.Background(), `Classify: {"use_tools": true, ...}`, toolhub.GenerateOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, `"use_tools"`)
}

func TestFakeGenerateRespectsCancellation(t *testing.T) {
	f := NewFake()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Generate(ctx, "anything", toolhub.GenerateOptions{})
	assert.Error(t, err)
}
