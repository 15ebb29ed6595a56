package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brightfieldai/researchcore/internal/apperr"
	"github.com/brightfieldai/researchcore/internal/toolhub"
)

// HTTPConfig configures the OpenAI-compatible chat/completions client.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// HTTP is a thin client for any OpenAI-compatible /chat/completions
// endpoint (OpenAI itself, and the many local/self-hosted servers that
// mirror its wire format). It classifies failures into apperr's LLM error
// kinds (timeout, connection, http, parse) so callers can tell a retryable
// network hiccup from a terminal bad-request.
type HTTP struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTP builds an HTTP LLM client. client may be nil, in which case a
// client with a generous default timeout is used (per-call timeouts still
// come from GenerateOptions/ctx).
func NewHTTP(cfg HTTPConfig, client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTP{cfg: cfg, client: client}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate implements toolhub.LLM/agent.LLM.
func (h *HTTP) Generate(ctx context.Context, prompt string, opts toolhub.GenerateOptions) (string, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:       h.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", apperr.LLM(apperr.KindLLMParse, "llmclient.Generate", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", apperr.LLM(apperr.KindLLMConnection, "llmclient.Generate", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", apperr.LLM(apperr.KindLLMTimeout, "llmclient.Generate", err)
		}
		return "", apperr.LLM(apperr.KindLLMConnection, "llmclient.Generate", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.LLM(apperr.KindLLMConnection, "llmclient.Generate", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apperr.LLM(apperr.KindLLMHTTP, "llmclient.Generate", fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", apperr.LLM(apperr.KindLLMParse, "llmclient.Generate", err)
	}
	if parsed.Error != nil {
		return "", apperr.LLM(apperr.KindLLMHTTP, "llmclient.Generate", errors.New(parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", apperr.LLM(apperr.KindLLMParse, "llmclient.Generate", errors.New("no choices in response"))
	}
	return parsed.Choices[0].Message.Content, nil
}
