// Command researchcore is the CLI and HTTP process entrypoint for the
// research agent core: it wires Memory, ToolHub, the three agents, the
// WorkflowEngine, and the Orchestrator, then either serves HTTP or answers
// a single question on stdout.
//
// Usage:
//
//	researchcore serve --config config.yaml
//	researchcore ask "what is 2 + 3 * 4?"
//	researchcore version
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/brightfieldai/researchcore/internal/agent"
	"github.com/brightfieldai/researchcore/internal/config"
	"github.com/brightfieldai/researchcore/internal/httpapi"
	"github.com/brightfieldai/researchcore/internal/llmclient"
	"github.com/brightfieldai/researchcore/internal/logging"
	"github.com/brightfieldai/researchcore/internal/memory"
	"github.com/brightfieldai/researchcore/internal/metrics"
	"github.com/brightfieldai/researchcore/internal/orchestrator"
	"github.com/brightfieldai/researchcore/internal/toolhub"
	"github.com/brightfieldai/researchcore/internal/tools"
	"github.com/brightfieldai/researchcore/internal/trace"
	"github.com/brightfieldai/researchcore/internal/workflow"
)

// CLI is the kong command tree: a struct of subcommands plus global flags.
type CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP server."`
	Ask     AskCmd     `cmd:"" help:"Answer a single question and print the result."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Config string `short:"c" help:"Path to a YAML config file." type:"path"`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		version = info.Main.Version
	}
	fmt.Printf("researchcore %s\n", version)
	return nil
}

// ServeCmd starts the HTTP server and runs until an interrupt or term signal
// triggers a graceful shutdown.
type ServeCmd struct {
	Addr            string `help:"HTTP listen address." default:""`
	LLMBaseURL      string `name:"llm-base-url" help:"OpenAI-compatible chat/completions base URL. Empty uses a deterministic built-in LLM."`
	LLMAPIKey       string `name:"llm-api-key" help:"API key for --llm-base-url (defaults to $RESEARCHCORE_LLM_API_KEY)."`
	LLMModel        string `name:"llm-model" help:"Model name sent to --llm-base-url." default:"gpt-4o-mini"`
	ObservabilityOn bool   `name:"observability" help:"Enable OTLP tracing and Prometheus metrics."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}
	if c.ObservabilityOn {
		cfg.Observability.Enabled = true
		cfg.Observability.MetricsEnabled = true
	}

	logging.SetDefault(logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: os.Stderr}))
	logger := logging.L()

	provider, err := trace.InitProvider(ctx, trace.ProviderConfig{
		Enabled:        cfg.Observability.Enabled,
		ServiceName:    "researchcore",
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		MetricsEnabled: cfg.Observability.MetricsEnabled,
	})
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("observability shutdown failed", "error", err)
		}
	}()

	counters := metrics.New(metrics.NewOTelInstruments(provider.Meter))

	llm := buildLLM(*c)

	orch := buildOrchestrator(cfg, llm, counters, provider)

	router := httpapi.NewRouter(orch, counters, time.Now())
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("researchcore serving", "addr", cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// AskCmd runs one question through the pipeline and prints the answer,
// without starting an HTTP listener — useful for local smoke-testing.
type AskCmd struct {
	Question   string `arg:"" help:"The question to ask."`
	LLMBaseURL string `name:"llm-base-url" help:"OpenAI-compatible chat/completions base URL."`
	LLMAPIKey  string `name:"llm-api-key" help:"API key for --llm-base-url."`
	LLMModel   string `name:"llm-model" help:"Model name sent to --llm-base-url." default:"gpt-4o-mini"`
	Detailed   bool   `help:"Print plan, step results, and findings too."`
}

func (c *AskCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.SetDefault(logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: os.Stderr}))

	llm := buildLLM(ServeCmd{LLMBaseURL: c.LLMBaseURL, LLMAPIKey: c.LLMAPIKey, LLMModel: c.LLMModel})
	counters := metrics.New(nil)
	orch := buildOrchestrator(cfg, llm, counters, nil)

	resp := orch.ProcessTask(context.Background(), c.Question, httpapi.NewRequestID())
	if c.Detailed {
		fmt.Printf("success: %v\nanswer: %s\nconfidence: %.2f\nerrors: %v\n", resp.Success, resp.Answer, resp.Confidence, resp.Errors)
		return nil
	}
	fmt.Println(resp.Answer)
	return nil
}

// buildLLM picks the HTTP LLM client when a base URL is configured, and
// the deterministic Fake otherwise — the Fake is the zero-config default
// so `researchcore serve`/`ask` run without any external model endpoint.
func buildLLM(c ServeCmd) agent.LLM {
	if c.LLMBaseURL == "" {
		return llmclient.NewFake()
	}
	apiKey := c.LLMAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("RESEARCHCORE_LLM_API_KEY")
	}
	return llmclient.NewHTTP(llmclient.HTTPConfig{BaseURL: c.LLMBaseURL, APIKey: apiKey, Model: c.LLMModel}, nil)
}

// cachedTimeoutSeconds resolves cfg.Tools.Timeout at most once per ttl, so a
// busy ToolHub reads the config value rarely rather than once per tool
// call, while still picking up a config reload within ttl of it happening.
func cachedTimeoutSeconds(cfg *config.Config, ttl time.Duration) func() float64 {
	var mu sync.Mutex
	var cached float64
	var cachedAt time.Time
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		if time.Since(cachedAt) < ttl {
			return cached
		}
		cached = cfg.Tools.Timeout.Seconds()
		cachedAt = time.Now()
		return cached
	}
}

// buildOrchestrator constructs every component bottom-up: Memory and
// ToolHub first (leaf state), then the three agents over a shared Hub
// handle, then the WorkflowEngine, then the Orchestrator itself. provider
// may be nil (no tracing).
func buildOrchestrator(cfg *config.Config, llm agent.LLM, counters *metrics.Counters, provider *trace.Provider) *orchestrator.Orchestrator {
	mem := memory.New(cfg.Memory.ShortTermSize)

	hub := toolhub.New(cachedTimeoutSeconds(cfg, 60*time.Second))
	hub.Register(toolhub.Candidate{Name: "calculate", Source: toolhub.SourceTools, Priority: toolhub.PriorityTools, Tool: tools.NewCalculator()})
	hub.Register(toolhub.Candidate{Name: "get_time", Source: toolhub.SourceTools, Priority: toolhub.PriorityTools, Tool: tools.NewClock()})
	hub.Register(toolhub.Candidate{Name: "search_web", Source: toolhub.SourceTools, Priority: toolhub.PriorityTools, Tool: tools.NewSearchWeb()})
	hub.Register(toolhub.Candidate{Name: "advanced_web_search", Source: toolhub.SourceSkills, Priority: toolhub.PrioritySkills, Tool: tools.NewAdvancedWebSearch()})
	hub.Register(toolhub.Candidate{Name: "get_conversation_history", Source: toolhub.SourceTools, Priority: toolhub.PriorityTools, Tool: tools.NewConversationHistory(mem)})

	planner := agent.NewPlanningAgent(llm)
	planner.SetAvailableTools(hub.ToolNames())
	executor := agent.NewExecutionAgent(hub, llm, cfg.Tools.MaxRetries)
	verifier := agent.NewVerificationAgent()
	engine := workflow.New(planner, executor, verifier, llm, true)

	router := agent.NewTaskRouter()

	var traceBuilder func(requestID string) trace.Tracer
	obsCfg := cfg.Observability
	if obsCfg.Enabled {
		var tracer oteltrace.Tracer
		if provider != nil {
			tracer = provider.Tracer
		}
		traceBuilder = func(requestID string) trace.Tracer {
			return trace.New(trace.Config{MaxEvents: obsCfg.MaxEvents, MaxPreview: obsCfg.MaxPreview}, requestID, tracer)
		}
	}

	return orchestrator.New(cfg, mem, hub, engine, router, llm, counters, traceBuilder)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli, kong.Name("researchcore"), kong.Description("Research Agent Core: multi-agent question answering service."))
	if err := ctx.Run(&cli); err != nil {
		slog.Error("researchcore failed", "error", err)
		os.Exit(1)
	}
}
