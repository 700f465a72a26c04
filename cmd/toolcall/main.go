// Package main provides a CLI command for invoking one tool call through
// the gate, so policy wiring can be verified against a live dependency.
// Usage: toolcall <dependency> <operation> [--args JSON] [--key K] [--repeat N] [--output json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"toolgate/internal/config"
	"toolgate/internal/domain/invocation"
	"toolgate/internal/handler/http/respond"
	"toolgate/internal/infra/provider"
	"toolgate/internal/usecase/invoke"
)

// CallOutput represents the JSON output format for one invocation.
type CallOutput struct {
	Dependency   string  `json:"dependency"`
	Operation    string  `json:"operation"`
	Class        string  `json:"class"`
	Attempts     int     `json:"attempts"`
	DurationMS   float64 `json:"duration_ms"`
	CacheHit     bool    `json:"cache_hit"`
	InvocationID string  `json:"invocation_id"`
	Result       any     `json:"result,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// RunOutput represents the JSON output format for the whole run.
type RunOutput struct {
	Calls []CallOutput `json:"calls"`
	Stats invoke.Stats `json:"stats"`
}

// restOptions holds the flags for ad-hoc REST registration.
type restOptions struct {
	baseURL string
	method  string
	path    string
}

func main() {
	// Parse command-line arguments
	var (
		argsJSON     string
		key          string
		timeout      time.Duration
		repeat       int
		outputFormat string
		rest         restOptions
	)

	flag.StringVar(&argsJSON, "args", "", "Invocation arguments as a JSON document")
	flag.StringVar(&key, "key", "", "Idempotency key (empty derives one from the arguments)")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Execution timeout including retries and backoff")
	flag.IntVar(&repeat, "repeat", 1, "Number of times to execute the invocation")
	flag.StringVar(&outputFormat, "output", "text", "Output format: text or json")
	flag.StringVar(&rest.baseURL, "rest-base", "", "Register the dependency as a REST API at this base URL")
	flag.StringVar(&rest.method, "rest-method", http.MethodGet, "HTTP method for --rest-base invocations")
	flag.StringVar(&rest.path, "rest-path", "", "Request path for --rest-base invocations (default \"/<operation>\")")
	flag.Parse()

	// Get dependency and operation from positional arguments
	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Error: Dependency and operation are required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: toolcall <dependency> <operation> [--args JSON] [--key K] [--repeat N] [--output json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  toolcall anthropic_messages complete --args '{\"prompt\":\"ping\"}'")
		fmt.Fprintln(os.Stderr, "  toolcall github_api search --rest-base https://api.github.com --rest-path /search/repositories")
		fmt.Fprintln(os.Stderr, "  toolcall openai_chat complete --args '{\"prompt\":\"ping\"}' --repeat 3 --output json")
		os.Exit(1)
	}
	dependency := args[0]
	operation := args[1]

	// Initialize logger
	logger := initLogger()

	// Load gate policy configuration
	gateConfig, err := config.Load()
	if err != nil {
		logger.Error("failed to load gate configuration", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: Failed to load gate configuration: %v\n", err)
		os.Exit(1)
	}

	// Parse invocation arguments
	var callArgs any
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &callArgs); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Invalid --args JSON: %v\n", err)
			os.Exit(1)
		}
	}

	// Resolve the invoker
	catalog := buildCatalog(logger, dependency, operation, rest)
	invoker, ok := catalog.Lookup(dependency, operation)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: No provider registered for %s/%s\n", dependency, operation)
		if known := catalog.Operations(); len(known) > 0 {
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Registered operations:")
			for _, op := range known {
				fmt.Fprintf(os.Stderr, "  %s\n", op)
			}
		} else {
			fmt.Fprintln(os.Stderr, "Set ANTHROPIC_API_KEY, OPENAI_API_KEY, or --rest-base to register a provider.")
		}
		os.Exit(1)
	}

	// Build the gate with a stats recorder so the run can be summarized
	stats := invoke.NewStatsRecorder()
	gateCfg := gateConfig.Gate()
	gateCfg.Recorder = stats
	gate := invoke.New(gateCfg)

	if repeat < 1 {
		repeat = 1
	}

	logger.Info("invoking through the gate",
		slog.String("dependency", dependency),
		slog.String("operation", operation),
		slog.Int("repeat", repeat),
		slog.Duration("timeout", timeout))

	calls := make([]CallOutput, 0, repeat)
	for i := 0; i < repeat; i++ {
		out := gate.Execute(context.Background(), invocationRequest(dependency, operation, callArgs, key, timeout), invoker)

		call := CallOutput{
			Dependency:   dependency,
			Operation:    operation,
			Class:        out.Class.String(),
			Attempts:     out.Attempts,
			DurationMS:   float64(out.Duration.Microseconds()) / 1000,
			CacheHit:     out.CacheHit,
			InvocationID: out.InvocationID,
			Result:       out.Result,
		}
		if out.Err != nil {
			call.Error = respond.SanitizeError(out.Err)
		}
		calls = append(calls, call)
	}

	// Output results
	if outputFormat == "json" {
		outputJSON(calls, stats.Snapshot())
	} else {
		outputText(calls, stats.Snapshot())
	}
}

// buildCatalog registers the providers reachable from this process. Model
// providers come from API keys in the environment; any other dependency
// can be exercised ad hoc with --rest-base.
func buildCatalog(logger *slog.Logger, dependency, operation string, rest restOptions) *provider.Catalog {
	catalog := provider.NewCatalog()

	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		p := provider.NewAnthropicProvider(provider.AnthropicConfig{APIKey: apiKey})
		catalog.Register(provider.DefaultAnthropicDependency, "complete", p.Invoker("complete"))
		logger.Info("Anthropic provider registered",
			slog.String("dependency", provider.DefaultAnthropicDependency))
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		p := provider.NewOpenAIProvider(provider.OpenAIConfig{APIKey: apiKey})
		catalog.Register(provider.DefaultOpenAIDependency, "complete", p.Invoker("complete"))
		logger.Info("OpenAI provider registered",
			slog.String("dependency", provider.DefaultOpenAIDependency))
	}

	if rest.baseURL != "" {
		client := provider.NewRESTClient(provider.RESTConfig{
			Dependency: dependency,
			BaseURL:    rest.baseURL,
			APIKey:     os.Getenv("TOOLCALL_REST_TOKEN"),
		})
		path := rest.path
		if path == "" {
			path = "/" + operation
		}
		catalog.Register(dependency, operation, client.Invoker(operation, rest.method, path))
		logger.Info("REST provider registered",
			slog.String("dependency", dependency),
			slog.String("base_url", rest.baseURL))
	}

	return catalog
}

// invocationRequest assembles the gate request for one call.
func invocationRequest(dependency, operation string, args any, key string, timeout time.Duration) invocation.Request {
	return invocation.Request{
		Dependency:     dependency,
		Operation:      operation,
		Args:           args,
		IdempotencyKey: key,
		Timeout:        timeout,
	}
}

// outputText prints the invocations in human-readable format.
func outputText(calls []CallOutput, stats invoke.Stats) {
	for i, call := range calls {
		fmt.Printf("Invocation %d/%d: %s/%s\n", i+1, len(calls), call.Dependency, call.Operation)
		fmt.Printf("  Class:    %s\n", call.Class)
		fmt.Printf("  Attempts: %d\n", call.Attempts)
		fmt.Printf("  Duration: %.1fms\n", call.DurationMS)
		if call.CacheHit {
			fmt.Printf("  Cache:    hit\n")
		} else {
			fmt.Printf("  Cache:    miss\n")
		}
		if call.Error != "" {
			fmt.Printf("  Error:    %s\n", call.Error)
		} else if call.Result != nil {
			fmt.Printf("  Result:   %v\n", call.Result)
		}
		fmt.Println()
	}

	fmt.Printf("Gate stats: %d executions, %d attempts, %d rate limit hits, %d cache hits\n",
		stats.Executions, stats.Attempts, stats.RateLimitHits, stats.CacheHits)
}

// outputJSON prints the invocations in JSON format.
func outputJSON(calls []CallOutput, stats invoke.Stats) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(RunOutput{Calls: calls, Stats: stats}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
}

// initLogger initializes and returns a structured logger writing to stderr,
// keeping stdout for command output.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}
