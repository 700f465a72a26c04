package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"toolgate/internal/domain/invocation"
)

// DefaultAnthropicDependency names Anthropic calls in limiter, breaker, and
// metric state when the config does not override it.
const DefaultAnthropicDependency = "anthropic_messages"

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	// Dependency is the gate-level name stamped onto produced errors.
	// Empty means DefaultAnthropicDependency.
	Dependency string

	// APIKey authenticates against the Anthropic API.
	APIKey string

	// Model is the model identifier. Empty means the current default.
	Model string

	// MaxTokens bounds the response length. Zero means 1024.
	MaxTokens int
}

// AnthropicProvider produces model completions through the Anthropic SDK and
// normalizes SDK failures into *invocation.ProviderError so the gate can
// classify overload and rate-limit responses.
type AnthropicProvider struct {
	client anthropic.Client
	config AnthropicConfig
}

// NewAnthropicProvider creates a provider for the configured model.
func NewAnthropicProvider(config AnthropicConfig) *AnthropicProvider {
	if config.Dependency == "" {
		config.Dependency = DefaultAnthropicDependency
	}
	if config.Model == "" {
		config.Model = "claude-sonnet-4-5-20250929"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1024
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(config.APIKey)),
		config: config,
	}
}

// Invoker adapts Complete to the gate's Invoker contract for the given
// operation name.
func (p *AnthropicProvider) Invoker(operation string) invocation.Invoker {
	return func(ctx context.Context, args any) (any, error) {
		prompt, err := promptFromArgs(args)
		if err != nil {
			return nil, err
		}
		return p.complete(ctx, operation, prompt)
	}
}

// Complete sends one user prompt and returns the model's text response.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return p.complete(ctx, "complete", prompt)
}

func (p *AnthropicProvider) complete(ctx context.Context, operation, prompt string) (string, error) {
	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: int64(p.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		return "", NormalizeAnthropicError(p.config.Dependency, operation, err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("anthropic api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("anthropic api returned unexpected response type")
	}
	return textBlock.Text, nil
}

// NormalizeAnthropicError converts an Anthropic SDK failure into a
// *invocation.ProviderError. API errors keep their status code and response
// headers, so Retry-After values on 429s survive normalization; the error
// name follows Anthropic's documented status-to-type mapping. Transport
// failures below the HTTP layer pass through with no status.
func NormalizeAnthropicError(dependency, operation string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return &invocation.ProviderError{
			Dependency: dependency,
			Operation:  operation,
			Err:        err,
		}
	}

	var header http.Header
	if apiErr.Response != nil {
		header = apiErr.Response.Header.Clone()
	}

	return &invocation.ProviderError{
		Dependency: dependency,
		Operation:  operation,
		Name:       anthropicErrorName(apiErr.StatusCode),
		StatusCode: apiErr.StatusCode,
		Header:     header,
		Err:        err,
	}
}

// anthropicErrorName maps an HTTP status onto the error type names the
// Anthropic API documents for it.
func anthropicErrorName(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "invalid_request_error"
	case http.StatusUnauthorized:
		return "authentication_error"
	case http.StatusForbidden:
		return "permission_error"
	case http.StatusNotFound:
		return "not_found_error"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusTooManyRequests:
		return "rate_limit_error"
	case http.StatusInternalServerError:
		return "api_error"
	case 529:
		return "overloaded_error"
	default:
		return ""
	}
}
