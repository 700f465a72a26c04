package provider

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"toolgate/internal/domain/invocation"
)

// DefaultOpenAIDependency names OpenAI calls in limiter, breaker, and metric
// state when the config does not override it.
const DefaultOpenAIDependency = "openai_chat"

// OpenAIConfig configures an OpenAIProvider.
type OpenAIConfig struct {
	// Dependency is the gate-level name stamped onto produced errors.
	// Empty means DefaultOpenAIDependency.
	Dependency string

	// APIKey authenticates against the OpenAI API.
	APIKey string

	// Model is the chat model identifier. Empty means gpt-3.5-turbo.
	Model string

	// MaxTokens bounds the response length. Zero leaves the API default.
	MaxTokens int
}

// OpenAIProvider produces chat completions through the OpenAI SDK and
// normalizes both its error shapes (parsed API errors and raw request
// failures) into *invocation.ProviderError.
type OpenAIProvider struct {
	client *openai.Client
	config OpenAIConfig
}

// NewOpenAIProvider creates a provider for the configured model.
func NewOpenAIProvider(config OpenAIConfig) *OpenAIProvider {
	if config.Dependency == "" {
		config.Dependency = DefaultOpenAIDependency
	}
	if config.Model == "" {
		config.Model = openai.GPT3Dot5Turbo
	}

	return &OpenAIProvider{
		client: openai.NewClient(config.APIKey),
		config: config,
	}
}

// Invoker adapts Complete to the gate's Invoker contract for the given
// operation name.
func (p *OpenAIProvider) Invoker(operation string) invocation.Invoker {
	return func(ctx context.Context, args any) (any, error) {
		prompt, err := promptFromArgs(args)
		if err != nil {
			return nil, err
		}
		return p.complete(ctx, operation, prompt)
	}
}

// Complete sends one user prompt and returns the model's text response.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return p.complete(ctx, "complete", prompt)
}

func (p *OpenAIProvider) complete(ctx context.Context, operation, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.config.Model,
		MaxTokens: p.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	if err != nil {
		return "", NormalizeOpenAIError(p.config.Dependency, operation, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api returned empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// NormalizeOpenAIError converts an OpenAI SDK failure into a
// *invocation.ProviderError. Parsed API errors contribute their status code
// and error name (the string code when present, the error type otherwise);
// request-level failures keep their status; transport failures pass through
// with no status.
func NormalizeOpenAIError(dependency, operation string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &invocation.ProviderError{
			Dependency: dependency,
			Operation:  operation,
			Name:       openaiErrorName(apiErr),
			StatusCode: apiErr.HTTPStatusCode,
			Err:        err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &invocation.ProviderError{
			Dependency: dependency,
			Operation:  operation,
			StatusCode: reqErr.HTTPStatusCode,
			Err:        err,
		}
	}

	return &invocation.ProviderError{
		Dependency: dependency,
		Operation:  operation,
		Err:        err,
	}
}

// openaiErrorName resolves the provider error name. OpenAI sends a string
// code for most failures (e.g. "rate_limit_exceeded", "context_length_exceeded")
// but omits it on some, where the coarser type field still identifies the
// failure family.
func openaiErrorName(apiErr *openai.APIError) string {
	if code, ok := apiErr.Code.(string); ok && code != "" {
		return code
	}
	return apiErr.Type
}
