package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"toolgate/internal/domain/invocation"
)

const (
	// defaultRESTTimeout bounds a single HTTP round trip. The gate's request
	// timeout still governs the whole execution including retries.
	defaultRESTTimeout = 30 * time.Second

	// defaultMaxBodySize caps response bodies to prevent memory exhaustion.
	defaultMaxBodySize = 4 << 20 // 4 MiB

	defaultUserAgent = "toolgate/1.0"
)

// RESTConfig configures a RESTClient.
type RESTConfig struct {
	// Dependency is the gate-level name stamped onto produced errors,
	// e.g. "github_search" or "crm_contacts".
	Dependency string

	// BaseURL is the API root; request paths are resolved against it.
	BaseURL string

	// APIKey, when non-empty, is sent as a bearer token.
	APIKey string

	// Timeout bounds one HTTP round trip. Zero means defaultRESTTimeout.
	Timeout time.Duration

	// MaxBodySize caps response bodies. Zero means defaultMaxBodySize.
	MaxBodySize int64

	// UserAgent overrides the default User-Agent header.
	UserAgent string
}

// RESTClient executes JSON requests against one HTTP dependency and converts
// failures into *invocation.ProviderError, preserving the status code, the
// response headers, and the provider's error name so classification can see
// every throttling signal the dependency sends.
//
// Thread safety: RESTClient is safe for concurrent use.
type RESTClient struct {
	config RESTConfig
	client *http.Client
}

// NewRESTClient creates a RESTClient for the configured dependency.
func NewRESTClient(config RESTConfig) *RESTClient {
	if config.Timeout <= 0 {
		config.Timeout = defaultRESTTimeout
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = defaultMaxBodySize
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}

	return &RESTClient{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
		},
	}
}

// Invoker adapts one route to the gate's Invoker contract. The invocation
// arguments become the request payload per Do.
func (c *RESTClient) Invoker(operation, method, path string) invocation.Invoker {
	return func(ctx context.Context, args any) (any, error) {
		return c.Do(ctx, operation, method, path, args)
	}
}

// Do executes one request and decodes the JSON response. Arguments of type
// url.Values are appended to the query string; nil arguments send no body;
// anything else is JSON-encoded as the request body. Non-2xx responses and
// transport failures return a *invocation.ProviderError.
func (c *RESTClient) Do(ctx context.Context, operation, method, path string, args any) (any, error) {
	target, body, err := c.buildTarget(path, args)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s request: %v", invocation.ErrInvalidRequest, operation, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &invocation.ProviderError{
			Dependency: c.config.Dependency,
			Operation:  operation,
			Err:        err,
		}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := c.readBody(resp.Body)
	if err != nil {
		return nil, &invocation.ProviderError{
			Dependency: c.config.Dependency,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Err:        err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		name, message := parseErrorEnvelope(payload)
		cause := fmt.Errorf("unexpected status %s", resp.Status)
		if message != "" {
			cause = errors.New(message)
		}
		return nil, &invocation.ProviderError{
			Dependency: c.config.Dependency,
			Operation:  operation,
			Name:       name,
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Err:        cause,
		}
	}

	return decodeResult(payload)
}

// buildTarget resolves the request URL and encodes the argument payload.
func (c *RESTClient) buildTarget(path string, args any) (string, io.Reader, error) {
	target := strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")

	switch v := args.(type) {
	case nil:
		return target, nil, nil
	case url.Values:
		if len(v) > 0 {
			target += "?" + v.Encode()
		}
		return target, nil, nil
	default:
		encoded, err := json.Marshal(args)
		if err != nil {
			return "", nil, fmt.Errorf("%w: encode request arguments: %v", invocation.ErrInvalidRequest, err)
		}
		return target, bytes.NewReader(encoded), nil
	}
}

// readBody reads the response body under the configured size limit.
func (c *RESTClient) readBody(body io.Reader) ([]byte, error) {
	limited := io.LimitReader(body, c.config.MaxBodySize+1)
	payload, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(payload)) > c.config.MaxBodySize {
		return nil, fmt.Errorf("response body exceeds %d byte limit", c.config.MaxBodySize)
	}
	return payload, nil
}

// decodeResult interprets a successful response body. Empty bodies decode to
// nil; non-JSON bodies are returned as raw text.
func decodeResult(payload []byte) (any, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(payload, &result); err != nil {
		return string(payload), nil
	}
	return result, nil
}

// errorEnvelope covers the common JSON shapes provider APIs use to report
// failures, including nested {"error": {...}} objects and flat
// {"message": ..., "code": ...} bodies.
type errorEnvelope struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

type errorObject struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// parseErrorEnvelope extracts the provider's error name and human message
// from a failure body. Either value may be empty when the body does not
// match a known shape.
func parseErrorEnvelope(payload []byte) (name, message string) {
	var envelope errorEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return "", ""
	}

	if len(envelope.Error) > 0 {
		var obj errorObject
		if err := json.Unmarshal(envelope.Error, &obj); err == nil {
			name = firstNonEmpty(obj.Type, obj.Code, obj.Name)
			message = obj.Message
		} else {
			// Some APIs put a bare identifier string under "error".
			var s string
			if err := json.Unmarshal(envelope.Error, &s); err == nil {
				name = s
			}
		}
	}

	if name == "" {
		name = envelope.Code
	}
	if message == "" {
		message = envelope.Message
	}
	return name, message
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
