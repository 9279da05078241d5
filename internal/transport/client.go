// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport provides the HTTP client for streaming model responses.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the transport client.
// Network failures, non-2xx responses, and malformed stream framing all
// normalize to this single type; retry and fallback policy live in the
// session controller, never here.
type ClientError struct {
	Type    ErrorType
	Message string
	Status  int // HTTP status code, 0 when not applicable
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeHTTPStatus
	ErrTypeMalformedStream
	ErrTypeCanceled
)

// Sentinel errors for easy checking.
var (
	ErrTimeout  = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrCanceled = &ClientError{Type: ErrTypeCanceled, Message: "request canceled"}
)

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation.
func IsCanceled(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeCanceled
	}
	return errors.Is(err, ErrCanceled)
}

// StatusCode returns the HTTP status carried by a transport error, or 0.
func StatusCode(err error) int {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Status
	}
	return 0
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// Endpoint identifies which of the two logical backend routes serves a
// request. Primary streams incrementally; Fallback answers with a single
// synthesized JSON response.
type Endpoint int

const (
	EndpointPrimary Endpoint = iota
	EndpointFallback
)

// String returns the endpoint name for display and logging.
func (e Endpoint) String() string {
	if e == EndpointFallback {
		return "fallback"
	}
	return "primary"
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// Message is the wire format for a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one chat completion call. The transport is stateless
// across calls: the full ordered message list is provided every time.
type Request struct {
	Endpoint     Endpoint
	SystemPrompt string
	Messages     []Message
	Mode         string
	ChatID       string
	Preferences  json.RawMessage // opaque userPreferences payload, may be nil
}

// requestBody is the JSON body posted to either endpoint.
type requestBody struct {
	Messages    []Message       `json:"messages"`
	Mode        string          `json:"mode"`
	ChatID      string          `json:"chatId"`
	Preferences json.RawMessage `json:"userPreferences,omitempty"`
}

// fallbackResponse is the single-shot JSON shape of the fallback route.
type fallbackResponse struct {
	Messages []Message `json:"messages"`
}

// Chunk is one incremental piece of assistant text.
type Chunk struct {
	Content string
	Done    bool
	Error   error // set only on channel-based delivery
}

// StreamCallback is called for each chunk received during streaming.
// Callbacks run synchronously in arrival order.
type StreamCallback func(chunk Chunk)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the transport client.
type ClientConfig struct {
	// PrimaryURL is the streaming chat completion route.
	PrimaryURL string

	// FallbackURL is the non-streaming fallback route.
	FallbackURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Timeout bounds the entire request including stream consumption
	// (default: 30s). Exceeding it is a terminal error, same path as a
	// network failure.
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		PrimaryURL:  "http://127.0.0.1:8080/api/chat",
		FallbackURL: "http://127.0.0.1:8080/api/chat/fallback",
		Timeout:     30 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client performs one-shot streaming requests against the model endpoints.
// It holds no per-conversation state and is safe for concurrent use.
type Client struct {
	config *ClientConfig
	log    zerolog.Logger

	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// No client-level timeout: the overall bound is applied via context so
	// that slow streams are cut off mid-read, not just at dial time.
	httpClient *http.Client
}

// NewClient creates a transport client with the given configuration.
func NewClient(config *ClientConfig, log zerolog.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		log:    log.With().Str("component", "transport").Logger(),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// URL returns the configured URL for an endpoint.
func (c *Client) URL(endpoint Endpoint) string {
	if endpoint == EndpointFallback {
		return c.config.FallbackURL
	}
	return c.config.PrimaryURL
}

// =============================================================================
// STREAMING
// =============================================================================

// Stream opens a chat completion request and delivers content incrementally
// through the callback. It blocks until the stream terminates and returns
// nil on normal completion. The caller cancels mid-stream via ctx; partial
// content already delivered stays with the caller (no rollback).
func (c *Client) Stream(ctx context.Context, req Request, callback StreamCallback) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.post(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp)
	}

	if req.Endpoint == EndpointFallback {
		return c.consumeFallback(resp.Body, callback)
	}

	reader := NewStreamReader(resp.Body)
	err = reader.Process(ctx, callback)
	if err != nil {
		return c.normalizeStreamErr(err)
	}
	return nil
}

// StreamChan is a channel adapter around Stream for event-loop consumers.
// The channel is closed when the stream completes; errors arrive as a final
// chunk with the Error field set. Callers must drain the channel until it
// closes, or the producing goroutine leaks.
func (c *Client) StreamChan(ctx context.Context, req Request) <-chan Chunk {
	ch := make(chan Chunk)

	go func() {
		defer close(ch)

		err := c.Stream(ctx, req, func(chunk Chunk) {
			select {
			case ch <- chunk:
			case <-ctx.Done():
			}
		})

		// The terminal error is sent unconditionally: a canceled context
		// still has to surface ErrCanceled so the consumer can tell a stop
		// from a clean completion.
		if err != nil {
			ch <- Chunk{Error: err, Done: true}
		}
	}()

	return ch
}

// post marshals and sends the request body, normalizing dial/write errors.
func (c *Client) post(ctx context.Context, req Request) (*http.Response, error) {
	messages := req.Messages
	if req.SystemPrompt != "" {
		// The routes accept the persona as a leading system message.
		messages = append([]Message{{Role: "system", Content: req.SystemPrompt}}, messages...)
	}

	body, err := json.Marshal(requestBody{
		Messages:    messages,
		Mode:        req.Mode,
		ChatID:      req.ChatID,
		Preferences: req.Preferences,
	})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(req.Endpoint), bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		if errors.Is(err, context.Canceled) {
			return nil, ErrCanceled
		}
		return nil, &ClientError{Type: ErrTypeConnection, Message: "request failed", Cause: err}
	}

	return resp, nil
}

// statusError drains the error body and builds a ClientError from a non-2xx
// response. Routes report failures as {"error": "..."} JSON.
func (c *Client) statusError(resp *http.Response) error {
	defer io.Copy(io.Discard, resp.Body)

	var apiErr struct {
		Error string `json:"error"`
	}
	message := "request failed: " + resp.Status
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&apiErr); err == nil && apiErr.Error != "" {
		message = apiErr.Error
	}

	c.log.Warn().Int("status", resp.StatusCode).Msg("endpoint returned error status")

	return &ClientError{
		Type:    ErrTypeHTTPStatus,
		Message: message,
		Status:  resp.StatusCode,
	}
}

// consumeFallback decodes the single-shot fallback response and presents it
// uniformly as a stream of length one.
func (c *Client) consumeFallback(body io.Reader, callback StreamCallback) error {
	var resp fallbackResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return &ClientError{Type: ErrTypeMalformedStream, Message: "failed to decode fallback response", Cause: err}
	}

	for _, msg := range resp.Messages {
		if msg.Role == "assistant" && msg.Content != "" {
			callback(Chunk{Content: msg.Content})
		}
	}

	callback(Chunk{Done: true})
	return nil
}

// normalizeStreamErr maps context and framing errors from stream consumption
// into the ClientError taxonomy.
func (c *Client) normalizeStreamErr(err error) error {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrCanceled
	}
	return &ClientError{Type: ErrTypeConnection, Message: "stream interrupted", Cause: err}
}
