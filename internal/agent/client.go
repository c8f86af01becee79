// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/beaconhq/console-agent/internal/protocol"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration options for the agent client.
type Config struct {
	// BaseURL is the console API base URL (default: http://127.0.0.1:8787).
	BaseURL string

	// ChatPath is the streaming chat endpoint (default: /api/agent/chat).
	ChatPath string

	// Timeout for non-streaming requests such as Ping (default: 10s).
	Timeout time.Duration

	// AuthToken is attached as a bearer token when non-empty.
	AuthToken string

	// RequestsPerMinute throttles outgoing chat calls client-side so an
	// operator cannot trip the backend limiter by accident (default: 30).
	RequestsPerMinute int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "http://127.0.0.1:8787",
		ChatPath:          "/api/agent/chat",
		Timeout:           10 * time.Second,
		RequestsPerMinute: 30,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// ChunkFunc receives each parsed chunk in arrival order. It runs on the
// stream goroutine; a slow callback backpressures the read loop.
type ChunkFunc func(protocol.Chunk)

// Client opens streaming chat calls against the console agent backend.
// It is safe for concurrent use, though only one stream may be in flight
// at a time.
type Client struct {
	config     *Config
	httpClient *http.Client
	limiter    *rate.Limiter
	inFlight   atomic.Bool
}

// NewClient creates a client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8787"
	}
	if config.ChatPath == "" {
		config.ChatPath = "/api/agent/chat"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RequestsPerMinute == 0 {
		config.RequestsPerMinute = 30
	}

	perSecond := rate.Limit(float64(config.RequestsPerMinute) / 60.0)
	return &Client{
		config: config,
		// No Timeout on the streaming client; a chat stream legitimately
		// outlives any fixed deadline. Cancellation comes from the context.
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(perSecond, config.RequestsPerMinute),
	}
}

// Streaming reports whether a stream is currently in flight.
func (c *Client) Streaming() bool {
	return c.inFlight.Load()
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// Ping verifies that the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/health", nil)
	if err != nil {
		return &ClientError{Type: ErrTypeTransport, Message: "failed to create request", Cause: err}
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ErrBackendUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeApplication,
			Message: "unexpected status from backend: " + resp.Status,
		}
	}
	return nil
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// Stream opens the chat stream for req and delivers every parsed chunk to cb
// in arrival order. It blocks until the stream ends, the connection drops,
// or ctx is cancelled.
//
// On transport failure after the stream has opened, a terminal error chunk
// is synthesized through cb before the error returns, so the consumer's
// streaming flag cannot stick true. Cancellation via ctx delivers no error
// chunk and returns ctx.Err().
func (c *Client) Stream(ctx context.Context, req Request, cb ChunkFunc) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrStreamInFlight
	}
	defer c.inFlight.Store(false)

	if !c.limiter.Allow() {
		return ErrRateLimited
	}

	resp, err := c.open(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.consume(ctx, resp.Body, cb)
}

// StreamChan is the channel-shaped variant of Stream. It returns a channel
// that carries every chunk and closes when the stream ends; the error channel
// receives the final result exactly once.
func (c *Client) StreamChan(ctx context.Context, req Request) (<-chan protocol.Chunk, <-chan error) {
	out := make(chan protocol.Chunk, 16)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		errc <- c.Stream(ctx, req, func(chunk protocol.Chunk) {
			select {
			case out <- chunk:
			case <-ctx.Done():
			}
		})
	}()

	return out, errc
}

func (c *Client) open(ctx context.Context, req Request) (*http.Response, error) {
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeProtocol, Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+c.config.ChatPath, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeTransport, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, &ClientError{Type: ErrTypeTransport, Message: "agent backend is unreachable", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.statusError(resp)
	}
	return resp, nil
}

// consume drives the framer over the response body until a terminal
// condition. The error chunk synthesis here is what keeps downstream state
// from sticking in streaming mode when the connection drops.
func (c *Client) consume(ctx context.Context, body io.Reader, cb ChunkFunc) error {
	framer := protocol.NewFramer(body)
	sawTerminal := false

	for {
		if ctx.Err() != nil {
			// User cancellation: no synthesized chunk, the caller finalizes
			// state itself.
			return ctx.Err()
		}

		chunk, err := framer.Next()
		if err != nil {
			if err == io.EOF {
				if sawTerminal {
					return nil
				}
				// The connection closed mid-message. Surface it in-band so
				// the consumer reaches a terminal state.
				cb(protocol.ErrorChunk("connection closed before the response completed"))
				return &ClientError{Type: ErrTypeTransport, Message: "stream ended before completion"}
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			cb(protocol.ErrorChunk("connection lost while streaming"))
			return &ClientError{Type: ErrTypeTransport, Message: "stream read failed", Cause: err}
		}

		if chunk.Type.Terminal() {
			sawTerminal = true
		}
		cb(chunk)
	}
}

func (c *Client) authorize(req *http.Request) {
	if c.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	}
}

func (c *Client) statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}

	// The backend reports errors as {"error": "..."} when it can.
	var payload struct {
		Error string `json:"error"`
	}
	msg := "chat request failed: " + resp.Status
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}

	errType := ErrTypeApplication
	if resp.StatusCode >= 500 {
		errType = ErrTypeTransport
	}
	return &ClientError{Type: errType, Message: msg}
}
