// Package kbclient is the REST client for the external knowledge-base
// service: the orchestrator's one call-out surface for code-property-graph
// ingestion, retrieval, and graph traversal. The service itself is a
// black-box collaborator (spec §6 lists it as out of scope); this package
// only speaks its typed JSON contract.
package kbclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jandamek/jervis/pkg/config"
	"github.com/jandamek/jervis/pkg/ingesterrors"
)

// Client calls the knowledge-base service's REST surface. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// New builds a client from resolved configuration. The API key is read
// once from the environment variable cfg.APIKeyEnv names.
func New(cfg *config.KBClientConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kbclient",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     os.Getenv(cfg.APIKeyEnv),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
	}
}

// doJSON issues method against path with body marshalled as JSON (nil for
// no body), decodes the response into out (nil to discard it), and
// classifies failures into the ingestion error taxonomy: a non-2xx status
// in the 5xx range or a network error is transient and retryable by the
// caller; 4xx is a data error; an open breaker is a gateway error.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return ingesterrors.NewDataError(fmt.Errorf("marshal request body: %w", err))
		}
		reader = bytes.NewReader(raw)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, ingesterrors.NewTransientError(err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, ingesterrors.NewTransientError(fmt.Errorf("read response body: %w", err))
		}

		if resp.StatusCode >= 500 {
			return nil, ingesterrors.NewTransientError(fmt.Errorf("kb service %s %s: %d: %s", method, path, resp.StatusCode, raw))
		}
		if resp.StatusCode >= 400 {
			return nil, ingesterrors.NewDataError(fmt.Errorf("kb service %s %s: %d: %s", method, path, resp.StatusCode, raw))
		}

		return raw, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return ingesterrors.NewGatewayError("kbclient", err)
		}
		return err
	}

	if out == nil {
		return nil
	}
	raw := result.([]byte)
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return ingesterrors.NewDataError(fmt.Errorf("decode response from %s %s: %w", method, path, err))
	}
	return nil
}
