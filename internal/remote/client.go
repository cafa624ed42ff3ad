// Package remote talks to the budgeting service's JSON API.
//
// Client is the raw transport: one authenticated GET per endpoint, returning
// the body verbatim. API layers the response cache on top and decodes listing
// envelopes record by record into domain snapshots.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public API root
const DefaultBaseURL = "https://api.ynab.com/v1"

// TransportError reports a failed remote call. StatusCode is 0 when no
// response was received.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client performs authenticated GETs against the API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a client. A zero timeout means no timeout.
func NewClient(baseURL, token string, timeout time.Duration, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "remote").Logger(),
	}
}

// Fetch GETs baseURL+endpoint and returns the body. Any non-2xx status,
// network failure or non-JSON body is a *TransportError.
func (c *Client) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("fetched")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: errorDetail(resp.Status, body)}
	}
	if !json.Valid(body) {
		return nil, &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("response is not JSON")}
	}
	return body, nil
}

// errorDetail extracts the API's error detail when the body carries one
func errorDetail(status string, body []byte) error {
	var envelope struct {
		Error struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Detail string `json:"detail"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Name != "" {
		return fmt.Errorf("%s: %s", envelope.Error.Name, envelope.Error.Detail)
	}
	return fmt.Errorf("unexpected status %s", status)
}
