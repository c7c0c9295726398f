// Package completion talks to a text-completion HTTP service.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/banshee-data/scene.report/internal/httputil"
	"github.com/banshee-data/scene.report/internal/monitoring"
)

// ErrEmptyCompletion is returned when the service answers 200 without
// any content.
var ErrEmptyCompletion = errors.New("completion service returned no content")

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// Request is the JSON body POSTed to the service.
type Request struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Response is the subset of the service's reply that is used.
type Response struct {
	Content string `json:"content"`
}

// StatusError reports a non-200 answer.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion service returned %d: %s", e.StatusCode, e.Body)
}

// Client posts prompts to a completion endpoint.
type Client struct {
	URL         string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	http httputil.HTTPClient
}

// NewClient returns a client for url. A nil httpClient uses
// http.DefaultClient.
func NewClient(url string, httpClient httputil.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = httputil.NewStandardClient(nil)
	}
	return &Client{
		URL:         url,
		MaxTokens:   1000,
		Temperature: 0.7,
		http:        httpClient,
	}
}

// Complete sends prompt and returns the generated text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	temp := c.Temperature
	return c.do(ctx, Request{Prompt: prompt, MaxTokens: c.MaxTokens, Temperature: &temp})
}

// Ping sends a short prompt without a temperature and returns the reply.
// It is used to check the service is reachable.
func (c *Client) Ping(ctx context.Context, prompt string) (string, error) {
	return c.do(ctx, Request{Prompt: prompt, MaxTokens: 100})
}

func (c *Client) do(ctx context.Context, req Request) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	defer monitoring.Timed("completion request")()

	resp, err := httputil.PostJSON(ctx, c.http, c.URL, req)
	if err != nil {
		return "", fmt.Errorf("completion request to %s: %w", c.URL, err)
	}
	body, err := httputil.ReadBody(resp, maxResponseBytes)
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if strings.TrimSpace(out.Content) == "" {
		return "", ErrEmptyCompletion
	}
	monitoring.Debugf("completion: %d prompt bytes, %d content bytes", len(req.Prompt), len(out.Content))
	return out.Content, nil
}
