// Package cfapi is a minimal Cloudflare v4 API client.
//
// It issues authenticated requests and decodes the standard response
// envelope ({success, errors, messages, result}). Non-2xx responses and
// envelopes with success=false are returned as *APIError. There is no retry.
package cfapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/joeblew999/cfdeploy/internal/config"
)

// Content types used by the Workers endpoints.
const (
	ContentTypeJavaScript = "application/javascript"
	ContentTypeJSON       = "application/json"
)

// Message is an entry of the envelope's errors or messages list.
type Message struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is the Cloudflare response envelope. Result is left raw.
type Response struct {
	Success  bool            `json:"success"`
	Errors   []Message       `json:"errors"`
	Messages []Message       `json:"messages"`
	Result   json.RawMessage `json:"result,omitempty"`
}

// DecodeResult unmarshals the raw result into v.
func (r *Response) DecodeResult(v any) error {
	if len(r.Result) == 0 {
		return fmt.Errorf("response has no result")
	}
	return json.Unmarshal(r.Result, v)
}

// APIError is returned for transport-level HTTP failures and unsuccessful envelopes.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Errors     []Message
	Body       string
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		msgs := make([]string, 0, len(e.Errors))
		for _, m := range e.Errors {
			msgs = append(msgs, fmt.Sprintf("%d: %s", m.Code, m.Message))
		}
		return fmt.Sprintf("cloudflare %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("cloudflare %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Request describes one API call. Path is relative to the base URL.
type Request struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
}

// Client issues authenticated requests against the Cloudflare API.
type Client struct {
	baseURL    string
	creds      config.Credentials
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client using creds for authentication.
func NewClient(creds config.Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(config.APIBaseURL(), "/"),
		creds:      creds,
		httpClient: &http.Client{Timeout: config.DefaultAPITimeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs the request and decodes the envelope.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.baseURL+r.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	c.authorize(req)

	c.log.Debug().Str("method", r.Method).Str("path", r.Path).Int("bytes", len(r.Body)).Msg("cloudflare request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudflare %s %s: %w", r.Method, r.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug().Str("method", r.Method).Str("path", r.Path).Int("status", resp.StatusCode).Msg("cloudflare response")

	var env Response
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || decodeErr != nil || !env.Success {
		return nil, &APIError{
			Method:     r.Method,
			Path:       r.Path,
			StatusCode: resp.StatusCode,
			Errors:     env.Errors,
			Body:       string(raw),
		}
	}

	return &env, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.creds.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.creds.APIToken)
		return
	}
	req.Header.Set("X-Auth-Email", c.creds.AuthEmail)
	req.Header.Set("X-Auth-Key", c.creds.AuthKey)
}
