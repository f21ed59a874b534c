package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mandalnilabja/drawgate/internal/extract"
	"github.com/mandalnilabja/drawgate/internal/provider"
	"github.com/mandalnilabja/drawgate/internal/types"
)

// AuthMode selects how the credential is attached to the request.
type AuthMode string

const (
	// AuthHeader sends the credential in the x-goog-api-key header.
	AuthHeader AuthMode = "header"
	// AuthQuery sends the credential as the key query parameter.
	AuthQuery AuthMode = "query"

	// APIKeyHeader is the credential header name.
	APIKeyHeader = "x-goog-api-key"
	// APIKeyParam is the credential query parameter name.
	APIKeyParam = "key"
)

// DefaultEndpoint is used when no endpoint is configured.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash-exp:generateContent"

// DefaultTimeout bounds one provider call.
const DefaultTimeout = 60 * time.Second

// DefaultMaxResponseBytes caps the provider reply size.
const DefaultMaxResponseBytes int64 = 64 << 20

const diagnosticBytes = 2000

// Config configures a Client. Zero values select the defaults.
type Config struct {
	Endpoint         string
	Auth             AuthMode
	Timeout          time.Duration
	MaxResponseBytes int64

	// Transport overrides the HTTP transport, for tests.
	Transport http.RoundTripper
}

// Client sends generateContent requests. It never retries.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Auth == "" {
		cfg.Auth = AuthHeader
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = DefaultMaxResponseBytes
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
	}
}

// Endpoint returns the configured endpoint.
func (c *Client) Endpoint() string {
	return c.cfg.Endpoint
}

// Send posts req with credential attached by the configured mechanism.
// Non-2xx replies are KindProviderRejected; network failures and
// timeouts are KindTransport.
func (c *Client) Send(ctx context.Context, req *Request, credential string) (*provider.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, types.NewError(types.KindInternal, "failed to encode provider request", err)
	}

	target, err := c.targetURL(credential)
	if err != nil {
		return nil, types.NewError(types.KindInternal, "invalid provider endpoint", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.KindInternal, "failed to create provider request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.Auth == AuthHeader {
		httpReq.Header.Set(APIKeyHeader, credential)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, transportError("provider request failed", c.redact(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxResponseBytes+1))
	if err != nil {
		return nil, transportError("failed to read provider response", c.redact(err))
	}
	if int64(len(body)) > c.cfg.MaxResponseBytes {
		return nil, types.NewError(types.KindTransport, "provider response too large", nil)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &types.Error{
			Kind:           types.KindProviderRejected,
			Message:        fmt.Sprintf("provider rejected the request with status %d", resp.StatusCode),
			UpstreamStatus: resp.StatusCode,
			Diagnostic:     rejectionDiagnostic(body),
		}
	}

	return &provider.Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}

func (c *Client) targetURL(credential string) (string, error) {
	if c.cfg.Auth != AuthQuery {
		return c.cfg.Endpoint, nil
	}
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(APIKeyParam, credential)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redact replaces the request URL inside err, which carries the credential
// in query auth mode, with the bare endpoint.
func (c *Client) redact(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	clean := *urlErr
	clean.URL = stripQuery(c.cfg.Endpoint)
	return &clean
}

func stripQuery(endpoint string) string {
	if i := strings.IndexAny(endpoint, "?#"); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}

func transportError(msg string, err error) *types.Error {
	e := types.NewError(types.KindTransport, msg, err)
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		e.Timeout = true
		e.Message = "provider request timed out"
	}
	return e
}

// rejectionDiagnostic prefers the provider's own error message over the raw body.
func rejectionDiagnostic(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() && msg.String() != "" {
		return extract.Snippet([]byte(msg.String()), diagnosticBytes)
	}
	return extract.Snippet(body, diagnosticBytes)
}

// BlockReason returns promptFeedback.blockReason from a successful reply, if any.
func BlockReason(body []byte) string {
	return gjson.GetBytes(body, "promptFeedback.blockReason").String()
}
