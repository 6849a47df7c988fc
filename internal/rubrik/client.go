package rubrik

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/logger"
)

// API path prefixes.
const (
	V1       = "v1"
	V2       = "v2"
	Internal = "internal"
)

const maxErrorBody = 512

// tokenSource supplies the bearer token for a request.
type tokenSource interface {
	Token(ctx context.Context) (string, error)
}

type staticToken string

func (t staticToken) Token(context.Context) (string, error) { return string(t), nil }

// Client performs JSON calls against the appliance REST API.
// Requests are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     tokenSource
	username   string
	password   string
	requestID  string
	userAgent  string
	log        logger.Logger
}

// ClientOptions configure transport behaviour.
type ClientOptions struct {
	Insecure  bool
	Timeout   time.Duration
	RequestID string
	UserAgent string
	Logger    logger.Logger
}

// NewClient builds a client for endpoint. An endpoint without scheme is
// reached over https.
func NewClient(endpoint string, opts ClientOptions) *Client {
	base := strings.TrimRight(endpoint, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // --insecure
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNullLogger()
	}

	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		requestID:  opts.RequestID,
		userAgent:  opts.UserAgent,
		log:        log,
	}
}

// BaseURL returns the normalized endpoint URL.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Get(ctx context.Context, version, path string, out any) error {
	return c.Do(ctx, http.MethodGet, version, path, nil, out)
}

func (c *Client) Post(ctx context.Context, version, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, version, path, body, out)
}

func (c *Client) Patch(ctx context.Context, version, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, version, path, body, out)
}

func (c *Client) Delete(ctx context.Context, version, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, version, path, nil, out)
}

// Do sends one request to /api/{version}{path}. A nil body sends no payload;
// a nil out discards the response body.
func (c *Client) Do(ctx context.Context, method, version, path string, body, out any) error {
	return c.do(ctx, method, version, path, body, out, true)
}

func (c *Client) do(ctx context.Context, method, version, path string, body, out any, authenticate bool) error {
	endpoint := fmt.Sprintf("%s/api/%s%s", c.baseURL, version, path)
	call := method + " /api/" + version + path

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errs.RequestFailed("encode", err, "%s: failed to encode request", call)
		}
		c.log.Debug("Request payload", "call", call, "body", string(payload))
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return errs.RequestFailed("encode", err, "%s: failed to build request", call)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.requestID != "" {
		req.Header.Set("X-Request-Id", c.requestID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if authenticate {
		if err := c.authorize(ctx, req); err != nil {
			return err
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.RequestFailed("network", err, "%s", call)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.RequestFailed("network", err, "%s: failed to read response", call)
	}
	c.log.Debug("Response", "call", call, "status", resp.StatusCode, "elapsed", time.Since(start).String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errs.RequestFailed("http", nil, "%s: HTTP %d - %s", call, resp.StatusCode, errorDetail(respBody))
	}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return errs.RequestFailed("decode", err, "%s: failed to decode response", call)
		}
	}
	return nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return nil
}

// errorDetail extracts the appliance "message" field when present.
func errorDetail(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > maxErrorBody {
		detail = detail[:maxErrorBody] + "..."
	}
	return detail
}
