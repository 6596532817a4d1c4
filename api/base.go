package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// jsonAPI decodes response bodies. Numbers stay json.Number so slots and
// lamport amounts above 2^53 survive untouched.
var jsonAPI = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

var errInvalidJSON = errors.New("body is not valid JSON")

// Object is an untyped JSON object exactly as the service returned it.
type Object = map[string]any

// HistoricalClient queries a historical block/transaction service over HTTP.
// It owns a single *http.Client that is reused for every call, so keep-alive
// connections are shared. It is safe for concurrent use.
type HistoricalClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures a HistoricalClient at construction.
type Option func(*HistoricalClient)

// WithTimeout bounds each request, including reading the body. A
// non-positive value keeps DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *HistoricalClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHTTPClient supplies the session. The given client is copied and its
// Timeout overridden with the configured one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HistoricalClient) {
		if hc != nil {
			session := *hc
			c.httpClient = &session
		}
	}
}

// NewHistoricalClient creates a client for the service at baseURL. The
// session is fixed here and never replaced afterwards.
func NewHistoricalClient(baseURL string, opts ...Option) (*HistoricalClient, error) {
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	c := &HistoricalClient{
		baseURL: base,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	c.httpClient.Timeout = c.timeout
	return c, nil
}

// BaseURL returns the service root without a trailing slash.
func (c *HistoricalClient) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-request timeout.
func (c *HistoricalClient) Timeout() time.Duration {
	return c.timeout
}

// Close releases idle keep-alive connections held by the session.
func (c *HistoricalClient) Close() {
	c.httpClient.CloseIdleConnections()
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("base URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid base URL %q: scheme and host are required", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

// endpoint joins the base URL, an already escaped path and an encoded query.
func (c *HistoricalClient) endpoint(path string, query url.Values) string {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}

// getJSON performs a GET request and decodes the body into out. The body is
// read in full before decoding so errors can carry it.
func (c *HistoricalClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Method: req.Method, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: req.Method, URL: endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       body,
		}
	}

	// jsoniter's UseNumber mode keeps malformed literals such as 01 or 1e as
	// json.Number, so validate the whole body first.
	if !jsonAPI.Valid(body) {
		return &DecodeError{Body: body, Err: errInvalidJSON}
	}
	if err := jsonAPI.Unmarshal(body, out); err != nil {
		return &DecodeError{Body: body, Err: err}
	}
	return nil
}
