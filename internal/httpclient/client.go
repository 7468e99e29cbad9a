// Package httpclient is the HTTP client shared by the remote importers.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abdnh/anki-copycat-importer/internal/logutil"
)

const (
	DefaultTimeout = 30 * time.Second
	Product        = "anki-copycat-importer"
	// DefaultUserAgent identifies builds that did not set a version.
	DefaultUserAgent = Product + "/dev"
	DefaultAccept    = "application/json, */*;q=0.8"

	maxErrorBody = 512
)

// UserAgent returns the User-Agent of the given build version.
func UserAgent(version string) string {
	if version == "" {
		return DefaultUserAgent
	}
	return Product + "/" + version
}

// Client sends GET requests carrying a fixed set of identifying headers.
type Client struct {
	httpClient *http.Client
	headers    http.Header
}

type Option func(*Client)

// WithTimeout bounds every request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// WithUserAgent replaces the default User-Agent. An empty value keeps it.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.headers.Set("User-Agent", ua)
		}
	}
}

// WithHTTPClient replaces the underlying client, keeping its transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		timeout := c.httpClient.Timeout
		c.httpClient = &http.Client{Transport: hc.Transport, Timeout: timeout}
	}
}

// New creates a client with the default timeout and user agent.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		headers:    http.Header{},
	}
	c.headers.Set("User-Agent", DefaultUserAgent)
	c.headers.Set("Accept", DefaultAccept)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response is a fully read response body. URL is the requested URL with the
// merged query.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Get requests rawURL with query merged into its query string. Non-2xx
// responses are returned as *RequestFailedError.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values, headers http.Header) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &RequestFailedError{URL: rawURL, Err: fmt.Errorf("failed to parse URL: %w", err)}
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	target := u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &RequestFailedError{URL: target, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	for k, vs := range c.headers {
		req.Header[k] = vs
	}
	for k, vs := range headers {
		req.Header[k] = vs
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestFailedError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestFailedError{URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	logutil.GetLogger(ctx).Debug("http request",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.String("content_type", resp.Header.Get("Content-Type")),
		zap.Int("bytes", len(body)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &RequestFailedError{URL: target, StatusCode: resp.StatusCode, Err: statusError(resp.StatusCode, snippet)}
	}

	return &Response{
		URL:         target,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// GetJSON decodes the response body of a GET request into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, headers http.Header, v any) error {
	resp, err := c.Get(ctx, rawURL, query, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return &RequestFailedError{URL: resp.URL, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// GetBytes returns the body and content type of a GET request.
func (c *Client) GetBytes(ctx context.Context, rawURL string, headers http.Header) ([]byte, string, error) {
	resp, err := c.Get(ctx, rawURL, nil, headers)
	if err != nil {
		return nil, "", err
	}
	return resp.Body, resp.ContentType, nil
}

// JoinURL appends path to base, keeping exactly one slash between them.
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
