// Package api provides the HTTP client for the office issue tracker backend.
//
// The client is a thin transport adapter: it attaches the session cookie,
// echoes the anti-forgery token on state-changing requests, maps non-2xx
// responses to *HTTPError and decodes JSON. It never retries.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/officetracker/oit/internal/debug"
	"github.com/officetracker/oit/internal/telemetry"
)

// Client configuration defaults.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultCSRFCookie = "XSRF-TOKEN"
	DefaultCSRFHeader = "X-XSRF-TOKEN"
	DefaultUserAgent  = "oit"

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 10 * 1024 * 1024
)

// Client talks to the tracker backend at a single base URL.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	csrfCookie string
	csrfHeader string
	userAgent  string

	sessionName  string
	sessionValue string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client. A cookie jar is added when the
// client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithSessionCookie seeds the jar with an existing session cookie, e.g. one
// copied from a browser after logging in with the identity provider.
func WithSessionCookie(name, value string) Option {
	return func(c *Client) {
		c.sessionName = name
		c.sessionValue = value
	}
}

// WithCSRF overrides the anti-forgery cookie and header names.
func WithCSRF(cookieName, headerName string) Option {
	return func(c *Client) {
		if cookieName != "" {
			c.csrfCookie = cookieName
		}
		if headerName != "" {
			c.csrfHeader = headerName
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for the backend at baseURL (e.g. "https://issues.example.com").
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: telemetry.Transport(http.DefaultTransport),
		},
		csrfCookie: DefaultCSRFCookie,
		csrfHeader: DefaultCSRFHeader,
		userAgent:  DefaultUserAgent,
	}
	for _, o := range opts {
		o(c)
	}

	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	if c.sessionName != "" && c.sessionValue != "" {
		c.httpClient.Jar.SetCookies(c.baseURL, []*http.Cookie{{
			Name:  c.sessionName,
			Value: c.sessionValue,
			Path:  "/",
		}})
	}
	return c, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Cookie returns the value of a cookie the jar holds for the backend.
func (c *Client) Cookie(name string) (string, bool) {
	for _, ck := range c.httpClient.Jar.Cookies(c.baseURL) {
		if ck.Name == name {
			return ck.Value, true
		}
	}
	return "", false
}

// Cookies returns the cookies the jar holds for the backend. The push
// channel reuses them for its handshake.
func (c *Client) Cookies() []*http.Cookie {
	return c.httpClient.Jar.Cookies(c.baseURL)
}

// isSafeMethod reports methods that do not need the anti-forgery header.
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// buildURL joins path and query onto the base URL.
func (c *Client) buildURL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// doRequest performs an HTTP request and returns the response body.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, query), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if !isSafeMethod(method) {
		if token, ok := c.Cookie(c.csrfCookie); ok {
			req.Header.Set(c.csrfHeader, token)
		}
	}

	debug.Logf("api: %s %s\n", method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPError(method, path, resp.StatusCode, respBody)
	}
	return respBody, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return err
	}
	return decode(http.MethodGet, path, body, out)
}

// sendJSON sends in (if non-nil) as JSON and decodes the response into out (if non-nil).
func (c *Client) sendJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	respBody, err := c.doRequest(ctx, method, path, nil, body, contentType)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decode(method, path, respBody, out)
}

func decode(method, path string, body []byte, out interface{}) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: failed to parse response: %w", method, path, err)
	}
	return nil
}
