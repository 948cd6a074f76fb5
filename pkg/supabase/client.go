package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a Supabase REST client. It is safe for concurrent use; per-user
// access tokens travel in the request context (see WithAccessToken).
type Client struct {
	baseURL    string
	restURL    string
	authURL    string
	storageURL string
	anonKey    string
	headers    map[string]string
	observer   RequestObserver
	httpClient *http.Client
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("project URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("anon key is required")
	}

	baseURL := strings.TrimRight(cfg.URL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid project URL: %w", err)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		restURL:    baseURL + "/rest/v1",
		authURL:    baseURL + "/auth/v1",
		storageURL: baseURL + "/storage/v1",
		anonKey:    cfg.AnonKey,
		headers:    cfg.DefaultHeaders,
		observer:   cfg.Observer,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// BaseURL returns the project URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AnonKey returns the anon key.
func (c *Client) AnonKey() string {
	return c.anonKey
}

type accessTokenKey struct{}

// WithAccessToken returns a context whose requests are authorized as the user
// owning token instead of the anon role.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFrom returns the access token carried by ctx, if any.
func AccessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}

// Response is a raw API response.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Count returns the total row count from a Content-Range header such as
// "0-9/42" or "*/42". ok is false when the server did not report a total.
func (r *Response) Count() (count int64, ok bool) {
	cr := r.Header.Get("Content-Range")
	idx := strings.LastIndex(cr, "/")
	if idx < 0 || cr[idx+1:] == "*" {
		return 0, false
	}
	n, err := strconv.ParseInt(cr[idx+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// request performs an HTTP request and turns 4xx/5xx responses into *Error.
func (c *Client) request(ctx context.Context, method, rawURL, resource string, body []byte, headers map[string]string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(ctx, req, headers)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, resource, 0, start)
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.observe(method, resource, resp.StatusCode, start)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseError(respBody, resp.StatusCode)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Header:     resp.Header,
	}, nil
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request, extra map[string]string) {
	req.Header.Set("apikey", c.anonKey)
	if token := AccessTokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}
	req.Header.Set("Accept", "application/json")
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}
}

func (c *Client) observe(method, resource string, status int, start time.Time) {
	if c.observer != nil {
		c.observer(method, resource, status, time.Since(start))
	}
}

// RPC calls a Postgres function and returns the raw JSON result.
func (c *Client) RPC(ctx context.Context, fn string, params any) (*Response, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return c.request(ctx, http.MethodPost, c.restURL+"/rpc/"+url.PathEscape(fn), "rpc/"+fn, body, nil)
}

// parseError parses an error response.
func parseError(body []byte, statusCode int) error {
	var errResp struct {
		Code             string `json:"code"`
		Message          string `json:"message"`
		Details          string `json:"details"`
		Hint             string `json:"hint"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil {
		return &Error{
			Code:       "unknown",
			Message:    strings.TrimSpace(string(body)),
			StatusCode: statusCode,
		}
	}

	msg := errResp.Message
	if msg == "" {
		msg = errResp.ErrorDescription
	}
	if msg == "" {
		msg = errResp.Msg
	}
	if msg == "" {
		msg = errResp.Error
	}
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	return &Error{
		Code:       errResp.Code,
		Message:    msg,
		Details:    errResp.Details,
		Hint:       errResp.Hint,
		StatusCode: statusCode,
	}
}
