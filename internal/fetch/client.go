package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

// Defaults used by NewClient.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultUserAgent   = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB
	maxRedirects       = 10
)

// Client is the HTTP implementation of Fetcher.
type Client struct {
	// httpClient performs the requests. Its Timeout is left at zero because
	// every request carries its own deadline.
	httpClient *http.Client

	// userAgent is sent when a Request does not set one.
	userAgent string

	// timeout is used when a Request does not set one.
	timeout time.Duration

	// maxBodySize limits how much of a response body is read.
	maxBodySize int64

	// limiter throttles requests per host. Nil means unlimited.
	limiter *hostLimiter

	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTransport sets the transport of the underlying HTTP client, for
// example one that dials through a SOCKS5 proxy.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		c.maxBodySize = size
	}
}

// WithRateLimit allows rps requests per second per host with the given
// burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = newHostLimiter(rps, burst)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient returns a Client with a cookie jar and a redirect cap of 10.
func NewClient(opts ...Option) *Client {
	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	c := &Client{
		httpClient: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(), //nolint:forcetypeassert // always *http.Transport
			Jar:       jar,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent:   DefaultUserAgent,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, req Request) ([]byte, error) {
	body, _, err := c.do(ctx, req)
	return body, err
}

// FetchText implements Fetcher.
func (c *Client) FetchText(ctx context.Context, req Request) (string, error) {
	body, contentType, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	return Decode(body, contentType, req.Charset)
}

// do performs one GET and returns the body and its Content-Type.
func (c *Client) do(ctx context.Context, req Request) ([]byte, string, error) {
	if req.URL == "" {
		return nil, "", &Error{Err: ErrEmptyURL}
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, "", &Error{URL: req.URL, Err: err}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.wait(ctx, u.Host); err != nil {
			return nil, "", &Error{URL: req.URL, Err: err}
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, "", &Error{URL: req.URL, Err: err}
	}
	c.setHeaders(httpReq, req)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", &Error{URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("fetched",
		"url", req.URL,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBodySize)) //nolint:errcheck // draining only
		return nil, "", &Error{URL: req.URL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, "", &Error{URL: req.URL, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// setHeaders applies the request's headers on top of the client defaults.
func (c *Client) setHeaders(httpReq *http.Request, req Request) {
	ua := req.UserAgent
	if ua == "" {
		ua = c.userAgent
	}
	httpReq.Header.Set("User-Agent", ua)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/json,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if req.Referrer != "" {
		httpReq.Header.Set("Referer", req.Referrer)
	}
	if req.Cookie != "" {
		httpReq.Header.Set("Cookie", req.Cookie)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
}
