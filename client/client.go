// Package client provides the HTTP layer shared by registry backends:
// authentication, request pacing, and bounded retries with exponential
// backoff for transient registry failures.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	"github.com/rs/dnscache"
	"golang.org/x/time/rate"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not authorized")
	ErrRateLimited  = errors.New("rate limited by registry")
	ErrUnavailable  = errors.New("registry unavailable")
)

// HTTPError represents a response status no sentinel covers.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// Doer is the request surface registry backends use. Satisfied by Client
// and BreakerClient.
type Doer interface {
	GetJSON(ctx context.Context, url string, out any) error
	Delete(ctx context.Context, url string) error
}

// Client is an HTTP client with bounded-retry logic for registry APIs.
type Client struct {
	http       *http.Client
	userAgent  string
	token      string
	headers    map[string]string
	maxRetries uint64
	baseDelay  time.Duration
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(name, value string) Option {
	return func(c *Client) {
		c.headers[name] = value
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithMaxRetries sets the maximum retry attempts after the initial request.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		c.maxRetries = uint64(n)
	}
}

// WithBaseDelay sets the initial delay for exponential backoff.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// WithRateLimit caps outgoing requests at rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// DefaultClient returns a client with sensible defaults:
// 30s timeout, 4 retries with exponential backoff on 429 and 5xx responses,
// 10 requests/second pacing.
func DefaultClient() *Client {
	return NewClient()
}

var (
	resolverOnce   sync.Once
	sharedResolver *dnscache.Resolver
)

// dnsResolver returns the process-wide DNS cache, starting its refresh
// loop on first use. Sharing it keeps client construction from leaking a
// refresh goroutine per client.
func dnsResolver() *dnscache.Resolver {
	resolverOnce.Do(func() {
		sharedResolver = &dnscache.Resolver{}
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				sharedResolver.Refresh(true)
			}
		}()
	})
	return sharedResolver
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	resolver := dnsResolver()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	c := &Client{
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}
					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}
					for _, ip := range ips {
						conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if err == nil {
							return conn, nil
						}
					}
					return nil, fmt.Errorf("failed to dial any resolved IP")
				},
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		userAgent:  "pkgsweep/1.0",
		headers:    make(map[string]string),
		maxRetries: 4,
		baseDelay:  500 * time.Millisecond,
		limiter:    rate.NewLimiter(10, 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON issues a GET request and decodes the response body into out.
// Rate-limit and server errors are retried with bounded exponential backoff;
// exhaustion surfaces the last error.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.retry(ctx, func() error {
		return c.doGetJSON(ctx, url, out)
	})
}

// Delete issues a DELETE request. A 404 response maps to ErrNotFound;
// callers that treat already-gone resources as deleted check for it with
// errors.Is. Same retry policy as GetJSON.
func (c *Client) Delete(ctx context.Context, url string) error {
	return c.retry(ctx, func() error {
		return c.doDelete(ctx, url)
	})
}

func (c *Client) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.baseDelay
	b.MaxInterval = 30 * time.Second
	b.Multiplier = 2.0
	b.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		err := op()
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable) {
			return err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		// Transport failures (resets, dial timeouts) are transient and
		// retried. Not-found and auth failures are registry answers, not
		// transient conditions.
		var transportErr *url.Error
		if errors.As(err, &transportErr) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx))
}

func (c *Client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for name, value := range c.headers {
		req.Header.Set(name, value)
	}
	return req, nil
}

func (c *Client) doGetJSON(ctx context.Context, url string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(resp, url); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

func (c *Client) doDelete(ctx context.Context, url string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, url)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("DELETE %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return statusError(resp, url)
}

func statusError(resp *http.Response, url string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var sentinel error
	switch {
	case resp.StatusCode == http.StatusNotFound:
		sentinel = ErrNotFound

	case resp.StatusCode == http.StatusTooManyRequests:
		sentinel = ErrRateLimited

	case resp.StatusCode == http.StatusUnauthorized:
		sentinel = ErrUnauthorized

	case resp.StatusCode == http.StatusForbidden:
		// GitHub reports primary rate-limit exhaustion as 403 with a
		// zeroed remaining-quota header.
		if resp.Header.Get("Retry-After") != "" || resp.Header.Get("X-RateLimit-Remaining") == "0" {
			sentinel = ErrRateLimited
		} else {
			sentinel = ErrUnauthorized
		}

	case resp.StatusCode >= 500:
		sentinel = ErrUnavailable

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &HTTPError{StatusCode: resp.StatusCode, URL: url, Body: string(body)}
	}

	// Drain the remainder so the connection can be reused across retries.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%s: %w", url, sentinel)
}
