package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Config defines the setup for the HTTP Client.
type Config struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	// Retries is the number of extra attempts made after a transport error or
	// a 5xx response. Zero means a single attempt.
	Retries int
	// Backoff is the base delay between attempts; attempt n waits n*Backoff.
	Backoff time.Duration
	// Provide a custom Transport, e.g. for proxies or uTLS fingerprinting
	Transport http.RoundTripper
}

// Client wraps a standard http.Client to provide configurable timeouts,
// redirect policies, retries, and cookie management.
type Client struct {
	*http.Client
	retries int
	backoff time.Duration
}

// New creates a new HTTP client based on the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}

	c := &http.Client{
		Timeout: cfg.Timeout,
	}

	if cfg.MaxRedirects >= 0 {
		maxRedirects := cfg.MaxRedirects
		if maxRedirects == 0 {
			maxRedirects = 10
		}
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("context: stopped after %d redirects", maxRedirects)
			}
			return nil
		}
	} else {
		// Don't follow any redirects if max < 0
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}
		c.Jar = jar
	}

	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	}

	return &Client{Client: c, retries: cfg.Retries, backoff: cfg.Backoff}, nil
}

// Do executes an HTTP request. The provided context.Context controls the
// overall request lifetime across retries, independent of the per-attempt
// client timeout. Requests with a body are never retried.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("context: context cannot be nil")
	}

	attempts := c.retries + 1
	if req.Body != nil && req.Body != http.NoBody {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("context: %w", ctx.Err())
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		resp, err := c.Client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if resp.StatusCode >= 500 && attempt < attempts-1 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			resp.Body.Close()
			lastErr = fmt.Errorf("server returned %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("context: %w", lastErr)
}
