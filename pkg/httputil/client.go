package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/fsm/pkg/cache"
	"github.com/matzehuels/fsm/pkg/observability"
)

const (
	httpTimeout = 10 * time.Second

	// DefaultAttempts and DefaultDelay configure Client retries.
	DefaultAttempts = 3
	DefaultDelay    = time.Second

	// MaxBodySize bounds a fetched response body.
	MaxBodySize = 32 << 20
)

var (
	// ErrNotFound is returned for a 404 response.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// Client provides cached, retried HTTP GETs.
type Client struct {
	http      *http.Client
	cache     cache.Cache
	keyer     cache.Keyer
	namespace string
	ttl       time.Duration
	headers   map[string]string
	attempts  int
	delay     time.Duration
}

// NewClient creates a Client that caches bodies in c under namespace for
// ttl. Headers are applied to all requests. A nil cache disables caching.
func NewClient(c cache.Cache, namespace string, ttl time.Duration, headers map[string]string) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Client{
		http:      NewHTTPClient(),
		cache:     c,
		keyer:     cache.NewDefaultKeyer(),
		namespace: namespace,
		ttl:       ttl,
		headers:   headers,
		attempts:  DefaultAttempts,
		delay:     DefaultDelay,
	}
}

// NewHTTPClient creates an HTTP client with the standard request timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// WithKeyer replaces the cache keyer.
func (c *Client) WithKeyer(k cache.Keyer) *Client {
	c.keyer = k
	return c
}

// WithRetry sets the retry attempts and initial backoff delay.
func (c *Client) WithRetry(attempts int, delay time.Duration) *Client {
	c.attempts, c.delay = attempts, delay
	return c
}

// Fetch returns the body at rawURL, from cache unless refresh is set.
// Successful responses are cached; cache write failures are ignored.
func (c *Client) Fetch(ctx context.Context, rawURL string, refresh bool) ([]byte, error) {
	key := c.keyer.HTTPKey(c.namespace, rawURL)
	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, key); ok {
			observability.Cache().OnCacheHit(ctx, c.namespace)
			return data, nil
		}
		observability.Cache().OnCacheMiss(ctx, c.namespace)
	}

	var body []byte
	err := Retry(ctx, c.attempts, c.delay, func() error {
		var err error
		body, err = c.get(ctx, rawURL)
		return err
	})
	if err != nil {
		return nil, err
	}

	if c.cache.Set(ctx, key, body, c.ttl) == nil {
		observability.Cache().OnCacheSet(ctx, c.namespace, len(body))
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	host, path := hostPath(req.URL)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, &RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("%w: read body: %v", ErrNetwork, err)}
	}
	return data, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return &RetryableError{Err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

func hostPath(u *url.URL) (string, string) {
	return u.Host, u.Path
}
