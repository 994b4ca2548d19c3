package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/buslistings/bus-scraper/internal/ratelimit"
)

// Response is the raw result of a single HTTP GET.
type Response struct {
	StatusCode int
	Body       string
}

// Client performs one HTTP attempt. It never retries; retries belong to the
// RetryInterceptor.
type Client interface {
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

// Fetcher issues politeness-limited GET requests with a rotated User-Agent.
type Fetcher struct {
	client     *http.Client
	limiter    ratelimit.RateLimiter
	userAgents []string
	next       atomic.Uint64
}

func NewFetcher(limiter ratelimit.RateLimiter, userAgents []string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:     &http.Client{Timeout: timeout},
		limiter:    limiter,
		userAgents: userAgents,
	}
}

// Fetch waits for a rate-limit token for the URL's host, then performs one
// GET. A network-level failure is returned as an error; any HTTP response,
// whatever its status, is returned as a Response.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	if err := f.limiter.Acquire(ctx, parsed.Host); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: string(body)}, nil
}

// nextUserAgent rotates round-robin so consecutive requests to the same
// host vary their User-Agent.
func (f *Fetcher) nextUserAgent() string {
	n := f.next.Add(1) - 1
	return f.userAgents[n%uint64(len(f.userAgents))]
}
