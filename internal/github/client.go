// Package github implements the resilient GitHub API client shared by every
// tool: one rate-limited, retrying call primitive with a closed error
// taxonomy. All tool operations go through Client.Do (directly or via
// GetJSON); none of them talk to the network any other way.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/repolens/repolens/internal/metrics"
)

const (
	// DefaultBaseURL is the public GitHub REST API endpoint.
	DefaultBaseURL = "https://api.github.com"

	defaultUserAgent   = "RepoLens/1.0"
	defaultTimeout     = 20 * time.Second
	defaultMaxAttempts = 3
	defaultBaseDelay   = 1 * time.Second

	// quotaLowWater triggers the remaining-quota advisory. Visibility only.
	quotaLowWater = 100
)

// Config carries the knobs for one client. Zero values fall back to the
// package defaults above.
type Config struct {
	BaseURL     string
	Token       string
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
}

// Client issues requests against the GitHub REST API. The limiter is shared
// process-wide and injected, never a hidden singleton, so the aggregate call
// rate across all concurrent operations stays within the configured budget
// and tests can substitute a permissive one.
type Client struct {
	baseURL     string
	token       string
	userAgent   string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseDelay   time.Duration
}

// NewClient builds a client around the shared rate limiter.
func NewClient(cfg Config, limiter *rate.Limiter) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(1), 1)
	}

	return &Client{
		baseURL:     baseURL,
		token:       strings.TrimSpace(cfg.Token),
		userAgent:   userAgent,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     limiter,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// Response is the successful result of one logical call.
type Response struct {
	Status        int
	Body          []byte
	Header        http.Header
	RateRemaining int // -1 when the header was absent
}

// Do executes one logical GET-class request with rate limiting and bounded
// retry. It always returns either a Response or an *APIError; the retry loop
// branches on classified outcomes, never on raw transport errors.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, sink Sink) (*Response, error) {
	if sink == nil {
		sink = NopSink{}
	}

	var lastFailure *APIError
	lastStatus := 0

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay << (attempt - 1)
			sink.Info(fmt.Sprintf("transient failure, retry %d/%d in %s", attempt+1, c.maxAttempts, delay))
			if err := sleep(ctx, delay); err != nil {
				return nil, &APIError{Code: CodeUnexpected, Message: "request canceled during backoff: " + err.Error()}
			}
		}

		// No permit, no call. Acquisition may suspend the caller.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &APIError{Code: CodeUnexpected, Message: "request canceled waiting for rate limit permit: " + err.Error()}
		}

		outcome, resp := c.attempt(ctx, method, path, query)
		metrics.RecordGitHubAPICall(metricEndpoint(path), outcome.status)

		switch outcome.disposition {
		case dispositionSuccess:
			metrics.SetRateLimitRemaining(resp.RateRemaining)
			if resp.RateRemaining >= 0 && resp.RateRemaining < quotaLowWater {
				sink.Info(fmt.Sprintf("only %d GitHub API requests remaining in the current quota window", resp.RateRemaining))
			}
			return resp, nil
		case dispositionFail:
			if outcome.err != nil {
				return nil, outcome.err
			}
			return nil, errorFromStatus(outcome.status, bodyOf(resp))
		case dispositionRetry:
			lastStatus = outcome.status
			if outcome.err != nil {
				lastFailure = outcome.err
			} else {
				lastFailure = errorFromStatus(outcome.status, bodyOf(resp))
			}
		}
	}

	if lastFailure != nil {
		return nil, lastFailure
	}

	// The loop can only exit without a captured failure if maxAttempts was
	// mangled; still guarantee a terminal outcome with whatever context we
	// have rather than a bare generic error.
	return nil, &APIError{
		Code:    CodeUnexpected,
		Status:  lastStatus,
		Message: fmt.Sprintf("all %d attempts exhausted for %s %s without a classified failure", c.maxAttempts, method, path),
	}
}

// attempt performs one underlying HTTP exchange and classifies it.
func (c *Client) attempt(ctx context.Context, method, path string, query url.Values) (attemptOutcome, *Response) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return attemptOutcome{
			disposition: dispositionFail,
			err:         &APIError{Code: CodeUnexpected, Message: "build request: " + err.Error()},
		}, nil
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	metrics.ObserveGitHubAPIDuration(metricEndpoint(path), time.Since(start))
	if err != nil {
		return classifyTransportError(err), nil
	}
	defer httpResp.Body.Close() //nolint:errcheck // best-effort cleanup

	body, readErr := io.ReadAll(httpResp.Body)
	if readErr != nil {
		return attemptOutcome{
			disposition: dispositionRetry,
			status:      httpResp.StatusCode,
			err:         &APIError{Code: CodeNetwork, Status: httpResp.StatusCode, Message: "read response body", Details: readErr.Error()},
		}, nil
	}

	resp := &Response{
		Status:        httpResp.StatusCode,
		Body:          body,
		Header:        httpResp.Header,
		RateRemaining: rateRemaining(httpResp.Header),
	}

	return attemptOutcome{disposition: classifyStatus(httpResp.StatusCode), status: httpResp.StatusCode}, resp
}

// GetJSON performs a GET through Do and decodes the payload into v.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, sink Sink, v any) (*Response, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, query, sink)
	if err != nil {
		return nil, err
	}
	if v != nil {
		if err := json.Unmarshal(resp.Body, v); err != nil {
			return nil, &APIError{Code: CodeUnexpected, Status: resp.Status, Message: "decode GitHub response for " + path, Details: err.Error()}
		}
	}
	return resp, nil
}

// BaseURL returns the configured API root, mainly for health reporting.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func rateRemaining(h http.Header) int {
	v := h.Get("X-RateLimit-Remaining")
	if v == "" {
		return -1
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// metricEndpoint collapses owner/repo path segments into a template so the
// endpoint label keeps bounded cardinality.
func metricEndpoint(path string) string {
	const prefix = "/repos/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	rest := strings.SplitN(strings.TrimPrefix(path, prefix), "/", 3)
	if len(rest) < 2 {
		return path
	}
	out := "/repos/{owner}/{repo}"
	if len(rest) == 3 {
		out += "/" + rest[2]
	}
	return out
}

func bodyOf(resp *Response) string {
	if resp == nil {
		return ""
	}
	return string(resp.Body)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
