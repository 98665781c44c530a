package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = time.Millisecond
	}
	return NewClient(cfg, rate.NewLimiter(rate.Inf, 1))
}

func TestDoSuccessFirstAttempt(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		assert.Equal(t, "token test-token", r.Header.Get("Authorization"))
		w.Header().Set("X-RateLimit-Remaining", "4999")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}, Config{Token: "test-token"})

	resp, err := client.Do(context.Background(), http.MethodGet, "/repos/octocat/hello", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, 4999, resp.RateRemaining)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[]`))
	}, Config{MaxAttempts: 3})

	sink := &RecorderSink{}
	resp, err := client.Do(context.Background(), http.MethodGet, "/repos/a/b/commits", nil, sink)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int32(3), calls.Load())
	// One advisory per retry.
	assert.Len(t, sink.Infos, 2)
}

func TestDoExhaustsRetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, Config{MaxAttempts: 3})

	_, err := client.Do(context.Background(), http.MethodGet, "/search/issues", nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, CodeRateLimited, apiErr.Code)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.True(t, apiErr.Retriable())
}

func TestDoTerminalStatusNoRetry(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}, Config{MaxAttempts: 3})

	_, err := client.Do(context.Background(), http.MethodGet, "/repos/no/such", nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "terminal statuses must not consume the retry budget")
	assert.True(t, IsNotFound(err))
}

func TestDoAuthFailureNoRetry(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}, Config{MaxAttempts: 3})

	_, err := client.Do(context.Background(), http.MethodGet, "/repos/a/b", nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	apiErr := AsAPIError(err)
	assert.Equal(t, CodeAuthentication, apiErr.Code)
	assert.False(t, apiErr.Retriable())
}

func TestDoQuotaAdvisory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "42")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}, Config{})

	sink := &RecorderSink{}
	resp, err := client.Do(context.Background(), http.MethodGet, "/repos/a/b", nil, sink)
	require.NoError(t, err)
	assert.Equal(t, 42, resp.RateRemaining)
	require.Len(t, sink.Infos, 1)
	assert.Contains(t, sink.Infos[0], "42")
}

func TestDoRateBudgetSpacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	// 20 permits per second, burst 1: three calls need two waits of ~50ms.
	limiter := rate.NewLimiter(rate.Limit(20), 1)
	client := NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, limiter)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Do(context.Background(), http.MethodGet, "/repos/a/b", nil, nil)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestDoContextCancelDuringBackoff(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, Config{MaxAttempts: 3, BaseDelay: 5 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Do(ctx, http.MethodGet, "/repos/a/b", nil, nil)
	require.Error(t, err)
	apiErr := AsAPIError(err)
	assert.Equal(t, CodeUnexpected, apiErr.Code)
}

func TestGetJSONDecodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"full_name":"octocat/hello","stargazers_count":7}`))
	}, Config{})

	var repo Repository
	_, err := client.GetJSON(context.Background(), "/repos/octocat/hello", nil, nil, &repo)
	require.NoError(t, err)
	assert.Equal(t, "octocat/hello", repo.FullName)
	assert.Equal(t, 7, repo.StargazersCount)
}

func TestGetJSONBadPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`not json`))
	}, Config{})

	var repo Repository
	_, err := client.GetJSON(context.Background(), "/repos/a/b", nil, nil, &repo)
	require.Error(t, err)
	assert.Equal(t, CodeUnexpected, AsAPIError(err).Code)
}

func TestMetricEndpointTemplating(t *testing.T) {
	assert.Equal(t, "/repos/{owner}/{repo}", metricEndpoint("/repos/octocat/hello"))
	assert.Equal(t, "/repos/{owner}/{repo}/commits", metricEndpoint("/repos/octocat/hello/commits"))
	assert.Equal(t, "/search/issues", metricEndpoint("/search/issues"))
}
