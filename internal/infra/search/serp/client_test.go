package serp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/brandvisor/internal/domain/providers"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(providers.Config{ID: "serp", Kind: providers.KindSearch, APIKey: "k", CostPerCall: 0.005})
	c.baseURL = srv.URL
	return c
}

func TestInvoke_OrganicResultsSynthesized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "best dating app", r.URL.Query().Get("q"))
		assert.Equal(t, "us", r.URL.Query().Get("gl"))
		w.Write([]byte(`{"organic_results":[
			{"position":1,"title":"Acme","link":"https://acme.com","snippet":"Acme leads"},
			{"position":2,"title":"Bumble","link":"https://bumble.com"}
		]}`))
	})

	res := c.Invoke(context.Background(), providers.Query{Text: "best dating app", Location: "US"})
	require.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Response, "1. Acme"), "organic hits become a numbered list")
	assert.Contains(t, res.Response, "2. Bumble")
	assert.Contains(t, res.Response, "https://acme.com")
	assert.InDelta(t, 0.005, res.Cost, 1e-9)
}

func TestInvoke_AnswerBoxPreferred(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answer_box":{"snippet":"Acme is the most popular.","link":"https://acme.com"},
			"organic_results":[{"position":1,"title":"Acme"}]}`))
	})

	res := c.Invoke(context.Background(), providers.Query{Text: "q"})
	require.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Response, "Acme is the most popular."))
}

func TestInvoke_AuthNotRetried(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})

	res := c.Invoke(context.Background(), providers.Query{Text: "q"})
	assert.False(t, res.Success)
	assert.Equal(t, providers.FailureAuth, res.Failure)
	assert.Equal(t, 1, calls)
}

func TestInvoke_TransientRetriedOnce(t *testing.T) {
	old := retryBackoff
	retryBackoff = time.Millisecond
	t.Cleanup(func() { retryBackoff = old })

	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"organic_results":[{"position":1,"title":"Acme"}]}`))
	})

	res := c.Invoke(context.Background(), providers.Query{Text: "q"})
	require.True(t, res.Success)
	assert.Equal(t, 2, res.Attempts)
	assert.InDelta(t, 0.01, res.Cost, 1e-9, "both attempts are billed")
}

func TestInvoke_EmptyResults(t *testing.T) {
	old := retryBackoff
	retryBackoff = time.Millisecond
	t.Cleanup(func() { retryBackoff = old })

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	res := c.Invoke(context.Background(), providers.Query{Text: "q"})
	assert.False(t, res.Success)
	assert.Equal(t, providers.FailureEmptyResponse, res.Failure)
	assert.Equal(t, maxAttempts, res.Attempts, "empty responses burn the whole attempt budget")
}
