package social

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-intel/internal/domain"
	"token-intel/internal/httpclient"
)

func newTestClient(t *testing.T, cfg Config, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg.BaseURL = server.URL
	cfg.RetryDelay = time.Millisecond
	cfg.PageDelay = -1
	return NewClient(cfg, nil)
}

func page(start, n int, next string) string {
	body := `{"tweets": [`
	for i := 0; i < n; i++ {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"id": "%d", "text": "post %d", "createdAt": "Tue Dec 10 07:00:30 +0000 2024",
			"likeCount": 2, "author": {"id": "a%d", "userName": "u%d"}}`, start+i, start+i, start+i, start+i)
	}
	return body + fmt.Sprintf(`], "has_next_page": %t, "next_cursor": %q}`, next != "", next)
}

func TestSearch_PagesAndTruncates(t *testing.T) {
	var calls int32
	c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/twitter/tweet/advanced_search", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		assert.Equal(t, "Latest", r.URL.Query().Get("queryType"))
		assert.Equal(t, "$PEPE", r.URL.Query().Get("query"))

		switch r.URL.Query().Get("cursor") {
		case "":
			w.Write([]byte(page(0, 3, "c1")))
		case "c1":
			w.Write([]byte(page(3, 3, "c2")))
		default:
			t.Errorf("unexpected page request %d", n)
		}
	})

	posts, err := c.Search(context.Background(), "$PEPE", 5)
	require.NoError(t, err)
	require.Len(t, posts, 5)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "4", posts[4].ID)
	assert.Equal(t, "a0", posts[0].Author.ID)
	assert.Equal(t, time.Date(2024, 12, 10, 7, 0, 30, 0, time.UTC), posts[0].CreatedAt)
	assert.Equal(t, int64(2), posts[0].LikeCount)
}

func TestSearch_StopsWithoutNextPage(t *testing.T) {
	c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page(0, 2, "")))
	})
	posts, err := c.Search(context.Background(), "q", 100)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestSearch_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	c := newTestClient(t, Config{MaxRetries: 3}, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(page(0, 1, "")))
	})

	posts, err := c.Search(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSearch_RetryExhaustionIsTerminal(t *testing.T) {
	var calls int32
	c := newTestClient(t, Config{MaxRetries: 2}, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("cursor") == "" {
			w.Write([]byte(page(0, 2, "c1")))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	})

	posts, err := c.Search(context.Background(), "q", 10)
	require.Error(t, err)
	assert.Nil(t, posts)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
	assert.Contains(t, err.Error(), "after 2 retries")
	// first page plus 1 attempt and 2 retries of the second
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestSearch_SendsAPIKeyAndCapsRequests(t *testing.T) {
	var calls int32
	keys := make(chan string, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		keys <- r.Header.Get(APIKeyHeader)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	// Caller options asking for transport retries and another key are overridden.
	c := NewClient(Config{
		BaseURL:    server.URL,
		APIKey:     "secret",
		PageDelay:  -1,
		RetryDelay: time.Millisecond,
		MaxRetries: 1,
	}, nil,
		httpclient.WithRetryMax(5),
		httpclient.WithRetryWait(time.Millisecond, time.Millisecond),
		httpclient.WithHeader(APIKeyHeader, "other"),
	)

	_, err := c.Search(context.Background(), "q", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "one attempt plus MaxRetries")

	close(keys)
	for key := range keys {
		assert.Equal(t, "secret", key)
	}
}

func TestSearch_RequiresQuery(t *testing.T) {
	c := NewClient(Config{}, nil)
	_, err := c.Search(context.Background(), "", 10)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestRetryPolicy_Doubles(t *testing.T) {
	c := NewClient(Config{RetryDelay: 100 * time.Millisecond, MaxRetries: 3}, nil)
	b := c.retryPolicy(context.Background())

	assert.Equal(t, 100*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 200*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 400*time.Millisecond, b.NextBackOff())
	assert.Equal(t, time.Duration(-1), b.NextBackOff()) // backoff.Stop
}
