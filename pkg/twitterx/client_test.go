package twitterx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.Handler) (Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("test-token",
		WithBaseURL(srv.URL),
		WithRateLimit(rate.NewLimiter(rate.Inf, 1)),
	)
	return c, srv
}

func TestGetTweet(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets/1825001", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"1825001","text":"gm drop your wallet"}}`))
	}))

	tweet, err := c.GetTweet(context.Background(), "1825001")
	require.NoError(t, err)
	assert.Equal(t, "1825001", tweet.ID)
	assert.Equal(t, "gm drop your wallet", tweet.Text)
}

func TestGetTweetNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"title":"Not Found Error"}]}`))
	}))

	_, err := c.GetTweet(context.Background(), "999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSearchRecentPaging(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets/search/recent", r.URL.Path)
		assert.Equal(t, "conversation_id:42", r.URL.Query().Get("query"))
		assert.Equal(t, "100", r.URL.Query().Get("max_results"))

		if r.URL.Query().Get("next_token") == "" {
			_, _ = w.Write([]byte(`{"data":[{"id":"1","text":"first"}],"meta":{"next_token":"cursor-1","result_count":1}}`))
			return
		}
		assert.Equal(t, "cursor-1", r.URL.Query().Get("next_token"))
		_, _ = w.Write([]byte(`{"data":[{"id":"2","text":"second"}],"meta":{"result_count":1}}`))
	}))

	ctx := context.Background()

	page, err := c.SearchRecent(ctx, "conversation_id:42", 100, "")
	require.NoError(t, err)
	require.Len(t, page.Tweets, 1)
	assert.Equal(t, "first", page.Tweets[0].Text)
	require.Equal(t, "cursor-1", page.NextToken)

	page, err = c.SearchRecent(ctx, "conversation_id:42", 100, page.NextToken)
	require.NoError(t, err)
	require.Len(t, page.Tweets, 1)
	assert.Equal(t, "second", page.Tweets[0].Text)
	assert.Empty(t, page.NextToken)
}

func TestRetryOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"id":"7","text":"ok"}}`))
	}))

	tweet, err := c.GetTweet(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "ok", tweet.Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestServerErrorAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.GetTweet(context.Background(), "7")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}
