// Package twitterx provides a minimal client for the X API v2: single tweet
// lookup and recent-search pagination, which is all thread harvesting needs.
package twitterx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the X API operations used by the thread harvester.
type Client interface {
	// GetTweet fetches a single tweet by id.
	GetTweet(ctx context.Context, id string) (*Tweet, error)
	// SearchRecent runs a recent-search query. nextToken is the opaque
	// continuation cursor from a previous page; empty starts from the top.
	SearchRecent(ctx context.Context, query string, maxResults int, nextToken string) (*SearchPage, error)
}

// Tweet is the subset of tweet fields the harvester consumes.
type Tweet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// SearchPage is one page of recent-search results.
type SearchPage struct {
	Tweets    []Tweet
	NextToken string
}

type tweetEnvelope struct {
	Data Tweet `json:"data"`
}

type searchEnvelope struct {
	Data []Tweet    `json:"data"`
	Meta searchMeta `json:"meta"`
}

type searchMeta struct {
	NextToken   string `json:"next_token"`
	ResultCount int    `json:"result_count"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate limit.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	bearerToken string
	baseURL     string
	http        *http.Client
	limiter     *rate.Limiter
}

// NewClient creates an X API client authenticated with a bearer token.
func NewClient(bearerToken string, opts ...Option) Client {
	c := &httpClient{
		bearerToken: bearerToken,
		baseURL:     "https://api.twitter.com/2",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		// Recent search allows roughly one request per 2s per app token.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes an HTTP request with exponential backoff retries on
// transient failures (429, 500, 502, 503). Returns the response body and
// status code on success, or the last error after exhausting retries.
func (c *httpClient) retryDo(ctx context.Context, req *http.Request) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, eris.Wrap(err, "twitterx: rate limiter wait")
		}

		retryReq := req.Clone(ctx)

		resp, err := c.http.Do(retryReq)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "twitterx: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("twitterx: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "twitterx: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	req.Header.Set("Accept", "application/json")

	body, statusCode, err := c.retryDo(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "twitterx: request failed")
	}
	if statusCode != http.StatusOK {
		return nil, eris.Errorf("twitterx: unexpected status %d: %s", statusCode, string(body))
	}
	return body, nil
}

func (c *httpClient) GetTweet(ctx context.Context, id string) (*Tweet, error) {
	reqURL := fmt.Sprintf("%s/tweets/%s?tweet.fields=text", c.baseURL, url.PathEscape(id))

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var env tweetEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "twitterx: unmarshal tweet")
	}
	if env.Data.ID == "" {
		return nil, eris.Errorf("twitterx: tweet %s not found", id)
	}
	return &env.Data, nil
}

func (c *httpClient) SearchRecent(ctx context.Context, query string, maxResults int, nextToken string) (*SearchPage, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("max_results", strconv.Itoa(maxResults))
	q.Set("tweet.fields", "text")
	if nextToken != "" {
		q.Set("next_token", nextToken)
	}
	reqURL := fmt.Sprintf("%s/tweets/search/recent?%s", c.baseURL, q.Encode())

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var env searchEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "twitterx: unmarshal search page")
	}
	return &SearchPage{Tweets: env.Data, NextToken: env.Meta.NextToken}, nil
}
