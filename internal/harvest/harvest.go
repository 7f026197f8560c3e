// Package harvest collects EVM addresses from X threads: the root tweet plus
// every reply in its conversation, paged through the recent-search endpoint.
package harvest

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dropaudit/internal/config"
	"github.com/sells-group/dropaudit/internal/extract"
	"github.com/sells-group/dropaudit/pkg/twitterx"
)

// Result is the outcome of harvesting one thread.
type Result struct {
	Addresses      []string `json:"addresses"`
	RootText       string   `json:"rootText"`
	PostsProcessed int      `json:"postsProcessed"`
}

// Harvester walks a tweet's conversation and extracts addresses from each post.
type Harvester struct {
	client   twitterx.Client
	pageSize int
	maxPages int
}

// New creates a Harvester with the given client and paging limits from config.
func New(client twitterx.Client, cfg config.TwitterConfig) *Harvester {
	return &Harvester{
		client:   client,
		pageSize: cfg.PageSize,
		maxPages: cfg.MaxPages,
	}
}

// ParseTweetID extracts the numeric tweet id from a status URL or returns the
// input unchanged if it is already a bare id.
func ParseTweetID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", eris.New("harvest: empty tweet reference")
	}
	if isNumeric(s) {
		return s, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", eris.Wrapf(err, "harvest: parse tweet URL %q", raw)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if isNumeric(segments[i]) {
			return segments[i], nil
		}
	}
	return "", eris.Errorf("harvest: no tweet id in %q", raw)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Thread fetches the root tweet and its replies, returning every address found
// across the thread in first-seen order. Paging stops at maxPages; a failure
// on a later page returns what was gathered so far rather than failing the
// whole harvest.
func (h *Harvester) Thread(ctx context.Context, tweetRef string) (*Result, error) {
	id, err := ParseTweetID(tweetRef)
	if err != nil {
		return nil, err
	}

	root, err := h.client.GetTweet(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "harvest: fetch root tweet %s", id)
	}

	res := &Result{
		RootText:       root.Text,
		PostsProcessed: 1,
	}
	seen := make(map[string]struct{})
	collect := func(text string) {
		for _, addr := range extract.Addresses(text) {
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			res.Addresses = append(res.Addresses, addr)
		}
	}
	collect(root.Text)

	query := fmt.Sprintf("conversation_id:%s", id)
	nextToken := ""
	for page := 0; page < h.maxPages; page++ {
		sp, err := h.client.SearchRecent(ctx, query, h.pageSize, nextToken)
		if err != nil {
			zap.L().Warn("harvest: search page failed, returning partial thread",
				zap.String("tweetId", id),
				zap.Int("page", page),
				zap.Error(err))
			break
		}
		for _, tw := range sp.Tweets {
			res.PostsProcessed++
			collect(tw.Text)
		}
		if sp.NextToken == "" {
			break
		}
		nextToken = sp.NextToken
	}

	if res.Addresses == nil {
		res.Addresses = []string{}
	}
	return res, nil
}
