// Package reddit implements internal/fetch.RedditSource against
// Reddit's public JSON listing API. No Reddit SDK appears anywhere in
// the retrieval pack, so this is a deliberately minimal net/http +
// encoding/json client (SPEC_FULL.md §9 standard-library
// justification).
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
	"github.com/titulartarantula/canvas-rss-sub001/internal/config"
	"github.com/titulartarantula/canvas-rss-sub001/internal/fetch"
)

const defaultBaseURL = "https://www.reddit.com"

// Client fetches submissions from the public (unauthenticated) JSON
// listing endpoint. The configured credentials are stored but not used
// to authenticate; no OAuth request is made.
type Client struct {
	http        *http.Client
	baseURL     string
	userAgent   string
	credentials config.RedditCredentials
	minScore    int
}

// New builds a Client. userAgent must be a descriptive string per
// Reddit's API rules (e.g. "canvasfeed/1.0 by <contact>").
func New(creds config.RedditCredentials, minScore int, userAgent string) *Client {
	return &Client{
		http:        &http.Client{Timeout: 15 * time.Second},
		baseURL:     defaultBaseURL,
		userAgent:   userAgent,
		credentials: creds,
		minScore:    minScore,
	}
}

type listingResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				ID          string  `json:"id"`
				Title       string  `json:"title"`
				SelfText    string  `json:"selftext"`
				URL         string  `json:"url"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
				Author      string  `json:"author"`
				CreatedUTC  float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// FetchSubreddit lists recent submissions scoring at or above the
// configured minimum.
func (c *Client) FetchSubreddit(ctx context.Context, subreddit string) ([]fetch.RedditPost, error) {
	url := fmt.Sprintf("%s/r/%s/new.json?limit=100", c.baseURL, subreddit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, canon.WrapFetch("reddit.new_request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, canon.WrapFetch("reddit.do", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, canon.WrapFetch("reddit.status", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var listing listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, canon.WrapFetch("reddit.decode", err)
	}

	posts := make([]fetch.RedditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		d := child.Data
		if d.Score < c.minScore {
			continue
		}
		posts = append(posts, fetch.RedditPost{
			ID:          d.ID,
			Title:       d.Title,
			SelfText:    d.SelfText,
			URL:         d.URL,
			Score:       d.Score,
			NumComments: d.NumComments,
			Author:      d.Author,
			CreatedUTC:  time.Unix(int64(d.CreatedUTC), 0).UTC(),
		})
	}
	return posts, nil
}
