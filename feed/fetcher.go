// Package feed provides Medium feed fetching, parsing and normalization
// for medium-sync.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/parthsinha/medium-sync/apperr"
)

// DefaultBaseURL is the feed URL template; the single verb receives the
// author username.
const DefaultBaseURL = "https://medium.com/feed/@%s"

// Fetcher retrieves raw feed bytes for an author. It is transport only:
// no parsing, no retries.
type Fetcher struct {
	client  *http.Client
	baseURL string
}

// NewFetcher creates a Fetcher with a default HTTP client.
func NewFetcher() *Fetcher {
	return NewFetcherWith(&http.Client{Timeout: 20 * time.Second}, DefaultBaseURL)
}

// NewFetcherWith creates a Fetcher using the given client and URL
// template. An empty baseURL falls back to DefaultBaseURL.
func NewFetcherWith(client *http.Client, baseURL string) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fetcher{client: client, baseURL: baseURL}
}

// FeedURL returns the feed URL for a username.
func (f *Fetcher) FeedURL(username string) string {
	return fmt.Sprintf(f.baseURL, username)
}

// Fetch issues a single GET for the author's feed and returns the raw
// bytes. Transport failures and non-2xx statuses are classified as
// fetch errors.
func (f *Fetcher) Fetch(ctx context.Context, username string) ([]byte, error) {
	url := f.FeedURL(username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Wrapf(apperr.KindFetch, err, "build request for %s", url)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperr.Wrapf(apperr.KindFetch, err, "fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.New(apperr.KindFetch,
			fmt.Sprintf("fetch %s: unexpected status %s", url, resp.Status))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrapf(apperr.KindFetch, err, "read feed body from %s", url)
	}

	return raw, nil
}
