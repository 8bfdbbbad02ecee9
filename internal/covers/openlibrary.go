// Package covers looks up book cover images from the OpenLibrary
// search API. Lookups are best-effort enrichment: every failure mode is
// reported as "no cover", never as an error.
package covers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultSearchURL = "https://openlibrary.org/search.json"
	defaultImageURL  = "https://covers.openlibrary.org"
	defaultTimeout   = 5 * time.Second

	// searchResponseLimit bounds how much of the search response is read.
	searchResponseLimit = 1 << 20
)

// Client queries an OpenLibrary-compatible title search endpoint.
type Client struct {
	http      *http.Client
	searchURL string
	imageURL  string
	logger    *logrus.Logger
}

type Options struct {
	SearchURL string
	ImageURL  string
	Timeout   time.Duration
	Logger    *logrus.Logger
}

func NewClient(opts Options) *Client {
	if opts.SearchURL == "" {
		opts.SearchURL = defaultSearchURL
	}
	if opts.ImageURL == "" {
		opts.ImageURL = defaultImageURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Client{
		http:      &http.Client{Timeout: opts.Timeout},
		searchURL: opts.SearchURL,
		imageURL:  opts.ImageURL,
		logger:    opts.Logger,
	}
}

type searchResponse struct {
	Docs []struct {
		CoverID int64 `json:"cover_i"`
	} `json:"docs"`
}

// Lookup returns the cover image URL for the first search result of
// title, or ("", false) when no result or no cover exists. Transport
// and decode failures are logged and reported the same way; Lookup
// never fails the caller.
func (c *Client) Lookup(ctx context.Context, title string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?title="+url.QueryEscape(title), nil)
	if err != nil {
		c.logger.Warnf("cover search request: %v", err)
		return "", false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warnf("cover search for %q: %v", title, err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warnf("cover search for %q: status %d", title, resp.StatusCode)
		return "", false
	}

	var result searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, searchResponseLimit)).Decode(&result); err != nil {
		c.logger.Warnf("cover search decode for %q: %v", title, err)
		return "", false
	}

	if len(result.Docs) == 0 || result.Docs[0].CoverID == 0 {
		return "", false
	}

	return fmt.Sprintf("%s/b/id/%d-M.jpg", c.imageURL, result.Docs[0].CoverID), true
}
