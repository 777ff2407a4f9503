package activity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"workfocus/internal/source"
)

// FeedEntry is one raw entry of an activity feed.
type FeedEntry struct {
	Title     string
	Author    string
	Published time.Time
}

// FeedSource yields the current entries of an activity feed.
type FeedSource interface {
	Fetch(ctx context.Context) ([]FeedEntry, error)
}

// HTTPFeed fetches an RSS or Atom feed over HTTP with optional basic auth.
type HTTPFeed struct {
	URL      string
	Username string
	Password string
	Client   *http.Client
}

func (f *HTTPFeed) Fetch(ctx context.Context) ([]FeedEntry, error) {
	if f.URL == "" {
		return nil, fmt.Errorf("%w: feed url not configured", source.ErrSourceUnavailable)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", source.ErrSourceUnavailable, err)
	}
	if f.Username != "" || f.Password != "" {
		req.SetBasicAuth(f.Username, f.Password)
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch feed: %v", source.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: feed status %d", source.ErrSourceUnavailable, resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	entries := make([]FeedEntry, 0, len(feed.Items))
	for _, it := range feed.Items {
		e := FeedEntry{Title: it.Title}
		if len(it.Authors) > 0 && it.Authors[0] != nil {
			e.Author = it.Authors[0].Name
			if e.Author == "" {
				e.Author = it.Authors[0].Email
			}
		}
		switch {
		case it.PublishedParsed != nil:
			e.Published = it.PublishedParsed.UTC()
		case it.UpdatedParsed != nil:
			e.Published = it.UpdatedParsed.UTC()
		}
		entries = append(entries, e)
	}
	return entries, nil
}
