// Package collect reads RSS and Atom feeds so their entries can be saved
// one article at a time.
package collect

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/readstash/internal/fetch"
)

// DefaultLimit caps the entries taken from one feed.
const DefaultLimit = 20

// FeedEntry represents a parsed feed entry.
type FeedEntry struct {
	URL           string
	Title         string
	PublishedDate string // YYYY-MM-DD or empty
	Source        string
}

// PageFetcher downloads the raw feed document.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

// FeedParser parses RSS/Atom feeds.
type FeedParser struct {
	fetcher PageFetcher
	parser  *gofeed.Parser
}

// NewFeedParser creates a new FeedParser that downloads feeds with f.
func NewFeedParser(f PageFetcher) *FeedParser {
	return &FeedParser{fetcher: f, parser: gofeed.NewParser()}
}

// Parse downloads feedURL and returns up to limit entry links in feed
// order, skipping entries without a usable http(s) link and duplicates.
// A non-positive limit uses DefaultLimit.
func (fp *FeedParser) Parse(ctx context.Context, feedURL string, limit int) ([]FeedEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	page, err := fp.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	feed, err := fp.parser.Parse(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}

	source := strings.TrimSpace(feed.Title)
	if source == "" {
		source = extractSourceName(feedURL)
	}

	seen := make(map[string]bool)
	var entries []FeedEntry
	for _, item := range feed.Items {
		if len(entries) >= limit {
			break
		}
		entry := parseItem(item, source)
		if entry == nil || seen[entry.URL] {
			continue
		}
		seen[entry.URL] = true
		entries = append(entries, *entry)
	}

	log.Info().Str("feed", feedURL).Str("source", source).Int("entries", len(entries)).Msg("parsed feed")
	return entries, nil
}

func parseItem(item *gofeed.Item, source string) *FeedEntry {
	itemURL := strings.TrimSpace(item.Link)
	if itemURL == "" {
		itemURL = strings.TrimSpace(item.GUID)
	}
	u, err := url.Parse(itemURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil
	}

	var publishedDate string
	if item.PublishedParsed != nil {
		publishedDate = item.PublishedParsed.Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		publishedDate = item.UpdatedParsed.Format("2006-01-02")
	}

	return &FeedEntry{
		URL:           itemURL,
		Title:         strings.TrimSpace(item.Title),
		PublishedDate: publishedDate,
		Source:        source,
	}
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
