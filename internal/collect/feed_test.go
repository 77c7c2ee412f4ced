package collect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/readstash/internal/fetch"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example Blog</title>
  <link>https://example.com/</link>
  <item>
    <title>First post</title>
    <link>https://example.com/first</link>
    <pubDate>Mon, 05 Feb 2024 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Duplicate</title>
    <link>https://example.com/first</link>
  </item>
  <item>
    <title>No link</title>
  </item>
  <item>
    <title>Guid only</title>
    <guid>https://example.com/guid</guid>
  </item>
  <item>
    <title>Mail</title>
    <link>mailto:someone@example.com</link>
  </item>
  <item>
    <title>Third</title>
    <link>https://example.com/third</link>
  </item>
</channel>
</rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title></title>
  <entry>
    <title>Atom entry</title>
    <link href="https://blog.example.org/atom-entry"/>
    <updated>2024-03-01T12:00:00Z</updated>
  </entry>
</feed>`

func serve(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParseRSS(t *testing.T) {
	srv := serve(t, rssFeed)
	fp := NewFeedParser(fetch.New(fetch.Options{}))

	entries, err := fp.Parse(context.Background(), srv.URL, 0)
	require.NoError(t, err)

	var urls []string
	for _, e := range entries {
		urls = append(urls, e.URL)
	}
	assert.Equal(t, []string{"https://example.com/first", "https://example.com/guid", "https://example.com/third"}, urls)
	assert.Equal(t, "2024-02-05", entries[0].PublishedDate)
	assert.Equal(t, "Example Blog", entries[0].Source)
}

func TestParseLimit(t *testing.T) {
	srv := serve(t, rssFeed)
	entries, err := NewFeedParser(fetch.New(fetch.Options{})).Parse(context.Background(), srv.URL, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestParseAtom(t *testing.T) {
	srv := serve(t, atomFeed)
	entries, err := NewFeedParser(fetch.New(fetch.Options{})).Parse(context.Background(), srv.URL, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://blog.example.org/atom-entry", entries[0].URL)
	assert.Equal(t, "2024-03-01", entries[0].PublishedDate)
	// Untitled feeds are named after their host.
	assert.NotEmpty(t, entries[0].Source)
}

func TestParseInvalidFeed(t *testing.T) {
	srv := serve(t, "<html><body>not a feed</body></html>")
	_, err := NewFeedParser(fetch.New(fetch.Options{})).Parse(context.Background(), srv.URL, 10)
	assert.Error(t, err)
}

func TestParseFetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewFeedParser(fetch.New(fetch.Options{})).Parse(context.Background(), srv.URL, 10)
	var fe *fetch.Error
	assert.ErrorAs(t, err, &fe)
}

func TestExtractSourceName(t *testing.T) {
	tests := map[string]string{
		"https://www.example.com/feed":    "Example",
		"https://blog.golang.org/feed":    "Golang",
		"https://feeds.arstechnica.com/x": "Arstechnica",
		"https://localhost/rss":           "Localhost",
	}
	for in, want := range tests {
		assert.Equal(t, want, extractSourceName(in), in)
	}
}
