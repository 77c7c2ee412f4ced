// Package extract isolates the primary article content of a web page.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html/charset"

	"github.com/TobiSchelling/readstash/internal/fetch"
)

// DefaultMinTextLength is the shortest flattened text accepted as an article.
const DefaultMinTextLength = 100

const excerptLength = 200

// ErrNoContent means no primary content could be identified.
var ErrNoContent = errors.New("no article content found")

// Error reports a failed extraction. It always wraps ErrNoContent.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is the extracted article record. Content is not sanitized.
type Result struct {
	Title         string
	Content       string
	TextContent   string
	Excerpt       string
	Byline        string
	SiteName      string
	PublishedTime string
}

// Extractor runs the readability heuristic over fetched pages.
type Extractor struct {
	minTextLength int
}

// New creates an Extractor. A non-positive minTextLength uses the default.
func New(minTextLength int) *Extractor {
	if minTextLength <= 0 {
		minTextLength = DefaultMinTextLength
	}
	return &Extractor{minTextLength: minTextLength}
}

// Extract decodes a fetched page and extracts its article. Markdown pages
// are rendered to HTML first.
func (e *Extractor) Extract(page *fetch.Page) (*Result, error) {
	if isMarkdown(page) {
		var buf bytes.Buffer
		if err := goldmark.Convert(page.Body, &buf); err != nil {
			return nil, &Error{URL: page.URL, Err: fmt.Errorf("%w: rendering markdown: %v", ErrNoContent, err)}
		}
		return e.ExtractHTML("<html><body><article>"+buf.String()+"</article></body></html>", page.URL)
	}

	r, err := charset.NewReader(bytes.NewReader(page.Body), page.ContentType)
	if err != nil {
		return nil, &Error{URL: page.URL, Err: fmt.Errorf("%w: decoding body: %v", ErrNoContent, err)}
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, &Error{URL: page.URL, Err: fmt.Errorf("%w: decoding body: %v", ErrNoContent, err)}
	}
	return e.ExtractHTML(buf.String(), page.URL)
}

// ExtractHTML extracts the article from an HTML document. pageURL is used
// to resolve relative links and images.
func (e *Extractor) ExtractHTML(rawHTML, pageURL string) (*Result, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, &Error{URL: pageURL, Err: fmt.Errorf("%w: %v", ErrNoContent, err)}
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), u)
	if err != nil {
		return nil, &Error{URL: pageURL, Err: fmt.Errorf("%w: %v", ErrNoContent, err)}
	}

	text := strings.TrimSpace(article.TextContent)
	if strings.TrimSpace(article.Content) == "" || utf8.RuneCountInString(text) < e.minTextLength {
		log.Debug().Str("url", pageURL).Int("text_length", utf8.RuneCountInString(text)).Msg("extraction below threshold")
		return nil, &Error{URL: pageURL, Err: ErrNoContent}
	}

	res := &Result{
		Title:       strings.TrimSpace(article.Title),
		Content:     article.Content,
		TextContent: text,
		Excerpt:     strings.TrimSpace(article.Excerpt),
		Byline:      strings.TrimSpace(article.Byline),
		SiteName:    strings.TrimSpace(article.SiteName),
	}
	if article.PublishedTime != nil {
		res.PublishedTime = article.PublishedTime.Format(time.RFC3339)
	}
	if res.Title == "" {
		res.Title = documentTitle(rawHTML)
	}
	if res.Excerpt == "" {
		res.Excerpt = Excerpt(text)
	}
	return res, nil
}

// Excerpt returns the first 200 characters of text, cut back to the last
// word boundary.
func Excerpt(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= excerptLength {
		return text
	}
	cut := string([]rune(text)[:excerptLength])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:")
}

func documentTitle(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func isMarkdown(page *fetch.Page) bool {
	if mt, _, err := mime.ParseMediaType(page.ContentType); err == nil {
		if mt == "text/markdown" || mt == "text/x-markdown" {
			return true
		}
	}
	if u, err := url.Parse(page.URL); err == nil {
		return strings.EqualFold(path.Ext(u.Path), ".md")
	}
	return false
}
