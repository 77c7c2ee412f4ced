// Package fetch downloads raw pages over HTTP with a browser identity.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout bounds a single fetch including redirects.
	DefaultTimeout = 15 * time.Second
	// MaxRedirects is the number of redirects followed before giving up.
	MaxRedirects = 10

	// DefaultAccept is the Accept header sent for page requests.
	DefaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	// ImageAccept is the Accept header sent for image requests.
	ImageAccept = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"
)

var (
	// ErrInvalidURL means the URL could not be parsed or is not http(s).
	ErrInvalidURL = errors.New("invalid url")
	// ErrStatus means the server answered with a non-2xx status.
	ErrStatus = errors.New("unexpected status")
)

// Error describes a failed fetch. StatusCode is zero when no response
// was received.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Page is a fetched document.
type Page struct {
	URL         string
	ContentType string
	Body        []byte
}

// Options configures a Fetcher. Zero values fall back to defaults.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Accept    string
}

// Fetcher retrieves pages. It is safe for concurrent use.
type Fetcher struct {
	client *resty.Client
}

// New creates a Fetcher. There are no retries: one request per call.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Accept == "" {
		opts.Accept = DefaultAccept
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(MaxRedirects)).
		SetHeader("Accept", opts.Accept).
		SetHeader("Accept-Language", "en-US,en;q=0.9")
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	return &Fetcher{client: client}
}

// Fetch downloads rawURL. On any failure it returns a *Error and no page.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if err := validate(rawURL); err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}

	log.Debug().Str("url", rawURL).Msg("fetching")

	resp, err := f.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &Error{URL: rawURL, StatusCode: resp.StatusCode(), Err: ErrStatus}
	}

	final := rawURL
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		final = resp.RawResponse.Request.URL.String()
	}

	return &Page{
		URL:         final,
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}

func validate(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
