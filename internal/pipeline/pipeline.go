// Package pipeline wires the ingestion and export flows together: URL to
// stored article, and stored article to EPUB.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/readstash/internal/config"
	"github.com/TobiSchelling/readstash/internal/database"
	"github.com/TobiSchelling/readstash/internal/epub"
	"github.com/TobiSchelling/readstash/internal/extract"
	"github.com/TobiSchelling/readstash/internal/fetch"
	"github.com/TobiSchelling/readstash/internal/metrics"
	"github.com/TobiSchelling/readstash/internal/sanitize"
)

var (
	// ErrNotFound means the requested article does not exist.
	ErrNotFound = errors.New("article not found")
	// ErrListNotFound means an ingest named a list that does not exist.
	ErrListNotFound = errors.New("list not found")
)

const untitled = "Untitled"

// ArticleStore is the part of the library the pipeline reads and writes.
type ArticleStore interface {
	GetArticle(id string) (*database.Article, error)
	GetList(id string) (*database.List, error)
	InsertArticle(in database.NewArticle) (*database.Article, error)
}

// Pipeline runs ingestion and export. It holds no per-request state.
type Pipeline struct {
	store     ArticleStore
	fetcher   *fetch.Fetcher
	extractor *extract.Extractor
	sanitizer *sanitize.Sanitizer
	builder   *epub.Builder
	metrics   *metrics.Metrics
}

// New creates a pipeline from configuration. m may be nil.
func New(cfg *config.Config, store ArticleStore, m *metrics.Metrics) *Pipeline {
	images := fetch.New(fetch.Options{
		Timeout:   cfg.Export.ImageTimeout,
		UserAgent: cfg.Fetch.UserAgent,
		Accept:    fetch.ImageAccept,
	})
	return &Pipeline{
		store: store,
		fetcher: fetch.New(fetch.Options{
			Timeout:   cfg.Fetch.Timeout,
			UserAgent: cfg.Fetch.UserAgent,
		}),
		extractor: extract.New(cfg.Extract.MinTextLength),
		sanitizer: sanitize.New(),
		builder: epub.New(epub.Options{
			Images:           images,
			ImageConcurrency: cfg.Export.ImageConcurrency,
			TempDir:          cfg.GetTempDir(),
		}),
		metrics: m,
	}
}

// Fetcher returns the page fetcher, shared with feed import.
func (p *Pipeline) Fetcher() *fetch.Fetcher { return p.fetcher }

// Sanitize applies the ingestion sanitizer policy.
func (p *Pipeline) Sanitize(html string) string { return p.sanitizer.Sanitize(html) }

// Ingest fetches, extracts, sanitizes and stores the article at rawURL.
// An empty listID files it under the default list. On any failure nothing
// is stored and the stage error is returned.
func (p *Pipeline) Ingest(ctx context.Context, rawURL, listID string) (*database.Article, error) {
	start := time.Now()
	a, err := p.ingest(ctx, strings.TrimSpace(rawURL), listID)
	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusFailed
		log.Warn().Str("url", rawURL).Err(err).Msg("ingest failed")
	}
	p.metrics.RecordIngest(status, time.Since(start))
	return a, err
}

func (p *Pipeline) ingest(ctx context.Context, rawURL, listID string) (*database.Article, error) {
	var list *string
	if listID != "" {
		l, err := p.store.GetList(listID)
		if err != nil {
			return nil, fmt.Errorf("looking up list: %w", err)
		}
		if l == nil {
			return nil, fmt.Errorf("list %s: %w", listID, ErrListNotFound)
		}
		list = &l.ID
	}

	page, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	res, err := p.extractor.Extract(page)
	if err != nil {
		return nil, err
	}

	content := p.sanitizer.Sanitize(res.Content)
	if content == "" {
		return nil, &extract.Error{URL: rawURL, Err: extract.ErrNoContent}
	}

	title := res.Title
	if title == "" {
		title = untitled
	}

	a, err := p.store.InsertArticle(database.NewArticle{
		URL:           rawURL,
		Title:         title,
		Content:       content,
		TextContent:   res.TextContent,
		Excerpt:       res.Excerpt,
		Byline:        res.Byline,
		SiteName:      res.SiteName,
		PublishedTime: res.PublishedTime,
		ListID:        list,
	})
	if err != nil {
		return nil, fmt.Errorf("saving article: %w", err)
	}

	log.Info().Str("url", rawURL).Str("article_id", a.ID).Str("title", a.Title).Msg("article saved")
	return a, nil
}

// ExportEPUB builds the EPUB for a stored article. A missing article
// returns ErrNotFound before any archive work starts.
func (p *Pipeline) ExportEPUB(ctx context.Context, id string) (*epub.Package, error) {
	start := time.Now()

	a, err := p.store.GetArticle(id)
	if err != nil {
		p.metrics.RecordExport(metrics.StatusFailed, time.Since(start), 0, 0)
		return nil, fmt.Errorf("loading article: %w", err)
	}
	if a == nil {
		p.metrics.RecordExport(metrics.StatusNotFound, time.Since(start), 0, 0)
		return nil, fmt.Errorf("article %s: %w", id, ErrNotFound)
	}

	pkg, err := p.builder.Build(ctx, epub.Article{
		ID:        a.ID,
		Title:     a.Title,
		Content:   a.Content,
		Byline:    a.Byline,
		SiteName:  a.SiteName,
		CreatedAt: time.Unix(a.CreatedAt, 0),
	})
	if err != nil {
		p.metrics.RecordExport(metrics.StatusFailed, time.Since(start), 0, 0)
		log.Error().Str("article_id", id).Err(err).Msg("epub export failed")
		return nil, err
	}

	p.metrics.RecordExport(metrics.StatusOK, time.Since(start), len(pkg.Images), pkg.DroppedImages)
	log.Info().
		Str("article_id", id).
		Str("filename", pkg.Filename).
		Int("images", len(pkg.Images)).
		Int("dropped_images", pkg.DroppedImages).
		Msg("epub exported")
	return pkg, nil
}
