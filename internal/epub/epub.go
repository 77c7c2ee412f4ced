// Package epub renders a saved article as a single-chapter EPUB 2 package
// with its remote images embedded.
package epub

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// MediaType is the EPUB MIME type.
const MediaType = mimetypeContent

// Article is the input to Build.
type Article struct {
	ID        string
	Title     string
	Content   string
	Byline    string
	SiteName  string
	CreatedAt time.Time
}

// ManifestItem is an OPF manifest entry for an embedded image.
type ManifestItem struct {
	ID        string
	Href      string
	MediaType string
}

// Package is a finished EPUB.
type Package struct {
	Filename      string
	Data          []byte
	Images        []ManifestItem
	DroppedImages int
}

// Options configures a Builder.
type Options struct {
	// Images downloads remote images. When nil every image is dropped.
	Images ImageFetcher
	// ImageConcurrency bounds parallel downloads; 1 or less is sequential.
	ImageConcurrency int
	// TempDir holds the spool file; empty means os.TempDir().
	TempDir string
}

// Builder builds EPUB packages. Each Build is independent: nothing is
// cached or shared between calls.
type Builder struct {
	images      ImageFetcher
	concurrency int
	tempDir     string
}

// New creates a Builder.
func New(opts Options) *Builder {
	return &Builder{
		images:      opts.Images,
		concurrency: opts.ImageConcurrency,
		tempDir:     opts.TempDir,
	}
}

// Build renders a into an EPUB. Image failures are logged and the image is
// omitted; archive failures return *ArchiveError; context cancellation
// aborts the build.
func (b *Builder) Build(ctx context.Context, a Article) (*Package, error) {
	frag, err := buildDocument(a)
	if err != nil {
		return nil, fmt.Errorf("building document: %w", err)
	}

	assets, dropped, err := b.resolveImages(ctx, frag)
	if err != nil {
		return nil, fmt.Errorf("resolving images: %w", err)
	}

	xhtml, err := render("xhtml", documentData{Title: a.Title, Body: frag.XHTML()})
	if err != nil {
		return nil, &ArchiveError{Op: "rendering article.xhtml", Err: err}
	}
	images := make([]ManifestItem, len(assets))
	for i, as := range assets {
		images[i] = as.ManifestItem
	}
	pd := packageData{ID: a.ID, Title: a.Title, Creator: creator(a), Images: images}
	opf, err := render("opf", pd)
	if err != nil {
		return nil, &ArchiveError{Op: "rendering content.opf", Err: err}
	}
	ncx, err := render("ncx", pd)
	if err != nil {
		return nil, &ArchiveError{Op: "rendering toc.ncx", Err: err}
	}

	entries := []entry{
		{name: "META-INF/container.xml", data: []byte(containerXML)},
		{name: "OEBPS/content.opf", data: opf},
		{name: "OEBPS/toc.ncx", data: ncx},
		{name: "OEBPS/article.xhtml", data: xhtml},
	}
	for _, as := range assets {
		entries = append(entries, entry{name: "OEBPS/" + as.Href, data: as.data})
	}

	modified := a.CreatedAt
	if modified.IsZero() {
		modified = time.Now()
	}
	data, err := spool(ctx, b.tempDir, modified, entries)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("article_id", a.ID).
		Int("images", len(assets)).
		Int("dropped_images", dropped).
		Int("bytes", len(data)).
		Msg("epub built")

	return &Package{
		Filename:      Filename(a.Title),
		Data:          data,
		Images:        images,
		DroppedImages: dropped,
	}, nil
}
