package epub

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/readstash/internal/fetch"
	"github.com/TobiSchelling/readstash/internal/markup"
)

const (
	defaultImageType = "image/jpeg"
	defaultImageExt  = "jpg"
)

// ImageFetcher downloads one image. Implementations bound each call with
// their own timeout.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

// asset is an image embedded in the package.
type asset struct {
	ManifestItem
	data []byte
}

type download struct {
	data      []byte
	mediaType string
	ext       string
	err       error
}

// resolveImages downloads every remote image in document order, rewrites
// the img src of each success to its package path and removes every img
// that failed. It returns the embedded assets and the number of images
// dropped. Only context cancellation is returned as an error.
func (b *Builder) resolveImages(ctx context.Context, frag *markup.Fragment) ([]asset, int, error) {
	imgs := frag.Find("img")
	if imgs.Length() == 0 {
		return nil, 0, nil
	}

	sels := make([]*goquery.Selection, imgs.Length())
	srcs := make([]string, imgs.Length())
	imgs.Each(func(i int, s *goquery.Selection) {
		sels[i] = s
		srcs[i] = strings.TrimSpace(s.AttrOr("src", ""))
	})

	results, err := b.downloadAll(ctx, srcs)
	if err != nil {
		return nil, 0, err
	}

	var assets []asset
	dropped := 0
	for i, res := range results {
		if res.err != nil {
			log.Warn().Str("image", srcs[i]).Err(res.err).Msg("dropping image")
			sels[i].Remove()
			dropped++
			continue
		}
		n := len(assets) + 1
		name := fmt.Sprintf("image_%d.%s", n, res.ext)
		href := "images/" + name
		sels[i].SetAttr("src", href)
		assets = append(assets, asset{
			ManifestItem: ManifestItem{ID: fmt.Sprintf("image_%d", n), Href: href, MediaType: res.mediaType},
			data:         res.data,
		})
	}
	return assets, dropped, nil
}

// downloadAll fetches srcs into a slice indexed like srcs, so naming stays
// in document order however many downloads run at once.
func (b *Builder) downloadAll(ctx context.Context, srcs []string) ([]download, error) {
	results := make([]download, len(srcs))

	if b.concurrency <= 1 {
		for i, src := range srcs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = b.downloadImage(ctx, src)
		}
		return results, ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, src := range srcs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = b.downloadImage(gctx, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, ctx.Err()
}

func (b *Builder) downloadImage(ctx context.Context, src string) download {
	if !remoteURL(src) || b.images == nil {
		return download{err: &ImageError{Src: src, Err: ErrUnusableSource}}
	}

	page, err := b.images.Fetch(ctx, src)
	if err != nil {
		return download{err: &ImageError{Src: src, Err: err}}
	}

	mediaType, ext, err := imageType(page)
	if err != nil {
		return download{err: &ImageError{Src: src, Err: err}}
	}
	return download{data: page.Body, mediaType: mediaType, ext: ext}
}

// imageType picks the media type and file extension from the response
// Content-Type, sniffing the body only when the declared type is unknown.
func imageType(page *fetch.Page) (string, string, error) {
	if strings.TrimSpace(page.ContentType) == "" {
		return defaultImageType, defaultImageExt, nil
	}
	mediaType, _, err := mime.ParseMediaType(page.ContentType)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrNotImage, page.ContentType)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", "", fmt.Errorf("%w: %s", ErrNotImage, mediaType)
	}

	if m := mimetype.Lookup(mediaType); m != nil && m.Extension() != "" {
		return mediaType, strings.TrimPrefix(m.Extension(), "."), nil
	}
	if m := mimetype.Detect(page.Body); strings.HasPrefix(m.String(), "image/") && m.Extension() != "" {
		return m.String(), strings.TrimPrefix(m.Extension(), "."), nil
	}
	return mediaType, defaultImageExt, nil
}

func remoteURL(src string) bool {
	if src == "" {
		return false
	}
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
