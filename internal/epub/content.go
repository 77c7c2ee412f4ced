package epub

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/TobiSchelling/readstash/internal/markup"
)

// CSS classes the package stylesheet targets.
const (
	classFigure     = "epub-figure"
	classFigcaption = "epub-figcaption"
	classImage      = "epub-image"
)

const (
	metaSeparator = " • "
	dateLayout    = "January 2, 2006"
)

// strippedTags are elements e-readers render badly or not at all.
var strippedTags = []string{
	"script", "iframe", "object", "embed", "style", "link", "meta", "form", "input", "button",
}

var strippedImgAttrs = []string{"srcset", "sizes", "loading", "decoding", "style", "width", "height"}

// buildDocument assembles the article body: title heading, metadata line
// and normalized content, with e-reader-hostile markup removed.
func buildDocument(a Article) (*markup.Fragment, error) {
	frag, err := markup.Parse(NormalizeEntities(a.Content))
	if err != nil {
		return nil, err
	}

	root := frag.Root()
	first := root.FirstChild
	root.InsertBefore(markup.Element("h1", nil, markup.Text(a.Title)), first)
	if line := metaLine(a); line != "" {
		attrs := []html.Attribute{{Key: "class", Val: "meta"}}
		root.InsertBefore(markup.Element("div", attrs, markup.Text(line)), first)
	}

	frag.Find(strings.Join(strippedTags, ", ")).Remove()
	normalizeFigures(frag)
	return frag, nil
}

func metaLine(a Article) string {
	var parts []string
	if b := strings.TrimSpace(a.Byline); b != "" {
		parts = append(parts, "By "+b)
	}
	if s := strings.TrimSpace(a.SiteName); s != "" {
		parts = append(parts, s)
	}
	if !a.CreatedAt.IsZero() {
		parts = append(parts, a.CreatedAt.Format(dateLayout))
	}
	return strings.Join(parts, metaSeparator)
}

func normalizeFigures(frag *markup.Fragment) {
	frag.Find("figure").Each(func(_ int, s *goquery.Selection) {
		s.RemoveAttr("style")
		s.SetAttr("class", classFigure)
	})
	frag.Find("figcaption").Each(func(_ int, s *goquery.Selection) {
		s.RemoveAttr("style")
		s.SetAttr("class", classFigcaption)
	})
	frag.Find("img").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range strippedImgAttrs {
			s.RemoveAttr(attr)
		}
		s.SetAttr("class", classImage)
	})
}
