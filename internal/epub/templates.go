package epub

import (
	"bytes"
	"strings"
	"text/template"
)

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(stripInvalidXML(s))
}

// stripInvalidXML drops runes XML 1.0 cannot carry.
func stripInvalidXML(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == 0x9 || r == 0xA || r == 0xD,
			r >= 0x20 && r <= 0xD7FF,
			r >= 0xE000 && r <= 0xFFFD,
			r >= 0x10000 && r <= 0x10FFFF:
			return r
		}
		return -1
	}, s)
}

var templates = template.Must(template.New("epub").Funcs(template.FuncMap{"x": escapeXML}).Parse(`
{{- define "opf" -}}
<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" unique-identifier="BookId" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>{{x .Title}}</dc:title>
    <dc:creator opf:role="aut">{{x .Creator}}</dc:creator>
    <dc:language>en</dc:language>
    <dc:identifier id="BookId">urn:uuid:{{x .ID}}</dc:identifier>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="article" href="article.xhtml" media-type="application/xhtml+xml"/>
{{- range .Images}}
    <item id="{{x .ID}}" href="{{x .Href}}" media-type="{{x .MediaType}}"/>
{{- end}}
  </manifest>
  <spine toc="ncx">
    <itemref idref="article"/>
  </spine>
</package>
{{end -}}

{{- define "ncx" -}}
<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head>
    <meta name="dtb:uid" content="urn:uuid:{{x .ID}}"/>
    <meta name="dtb:depth" content="1"/>
    <meta name="dtb:totalPageCount" content="0"/>
    <meta name="dtb:maxPageNumber" content="0"/>
  </head>
  <docTitle>
    <text>{{x .Title}}</text>
  </docTitle>
  <navMap>
    <navPoint id="navPoint-1" playOrder="1">
      <navLabel>
        <text>{{x .Title}}</text>
      </navLabel>
      <content src="article.xhtml"/>
    </navPoint>
  </navMap>
</ncx>
{{end -}}

{{- define "xhtml" -}}
<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en">
<head>
  <title>{{x .Title}}</title>
  <style type="text/css">
    body { font-family: Georgia, Cambria, "Times New Roman", Times, serif; line-height: 1.8; color: #111; margin: 0; padding: 5% 8%; }
    h1 { font-size: 2.2em; line-height: 1.3; margin-bottom: 0.5em; }
    .meta { color: #555; font-size: 0.9em; margin-bottom: 3em; border-bottom: 1px solid #eee; padding-bottom: 1em; }
    p { margin-bottom: 1.5em; text-indent: 0; }
    a { color: #000; text-decoration: underline; }
    .epub-figure { margin: 1.5em 0; text-align: center; }
    .epub-figcaption { font-size: 0.85em; color: #555; margin-top: 0.5em; }
    .epub-image { max-width: 100%; height: auto; display: block; margin: 1em auto; }
  </style>
</head>
<body>
{{.Body}}
</body>
</html>
{{end -}}
`))

type packageData struct {
	ID      string
	Title   string
	Creator string
	Images  []ManifestItem
}

type documentData struct {
	Title string
	// Body is already-serialized XHTML and is written unescaped.
	Body string
}

func render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func creator(a Article) string {
	if b := strings.TrimSpace(a.Byline); b != "" {
		return b
	}
	if s := strings.TrimSpace(a.SiteName); s != "" {
		return s
	}
	return "Unknown"
}
