package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/readstash/internal/config"
	"github.com/TobiSchelling/readstash/internal/database"
	"github.com/TobiSchelling/readstash/internal/extract"
	"github.com/TobiSchelling/readstash/internal/fetch"
	"github.com/TobiSchelling/readstash/internal/metrics"
)

const prose = "Readers keep coming back to long-form writing because it rewards attention. " +
	"This paragraph exists to give the readability scorer enough prose, commas, and sentences to work with, " +
	"so that the article body is clearly the densest block on the page."

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Tom &amp; Jerry | Site</title>
<meta property="og:title" content="Tom &amp; Jerry">
<meta property="og:site_name" content="Cartoon Weekly"></head>
<body><nav><a href="/">Home</a></nav><article>
<p onclick="steal()">` + prose + `</p>
<script>alert(1)</script>
<p>` + prose + `</p>
<figure><img src="` + srv.URL + `/pic.png" alt="pic"><figcaption>Picture</figcaption></figure>
<img src="` + srv.URL + `/broken.png" alt="broken">
<p>` + prose + `</p>
</article></body></html>`))
	})
	mux.HandleFunc("/stub", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>Subscribe to read.</p></body></html>`))
	})
	mux.HandleFunc("/pic.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newPipeline(t *testing.T, db ArticleStore) (*Pipeline, *metrics.Metrics, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Export.TempDir = t.TempDir()
	m := metrics.New()
	return New(cfg, db, m), m, cfg.Export.TempDir
}

func TestIngestStoresSanitizedArticle(t *testing.T) {
	site := newSite(t)
	db := openTestDB(t)
	p, m, _ := newPipeline(t, db)

	a, err := p.Ingest(context.Background(), site.URL+"/article", "")
	require.NoError(t, err)

	assert.Equal(t, "Tom & Jerry", a.Title)
	assert.Equal(t, "Cartoon Weekly", a.SiteName)
	assert.Equal(t, site.URL+"/article", a.URL)
	assert.NotContains(t, a.Content, "<script")
	assert.NotContains(t, a.Content, "onclick")
	assert.Contains(t, a.Content, "long-form writing")
	assert.NotEmpty(t, a.Excerpt)

	def, _ := db.DefaultList()
	require.NotNil(t, a.ListID)
	assert.Equal(t, def.ID, *a.ListID)

	stored, err := db.GetArticle(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Content, stored.Content)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestTotal.WithLabelValues(metrics.StatusOK)))
}

func TestIngestSameURLTwice(t *testing.T) {
	site := newSite(t)
	db := openTestDB(t)
	p, _, _ := newPipeline(t, db)

	a, err := p.Ingest(context.Background(), site.URL+"/article", "")
	require.NoError(t, err)
	b, err := p.Ingest(context.Background(), site.URL+"/article", "")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestIngestIntoList(t *testing.T) {
	site := newSite(t)
	db := openTestDB(t)
	p, _, _ := newPipeline(t, db)
	later, err := db.CreateList("Later")
	require.NoError(t, err)

	a, err := p.Ingest(context.Background(), site.URL+"/article", later.ID)
	require.NoError(t, err)
	assert.Equal(t, later.ID, *a.ListID)

	_, err = p.Ingest(context.Background(), site.URL+"/article", "missing")
	assert.ErrorIs(t, err, ErrListNotFound)
}

func TestIngestFailuresStoreNothing(t *testing.T) {
	site := newSite(t)
	db := openTestDB(t)
	p, m, _ := newPipeline(t, db)

	_, err := p.Ingest(context.Background(), site.URL+"/nope", "")
	var fe *fetch.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)

	_, err = p.Ingest(context.Background(), site.URL+"/stub", "")
	var ee *extract.Error
	require.ErrorAs(t, err, &ee)
	assert.ErrorIs(t, err, extract.ErrNoContent)

	_, err = p.Ingest(context.Background(), "ftp://example.com/x", "")
	assert.ErrorIs(t, err, fetch.ErrInvalidURL)

	all, err := db.GetArticles(database.ArticleFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.IngestTotal.WithLabelValues(metrics.StatusFailed)))
}

func TestExportEPUB(t *testing.T) {
	site := newSite(t)
	db := openTestDB(t)
	p, m, tmp := newPipeline(t, db)

	a, err := p.Ingest(context.Background(), site.URL+"/article", "")
	require.NoError(t, err)

	pkg, err := p.ExportEPUB(context.Background(), a.ID)
	require.NoError(t, err)

	assert.Equal(t, "tom_jerry.epub", pkg.Filename)
	assert.Len(t, pkg.Images, 1)
	assert.Equal(t, 1, pkg.DroppedImages)

	zr, err := zip.NewReader(bytes.NewReader(pkg.Data), int64(len(pkg.Data)))
	require.NoError(t, err)
	assert.Equal(t, "mimetype", zr.File[0].Name)
	assert.Equal(t, zip.Store, zr.File[0].Method)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, strings.Join(names, ","), "OEBPS/images/image_1.png")

	left, _ := os.ReadDir(tmp)
	assert.Empty(t, left)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportTotal.WithLabelValues(metrics.StatusOK)))
}

func TestExportEPUBNotFound(t *testing.T) {
	db := openTestDB(t)
	cfg := config.Default()
	// An unusable temp dir proves no archive work is attempted.
	cfg.Export.TempDir = filepath.Join(t.TempDir(), "missing")
	m := metrics.New()
	p := New(cfg, db, m)

	pkg, err := p.ExportEPUB(context.Background(), "does-not-exist")
	assert.Nil(t, pkg)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportTotal.WithLabelValues(metrics.StatusNotFound)))

	_, statErr := os.Stat(cfg.Export.TempDir)
	assert.True(t, os.IsNotExist(statErr))
}

type failingStore struct{ ArticleStore }

func (failingStore) GetArticle(string) (*database.Article, error) {
	return nil, errors.New("disk on fire")
}

func TestExportEPUBStoreError(t *testing.T) {
	p, _, _ := newPipeline(t, failingStore{})
	_, err := p.ExportEPUB(context.Background(), "x")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
