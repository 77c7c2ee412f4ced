// Package server exposes the library over HTTP: a JSON API, the library
// page and the reader view.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/readstash/internal/database"
	"github.com/TobiSchelling/readstash/internal/metrics"
	"github.com/TobiSchelling/readstash/internal/pipeline"
	"github.com/TobiSchelling/readstash/internal/sanitize"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

const paramID = "id"

// Server is the HTTP server for the library.
type Server struct {
	db        *database.DB
	pipe      *pipeline.Pipeline
	metrics   *metrics.Metrics
	sanitizer *sanitize.Sanitizer
	validate  *validator.Validate
	pages     map[string]*template.Template
	router    chi.Router
}

// New creates a new Server. m may be nil, in which case /metrics is not
// served.
func New(db *database.DB, pipe *pipeline.Pipeline, m *metrics.Metrics) (*Server, error) {
	funcMap := template.FuncMap{
		"formatDate": formatDate,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "article.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		db:        db,
		pipe:      pipe,
		metrics:   m,
		sanitizer: sanitize.New(),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		pages:     pages,
		router:    chi.NewRouter(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	r.Get("/", s.handleIndex)
	r.Post("/save", s.handleSave)
	r.Get("/articles/{id}", s.handleArticle)

	r.Route("/api", func(r chi.Router) {
		r.Route("/articles", func(r chi.Router) {
			r.Get("/", makeHandler(s.handleListArticles))
			r.Post("/", makeHandler(s.handleCreateArticle))
			r.Delete("/", makeHandler(s.handleDeleteAllArticles))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", makeHandler(s.handleGetArticle))
				r.Patch("/", makeHandler(s.handleUpdateArticle))
				r.Delete("/", makeHandler(s.handleDeleteArticle))
				r.Get("/export/epub", makeHandler(s.handleExportEPUB))
			})
		})
		r.Route("/lists", func(r chi.Router) {
			r.Get("/", makeHandler(s.handleListLists))
			r.Post("/", makeHandler(s.handleCreateList))
			r.Delete("/{id}", makeHandler(s.handleDeleteList))
			r.Post("/{id}/default", makeHandler(s.handleSetDefaultList))
		})
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", makeHandler(s.handleListTags))
			r.Post("/", makeHandler(s.handleCreateTag))
		})
		r.Get("/library/export", makeHandler(s.handleExportLibrary))
		r.Post("/library/import", makeHandler(s.handleImportLibrary))
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// requestLogger logs each request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Error().Str("template", name).Msg("template not found")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Error().Str("template", name).Err(err).Msg("rendering template")
	}
}

func formatDate(unix int64) string {
	if unix == 0 {
		return ""
	}
	return time.Unix(unix, 0).Format("January 2, 2006")
}

// Serve starts the HTTP server on the given port and shuts it down when
// ctx is cancelled.
func Serve(ctx context.Context, db *database.DB, pipe *pipeline.Pipeline, m *metrics.Metrics, port int) error {
	srv, err := New(db, pipe, m)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", "http://"+addr).Msg("server listening")
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	}
}
