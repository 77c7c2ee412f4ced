package server

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/readstash/internal/database"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, r, http.StatusOK, "")
}

func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, status int, flash string) {
	filter := database.ArticleFilter{ListID: r.URL.Query().Get("list_id"), Tag: r.URL.Query().Get("tag")}

	articles, err := s.db.GetArticles(filter)
	if err != nil {
		log.Error().Err(err).Msg("loading articles")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	lists, err := s.db.GetLists()
	if err != nil {
		log.Error().Err(err).Msg("loading lists")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	tags, err := s.db.GetTags()
	if err != nil {
		log.Error().Err(err).Msg("loading tags")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, status, "index.html", map[string]any{
		"Articles": articles,
		"Lists":    lists,
		"Tags":     tags,
		"Filter":   filter,
		"Flash":    flash,
	})
}

// handleSave is the form counterpart of POST /api/articles.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	u := strings.TrimSpace(r.FormValue("url"))
	if err := s.validate.Var(u, "required,url,startswith=http"); err != nil {
		s.renderIndex(w, r, http.StatusBadRequest, "Please enter a valid http(s) URL.")
		return
	}

	a, err := s.pipe.Ingest(r.Context(), u, r.FormValue("list_id"))
	if err != nil {
		code, msg := classify(err)
		s.renderIndex(w, r, code, msg)
		return
	}
	http.Redirect(w, r, "/articles/"+a.ID, http.StatusSeeOther)
}

// handleArticle renders the reader view. Stored content is sanitized again
// before it is trusted as HTML.
func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	a, err := s.article(r)
	if err != nil {
		var he *httpError
		if errors.As(err, &he) {
			http.NotFound(w, r)
			return
		}
		log.Error().Err(err).Msg("loading article")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	lists, _ := s.db.GetLists()
	s.render(w, http.StatusOK, "article.html", map[string]any{
		"Article": a,
		"Content": template.HTML(s.sanitizer.Sanitize(a.Content)), //nolint: gosec
		"Lists":   lists,
		"ID":      chi.URLParam(r, paramID),
	})
}
