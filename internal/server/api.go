package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/TobiSchelling/readstash/internal/database"
	"github.com/TobiSchelling/readstash/internal/epub"
)

const maxImportBytes = 64 << 20

type createArticleRequest struct {
	URL    string `json:"url" validate:"required,url,startswith=http"`
	ListID string `json:"list_id"`
}

type updateArticleRequest struct {
	ListID    *string `json:"list_id"`
	AddTag    string  `json:"addTag" validate:"omitempty,max=100"`
	RemoveTag string  `json:"removeTag"`
}

type nameRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errBadRequest("invalid request body", err)
	}
	return s.validate.Struct(dst)
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	articles, err := s.db.GetArticles(database.ArticleFilter{ListID: q.Get("list_id"), Tag: q.Get("tag")})
	if err != nil {
		return err
	}
	if articles == nil {
		articles = []database.Article{}
	}
	respondJSON(w, http.StatusOK, articles)
	return nil
}

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) error {
	var req createArticleRequest
	if err := s.decode(r, &req); err != nil {
		return err
	}
	a, err := s.pipe.Ingest(r.Context(), req.URL, req.ListID)
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusCreated, a)
	return nil
}

func (s *Server) handleDeleteAllArticles(w http.ResponseWriter, r *http.Request) error {
	if err := s.db.DeleteAllArticles(); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) article(r *http.Request) (*database.Article, error) {
	a, err := s.db.GetArticle(chi.URLParam(r, paramID))
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errNotFound("Article not found")
	}
	return a, nil
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) error {
	a, err := s.article(r)
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusOK, a)
	return nil
}

func (s *Server) handleUpdateArticle(w http.ResponseWriter, r *http.Request) error {
	a, err := s.article(r)
	if err != nil {
		return err
	}
	var req updateArticleRequest
	if err := s.decode(r, &req); err != nil {
		return err
	}

	if req.ListID != nil {
		list, err := s.db.GetList(*req.ListID)
		if err != nil {
			return err
		}
		if list == nil {
			return errBadRequest("List not found", nil)
		}
		if err := s.db.UpdateArticleList(a.ID, list.ID); err != nil {
			return err
		}
	}
	if name := strings.TrimSpace(req.AddTag); name != "" {
		if _, err := s.db.AddTagToArticle(a.ID, name); err != nil {
			return err
		}
	}
	if req.RemoveTag != "" {
		if err := s.db.RemoveTagFromArticle(a.ID, req.RemoveTag); err != nil {
			return err
		}
	}

	updated, err := s.db.GetArticle(a.ID)
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusOK, updated)
	return nil
}

func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) error {
	a, err := s.article(r)
	if err != nil {
		return err
	}
	if err := s.db.DeleteArticle(a.ID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) handleExportEPUB(w http.ResponseWriter, r *http.Request) error {
	pkg, err := s.pipe.ExportEPUB(r.Context(), chi.URLParam(r, paramID))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", epub.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pkg.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pkg.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pkg.Data)
	return nil
}

func (s *Server) handleListLists(w http.ResponseWriter, r *http.Request) error {
	lists, err := s.db.GetLists()
	if err != nil {
		return err
	}
	if lists == nil {
		lists = []database.List{}
	}
	respondJSON(w, http.StatusOK, lists)
	return nil
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) error {
	var req nameRequest
	if err := s.decode(r, &req); err != nil {
		return err
	}
	l, err := s.db.CreateList(strings.TrimSpace(req.Name))
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusCreated, l)
	return nil
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) error {
	if err := s.db.DeleteList(chi.URLParam(r, paramID)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) handleSetDefaultList(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, paramID)
	if err := s.db.SetDefaultList(id); err != nil {
		return err
	}
	l, err := s.db.GetList(id)
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusOK, l)
	return nil
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) error {
	tags, err := s.db.GetTags()
	if err != nil {
		return err
	}
	if tags == nil {
		tags = []database.Tag{}
	}
	respondJSON(w, http.StatusOK, tags)
	return nil
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) error {
	var req nameRequest
	if err := s.decode(r, &req); err != nil {
		return err
	}
	t, err := s.db.CreateTag(req.Name)
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusCreated, t)
	return nil
}

func (s *Server) handleExportLibrary(w http.ResponseWriter, r *http.Request) error {
	lib, err := s.db.ExportLibrary()
	if err != nil {
		return err
	}
	name := fmt.Sprintf("reader_library_export_%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	respondJSON(w, http.StatusOK, lib)
	return nil
}

func (s *Server) handleImportLibrary(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		return errBadRequest("library file too large or unreadable", err)
	}
	var lib database.Library
	if err := json.Unmarshal(body, &lib); err != nil {
		return errBadRequest("invalid library file", err)
	}
	res, err := s.db.ImportLibrary(&lib, s.pipe.Sanitize)
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusOK, res)
	return nil
}
