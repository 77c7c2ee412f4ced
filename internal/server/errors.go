package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/readstash/internal/database"
	"github.com/TobiSchelling/readstash/internal/epub"
	"github.com/TobiSchelling/readstash/internal/extract"
	"github.com/TobiSchelling/readstash/internal/fetch"
	"github.com/TobiSchelling/readstash/internal/pipeline"
)

// httpError is an error with a status code and a client-facing message.
type httpError struct {
	Code    int
	Message string
	cause   error
}

func (e *httpError) Error() string { return e.Message }

func (e *httpError) Unwrap() error { return e.cause }

func errBadRequest(msg string, cause error) error {
	return &httpError{Code: http.StatusBadRequest, Message: msg, cause: cause}
}

func errNotFound(msg string) error {
	return &httpError{Code: http.StatusNotFound, Message: msg}
}

// appHandler is a handler that reports failure by returning an error.
type appHandler func(w http.ResponseWriter, r *http.Request) error

// makeHandler adapts an appHandler, mapping returned errors to JSON error
// responses.
func makeHandler(h appHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		code, msg := classify(err)
		ev := log.Warn()
		if code >= 500 {
			ev = log.Error()
		}
		ev.Str("method", r.Method).Str("path", r.URL.Path).Int("status", code).Err(err).Msg("request failed")
		respondError(w, code, msg)
	}
}

func classify(err error) (int, string) {
	var (
		he *httpError
		fe *fetch.Error
		ee *extract.Error
		ae *epub.ArchiveError
		ve validator.ValidationErrors
	)
	switch {
	case errors.As(err, &he):
		return he.Code, he.Message
	case errors.As(err, &ve):
		return http.StatusBadRequest, "invalid request: " + ve.Error()
	case errors.As(err, &fe):
		return http.StatusUnprocessableEntity, "Failed to fetch article: " + fe.Error()
	case errors.As(err, &ee):
		return http.StatusUnprocessableEntity, "Failed to parse article content"
	case errors.Is(err, pipeline.ErrNotFound):
		return http.StatusNotFound, "Article not found"
	case errors.Is(err, pipeline.ErrListNotFound):
		return http.StatusBadRequest, "List not found"
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, "Resource not found"
	case errors.As(err, &ae):
		return http.StatusInternalServerError, "Failed to generate EPUB: " + ae.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("marshalling JSON response")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}
