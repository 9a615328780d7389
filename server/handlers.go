package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/jrsteele09/go-bookstore-api/internal/errors"
	"github.com/jrsteele09/go-bookstore-api/users"
	"github.com/rs/zerolog/hlog"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	maxBodyBytes    = 1 << 20
)

// PolicyHandler answers 200 to a caller that passed the role check for role.
func (s *Server) PolicyHandler(role users.RoleType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		writeJSON(w, http.StatusOK, map[string]string{
			"policy":  string(role),
			"subject": claims.Name,
		})
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.health != nil {
			if err := s.health(r.Context()); err != nil {
				hlog.FromRequest(r).Error().Err(err).Msg("health check failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

// writeServiceError maps a service error to its status code. Detail of unexpected errors is logged, never returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidRequest):
		writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrUnauthorized):
		unauthorized(w, "Invalid credentials")
	case errors.Is(err, apperrors.ErrForbidden):
		writeJSONError(w, "forbidden", "Insufficient role", http.StatusForbidden)
	case errors.Is(err, apperrors.ErrRoleNotFound):
		writeJSONError(w, "role_not_found", "No role assigned", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrBookNotFound):
		writeJSONError(w, "book_not_found", "Book not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrNotFound):
		writeJSONError(w, "not_found", "Not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrLimitExceeded):
		writeJSONError(w, "limit_exceeded", err.Error(), http.StatusConflict)
	case errors.Is(err, apperrors.ErrConflict):
		writeJSONError(w, "conflict", err.Error(), http.StatusConflict)
	default:
		hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSONError(w, "server_error", "An unexpected error occurred", http.StatusInternalServerError)
	}
}

// decodeJSON reads a single JSON object from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", apperrors.ErrInvalidRequest)
		}
		return fmt.Errorf("%w: malformed JSON body", apperrors.ErrInvalidRequest)
	}
	return nil
}

func int64Param(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", apperrors.ErrInvalidRequest, name)
	}
	return v, nil
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", apperrors.ErrInvalidRequest, name)
	}
	return v, nil
}
