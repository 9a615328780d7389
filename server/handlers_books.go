package server

import (
	"net/http"

	"github.com/jrsteele09/go-bookstore-api/catalog"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// ListBooksHandler serves GET /api/books?page=&pageSize=&searchTerm= from the catalog cache.
func (s *Server) ListBooksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := intQuery(r, "page", defaultPage)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		pageSize, err := intQuery(r, "pageSize", defaultPageSize)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		result, err := s.catalog.List(r.Context(), page, pageSize, r.URL.Query().Get("searchTerm"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) GetBookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		book, err := s.catalog.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, book)
	}
}

func (s *Server) CreateBookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var book catalog.Book
		if err := decodeJSON(w, r, &book); err != nil {
			writeServiceError(w, r, err)
			return
		}
		book.ID = 0

		if err := s.catalog.Create(r.Context(), &book); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, book)
	}
}

func (s *Server) UpdateBookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		var book catalog.Book
		if err := decodeJSON(w, r, &book); err != nil {
			writeServiceError(w, r, err)
			return
		}
		book.ID = id

		if err := s.catalog.Update(r.Context(), &book); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) DeleteBookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if err := s.catalog.Delete(r.Context(), id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
