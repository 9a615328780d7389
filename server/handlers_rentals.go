package server

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-bookstore-api/internal/errors"
	"github.com/jrsteele09/go-bookstore-api/internal/storage"
	"github.com/jrsteele09/go-bookstore-api/rentals"
)

type rentalResponse struct {
	BookID  int64  `json:"bookId"`
	Outcome string `json:"outcome"`
}

func (s *Server) RentBookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.callerID(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		bookID, err := int64Param(r, "bookId")
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		outcome, err := s.ledger.Rent(r.Context(), userID, bookID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		switch outcome {
		case rentals.OK:
			writeJSON(w, http.StatusCreated, rentalResponse{BookID: bookID, Outcome: outcome.String()})
		case rentals.NotFound:
			writeJSONError(w, "book_not_found", "Book not found", http.StatusNotFound)
		case rentals.LimitExceeded:
			writeJSONError(w, "limit_exceeded", fmt.Sprintf("At most %d books may be rented at once", s.ledger.Cap()), http.StatusConflict)
		case rentals.Conflict:
			writeJSONError(w, "already_rented", "Book is already rented by this user", http.StatusConflict)
		default:
			writeServiceError(w, r, fmt.Errorf("unexpected rent outcome %s", outcome))
		}
	}
}

func (s *Server) CancelRentalHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.callerID(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		bookID, err := int64Param(r, "bookId")
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		outcome, err := s.ledger.Cancel(r.Context(), userID, bookID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if outcome == rentals.NotFound {
			writeJSONError(w, "rental_not_found", "No such rental", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ListRentalsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.callerID(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		records, err := s.ledger.List(r.Context(), userID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

// callerID resolves the authenticated caller's user id from the name claim.
func (s *Server) callerID(r *http.Request) (string, error) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		return "", apperrors.ErrUnauthorized
	}
	user, err := s.users.GetByEmail(r.Context(), claims.Name)
	if errors.Is(err, storage.ErrNotFound) {
		return "", apperrors.ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("[Server.callerID] %w", err)
	}
	return user.ID, nil
}
