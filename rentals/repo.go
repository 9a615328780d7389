package rentals

import (
	"context"

	"github.com/jrsteele09/go-bookstore-api/catalog"
)

// Repo is the rental ledger store. Insert reports storage.ErrAlreadyExists for a duplicate
// (user, book) pair and storage.ErrLimitReached when the user already holds limit rentals.
// Delete reports storage.ErrNotFound for a missing pair.
type Repo interface {
	CountByUser(ctx context.Context, userID string) (int, error)
	Exists(ctx context.Context, userID string, bookID int64) (bool, error)
	Insert(ctx context.Context, record Record, limit int) error
	Delete(ctx context.Context, userID string, bookID int64) error
	ListByUser(ctx context.Context, userID string) ([]Record, error)
}

// Books is the part of the catalog store the ledger needs to confirm a book exists.
type Books interface {
	GetByID(ctx context.Context, id int64) (*catalog.Book, error)
}
