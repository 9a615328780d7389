package catalog

import "context"

// Repo is the relational catalog store. Search matches titles containing the lower-cased term,
// case-insensitively. An empty term matches everything. List orders by ID.
// Lookups and writes on a missing ID return storage.ErrNotFound.
type Repo interface {
	Count(ctx context.Context, term string) (int, error)
	List(ctx context.Context, term string, offset, limit int) ([]Book, error)
	GetByID(ctx context.Context, id int64) (*Book, error)
	Create(ctx context.Context, book *Book) error
	Update(ctx context.Context, book *Book) error
	Delete(ctx context.Context, id int64) error
}
