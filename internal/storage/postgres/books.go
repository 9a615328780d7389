package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jrsteele09/go-bookstore-api/catalog"
	"github.com/jrsteele09/go-bookstore-api/internal/storage"
)

var _ catalog.Repo = (*BookStore)(nil)

type BookStore struct {
	db DB
}

// titlePattern builds a LIKE pattern matching titles that contain term, case-insensitively.
func titlePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}

func (s *BookStore) Count(ctx context.Context, term string) (int, error) {
	const op = "storage.postgres.CountBooks"

	query := `
		SELECT count(*)
		FROM books
		WHERE lower(title) LIKE $1
	`

	var count int64
	if err := s.db.QueryRow(ctx, query, titlePattern(term)).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(count), nil
}

func (s *BookStore) List(ctx context.Context, term string, offset, limit int) ([]catalog.Book, error) {
	const op = "storage.postgres.ListBooks"

	query := `
		SELECT id, title, description, pages
		FROM books
		WHERE lower(title) LIKE $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.Query(ctx, query, titlePattern(term), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	books := make([]catalog.Book, 0, limit)
	for rows.Next() {
		var b catalog.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Description, &b.Pages); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return books, nil
}

func (s *BookStore) GetByID(ctx context.Context, id int64) (*catalog.Book, error) {
	const op = "storage.postgres.BookByID"

	query := `
		SELECT id, title, description, pages
		FROM books
		WHERE id = $1
	`

	var b catalog.Book
	err := s.db.QueryRow(ctx, query, id).Scan(&b.ID, &b.Title, &b.Description, &b.Pages)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &b, nil
}

func (s *BookStore) Create(ctx context.Context, book *catalog.Book) error {
	const op = "storage.postgres.CreateBook"

	query := `
		INSERT INTO books (title, description, pages)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	if err := s.db.QueryRow(ctx, query, book.Title, book.Description, book.Pages).Scan(&book.ID); err != nil {
		return mapWriteErr(op, err)
	}
	return nil
}

func (s *BookStore) Update(ctx context.Context, book *catalog.Book) error {
	const op = "storage.postgres.UpdateBook"

	query := `
		UPDATE books
		SET title = $2, description = $3, pages = $4
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, query, book.ID, book.Title, book.Description, book.Pages)
	if err != nil {
		return mapWriteErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

func (s *BookStore) Delete(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeleteBook"

	tag, err := s.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}
