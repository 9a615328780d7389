package postgres

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-bookstore-api/internal/storage"
	"github.com/jrsteele09/go-bookstore-api/rentals"
)

var _ rentals.Repo = (*RentalStore)(nil)

// RentalStore keeps one row per (user, book). The composite primary key rejects duplicates and Insert
// holds the cap even when two instances race past the ledger's in-process lock.
type RentalStore struct {
	db DB
}

func (s *RentalStore) CountByUser(ctx context.Context, userID string) (int, error) {
	const op = "storage.postgres.CountRentals"

	var count int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM rentals WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(count), nil
}

func (s *RentalStore) Exists(ctx context.Context, userID string, bookID int64) (bool, error) {
	const op = "storage.postgres.RentalExists"

	query := `SELECT EXISTS (SELECT 1 FROM rentals WHERE user_id = $1 AND book_id = $2)`

	var exists bool
	if err := s.db.QueryRow(ctx, query, userID, bookID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// Insert takes a per-user advisory lock before counting, so rents for one user are serialised across
// every instance until the transaction ends.
func (s *RentalStore) Insert(ctx context.Context, record rentals.Record, limit int) (err error) {
	const op = "storage.postgres.InsertRental"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, record.UserID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `
		INSERT INTO rentals (user_id, book_id, date_added)
		SELECT $1::text, $2::bigint, $3::timestamptz
		WHERE (SELECT count(*) FROM rentals WHERE user_id = $1) < $4
	`
	tag, err := tx.Exec(ctx, query, record.UserID, record.BookID, record.DateAdded, limit)
	if err != nil {
		return mapWriteErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrLimitReached)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *RentalStore) Delete(ctx context.Context, userID string, bookID int64) error {
	const op = "storage.postgres.DeleteRental"

	tag, err := s.db.Exec(ctx, `DELETE FROM rentals WHERE user_id = $1 AND book_id = $2`, userID, bookID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

func (s *RentalStore) ListByUser(ctx context.Context, userID string) ([]rentals.Record, error) {
	const op = "storage.postgres.ListRentals"

	query := `
		SELECT user_id, book_id, date_added
		FROM rentals
		WHERE user_id = $1
		ORDER BY date_added, book_id
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	records := make([]rentals.Record, 0)
	for rows.Next() {
		var r rentals.Record
		if err := rows.Scan(&r.UserID, &r.BookID, &r.DateAdded); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}
