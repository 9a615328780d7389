package rentals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-bookstore-api/internal/keylock"
	"github.com/jrsteele09/go-bookstore-api/internal/metrics"
	"github.com/jrsteele09/go-bookstore-api/internal/storage"
	"github.com/rs/zerolog/log"
)

const DefaultCap = 5

// Ledger enforces the per-user rental cap. Rent and Cancel for one user are serialized so the
// count, duplicate check and insert act as one step.
type Ledger struct {
	repo    Repo
	books   Books
	locks   *keylock.Mutex
	cap     int
	nowFunc func() time.Time
}

type LedgerOption func(*Ledger)

func WithCap(limit int) LedgerOption {
	return func(l *Ledger) {
		l.cap = limit
	}
}

func WithNowFunc(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.nowFunc = now
	}
}

func NewLedger(repo Repo, books Books, options ...LedgerOption) *Ledger {
	l := &Ledger{
		repo:  repo,
		books: books,
		locks: keylock.New(),
	}
	for _, opt := range options {
		opt(l)
	}
	if l.cap <= 0 {
		l.cap = DefaultCap
	}
	if l.nowFunc == nil {
		l.nowFunc = time.Now
	}
	return l
}

// Cap is the maximum number of active rentals per user.
func (l *Ledger) Cap() int {
	return l.cap
}

// CanRent reports whether userID is below the cap. Without the user's lock the answer is advisory.
func (l *Ledger) CanRent(ctx context.Context, userID string) (bool, error) {
	count, err := l.repo.CountByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("[Ledger.CanRent] %w", err)
	}
	return count < l.cap, nil
}

// Rent records that userID rented bookID. Checks run in order: the book exists, the user is under the
// cap, the pair is not already rented.
func (l *Ledger) Rent(ctx context.Context, userID string, bookID int64) (Outcome, error) {
	outcome, err := l.rent(ctx, userID, bookID)
	if err != nil {
		observe("rent", "error")
		return outcome, err
	}
	observe("rent", outcome.String())
	log.Ctx(ctx).Debug().Str("user_id", userID).Int64("book_id", bookID).Stringer("outcome", outcome).Msg("rent")
	return outcome, nil
}

func (l *Ledger) rent(ctx context.Context, userID string, bookID int64) (Outcome, error) {
	if _, err := l.books.GetByID(ctx, bookID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return NotFound, nil
		}
		return NotFound, fmt.Errorf("[Ledger.Rent] GetByID: %w", err)
	}

	unlock := l.locks.Lock(userID)
	defer unlock()

	ok, err := l.CanRent(ctx, userID)
	if err != nil {
		return LimitExceeded, err
	}
	if !ok {
		return LimitExceeded, nil
	}

	exists, err := l.repo.Exists(ctx, userID, bookID)
	if err != nil {
		return Conflict, fmt.Errorf("[Ledger.Rent] Exists: %w", err)
	}
	if exists {
		return Conflict, nil
	}

	err = l.repo.Insert(ctx, Record{UserID: userID, BookID: bookID, DateAdded: l.nowFunc().UTC()}, l.cap)
	if errors.Is(err, storage.ErrAlreadyExists) {
		return Conflict, nil
	}
	if errors.Is(err, storage.ErrLimitReached) {
		// another instance rented in between; the store holds the cap across processes
		return LimitExceeded, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		// book deleted since the existence check
		return NotFound, nil
	}
	if err != nil {
		return Conflict, fmt.Errorf("[Ledger.Rent] Insert: %w", err)
	}
	return OK, nil
}

// Cancel removes the rental of bookID by userID.
func (l *Ledger) Cancel(ctx context.Context, userID string, bookID int64) (Outcome, error) {
	unlock := l.locks.Lock(userID)
	defer unlock()

	err := l.repo.Delete(ctx, userID, bookID)
	if errors.Is(err, storage.ErrNotFound) {
		observe("cancel", NotFound.String())
		return NotFound, nil
	}
	if err != nil {
		observe("cancel", "error")
		return NotFound, fmt.Errorf("[Ledger.Cancel] %w", err)
	}
	observe("cancel", OK.String())
	return OK, nil
}

func (l *Ledger) List(ctx context.Context, userID string) ([]Record, error) {
	records, err := l.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("[Ledger.List] %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func observe(operation, outcome string) {
	metrics.RentalOutcomes.WithLabelValues(operation, outcome).Inc()
}
