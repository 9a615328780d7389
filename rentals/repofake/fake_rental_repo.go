package fakerentalrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/go-bookstore-api/internal/storage"
	"github.com/jrsteele09/go-bookstore-api/rentals"
)

var _ rentals.Repo = (*FakeRentalRepo)(nil)

type rentalKey struct {
	userID string
	bookID int64
}

type FakeRentalRepo struct {
	records map[rentalKey]rentals.Record
	lock    sync.RWMutex
}

func NewFakeRentalRepo() *FakeRentalRepo {
	return &FakeRentalRepo{records: make(map[rentalKey]rentals.Record)}
}

func (rr *FakeRentalRepo) CountByUser(_ context.Context, userID string) (int, error) {
	rr.lock.RLock()
	defer rr.lock.RUnlock()

	count := 0
	for k := range rr.records {
		if k.userID == userID {
			count++
		}
	}
	return count, nil
}

func (rr *FakeRentalRepo) Exists(_ context.Context, userID string, bookID int64) (bool, error) {
	rr.lock.RLock()
	defer rr.lock.RUnlock()

	_, ok := rr.records[rentalKey{userID, bookID}]
	return ok, nil
}

func (rr *FakeRentalRepo) Insert(_ context.Context, record rentals.Record, limit int) error {
	rr.lock.Lock()
	defer rr.lock.Unlock()

	k := rentalKey{record.UserID, record.BookID}
	if _, ok := rr.records[k]; ok {
		return storage.ErrAlreadyExists
	}
	held := 0
	for existing := range rr.records {
		if existing.userID == record.UserID {
			held++
		}
	}
	if held >= limit {
		return storage.ErrLimitReached
	}
	rr.records[k] = record
	return nil
}

func (rr *FakeRentalRepo) Delete(_ context.Context, userID string, bookID int64) error {
	rr.lock.Lock()
	defer rr.lock.Unlock()

	k := rentalKey{userID, bookID}
	if _, ok := rr.records[k]; !ok {
		return storage.ErrNotFound
	}
	delete(rr.records, k)
	return nil
}

func (rr *FakeRentalRepo) ListByUser(_ context.Context, userID string) ([]rentals.Record, error) {
	rr.lock.RLock()
	defer rr.lock.RUnlock()

	out := make([]rentals.Record, 0)
	for k, r := range rr.records {
		if k.userID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookID < out[j].BookID })
	return out, nil
}
