package fakebookrepo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jrsteele09/go-bookstore-api/catalog"
	"github.com/jrsteele09/go-bookstore-api/internal/storage"
)

var _ catalog.Repo = (*FakeBookRepo)(nil)

type FakeBookRepo struct {
	books  map[int64]catalog.Book
	nextID int64
	lock   sync.RWMutex

	countCalls atomic.Int64
	listCalls  atomic.Int64
}

func NewFakeBookRepo() *FakeBookRepo {
	return &FakeBookRepo{books: make(map[int64]catalog.Book)}
}

// Queries is the number of listing queries (Count plus List) served so far.
func (br *FakeBookRepo) Queries() int64 {
	return br.countCalls.Load() + br.listCalls.Load()
}

// ListCalls is the number of List calls served so far.
func (br *FakeBookRepo) ListCalls() int64 {
	return br.listCalls.Load()
}

func (br *FakeBookRepo) Count(_ context.Context, term string) (int, error) {
	br.countCalls.Add(1)
	br.lock.RLock()
	defer br.lock.RUnlock()
	return len(br.matching(term)), nil
}

func (br *FakeBookRepo) List(_ context.Context, term string, offset, limit int) ([]catalog.Book, error) {
	br.listCalls.Add(1)
	br.lock.RLock()
	defer br.lock.RUnlock()

	matches := br.matching(term)
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("[FakeBookRepo.List] negative offset %d or limit %d", offset, limit)
	}
	if offset >= len(matches) {
		return []catalog.Book{}, nil
	}
	end := offset + limit
	if end > len(matches) || end < offset {
		end = len(matches)
	}
	return append([]catalog.Book(nil), matches[offset:end]...), nil
}

func (br *FakeBookRepo) GetByID(_ context.Context, id int64) (*catalog.Book, error) {
	br.lock.RLock()
	defer br.lock.RUnlock()

	b, ok := br.books[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &b, nil
}

func (br *FakeBookRepo) Create(_ context.Context, book *catalog.Book) error {
	br.lock.Lock()
	defer br.lock.Unlock()

	br.nextID++
	book.ID = br.nextID
	br.books[book.ID] = *book
	return nil
}

func (br *FakeBookRepo) Update(_ context.Context, book *catalog.Book) error {
	br.lock.Lock()
	defer br.lock.Unlock()

	if _, ok := br.books[book.ID]; !ok {
		return storage.ErrNotFound
	}
	br.books[book.ID] = *book
	return nil
}

func (br *FakeBookRepo) Delete(_ context.Context, id int64) error {
	br.lock.Lock()
	defer br.lock.Unlock()

	if _, ok := br.books[id]; !ok {
		return storage.ErrNotFound
	}
	delete(br.books, id)
	return nil
}

func (br *FakeBookRepo) matching(term string) []catalog.Book {
	term = strings.ToLower(term)
	matches := make([]catalog.Book, 0, len(br.books))
	for _, b := range br.books {
		if term == "" || strings.Contains(strings.ToLower(b.Title), term) {
			matches = append(matches, b)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches
}
