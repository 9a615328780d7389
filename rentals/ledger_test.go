package rentals_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-bookstore-api/catalog"
	fakebookrepo "github.com/jrsteele09/go-bookstore-api/catalog/repofake"
	"github.com/jrsteele09/go-bookstore-api/rentals"
	fakerentalrepo "github.com/jrsteele09/go-bookstore-api/rentals/repofake"
	"github.com/stretchr/testify/require"
)

const testUserID = "user-1"

type testFixture struct {
	ctx    context.Context
	now    time.Time
	books  *fakebookrepo.FakeBookRepo
	repo   *fakerentalrepo.FakeRentalRepo
	ledger *rentals.Ledger
}

func setupTestFixture(t *testing.T, bookCount int) *testFixture {
	t.Helper()
	f := &testFixture{
		ctx:   context.Background(),
		now:   time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC),
		books: fakebookrepo.NewFakeBookRepo(),
		repo:  fakerentalrepo.NewFakeRentalRepo(),
	}
	for i := 1; i <= bookCount; i++ {
		require.NoError(t, f.books.Create(f.ctx, &catalog.Book{Title: fmt.Sprintf("Book %d", i)}))
	}
	f.ledger = rentals.NewLedger(f.repo, f.books, rentals.WithNowFunc(func() time.Time { return f.now }))
	return f
}

func (f *testFixture) count(t *testing.T, userID string) int {
	t.Helper()
	n, err := f.repo.CountByUser(f.ctx, userID)
	require.NoError(t, err)
	return n
}

func TestRent(t *testing.T) {
	f := setupTestFixture(t, 1)

	outcome, err := f.ledger.Rent(f.ctx, testUserID, 1)
	require.NoError(t, err)
	require.Equal(t, rentals.OK, outcome)

	records, err := f.ledger.List(f.ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, []rentals.Record{{UserID: testUserID, BookID: 1, DateAdded: f.now}}, records)
}

func TestRent_UnknownBook(t *testing.T) {
	f := setupTestFixture(t, 1)

	outcome, err := f.ledger.Rent(f.ctx, testUserID, 42)
	require.NoError(t, err)
	require.Equal(t, rentals.NotFound, outcome)
	require.Zero(t, f.count(t, testUserID))
}

func TestRent_CapReached(t *testing.T) {
	f := setupTestFixture(t, 6)

	for id := int64(1); id <= 5; id++ {
		outcome, err := f.ledger.Rent(f.ctx, testUserID, id)
		require.NoError(t, err)
		require.Equal(t, rentals.OK, outcome)
	}

	ok, err := f.ledger.CanRent(f.ctx, testUserID)
	require.NoError(t, err)
	require.False(t, ok)

	outcome, err := f.ledger.Rent(f.ctx, testUserID, 6)
	require.NoError(t, err)
	require.Equal(t, rentals.LimitExceeded, outcome)
	require.Equal(t, 5, f.count(t, testUserID))

	// another user is unaffected
	outcome, err = f.ledger.Rent(f.ctx, "user-2", 6)
	require.NoError(t, err)
	require.Equal(t, rentals.OK, outcome)
}

func TestRent_CapCheckedBeforeDuplicate(t *testing.T) {
	f := setupTestFixture(t, 5)

	for id := int64(1); id <= 5; id++ {
		_, err := f.ledger.Rent(f.ctx, testUserID, id)
		require.NoError(t, err)
	}

	outcome, err := f.ledger.Rent(f.ctx, testUserID, 1)
	require.NoError(t, err)
	require.Equal(t, rentals.LimitExceeded, outcome)
}

func TestRent_Duplicate(t *testing.T) {
	f := setupTestFixture(t, 1)

	_, err := f.ledger.Rent(f.ctx, testUserID, 1)
	require.NoError(t, err)

	outcome, err := f.ledger.Rent(f.ctx, testUserID, 1)
	require.NoError(t, err)
	require.Equal(t, rentals.Conflict, outcome)
	require.Equal(t, 1, f.count(t, testUserID))
}

// blindRepo never reports existing rows, so duplicates only surface as insert conflicts.
type blindRepo struct {
	*fakerentalrepo.FakeRentalRepo
}

func (blindRepo) Exists(context.Context, string, int64) (bool, error) {
	return false, nil
}

func TestRent_InsertConflictIsConflict(t *testing.T) {
	f := setupTestFixture(t, 1)
	ledger := rentals.NewLedger(blindRepo{f.repo}, f.books)

	_, err := ledger.Rent(f.ctx, testUserID, 1)
	require.NoError(t, err)

	outcome, err := ledger.Rent(f.ctx, testUserID, 1)
	require.NoError(t, err)
	require.Equal(t, rentals.Conflict, outcome)
}

// staleCountRepo undercounts, as a count read before another instance's insert would.
type staleCountRepo struct {
	*fakerentalrepo.FakeRentalRepo
}

func (staleCountRepo) CountByUser(context.Context, string) (int, error) {
	return 0, nil
}

func TestRent_StoreHoldsCapWhenCountIsStale(t *testing.T) {
	f := setupTestFixture(t, 3)
	ledger := rentals.NewLedger(staleCountRepo{f.repo}, f.books, rentals.WithCap(2))

	for id := int64(1); id <= 2; id++ {
		outcome, err := ledger.Rent(f.ctx, testUserID, id)
		require.NoError(t, err)
		require.Equal(t, rentals.OK, outcome)
	}

	outcome, err := ledger.Rent(f.ctx, testUserID, 3)
	require.NoError(t, err)
	require.Equal(t, rentals.LimitExceeded, outcome)
	require.Equal(t, 2, f.count(t, testUserID))
}

type failingRepo struct {
	*fakerentalrepo.FakeRentalRepo
	err error
}

func (r failingRepo) CountByUser(context.Context, string) (int, error) {
	return 0, r.err
}

func TestRent_StoreFailureIsError(t *testing.T) {
	f := setupTestFixture(t, 1)
	boom := errors.New("db down")
	ledger := rentals.NewLedger(failingRepo{f.repo, boom}, f.books)

	_, err := ledger.Rent(f.ctx, testUserID, 1)
	require.ErrorIs(t, err, boom)
}

func TestRent_ConcurrentRequestsNeverExceedCap(t *testing.T) {
	f := setupTestFixture(t, 20)

	var wg sync.WaitGroup
	results := make(chan rentals.Outcome, 20)
	for id := int64(1); id <= 20; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			outcome, err := f.ledger.Rent(f.ctx, testUserID, id)
			if err == nil {
				results <- outcome
			}
		}(id)
	}
	wg.Wait()
	close(results)

	okCount := 0
	for outcome := range results {
		if outcome == rentals.OK {
			okCount++
		} else {
			require.Equal(t, rentals.LimitExceeded, outcome)
		}
	}
	require.Equal(t, rentals.DefaultCap, okCount)
	require.Equal(t, rentals.DefaultCap, f.count(t, testUserID))
}

func TestRent_ConcurrentDuplicatesYieldOneRow(t *testing.T) {
	f := setupTestFixture(t, 1)

	var wg sync.WaitGroup
	results := make(chan rentals.Outcome, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := f.ledger.Rent(f.ctx, testUserID, 1)
			if err == nil {
				results <- outcome
			}
		}()
	}
	wg.Wait()
	close(results)

	okCount := 0
	for outcome := range results {
		if outcome == rentals.OK {
			okCount++
		}
	}
	require.Equal(t, 1, okCount)
	require.Equal(t, 1, f.count(t, testUserID))
}

func TestCancel(t *testing.T) {
	f := setupTestFixture(t, 1)

	outcome, err := f.ledger.Cancel(f.ctx, testUserID, 1)
	require.NoError(t, err)
	require.Equal(t, rentals.NotFound, outcome)

	_, err = f.ledger.Rent(f.ctx, testUserID, 1)
	require.NoError(t, err)

	outcome, err = f.ledger.Cancel(f.ctx, testUserID, 1)
	require.NoError(t, err)
	require.Equal(t, rentals.OK, outcome)
	require.Zero(t, f.count(t, testUserID))

	records, err := f.ledger.List(f.ctx, testUserID)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestWithCap(t *testing.T) {
	f := setupTestFixture(t, 2)
	ledger := rentals.NewLedger(f.repo, f.books, rentals.WithCap(1))
	require.Equal(t, 1, ledger.Cap())

	outcome, err := ledger.Rent(f.ctx, testUserID, 1)
	require.NoError(t, err)
	require.Equal(t, rentals.OK, outcome)

	outcome, err = ledger.Rent(f.ctx, testUserID, 2)
	require.NoError(t, err)
	require.Equal(t, rentals.LimitExceeded, outcome)
}
