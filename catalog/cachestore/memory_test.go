package cachestore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-bookstore-api/catalog"
	"github.com/jrsteele09/go-bookstore-api/catalog/cachestore"
	fakebookrepo "github.com/jrsteele09/go-bookstore-api/catalog/repofake"
	"github.com/stretchr/testify/require"
)

var testExpiration = catalog.Expiration{Sliding: 20 * time.Minute, Absolute: 40 * time.Minute}

func testPage() *catalog.Page {
	return &catalog.Page{
		Items:      []catalog.Book{{ID: 1, Title: "Dune", Pages: 412}},
		PageNumber: 1,
		TotalPages: 1,
		TotalCount: 1,
	}
}

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	store, err := cachestore.NewMemory(100)
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "books_p1_s10_all", testPage(), testExpiration))

	got, ok, err := store.Get(ctx, "books_p1_s10_all")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, testPage(), got)

	require.NoError(t, store.Delete(ctx, "books_p1_s10_all"))
	_, ok, err = store.Get(ctx, "books_p1_s10_all")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemory_ReturnsIndependentCopies(t *testing.T) {
	ctx := context.Background()
	store, err := cachestore.NewMemory(100)
	require.NoError(t, err)
	defer store.Close()

	page := testPage()
	require.NoError(t, store.Set(ctx, "k", page, testExpiration))
	page.Items[0].Title = "changed after set"

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	got.Items[0].Title = "changed after get"

	again, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Dune", again.Items[0].Title)
}

func TestMemory_AbsoluteDeadline(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store, err := cachestore.NewMemory(100, cachestore.WithMemoryNowFunc(func() time.Time { return now }))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "k", testPage(), testExpiration))

	now = now.Add(39 * time.Minute)
	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemory_SlidingWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store, err := cachestore.NewMemory(100, cachestore.WithMemoryNowFunc(func() time.Time { return now }))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "k", testPage(), testExpiration))

	// each hit inside the window pushes it out again, up to the absolute deadline
	for i := 0; i < 2; i++ {
		now = now.Add(15 * time.Minute)
		_, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok, "hit %d", i)
	}

	require.NoError(t, store.Set(ctx, "idle", testPage(), testExpiration))
	now = now.Add(20 * time.Minute)
	_, ok, err := store.Get(ctx, "idle")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemory_InvalidateAllDuringReads(t *testing.T) {
	ctx := context.Background()
	store, err := cachestore.NewMemory(1000)
	require.NoError(t, err)
	defer store.Close()

	repo := fakebookrepo.NewFakeBookRepo()
	require.NoError(t, repo.Create(ctx, &catalog.Book{Title: "Dune", Pages: 412}))
	cache := catalog.NewCache(store, repo, catalog.WithExpiration(testExpiration))

	for round := 0; round < 50; round++ {
		key := catalog.Key(1, 10, fmt.Sprintf("r%d", round))
		_, err := cache.Get(ctx, 1, 10, fmt.Sprintf("r%d", round))
		require.NoError(t, err)
		require.Equal(t, []string{key}, cache.RegisteredKeys())

		stop := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
						_, _, _ = store.Get(ctx, key)
					}
				}
			}()
		}

		require.NoError(t, cache.InvalidateAll(ctx))
		close(stop)
		wg.Wait()

		require.Empty(t, cache.RegisteredKeys())
		_, ok, err := store.Get(ctx, key)
		require.NoError(t, err)
		require.False(t, ok, "round %d: page survived invalidation", round)
	}
}
