package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-bookstore-api/auth"
	"github.com/jrsteele09/go-bookstore-api/catalog"
	"github.com/jrsteele09/go-bookstore-api/catalog/cachestore"
	fakebookrepo "github.com/jrsteele09/go-bookstore-api/catalog/repofake"
	"github.com/jrsteele09/go-bookstore-api/internal/config"
	"github.com/jrsteele09/go-bookstore-api/internal/storage/postgres"
	"github.com/jrsteele09/go-bookstore-api/rentals"
	fakerentalrepo "github.com/jrsteele09/go-bookstore-api/rentals/repofake"
	"github.com/jrsteele09/go-bookstore-api/server"
	"github.com/jrsteele09/go-bookstore-api/token"
	"github.com/jrsteele09/go-bookstore-api/token/refresh"
	"github.com/jrsteele09/go-bookstore-api/users"
	fakeuserrepo "github.com/jrsteele09/go-bookstore-api/users/repofake"
	"github.com/rs/zerolog/log"
)

type repos struct {
	users   users.Repo
	books   catalog.Repo
	rentals rentals.Repo
}

// buildServices wires stores, caches and services from c. PostgreSQL and Redis are used when their
// URLs are set, the in-memory stores otherwise. cleanup releases whatever was opened.
func buildServices(ctx context.Context, c config.Config) (server.Services, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (server.Services, func(), error) {
		cleanup()
		return server.Services{}, func() {}, err
	}

	var (
		r      repos
		health func(context.Context) error
	)
	if dsn := c.GetDatabaseURL(); dsn != "" {
		if c.GetMigrateOnStart() {
			if err := postgres.Migrate(dsn); err != nil {
				return fail(err)
			}
		}
		store, err := postgres.New(ctx, dsn)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, store.Close)
		r = repos{users: store.Users(), books: store.Books(), rentals: store.Rentals()}
		health = store.Ping
		log.Info().Msg("Storage: postgres")
	} else {
		r = repos{
			users:   fakeuserrepo.NewFakeUserRepo(),
			books:   fakebookrepo.NewFakeBookRepo(),
			rentals: fakerentalrepo.NewFakeRentalRepo(),
		}
		log.Warn().Msg("Storage: in-memory, data is lost on restart")
	}

	pages, err := newPageStore(ctx, c, &closers)
	if err != nil {
		return fail(err)
	}

	issuer := token.NewIssuer(
		token.NewHMACSigner(c.GetJWTSecret()),
		c.GetIssuer(),
		c.GetAudience(),
		token.WithAccessTokenExpiry(c.GetAccessTokenExpiry()),
	)
	refreshManager := refresh.NewManager(r.users,
		refresh.WithTokenExpiry(c.GetRefreshTokenExpiry()),
		refresh.WithTokenLength(c.GetRefreshTokenLength()),
	)
	authService, err := auth.NewService(r.users, issuer, refreshManager)
	if err != nil {
		return fail(err)
	}

	cache := catalog.NewCache(pages, r.books, catalog.WithExpiration(catalog.Expiration{
		Sliding:  c.GetCacheSlidingTTL(),
		Absolute: c.GetCacheAbsoluteTTL(),
	}))
	catalogService := catalog.NewService(r.books, cache, catalog.WithInvalidateOnEveryWrite(c.GetInvalidateOnEveryWrite()))
	ledger := rentals.NewLedger(r.rentals, r.books, rentals.WithCap(c.GetRentalCap()))

	return server.Services{
		Users:   r.users,
		Auth:    authService,
		Issuer:  issuer,
		Catalog: catalogService,
		Ledger:  ledger,
		Health:  health,
	}, cleanup, nil
}

func newPageStore(ctx context.Context, c config.Config, closers *[]func()) (catalog.PageStore, error) {
	if url := c.GetRedisURL(); url != "" {
		client, err := cachestore.NewRedisClient(ctx, url)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, func() { _ = client.Close() })
		log.Info().Msg("Catalog cache: redis")
		return cachestore.NewRedis(client), nil
	}

	mem, err := cachestore.NewMemory(c.GetCacheMaxCost())
	if err != nil {
		return nil, fmt.Errorf("[newPageStore] %w", err)
	}
	*closers = append(*closers, mem.Close)
	log.Info().Msg("Catalog cache: in-process ristretto")
	return mem, nil
}
