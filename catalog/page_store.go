package catalog

import (
	"context"
	"time"
)

// Expiration describes sliding-within-absolute expiry. Every hit extends an entry by Sliding, but never
// beyond Absolute after it was stored.
type Expiration struct {
	Sliding  time.Duration
	Absolute time.Duration
}

// Remaining is the TTL an entry stored with deadline should get at now.
func (e Expiration) Remaining(now, deadline time.Time) time.Duration {
	left := deadline.Sub(now)
	if e.Sliding < left {
		return e.Sliding
	}
	return left
}

// PageStore holds cached catalog pages. Implementations apply Expiration themselves, extending the sliding window on hits.
type PageStore interface {
	Get(ctx context.Context, key string) (page *Page, ok bool, err error)
	Set(ctx context.Context, key string, page *Page, exp Expiration) error
	Delete(ctx context.Context, keys ...string) error
}
