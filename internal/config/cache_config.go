package config

import "time"

type CacheConfig interface {
	GetCacheSlidingTTL() time.Duration
	GetCacheAbsoluteTTL() time.Duration
	GetCacheMaxCost() int64
	GetRedisURL() string
	GetInvalidateOnEveryWrite() bool
}

type RentalConfig interface {
	GetRentalCap() int
}

type Cache struct {
	SlidingTTL           time.Duration `yaml:"sliding_ttl" env:"CACHE_SLIDING_TTL" env-default:"20m"`
	AbsoluteTTL          time.Duration `yaml:"absolute_ttl" env:"CACHE_ABSOLUTE_TTL" env-default:"40m"`
	MaxCost              int64         `yaml:"max_cost" env:"CACHE_MAX_COST" env-default:"10000"`
	RedisURL             string        `yaml:"redis_url" env:"REDIS_URL"`
	InvalidateEveryWrite bool          `yaml:"invalidate_on_every_write" env:"CATALOG_INVALIDATE_ON_EVERY_WRITE" env-default:"false"`
}

var _ CacheConfig = Cache{}

func (c Cache) GetCacheSlidingTTL() time.Duration {
	return c.SlidingTTL
}

func (c Cache) GetCacheAbsoluteTTL() time.Duration {
	return c.AbsoluteTTL
}

func (c Cache) GetCacheMaxCost() int64 {
	return c.MaxCost
}

func (c Cache) GetRedisURL() string {
	return c.RedisURL
}

// GetInvalidateOnEveryWrite reports whether update and delete also clear the catalog cache.
// Only creation does by default.
func (c Cache) GetInvalidateOnEveryWrite() bool {
	return c.InvalidateEveryWrite
}

type Rentals struct {
	Cap int `yaml:"cap" env:"RENTAL_CAP" env-default:"5"`
}

var _ RentalConfig = Rentals{}

func (r Rentals) GetRentalCap() int {
	return r.Cap
}
