package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-bookstore-api/catalog"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "bookstore:"

var _ catalog.PageStore = (*Redis)(nil)

// redisEnvelope carries the absolute deadline with the page, since Redis only knows the current TTL.
type redisEnvelope struct {
	Page     *catalog.Page `json:"page"`
	Deadline time.Time     `json:"deadline"`
	Sliding  time.Duration `json:"sliding"`
}

// Redis stores pages as JSON so several API instances can share them.
type Redis struct {
	client    *redis.Client
	keyPrefix string
	nowFunc   func() time.Time
}

type RedisOption func(*Redis)

func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.keyPrefix = prefix
	}
}

func WithRedisNowFunc(now func() time.Time) RedisOption {
	return func(r *Redis) {
		r.nowFunc = now
	}
}

func NewRedis(client *redis.Client, options ...RedisOption) *Redis {
	r := &Redis{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		nowFunc:   time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// NewRedisClient parses url and checks the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("[cachestore.NewRedisClient] ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("[cachestore.NewRedisClient] Ping: %w", err)
	}
	return client, nil
}

func (r *Redis) Get(ctx context.Context, key string) (*catalog.Page, bool, error) {
	k := r.keyPrefix + key

	data, err := r.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("[Redis.Get] %w", err)
	}

	var env redisEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		_ = r.client.Del(ctx, k).Err()
		return nil, false, fmt.Errorf("[Redis.Get] decode %s: %w", key, err)
	}

	now := r.nowFunc()
	if !now.Before(env.Deadline) {
		_ = r.client.Del(ctx, k).Err()
		return nil, false, nil
	}

	exp := catalog.Expiration{Sliding: env.Sliding}
	if err := r.client.Expire(ctx, k, exp.Remaining(now, env.Deadline)).Err(); err != nil {
		return nil, false, fmt.Errorf("[Redis.Get] Expire: %w", err)
	}
	return env.Page, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, page *catalog.Page, exp catalog.Expiration) error {
	now := r.nowFunc()
	env := redisEnvelope{
		Page:     page,
		Deadline: now.Add(exp.Absolute),
		Sliding:  exp.Sliding,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("[Redis.Set] encode: %w", err)
	}
	if err := r.client.Set(ctx, r.keyPrefix+key, data, exp.Remaining(now, env.Deadline)).Err(); err != nil {
		return fmt.Errorf("[Redis.Set] %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.keyPrefix + k
	}
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("[Redis.Delete] %w", err)
	}
	return nil
}
