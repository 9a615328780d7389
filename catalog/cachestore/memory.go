// Package cachestore implements catalog.PageStore on top of an in-process ristretto cache or Redis.
package cachestore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/jrsteele09/go-bookstore-api/catalog"
)

const defaultMaxCost = 10000

var _ catalog.PageStore = (*Memory)(nil)

// memoryEntry is stored by pointer and never re-set after the first write. Hits only move expiresAt, so a
// Delete racing a hit cannot put the entry back.
type memoryEntry struct {
	page      *catalog.Page
	deadline  time.Time
	sliding   time.Duration
	expiresAt atomic.Int64 // sliding deadline, unix nanos
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !now.Before(e.deadline) || now.UnixNano() >= e.expiresAt.Load()
}

func (e *memoryEntry) touch(now time.Time) {
	exp := catalog.Expiration{Sliding: e.sliding}
	e.expiresAt.Store(now.Add(exp.Remaining(now, e.deadline)).UnixNano())
}

// Memory keeps pages in process. Each page costs 1, so the max cost is the number of pages kept.
// Ristretto drops entries at the absolute deadline; the sliding window is checked on read.
type Memory struct {
	client  *ristretto.Cache
	nowFunc func() time.Time
}

type MemoryOption func(*Memory)

func WithMemoryNowFunc(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.nowFunc = now
	}
}

func NewMemory(maxCost int64, options ...MemoryOption) (*Memory, error) {
	if maxCost <= 0 {
		maxCost = defaultMaxCost
	}

	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        maxCost * 10,
		MaxCost:            maxCost,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("[cachestore.NewMemory] %w", err)
	}

	m := &Memory{client: client, nowFunc: time.Now}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

func (m *Memory) Get(_ context.Context, key string) (*catalog.Page, bool, error) {
	v, ok := m.client.Get(key)
	if !ok {
		return nil, false, nil
	}
	entry, ok := v.(*memoryEntry)
	if !ok {
		m.client.Del(key)
		return nil, false, fmt.Errorf("unexpected cache value type %T for key %s", v, key)
	}

	now := m.nowFunc()
	if entry.expired(now) {
		return nil, false, nil
	}
	entry.touch(now)
	return entry.page.Clone(), true, nil
}

func (m *Memory) Set(_ context.Context, key string, page *catalog.Page, exp catalog.Expiration) error {
	now := m.nowFunc()
	entry := &memoryEntry{
		page:     page.Clone(),
		deadline: now.Add(exp.Absolute),
		sliding:  exp.Sliding,
	}
	entry.touch(now)

	if !m.client.SetWithTTL(key, entry, 1, exp.Absolute) {
		return errors.New("ristretto rejected the entry")
	}
	m.client.Wait()
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.client.Del(k)
	}
	m.client.Wait()
	return nil
}

func (m *Memory) Close() {
	m.client.Close()
}
