package refresh

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-bookstore-api/internal/keylock"
	"github.com/jrsteele09/go-bookstore-api/internal/storage"
	"github.com/jrsteele09/go-bookstore-api/users"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRefreshTokenExpiry = 30 * 24 * time.Hour
	DefaultTokenLength        = 64
)

// Fields is the refresh slot as seen by callers.
type Fields = users.RefreshFields

// Manager owns the single refresh-token slot of each identity. Every read-modify-write of a slot
// runs under that identity's lock.
type Manager struct {
	repo        Repo
	locks       *keylock.Mutex
	tokenExpiry time.Duration
	tokenLength int
	nowFunc     func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.tokenExpiry = expiry
	}
}

// WithTokenLength sets the number of random bytes behind each generated token.
func WithTokenLength(n int) ManagerOption {
	return func(m *Manager) {
		m.tokenLength = n
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:  repo,
		locks: keylock.New(),
	}

	for _, opt := range options {
		opt(m)
	}

	if m.tokenExpiry <= 0 {
		m.tokenExpiry = DefaultRefreshTokenExpiry
	}
	if m.tokenLength <= 0 {
		m.tokenLength = DefaultTokenLength
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// Generate returns a new opaque token: base64 of cryptographically random bytes.
func (m *Manager) Generate() (string, error) {
	tokenBytes := make([]byte, m.tokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(tokenBytes), nil
}

// HasValid reports whether identity has a stored token whose expiry is still in the future.
// Lookup failures count as no valid token.
func (m *Manager) HasValid(ctx context.Context, identity string) bool {
	unlock := m.locks.Lock(users.NormalizeEmail(identity))
	defer unlock()

	_, ok := m.validFields(ctx, identity)
	return ok
}

// Assign stores token for identity with a fresh expiry. On error the stored slot is unchanged.
func (m *Manager) Assign(ctx context.Context, identity, token string) (Fields, error) {
	unlock := m.locks.Lock(users.NormalizeEmail(identity))
	defer unlock()

	return m.assign(ctx, identity, token)
}

// EnsureActive keeps a still-valid token, otherwise generates and assigns a new one. The check and the
// assignment happen under one lock, so concurrent logins agree on the token.
func (m *Manager) EnsureActive(ctx context.Context, identity string) (Fields, error) {
	unlock := m.locks.Lock(users.NormalizeEmail(identity))
	defer unlock()

	if fields, ok := m.validFields(ctx, identity); ok {
		return fields, nil
	}

	token, err := m.Generate()
	if err != nil {
		return Fields{}, fmt.Errorf("[Manager.EnsureActive] %w", err)
	}
	return m.assign(ctx, identity, token)
}

// Revoke clears the slot. Revoking an identity with no token, or one that does not exist, is a no-op.
func (m *Manager) Revoke(ctx context.Context, identity string) error {
	unlock := m.locks.Lock(users.NormalizeEmail(identity))
	defer unlock()

	err := m.repo.SetRefreshFields(ctx, identity, Fields{})
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("[Manager.Revoke] %w", err)
	}
	return nil
}

// ValidateForRefresh reports whether supplied is the identity's current, unexpired token.
// Every negative, including an unknown identity or a store failure, is false.
func (m *Manager) ValidateForRefresh(ctx context.Context, identity, supplied string) bool {
	_, ok := m.Validate(ctx, identity, supplied)
	return ok
}

// Validate is ValidateForRefresh that also returns the stored slot when it matches.
func (m *Manager) Validate(ctx context.Context, identity, supplied string) (Fields, bool) {
	if supplied == "" {
		return Fields{}, false
	}

	unlock := m.locks.Lock(users.NormalizeEmail(identity))
	defer unlock()

	fields, ok := m.validFields(ctx, identity)
	if !ok {
		return Fields{}, false
	}
	if subtle.ConstantTimeCompare([]byte(fields.Token), []byte(supplied)) != 1 {
		return Fields{}, false
	}
	return fields, true
}

func (m *Manager) assign(ctx context.Context, identity, token string) (Fields, error) {
	fields := Fields{Token: token, Expiry: m.nowFunc().Add(m.tokenExpiry)}
	if err := m.repo.SetRefreshFields(ctx, identity, fields); err != nil {
		return Fields{}, fmt.Errorf("[Manager.Assign] %w", err)
	}
	return fields, nil
}

// validFields must be called with the identity's lock held.
func (m *Manager) validFields(ctx context.Context, identity string) (Fields, bool) {
	fields, err := m.repo.GetRefreshFields(ctx, identity)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Ctx(ctx).Warn().Err(err).Msg("refresh slot lookup failed")
		}
		return Fields{}, false
	}
	if !fields.HasToken() || !fields.Expiry.After(m.nowFunc()) {
		return Fields{}, false
	}
	return fields, true
}
