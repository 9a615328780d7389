package fakeuserrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-bookstore-api/internal/storage"
	"github.com/jrsteele09/go-bookstore-api/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

// FakeUserRepo is an in-memory credential store. It hands out copies so callers can never
// mutate stored state without going through the repo.
type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // normalized email to user id
	lock     sync.RWMutex

	refreshWriteErr error
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

// FailRefreshWrites makes every SetRefreshFields call return err until called again with nil.
func (ur *FakeUserRepo) FailRefreshWrites(err error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	ur.refreshWriteErr = err
}

func (ur *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	email := users.NormalizeEmail(user.Email)
	if _, ok := ur.emailIds[email]; ok {
		return storage.ErrAlreadyExists
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC()
	}
	ur.users[user.ID] = copyUser(user)
	ur.emailIds[email] = user.ID
	return nil
}

func (ur *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.byEmail(email)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyUser(u), nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyUser(u), nil
}

func (ur *FakeUserRepo) AssignRole(_ context.Context, userID string, role users.RoleType) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	u, ok := ur.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	if u.HasRole(role) {
		return nil
	}
	u.Roles = append(u.Roles, role)
	return nil
}

func (ur *FakeUserRepo) GetRoles(_ context.Context, userID string) ([]users.RoleType, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]users.RoleType(nil), u.Roles...), nil
}

func (ur *FakeUserRepo) GetRefreshFields(_ context.Context, email string) (users.RefreshFields, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.byEmail(email)
	if !ok {
		return users.RefreshFields{}, storage.ErrNotFound
	}
	return u.RefreshFields(), nil
}

func (ur *FakeUserRepo) SetRefreshFields(_ context.Context, email string, fields users.RefreshFields) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if ur.refreshWriteErr != nil {
		return ur.refreshWriteErr
	}
	u, ok := ur.byEmail(email)
	if !ok {
		return storage.ErrNotFound
	}
	u.RefreshToken = fields.Token
	u.RefreshTokenExpiry = fields.Expiry
	return nil
}

func (ur *FakeUserRepo) byEmail(email string) (*users.User, bool) {
	id, ok := ur.emailIds[users.NormalizeEmail(email)]
	if !ok {
		return nil, false
	}
	u, ok := ur.users[id]
	return u, ok
}

func copyUser(u *users.User) *users.User {
	c := *u
	c.Roles = append([]users.RoleType(nil), u.Roles...)
	return &c
}
