package users

import "context"

// Repo is the credential store. Lookups that find nothing return storage.ErrNotFound and
// Create on an existing email returns storage.ErrAlreadyExists.
type Repo interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	AssignRole(ctx context.Context, userID string, role RoleType) error
	GetRoles(ctx context.Context, userID string) ([]RoleType, error)

	GetRefreshFields(ctx context.Context, email string) (RefreshFields, error)
	SetRefreshFields(ctx context.Context, email string, fields RefreshFields) error
}
