package refresh

import (
	"context"

	"github.com/jrsteele09/go-bookstore-api/users"
)

// Repo is the slice of the credential store that owns the refresh slot. Identities are addressed by email.
// users.Repo implementations satisfy it.
type Repo interface {
	GetRefreshFields(ctx context.Context, email string) (users.RefreshFields, error)
	SetRefreshFields(ctx context.Context, email string, fields users.RefreshFields) error
}
