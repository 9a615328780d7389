package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jrsteele09/go-bookstore-api/internal/storage"
	"github.com/jrsteele09/go-bookstore-api/internal/utils"
	"github.com/jrsteele09/go-bookstore-api/users"
)

var _ users.Repo = (*UserStore)(nil)

// UserStore is the credential store. Emails are stored normalized.
type UserStore struct {
	db DB
}

func (s *UserStore) Create(ctx context.Context, user *users.User) error {
	const op = "storage.postgres.CreateUser"

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC()
	}

	query := `
		INSERT INTO users (id, email, password_hash, date_joined)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.Exec(ctx, query,
		user.ID,
		users.NormalizeEmail(user.Email),
		user.PasswordHash,
		user.DateJoined,
	)
	if err != nil {
		return mapWriteErr(op, err)
	}
	return nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	const op = "storage.postgres.UserByEmail"

	query := `
		SELECT id, email, password_hash, date_joined, refresh_token, refresh_token_expiry
		FROM users
		WHERE email = $1
	`
	return s.getUser(ctx, op, query, users.NormalizeEmail(email))
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*users.User, error) {
	const op = "storage.postgres.UserByID"

	query := `
		SELECT id, email, password_hash, date_joined, refresh_token, refresh_token_expiry
		FROM users
		WHERE id = $1
	`
	return s.getUser(ctx, op, query, id)
}

func (s *UserStore) getUser(ctx context.Context, op, query string, arg any) (*users.User, error) {
	var (
		user         users.User
		refreshToken *string
		refreshExp   *time.Time
	)
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DateJoined,
		&refreshToken,
		&refreshExp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.RefreshToken = utils.Value(refreshToken)
	user.RefreshTokenExpiry = utils.Value(refreshExp)

	roles, err := s.GetRoles(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.Roles = roles
	return &user, nil
}

// AssignRole adds role to the user. Assigning a role twice is a no-op.
func (s *UserStore) AssignRole(ctx context.Context, userID string, role users.RoleType) error {
	const op = "storage.postgres.AssignRole"

	query := `
		INSERT INTO user_roles (user_id, role_name)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role_name) DO NOTHING
	`
	if _, err := s.db.Exec(ctx, query, userID, string(role)); err != nil {
		return mapWriteErr(op, err)
	}
	return nil
}

// GetRoles returns the user's roles in assignment order.
func (s *UserStore) GetRoles(ctx context.Context, userID string) ([]users.RoleType, error) {
	const op = "storage.postgres.GetRoles"

	query := `
		SELECT role_name
		FROM user_roles
		WHERE user_id = $1
		ORDER BY id
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var roles []users.RoleType
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		roles = append(roles, users.RoleType(role))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return roles, nil
}

func (s *UserStore) GetRefreshFields(ctx context.Context, email string) (users.RefreshFields, error) {
	const op = "storage.postgres.GetRefreshFields"

	query := `
		SELECT refresh_token, refresh_token_expiry
		FROM users
		WHERE email = $1
	`

	var (
		token  *string
		expiry *time.Time
	)
	err := s.db.QueryRow(ctx, query, users.NormalizeEmail(email)).Scan(&token, &expiry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return users.RefreshFields{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return users.RefreshFields{}, fmt.Errorf("%s: %w", op, err)
	}
	return users.RefreshFields{Token: utils.Value(token), Expiry: utils.Value(expiry)}, nil
}

// SetRefreshFields writes both columns in one statement. An empty slot is stored as NULLs.
func (s *UserStore) SetRefreshFields(ctx context.Context, email string, fields users.RefreshFields) error {
	const op = "storage.postgres.SetRefreshFields"

	query := `
		UPDATE users
		SET refresh_token = $2, refresh_token_expiry = $3
		WHERE email = $1
	`
	tag, err := s.db.Exec(ctx, query,
		users.NormalizeEmail(email),
		utils.NonEmpty(fields.Token),
		utils.NonZero(fields.Expiry),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}
