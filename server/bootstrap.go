package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-bookstore-api/internal/storage"
	"github.com/jrsteele09/go-bookstore-api/users"
	"github.com/rs/zerolog/log"
)

const generatedPasswordBytes = 18

// InitialiseSystem makes sure the admin account exists and holds the Admin role. Running it again is a no-op.
// Returns the generated password on first creation when none is configured (empty string otherwise).
func (s *Server) InitialiseSystem(ctx context.Context) (generatedPassword string, err error) {
	log.Info().Msg("Bootstrap: checking admin account...")

	email := users.NormalizeEmail(s.config.GetAdminEmail())
	if email == "" {
		return "", errors.New("[InitialiseSystem] admin email is empty")
	}

	admin, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		admin, generatedPassword, err = s.createAdmin(ctx, email)
		if err != nil {
			return "", err
		}
	case err != nil:
		return "", fmt.Errorf("[InitialiseSystem] GetByEmail: %w", err)
	}

	if err := s.users.AssignRole(ctx, admin.ID, users.RoleAdmin); err != nil {
		return "", fmt.Errorf("[InitialiseSystem] AssignRole: %w", err)
	}

	if generatedPassword != "" {
		log.Warn().
			Str("email", email).
			Str("password", generatedPassword).
			Msg("Bootstrap: admin created with a generated password. SAVE THIS PASSWORD, it will not be displayed again")
	} else {
		log.Info().Str("email", email).Msg("Bootstrap: admin account ready")
	}
	return generatedPassword, nil
}

func (s *Server) createAdmin(ctx context.Context, email string) (*users.User, string, error) {
	password := s.config.GetAdminPassword()
	var generated string
	if password == "" {
		var err error
		if generated, err = generatePassword(); err != nil {
			return nil, "", fmt.Errorf("[createAdmin] %w", err)
		}
		password = generated
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("[createAdmin] %w", err)
	}

	admin := &users.User{
		Email:        email,
		PasswordHash: hash,
		DateJoined:   time.Now().UTC(),
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return nil, "", fmt.Errorf("[createAdmin] Create: %w", err)
	}
	return admin, generated, nil
}

// generatePassword returns a random password that passes users.ValidatePasswordStrength.
func generatePassword() (string, error) {
	b := make([]byte, generatedPasswordBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "Aa1!" + base64.RawURLEncoding.EncodeToString(b), nil
}
