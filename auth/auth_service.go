package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-bookstore-api/internal/errors"
	"github.com/jrsteele09/go-bookstore-api/internal/metrics"
	"github.com/jrsteele09/go-bookstore-api/internal/storage"
	"github.com/jrsteele09/go-bookstore-api/token"
	"github.com/jrsteele09/go-bookstore-api/token/refresh"
	"github.com/jrsteele09/go-bookstore-api/users"
	"github.com/rs/zerolog/log"
)

const (
	opRegister = "register"
	opLogin    = "login"
	opRefresh  = "refresh"
	opRevoke   = "revoke"
)

// Service runs the session lifecycle: register, login, refresh and revoke. It only talks to the
// credential store, the token issuer and the refresh manager.
type Service struct {
	users     users.Repo
	issuer    *token.Issuer
	refresh   *refresh.Manager
	validator *Validator
	nowTime   func() time.Time
}

type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(userRepo users.Repo, issuer *token.Issuer, refreshManager *refresh.Manager, options ...ServiceOption) (*Service, error) {
	if userRepo == nil {
		return nil, errors.New("[NewService] users repo is required")
	}
	if issuer == nil {
		return nil, errors.New("[NewService] token issuer is required")
	}
	if refreshManager == nil {
		return nil, errors.New("[NewService] refresh manager is required")
	}

	s := &Service{
		users:     userRepo,
		issuer:    issuer,
		refresh:   refreshManager,
		validator: NewValidator(),
		nowTime:   time.Now,
	}

	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Register creates an identity with the default User role.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*users.User, error) {
	if err := s.validator.ValidateRegister(req); err != nil {
		observe(opRegister, "invalid")
		return nil, err
	}

	hash, err := users.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("[Service.Register] %w", err)
	}

	user := &users.User{
		Email:        users.NormalizeEmail(req.Email),
		PasswordHash: hash,
		DateJoined:   s.nowTime().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			observe(opRegister, "conflict")
			return nil, fmt.Errorf("email already registered: %w", apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("[Service.Register] Create: %w", err)
	}

	if err := s.users.AssignRole(ctx, user.ID, users.RoleUser); err != nil {
		return nil, fmt.Errorf("[Service.Register] AssignRole: %w", err)
	}
	user.Roles = []users.RoleType{users.RoleUser}

	observe(opRegister, "ok")
	log.Ctx(ctx).Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Login checks the password, issues an access token for the identity's first role and makes sure a
// valid refresh token exists. An existing valid refresh token is returned as-is.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	if err := s.validator.ValidateLogin(req); err != nil {
		observe(opLogin, "invalid")
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			users.CheckUnknownUserPassword(req.Password)
			return nil, s.unauthorized(ctx, opLogin, "unknown email")
		}
		return nil, fmt.Errorf("[Service.Login] GetByEmail: %w", err)
	}
	if !user.CheckPassword(req.Password) {
		return nil, s.unauthorized(ctx, opLogin, "bad password")
	}

	role, err := s.primaryRole(ctx, user.ID)
	if err != nil {
		observe(opLogin, "role_missing")
		return nil, err
	}

	access, err := s.issuer.Issue(user.Email, string(role))
	if err != nil {
		return nil, fmt.Errorf("[Service.Login] Issue: %w", err)
	}

	fields, err := s.refresh.EnsureActive(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("[Service.Login] EnsureActive: %w", err)
	}

	observe(opLogin, "ok")
	log.Ctx(ctx).Debug().Str("user_id", user.ID).Str("role", string(role)).Msg("login succeeded")
	return &TokenResponse{
		AccessToken:       access.Token,
		AccessExpiration:  access.ExpiresAt,
		RefreshToken:      fields.Token,
		RefreshExpiration: fields.Expiry,
	}, nil
}

// Refresh exchanges a possibly expired access token plus the matching refresh token for a new access token.
// The refresh token is not rotated. Every credential failure is ErrUnauthorized.
func (s *Service) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	if err := s.validator.ValidateRefresh(req); err != nil {
		observe(opRefresh, "invalid")
		return nil, err
	}

	claims, err := s.issuer.Verify(req.AccessToken, false)
	if err != nil {
		return nil, s.unauthorized(ctx, opRefresh, err.Error())
	}

	fields, ok := s.refresh.Validate(ctx, claims.Name, req.RefreshToken)
	if !ok {
		return nil, s.unauthorized(ctx, opRefresh, "refresh token rejected")
	}

	user, err := s.users.GetByEmail(ctx, claims.Name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, s.unauthorized(ctx, opRefresh, "identity vanished")
		}
		return nil, fmt.Errorf("[Service.Refresh] GetByEmail: %w", err)
	}

	role, err := s.primaryRole(ctx, user.ID)
	if err != nil {
		observe(opRefresh, "role_missing")
		return nil, err
	}

	access, err := s.issuer.Issue(user.Email, string(role))
	if err != nil {
		return nil, fmt.Errorf("[Service.Refresh] Issue: %w", err)
	}

	observe(opRefresh, "ok")
	return &TokenResponse{
		AccessToken:       access.Token,
		AccessExpiration:  access.ExpiresAt,
		RefreshToken:      fields.Token,
		RefreshExpiration: fields.Expiry,
	}, nil
}

// Revoke clears the refresh token of identity, the name claim of an authenticated caller.
func (s *Service) Revoke(ctx context.Context, identity string) error {
	if identity == "" {
		return s.unauthorized(ctx, opRevoke, "no subject")
	}
	if err := s.refresh.Revoke(ctx, identity); err != nil {
		observe(opRevoke, "error")
		return fmt.Errorf("[Service.Revoke] %w", err)
	}
	observe(opRevoke, "ok")
	return nil
}

func (s *Service) primaryRole(ctx context.Context, userID string) (users.RoleType, error) {
	roles, err := s.users.GetRoles(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("[Service.primaryRole] %w", err)
	}
	if len(roles) == 0 {
		return "", apperrors.ErrRoleNotFound
	}
	return roles[0], nil
}

// unauthorized logs the reason and returns the single error the caller is allowed to see.
func (s *Service) unauthorized(ctx context.Context, operation, reason string) error {
	observe(operation, "unauthorized")
	log.Ctx(ctx).Warn().Str("operation", operation).Str("reason", reason).Msg("authentication rejected")
	return apperrors.ErrUnauthorized
}

func observe(operation, outcome string) {
	metrics.AuthOutcomes.WithLabelValues(operation, outcome).Inc()
}
