package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/jrsteele09/go-bookstore-api/internal/errors"
	"github.com/jrsteele09/go-bookstore-api/internal/storage"
	"github.com/rs/zerolog/log"
)

const MaxPageSize = 100

// Service is the catalog use-case layer. Listings go through the cache, everything else hits the repo.
type Service struct {
	repo                   Repo
	cache                  *Cache
	validate               *validator.Validate
	invalidateOnEveryWrite bool
}

type ServiceOption func(*Service)

// WithInvalidateOnEveryWrite makes Update and Delete clear the listing cache as well. By default only
// Create does, so edits can stay invisible in listings until the cached pages expire.
func WithInvalidateOnEveryWrite(enabled bool) ServiceOption {
	return func(s *Service) {
		s.invalidateOnEveryWrite = enabled
	}
}

func NewService(repo Repo, cache *Cache, options ...ServiceOption) *Service {
	s := &Service{
		repo:     repo,
		cache:    cache,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, page, pageSize int, term string) (*Page, error) {
	if pageSize > MaxPageSize {
		return nil, fmt.Errorf("%w: pageSize must not exceed %d", apperrors.ErrInvalidRequest, MaxPageSize)
	}
	return s.cache.Get(ctx, page, pageSize, term)
}

func (s *Service) Get(ctx context.Context, id int64) (*Book, error) {
	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr("[Service.Get]", err)
	}
	return book, nil
}

// Create stores book, assigning its ID, then invalidates every cached listing.
func (s *Service) Create(ctx context.Context, book *Book) error {
	if err := s.validate.Struct(book); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidRequest, err.Error())
	}
	if err := s.repo.Create(ctx, book); err != nil {
		return fmt.Errorf("[Service.Create] %w", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) Update(ctx context.Context, book *Book) error {
	if err := s.validate.Struct(book); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidRequest, err.Error())
	}
	if err := s.repo.Update(ctx, book); err != nil {
		return mapRepoErr("[Service.Update]", err)
	}
	if s.invalidateOnEveryWrite {
		s.invalidate(ctx)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoErr("[Service.Delete]", err)
	}
	if s.invalidateOnEveryWrite {
		s.invalidate(ctx)
	}
	return nil
}

// invalidate failures are logged, the write itself already succeeded.
func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("catalog cache invalidation failed")
	}
}

func mapRepoErr(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.ErrBookNotFound
	}
	return fmt.Errorf("%s %w", op, err)
}
