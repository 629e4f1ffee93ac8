package overrides

import (
	"context"
	"log/slog"

	"github.com/routewise/routewise/internal/catalog"
	"github.com/routewise/routewise/internal/templates"
	"github.com/routewise/routewise/internal/users"
)

// RepositoryPort defines data access methods for overrides.
type RepositoryPort interface {
	Get(ctx context.Context, userID int64) (Override, bool, error)
	ReplaceDomain(ctx context.Context, userID int64, domain catalog.Domain, keys []string) error
	Delete(ctx context.Context, userID int64) error
}

// UserPort verifies that an override target exists.
type UserPort interface {
	GetUser(ctx context.Context, id int64) (users.User, error)
}

// Invalidator drops cached resolutions after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, userIDs ...int64) error
}

// Service handles per-user override mutations. Writes replace the whole
// domain set; the template is never merged in.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	users  UserPort
	cat    *catalog.Catalog
	cache  Invalidator
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo RepositoryPort, users UserPort, cat *catalog.Catalog, cache Invalidator) *Service {
	return &Service{logger: logger, repo: repo, users: users, cat: cat, cache: cache}
}

// Get returns the stored override row for a user, if any.
func (s *Service) Get(ctx context.Context, userID int64) (Override, bool, error) {
	return s.repo.Get(ctx, userID)
}

// SetDomain replaces one domain set of a user's override. Nil keys clear
// the domain back to template fallback; an empty non-nil set is an
// explicit revoke-everything override.
func (s *Service) SetDomain(ctx context.Context, userID int64, domain catalog.Domain, keys []string) error {
	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}
	normalized, err := templates.NormalizeSelection(s.cat, domain, keys)
	if err != nil {
		return err
	}
	if err := s.repo.ReplaceDomain(ctx, userID, domain, normalized); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	s.logger.Info("override replaced",
		slog.Int64("user", userID),
		slog.String("domain", string(domain)),
		slog.Int("keys", len(normalized)))
	return nil
}

// Clear removes the whole override row, restoring template inheritance
// across every domain.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	s.logger.Info("override cleared", slog.Int64("user", userID))
	return nil
}

func (s *Service) ensureUser(ctx context.Context, userID int64) error {
	if s.users == nil {
		return nil
	}
	_, err := s.users.GetUser(ctx, userID)
	return err
}

func (s *Service) invalidate(ctx context.Context, userIDs ...int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userIDs...); err != nil {
		s.logger.Warn("cache invalidation failed", slog.Any("error", err))
	}
}
