package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/tooltrack-backend/internal/apperr"
	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/navigation"
	"github.com/stemsi/tooltrack-backend/internal/repository"
)

// PermissionService is the server-side permission store.
type PermissionService struct {
	repo  repository.PermissionRepository
	cache *PermissionCache
	log   zerolog.Logger
}

// NewPermissionService creates a new PermissionService.
func NewPermissionService(repo repository.PermissionRepository, cache *PermissionCache, log zerolog.Logger) *PermissionService {
	return &PermissionService{
		repo:  repo,
		cache: cache,
		log:   log.With().Str("component", "permission_service").Logger(),
	}
}

// ForRole returns the permission set for role, served from cache when
// possible. Admin always receives a full set. A role without a stored set
// yields nil, nil.
func (s *PermissionService) ForRole(ctx context.Context, role model.Role) (*model.PermissionSet, error) {
	if role.IsElevated() {
		return model.FullPermissionSet(role), nil
	}

	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("role", role.String()).Msg("permission cache generation read failed")
		return s.load(ctx, role)
	}

	set, hit, err := s.cache.Get(ctx, gen, role)
	if err != nil {
		s.log.Warn().Err(err).Str("role", role.String()).Msg("permission cache read failed")
	}
	if hit {
		return set, nil
	}
	return s.loadAndCache(ctx, gen, role)
}

// LiveForRole reads the authoritative set from storage, bypassing the cache,
// and refreshes the cached copy.
func (s *PermissionService) LiveForRole(ctx context.Context, role model.Role) (*model.PermissionSet, error) {
	if role.IsElevated() {
		return model.FullPermissionSet(role), nil
	}

	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("role", role.String()).Msg("permission cache generation read failed")
		return s.load(ctx, role)
	}
	return s.loadAndCache(ctx, gen, role)
}

// loadAndCache reads storage and caches the result under gen, which the
// caller read before the storage read.
func (s *PermissionService) loadAndCache(ctx context.Context, gen int64, role model.Role) (*model.PermissionSet, error) {
	set, err := s.load(ctx, role)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, gen, role, set); err != nil {
		s.log.Warn().Err(err).Str("role", role.String()).Msg("permission cache write failed")
	}
	return set, nil
}

func (s *PermissionService) load(ctx context.Context, role model.Role) (*model.PermissionSet, error) {
	set, err := s.repo.GetByRole(ctx, role)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return set, nil
}

// List returns every stored permission set.
func (s *PermissionService) List(ctx context.Context) ([]model.PermissionSet, error) {
	return s.repo.List(ctx)
}

// Update replaces the stored sets for the given roles and invalidates every
// cached copy before returning, so the next read observes the new values.
func (s *PermissionService) Update(ctx context.Context, sets []model.PermissionSet) ([]model.PermissionSet, error) {
	if err := validatePermissionSets(sets); err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceAll(ctx, sets); err != nil {
		return nil, fmt.Errorf("replace permissions: %w", err)
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		// A stale cache would hide the update, so report the failure.
		s.log.Error().Err(err).Msg("permission cache invalidation failed")
		return nil, fmt.Errorf("invalidate permission cache: %w", err)
	}

	s.log.Info().Int("roles", len(sets)).Msg("permissions updated")
	return s.repo.List(ctx)
}

func validatePermissionSets(sets []model.PermissionSet) error {
	if len(sets) == 0 {
		return apperr.NewValidationError("permissions", "at least one permission set is required")
	}

	seen := make(map[model.Role]bool, len(sets))
	verr := &apperr.ValidationError{}
	for i, set := range sets {
		field := fmt.Sprintf("permissions[%d].role", i)
		switch {
		case !set.Role.Valid():
			verr.Fields = append(verr.Fields, apperr.FieldError{Field: field, Message: "unknown role"})
		case set.Role.IsElevated():
			verr.Fields = append(verr.Fields, apperr.FieldError{Field: field, Message: "admin permissions cannot be changed"})
		case seen[set.Role]:
			verr.Fields = append(verr.Fields, apperr.FieldError{Field: field, Message: "duplicate role"})
		}
		seen[set.Role] = true
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// CurrentCallerSource binds the store to the caller's role for the redirect
// resolver. Reads are always live.
func (s *PermissionService) CurrentCallerSource(role model.Role) navigation.PermissionSource {
	return navigation.PermissionSourceFunc(func(ctx context.Context) (*model.PermissionSet, error) {
		set, err := s.LiveForRole(ctx, role)
		if err != nil {
			return nil, &apperr.FetchError{Op: "permissions for " + role.String(), Err: err}
		}
		return set, nil
	})
}
