package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/stemsi/tooltrack-backend/internal/apperr"
	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/repository"
	"github.com/stemsi/tooltrack-backend/internal/response"
)

// ErrSelfDelete is returned when a user tries to delete their own account.
var ErrSelfDelete = errors.New("cannot delete own account")

// UserService handles staff account management.
type UserService struct {
	userRepo repository.UserRepository
	auth     *AuthService
	log      zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, auth *AuthService, log zerolog.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		auth:     auth,
		log:      log.With().Str("component", "user_service").Logger(),
	}
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// List retrieves users with pagination and an optional search term.
func (s *UserService) List(ctx context.Context, search string, page, perPage int) ([]model.User, *response.Pagination, error) {
	page, perPage, limit, offset := clampPage(page, perPage)

	users, total, err := s.userRepo.List(ctx, model.ListFilter{Search: search, Limit: limit, Offset: offset})
	if err != nil {
		return nil, nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, newPagination(page, perPage, total), nil
}

// Create inserts a new account with a hashed password.
func (s *UserService) Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return nil, apperr.NewValidationError("role", err.Error())
	}
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     req.Username,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         role,
		DivisionID:   req.DivisionID,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Int("user_id", user.ID).Str("role", role.String()).Msg("user created")
	return user, nil
}

// Update modifies an account. A role change, deactivation or password reset
// revokes every open session of that user.
func (s *UserService) Update(ctx context.Context, id int, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return nil, apperr.NewValidationError("role", err.Error())
	}

	revoke := role != user.Role || req.Password != ""
	user.Name = req.Name
	user.Role = role
	user.DivisionID = req.DivisionID
	if req.IsActive != nil {
		revoke = revoke || (user.IsActive && !*req.IsActive)
		user.IsActive = *req.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if req.Password != "" {
		hash, err := s.auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		if err := s.userRepo.UpdatePassword(ctx, id, hash); err != nil {
			return nil, err
		}
	}

	if revoke {
		if err := s.auth.RevokeAllSessions(ctx, id); err != nil {
			s.log.Warn().Err(err).Int("user_id", id).Msg("failed to revoke sessions")
		}
	}
	return user, nil
}

// Delete removes an account and its sessions.
func (s *UserService) Delete(ctx context.Context, id, actorID int) error {
	if id == actorID {
		return ErrSelfDelete
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.auth.RevokeAllSessions(ctx, id); err != nil {
		s.log.Warn().Err(err).Int("user_id", id).Msg("failed to revoke sessions")
	}
	return nil
}
