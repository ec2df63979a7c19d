package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/tooltrack-backend/internal/middleware"
	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/navigation"
	"github.com/stemsi/tooltrack-backend/internal/response"
	"github.com/stemsi/tooltrack-backend/internal/service"
	"github.com/stemsi/tooltrack-backend/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService       *service.AuthService
	permissionService *service.PermissionService
	resolver          *navigation.Resolver
	log               zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	permissionService *service.PermissionService,
	resolver *navigation.Resolver,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:       authService,
		permissionService: permissionService,
		resolver:          resolver,
		log:               log.With().Str("component", "auth_handler").Logger(),
	}
}

// Login godoc
// POST /api/v1/auth/login
// Validates username + password, registers the session and returns the JWT
// together with the landing route for the user's role.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ctx := c.Request.Context()
	// Login returns only after the session is stored, so the permission
	// fetch below runs against a registered session.
	user, token, err := h.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		failFromError(c, err)
		return
	}

	redirect := h.resolver.Resolve(ctx, user.Role, h.permissionService.CurrentCallerSource(user.Role))
	h.log.Info().Int("user_id", user.ID).Str("role", user.Role.String()).Str("redirect_to", redirect).Msg("user logged in")

	response.Success(c, http.StatusOK, model.LoginResponse{
		Success:    true,
		Token:      token,
		User:       *user,
		RedirectTo: redirect,
	})
}

// Logout godoc
// POST /api/v1/auth/logout
// Revokes the current session.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.RevokeSession(c.Request.Context(), claims.UserID, claims.ID); err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"success": true})
}

// GetProfile godoc
// GET /api/v1/auth/me
// Returns the current user and their live permission set.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	ctx := c.Request.Context()
	user, err := h.authService.GetUser(ctx, claims.UserID)
	if err != nil {
		failFromError(c, err)
		return
	}

	permissions, err := h.permissionService.LiveForRole(ctx, claims.Role)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":        user,
		"permissions": permissions,
	})
}

// GetLanding godoc
// GET /api/v1/auth/landing
// Recomputes the landing route for the current session.
func (h *AuthHandler) GetLanding(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	redirect := h.resolver.Resolve(c.Request.Context(), claims.Role, h.permissionService.CurrentCallerSource(claims.Role))
	response.Success(c, http.StatusOK, gin.H{"redirect_to": redirect})
}
