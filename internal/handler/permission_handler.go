package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/tooltrack-backend/internal/middleware"
	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/response"
	"github.com/stemsi/tooltrack-backend/internal/service"
	"github.com/stemsi/tooltrack-backend/internal/validator"
)

// PermissionHandler exposes the per-role permission store.
type PermissionHandler struct {
	permissionService *service.PermissionService
}

// NewPermissionHandler creates a new PermissionHandler.
func NewPermissionHandler(permissionService *service.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService}
}

// GetMine godoc
// GET /api/v1/settings/permissions/me
// Returns the caller's own permission set, read live. data is null when
// nothing is configured for the role.
func (h *PermissionHandler) GetMine(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	set, err := h.permissionService.LiveForRole(c.Request.Context(), claims.Role)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, set)
}

// List godoc
// GET /api/v1/settings/permissions
func (h *PermissionHandler) List(c *gin.Context) {
	sets, err := h.permissionService.List(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}
	if sets == nil {
		sets = []model.PermissionSet{}
	}
	response.Success(c, http.StatusOK, gin.H{"permissions": sets})
}

// Update godoc
// PATCH /api/v1/settings/permissions
// Replaces the sets of the listed roles. Every cached copy is dropped before
// the response is written.
func (h *PermissionHandler) Update(c *gin.Context) {
	var req model.UpdatePermissionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sets, err := h.permissionService.Update(c.Request.Context(), req.Permissions)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"permissions": sets})
}
