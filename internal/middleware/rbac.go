package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/response"
)

// ContextKeyMasterEntity is the Gin context key for the resolved :entity descriptor.
const ContextKeyMasterEntity = "master_entity"

// PermissionLookup returns the (possibly cached) permission set of a role.
type PermissionLookup interface {
	ForRole(ctx context.Context, role model.Role) (*model.PermissionSet, error)
}

// RequireCapability checks that the caller's role grants capability. Admin always passes.
func RequireCapability(perms PermissionLookup, capability model.Capability) gin.HandlerFunc {
	return RequireAllCapabilities(perms, capability)
}

// RequireAllCapabilities checks that every listed capability is granted.
func RequireAllCapabilities(perms PermissionLookup, caps ...model.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		set, ok := permissionsFor(c, perms)
		if !ok {
			return
		}
		for _, cp := range caps {
			if !set.Has(cp) {
				response.AbortFail(c, http.StatusForbidden, response.ErrPermissionDenied)
				return
			}
		}
		c.Next()
	}
}

// RequireAnyCapability checks that at least one of caps is granted.
func RequireAnyCapability(perms PermissionLookup, caps ...model.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		set, ok := permissionsFor(c, perms)
		if !ok {
			return
		}
		for _, cp := range caps {
			if set.Has(cp) {
				c.Next()
				return
			}
		}
		response.AbortFail(c, http.StatusForbidden, response.ErrPermissionDenied)
	}
}

// RequireRole checks the caller's role against an allow list.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		response.AbortFail(c, http.StatusForbidden, response.ErrForbidden)
	}
}

// RequireMasterEntity resolves the :entity path parameter and checks the
// capability that guards it. Lookup tables need view_master plus their own
// flag; divisions are managed under access_settings.
func RequireMasterEntity(perms PermissionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, found := model.LookupMasterEntity(c.Param("entity"))
		if !found {
			response.AbortFail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}

		set, ok := permissionsFor(c, perms)
		if !ok {
			return
		}
		allowed := set.Has(info.Capability)
		if info.Capability != model.CapAccessSettings {
			allowed = allowed && set.Has(model.CapViewMaster)
		}
		if !allowed {
			response.AbortFail(c, http.StatusForbidden, response.ErrPermissionDenied)
			return
		}

		c.Set(ContextKeyMasterEntity, info)
		c.Next()
	}
}

// GetMasterEntity retrieves the descriptor stored by RequireMasterEntity.
func GetMasterEntity(c *gin.Context) (model.MasterEntityInfo, bool) {
	val, exists := c.Get(ContextKeyMasterEntity)
	if !exists {
		return model.MasterEntityInfo{}, false
	}
	info, ok := val.(model.MasterEntityInfo)
	return info, ok
}

// permissionsFor loads the caller's set and aborts the request on failure.
// A role without a stored set gets nil, which grants nothing.
func permissionsFor(c *gin.Context, perms PermissionLookup) (*model.PermissionSet, bool) {
	claims := GetClaims(c)
	if claims == nil {
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}
	if claims.Role.IsElevated() {
		return model.FullPermissionSet(claims.Role), true
	}

	set, err := perms.ForRole(c.Request.Context(), claims.Role)
	if err != nil {
		_ = c.Error(err)
		response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
		return nil, false
	}
	return set, true
}
