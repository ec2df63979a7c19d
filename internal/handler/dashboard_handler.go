package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/tooltrack-backend/internal/response"
	"github.com/stemsi/tooltrack-backend/internal/service"
)

// DashboardHandler handles dashboard endpoints.
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetSummary godoc
// GET /api/v1/dashboard
// Returns stock and movement stat cards plus the most recent issues.
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	data, err := h.dashboardService.Summary(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, data)
}
