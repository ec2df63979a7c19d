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

// IssueHandler handles outward issues, inward returns and the issue report.
type IssueHandler struct {
	issueService *service.IssueService
}

// NewIssueHandler creates a new IssueHandler.
func NewIssueHandler(issueService *service.IssueService) *IssueHandler {
	return &IssueHandler{issueService: issueService}
}

// ListIssues godoc
// GET /api/v1/issues?state=&division_id=&item_id=&from=&to=&page=&per_page=
// Also serves GET /api/v1/reports/issues.
func (h *IssueHandler) ListIssues(c *gin.Context) {
	f, fields := issueFilter(c)
	if fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	page, perPage := pageParams(c)

	issues, pagination, err := h.issueService.List(c.Request.Context(), f, page, perPage)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, issues, pagination)
}

// GetIssue godoc
// GET /api/v1/issues/:id
func (h *IssueHandler) GetIssue(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	issue, err := h.issueService.GetByID(c.Request.Context(), id)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, issue)
}

// CreateIssue godoc
// POST /api/v1/issues
// Issues tools and reserves stock. Fails with INSUFFICIENT_STOCK when the
// item does not have enough available.
func (h *IssueHandler) CreateIssue(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	var req model.CreateIssueRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	issue, err := h.issueService.Create(c.Request.Context(), &req, claims.UserID)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, issue)
}

// ListReturns godoc
// GET /api/v1/returns?division_id=&item_id=&from=&to=&page=&per_page=
func (h *IssueHandler) ListReturns(c *gin.Context) {
	f, fields := issueFilter(c)
	if fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	page, perPage := pageParams(c)

	returns, pagination, err := h.issueService.ListReturns(c.Request.Context(), f, page, perPage)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, returns, pagination)
}

// CreateReturn godoc
// POST /api/v1/returns
// Receives tools back against an issue. Fails with RETURN_EXCEEDS_OUTSTANDING
// when more comes back than is still out.
func (h *IssueHandler) CreateReturn(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	var req model.CreateReturnRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ret, issue, err := h.issueService.Return(c.Request.Context(), &req, claims.UserID)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"return": ret, "issue": issue})
}
