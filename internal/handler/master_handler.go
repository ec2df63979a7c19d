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

// MasterHandler serves every code/name lookup table under /master/:entity.
// The entity descriptor is resolved and authorized by middleware.RequireMasterEntity.
type MasterHandler struct {
	masterService *service.MasterService
}

// NewMasterHandler creates a new MasterHandler.
func NewMasterHandler(masterService *service.MasterService) *MasterHandler {
	return &MasterHandler{masterService: masterService}
}

func entityFrom(c *gin.Context) (model.MasterEntityInfo, bool) {
	info, ok := middleware.GetMasterEntity(c)
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	}
	return info, ok
}

// List godoc
// GET /api/v1/master/:entity?search=&page=&per_page=
func (h *MasterHandler) List(c *gin.Context) {
	info, ok := entityFrom(c)
	if !ok {
		return
	}
	page, perPage := pageParams(c)

	records, pagination, err := h.masterService.List(c.Request.Context(), info, c.Query("search"), page, perPage)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, records, pagination)
}

// Get godoc
// GET /api/v1/master/:entity/:id
func (h *MasterHandler) Get(c *gin.Context) {
	info, ok := entityFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	rec, err := h.masterService.GetByID(c.Request.Context(), info, id)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rec)
}

// Create godoc
// POST /api/v1/master/:entity
func (h *MasterHandler) Create(c *gin.Context) {
	info, ok := entityFrom(c)
	if !ok {
		return
	}
	var req model.MasterRecordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	rec, err := h.masterService.Create(c.Request.Context(), info, &req)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, rec)
}

// Update godoc
// PUT /api/v1/master/:entity/:id
func (h *MasterHandler) Update(c *gin.Context) {
	info, ok := entityFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req model.MasterRecordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	rec, err := h.masterService.Update(c.Request.Context(), info, id, &req)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rec)
}

// Delete godoc
// DELETE /api/v1/master/:entity/:id
func (h *MasterHandler) Delete(c *gin.Context) {
	info, ok := entityFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.masterService.Delete(c.Request.Context(), info, id); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "deleted"})
}
