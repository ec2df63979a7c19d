package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/response"
	"github.com/stemsi/tooltrack-backend/internal/service"
	"github.com/stemsi/tooltrack-backend/internal/validator"
)

// ItemHandler handles tracked tool endpoints.
type ItemHandler struct {
	itemService *service.ItemService
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(itemService *service.ItemService) *ItemHandler {
	return &ItemHandler{itemService: itemService}
}

// List godoc
// GET /api/v1/master/items?search=&page=&per_page=
func (h *ItemHandler) List(c *gin.Context) {
	page, perPage := pageParams(c)

	items, pagination, err := h.itemService.List(c.Request.Context(), c.Query("search"), page, perPage)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, items, pagination)
}

// Get godoc
// GET /api/v1/master/items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	item, err := h.itemService.GetByID(c.Request.Context(), id)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// Create godoc
// POST /api/v1/master/items
func (h *ItemHandler) Create(c *gin.Context) {
	var req model.ItemRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	item, err := h.itemService.Create(c.Request.Context(), &req)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, item)
}

// Update godoc
// PUT /api/v1/master/items/:id
// Lowering total_quantity below what is currently issued is rejected with
// INSUFFICIENT_STOCK.
func (h *ItemHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req model.ItemRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	item, err := h.itemService.Update(c.Request.Context(), id, &req)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// Delete godoc
// DELETE /api/v1/master/items/:id
func (h *ItemHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.itemService.Delete(c.Request.Context(), id); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "deleted"})
}
