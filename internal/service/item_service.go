package service

import (
	"context"
	"errors"

	"github.com/stemsi/tooltrack-backend/internal/apperr"
	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/repository"
	"github.com/stemsi/tooltrack-backend/internal/response"
)

// ItemService handles tracked tools.
type ItemService struct {
	itemRepo   repository.ItemRepository
	masterRepo repository.MasterRepository
}

// NewItemService creates a new ItemService.
func NewItemService(itemRepo repository.ItemRepository, masterRepo repository.MasterRepository) *ItemService {
	return &ItemService{itemRepo: itemRepo, masterRepo: masterRepo}
}

// List retrieves items with pagination and an optional search term.
func (s *ItemService) List(ctx context.Context, search string, page, perPage int) ([]model.Item, *response.Pagination, error) {
	page, perPage, limit, offset := clampPage(page, perPage)

	items, total, err := s.itemRepo.List(ctx, model.ListFilter{Search: search, Limit: limit, Offset: offset})
	if err != nil {
		return nil, nil, err
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, newPagination(page, perPage, total), nil
}

// All returns every item.
func (s *ItemService) All(ctx context.Context) ([]model.Item, error) {
	return s.itemRepo.All(ctx)
}

// GetByID retrieves an item by ID.
func (s *ItemService) GetByID(ctx context.Context, id int) (*model.Item, error) {
	return s.itemRepo.GetByID(ctx, id)
}

// Create inserts a new item with its full quantity available.
func (s *ItemService) Create(ctx context.Context, req *model.ItemRequest) (*model.Item, error) {
	it, err := s.itemFromRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.itemRepo.Create(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// Update modifies an item.
func (s *ItemService) Update(ctx context.Context, id int, req *model.ItemRequest) (*model.Item, error) {
	it, err := s.itemFromRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	it.ID = id
	if err := s.itemRepo.Update(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// Upsert creates or updates the item sharing req's code.
func (s *ItemService) Upsert(ctx context.Context, req *model.ItemRequest) (bool, error) {
	it, err := s.itemFromRequest(ctx, req)
	if err != nil {
		return false, err
	}
	return s.itemRepo.UpsertByCode(ctx, it)
}

// Delete removes an item.
func (s *ItemService) Delete(ctx context.Context, id int) error {
	return s.itemRepo.Delete(ctx, id)
}

// itemFromRequest resolves the category by code when no ID was given.
func (s *ItemService) itemFromRequest(ctx context.Context, req *model.ItemRequest) (*model.Item, error) {
	it := &model.Item{
		Code:          req.Code,
		Name:          req.Name,
		CategoryID:    req.CategoryID,
		Unit:          req.Unit,
		TotalQuantity: req.TotalQuantity,
		Description:   req.Description,
		IsActive:      true,
	}
	if req.IsActive != nil {
		it.IsActive = *req.IsActive
	}

	if it.CategoryID == nil && req.CategoryCode != "" {
		info, _ := model.LookupMasterEntity(string(model.EntityItemCategory))
		cat, err := s.masterRepo.GetByCode(ctx, info, req.CategoryCode)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NewValidationError("category_code", "unknown item category "+req.CategoryCode)
		}
		if err != nil {
			return nil, err
		}
		it.CategoryID = &cat.ID
	}
	return it, nil
}
