package service

import (
	"context"

	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/repository"
	"github.com/stemsi/tooltrack-backend/internal/response"
)

// MasterService handles the code/name lookup tables.
type MasterService struct {
	repo repository.MasterRepository
}

// NewMasterService creates a new MasterService.
func NewMasterService(repo repository.MasterRepository) *MasterService {
	return &MasterService{repo: repo}
}

// List retrieves lookup rows with pagination and an optional search term.
func (s *MasterService) List(ctx context.Context, info model.MasterEntityInfo, search string, page, perPage int) ([]model.MasterRecord, *response.Pagination, error) {
	page, perPage, limit, offset := clampPage(page, perPage)

	records, total, err := s.repo.List(ctx, info, model.ListFilter{Search: search, Limit: limit, Offset: offset})
	if err != nil {
		return nil, nil, err
	}
	if records == nil {
		records = []model.MasterRecord{}
	}
	return records, newPagination(page, perPage, total), nil
}

// All returns every row of a lookup table, e.g. for export.
func (s *MasterService) All(ctx context.Context, info model.MasterEntityInfo) ([]model.MasterRecord, error) {
	return s.repo.All(ctx, info)
}

// GetByID retrieves a lookup row by ID.
func (s *MasterService) GetByID(ctx context.Context, info model.MasterEntityInfo, id int) (*model.MasterRecord, error) {
	return s.repo.GetByID(ctx, info, id)
}

// Create inserts a new lookup row.
func (s *MasterService) Create(ctx context.Context, info model.MasterEntityInfo, req *model.MasterRecordRequest) (*model.MasterRecord, error) {
	rec := masterRecordFromRequest(req)
	if err := s.repo.Create(ctx, info, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update modifies a lookup row.
func (s *MasterService) Update(ctx context.Context, info model.MasterEntityInfo, id int, req *model.MasterRecordRequest) (*model.MasterRecord, error) {
	rec := masterRecordFromRequest(req)
	rec.ID = id
	if err := s.repo.Update(ctx, info, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Upsert creates or updates the row sharing req's code.
func (s *MasterService) Upsert(ctx context.Context, info model.MasterEntityInfo, req *model.MasterRecordRequest) (bool, error) {
	return s.repo.UpsertByCode(ctx, info, masterRecordFromRequest(req))
}

// Delete removes a lookup row.
func (s *MasterService) Delete(ctx context.Context, info model.MasterEntityInfo, id int) error {
	return s.repo.Delete(ctx, info, id)
}

func masterRecordFromRequest(req *model.MasterRecordRequest) *model.MasterRecord {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &model.MasterRecord{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    active,
	}
}
