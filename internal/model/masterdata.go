package model

import "time"

// MasterEntity identifies one of the simple code/name lookup tables.
type MasterEntity string

const (
	EntityCompany      MasterEntity = "companies"
	EntityLocation     MasterEntity = "locations"
	EntityContractor   MasterEntity = "contractors"
	EntityMachine      MasterEntity = "machines"
	EntityItemCategory MasterEntity = "item-categories"
	EntityStatus       MasterEntity = "statuses"
	EntityDivision     MasterEntity = "divisions"
)

// MasterEntityInfo describes storage and access rules for a MasterEntity.
type MasterEntityInfo struct {
	Entity     MasterEntity
	Table      string
	Label      string
	Capability Capability
}

var masterEntities = map[MasterEntity]MasterEntityInfo{
	EntityCompany:      {EntityCompany, "companies", "Company", CapViewCompanyMaster},
	EntityLocation:     {EntityLocation, "locations", "Location", CapViewLocationMaster},
	EntityContractor:   {EntityContractor, "contractors", "Contractor", CapViewContractorMaster},
	EntityMachine:      {EntityMachine, "machines", "Machine", CapViewMachineMaster},
	EntityItemCategory: {EntityItemCategory, "item_categories", "Item Category", CapViewItemCategoryMaster},
	EntityStatus:       {EntityStatus, "statuses", "Status", CapViewStatusMaster},
	EntityDivision:     {EntityDivision, "divisions", "Division", CapAccessSettings},
}

// LookupMasterEntity returns the descriptor for a URL slug.
func LookupMasterEntity(slug string) (MasterEntityInfo, bool) {
	info, ok := masterEntities[MasterEntity(slug)]
	return info, ok
}

// MasterEntities returns every descriptor, divisions last.
func MasterEntities() []MasterEntityInfo {
	return []MasterEntityInfo{
		masterEntities[EntityCompany],
		masterEntities[EntityLocation],
		masterEntities[EntityContractor],
		masterEntities[EntityMachine],
		masterEntities[EntityItemCategory],
		masterEntities[EntityStatus],
		masterEntities[EntityDivision],
	}
}

// MasterRecord is the shared shape of every lookup table row.
type MasterRecord struct {
	ID          int       `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MasterRecordRequest is the payload for creating or updating a lookup row.
// It doubles as the row schema for spreadsheet imports.
type MasterRecordRequest struct {
	Code        string `json:"code" binding:"required,max=50" validate:"required,max=50"`
	Name        string `json:"name" binding:"required,max=255" validate:"required,max=255"`
	Description string `json:"description" binding:"max=1000" validate:"max=1000"`
	IsActive    *bool  `json:"is_active"`
}

// Item is a tracked tool with stock counters.
type Item struct {
	ID                int       `json:"id"`
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	CategoryID        *int      `json:"category_id"`
	CategoryName      string    `json:"category_name,omitempty"`
	Unit              string    `json:"unit"`
	TotalQuantity     int       `json:"total_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	Description       string    `json:"description"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ItemRequest is the payload for creating or updating an item.
type ItemRequest struct {
	Code          string `json:"code" binding:"required,max=50" validate:"required,max=50"`
	Name          string `json:"name" binding:"required,max=255" validate:"required,max=255"`
	CategoryID    *int   `json:"category_id"`
	CategoryCode  string `json:"category_code,omitempty" validate:"max=50"`
	Unit          string `json:"unit" binding:"required,max=20" validate:"required,max=20"`
	TotalQuantity int    `json:"total_quantity" binding:"gte=0" validate:"gte=0"`
	Description   string `json:"description" binding:"max=1000" validate:"max=1000"`
	IsActive      *bool  `json:"is_active"`
}

// ListFilter holds common list query parameters.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
