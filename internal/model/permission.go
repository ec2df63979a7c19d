package model

import "time"

// Capability names a single boolean flag of a PermissionSet.
type Capability string

const (
	CapViewDashboard          Capability = "view_dashboard"
	CapViewMaster             Capability = "view_master"
	CapViewCompanyMaster      Capability = "view_company_master"
	CapViewLocationMaster     Capability = "view_location_master"
	CapViewContractorMaster   Capability = "view_contractor_master"
	CapViewMachineMaster      Capability = "view_machine_master"
	CapViewItemCategoryMaster Capability = "view_item_category_master"
	CapViewItemMaster         Capability = "view_item_master"
	CapViewStatusMaster       Capability = "view_status_master"
	CapViewOutward            Capability = "view_outward"
	CapViewInward             Capability = "view_inward"
	CapViewReports            Capability = "view_reports"
	CapAccessSettings         Capability = "access_settings"
)

// AllCapabilities is a slice of all available capabilities, in display order.
var AllCapabilities = []Capability{
	CapViewDashboard,
	CapViewMaster,
	CapViewCompanyMaster,
	CapViewLocationMaster,
	CapViewContractorMaster,
	CapViewMachineMaster,
	CapViewItemCategoryMaster,
	CapViewItemMaster,
	CapViewStatusMaster,
	CapViewOutward,
	CapViewInward,
	CapViewReports,
	CapAccessSettings,
}

// PermissionSet is the capability record for exactly one role.
type PermissionSet struct {
	Role                   Role      `json:"role" binding:"required"`
	ViewDashboard          bool      `json:"view_dashboard"`
	ViewMaster             bool      `json:"view_master"`
	ViewCompanyMaster      bool      `json:"view_company_master"`
	ViewLocationMaster     bool      `json:"view_location_master"`
	ViewContractorMaster   bool      `json:"view_contractor_master"`
	ViewMachineMaster      bool      `json:"view_machine_master"`
	ViewItemCategoryMaster bool      `json:"view_item_category_master"`
	ViewItemMaster         bool      `json:"view_item_master"`
	ViewStatusMaster       bool      `json:"view_status_master"`
	ViewOutward            bool      `json:"view_outward"`
	ViewInward             bool      `json:"view_inward"`
	ViewReports            bool      `json:"view_reports"`
	AccessSettings         bool      `json:"access_settings"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// FullPermissionSet returns a set with every capability granted.
func FullPermissionSet(role Role) *PermissionSet {
	return &PermissionSet{
		Role:                   role,
		ViewDashboard:          true,
		ViewMaster:             true,
		ViewCompanyMaster:      true,
		ViewLocationMaster:     true,
		ViewContractorMaster:   true,
		ViewMachineMaster:      true,
		ViewItemCategoryMaster: true,
		ViewItemMaster:         true,
		ViewStatusMaster:       true,
		ViewOutward:            true,
		ViewInward:             true,
		ViewReports:            true,
		AccessSettings:         true,
	}
}

// Has reports whether the capability is granted. A nil set grants nothing.
func (p *PermissionSet) Has(c Capability) bool {
	if p == nil {
		return false
	}
	switch c {
	case CapViewDashboard:
		return p.ViewDashboard
	case CapViewMaster:
		return p.ViewMaster
	case CapViewCompanyMaster:
		return p.ViewCompanyMaster
	case CapViewLocationMaster:
		return p.ViewLocationMaster
	case CapViewContractorMaster:
		return p.ViewContractorMaster
	case CapViewMachineMaster:
		return p.ViewMachineMaster
	case CapViewItemCategoryMaster:
		return p.ViewItemCategoryMaster
	case CapViewItemMaster:
		return p.ViewItemMaster
	case CapViewStatusMaster:
		return p.ViewStatusMaster
	case CapViewOutward:
		return p.ViewOutward
	case CapViewInward:
		return p.ViewInward
	case CapViewReports:
		return p.ViewReports
	case CapAccessSettings:
		return p.AccessSettings
	default:
		return false
	}
}

// UpdatePermissionsRequest is the payload for replacing the stored permission sets.
type UpdatePermissionsRequest struct {
	Permissions []PermissionSet `json:"permissions" binding:"required,min=1,dive"`
}
