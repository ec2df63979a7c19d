// Package navigation computes where a freshly authenticated user lands.
package navigation

// Landing routes understood by the web client router.
const (
	RouteDashboard          = "/dashboard"
	RouteCompanyMaster      = "/master/company"
	RouteLocationMaster     = "/master/location"
	RouteContractorMaster   = "/master/contractor"
	RouteMachineMaster      = "/master/machine"
	RouteItemCategoryMaster = "/master/item-category"
	RouteItemMaster         = "/master/item"
	RouteStatusMaster       = "/master/status"
	RouteOutward            = "/outward"
	RouteInward             = "/inward"
	RouteReports            = "/reports"
	RouteSettings           = "/settings"
)
