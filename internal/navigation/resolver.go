package navigation

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stemsi/tooltrack-backend/internal/model"
)

// PermissionSource supplies the caller's own PermissionSet. A nil set with a
// nil error means nothing is configured for the caller's role.
type PermissionSource interface {
	PermissionsForCurrentCaller(ctx context.Context) (*model.PermissionSet, error)
}

// PermissionSourceFunc adapts a function to PermissionSource.
type PermissionSourceFunc func(ctx context.Context) (*model.PermissionSet, error)

func (f PermissionSourceFunc) PermissionsForCurrentCaller(ctx context.Context) (*model.PermissionSet, error) {
	return f(ctx)
}

// Navigator performs a client-side navigation.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// Resolver maps a role and its permissions to a single landing route.
type Resolver struct {
	log zerolog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(log zerolog.Logger) *Resolver {
	return &Resolver{log: log.With().Str("component", "redirect_resolver").Logger()}
}

// Resolve returns the landing route for role. The admin role short-circuits
// without touching src. For every other role src is consulted exactly once;
// a failed fetch is logged and degrades to the dashboard.
func (r *Resolver) Resolve(ctx context.Context, role model.Role, src PermissionSource) string {
	if role.IsElevated() {
		return RouteDashboard
	}
	if src == nil {
		return RouteDashboard
	}

	perms, err := src.PermissionsForCurrentCaller(ctx)
	if err != nil {
		r.log.Warn().Err(err).Str("role", role.String()).Msg("permission fetch failed, using default route")
		return RouteDashboard
	}

	return RouteFor(perms)
}

// ResolveAndNavigate resolves the landing route and hands it to nav once.
// When ctx has been cancelled while the fetch was outstanding, the owning view
// is gone and the navigation is dropped.
func (r *Resolver) ResolveAndNavigate(ctx context.Context, role model.Role, src PermissionSource, nav Navigator) string {
	route := r.Resolve(ctx, role, src)
	if ctx.Err() != nil {
		r.log.Debug().Str("route", route).Msg("context closed before navigation, skipping")
		return route
	}
	if nav != nil {
		nav.Navigate(route)
	}
	return route
}

// masterOrder is the fixed order in which master sub-pages are tried.
var masterOrder = []struct {
	cap   model.Capability
	route string
}{
	{model.CapViewCompanyMaster, RouteCompanyMaster},
	{model.CapViewLocationMaster, RouteLocationMaster},
	{model.CapViewContractorMaster, RouteContractorMaster},
	{model.CapViewMachineMaster, RouteMachineMaster},
	{model.CapViewItemCategoryMaster, RouteItemCategoryMaster},
	{model.CapViewItemMaster, RouteItemMaster},
	{model.CapViewStatusMaster, RouteStatusMaster},
}

// RouteFor applies the landing precedence to a permission set. First true
// flag wins; a nil or all-false set lands on the dashboard.
func RouteFor(p *model.PermissionSet) string {
	if p == nil {
		return RouteDashboard
	}

	switch {
	case p.ViewDashboard:
		return RouteDashboard
	case p.ViewMaster:
		return masterRoute(p)
	case p.ViewOutward:
		return RouteOutward
	case p.ViewInward:
		return RouteInward
	case p.ViewReports:
		return RouteReports
	case p.AccessSettings:
		return RouteSettings
	}

	return RouteDashboard
}

func masterRoute(p *model.PermissionSet) string {
	for _, m := range masterOrder {
		if p.Has(m.cap) {
			return m.route
		}
	}
	// view_master without any sub-flag still opens the item list.
	return RouteItemMaster
}
