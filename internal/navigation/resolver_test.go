package navigation

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/tooltrack-backend/internal/apperr"
	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spySource struct {
	perms *model.PermissionSet
	err   error
	calls int
}

func (s *spySource) PermissionsForCurrentCaller(ctx context.Context) (*model.PermissionSet, error) {
	s.calls++
	return s.perms, s.err
}

type recordingNavigator struct {
	routes []string
}

func (n *recordingNavigator) Navigate(route string) {
	n.routes = append(n.routes, route)
}

func newTestResolver() *Resolver {
	return NewResolver(zerolog.Nop())
}

func TestResolveAdminSkipsFetch(t *testing.T) {
	src := &spySource{perms: &model.PermissionSet{ViewReports: true}}

	route := newTestResolver().Resolve(context.Background(), model.RoleAdmin, src)

	assert.Equal(t, RouteDashboard, route)
	assert.Zero(t, src.calls, "admin must not trigger a permission fetch")
}

func TestResolveNonAdmin(t *testing.T) {
	cases := []struct {
		name  string
		perms *model.PermissionSet
		want  string
	}{
		{
			name:  "dashboard wins over everything",
			perms: &model.PermissionSet{ViewDashboard: true, ViewMaster: true, ViewCompanyMaster: true, AccessSettings: true},
			want:  RouteDashboard,
		},
		{
			name:  "master without sub flags falls back to items",
			perms: &model.PermissionSet{ViewMaster: true},
			want:  RouteItemMaster,
		},
		{
			name:  "contractor precedes machine",
			perms: &model.PermissionSet{ViewMaster: true, ViewContractorMaster: true, ViewMachineMaster: true},
			want:  RouteContractorMaster,
		},
		{
			name:  "company first in master order",
			perms: &model.PermissionSet{ViewMaster: true, ViewStatusMaster: true, ViewCompanyMaster: true},
			want:  RouteCompanyMaster,
		},
		{
			name:  "status last in master order",
			perms: &model.PermissionSet{ViewMaster: true, ViewStatusMaster: true},
			want:  RouteStatusMaster,
		},
		{
			name:  "sub flag ignored without umbrella",
			perms: &model.PermissionSet{ViewCompanyMaster: true, ViewInward: true},
			want:  RouteInward,
		},
		{
			name:  "outward",
			perms: &model.PermissionSet{ViewOutward: true, ViewInward: true},
			want:  RouteOutward,
		},
		{
			name:  "reports",
			perms: &model.PermissionSet{ViewReports: true, AccessSettings: true},
			want:  RouteReports,
		},
		{
			name:  "settings",
			perms: &model.PermissionSet{AccessSettings: true},
			want:  RouteSettings,
		},
		{
			name:  "all false",
			perms: &model.PermissionSet{Role: model.RoleUser},
			want:  RouteDashboard,
		},
		{
			name:  "nil set",
			perms: nil,
			want:  RouteDashboard,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, role := range []model.Role{model.RoleManager, model.RoleUser} {
				src := &spySource{perms: tc.perms}
				got := newTestResolver().Resolve(context.Background(), role, src)
				assert.Equal(t, tc.want, got)
				assert.Equal(t, 1, src.calls)
			}
		})
	}
}

func TestResolveFetchFailureDefaultsToDashboard(t *testing.T) {
	src := &spySource{err: &apperr.FetchError{Op: "permissions", Err: errors.New("network down")}}

	var route string
	require.NotPanics(t, func() {
		route = newTestResolver().Resolve(context.Background(), model.RoleUser, src)
	})

	assert.Equal(t, RouteDashboard, route)
	assert.Equal(t, 1, src.calls, "no retries")
}

func TestResolveIsIdempotent(t *testing.T) {
	perms := &model.PermissionSet{ViewMaster: true, ViewMachineMaster: true}
	r := newTestResolver()

	first := r.Resolve(context.Background(), model.RoleManager, &spySource{perms: perms})
	second := r.Resolve(context.Background(), model.RoleManager, &spySource{perms: perms})

	assert.Equal(t, RouteMachineMaster, first)
	assert.Equal(t, first, second)
}

func TestResolveAndNavigateOnce(t *testing.T) {
	nav := &recordingNavigator{}
	src := &spySource{perms: &model.PermissionSet{ViewOutward: true}}

	route := newTestResolver().ResolveAndNavigate(context.Background(), model.RoleUser, src, nav)

	assert.Equal(t, RouteOutward, route)
	assert.Equal(t, []string{RouteOutward}, nav.routes)
}

func TestResolveAndNavigateDroppedAfterTeardown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	nav := &recordingNavigator{}
	src := PermissionSourceFunc(func(context.Context) (*model.PermissionSet, error) {
		// The view is torn down while the fetch is in flight.
		cancel()
		return &model.PermissionSet{ViewReports: true}, nil
	})

	require.NotPanics(t, func() {
		newTestResolver().ResolveAndNavigate(ctx, model.RoleUser, src, nav)
	})
	assert.Empty(t, nav.routes)
}

func TestRouteForNilSource(t *testing.T) {
	assert.Equal(t, RouteDashboard, newTestResolver().Resolve(context.Background(), model.RoleUser, nil))
}
