package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/tooltrack-backend/internal/apperr"
	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/navigation"
	"github.com/stemsi/tooltrack-backend/internal/repository"
)

type fakePermissionRepo struct {
	mu      sync.Mutex
	sets    map[model.Role]model.PermissionSet
	gets    int
	failGet error
}

func newFakePermissionRepo(sets ...model.PermissionSet) *fakePermissionRepo {
	r := &fakePermissionRepo{sets: map[model.Role]model.PermissionSet{}}
	for _, s := range sets {
		r.sets[s.Role] = s
	}
	return r
}

func (r *fakePermissionRepo) GetByRole(_ context.Context, role model.Role) (*model.PermissionSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.failGet != nil {
		return nil, r.failGet
	}
	s, ok := r.sets[role]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *fakePermissionRepo) List(_ context.Context) ([]model.PermissionSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.PermissionSet, 0, len(r.sets))
	for _, role := range model.ConfigurableRoles {
		if s, ok := r.sets[role]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakePermissionRepo) ReplaceAll(_ context.Context, sets []model.PermissionSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range sets {
		r.sets[s.Role] = s
	}
	return nil
}

func newTestPermissionService(t *testing.T, repo repository.PermissionRepository) (*PermissionService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewPermissionService(repo, NewPermissionCache(rdb, time.Minute), zerolog.Nop()), mr
}

func TestPermissionService_AdminNeverTouchesStorage(t *testing.T) {
	repo := newFakePermissionRepo()
	svc, _ := newTestPermissionService(t, repo)

	set, err := svc.ForRole(context.Background(), model.RoleAdmin)
	require.NoError(t, err)
	for _, c := range model.AllCapabilities {
		assert.True(t, set.Has(c), c)
	}
	assert.Equal(t, 0, repo.gets)
}

func TestPermissionService_ForRoleCachesResult(t *testing.T) {
	repo := newFakePermissionRepo(model.PermissionSet{Role: model.RoleUser, ViewOutward: true})
	svc, mr := newTestPermissionService(t, repo)
	ctx := context.Background()

	first, err := svc.ForRole(ctx, model.RoleUser)
	require.NoError(t, err)
	second, err := svc.ForRole(ctx, model.RoleUser)
	require.NoError(t, err)

	assert.True(t, first.ViewOutward)
	assert.True(t, second.ViewOutward)
	assert.Equal(t, 1, repo.gets)
	assert.True(t, mr.Exists("permissions:g0:role:user"))
}

func TestPermissionService_MissingRoleCachedAsNil(t *testing.T) {
	repo := newFakePermissionRepo()
	svc, _ := newTestPermissionService(t, repo)
	ctx := context.Background()

	set, err := svc.ForRole(ctx, model.RoleManager)
	require.NoError(t, err)
	assert.Nil(t, set)

	set, err = svc.ForRole(ctx, model.RoleManager)
	require.NoError(t, err)
	assert.Nil(t, set)
	assert.Equal(t, 1, repo.gets)
}

func TestPermissionService_UpdateInvalidatesCache(t *testing.T) {
	repo := newFakePermissionRepo(model.PermissionSet{Role: model.RoleUser, ViewOutward: true})
	svc, mr := newTestPermissionService(t, repo)
	ctx := context.Background()

	_, err := svc.ForRole(ctx, model.RoleUser)
	require.NoError(t, err)
	require.True(t, mr.Exists("permissions:g0:role:user"))

	updated, err := svc.Update(ctx, []model.PermissionSet{{Role: model.RoleUser, ViewReports: true}})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.False(t, mr.Exists("permissions:g0:role:user"))
	gen, err := mr.Get("permissions:generation")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	set, err := svc.ForRole(ctx, model.RoleUser)
	require.NoError(t, err)
	assert.False(t, set.ViewOutward)
	assert.True(t, set.ViewReports)
}

func TestPermissionService_UpdateRejectsInvalidRoles(t *testing.T) {
	svc, _ := newTestPermissionService(t, newFakePermissionRepo())

	cases := map[string][]model.PermissionSet{
		"empty":     nil,
		"admin":     {{Role: model.RoleAdmin}},
		"unknown":   {{Role: model.Role("guest")}},
		"duplicate": {{Role: model.RoleUser}, {Role: model.RoleUser}},
	}
	for name, sets := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), sets)
			var verr *apperr.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Fields)
		})
	}
}

func TestPermissionService_LiveSourceBypassesCache(t *testing.T) {
	repo := newFakePermissionRepo(model.PermissionSet{Role: model.RoleUser, ViewInward: true})
	svc, _ := newTestPermissionService(t, repo)
	ctx := context.Background()

	_, err := svc.ForRole(ctx, model.RoleUser)
	require.NoError(t, err)

	// Change storage behind the cache's back.
	repo.sets[model.RoleUser] = model.PermissionSet{Role: model.RoleUser, ViewReports: true}

	route := navigation.NewResolver(zerolog.Nop()).Resolve(ctx, model.RoleUser, svc.CurrentCallerSource(model.RoleUser))
	assert.Equal(t, navigation.RouteReports, route)
	assert.Equal(t, 2, repo.gets)
}

func TestPermissionService_SourceWrapsFetchError(t *testing.T) {
	repo := newFakePermissionRepo()
	repo.failGet = errors.New("connection refused")
	svc, _ := newTestPermissionService(t, repo)

	_, err := svc.CurrentCallerSource(model.RoleUser).PermissionsForCurrentCaller(context.Background())
	var ferr *apperr.FetchError
	require.ErrorAs(t, err, &ferr)
	assert.ErrorContains(t, err, "connection refused")
}

// pausingPermissionRepo holds GetByRole after the row has been read, so an
// update can commit while the stale copy is still on its way to the cache.
type pausingPermissionRepo struct {
	*fakePermissionRepo
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *pausingPermissionRepo) GetByRole(ctx context.Context, role model.Role) (*model.PermissionSet, error) {
	set, err := r.fakePermissionRepo.GetByRole(ctx, role)
	paused := false
	r.once.Do(func() { paused = true })
	if paused {
		close(r.read)
		<-r.release
	}
	return set, err
}

func TestPermissionService_SlowReaderCannotRestoreStaleSet(t *testing.T) {
	repo := &pausingPermissionRepo{
		fakePermissionRepo: newFakePermissionRepo(model.PermissionSet{Role: model.RoleUser, ViewReports: true}),
		read:               make(chan struct{}),
		release:            make(chan struct{}),
	}
	svc, _ := newTestPermissionService(t, repo)
	ctx := context.Background()

	done := make(chan *model.PermissionSet, 1)
	go func() {
		set, err := svc.ForRole(ctx, model.RoleUser)
		assert.NoError(t, err)
		done <- set
	}()

	<-repo.read
	_, err := svc.Update(ctx, []model.PermissionSet{{Role: model.RoleUser, ViewOutward: true}})
	require.NoError(t, err)

	close(repo.release)
	stale := <-done
	require.NotNil(t, stale)
	assert.True(t, stale.ViewReports, "the in-flight read answers with what it loaded")

	set, err := svc.ForRole(ctx, model.RoleUser)
	require.NoError(t, err)
	require.NotNil(t, set)
	assert.True(t, set.ViewOutward)
	assert.False(t, set.ViewReports)
}
