package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/repository"
)

func newTestIssueService(t *testing.T, available map[int]int) (*IssueService, *EventBus, *fakeIssueRepo) {
	t.Helper()
	rdb, _ := newTestRedis(t)
	repo := &fakeIssueRepo{available: available}
	bus := NewEventBus(rdb, zerolog.Nop())
	svc := NewIssueService(repo, rdb, bus, nil, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	return svc, bus, repo
}

func TestIssueService_NextIssueNoIsSequentialPerDay(t *testing.T) {
	svc, _, _ := newTestIssueService(t, nil)
	ctx := context.Background()

	first, err := svc.NextIssueNo(ctx)
	require.NoError(t, err)
	second, err := svc.NextIssueNo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ISS-20260314-0001", first)
	assert.Equal(t, "ISS-20260314-0002", second)

	svc.now = func() time.Time { return time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC) }
	next, err := svc.NextIssueNo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ISS-20260315-0001", next)
}

func TestIssueService_IssueAndReturnLifecycle(t *testing.T) {
	svc, _, repo := newTestIssueService(t, map[int]int{1: 10})
	ctx := context.Background()

	is, err := svc.Create(ctx, &model.CreateIssueRequest{ItemID: 1, DivisionID: 2, Quantity: 4}, 9)
	require.NoError(t, err)
	assert.Equal(t, model.IssueStateIssued, is.State)
	assert.Equal(t, 6, repo.available[1])

	_, updated, err := svc.Return(ctx, &model.CreateReturnRequest{IssueID: is.ID, Quantity: 1}, 9)
	require.NoError(t, err)
	assert.Equal(t, model.IssueStatePartial, updated.State)
	assert.Equal(t, 3, updated.Outstanding())

	_, _, err = svc.Return(ctx, &model.CreateReturnRequest{IssueID: is.ID, Quantity: 5}, 9)
	assert.ErrorIs(t, err, repository.ErrReturnExceedsOutstanding)

	_, updated, err = svc.Return(ctx, &model.CreateReturnRequest{IssueID: is.ID, Quantity: 3}, 9)
	require.NoError(t, err)
	assert.Equal(t, model.IssueStateReturned, updated.State)
	assert.Equal(t, 10, repo.available[1])
}

func TestIssueService_InsufficientStock(t *testing.T) {
	svc, _, _ := newTestIssueService(t, map[int]int{1: 2})

	_, err := svc.Create(context.Background(), &model.CreateIssueRequest{ItemID: 1, DivisionID: 1, Quantity: 3}, 1)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
}

func TestIssueService_PublishesMovementEvents(t *testing.T) {
	svc, bus, _ := newTestIssueService(t, map[int]int{1: 5})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, closeSub, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	defer closeSub()

	is, err := svc.Create(ctx, &model.CreateIssueRequest{ItemID: 1, DivisionID: 1, Quantity: 2}, 4)
	require.NoError(t, err)

	select {
	case raw := <-events:
		var ev model.MovementEvent
		require.NoError(t, json.Unmarshal([]byte(raw), &ev))
		assert.Equal(t, model.MovementOutward, ev.Kind)
		assert.Equal(t, is.IssueNo, ev.IssueNo)
		assert.Equal(t, 2, ev.Quantity)
	case <-time.After(2 * time.Second):
		t.Fatal("no movement event received")
	}
}

func TestIssueService_DefaultReturnDate(t *testing.T) {
	svc, _, _ := newTestIssueService(t, map[int]int{1: 5})
	svc.settings = NewSettingService(newFakeSettingRepo(map[string]string{SettingDefaultReturnDays: "7"}), zerolog.Nop())
	ctx := context.Background()

	is, err := svc.Create(ctx, &model.CreateIssueRequest{ItemID: 1, DivisionID: 1, Quantity: 1}, 1)
	require.NoError(t, err)
	require.NotNil(t, is.ExpectedReturnAt)
	assert.Equal(t, time.Date(2026, 3, 21, 9, 30, 0, 0, time.UTC), *is.ExpectedReturnAt)

	due := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	is, err = svc.Create(ctx, &model.CreateIssueRequest{ItemID: 1, DivisionID: 1, Quantity: 1, ExpectedReturnAt: &due}, 1)
	require.NoError(t, err)
	assert.Equal(t, due, *is.ExpectedReturnAt)

	svc.settings = NewSettingService(newFakeSettingRepo(map[string]string{SettingDefaultReturnDays: "0"}), zerolog.Nop())
	is, err = svc.Create(ctx, &model.CreateIssueRequest{ItemID: 1, DivisionID: 1, Quantity: 1}, 1)
	require.NoError(t, err)
	assert.Nil(t, is.ExpectedReturnAt)
}

func TestIssueService_SequenceSurvivesRedisReset(t *testing.T) {
	rdb, mr := newTestRedis(t)
	repo := &fakeIssueRepo{available: map[int]int{1: 10}}
	svc := NewIssueService(repo, rdb, NewEventBus(rdb, zerolog.Nop()), nil, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	ctx := context.Background()
	req := &model.CreateIssueRequest{ItemID: 1, DivisionID: 1, Quantity: 1}

	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, req, 1)
		require.NoError(t, err)
	}

	mr.FlushAll()
	is, err := svc.Create(ctx, req, 1)
	require.NoError(t, err)
	assert.Equal(t, "ISS-20260314-0003", is.IssueNo)

	// A counter left behind storage without starting over is caught on insert.
	mr.Set("issue:seq:20260314", "1")
	is, err = svc.Create(ctx, req, 1)
	require.NoError(t, err)
	assert.Equal(t, "ISS-20260314-0004", is.IssueNo)
	assert.Len(t, repo.issues, 4)
}
