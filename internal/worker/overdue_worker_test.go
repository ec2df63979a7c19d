package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIssues struct {
	repository.IssueRepository
	overdue []model.Issue
	err     error
	asOf    time.Time
	calls   int
}

func (s *stubIssues) ListOverdue(_ context.Context, now time.Time, afterID, limit int) ([]model.Issue, error) {
	s.asOf = now
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var page []model.Issue
	for _, is := range s.overdue {
		if is.ID <= afterID {
			continue
		}
		if len(page) == limit {
			break
		}
		page = append(page, is)
	}
	return page, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []model.MovementEvent
}

func (b *recordingBus) Publish(_ context.Context, ev model.MovementEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func newWorker(t *testing.T, issues *stubIssues, bus *recordingBus) *OverdueWorker {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewOverdueWorker(issues, rdb, bus, time.Minute, zerolog.Nop())
}

func TestOverdueWorker_AnnouncesOnce(t *testing.T) {
	issues := &stubIssues{overdue: []model.Issue{
		{ID: 1, IssueNo: "ISS-20260101-0001", ItemID: 4, Quantity: 5, ReturnedQuantity: 2},
		{ID: 2, IssueNo: "ISS-20260101-0002", ItemID: 9, Quantity: 1},
	}}
	bus := &recordingBus{}
	w := newWorker(t, issues, bus)
	fixed := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	n, err := w.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, fixed, issues.asOf)

	require.Len(t, bus.events, 2)
	assert.Equal(t, model.MovementOverdue, bus.events[0].Kind)
	assert.Equal(t, 3, bus.events[0].Quantity)

	n, err = w.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, bus.events, 2)
}

func TestOverdueWorker_PagesPastFirstBatch(t *testing.T) {
	total := overdueBatchSize + 50
	issues := &stubIssues{}
	for id := 1; id <= total; id++ {
		issues.overdue = append(issues.overdue, model.Issue{ID: id, ItemID: 1, Quantity: 1})
	}
	bus := &recordingBus{}
	w := newWorker(t, issues, bus)
	ctx := context.Background()

	n, err := w.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, total, n)
	assert.Equal(t, 2, issues.calls)

	// New overdue issues still surface once the earlier ones are marked.
	issues.overdue = append(issues.overdue, model.Issue{ID: total + 1, ItemID: 1, Quantity: 1})
	n, err = w.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, bus.events, total+1)
	assert.Equal(t, total+1, bus.events[total].IssueID)
}

func TestOverdueWorker_RepositoryError(t *testing.T) {
	issues := &stubIssues{err: errors.New("db down")}
	bus := &recordingBus{}
	w := newWorker(t, issues, bus)

	_, err := w.Scan(context.Background())
	assert.Error(t, err)
	assert.Empty(t, bus.events)
}

func TestOverdueWorker_StopsOnCancel(t *testing.T) {
	w := newWorker(t, &stubIssues{}, &recordingBus{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
