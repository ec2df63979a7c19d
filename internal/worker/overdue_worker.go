package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/tooltrack-backend/internal/config"
	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/repository"
)

const (
	overdueBatchSize = 200
	overdueNoticeTTL = 30 * 24 * time.Hour
)

// Publisher is the part of the event bus the worker needs.
type Publisher interface {
	Publish(ctx context.Context, ev model.MovementEvent)
}

// OverdueWorker periodically looks for issues past their expected return
// date and announces each one once on the live dashboard feed.
type OverdueWorker struct {
	issues   repository.IssueRepository
	rdb      *redis.Client
	bus      Publisher
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewOverdueWorker creates a new OverdueWorker.
func NewOverdueWorker(issues repository.IssueRepository, rdb *redis.Client, bus Publisher, interval time.Duration, log zerolog.Logger) *OverdueWorker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &OverdueWorker{
		issues:   issues,
		rdb:      rdb,
		bus:      bus,
		interval: interval,
		log:      log.With().Str("component", "overdue_worker").Logger(),
		now:      time.Now,
	}
}

// Start runs a scan immediately and then on every tick. Call in a goroutine.
func (w *OverdueWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if n, err := w.Scan(ctx); err != nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Overdue scan failed")
		} else if n > 0 {
			w.log.Info().Int("count", n).Msg("Announced overdue issues")
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Scan publishes an overdue event for every overdue issue not announced yet
// and returns how many were published. It pages through the whole overdue
// set, so already-announced issues never hide later ones.
func (w *OverdueWorker) Scan(ctx context.Context) (int, error) {
	now := w.now()
	published := 0
	afterID := 0
	for {
		issues, err := w.issues.ListOverdue(ctx, now, afterID, overdueBatchSize)
		if err != nil {
			return published, err
		}

		for _, is := range issues {
			// SetNX keeps several server instances from announcing the same issue.
			fresh, err := w.rdb.SetNX(ctx, config.CacheKey.OverdueNoticeKey(is.ID), 1, overdueNoticeTTL).Result()
			if err != nil {
				return published, err
			}
			if !fresh {
				continue
			}

			w.bus.Publish(ctx, model.MovementEvent{
				Kind:     model.MovementOverdue,
				IssueID:  is.ID,
				IssueNo:  is.IssueNo,
				ItemID:   is.ItemID,
				Quantity: is.Outstanding(),
			})
			published++
		}

		if len(issues) < overdueBatchSize {
			return published, nil
		}
		afterID = issues[len(issues)-1].ID
	}
}
