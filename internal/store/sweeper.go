package store

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	xlog "github.com/voyagen/xtreamrelay/internal/log"
	"github.com/voyagen/xtreamrelay/internal/metrics"
)

// DefaultSweepSchedule runs the sweeper every five minutes.
const DefaultSweepSchedule = "@every 5m"

// Sweeper periodically removes sessions older than the TTL.
type Sweeper struct {
	cron  *cron.Cron
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewSweeper schedules SweepOnce on schedule (cron spec or "@every <duration>").
func NewSweeper(s Store, ttl time.Duration, schedule string) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	sw := &Sweeper{cron: cron.New(), store: s, ttl: ttl, now: time.Now}
	if _, err := sw.cron.AddFunc(schedule, func() {
		_, _ = sw.SweepOnce(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("sweep schedule %q: %w", schedule, err)
	}
	return sw, nil
}

// Start runs the schedule in the background.
func (sw *Sweeper) Start() {
	sw.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (sw *Sweeper) Stop() {
	<-sw.cron.Stop().Done()
}

// SweepOnce removes expired sessions now.
func (sw *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	logger := xlog.WithComponent("sweeper")
	if sw.ttl <= 0 {
		return 0, nil
	}
	n, err := sw.store.Sweep(ctx, sw.now().Add(-sw.ttl))
	if err != nil {
		logger.Error().Err(err).Msg("session sweep failed")
		return 0, err
	}
	metrics.RecordSwept(n)
	if n > 0 {
		logger.Info().Int("removed", n).Msg("expired sessions swept")
	}
	return n, nil
}
