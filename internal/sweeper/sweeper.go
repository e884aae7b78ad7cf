// Package sweeper auto-submits attempts whose time ran out while nobody was
// touching them. Lazy expiry still covers the gap between runs.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Expirer finalizes every in-progress attempt overdue at now.
type Expirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

// RunOnce performs one sweep with a bounded context.
func RunOnce(ctx context.Context, e Expirer, now func() time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	n, err := e.ExpireOverdue(ctx, now())
	if err != nil {
		log.Printf("[SWEEPER] error after %d expired: %v", n, err)
		return n, err
	}
	if n > 0 {
		log.Printf("[SWEEPER] expired %d overdue attempts", n)
	}
	return n, nil
}

// Start schedules RunOnce on a cron spec (e.g. "@every 1m") and returns the
// running scheduler; call Stop on it at shutdown.
func Start(schedule string, e Expirer, now func() time.Time) (*cron.Cron, error) {
	if now == nil {
		now = time.Now
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, func() {
		_, _ = RunOnce(context.Background(), e, now)
	}); err != nil {
		return nil, err
	}
	log.Printf("[SWEEPER] started schedule=%q", schedule)
	c.Start()
	return c, nil
}
