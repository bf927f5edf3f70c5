// Package usage runs the scheduled monthly reset of API key request counters.
package usage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/toolcatalog/toolcatalog/internal/metrics"
)

// DefaultSchedule runs shortly after midnight UTC on the first day of every month.
const DefaultSchedule = "5 0 1 * *"

// Store resets counters of keys whose last reset predates now's month.
type Store interface {
	RolloverMonthly(ctx context.Context, now time.Time) (int64, error)
}

// Rollover zeroes request counters on a cron schedule.
type Rollover struct {
	store    Store
	schedule string
	cron     *cron.Cron
	now      func() time.Time
}

// NewRollover constructs a Rollover. An empty schedule uses DefaultSchedule.
func NewRollover(store Store, schedule string) *Rollover {
	if store == nil {
		return nil
	}
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Rollover{
		store:    store,
		schedule: schedule,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		now:      time.Now,
	}
}

// Start registers the job and starts the scheduler. The job also runs once
// immediately so a restart after the month boundary still rolls over.
func (r *Rollover) Start(ctx context.Context) error {
	if r == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, errAdd := r.cron.AddFunc(r.schedule, func() { r.RunOnce(ctx) }); errAdd != nil {
		return fmt.Errorf("usage rollover: invalid schedule %q: %w", r.schedule, errAdd)
	}
	go r.RunOnce(ctx)
	r.cron.Start()
	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	log.Infof("usage rollover scheduled (schedule=%q)", r.schedule)
	return nil
}

// Stop halts the scheduler and waits for a running job.
func (r *Rollover) Stop() {
	if r == nil || r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

// RunOnce performs a single rollover pass and returns the number of keys reset.
func (r *Rollover) RunOnce(ctx context.Context) int64 {
	if r == nil || r.store == nil {
		return 0
	}
	if ctx != nil && ctx.Err() != nil {
		return 0
	}
	n, errRollover := r.store.RolloverMonthly(ctx, r.now().UTC())
	if errRollover != nil {
		log.WithError(errRollover).Warn("usage rollover: reset failed")
		return 0
	}
	if n > 0 {
		metrics.UsageRolloverKeysTotal.Add(float64(n))
		log.Infof("usage rollover: reset %d api key counters", n)
	}
	return n
}
