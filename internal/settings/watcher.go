package settings

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultRefreshInterval is used when NewWatcher gets a non-positive interval.
const DefaultRefreshInterval = 30 * time.Second

// Watcher periodically reloads the settings table into a snapshot so that
// writes made by other instances become visible.
type Watcher struct {
	db       *gorm.DB
	snap     *Snapshot
	interval time.Duration
}

// NewWatcher constructs a Watcher refreshing snap from db every interval.
func NewWatcher(db *gorm.DB, snap *Snapshot, interval time.Duration) *Watcher {
	if db == nil || snap == nil {
		return nil
	}
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Watcher{db: db, snap: snap, interval: interval}
}

// Start runs the refresh loop in the background until ctx ends.
func (w *Watcher) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go w.run(ctx)
	log.Infof("settings watcher started (interval=%s)", w.interval)
}

func (w *Watcher) run(ctx context.Context) {
	for {
		timer := time.NewTimer(w.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
		w.refreshOnce(ctx)
	}
}

// refreshOnce reloads the snapshot and reports whether a newer row was seen.
func (w *Watcher) refreshOnce(ctx context.Context) bool {
	before := w.snap.UpdatedAt()
	if errRefresh := Refresh(ctx, w.db, w.snap); errRefresh != nil {
		if ctx.Err() == nil {
			log.WithError(errRefresh).Warn("settings: periodic refresh failed")
		}
		return false
	}
	after := w.snap.UpdatedAt()
	if !after.After(before) {
		return false
	}
	log.WithField("updated_at", after.Format(time.RFC3339Nano)).Info("settings: snapshot reloaded")
	return true
}
