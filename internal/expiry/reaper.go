// Package expiry removes polls and submissions once their expireAt passes.
package expiry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-eventdesk/internal/models"
)

// MaxInterval bounds how long an expired row may survive a missed sweep.
const MaxInterval = time.Minute

// Result counts the rows removed by one sweep.
type Result struct {
	Submissions int64
	Polls       int64
}

type Reaper struct {
	db       *gorm.DB
	interval time.Duration
	log      *zap.Logger

	// Now is the sweep clock; tests replace it.
	Now func() time.Time

	running atomic.Bool
	wg      sync.WaitGroup
}

// New returns a reaper sweeping every interval, clamped to (0, MaxInterval].
func New(db *gorm.DB, interval time.Duration, log *zap.Logger) *Reaper {
	if interval <= 0 || interval > MaxInterval {
		interval = MaxInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reaper{
		db:       db,
		interval: interval,
		log:      log.Named("expiry"),
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// A tick that fires while the previous sweep is still running is skipped.
// Run waits for the in-flight sweep before returning.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer r.wg.Wait()

	r.log.Info("expiry reaper started", zap.Duration("interval", r.interval))
	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("expiry reaper stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick starts a sweep in the background unless one is running.
func (r *Reaper) tick(ctx context.Context) bool {
	if !r.running.CompareAndSwap(false, true) {
		r.log.Debug("sweep still running, skipping tick")
		return false
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.running.Store(false)
		res, err := r.Sweep(ctx)
		if err != nil {
			if ctx.Err() == nil {
				r.log.Error("sweep failed", zap.Error(err))
			}
			return
		}
		if res.Polls > 0 || res.Submissions > 0 {
			r.log.Info("expired rows removed",
				zap.Int64("polls", res.Polls),
				zap.Int64("submissions", res.Submissions))
		}
	}()
	return true
}

// Sweep deletes every submission and poll whose expireAt is at or before
// now. It is idempotent.
func (r *Reaper) Sweep(ctx context.Context) (Result, error) {
	now := r.Now().UTC()
	var res Result
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subs := tx.Where("expire_at <= ?", now).Delete(&models.Submission{})
		if subs.Error != nil {
			return fmt.Errorf("submissions: %w", subs.Error)
		}
		polls := tx.Where("expire_at <= ?", now).Delete(&models.Poll{})
		if polls.Error != nil {
			return fmt.Errorf("polls: %w", polls.Error)
		}
		res = Result{Submissions: subs.RowsAffected, Polls: polls.RowsAffected}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("expiry: sweep: %w", err)
	}
	return res, nil
}
