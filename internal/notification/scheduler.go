package notification

import (
	"context"
	"log"
	"time"

	"parkspot-backend/config"
	"parkspot-backend/internal/store"
)

// Scheduler periodically finds records that have been parked longer
// than the configured threshold and hands them to the worker pool.
type Scheduler struct {
	cfg   *config.ReminderConfig
	store store.Store
	pool  *WorkerPool
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(cfg *config.ReminderConfig, s store.Store, pool *WorkerPool) *Scheduler {
	return &Scheduler{cfg: cfg, store: s, pool: pool}
}

// Run ticks until ctx is cancelled. The first sweep happens one full
// interval after startup.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	log.Printf("Reminder scheduler started (interval %s, threshold %s)", s.cfg.Interval, s.cfg.After)
	for {
		select {
		case <-ticker.C:
			s.SweepOnce(ctx)
		case <-ctx.Done():
			log.Println("Reminder scheduler shutting down")
			return
		}
	}
}

// SweepOnce runs a single reminder sweep.
func (s *Scheduler) SweepOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cfg.After)
	records, err := s.store.RecordsDueReminder(ctx, cutoff)
	if err != nil {
		log.Printf("Reminder sweep failed: %v", err)
		return
	}

	for _, rec := range records {
		select {
		case <-ctx.Done():
			return
		default:
			s.pool.Dispatch(rec)
		}
	}
}
