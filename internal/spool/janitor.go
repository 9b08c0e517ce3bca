package spool

import (
	"context"
	"time"

	"github.com/uniclip/uniclipboard/internal/logging"
	"github.com/uniclip/uniclipboard/internal/models"
	"github.com/uniclip/uniclipboard/internal/repositories/representations"
)

const lostReason = "spool ttl expired"

// Janitor expires spool entries past their TTL. It only invalidates
// representations whose bytes it is about to destroy: rows in other states
// keep their state, the stale file is removed either way.
type Janitor struct {
	manager  *Manager
	reps     representations.Repository
	ttlDays  int
	interval time.Duration
	nowMs    func() int64
	log      logging.Logger
}

// NewJanitor wires a Janitor running every interval.
func NewJanitor(manager *Manager, reps representations.Repository, ttlDays int, interval time.Duration, log logging.Logger) *Janitor {
	return &Janitor{
		manager:  manager,
		reps:     reps,
		ttlDays:  ttlDays,
		interval: interval,
		nowMs:    func() int64 { return time.Now().UnixMilli() },
		log:      log,
	}
}

// Run ticks until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.log.Error(ctx, "janitor sweep failed", "error", err)
			}
		}
	}
}

// RunOnce sweeps expired spool entries once.
func (j *Janitor) RunOnce(ctx context.Context) error {
	expired, err := j.manager.ListExpired(j.nowMs(), j.ttlDays)
	if err != nil {
		return err
	}

	for _, id := range expired {
		reason := lostReason
		outcome, err := j.reps.UpdateProcessingResult(ctx, id,
			[]models.PayloadState{models.PayloadStaged, models.PayloadProcessing},
			nil, models.PayloadLost, &reason)
		if err != nil {
			j.log.Error(ctx, "lost cas failed", "rep_id", id, "error", err)
			continue
		}
		if outcome == representations.Updated {
			j.log.Warn(ctx, "spool entry expired, representation lost", "rep_id", id)
		}
		if err := j.manager.Delete(id); err != nil {
			j.log.Error(ctx, "expired spool delete failed", "rep_id", id, "error", err)
		}
	}
	return nil
}
