package spool

import (
	"context"
	"errors"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/logging"
	"github.com/uniclip/uniclipboard/internal/models"
)

// Scanner reconciles the spool with the database on startup: live staged
// rows are re-queued to the worker, everything else on disk is an orphan
// and is deleted.
type Scanner struct {
	manager *Manager
	reps    repLookup
	worker  *Worker
	log     logging.Logger
}

type repLookup interface {
	GetByID(ctx context.Context, id models.RepresentationID) (*models.PersistedClipboardRepresentation, error)
}

// NewScanner wires a Scanner.
func NewScanner(manager *Manager, reps repLookup, worker *Worker, log logging.Logger) *Scanner {
	return &Scanner{manager: manager, reps: reps, worker: worker, log: log}
}

// ScanAndRecover enumerates the spool and returns the number of re-queued
// entries.
func (s *Scanner) ScanAndRecover(ctx context.Context) (int, error) {
	ids, err := s.manager.List()
	if err != nil {
		return 0, err
	}

	requeued := 0
	for _, id := range ids {
		rep, err := s.reps.GetByID(ctx, id)
		if errors.Is(err, common.ErrNotFound) {
			_ = s.manager.Delete(id)
			continue
		}
		if err != nil {
			s.log.Error(ctx, "scan lookup failed", "rep_id", id, "error", err)
			continue
		}

		switch rep.PayloadState {
		case models.PayloadStaged, models.PayloadProcessing:
			if s.worker.Enqueue(id) {
				requeued++
			} else {
				s.log.Warn(ctx, "worker queue full during recovery", "rep_id", id)
			}
		default:
			_ = s.manager.Delete(id)
		}
	}

	if requeued > 0 {
		s.log.Info(ctx, "spool recovery complete", "requeued", requeued)
	}
	return requeued, nil
}
