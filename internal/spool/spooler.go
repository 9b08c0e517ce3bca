package spool

import (
	"context"

	"github.com/uniclip/uniclipboard/internal/logging"
	"github.com/uniclip/uniclipboard/internal/models"
)

// Request asks the spooler to durably stage a representation's bytes.
type Request struct {
	RepID models.RepresentationID
	Data  []byte
}

// Spooler drains the staging channel: it writes each request to the spool,
// marks the cache entry staged, and forwards the id to the worker. Producers
// never block; a full channel drops the enqueue and the scanner or janitor
// reconciles later.
type Spooler struct {
	requests chan Request
	manager  *Manager
	cache    *Cache
	worker   *Worker
	log      logging.Logger
}

// NewSpooler wires a Spooler with a channel of the given capacity.
func NewSpooler(capacity int, manager *Manager, cache *Cache, worker *Worker, log logging.Logger) *Spooler {
	return &Spooler{
		requests: make(chan Request, capacity),
		manager:  manager,
		cache:    cache,
		worker:   worker,
		log:      log,
	}
}

// Enqueue hands a request to the spooler without blocking. Returns false
// when the channel is full and the request was dropped.
func (s *Spooler) Enqueue(req Request) bool {
	select {
	case s.requests <- req:
		return true
	default:
		return false
	}
}

// Run consumes requests until ctx is cancelled.
func (s *Spooler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.requests:
			s.handle(ctx, req)
		}
	}
}

func (s *Spooler) handle(ctx context.Context, req Request) {
	if err := s.manager.Write(req.RepID, req.Data); err != nil {
		s.log.Error(ctx, "spool write failed", "rep_id", req.RepID, "error", err)
		return
	}
	s.cache.MarkStaged(req.RepID)
	if !s.worker.Enqueue(req.RepID) {
		s.log.Warn(ctx, "worker queue full, deferring to scanner", "rep_id", req.RepID)
	}
}
