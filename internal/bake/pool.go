package bake

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kiln/internal/logging"
)

// Pool owns the worker processes for one batch. It is sized once at
// launch and never resized; a worker found dead before completion fails
// the whole batch.
type Pool struct {
	workers []*worker
	grace   time.Duration
	logger  *slog.Logger

	stopOnce sync.Once
}

// workerLine attributes a raw result line to the worker that wrote it.
type workerLine struct {
	workerID int
	line     string
}

// LaunchPool starts count workers. A launch failure tears down any
// workers already started and fails the batch before dispatch.
func LaunchPool(ctx context.Context, launcher Launcher, count int, grace time.Duration, logger *slog.Logger) (*Pool, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	pool := &Pool{grace: grace, logger: logger}
	for i := 0; i < count; i++ {
		proc, err := launcher.Launch(ctx, i)
		if err != nil {
			pool.Stop()
			return nil, Wrap(ErrLaunch, "pool", "launch worker", fmt.Sprintf("worker %d failed to start", i), err)
		}
		pool.workers = append(pool.workers, startWorker(i, proc))
		logger.Info("worker launched", logging.Int(logging.FieldWorkerID, i))
	}
	return pool, nil
}

// Size returns the number of workers launched for the batch.
func (p *Pool) Size() int {
	return len(p.workers)
}

// sendLoad delivers the one load control message to every worker before
// any task is sent.
func (p *Pool) sendLoad(msg loadMessage) error {
	for _, w := range p.workers {
		if err := w.send(msg); err != nil {
			return Wrap(ErrWorkerCrash, "pool", "send load", fmt.Sprintf("worker %d rejected the load message", w.id), err)
		}
	}
	return nil
}

// deadWorker returns the first worker found not running.
func (p *Pool) deadWorker() (int, bool) {
	for _, w := range p.workers {
		if !w.alive() {
			return w.id, true
		}
	}
	return 0, false
}

// drainResults moves every pending result line out of the worker
// queues, attributed per worker.
func (p *Pool) drainResults() []workerLine {
	var lines []workerLine
	for _, w := range p.workers {
		for _, line := range w.results.drain() {
			lines = append(lines, workerLine{workerID: w.id, line: line})
		}
	}
	return lines
}

// forwardLogs flushes the diagnostic queues verbatim into the host log.
func (p *Pool) forwardLogs() {
	for _, w := range p.workers {
		for _, line := range w.logs.drain() {
			p.logger.Info(line, logging.Int(logging.FieldWorkerID, w.id))
		}
	}
}

// Stop tears every worker down. Idempotent and safe to call at any
// phase, including when no worker was launched.
func (p *Pool) Stop() {
	if p == nil {
		return
	}
	p.stopOnce.Do(func() {
		for _, w := range p.workers {
			w.stop(p.grace)
		}
		p.forwardLogs()
	})
}
