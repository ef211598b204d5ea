package bake

import (
	"log/slog"
	"os"
	"sync"

	"kiln/internal/logging"
)

// Cleanup tears a batch down. Every step is individually guarded so it
// is safe to run after a failure at any phase, including before any
// worker was launched, and safe to run more than once.
type Cleanup struct {
	logger *slog.Logger

	mu        sync.Mutex
	pool      *Pool
	tempPaths []string
	restore   func()
	persist   func() error
	persisted bool
}

// NewCleanup builds an empty cleanup plan.
func NewCleanup(logger *slog.Logger) *Cleanup {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cleanup{logger: logger}
}

// AttachPool registers the worker pool for unconditional teardown.
func (c *Cleanup) AttachPool(pool *Pool) {
	c.mu.Lock()
	c.pool = pool
	c.mu.Unlock()
}

// RegisterTemp marks a path for deletion at batch end.
func (c *Cleanup) RegisterTemp(path string) {
	if path == "" {
		return
	}
	c.mu.Lock()
	c.tempPaths = append(c.tempPaths, path)
	c.mu.Unlock()
}

// SetRestore registers the rollback of export-time scene mutations.
func (c *Cleanup) SetRestore(fn func()) {
	c.mu.Lock()
	c.restore = fn
	c.mu.Unlock()
}

// SetPersist registers the final persistence step, run only on overall
// success so no temporary state leaks into the saved project.
func (c *Cleanup) SetPersist(fn func() error) {
	c.mu.Lock()
	c.persist = fn
	c.mu.Unlock()
}

// Run executes the cleanup plan: stop workers, restore pre-batch scene
// state, delete registered temp artifacts, and persist on success.
// Failures in one step never block the remaining steps.
func (c *Cleanup) Run(success bool) {
	c.mu.Lock()
	pool := c.pool
	paths := append([]string(nil), c.tempPaths...)
	restore := c.restore
	persist := c.persist
	alreadyPersisted := c.persisted
	c.mu.Unlock()

	if pool != nil {
		pool.Stop()
	}

	if restore != nil {
		restore()
	}

	for _, path := range paths {
		if err := os.RemoveAll(path); err != nil {
			c.logger.Warn("failed to delete temp artifact",
				logging.String("path", path),
				logging.Error(err),
			)
		}
	}

	if success && persist != nil && !alreadyPersisted {
		if err := persist(); err != nil {
			c.logger.Warn("final persistence failed", logging.Error(err))
		} else {
			c.mu.Lock()
			c.persisted = true
			c.mu.Unlock()
		}
	}
}
