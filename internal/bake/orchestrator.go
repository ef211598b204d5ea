package bake

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"kiln/internal/catalog"
	"kiln/internal/classify"
	"kiln/internal/config"
	"kiln/internal/identity"
	"kiln/internal/logging"
	"kiln/internal/scene"
)

// Persister saves the host project after a fully successful batch. The
// scene-snapshot files written for workers are separate and always
// temporary.
type Persister interface {
	Persist(ctx context.Context, sc *scene.Scene) error
}

// Uploader receives the height-map side table after successful
// assembly. Upload mechanics are out of scope for the batch itself;
// failures are logged, never fatal.
type Uploader interface {
	UploadHeightMaps(ctx context.Context, heights map[string]classify.HeightSource) error
}

// Result is the outcome of a successful batch.
type Result struct {
	Decisions []MaterialDecision
	// Heights maps material identity to its resolved height source.
	Heights  map[string]classify.HeightSource
	Total    int
	Finished int
}

// Orchestrator runs bake batches. It holds an explicit single-slot
// "one batch in flight" state and rejects a new batch while one is
// active; a workspace file lock extends the guard across processes.
type Orchestrator struct {
	cfg      *config.Config
	store    *catalog.Store
	launcher Launcher
	logger   *slog.Logger

	persister Persister
	uploader  Uploader

	mu     sync.Mutex
	active bool
}

// Option configures optional orchestrator collaborators.
type Option func(*Orchestrator)

// WithLauncher overrides the worker launcher (used in tests).
func WithLauncher(l Launcher) Option {
	return func(o *Orchestrator) { o.launcher = l }
}

// WithPersister registers the project persistence collaborator.
func WithPersister(p Persister) Option {
	return func(o *Orchestrator) { o.persister = p }
}

// WithUploader registers the asset-upload collaborator.
func WithUploader(u Uploader) Option {
	return func(o *Orchestrator) { o.uploader = u }
}

// NewOrchestrator constructs an orchestrator. The catalog store may be
// nil, in which case identities are assigned per run and no journal is
// written.
func NewOrchestrator(cfg *config.Config, store *catalog.Store, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		store:  store,
		logger: logging.WithComponent(logger, "bake"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.launcher == nil {
		o.launcher = NewCommandLauncher(cfg)
	}
	return o
}

// Bake runs one batch to completion: classify, snapshot, launch,
// dispatch, aggregate, assemble. On any failure the batch is abandoned
// whole; cleanup still restores pre-batch scene state so a failed
// export never leaves residual mutation.
func (o *Orchestrator) Bake(ctx context.Context, sc *scene.Scene) (*Result, error) {
	if err := o.acquireSlot(); err != nil {
		return nil, err
	}
	defer o.releaseSlot()

	if err := o.cfg.EnsureDirectories(); err != nil {
		return nil, Wrap(ErrSetup, "orchestrator", "prepare workspace", "", err)
	}

	lock := flock.New(filepath.Join(o.cfg.Paths.WorkspaceDir, "kiln.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, Wrap(ErrSetup, "orchestrator", "lock workspace", "", err)
	}
	if !locked {
		return nil, Wrap(ErrBatchActive, "orchestrator", "lock workspace",
			"another process holds the bake workspace", nil)
	}
	defer func() { _ = lock.Unlock() }()

	cleanup := NewCleanup(o.logger)
	saved := sc.Assignments()
	cleanup.SetRestore(func() { sc.RestoreAssignments(saved) })
	if o.persister != nil {
		cleanup.SetPersist(func() error { return o.persister.Persist(ctx, sc) })
	}

	result, err := o.runBatch(ctx, sc, cleanup)
	if err != nil {
		cleanup.Run(false)
		return nil, err
	}
	cleanup.Run(true)

	if o.uploader != nil && len(result.Heights) > 0 {
		if uploadErr := o.uploader.UploadHeightMaps(ctx, result.Heights); uploadErr != nil {
			o.logger.Warn("height map upload failed", logging.Error(uploadErr))
		}
	}
	return result, nil
}

func (o *Orchestrator) runBatch(ctx context.Context, sc *scene.Scene, cleanup *Cleanup) (*Result, error) {
	plan, err := classify.Generate(ctx, sc, o.registry(), classify.Options{
		OutputDir:       o.cfg.BakeOutputDir(),
		ScratchDir:      o.cfg.ScratchDir(),
		Resolution:      o.cfg.Bake.Resolution,
		ValueResolution: o.cfg.Bake.ValueResolution,
	}, o.logger)
	if err != nil {
		return nil, Wrap(ErrSetup, "orchestrator", "generate tasks", "", err)
	}
	for _, path := range plan.ScratchFiles {
		cleanup.RegisterTemp(path)
	}

	journalID := o.journalBegin(ctx, len(plan.Tasks))

	o.logger.Info("batch planned",
		logging.Int("tasks", len(plan.Tasks)),
		logging.Int("materials", len(plan.Results)),
		logging.Int("height_sources", len(plan.Heights)),
	)

	if len(plan.Tasks) == 0 {
		decisions := Assemble(sc, plan, o.logger)
		o.journalFinish(ctx, journalID, "done", 0, 0, "")
		return &Result{Decisions: decisions, Heights: plan.Heights}, nil
	}

	snapshotPath := filepath.Join(o.cfg.Paths.WorkspaceDir,
		fmt.Sprintf("snapshot-%d.json", time.Now().UnixNano()))
	if err := scene.WriteSnapshot(sc, snapshotPath); err != nil {
		o.journalFinish(ctx, journalID, "failed", 0, 0, Reason(ErrSetup))
		return nil, Wrap(ErrSetup, "orchestrator", "persist snapshot", "", err)
	}
	cleanup.RegisterTemp(snapshotPath)

	count := o.cfg.Worker.Limit
	if len(plan.Tasks) < count {
		count = len(plan.Tasks)
	}
	pool, err := LaunchPool(ctx, o.launcher, count, o.cfg.StopGrace(), o.logger)
	if err != nil {
		o.journalFinish(ctx, journalID, "failed", 0, 0, Reason(err))
		return nil, err
	}
	cleanup.AttachPool(pool)

	if err := pool.sendLoad(loadMessage{
		Action:     actionLoad,
		Snapshot:   snapshotPath,
		TotalTasks: len(plan.Tasks),
	}); err != nil {
		o.journalFinish(ctx, journalID, "failed", 0, 0, Reason(err))
		return nil, err
	}

	batch := NewBatch(pool, plan.Tasks, o.cfg.BatchTimeout(), o.cfg.TickInterval(), o.logger)
	if err := batch.Run(ctx); err != nil {
		finished, failed, _ := batch.Counts()
		o.journalFinish(ctx, journalID, "failed", finished, failed, Reason(err))
		o.logger.Error("batch failed",
			logging.Error(err),
			logging.String("reason", Reason(err)),
			logging.Int("finished", finished),
			logging.Int("failed", failed),
			logging.Int("total", len(plan.Tasks)),
		)
		return nil, err
	}

	decisions := Assemble(sc, plan, o.logger)
	finished, failed, total := batch.Counts()
	o.journalFinish(ctx, journalID, "done", finished, failed, "")
	return &Result{
		Decisions: decisions,
		Heights:   plan.Heights,
		Total:     total,
		Finished:  finished,
	}, nil
}

func (o *Orchestrator) acquireSlot() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active {
		return Wrap(ErrBatchActive, "orchestrator", "start batch",
			"a bake batch is already in flight", nil)
	}
	o.active = true
	return nil
}

func (o *Orchestrator) releaseSlot() {
	o.mu.Lock()
	o.active = false
	o.mu.Unlock()
}

func (o *Orchestrator) registry() identity.Registry {
	if o.store == nil {
		return nil
	}
	return o.store
}

func (o *Orchestrator) journalBegin(ctx context.Context, total int) int64 {
	if o.store == nil {
		return 0
	}
	id, err := o.store.BeginBatch(ctx, total)
	if err != nil {
		o.logger.Warn("failed to journal batch start", logging.Error(err))
		return 0
	}
	return id
}

func (o *Orchestrator) journalFinish(ctx context.Context, id int64, state string, finished, failed int, reason string) {
	if o.store == nil || id == 0 {
		return
	}
	if err := o.store.FinishBatch(ctx, id, state, finished, failed, reason); err != nil {
		o.logger.Warn("failed to journal batch finish", logging.Error(err))
	}
}
