package bake

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kiln/internal/classify"
	"kiln/internal/logging"
)

// State is the dispatcher's phase for one batch.
type State int

const (
	StateInit State = iota
	StateAwaitReady
	StateDispatching
	StateAwaitCompletion
	StateDone
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAwaitReady:
		return "await_ready"
	case StateDispatching:
		return "dispatching"
	case StateAwaitCompletion:
		return "await_completion"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type taskRecord struct {
	task classify.Task
	sent bool
	done bool
}

// Batch drives one task set through the worker pool. All counters are
// written only by the control loop goroutine inside Run.
type Batch struct {
	pool   *Pool
	logger *slog.Logger

	timeout time.Duration
	tick    time.Duration

	state        State
	total        int
	finished     int
	failed       int
	readyWorkers map[int]bool
	seqCounter   int
	records      map[string]*taskRecord
	order        []string
}

// NewBatch prepares a batch over an already-launched pool. The caller
// has persisted the snapshot and sent the load messages; the batch
// starts at the readiness barrier.
func NewBatch(pool *Pool, tasks []classify.Task, timeout, tick time.Duration, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = logging.NewNop()
	}
	b := &Batch{
		pool:         pool,
		logger:       logger,
		timeout:      timeout,
		tick:         tick,
		state:        StateInit,
		total:        len(tasks),
		readyWorkers: make(map[int]bool),
		records:      make(map[string]*taskRecord, len(tasks)),
	}
	for _, task := range tasks {
		key := task.Key()
		b.records[key] = &taskRecord{task: task}
		b.order = append(b.order, key)
	}
	return b
}

// State returns the batch's current phase.
func (b *Batch) State() State { return b.state }

// Counts reports the completion tallies.
func (b *Batch) Counts() (finished, failed, total int) {
	return b.finished, b.failed, b.total
}

// Run executes the batch to a terminal state. It ticks at a fixed
// interval; every tick forwards worker logs, checks liveness, and
// drains the result queues. Dispatch order is deterministic round
// robin; completion order is not, so results correlate by task key.
func (b *Batch) Run(ctx context.Context) error {
	b.state = StateAwaitReady
	start := time.Now()
	ticker := time.NewTicker(b.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.state = StateFailed
			return Wrap(ErrTimeout, "batch", "run", "batch canceled", ctx.Err())
		case <-ticker.C:
		}

		if err := b.tickOnce(); err != nil {
			b.state = StateFailed
			return err
		}
		if b.state == StateDone {
			return nil
		}
		if time.Since(start) > b.timeout {
			phase := b.state
			b.state = StateFailed
			return Wrap(ErrTimeout, "batch", "run",
				fmt.Sprintf("batch exceeded its %s budget in state %s", b.timeout, phase), nil)
		}
	}
}

func (b *Batch) tickOnce() error {
	b.pool.forwardLogs()

	if id, dead := b.pool.deadWorker(); dead {
		return Wrap(ErrWorkerCrash, "batch", "liveness",
			fmt.Sprintf("worker %d exited before batch completion", id), nil)
	}

	for _, wl := range b.pool.drainResults() {
		if err := b.handleResult(wl.workerID, wl.line); err != nil {
			return err
		}
	}

	if b.state == StateAwaitReady && len(b.readyWorkers) == b.pool.Size() {
		return b.dispatch()
	}
	return nil
}

func (b *Batch) handleResult(workerID int, line string) error {
	msg, err := parseResult(line)
	if err != nil {
		return Wrap(ErrProtocol, "batch", "parse result", fmt.Sprintf("worker %d", workerID), err)
	}

	switch msg.Status {
	case statusReady:
		if b.state != StateAwaitReady {
			return Wrap(ErrProtocol, "batch", "readiness",
				fmt.Sprintf("worker %d reported ready after dispatch", workerID), nil)
		}
		if b.readyWorkers[workerID] {
			return Wrap(ErrProtocol, "batch", "readiness",
				fmt.Sprintf("worker %d reported ready twice", workerID), nil)
		}
		b.readyWorkers[workerID] = true
		b.logger.Info("worker ready",
			logging.Int(logging.FieldWorkerID, workerID),
			logging.Int("ready_count", len(b.readyWorkers)),
			logging.Int("worker_count", b.pool.Size()),
		)
		return nil

	case statusError:
		// Worker-side fault unrelated to a specific task; counts as a
		// batch failure outright.
		b.failed++
		return Wrap(ErrTaskFailed, "batch", "worker error",
			fmt.Sprintf("worker %d: %s", workerID, msg.Message), nil)

	case statusSuccess, statusFailure:
		rec, ok := b.records[msg.key()]
		if !ok {
			return Wrap(ErrProtocol, "batch", "correlate result",
				fmt.Sprintf("worker %d reported unknown task %s", workerID, msg.key()), nil)
		}
		if rec.done {
			return Wrap(ErrProtocol, "batch", "correlate result",
				fmt.Sprintf("worker %d reported task %s twice", workerID, msg.key()), nil)
		}
		rec.done = true
		b.finished++
		if msg.Status == statusFailure {
			b.failed++
			return Wrap(ErrTaskFailed, "batch", "task result",
				fmt.Sprintf("task %s failed on worker %d: %s", msg.key(), workerID, msg.Message), nil)
		}
		b.logger.Info("task completed",
			logging.Int(logging.FieldWorkerID, workerID),
			logging.String(logging.FieldMaterial, rec.task.MaterialName),
			logging.String(logging.FieldChannel, string(rec.task.Channel)),
			logging.Int("finished", b.finished),
			logging.Int("total", b.total),
		)
		if b.state == StateAwaitCompletion && b.finished == b.total && b.failed == 0 {
			b.state = StateDone
			b.logger.Info("batch complete", logging.Int("total", b.total))
		}
		return nil

	default:
		return Wrap(ErrProtocol, "batch", "handle result",
			fmt.Sprintf("worker %d status %q", workerID, msg.Status), nil)
	}
}

// dispatch assigns the full task queue round robin in a single pass.
// Task cost is assumed roughly uniform; there is no rebalancing. Each
// task receives a strictly increasing sequence number at send time.
func (b *Batch) dispatch() error {
	b.state = StateDispatching
	workers := b.pool.workers
	for i, key := range b.order {
		rec := b.records[key]
		w := workers[i%len(workers)]
		b.seqCounter++
		msg := newTaskMessage(rec.task, b.seqCounter)
		if err := w.send(msg); err != nil {
			return Wrap(ErrWorkerCrash, "batch", "dispatch",
				fmt.Sprintf("task %s could not be written to worker %d", key, w.id), err)
		}
		rec.sent = true
		b.logger.Debug("task dispatched",
			logging.Int(logging.FieldWorkerID, w.id),
			logging.String(logging.FieldMaterial, rec.task.MaterialName),
			logging.String(logging.FieldChannel, string(rec.task.Channel)),
			logging.Int("seq", b.seqCounter),
		)
	}
	if b.total == 0 {
		b.state = StateDone
		return nil
	}
	b.state = StateAwaitCompletion
	return nil
}
