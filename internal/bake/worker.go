package bake

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Process abstracts one worker process so tests can substitute
// in-memory pipes for a real headless DCC instance.
type Process interface {
	// Input is the worker's control stream; closing it asks the worker
	// to finish and exit.
	Input() io.WriteCloser
	// Output carries line-delimited result messages.
	Output() io.Reader
	// Diagnostics carries free-text log lines, never parsed.
	Diagnostics() io.Reader
	// Alive reports whether the process is still running.
	Alive() bool
	// Wait blocks until exit or the duration elapses; true means exited.
	Wait(d time.Duration) bool
	// Kill force-terminates the process.
	Kill() error
}

// Launcher spawns worker processes for a batch.
type Launcher interface {
	Launch(ctx context.Context, index int) (Process, error)
}

// worker pairs a process with its two stream readers. Workers live for
// one batch only and are never reused or restarted.
type worker struct {
	id      int
	proc    Process
	results *lineQueue
	logs    *lineQueue

	readers  sync.WaitGroup
	stopOnce sync.Once
}

// startWorker begins shuttling the process's output and diagnostic
// streams into queues. The readers interpret nothing; they only move
// bytes off the blocking pipes.
func startWorker(id int, proc Process) *worker {
	w := &worker{
		id:      id,
		proc:    proc,
		results: &lineQueue{},
		logs:    &lineQueue{},
	}
	w.readers.Add(2)
	go w.readInto(proc.Output(), w.results)
	go w.readInto(proc.Diagnostics(), w.logs)
	return w
}

func (w *worker) readInto(r io.Reader, q *lineQueue) {
	defer w.readers.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		q.push(scanner.Text())
	}
}

// send writes one JSON line to the worker's input stream. This is the
// only place the control loop may block; a write failure means the
// pipe broke underneath us.
func (w *worker) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode control message: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.proc.Input().Write(data); err != nil {
		return fmt.Errorf("write to worker %d: %w", w.id, err)
	}
	return nil
}

func (w *worker) alive() bool {
	return w.proc.Alive()
}

// stop tears the worker down: close stdin for a graceful exit, wait a
// bounded grace period, force-kill, then join the reader goroutines.
// Safe to call at any phase and more than once.
func (w *worker) stop(grace time.Duration) {
	w.stopOnce.Do(func() {
		_ = w.proc.Input().Close()
		if !w.proc.Wait(grace) {
			_ = w.proc.Kill()
			w.proc.Wait(time.Second)
		}
		w.readers.Wait()
	})
}
