package bake

import "sync"

// lineQueue is an unbounded thread-safe queue of raw stream lines. The
// reader goroutines push without blocking the control loop; the control
// loop drains everything each tick.
type lineQueue struct {
	mu    sync.Mutex
	lines []string
}

func (q *lineQueue) push(line string) {
	q.mu.Lock()
	q.lines = append(q.lines, line)
	q.mu.Unlock()
}

func (q *lineQueue) drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.lines) == 0 {
		return nil
	}
	drained := q.lines
	q.lines = nil
	return drained
}
