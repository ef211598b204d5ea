package bake

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// fakeProcess stands in for a worker process using in-memory pipes.
type fakeProcess struct {
	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	done     chan struct{}
	exitOnce sync.Once
}

func newFakeProcess() *fakeProcess {
	p := &fakeProcess{done: make(chan struct{})}
	p.stdinR, p.stdinW = io.Pipe()
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	return p
}

func (p *fakeProcess) Input() io.WriteCloser { return p.stdinW }

func (p *fakeProcess) Output() io.Reader { return p.stdoutR }

func (p *fakeProcess) Diagnostics() io.Reader { return p.stderrR }

func (p *fakeProcess) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *fakeProcess) Wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-p.done:
		return true
	case <-timer.C:
		return false
	}
}

func (p *fakeProcess) Kill() error {
	p.exit()
	return nil
}

// exit simulates process termination: all pipes close so reader
// goroutines observe EOF and writes hit a broken pipe.
func (p *fakeProcess) exit() {
	p.exitOnce.Do(func() {
		close(p.done)
		p.stdoutW.Close()
		p.stderrW.Close()
		p.stdinR.Close()
	})
}

// workerScript describes how a scripted fake worker behaves.
type workerScript struct {
	// delayReady postpones the ready result after the load message.
	delayReady time.Duration
	// skipReady suppresses the ready result entirely.
	skipReady bool
	// crashAfterLoad exits the process instead of reporting ready.
	crashAfterLoad bool
	// crashAfterTask exits after receiving the first task, silently.
	crashAfterTask bool
	// failKeys maps task keys to failure results.
	failKeys map[string]bool
	// writeOutputs creates the task's output file on success.
	writeOutputs bool
	// emitRaw sends this raw line instead of the first task result.
	emitRaw string

	// taskBeforeReady records a barrier violation: a bake message
	// observed before this worker sent its ready result.
	taskBeforeReady atomic.Bool
	// diag is written to the diagnostic stream after loading.
	diag string
}

// startScriptedWorker runs a fake worker conversation over the process
// pipes: consume control messages, emit scripted results.
func startScriptedWorker(p *fakeProcess, script *workerScript) {
	go func() {
		defer p.exit()
		emit := func(v any) {
			data, err := json.Marshal(v)
			if err != nil {
				return
			}
			data = append(data, '\n')
			if _, err := p.stdoutW.Write(data); err != nil {
				return
			}
		}

		sentReady := false
		scanner := bufio.NewScanner(p.stdinR)
		for scanner.Scan() {
			var msg map[string]any
			if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
				continue
			}
			action, _ := msg["action"].(string)
			switch action {
			case actionLoad:
				if script.diag != "" {
					fmt.Fprintln(p.stderrW, script.diag)
				}
				if script.crashAfterLoad {
					return
				}
				if script.skipReady {
					continue
				}
				if script.delayReady > 0 {
					time.Sleep(script.delayReady)
				}
				emit(resultMessage{Status: statusReady})
				sentReady = true
			case actionBake:
				if !sentReady {
					script.taskBeforeReady.Store(true)
				}
				if script.crashAfterTask {
					return
				}
				if script.emitRaw != "" {
					fmt.Fprintln(p.stdoutW, script.emitRaw)
					script.emitRaw = ""
					continue
				}
				material, _ := msg["material"].(string)
				channel, _ := msg["channel"].(string)
				key := material + "/" + channel
				if script.failKeys[key] {
					emit(resultMessage{Status: statusFailure, Material: material, Channel: channel, Message: "bake exploded"})
					continue
				}
				if script.writeOutputs {
					if output, _ := msg["output"].(string); output != "" {
						_ = os.WriteFile(output, []byte("baked"), 0o644)
					}
				}
				emit(resultMessage{Status: statusSuccess, Material: material, Channel: channel})
			}
		}
	}()
}

// fakeLauncher hands out scripted processes per worker index.
type fakeLauncher struct {
	mu      sync.Mutex
	scripts []*workerScript
	procs   []*fakeProcess
	// failIndex makes the launch of that worker index fail.
	failIndex int
}

func newFakeLauncher(scripts ...*workerScript) *fakeLauncher {
	return &fakeLauncher{scripts: scripts, failIndex: -1}
}

func (l *fakeLauncher) Launch(_ context.Context, index int) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index == l.failIndex {
		return nil, fmt.Errorf("spawn refused")
	}
	script := l.scripts[index%len(l.scripts)]
	p := newFakeProcess()
	l.procs = append(l.procs, p)
	startScriptedWorker(p, script)
	return p, nil
}

func (l *fakeLauncher) processes() []*fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*fakeProcess(nil), l.procs...)
}
