package bake

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"kiln/internal/config"
)

// CommandLauncher spawns real worker processes: a headless DCC binary
// hosting the bake worker script. Each process gets its own process
// group so a forced kill takes the whole worker tree down.
type CommandLauncher struct {
	Binary    string
	Script    string
	ExtraArgs []string
}

// NewCommandLauncher builds a launcher from configuration.
func NewCommandLauncher(cfg *config.Config) *CommandLauncher {
	return &CommandLauncher{
		Binary:    cfg.Worker.Binary,
		Script:    cfg.Worker.Script,
		ExtraArgs: cfg.Worker.ExtraArgs,
	}
}

// Launch starts one worker process with piped stdin/stdout/stderr.
func (l *CommandLauncher) Launch(ctx context.Context, index int) (Process, error) {
	args := []string{"--background", "--factory-startup"}
	args = append(args, l.ExtraArgs...)
	if l.Script != "" {
		args = append(args, "--python", l.Script)
	}
	args = append(args, "--", "--worker-id", strconv.Itoa(index))

	cmd := exec.CommandContext(ctx, l.Binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", l.Binary, err)
	}

	proc := &execProcess{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		done:   make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(proc.done)
	}()
	return proc, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
	done   chan struct{}
}

func (p *execProcess) Input() io.WriteCloser { return p.stdin }

func (p *execProcess) Output() io.Reader { return p.stdout }

func (p *execProcess) Diagnostics() io.Reader { return p.stderr }

func (p *execProcess) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *execProcess) Wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-p.done:
		return true
	case <-timer.C:
		return false
	}
}

// Kill signals the worker's whole process group.
func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return unix.Kill(-p.cmd.Process.Pid, unix.SIGKILL)
}
