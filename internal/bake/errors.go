package bake

import (
	"errors"
	"fmt"
	"strings"
)

// Failure taxonomy for a bake batch. Every batch error wraps exactly
// one of these markers; the caller receives one summarized reason while
// per-task detail stays in the diagnostic log.
var (
	// ErrSetup aborts before any worker spawns: unsaved scene, empty
	// export set, unresolvable texture source.
	ErrSetup = errors.New("setup error")
	// ErrLaunch marks a worker process that failed to start.
	ErrLaunch = errors.New("worker launch error")
	// ErrProtocol marks a malformed or out-of-order result line.
	ErrProtocol = errors.New("protocol error")
	// ErrTaskFailed marks a worker-reported bake failure.
	ErrTaskFailed = errors.New("task failure")
	// ErrWorkerCrash marks an unexpected process exit before completion.
	ErrWorkerCrash = errors.New("worker crash")
	// ErrTimeout marks a batch that exceeded its coarse budget.
	ErrTimeout = errors.New("batch timeout")
	// ErrBatchActive rejects a new batch while one is in flight.
	ErrBatchActive = errors.New("batch already active")
)

// Wrap builds an error message that includes component context while
// tagging it with the provided taxonomy marker.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTaskFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Reason maps a batch error onto its taxonomy name for the journal and
// the caller-facing summary.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSetup):
		return "SetupError"
	case errors.Is(err, ErrLaunch):
		return "LaunchError"
	case errors.Is(err, ErrProtocol):
		return "ProtocolError"
	case errors.Is(err, ErrWorkerCrash):
		return "WorkerCrash"
	case errors.Is(err, ErrTimeout):
		return "TimeoutError"
	case errors.Is(err, ErrBatchActive):
		return "BatchActive"
	case errors.Is(err, ErrTaskFailed):
		return "TaskFailure"
	default:
		return "TaskFailure"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "bake failure"
	}
	return strings.Join(parts, ": ")
}
