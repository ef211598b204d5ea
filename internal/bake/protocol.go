package bake

import (
	"encoding/json"
	"fmt"
	"strings"

	"kiln/internal/classify"
)

// Control actions written to a worker's input stream.
const (
	actionLoad = "load"
	actionBake = "bake"
)

// Result statuses read from a worker's output stream.
const (
	statusReady   = "ready"
	statusSuccess = "success"
	statusFailure = "failure"
	statusError   = "error"
)

// loadMessage is the single control message each worker receives before
// any task: the shared scene snapshot and the batch size.
type loadMessage struct {
	Action     string `json:"action"`
	Snapshot   string `json:"snapshot"`
	TotalTasks int    `json:"total_tasks"`
}

// taskMessage carries one bake task. Seq is assigned at send time and
// exists for ordering and log correlation only.
type taskMessage struct {
	Action       string `json:"action"`
	Material     string `json:"material"`
	MaterialName string `json:"material_name"`
	Object       string `json:"object"`
	Channel      string `json:"channel"`
	Output       string `json:"output"`
	Resolution   int    `json:"resolution"`
	ValueChannel bool   `json:"value_channel"`
	Seq          int    `json:"seq"`
}

func newTaskMessage(task classify.Task, seq int) taskMessage {
	return taskMessage{
		Action:       actionBake,
		Material:     task.Material,
		MaterialName: task.MaterialName,
		Object:       task.Object,
		Channel:      string(task.Channel),
		Output:       task.OutputPath,
		Resolution:   task.Resolution,
		ValueChannel: task.ValueChannel,
		Seq:          seq,
	}
}

// resultMessage is one line from a worker's output stream. Terminal
// task results echo the task's (material, channel) key so completions
// are correlated by identity, never by arrival order.
type resultMessage struct {
	Status   string `json:"status"`
	Material string `json:"material,omitempty"`
	Channel  string `json:"channel,omitempty"`
	Message  string `json:"message,omitempty"`
}

// key returns the task correlation key echoed by the worker.
func (r resultMessage) key() string {
	return r.Material + "/" + r.Channel
}

func parseResult(line string) (resultMessage, error) {
	var msg resultMessage
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return resultMessage{}, fmt.Errorf("malformed result line %q: %w", truncateLine(line), err)
	}
	switch msg.Status {
	case statusReady, statusError:
		return msg, nil
	case statusSuccess, statusFailure:
		if strings.TrimSpace(msg.Material) == "" || strings.TrimSpace(msg.Channel) == "" {
			return resultMessage{}, fmt.Errorf("result line %q lacks a task key", truncateLine(line))
		}
		return msg, nil
	default:
		return resultMessage{}, fmt.Errorf("result line %q has unknown status %q", truncateLine(line), msg.Status)
	}
}

func truncateLine(line string) string {
	const max = 120
	if len(line) <= max {
		return line
	}
	return line[:max] + "..."
}
