package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"kiln/internal/identity"
	"kiln/internal/logging"
	"kiln/internal/scene"
)

// Task is one unit of bake work: a single channel of a single material.
// Output paths are a pure function of (material identity, channel), so
// every object sharing a material maps onto the same task output.
type Task struct {
	// Material is the material's identity UUID, the dedup key.
	Material     string        `json:"material"`
	MaterialName string        `json:"material_name"`
	// Object is one representative consuming object, kept for worker
	// context; it plays no part in dedup.
	Object       string        `json:"object"`
	Channel      scene.Channel `json:"channel"`
	OutputPath   string        `json:"output"`
	Resolution   int           `json:"resolution"`
	// ValueChannel marks constants baked to tiny uniform textures.
	ValueChannel bool          `json:"value_channel"`
}

// Key returns the task's correlation key; workers echo it on results.
func (t Task) Key() string {
	return t.Material + "/" + string(t.Channel)
}

// OutputPath computes the baked texture location for a material channel.
func OutputPath(outputDir, materialID string, ch scene.Channel) string {
	return filepath.Join(outputDir, fmt.Sprintf("%s_%s.png", materialID, ch))
}

// Options configures task generation.
type Options struct {
	OutputDir       string
	ScratchDir      string
	Resolution      int
	ValueResolution int
}

// Plan is the generated batch: its tasks, per-material classifications,
// and the height-source side table.
type Plan struct {
	Tasks []Task
	// Results maps material name to classification.
	Results map[string]Result
	// Heights maps material identity to its resolved height source.
	Heights map[string]HeightSource
	// ScratchFiles lists files written while recovering in-memory
	// sources; the caller registers them as temp artifacts.
	ScratchFiles []string
}

// ErrNoObjects signals an export set with nothing to bake against.
var ErrNoObjects = errors.New("no exportable objects")

// Generate classifies every referenced material and emits the batch's
// task set. It fails fatally, before any worker process exists, when
// the scene has no on-disk identity or the export set is empty.
func Generate(ctx context.Context, sc *scene.Scene, reg identity.Registry, opts Options, logger *slog.Logger) (*Plan, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if !sc.Saved() {
		return nil, scene.ErrUnsaved
	}
	if len(sc.Objects) == 0 {
		return nil, ErrNoObjects
	}

	plan := &Plan{
		Results: make(map[string]Result),
		Heights: make(map[string]HeightSource),
	}

	// First consuming object per material, in deterministic object order.
	consumers := make(map[string]string)
	for _, obj := range sc.Objects {
		for _, name := range obj.Materials {
			if _, ok := consumers[name]; !ok {
				consumers[name] = obj.Name
			}
		}
	}

	emitted := make(map[string]struct{})
	for _, name := range sc.MaterialNames() {
		mat, _ := sc.Material(name)
		id, err := identity.Ensure(ctx, reg, mat)
		if err != nil {
			return nil, err
		}

		result := Classify(mat)
		plan.Results[name] = result
		if result.Class == ClassComplex {
			logger.Info("material classified complex",
				logging.String(logging.FieldMaterial, name),
				logging.String(logging.FieldChannel, string(result.Channel)),
				logging.String("reason", result.Reason),
			)
		}

		if err := scanHeight(mat, id, opts.ScratchDir, plan, logger); err != nil {
			return nil, err
		}
		if result.Class != ClassComplex {
			continue
		}

		for _, ch := range scene.Channels() {
			input := mat.Channel(ch)
			if !needsBake(ch, input) {
				continue
			}
			task := Task{
				Material:     id,
				MaterialName: name,
				Object:       consumers[name],
				Channel:      ch,
				OutputPath:   OutputPath(opts.OutputDir, id, ch),
				Resolution:   opts.Resolution,
				ValueChannel: isValueChannel(input),
			}
			if task.ValueChannel && opts.ValueResolution > 0 {
				task.Resolution = opts.ValueResolution
			}
			if _, dup := emitted[task.Key()]; dup {
				continue
			}
			emitted[task.Key()] = struct{}{}
			plan.Tasks = append(plan.Tasks, task)
		}
	}

	return plan, nil
}
