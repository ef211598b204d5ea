package bake

import (
	"log/slog"
	"os"

	"kiln/internal/classify"
	"kiln/internal/logging"
	"kiln/internal/scene"
)

// MaterialDecision records, per original material, whether export uses
// the original or a synthetic baked substitute. The substitution is
// export-time only; the original asset is never mutated.
type MaterialDecision struct {
	Name     string
	UseBaked bool
	// Baked is the synthetic material when UseBaked is true.
	Baked *scene.Material
}

// nonColorChannels are read with a non-color interpretation when the
// baked file is sampled back.
var nonColorChannels = map[scene.Channel]bool{
	scene.ChannelMetallic:  true,
	scene.ChannelRoughness: true,
	scene.ChannelNormal:    true,
}

// Assemble builds the export material set after a successful batch (or
// immediately when zero tasks were generated). Complex materials with
// at least one baked channel file get a synthetic material sampling
// each available file; everything else passes through unmodified.
//
// Assembly is idempotent: re-running over the same batch output yields
// structurally identical synthetic materials, because channels are
// visited in canonical order and every binding derives from the task's
// deterministic output path.
func Assemble(sc *scene.Scene, plan *classify.Plan, logger *slog.Logger) []MaterialDecision {
	if logger == nil {
		logger = logging.NewNop()
	}

	tasksByMaterial := make(map[string][]classify.Task)
	for _, task := range plan.Tasks {
		tasksByMaterial[task.Material] = append(tasksByMaterial[task.Material], task)
	}

	var decisions []MaterialDecision
	for _, name := range sc.MaterialNames() {
		mat, _ := sc.Material(name)
		result := plan.Results[name]
		if result.Class != classify.ClassComplex {
			decisions = append(decisions, MaterialDecision{Name: name})
			continue
		}

		baked := synthesize(mat, tasksByMaterial[mat.Identity])
		if baked == nil {
			// Defensive: a complex material with no baked files should
			// not occur after a successful batch.
			logger.Warn("complex material has no baked channel files; exporting original",
				logging.String(logging.FieldMaterial, name),
			)
			decisions = append(decisions, MaterialDecision{Name: name})
			continue
		}
		decisions = append(decisions, MaterialDecision{Name: name, UseBaked: true, Baked: baked})
	}
	return decisions
}

// synthesize builds the baked substitute for one material, sampling
// each channel file that exists on disk. Returns nil when no file is
// available.
func synthesize(mat *scene.Material, tasks []classify.Task) *scene.Material {
	outputs := make(map[scene.Channel]string, len(tasks))
	for _, task := range tasks {
		if _, err := os.Stat(task.OutputPath); err == nil {
			outputs[task.Channel] = task.OutputPath
		}
	}
	if len(outputs) == 0 {
		return nil
	}

	baked := &scene.Material{
		Name:     mat.Name + "_baked",
		Identity: mat.Identity,
		Channels: make(map[scene.Channel]scene.Input, len(outputs)),
	}
	for _, ch := range scene.Channels() {
		path, ok := outputs[ch]
		if !ok {
			continue
		}
		source := scene.SourceTexture
		colorSpace := "sRGB"
		if nonColorChannels[ch] {
			colorSpace = "Non-Color"
		}
		if ch == scene.ChannelNormal {
			source = scene.SourceNormalMap
		}
		baked.Channels[ch] = scene.Input{
			Linked:   true,
			Source:   source,
			NonColor: nonColorChannels[ch],
			Texture: &scene.TextureSample{
				Name:       baked.Name + "_" + string(ch),
				Path:       path,
				ColorSpace: colorSpace,
			},
		}
	}
	return baked
}

// ExportMaterials resolves the effective material per original name
// from the decision list.
func ExportMaterials(sc *scene.Scene, decisions []MaterialDecision) map[string]*scene.Material {
	effective := make(map[string]*scene.Material, len(decisions))
	for _, d := range decisions {
		if d.UseBaked && d.Baked != nil {
			effective[d.Name] = d.Baked
			continue
		}
		if mat, ok := sc.Material(d.Name); ok {
			effective[d.Name] = mat
		}
	}
	return effective
}
