package classify

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"kiln/internal/logging"
	"kiln/internal/scene"
)

// HeightSource is a resolved displacement texture recorded for the
// downstream upload step.
type HeightSource struct {
	Path string
	// Recovered marks sources flushed from in-memory pixels to scratch.
	Recovered bool
}

// scanHeight inspects the material's displacement input for a
// texture-driven height source. Sources on disk are recorded as-is;
// sources that only exist as packed pixels are flushed to a scratch
// file. A texture-driven input with neither backing is skipped with a
// warning rather than failing the batch.
func scanHeight(mat *scene.Material, materialID, scratchDir string, plan *Plan, logger *slog.Logger) error {
	disp := mat.Displacement
	if disp == nil || !disp.Linked || disp.Texture == nil {
		return nil
	}
	tex := disp.Texture
	if tex.OnDisk() {
		if _, err := os.Stat(tex.Path); err == nil {
			plan.Heights[materialID] = HeightSource{Path: tex.Path}
			return nil
		}
	}
	if len(tex.Pixels) > 0 {
		if scratchDir == "" {
			return fmt.Errorf("recover height source for %s: no scratch directory", mat.Name)
		}
		if err := os.MkdirAll(scratchDir, 0o755); err != nil {
			return fmt.Errorf("ensure scratch directory: %w", err)
		}
		path := filepath.Join(scratchDir, fmt.Sprintf("%s_height.png", materialID))
		if err := os.WriteFile(path, tex.Pixels, 0o644); err != nil {
			return fmt.Errorf("recover height source for %s: %w", mat.Name, err)
		}
		plan.Heights[materialID] = HeightSource{Path: path, Recovered: true}
		plan.ScratchFiles = append(plan.ScratchFiles, path)
		return nil
	}
	logger.Warn("height source unresolvable",
		logging.String(logging.FieldMaterial, mat.Name),
		logging.String("texture", tex.Name),
	)
	return nil
}
