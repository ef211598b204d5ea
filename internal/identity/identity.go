package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"kiln/internal/scene"
)

// Registry persists identity assignments so a material keeps its handle
// across batches and host restarts.
type Registry interface {
	LookupIdentity(ctx context.Context, materialName string) (id string, ok bool, err error)
	SaveIdentity(ctx context.Context, materialName, id, contentHash string) error
}

// Valid reports whether id is a well-formed material identity.
func Valid(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// Ensure returns the material's identity, assigning and recording a new
// one when the material carries none (or a malformed one). The material
// is updated in place so subsequent snapshots embed the handle.
func Ensure(ctx context.Context, reg Registry, mat *scene.Material) (string, error) {
	if mat == nil {
		return "", fmt.Errorf("material is required")
	}
	if Valid(mat.Identity) {
		return mat.Identity, nil
	}
	if reg != nil {
		id, ok, err := reg.LookupIdentity(ctx, mat.Name)
		if err != nil {
			return "", fmt.Errorf("lookup identity for %s: %w", mat.Name, err)
		}
		if ok && Valid(id) {
			mat.Identity = id
			return id, nil
		}
	}
	id := uuid.NewString()
	mat.Identity = id
	if reg != nil {
		if err := reg.SaveIdentity(ctx, mat.Name, id, Hash(mat)); err != nil {
			return "", fmt.Errorf("save identity for %s: %w", mat.Name, err)
		}
	}
	return id, nil
}
