package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnsaved marks scenes with no on-disk identity; they cannot be
// snapshotted because workers resolve texture paths relative to the
// project file.
var ErrUnsaved = errors.New("scene has never been saved")

// WriteSnapshot persists the scene as a deterministic JSON document at
// path. The write is atomic: content lands in a temp file in the target
// directory and is renamed into place.
func WriteSnapshot(s *Scene, path string) error {
	if !s.Saved() {
		return ErrUnsaved
	}
	data, err := MarshalSnapshot(s)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// MarshalSnapshot renders the snapshot document. Two structurally equal
// scenes marshal to identical bytes (encoding/json sorts map keys).
func MarshalSnapshot(s *Scene) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// LoadSnapshot reads a snapshot document back into a Scene.
func LoadSnapshot(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var s Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return &s, nil
}
