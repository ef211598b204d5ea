// Package scene models the export set handed to the bake pipeline:
// objects, their material assignments, and a flattened view of each
// material's shader channels.
//
// The package also owns snapshot persistence. Workers load scene state
// independently rather than sharing host memory, so a batch begins by
// writing one deterministic snapshot document that every worker reads
// before executing tasks. Snapshots are written atomically (temp file
// plus rename) and are read-only for the rest of the batch.
package scene
