// Package identity assigns stable handles to materials and computes
// content hashes over their shader state.
//
// A material's identity is a UUID attached once and reused for the
// material's lifetime; it is the dedup key for bake outputs and never
// changes when the material's content is edited. The content hash, by
// contrast, tracks edits: it folds channel values (with fixed-precision
// float formatting), texture file contents, and the NFC-normalized
// display name into one digest.
package identity
