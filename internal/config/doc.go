// Package config loads, normalizes, and validates kiln configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every
// knob the CLI and the bake orchestrator need: workspace layout, worker
// process limits, bake resolutions, and batch timing.
//
// Always obtain settings through this package so downstream code
// receives sanitized paths and clear validation errors.
package config
