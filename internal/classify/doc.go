// Package classify decides which materials need raster texture baking
// and turns that decision into bake tasks.
//
// A material is simple when every shading channel is either unconnected
// with its canonical default value or fed directly by a texture sample
// (the normal channel may pass through one decode node). Anything else
// is complex and gets one bake task per deviating channel, deduplicated
// across consuming objects by material identity so shared materials bake
// once.
//
// Independently of classification, each material's displacement input is
// scanned for a texture-driven height source for the downstream upload
// step.
package classify
