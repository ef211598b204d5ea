package classify

import (
	"fmt"

	"kiln/internal/scene"
)

// Class is a material's bake classification.
type Class int

const (
	// ClassSimple materials export with their original texture set.
	ClassSimple Class = iota
	// ClassComplex materials need their channels baked to textures.
	ClassComplex
)

// String implements fmt.Stringer.
func (c Class) String() string {
	if c == ClassComplex {
		return "complex"
	}
	return "simple"
}

// Result is the outcome of classifying one material.
type Result struct {
	Class Class
	// Channel and Reason describe the first violation for complex
	// materials; both are empty for simple ones.
	Channel scene.Channel
	Reason  string
}

// Classify inspects the material's channel set. The first violating
// channel short-circuits to complex. Identical shader state always
// yields an identical result: channels are visited in canonical order.
func Classify(mat *scene.Material) Result {
	for _, ch := range scene.Channels() {
		input := mat.Channel(ch)
		if reason := channelViolation(ch, input); reason != "" {
			return Result{Class: ClassComplex, Channel: ch, Reason: reason}
		}
	}
	return Result{Class: ClassSimple}
}

// channelViolation returns a non-empty reason when the channel forces a
// bake.
func channelViolation(ch scene.Channel, input scene.Input) string {
	if !input.Linked {
		if atDefault(ch, input.Value) {
			return ""
		}
		return fmt.Sprintf("value %v deviates from the shading default", input.Value)
	}
	switch input.Source {
	case scene.SourceTexture:
		if input.Texture != nil {
			return ""
		}
		return "texture source carries no image"
	case scene.SourceNormalMap:
		// The normal channel may be decoded through exactly one
		// normal-map node in front of the texture.
		if ch == scene.ChannelNormal && input.Texture != nil {
			return ""
		}
		if ch != scene.ChannelNormal {
			return "normal decode feeding a non-normal channel"
		}
		return "normal decode without a backing texture"
	default:
		return fmt.Sprintf("driven by %q node network", input.Source)
	}
}

// TaskChannels lists the channels a complex material would bake: every
// linked channel plus every constant deviating from its default.
func TaskChannels(mat *scene.Material) []scene.Channel {
	var channels []scene.Channel
	for _, ch := range scene.Channels() {
		if needsBake(ch, mat.Channel(ch)) {
			channels = append(channels, ch)
		}
	}
	return channels
}

// needsBake reports whether the channel contributes a task for a complex
// material: any linked channel, or a constant deviating from default.
func needsBake(ch scene.Channel, input scene.Input) bool {
	if input.Linked {
		return true
	}
	return !atDefault(ch, input.Value)
}

// isValueChannel reports whether the task bakes a constant rather than a
// sampled network; constants go to tiny uniform textures.
func isValueChannel(input scene.Input) bool {
	return !input.Linked
}
