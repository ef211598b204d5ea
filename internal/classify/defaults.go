package classify

import (
	"math"

	"kiln/internal/scene"
)

// defaultEpsilon is the component-wise tolerance when comparing an
// unconnected channel value against the shading model default.
const defaultEpsilon = 1e-4

// channelDefaults holds the canonical principled-shading defaults. An
// unconnected channel at its default contributes nothing to the bake.
var channelDefaults = map[scene.Channel][]float64{
	scene.ChannelBaseColor: {0.8, 0.8, 0.8, 1.0},
	scene.ChannelMetallic:  {0.0},
	scene.ChannelRoughness: {0.5},
	scene.ChannelNormal:    {0.0, 0.0, 0.0},
	scene.ChannelEmission:  {0.0, 0.0, 0.0, 1.0},
}

// atDefault reports whether an unconnected channel value matches the
// canonical default component-wise. A nil value reads as the default
// itself (the socket was never touched).
func atDefault(ch scene.Channel, value []float64) bool {
	if len(value) == 0 {
		return true
	}
	def, ok := channelDefaults[ch]
	if !ok {
		return false
	}
	if len(value) != len(def) {
		return false
	}
	for i := range value {
		if math.Abs(value[i]-def[i]) > defaultEpsilon {
			return false
		}
	}
	return true
}
