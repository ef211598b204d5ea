package classify

import (
	"testing"

	"kiln/internal/scene"
)

func textureInput(name, path string) scene.Input {
	return scene.Input{
		Linked:  true,
		Source:  scene.SourceTexture,
		Texture: &scene.TextureSample{Name: name, Path: path},
	}
}

func TestClassifySimpleTextureMaterial(t *testing.T) {
	mat := &scene.Material{
		Name: "Wood",
		Channels: map[scene.Channel]scene.Input{
			scene.ChannelBaseColor: textureInput("wood_diff", "/tex/wood_diff.png"),
			scene.ChannelRoughness: textureInput("wood_rough", "/tex/wood_rough.png"),
			scene.ChannelNormal: {
				Linked:  true,
				Source:  scene.SourceNormalMap,
				Texture: &scene.TextureSample{Name: "wood_nrm", Path: "/tex/wood_nrm.png"},
			},
		},
	}
	result := Classify(mat)
	if result.Class != ClassSimple {
		t.Fatalf("class = %s (%s: %s), want simple", result.Class, result.Channel, result.Reason)
	}
}

func TestClassifyDefaultsAreSimple(t *testing.T) {
	// No channels at all: every input reads as its shading default.
	result := Classify(&scene.Material{Name: "Blank"})
	if result.Class != ClassSimple {
		t.Fatalf("class = %s, want simple", result.Class)
	}

	// Explicit defaults classify the same as absent channels.
	mat := &scene.Material{
		Name: "Defaults",
		Channels: map[scene.Channel]scene.Input{
			scene.ChannelBaseColor: {Value: []float64{0.8, 0.8, 0.8, 1.0}},
			scene.ChannelMetallic:  {Value: []float64{0}},
			scene.ChannelRoughness: {Value: []float64{0.5}},
		},
	}
	if got := Classify(mat); got.Class != ClassSimple {
		t.Fatalf("class = %s (%s: %s), want simple", got.Class, got.Channel, got.Reason)
	}
}

func TestClassifyDeviatingConstantIsComplex(t *testing.T) {
	mat := &scene.Material{
		Name: "RedPlastic",
		Channels: map[scene.Channel]scene.Input{
			scene.ChannelBaseColor: {Value: []float64{0.9, 0.1, 0.1, 1.0}},
		},
	}
	result := Classify(mat)
	if result.Class != ClassComplex {
		t.Fatal("deviating constant classified simple")
	}
	if result.Channel != scene.ChannelBaseColor {
		t.Fatalf("violating channel = %s", result.Channel)
	}
}

func TestClassifyConstantWithinEpsilonIsSimple(t *testing.T) {
	mat := &scene.Material{
		Name: "NearDefault",
		Channels: map[scene.Channel]scene.Input{
			scene.ChannelRoughness: {Value: []float64{0.50005}},
		},
	}
	if got := Classify(mat); got.Class != ClassSimple {
		t.Fatalf("near-default constant classified complex: %s", got.Reason)
	}
}

func TestClassifyProceduralNetworkIsComplex(t *testing.T) {
	mat := &scene.Material{
		Name: "Noise",
		Channels: map[scene.Channel]scene.Input{
			scene.ChannelBaseColor: {Linked: true, Source: "noise_texture"},
		},
	}
	result := Classify(mat)
	if result.Class != ClassComplex {
		t.Fatal("procedural network classified simple")
	}
}

func TestClassifyNormalDecodeRules(t *testing.T) {
	// Normal-map decode on the normal channel with a backing texture: fine.
	ok := &scene.Material{
		Name: "Bumpy",
		Channels: map[scene.Channel]scene.Input{
			scene.ChannelNormal: {
				Linked:  true,
				Source:  scene.SourceNormalMap,
				Texture: &scene.TextureSample{Name: "nrm", Path: "/tex/nrm.png"},
			},
		},
	}
	if got := Classify(ok); got.Class != ClassSimple {
		t.Fatalf("valid normal decode classified complex: %s", got.Reason)
	}

	// Normal-map decode feeding baseColor: complex.
	misrouted := &scene.Material{
		Name: "Misrouted",
		Channels: map[scene.Channel]scene.Input{
			scene.ChannelBaseColor: {
				Linked:  true,
				Source:  scene.SourceNormalMap,
				Texture: &scene.TextureSample{Name: "nrm", Path: "/tex/nrm.png"},
			},
		},
	}
	if got := Classify(misrouted); got.Class != ClassComplex {
		t.Fatal("misrouted normal decode classified simple")
	}

	// Normal decode without a texture behind it: complex.
	bare := &scene.Material{
		Name: "BareDecode",
		Channels: map[scene.Channel]scene.Input{
			scene.ChannelNormal: {Linked: true, Source: scene.SourceNormalMap},
		},
	}
	if got := Classify(bare); got.Class != ClassComplex {
		t.Fatal("textureless normal decode classified simple")
	}
}

func TestClassifyReportsFirstViolationInCanonicalOrder(t *testing.T) {
	mat := &scene.Material{
		Name: "Multi",
		Channels: map[scene.Channel]scene.Input{
			scene.ChannelEmission:  {Linked: true, Source: "gradient"},
			scene.ChannelMetallic:  {Value: []float64{1.0}},
			scene.ChannelBaseColor: textureInput("diff", "/tex/diff.png"),
		},
	}
	result := Classify(mat)
	if result.Class != ClassComplex {
		t.Fatal("material with violations classified simple")
	}
	if result.Channel != scene.ChannelMetallic {
		t.Fatalf("first violation = %s, want metallic", result.Channel)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	mat := &scene.Material{
		Name: "Mixed",
		Channels: map[scene.Channel]scene.Input{
			scene.ChannelBaseColor: {Linked: true, Source: "mix"},
			scene.ChannelRoughness: {Value: []float64{0.9}},
		},
	}
	first := Classify(mat)
	for i := 0; i < 50; i++ {
		if got := Classify(mat); got != first {
			t.Fatalf("classification flapped: %+v then %+v", first, got)
		}
	}
}

func TestTaskChannelsCountsBakeableInputs(t *testing.T) {
	mat := &scene.Material{
		Name: "Mixed",
		Channels: map[scene.Channel]scene.Input{
			scene.ChannelBaseColor: {Linked: true, Source: "mix"},
			scene.ChannelMetallic:  {Value: []float64{0}},
			scene.ChannelRoughness: {Value: []float64{0.9}},
		},
	}
	channels := TaskChannels(mat)
	want := []scene.Channel{scene.ChannelBaseColor, scene.ChannelRoughness}
	if len(channels) != len(want) {
		t.Fatalf("channels = %v, want %v", channels, want)
	}
	for i := range want {
		if channels[i] != want[i] {
			t.Fatalf("channels = %v, want %v", channels, want)
		}
	}
}
