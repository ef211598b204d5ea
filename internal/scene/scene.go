package scene

import (
	"sort"
	"strings"
)

// Channel identifies one semantic shading input on a material.
type Channel string

const (
	ChannelBaseColor Channel = "baseColor"
	ChannelMetallic  Channel = "metallic"
	ChannelRoughness Channel = "roughness"
	ChannelNormal    Channel = "normal"
	ChannelEmission  Channel = "emission"
)

// Channels lists the bakeable channels in canonical order. Displacement
// is checked independently and never baked through this list.
func Channels() []Channel {
	return []Channel{ChannelBaseColor, ChannelMetallic, ChannelRoughness, ChannelNormal, ChannelEmission}
}

// Source kinds for linked channel inputs.
const (
	SourceTexture   = "texture"
	SourceNormalMap = "normal_map"
)

// TextureSample describes an image feeding a channel.
type TextureSample struct {
	Name       string `json:"name"`
	Path       string `json:"path,omitempty"`
	ColorSpace string `json:"color_space,omitempty"`
	// Pixels holds encoded image bytes for packed images that have no
	// on-disk file. Recoverable sources are flushed to scratch files
	// before workers launch.
	Pixels []byte `json:"pixels,omitempty"`
}

// OnDisk reports whether the sample is backed by a resolvable file path.
func (t *TextureSample) OnDisk() bool {
	return t != nil && strings.TrimSpace(t.Path) != ""
}

// Input is the flattened state of one shader channel.
type Input struct {
	// Linked is true when the channel has an incoming node connection.
	Linked bool `json:"linked"`
	// Source names the node kind feeding the channel when linked.
	Source string `json:"source,omitempty"`
	// Texture is set when a texture sample ultimately feeds the channel,
	// either directly or through a decode node.
	Texture *TextureSample `json:"texture,omitempty"`
	// Value is the socket default used when the channel is unlinked.
	Value []float64 `json:"value,omitempty"`
	// NonColor marks data channels that must not be gamma-interpreted.
	NonColor bool `json:"non_color,omitempty"`
}

// Material is one shading network referenced by exportable objects.
type Material struct {
	Name     string            `json:"name"`
	Identity string            `json:"identity,omitempty"`
	Channels map[Channel]Input `json:"channels"`
	// Displacement is the material's height input, inspected separately
	// from the bakeable channel set.
	Displacement *Input `json:"displacement,omitempty"`
}

// Channel returns the input for the named channel; missing channels read
// as unlinked with no value, which classifies against the default.
func (m *Material) Channel(ch Channel) Input {
	if m == nil || m.Channels == nil {
		return Input{}
	}
	return m.Channels[ch]
}

// Object is one exportable object and its material assignment.
type Object struct {
	Name      string   `json:"name"`
	Materials []string `json:"materials"`
}

// Scene is the export set for one bake batch.
type Scene struct {
	// ProjectPath is the scene's stable on-disk identity. Empty means
	// the scene has never been saved and cannot be baked.
	ProjectPath string               `json:"project_path"`
	Objects     []Object             `json:"objects"`
	Materials   map[string]*Material `json:"materials"`
}

// Saved reports whether the scene has a stable on-disk identity.
func (s *Scene) Saved() bool {
	return s != nil && strings.TrimSpace(s.ProjectPath) != ""
}

// Material resolves a material by name.
func (s *Scene) Material(name string) (*Material, bool) {
	if s == nil || s.Materials == nil {
		return nil, false
	}
	mat, ok := s.Materials[name]
	return mat, ok
}

// MaterialNames returns the referenced material names in sorted order so
// batch processing is deterministic regardless of map iteration.
func (s *Scene) MaterialNames() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, obj := range s.Objects {
		for _, name := range obj.Materials {
			if _, ok := s.Materials[name]; ok {
				seen[name] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Assignments captures every object's material list so export-time
// mutations can be rolled back during cleanup.
func (s *Scene) Assignments() map[string][]string {
	if s == nil {
		return nil
	}
	saved := make(map[string][]string, len(s.Objects))
	for _, obj := range s.Objects {
		saved[obj.Name] = append([]string(nil), obj.Materials...)
	}
	return saved
}

// RestoreAssignments rolls object material lists back to a previously
// captured state. Objects missing from the capture are left untouched.
func (s *Scene) RestoreAssignments(saved map[string][]string) {
	if s == nil || saved == nil {
		return
	}
	for i := range s.Objects {
		if mats, ok := saved[s.Objects[i].Name]; ok {
			s.Objects[i].Materials = append([]string(nil), mats...)
		}
	}
}
