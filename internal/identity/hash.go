package identity

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"kiln/internal/scene"
)

// textureHashWindow bounds how much of a backing file feeds the hash;
// the leading bytes are enough to distinguish edits without reading
// multi-hundred-megabyte EXRs whole.
const textureHashWindow = 128 * 1024

// Hash computes a content digest for the material. Identical shader
// state yields an identical digest across processes and platforms.
func Hash(mat *scene.Material) string {
	if mat == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("NAME:")
	b.WriteString(norm.NFC.String(mat.Name))

	channels := make([]string, 0, len(mat.Channels))
	for ch := range mat.Channels {
		channels = append(channels, string(ch))
	}
	sort.Strings(channels)
	for _, ch := range channels {
		input := mat.Channels[scene.Channel(ch)]
		b.WriteString("|CH:")
		b.WriteString(ch)
		b.WriteString("=")
		b.WriteString(inputRepr(input))
	}
	if mat.Displacement != nil {
		b.WriteString("|DISP=")
		b.WriteString(inputRepr(*mat.Displacement))
	}

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func inputRepr(input scene.Input) string {
	if !input.Linked {
		return "value" + valueRepr(input.Value)
	}
	var b strings.Builder
	b.WriteString("link:")
	b.WriteString(input.Source)
	if input.Texture != nil {
		b.WriteString(":")
		b.WriteString(hashTexture(input.Texture))
	}
	return b.String()
}

// valueRepr formats constants with fixed precision so equal values hash
// equally regardless of how the host serialized them.
func valueRepr(value []float64) string {
	parts := make([]string, len(value))
	for i, v := range value {
		parts[i] = fmt.Sprintf("%.8f", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// hashTexture digests the leading window of the backing file. When the
// file is unreadable the raw path and image name stand in, so a missing
// file still produces a stable digest.
func hashTexture(t *scene.TextureSample) string {
	if t.OnDisk() {
		if file, err := os.Open(t.Path); err == nil {
			defer file.Close()
			h := md5.New()
			if _, err := io.CopyN(h, file, textureHashWindow); err == nil || err == io.EOF {
				return hex.EncodeToString(h.Sum(nil))
			}
		}
	}
	if len(t.Pixels) > 0 {
		window := t.Pixels
		if len(window) > textureHashWindow {
			window = window[:textureHashWindow]
		}
		sum := md5.Sum(window)
		return hex.EncodeToString(sum[:])
	}
	fallback := "RAW_PATH:" + t.Path + "|NAME:" + norm.NFC.String(t.Name)
	sum := md5.Sum([]byte(fallback))
	return hex.EncodeToString(sum[:])
}
