package storage

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed mimekinds.yaml
var mimeKindsYAML []byte

// MimeKinds classifies mime types into thumbnail handling kinds by
// prefix match. The rules ship embedded; Skip entries override the
// others so vector formats never reach the raster pipeline.
type MimeKinds struct {
	Image []string `yaml:"image"`
	Video []string `yaml:"video"`
	Skip  []string `yaml:"skip"`
}

// LoadMimeKinds parses the embedded rule set.
func LoadMimeKinds() (*MimeKinds, error) {
	var kinds MimeKinds
	if err := yaml.Unmarshal(mimeKindsYAML, &kinds); err != nil {
		return nil, fmt.Errorf("parse mime kind rules: %w", err)
	}
	return &kinds, nil
}

// KindFor returns "image", "video" or "" for mime types with no
// thumbnail handling.
func (k *MimeKinds) KindFor(mimeType string) string {
	for _, prefix := range k.Skip {
		if strings.HasPrefix(mimeType, prefix) {
			return ""
		}
	}
	for _, prefix := range k.Image {
		if strings.HasPrefix(mimeType, prefix) {
			return "image"
		}
	}
	for _, prefix := range k.Video {
		if strings.HasPrefix(mimeType, prefix) {
			return "video"
		}
	}
	return ""
}
