// Package knowledge loads the accumulated crop-strategy knowledge base.
// The layout stage records what worked per channel layout; later runs on
// similar material start from those hints instead of from scratch.
package knowledge

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const cropStrategiesFile = "crop-strategies.yaml"

// CropStrategy is one remembered framing approach for a source layout.
type CropStrategy struct {
	// Layout names the detected source layout, e.g. "podcast_two_shot".
	Layout string `yaml:"layout"`

	// Framing is the framing style that worked for this layout.
	Framing string `yaml:"framing"`

	// CropFilter is the ffmpeg crop expression used.
	CropFilter string `yaml:"crop_filter"`

	// Notes are free-form observations from past runs.
	Notes string `yaml:"notes,omitempty"`
}

type cropFile struct {
	Strategies []CropStrategy `yaml:"strategies"`
}

// LoadCropStrategies reads the crop knowledge base from dir, keyed by
// layout name. A missing file is an empty knowledge base, not an error.
func LoadCropStrategies(dir string) (map[string]CropStrategy, error) {
	path := filepath.Join(dir, cropStrategiesFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]CropStrategy{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var parsed cropFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	strategies := make(map[string]CropStrategy, len(parsed.Strategies))
	for _, s := range parsed.Strategies {
		if s.Layout == "" {
			continue
		}
		strategies[s.Layout] = s
	}
	return strategies, nil
}
