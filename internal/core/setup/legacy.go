package setup

import (
	"fmt"
	"io"
	"os"

	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"
	"gopkg.in/yaml.v3"
)

const LEGACY_PLATFORM = "smartweatherudp"

type legacyPlatform struct {
	Platform            string `yaml:"platform"`
	domain.ImportConfig `yaml:",inline"`
}

type legacyFile struct {
	Sensor []legacyPlatform `yaml:"sensor"`
}

// ParseLegacyConfig extracts the smartweatherudp blocks of a legacy sensor
// platform list.
func ParseLegacyConfig(r io.Reader) ([]domain.ImportConfig, error) {
	var file legacyFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid legacy config: %w", err)
	}
	var configs []domain.ImportConfig
	for _, p := range file.Sensor {
		if p.Platform == LEGACY_PLATFORM {
			configs = append(configs, p.ImportConfig)
		}
	}
	return configs, nil
}

func LoadLegacyConfig(path string) ([]domain.ImportConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open legacy config: %w", err)
	}
	defer f.Close()
	return ParseLegacyConfig(f)
}
