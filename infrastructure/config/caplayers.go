package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	engine "github.com/R3E-Network/actorcore/system/core"
	infraerrors "github.com/R3E-Network/actorcore/infrastructure/errors"
)

// CapLayerEntry is one cap layer as it appears in cap_layers.yaml/.json.
type CapLayerEntry struct {
	Name     string `yaml:"name" json:"name"`
	Priority int    `yaml:"priority" json:"priority"`
}

// CapLayersFile is the on-disk shape of the cap layer configuration file.
type CapLayersFile struct {
	Layers            []CapLayerEntry `yaml:"layers" json:"layers"`
	AcrossLayerPolicy  string          `yaml:"across_layer_policy" json:"across_layer_policy"`
	ShrinkOnViolation  bool            `yaml:"shrink_on_violation" json:"shrink_on_violation"`
}

// LoadCapLayers reads cap_layers.yaml (or .yml/.json) from dir and converts
// it into engine types ready for CapLayerRegistry.LoadLayers.
func LoadCapLayers(dir string) ([]engine.CapLayer, engine.AcrossLayerPolicy, bool, error) {
	path, err := findConfigFile(dir, "cap_layers")
	if err != nil {
		return nil, "", false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", false, infraerrors.ConfigMissing(path)
	}

	var file CapLayersFile
	if err := unmarshalByExtension(path, data, &file); err != nil {
		return nil, "", false, infraerrors.ConfigMalformed(path, err)
	}

	layers := make([]engine.CapLayer, 0, len(file.Layers))
	for _, l := range file.Layers {
		layers = append(layers, engine.CapLayer{Name: l.Name, Priority: l.Priority})
	}
	return layers, engine.AcrossLayerPolicy(strings.ToUpper(file.AcrossLayerPolicy)), file.ShrinkOnViolation, nil
}

func findConfigFile(dir, base string) (string, error) {
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		p := filepath.Join(dir, base+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", infraerrors.ConfigMissing(filepath.Join(dir, base+".yaml"))
}

func unmarshalByExtension(path string, data []byte, v interface{}) error {
	if strings.HasSuffix(path, ".json") {
		return json.Unmarshal(data, v)
	}
	return yaml.Unmarshal(data, v)
}
