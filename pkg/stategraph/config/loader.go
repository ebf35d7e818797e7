package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ridgewell/stategraph/pkg/stategraph/checkpoint"
)

// decoders maps file extensions to parsers. YAML is the primary format;
// JSON is accepted for tooling that emits it.
var decoders = map[string]func([]byte) (Config, error){
	".yaml": FromYAML,
	".yml":  FromYAML,
	".json": FromJSON,
}

// FromFile loads configuration from a file, picking the parser by
// extension. Supported extensions: .yaml, .yml, .json
func FromFile(path string) (Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return decode(data)
}

// OpenStoreFromFile loads a configuration file and builds the checkpoint
// store its checkpointer section describes. Shorthand for FromFile
// followed by OpenStore.
func OpenStoreFromFile(path string) (checkpoint.Store, error) {
	cfg, err := FromFile(path)
	if err != nil {
		return nil, err
	}
	return OpenStore(cfg)
}

// FromYAML parses YAML data into a Config.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON parses JSON data into a Config.
func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}
