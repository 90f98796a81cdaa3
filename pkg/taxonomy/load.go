package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// file is the on-disk shape of a taxonomy override
type file struct {
	Kinds []KindStages `yaml:"kinds"`
}

// Parse builds a registry from YAML taxonomy content
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy YAML: %w", err)
	}
	r, err := NewRegistry(f.Kinds)
	if err != nil {
		return nil, fmt.Errorf("invalid taxonomy: %w", err)
	}
	return r, nil
}

// LoadFile reads a taxonomy override file and builds a registry from it.
// The file fully replaces the built-in taxonomy; kinds it does not mention
// are not served.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}
	return Parse(data)
}

// Load returns the registry for the given override path, or the built-in
// registry when the path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
