package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	config     *Config
	configOnce sync.Once
	configErr  error
	configMu   sync.RWMutex
)

// Load loads the configuration from the specified YAML file once and
// caches it globally.
func Load(configPath string) (*Config, error) {
	configOnce.Do(func() {
		cfg, err := Parse(configPath)
		if err != nil {
			configErr = err
			return
		}
		configMu.Lock()
		config = cfg
		configMu.Unlock()
	})
	if configErr != nil {
		return nil, configErr
	}
	configMu.RLock()
	defer configMu.RUnlock()
	return config, nil
}

// Parse parses a YAML config file without touching the global cache.
func Parse(configPath string) (*Config, error) {
	// Resolve symlinks to handle Kubernetes ConfigMap mounts.
	resolved, _ := filepath.EvalSymlinks(configPath)
	if resolved == "" {
		resolved = configPath
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes parses YAML config content, applies defaults and validates.
func ParseBytes(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Default returns a configuration with every default applied, used when no
// config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Replace replaces the globally cached config. Safe for concurrent readers.
func Replace(newCfg *Config) {
	configMu.Lock()
	config = newCfg
	configErr = nil
	configMu.Unlock()
}

// Get returns the current configuration, nil before the first Load
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return config
}
