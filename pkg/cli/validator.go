package cli

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ripesense/ripesense/pkg/config"
	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig performs semantic validation on the configuration. It checks
// the parts structural validation cannot see: referenced files and directories
// on disk, the shape of the remote classifier URL, the taxonomy override
// content.
func ValidateConfig(cfg *config.Config) error {
	var validationErrors []ValidationError

	// Validate embedded model directory
	if err := validateEmbeddedModels(cfg); err != nil {
		var target ValidationError
		if errors.As(err, &target) {
			validationErrors = append(validationErrors, target)
		}
	}

	// Validate remote endpoint URL
	if err := validateRemoteEndpoint(cfg); err != nil {
		var target ValidationError
		if errors.As(err, &target) {
			validationErrors = append(validationErrors, target)
		}
	}

	// Validate taxonomy override file
	if err := validateTaxonomyFile(cfg); err != nil {
		var target ValidationError
		if errors.As(err, &target) {
			validationErrors = append(validationErrors, target)
		}
	}

	// Validate scan history storage
	if err := validateHistoryStorage(cfg); err != nil {
		var target ValidationError
		if errors.As(err, &target) {
			validationErrors = append(validationErrors, target)
		}
	}

	if len(validationErrors) > 0 {
		return validationErrors[0] // Return first error
	}

	return nil
}

func validateEmbeddedModels(cfg *config.Config) error {
	if cfg.Backend.Type != config.BackendEmbedded {
		return nil
	}

	info, err := os.Stat(cfg.Backend.Embedded.ModelsDir)
	if os.IsNotExist(err) {
		// Without require_model the backend degrades to synthetic scoring,
		// so a missing directory is only fatal when a model is mandatory.
		if cfg.Backend.Embedded.RequireModel {
			return ValidationError{
				Field:   "backend.embedded.models_dir",
				Message: fmt.Sprintf("directory %s not found but require_model is set", cfg.Backend.Embedded.ModelsDir),
			}
		}
		return nil
	}
	if err == nil && !info.IsDir() {
		return ValidationError{
			Field:   "backend.embedded.models_dir",
			Message: fmt.Sprintf("%s is not a directory", cfg.Backend.Embedded.ModelsDir),
		}
	}

	return nil
}

func validateRemoteEndpoint(cfg *config.Config) error {
	if cfg.Backend.Type != config.BackendRemote {
		return nil
	}

	u, err := url.Parse(cfg.Backend.Remote.URL)
	if err != nil {
		return ValidationError{
			Field:   "backend.remote.url",
			Message: fmt.Sprintf("invalid URL: %v", err),
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{
			Field:   "backend.remote.url",
			Message: fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme),
		}
	}
	if u.Host == "" {
		return ValidationError{
			Field:   "backend.remote.url",
			Message: "URL has no host",
		}
	}

	return nil
}

func validateTaxonomyFile(cfg *config.Config) error {
	if cfg.Taxonomy.Path == "" {
		return nil
	}

	if _, err := os.Stat(cfg.Taxonomy.Path); os.IsNotExist(err) {
		return ValidationError{
			Field:   "taxonomy.path",
			Message: fmt.Sprintf("taxonomy file not found at %s", cfg.Taxonomy.Path),
		}
	}
	if _, err := taxonomy.LoadFile(cfg.Taxonomy.Path); err != nil {
		return ValidationError{
			Field:   "taxonomy.path",
			Message: err.Error(),
		}
	}

	return nil
}

func validateHistoryStorage(cfg *config.Config) error {
	if !cfg.History.Enabled {
		return nil
	}

	switch cfg.History.BackendType {
	case config.HistorySQLite:
		dir := filepath.Dir(cfg.History.SQLite.Path)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return ValidationError{
				Field:   "history.sqlite.path",
				Message: fmt.Sprintf("parent directory %s not found", dir),
			}
		}
	case config.HistoryRedis:
		if p := cfg.History.Redis.ConfigPath; p != "" {
			if _, err := os.Stat(p); os.IsNotExist(err) {
				return ValidationError{
					Field:   "history.redis.config_path",
					Message: fmt.Sprintf("redis config file not found at %s", p),
				}
			}
		}
	}

	return nil
}

// ValidateEndpointReachability checks if the remote classifier endpoint
// answers HTTP at all
func ValidateEndpointReachability(endpoint string) error {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("endpoint not reachable: %w", err)
	}
	defer resp.Body.Close()

	return nil
}
