package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

// newRootCmd builds a root command with the same persistent flags the real
// ripectl binary registers.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{Use: "ripectl", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().StringP("config", "c", "config/config.yaml", "Path to configuration file")
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().StringP("output", "o", "table", "Output format: table, json, yaml")
	return root
}

// writeTestConfig writes a minimal valid configuration with an embedded
// backend and disabled history, returning its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	modelsDir := filepath.Join(dir, "models")
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	content := `backend:
  type: embedded
  embedded:
    models_dir: ` + modelsDir + `
history:
  enabled: false
api:
  port: 8080
metrics:
  port: 9190
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}
