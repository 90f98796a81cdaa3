package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ripesense/ripesense/pkg/classification"
	"github.com/ripesense/ripesense/pkg/cli"
)

// NewModelsCmd creates the models command
func NewModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List local model artifacts",
		Long: `List the model artifacts available to the embedded backend.

Each artifact is a JSON file in the configured models directory, named after
the produce kind it classifies. Kinds without an artifact fall back to
synthetic scoring.

Examples:
  # List artifacts in the configured models directory
  ripectl models

  # List artifacts from another directory
  ripectl models --models-dir ./artifacts

  # JSON output
  ripectl models -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := cmd.Parent().Flag("config").Value.String()
			outputFormat := cmd.Parent().Flag("output").Value.String()
			modelsDir, _ := cmd.Flags().GetString("models-dir")

			if modelsDir == "" {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				modelsDir = cfg.Backend.Embedded.ModelsDir
			}

			artifacts, err := listArtifacts(modelsDir)
			if err != nil {
				return err
			}

			if len(artifacts) == 0 {
				cli.Warningf("No model artifacts found in %s", modelsDir)
				cli.Info("The embedded backend scores kinds without an artifact synthetically")
				return nil
			}

			return displayArtifacts(artifacts, outputFormat)
		},
	}

	cmd.Flags().String("models-dir", "", "Models directory (defaults to the configured one)")

	return cmd
}

type artifactInfo struct {
	Kind       string   `json:"kind" yaml:"kind"`
	Path       string   `json:"path" yaml:"path"`
	Labels     []string `json:"labels" yaml:"labels"`
	FeatureDim int      `json:"feature_dim" yaml:"feature_dim"`
	Size       int64    `json:"size_bytes" yaml:"size_bytes"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// listArtifacts scans dir for *.json model files. Artifacts that fail to
// load are still listed, carrying the load error, so a broken file shows up
// instead of silently vanishing.
func listArtifacts(dir string) ([]artifactInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	var artifacts []artifactInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info := artifactInfo{
			Kind: strings.TrimSuffix(entry.Name(), ".json"),
			Path: path,
		}
		if fi, statErr := entry.Info(); statErr == nil {
			info.Size = fi.Size()
		}

		network, loadErr := classification.LoadNetwork(path)
		if loadErr != nil {
			info.Error = loadErr.Error()
		} else {
			info.Labels = network.Labels
			info.FeatureDim = network.FeatureDim()
		}
		artifacts = append(artifacts, info)
	}

	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Kind < artifacts[j].Kind })
	return artifacts, nil
}

func displayArtifacts(artifacts []artifactInfo, format string) error {
	switch format {
	case "json":
		return cli.PrintJSON(artifacts)
	case "yaml":
		return cli.PrintYAML(artifacts)
	}

	// Table format
	headers := []string{"Produce", "Stages", "Feature Dim", "Size", "Status"}
	var rows [][]string

	for _, a := range artifacts {
		status := "ok"
		stages := fmt.Sprintf("%d", len(a.Labels))
		if a.Error != "" {
			status = a.Error
			stages = "-"
		}
		rows = append(rows, []string{
			a.Kind,
			stages,
			fmt.Sprintf("%d", a.FeatureDim),
			formatSize(a.Size),
			status,
		})
	}

	cli.PrintTable(headers, rows)
	return nil
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMG"[exp])
}
