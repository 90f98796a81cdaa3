package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ripesense/ripesense/pkg/classification"
	"github.com/ripesense/ripesense/pkg/cli"
	"github.com/ripesense/ripesense/pkg/services"
	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// NewClassifyCmd creates the classify command
func NewClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a produce photo",
		Long: `Classify the ripeness of a produce photo using the configured backend.

The image is read from disk and classified locally with the embedded backend,
or forwarded to the remote classifier when the configuration says so. The
ranked stage confidences are printed in the chosen output format.

Examples:
  # Classify a banana photo
  ripectl classify --image banana.jpg --produce-type banana

  # Classify with the first configured produce kind
  ripectl classify -i photo.png

  # JSON output for scripting
  ripectl classify -i photo.png -p avocado -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			imagePath, _ := cmd.Flags().GetString("image")
			produceType, _ := cmd.Flags().GetString("produce-type")
			backendOverride, _ := cmd.Flags().GetString("backend")
			configPath := cmd.Parent().Flag("config").Value.String()
			outputFormat := cmd.Parent().Flag("output").Value.String()

			if imagePath == "" {
				return fmt.Errorf("--image is required")
			}

			image, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if backendOverride != "" {
				cfg.Backend.Type = backendOverride
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("invalid --backend: %w", err)
				}
			}
			registry, err := taxonomy.Load(cfg.Taxonomy.Path)
			if err != nil {
				return fmt.Errorf("failed to load taxonomy: %w", err)
			}

			kind := taxonomy.ProduceKind(produceType)
			if kind == "" {
				kind = registry.Kinds()[0]
			}
			if !registry.HasKind(kind) {
				return fmt.Errorf("unknown produce type %q (valid options: %v)", produceType, registry.Kinds())
			}

			// History stays off for one-shot CLI scans.
			svc, err := services.NewClassificationService(cfg, registry, nil)
			if err != nil {
				return fmt.Errorf("failed to build classification service: %w", err)
			}
			defer svc.Close()

			ctx := cmd.Context()
			if err := svc.Reload(ctx, kind); err != nil {
				return fmt.Errorf("failed to load classifier for %s: %w", kind, err)
			}
			result, source, err := svc.Classify(ctx, kind, image)
			if err != nil {
				return fmt.Errorf("classification failed: %w", err)
			}

			return displayClassification(registry, result, source, outputFormat)
		},
	}

	cmd.Flags().StringP("image", "i", "", "Path to the produce photo to classify")
	cmd.Flags().StringP("produce-type", "p", "", "Produce kind to classify as (defaults to the first configured kind)")
	cmd.Flags().StringP("backend", "b", "", "Override the configured backend: embedded or remote")

	return cmd
}

type classifyOutput struct {
	ProduceType    string             `json:"produce_type" yaml:"produce_type"`
	PredictedClass string             `json:"predicted_class" yaml:"predicted_class"`
	PredictedLabel string             `json:"predicted_label" yaml:"predicted_label"`
	Confidence     float64            `json:"confidence" yaml:"confidence"`
	Source         string             `json:"source" yaml:"source"`
	Predictions    []predictionOutput `json:"predictions" yaml:"predictions"`
}

type predictionOutput struct {
	Class      string  `json:"class" yaml:"class"`
	Label      string  `json:"label" yaml:"label"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

func displayClassification(registry *taxonomy.Registry, result *classification.ClassificationResult, source, format string) error {
	out := classifyOutput{
		ProduceType:    string(result.ProduceKind),
		PredictedClass: result.TopLabel,
		PredictedLabel: registry.DisplayLabel(result.ProduceKind, result.TopLabel),
		Confidence:     result.TopConfidence,
		Source:         source,
	}
	for _, p := range result.Predictions {
		out.Predictions = append(out.Predictions, predictionOutput{
			Class:      p.Label,
			Label:      registry.DisplayLabel(result.ProduceKind, p.Label),
			Confidence: p.Confidence,
		})
	}

	switch format {
	case "json":
		return cli.PrintJSON(out)
	case "yaml":
		return cli.PrintYAML(out)
	}

	// Table format
	fmt.Println("\nClassification Results:")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Produce:     %s\n", out.ProduceType)
	fmt.Printf("Stage:       %s\n", out.PredictedLabel)
	fmt.Printf("Confidence:  %.2f\n", out.Confidence)
	fmt.Printf("Source:      %s\n", out.Source)
	fmt.Println()

	headers := []string{"Stage", "Label", "Confidence"}
	var rows [][]string
	for _, p := range out.Predictions {
		rows = append(rows, []string{p.Class, p.Label, fmt.Sprintf("%.4f", p.Confidence)})
	}
	cli.PrintTable(headers, rows)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}
