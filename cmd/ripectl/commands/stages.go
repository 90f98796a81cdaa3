package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ripesense/ripesense/pkg/cli"
	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// NewStagesCmd creates the stages command
func NewStagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stages [produce-type]",
		Short: "Show the ripeness taxonomy",
		Long: `Display the produce kinds the service knows and their ordered
ripeness stages.

Without an argument every kind is shown; with one, only that kind.

Examples:
  # Show all produce kinds and stages
  ripectl stages

  # Show the banana scale only
  ripectl stages banana

  # YAML output
  ripectl stages -o yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := cmd.Parent().Flag("config").Value.String()
			outputFormat := cmd.Parent().Flag("output").Value.String()

			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			registry, err := taxonomy.Load(cfg.Taxonomy.Path)
			if err != nil {
				return fmt.Errorf("failed to load taxonomy: %w", err)
			}

			kinds := registry.Kinds()
			if len(args) == 1 {
				kind := taxonomy.ProduceKind(args[0])
				if !registry.HasKind(kind) {
					return fmt.Errorf("unknown produce type %q (valid options: %v)", args[0], registry.Kinds())
				}
				kinds = []taxonomy.ProduceKind{kind}
			}

			return displayStages(registry, kinds, outputFormat)
		},
	}

	return cmd
}

func displayStages(registry *taxonomy.Registry, kinds []taxonomy.ProduceKind, format string) error {
	if format == "json" || format == "yaml" {
		out := make([]taxonomy.KindStages, 0, len(kinds))
		for _, kind := range kinds {
			stages, err := registry.Stages(kind)
			if err != nil {
				return err
			}
			out = append(out, taxonomy.KindStages{Kind: kind, Stages: stages})
		}
		if format == "json" {
			return cli.PrintJSON(out)
		}
		return cli.PrintYAML(out)
	}

	// Table format
	headers := []string{"Produce", "Stage", "Label", "Color Hint", "Description"}
	var rows [][]string

	for _, kind := range kinds {
		stages, err := registry.Stages(kind)
		if err != nil {
			return err
		}
		for _, stage := range stages {
			rows = append(rows, []string{
				string(kind),
				fmt.Sprintf("%d. %s", stage.StageIndex, stage.CanonicalLabel),
				stage.DisplayLabel,
				stage.ColorHint,
				stage.Description,
			})
		}
	}

	cli.PrintTable(headers, rows)
	return nil
}
