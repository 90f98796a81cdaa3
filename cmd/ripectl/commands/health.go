package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ripesense/ripesense/pkg/cli"
)

// NewHealthCmd creates the health command
func NewHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running RipeSense API",
		Long: `Query the health endpoint of a running RipeSense API and display the
state of each produce classifier and the scan history store.

Examples:
  # Check the default local endpoint
  ripectl health

  # Check a remote deployment
  ripectl health --endpoint https://ripesense.example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, _ := cmd.Flags().GetString("endpoint")
			outputFormat := cmd.Parent().Flag("output").Value.String()

			report, err := fetchHealth(endpoint)
			if err != nil {
				return fmt.Errorf("failed to reach %s: %w", endpoint, err)
			}

			return displayHealth(report, outputFormat)
		},
	}

	cmd.Flags().String("endpoint", "http://localhost:8080", "RipeSense API endpoint")

	return cmd
}

// healthReport mirrors the health endpoint's wire shape.
type healthReport struct {
	Status                string       `json:"status"`
	AvailableProduceTypes []string     `json:"available_produce_types"`
	Kinds                 []kindHealth `json:"kinds"`
	History               string       `json:"history"`
}

type kindHealth struct {
	ProduceType string `json:"produce_type"`
	State       string `json:"state"`
	Source      string `json:"source,omitempty"`
	Error       string `json:"error,omitempty"`
}

func fetchHealth(endpoint string) (*healthReport, error) {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	resp, err := client.Get(fmt.Sprintf("%s/health", endpoint))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var report healthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, err
	}

	return &report, nil
}

func displayHealth(report *healthReport, format string) error {
	switch format {
	case "json":
		return cli.PrintJSON(report)
	case "yaml":
		return cli.PrintYAML(report)
	}

	// Table format
	if report.Status == "healthy" {
		cli.Successf("Status: %s", report.Status)
	} else {
		cli.Warningf("Status: %s", report.Status)
	}
	fmt.Printf("History: %s\n\n", report.History)

	headers := []string{"Produce", "State", "Source", "Error"}
	var rows [][]string
	for _, k := range report.Kinds {
		rows = append(rows, []string{k.ProduceType, k.State, k.Source, k.Error})
	}
	cli.PrintTable(headers, rows)

	return nil
}
