package commands

import (
	"testing"
)

func TestStagesCmd(t *testing.T) {
	configPath := writeTestConfig(t)

	tests := []struct {
		name      string
		args      []string
		wantError bool
	}{
		{
			name: "all kinds table",
			args: []string{"stages", "-c", configPath},
		},
		{
			name: "single kind",
			args: []string{"stages", "banana", "-c", configPath},
		},
		{
			name: "json output",
			args: []string{"stages", "-c", configPath, "-o", "json"},
		},
		{
			name: "yaml output",
			args: []string{"stages", "avocado", "-c", configPath, "-o", "yaml"},
		},
		{
			name:      "unknown kind",
			args:      []string{"stages", "dragonfruit", "-c", configPath},
			wantError: true,
		},
		{
			name:      "too many arguments",
			args:      []string{"stages", "banana", "avocado", "-c", configPath},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd := newRootCmd()
			rootCmd.AddCommand(NewStagesCmd())
			rootCmd.SetArgs(tt.args)

			_, err := rootCmd.ExecuteC()
			if tt.wantError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestStagesCmdMissingConfigUsesDefaults(t *testing.T) {
	rootCmd := newRootCmd()
	rootCmd.AddCommand(NewStagesCmd())
	rootCmd.SetArgs([]string{"stages", "-c", "/no/such/config.yaml"})

	if _, err := rootCmd.ExecuteC(); err != nil {
		t.Errorf("expected built-in taxonomy fallback, got error: %v", err)
	}
}
