package commands

import (
	"os"

	"github.com/spf13/cobra"
)

// NewCompletionCmd creates the completion command
func NewCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for ripectl.

To load completions:

Bash:
  # Linux:
  $ ripectl completion bash > /etc/bash_completion.d/ripectl

  # macOS:
  $ ripectl completion bash > /usr/local/etc/bash_completion.d/ripectl

  # Current session:
  $ source <(ripectl completion bash)

Zsh:
  # If shell completion is not already enabled:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # Generate completion:
  $ ripectl completion zsh > "${fpath[1]}/_ripectl"

  # Current session:
  $ source <(ripectl completion zsh)

Fish:
  $ ripectl completion fish > ~/.config/fish/completions/ripectl.fish

  # Current session:
  $ ripectl completion fish | source

PowerShell:
  PS> ripectl completion powershell | Out-String | Invoke-Expression

  # To load completions for every session:
  PS> ripectl completion powershell > ripectl.ps1
  # And source this file from your PowerShell profile.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletion(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}
