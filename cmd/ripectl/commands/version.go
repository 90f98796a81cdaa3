package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ripesense/ripesense/pkg/logo"
)

// NewVersionCmd creates the version command
func NewVersionCmd(version, gitCommit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			logo.PrintRipeSenseLogo()
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", gitCommit)
			fmt.Printf("Built:      %s\n", buildDate)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("Platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
