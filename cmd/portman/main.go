package main

import (
	"fmt"
	"os"

	"github.com/jpoutrin/portman-cli/internal/cmd"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "portman",
		Short: "Port manager for development environments",
		Long: `Portman assigns stable, conflict-free ports to services in development
contexts (a git repo+branch or a directory), and keeps the assignments
consistent across invocations and projects.`,
		Version: version,
	}

	// Add subcommands
	rootCmd.AddCommand(cmd.NewGetCmd())
	rootCmd.AddCommand(cmd.NewBookCmd())
	rootCmd.AddCommand(cmd.NewReleaseCmd())
	rootCmd.AddCommand(cmd.NewExportCmd())
	rootCmd.AddCommand(cmd.NewStatusCmd())
	rootCmd.AddCommand(cmd.NewListCmd())
	rootCmd.AddCommand(cmd.NewContextCmd())
	rootCmd.AddCommand(cmd.NewDiscoverCmd())
	rootCmd.AddCommand(cmd.NewPruneCmd())
	rootCmd.AddCommand(cmd.NewConfigCmd())
	rootCmd.AddCommand(cmd.NewInitCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
