package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewContextCmd creates the context command
func NewContextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "context",
		Short: "Show current context information",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := currentContext()
			if err != nil {
				return err
			}

			bold := color.New(color.Bold).SprintFunc()
			dim := color.New(color.Faint).SprintFunc()

			fmt.Printf("%s %s\n", bold("Context:"), ctx.Hash)
			fmt.Printf("  %s   %s\n", dim("Path:"), ctx.Path)
			fmt.Printf("  %s  %s\n", dim("Label:"), ctx.Label)
			if ctx.Remote != "" {
				fmt.Printf("  %s %s\n", dim("Remote:"), ctx.Remote)
			}
			if ctx.Branch != "" {
				fmt.Printf("  %s %s\n", dim("Branch:"), ctx.Branch)
			}

			return nil
		},
	}
}
