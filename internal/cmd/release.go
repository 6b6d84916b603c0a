package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewReleaseCmd creates the release command
func NewReleaseCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "release [service]",
		Short: "Release port allocations for the current context",
		Long: `Releases the allocation for one service, or every allocation in the current
context with --all.

Examples:
  portman release postgres
  portman release --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := ""
			if len(args) > 0 {
				service = args[0]
			}
			if !all && service == "" {
				return fmt.Errorf("either specify a service or use --all")
			}
			return runRelease(service, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Release all ports for the current context")

	return cmd
}

func runRelease(service string, all bool) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	ctx, err := currentContext()
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()

	if all {
		count, err := reg.DeleteByContext(ctx.Hash)
		if err != nil {
			return err
		}
		fmt.Println(green(fmt.Sprintf("Released %d allocation(s)", count)))
		return nil
	}

	deleted, err := reg.DeleteByService(ctx.Hash, service)
	if err != nil {
		return err
	}
	if deleted {
		fmt.Println(green("Released " + service))
	} else {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Println(yellow("No allocation found for " + service))
	}

	return nil
}
