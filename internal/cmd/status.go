package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/jpoutrin/portman-cli/internal/registry"
	"github.com/jpoutrin/portman-cli/internal/sysports"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	var (
		all  bool
		live bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show port allocations",
		Long: `Shows allocations for the current context, or every context with --all.
With --live, each port is checked against the host's listening sockets.

Examples:
  portman status
  portman status --all
  portman status --all --live`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(all, live)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Show all contexts, not just the current one")
	cmd.Flags().BoolVar(&live, "live", false, "Check if ports are actually listening")

	return cmd
}

// NewListCmd creates the list command, a shorthand for status --all
func NewListCmd() *cobra.Command {
	var live bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List allocations across all contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(true, live)
		},
	}

	cmd.Flags().BoolVar(&live, "live", false, "Check if ports are actually listening")

	return cmd
}

func runStatus(all, live bool) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	var allocations []registry.Allocation
	if all {
		allocations, err = reg.ListAll()
	} else {
		ctx, ctxErr := currentContext()
		if ctxErr != nil {
			return ctxErr
		}
		allocations, err = reg.ListByContext(ctx.Hash)
	}
	if err != nil {
		return err
	}

	if len(allocations) == 0 {
		fmt.Println("No allocations found")
		return nil
	}

	var listening map[int]bool
	if live {
		listening = sysports.NewScanner().ListeningPorts()
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	if all {
		fmt.Println("Port Allocations")
		fmt.Println("================")
	} else {
		fmt.Println("Current Context Allocations")
		fmt.Println("===========================")
	}
	fmt.Println()

	for _, alloc := range allocations {
		line := ""
		if all {
			label := alloc.ContextLabel
			if label == "" {
				label = "-"
			}
			line = fmt.Sprintf("%s %-30s ", cyan(alloc.ContextHash[:min(8, len(alloc.ContextHash))]), label)
		}
		line += fmt.Sprintf("%-20s %s", green(alloc.Service), yellow(fmt.Sprintf("%d", alloc.Port)))
		if live {
			if listening[alloc.Port] {
				line += "  ● LISTEN"
			} else {
				line += "  ○ free"
			}
		}
		fmt.Println(line)
	}

	return nil
}
