package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jpoutrin/portman-cli/internal/pruner"
	"github.com/spf13/cobra"
)

// NewPruneCmd creates the prune command
func NewPruneCmd() *cobra.Command {
	var (
		dryRun    bool
		staleDays int
		force     bool
	)

	cmd := &cobra.Command{
		Use:     "prune",
		Aliases: []string{"gc"},
		Short:   "Remove orphaned port allocations",
		Long: `Removes allocations whose context path no longer exists. With --stale,
allocations not accessed in N days are removed as well.

Examples:
  portman prune --dry-run
  portman prune
  portman prune --stale 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(dryRun, staleDays, force)
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would be removed")
	cmd.Flags().IntVar(&staleDays, "stale", 0, "Also remove allocations not accessed in N days")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")

	return cmd
}

func runPrune(dryRun bool, staleDays int, force bool) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	p := pruner.New(reg, pruner.OSPathChecker{})

	// Always report first; deletion happens only after confirmation
	preview, err := p.Prune(true)
	if err != nil {
		return err
	}
	candidates := preview.Removed

	if staleDays > 0 {
		stale, err := p.PruneStale(staleDays, true)
		if err != nil {
			return err
		}
		candidates = append(candidates, stale.Removed...)
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	if len(candidates) == 0 {
		fmt.Println(green("No orphaned allocations found"))
		return nil
	}

	fmt.Println(yellow(fmt.Sprintf("Would remove %d allocation(s):", len(candidates))))
	for _, alloc := range candidates {
		fmt.Printf("  - %s: %s (%d)\n", alloc.ContextLabel, alloc.Service, alloc.Port)
	}

	if dryRun {
		fmt.Println("\nRun without --dry-run to remove.")
		return nil
	}

	if !force && !confirm("Proceed with deletion?") {
		fmt.Println(yellow("Cancelled"))
		return nil
	}

	result, err := p.Prune(false)
	if err != nil {
		return err
	}
	removed := result.Removed
	errs := result.Errors

	if staleDays > 0 {
		stale, err := p.PruneStale(staleDays, false)
		if err != nil {
			return err
		}
		removed = append(removed, stale.Removed...)
		errs = append(errs, stale.Errors...)
	}

	for _, msg := range errs {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
	}

	fmt.Println(green(fmt.Sprintf("Removed %d allocation(s)", len(removed))))
	return nil
}

// confirm prompts for a yes/no answer on stdin
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
