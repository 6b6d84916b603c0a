package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jpoutrin/portman-cli/internal/discovery"
	"github.com/jpoutrin/portman-cli/internal/registry"
	"github.com/spf13/cobra"
)

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	var (
		auto        bool
		composeFile string
		format      string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Output port allocations as environment variables",
		Long: `Exports the current context's allocations in a shell-evaluable form.
Designed for use with direnv:

  eval "$(portman export --auto)"

Examples:
  portman export
  portman export --auto
  portman export --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(auto, composeFile, format)
		},
	}

	cmd.Flags().BoolVar(&auto, "auto", false, "Auto-discover and book services first")
	cmd.Flags().StringVar(&composeFile, "compose-file", "", "Path to docker-compose file")
	cmd.Flags().StringVar(&format, "format", "shell", "Output format: shell, json, env")

	return cmd
}

func runExport(auto bool, composeFile, format string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	ctx, err := currentContext()
	if err != nil {
		return err
	}

	if auto {
		services, err := discovery.DiscoverServices("", composeFile)
		if err != nil {
			return err
		}

		for _, svc := range services {
			existing, err := reg.GetAllocation(ctx.Hash, svc.Name)
			if err != nil {
				return err
			}
			if existing != nil {
				if err := reg.Touch(existing.ID); err != nil {
					return err
				}
				continue
			}

			// Skip services that cannot be allocated; export emits
			// whatever allocations exist
			_, _ = bookDiscovered(reg, ctx, svc)
		}
	}

	allocations, err := reg.ListByContext(ctx.Hash)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		output := make(map[string]int, len(allocations))
		for _, alloc := range allocations {
			output[exportEnvVar(alloc)] = alloc.Port
		}
		data, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "env":
		for _, alloc := range allocations {
			fmt.Printf("%s=%d\n", exportEnvVar(alloc), alloc.Port)
		}
	default: // shell
		for _, alloc := range allocations {
			fmt.Printf("export %s=%d\n", exportEnvVar(alloc), alloc.Port)
		}
		// Compose project isolation per context
		fmt.Printf("export COMPOSE_PROJECT_NAME=%s\n", strings.ReplaceAll(ctx.Label, "/", "-"))
	}

	return nil
}

func exportEnvVar(alloc registry.Allocation) string {
	if alloc.EnvVar != "" {
		return alloc.EnvVar
	}
	return discovery.DefaultEnvVar(alloc.Service)
}
