package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/jpoutrin/portman-cli/internal/devctx"
	"github.com/jpoutrin/portman-cli/internal/discovery"
	"github.com/jpoutrin/portman-cli/internal/registry"
	"github.com/spf13/cobra"
)

// NewBookCmd creates the book command
func NewBookCmd() *cobra.Command {
	var (
		port        int
		auto        bool
		composeFile string
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "book [service]",
		Short: "Reserve ports for services in the current context",
		Long: `Books a port for a service, or discovers and books every service from a
docker-compose file with --auto.

Examples:
  portman book postgres
  portman book postgres --port 5433
  portman book --auto
  portman book --auto --compose-file docker-compose.prod.yml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := ""
			if len(args) > 0 {
				service = args[0]
			}
			if !auto && service == "" {
				return fmt.Errorf("either specify a service or use --auto")
			}
			if auto {
				return runBookAuto(composeFile, quiet)
			}
			return runBook(service, port, quiet)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Preferred port")
	cmd.Flags().BoolVar(&auto, "auto", false, "Auto-discover services from docker-compose.yml")
	cmd.Flags().StringVarP(&composeFile, "compose-file", "f", "", "Path to docker-compose file")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Minimal output")

	return cmd
}

func runBook(service string, preferredPort int, quiet bool) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	ctx, err := currentContext()
	if err != nil {
		return err
	}

	existing, err := reg.GetAllocation(ctx.Hash, service)
	if err != nil {
		return err
	}
	if existing != nil {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("%s %d\n", yellow(service+" already allocated:"), existing.Port)
		return nil
	}

	allocated, err := bookService(reg, ctx, service, preferredPort, "manual")
	if err != nil {
		return err
	}

	if quiet {
		fmt.Println(allocated)
	} else {
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s: %d\n", green(service), allocated)
	}

	return nil
}

func runBookAuto(composeFile string, quiet bool) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	ctx, err := currentContext()
	if err != nil {
		return err
	}

	services, err := discovery.DiscoverServices("", composeFile)
	if err != nil {
		return err
	}
	if len(services) == 0 {
		fileDesc := composeFile
		if fileDesc == "" {
			fileDesc = "docker-compose.yml"
		}
		fmt.Printf("No services discovered from %s\n", fileDesc)
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	for _, svc := range services {
		existing, err := reg.GetAllocation(ctx.Hash, svc.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			if !quiet {
				fmt.Println(dim(fmt.Sprintf("%s: %d (already allocated)", svc.Name, existing.Port)))
			}
			continue
		}

		allocated, err := bookDiscovered(reg, ctx, svc)
		if err != nil {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("Error allocating "+svc.Name+":"), err)
			continue
		}

		if !quiet {
			fmt.Printf("%s: %d\n", green(svc.Name), allocated)
		}
	}

	return nil
}

// bookDiscovered allocates and persists a port for one discovered service,
// carrying over its container port, env var and source file
func bookDiscovered(reg *registry.Registry, ctx *devctx.Context, svc discovery.Service) (int, error) {
	alloc := newAllocator(reg)

	serviceType := discovery.InferServiceType(svc.Name, "")
	port, err := alloc.Allocate(serviceType, ctx.Hash, 0)
	if err != nil {
		return 0, err
	}

	_, err = reg.CreateAllocation(registry.Allocation{
		ContextHash:   ctx.Hash,
		ContextPath:   ctx.Path,
		ContextLabel:  ctx.Label,
		Service:       svc.Name,
		Port:          port,
		ContainerPort: svc.ContainerPort,
		EnvVar:        svc.EnvVar,
		Source:        svc.Source,
	})
	if err != nil {
		return 0, err
	}

	return port, nil
}
