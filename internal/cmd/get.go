package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/jpoutrin/portman-cli/internal/devctx"
	"github.com/jpoutrin/portman-cli/internal/discovery"
	"github.com/jpoutrin/portman-cli/internal/registry"
	"github.com/spf13/cobra"
)

// NewGetCmd creates the get command
func NewGetCmd() *cobra.Command {
	var (
		quiet  bool
		noBook bool
	)

	cmd := &cobra.Command{
		Use:   "get <service>",
		Short: "Get the port for a service in the current context",
		Long: `Gets the allocated port for a service. If no allocation exists, a port is
booked automatically unless --no-book is given.

Examples:
  portman get postgres
  portman get redis -q
  PGPORT=$(portman get postgres -q)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(args[0], quiet, noBook)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Output only the port number")
	cmd.Flags().BoolVar(&noBook, "no-book", false, "Do not allocate if the service has no port")

	return cmd
}

func runGet(service string, quiet, noBook bool) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	ctx, err := currentContext()
	if err != nil {
		return err
	}

	alloc, err := reg.GetAllocation(ctx.Hash, service)
	if err != nil {
		return err
	}

	var port int
	switch {
	case alloc != nil:
		if err := reg.Touch(alloc.ID); err != nil {
			return err
		}
		port = alloc.Port
	case noBook:
		return fmt.Errorf("no port allocated for %q in current context", service)
	default:
		port, err = bookService(reg, ctx, service, 0, "manual")
		if err != nil {
			return err
		}
	}

	if quiet {
		fmt.Println(port)
	} else {
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s: %d\n", green(service), port)
	}

	return nil
}

// bookService allocates a port and persists the allocation. A conflict
// raised by a concurrent booker is resolved by re-reading the registry and
// treating the service as already booked.
func bookService(reg *registry.Registry, ctx *devctx.Context, service string, preferredPort int, source string) (int, error) {
	alloc := newAllocator(reg)

	serviceType := discovery.InferServiceType(service, "")
	port, err := alloc.Allocate(serviceType, ctx.Hash, preferredPort)
	if err != nil {
		return 0, err
	}

	_, err = reg.CreateAllocation(registry.Allocation{
		ContextHash:  ctx.Hash,
		ContextPath:  ctx.Path,
		ContextLabel: ctx.Label,
		Service:      service,
		Port:         port,
		Source:       source,
	})
	if err != nil {
		var conflict *registry.ConflictError
		if errors.As(err, &conflict) {
			existing, getErr := reg.GetAllocation(ctx.Hash, service)
			if getErr == nil && existing != nil {
				return existing.Port, nil
			}
		}
		return 0, err
	}

	return port, nil
}
