package cmd

import (
	"fmt"

	"github.com/jpoutrin/portman-cli/internal/allocator"
	"github.com/jpoutrin/portman-cli/internal/devctx"
	"github.com/jpoutrin/portman-cli/internal/registry"
	"github.com/jpoutrin/portman-cli/internal/sysports"
)

// openRegistry opens the registry at its default location
func openRegistry() (*registry.Registry, error) {
	reg, err := registry.New()
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	return reg, nil
}

// currentContext detects the context for the working directory
func currentContext() (*devctx.Context, error) {
	ctx, err := devctx.Detect("")
	if err != nil {
		return nil, fmt.Errorf("failed to detect context: %w", err)
	}
	return ctx, nil
}

// newAllocator wires the registry to the live system port scanner
func newAllocator(reg *registry.Registry) *allocator.Allocator {
	return allocator.New(reg, sysports.NewScanner())
}
