// Package pruner retires allocations whose backing context no longer
// exists, or whose data has gone stale.
package pruner

import (
	"fmt"
	"os"
	"time"

	"github.com/jpoutrin/portman-cli/internal/registry"
)

// PathChecker reports whether a context path still exists on disk
type PathChecker interface {
	Exists(path string) bool
}

// OSPathChecker checks path existence against the local filesystem
type OSPathChecker struct{}

// Exists reports whether the path exists
func (OSPathChecker) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Result describes the outcome of a prune pass
type Result struct {
	Removed []registry.Allocation
	Kept    []registry.Allocation
	Errors  []string
}

// Pruner removes orphaned and stale port allocations
type Pruner struct {
	reg   *registry.Registry
	paths PathChecker
}

// New creates a Pruner backed by the given registry and path checker
func New(reg *registry.Registry, paths PathChecker) *Pruner {
	return &Pruner{reg: reg, paths: paths}
}

// Prune removes allocations whose context path no longer exists.
//
// Each orphan is deleted individually; a deletion failure is recorded in
// Errors and does not abort the remaining records. With dryRun set, orphans
// are reported in Removed but nothing is deleted.
//
// An allocation whose path exists is kept even if the context's derived
// identity has since changed — a different branch is a different context,
// not an orphan.
func (p *Pruner) Prune(dryRun bool) (*Result, error) {
	allocations, err := p.reg.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}

	result := &Result{}

	for _, alloc := range allocations {
		if p.paths.Exists(alloc.ContextPath) {
			result.Kept = append(result.Kept, alloc)
			continue
		}

		if !dryRun {
			if err := p.reg.DeleteByID(alloc.ID); err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("%s: %v", alloc.ContextLabel, err))
				continue
			}
		}
		result.Removed = append(result.Removed, alloc)
	}

	return result, nil
}

// PruneStale removes allocations not accessed in the last N days,
// irrespective of whether the context path still exists. Same per-record,
// non-aborting deletion discipline as Prune.
func (p *Pruner) PruneStale(days int, dryRun bool) (*Result, error) {
	stale, err := p.reg.ListStale(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale allocations: %w", err)
	}

	result := &Result{}

	for _, alloc := range stale {
		if !dryRun {
			if err := p.reg.DeleteByID(alloc.ID); err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("%s: %v", alloc.ContextLabel, err))
				continue
			}
		}
		result.Removed = append(result.Removed, alloc)
	}

	return result, nil
}
