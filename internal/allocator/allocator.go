// Package allocator decides which port a service should use inside a
// development context.
//
// The decision procedure is stateless and never persists anything: the
// caller commits a chosen port through the registry explicitly. Keeping the
// decision and the commit separate lets callers probe a preferred port
// without side effects.
package allocator

import (
	"fmt"

	"github.com/jpoutrin/portman-cli/internal/registry"
)

// Probe is the capability interface for host port inspection, injected via
// the constructor so tests can substitute a fake without touching live
// state. Implementations degrade to empty/false on failure rather than
// returning errors.
type Probe interface {
	ListeningPorts() map[int]bool
	IsBindable(port int) bool
}

// ExhaustedError indicates no port satisfied the availability constraints
// in the service's range nor the default range
type ExhaustedError struct {
	Service string
	Ranges  []registry.PortRange
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("no available port for service %q", e.Service)
	for i, r := range e.Ranges {
		if i == 0 {
			msg += fmt.Sprintf(" (tried range %d-%d", r.Start, r.End)
		} else {
			msg += fmt.Sprintf(", %d-%d", r.Start, r.End)
		}
	}
	if len(e.Ranges) > 0 {
		msg += ")"
	}
	return msg
}

// Allocator selects ports with machine-wide uniqueness, combining registry
// claims with live host state
type Allocator struct {
	reg   *registry.Registry
	probe Probe
}

// New creates an Allocator backed by the given registry and port probe
func New(reg *registry.Registry, probe Probe) *Allocator {
	return &Allocator{reg: reg, probe: probe}
}

// Allocate returns the port the service should use in the given context.
//
// Strategy:
//  1. An existing allocation for (context, service) is touched and reused,
//     so repeated calls stay stable for the allocation's lifetime.
//  2. Otherwise the unavailable set is registry ports plus listening ports.
//  3. A preferred port (preferredPort > 0) that is not unavailable and
//     passes the bind check is returned as-is.
//  4. Otherwise the service's configured range is scanned in ascending
//     order; lowest free and bindable port wins.
//  5. If the service range is exhausted, the "default" range is scanned the
//     same way (unless the service is itself "default").
//
// Returns an ExhaustedError when every candidate is taken. Nothing is
// persisted; the caller creates the allocation in the registry.
func (a *Allocator) Allocate(service, contextHash string, preferredPort int) (int, error) {
	existing, err := a.reg.GetAllocation(contextHash, service)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		if err := a.reg.Touch(existing.ID); err != nil {
			return 0, err
		}
		return existing.Port, nil
	}

	unavailable, err := a.unavailablePorts()
	if err != nil {
		return 0, err
	}

	if preferredPort > 0 && a.isAvailable(preferredPort, unavailable) {
		return preferredPort, nil
	}

	serviceRange, err := a.reg.GetRange(service)
	if err != nil {
		return 0, err
	}

	for port := serviceRange.Start; port <= serviceRange.End; port++ {
		if a.isAvailable(port, unavailable) {
			return port, nil
		}
	}

	tried := []registry.PortRange{serviceRange}

	if service != "default" {
		defaultRange, err := a.reg.GetRange("default")
		if err != nil {
			return 0, err
		}
		for port := defaultRange.Start; port <= defaultRange.End; port++ {
			if a.isAvailable(port, unavailable) {
				return port, nil
			}
		}
		tried = append(tried, defaultRange)
	}

	return 0, &ExhaustedError{Service: service, Ranges: tried}
}

// unavailablePorts combines registry claims with live listening ports. The
// registry only knows ports it allocated; the host may have other processes
// bound to ports it never tracked.
func (a *Allocator) unavailablePorts() (map[int]bool, error) {
	ports, err := a.reg.AllAllocatedPorts()
	if err != nil {
		return nil, err
	}
	for port := range a.probe.ListeningPorts() {
		ports[port] = true
	}
	return ports, nil
}

// isAvailable filters by set membership first to avoid needless bind
// syscalls, then closes the race window between "appears free" and
// "actually free" with a live bind attempt.
func (a *Allocator) isAvailable(port int, unavailable map[int]bool) bool {
	if unavailable[port] {
		return false
	}
	return a.probe.IsBindable(port)
}
