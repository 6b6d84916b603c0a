package registry

import "fmt"

// ConflictError indicates a uniqueness violation on create: either the port
// is already claimed, or the (context, service) pair already has a record.
// Typically the result of two invocations racing for the same port; the
// caller decides whether to re-read and treat the port as booked.
type ConflictError struct {
	ContextHash string
	Service     string
	Port        int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("allocation conflict for service %q in context %s (port %d): port or context+service already claimed",
		e.Service, e.ContextHash, e.Port)
}

// InvalidRangeError indicates a port range whose start is not below its end
type InvalidRangeError struct {
	Service string
	Start   int
	End     int
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid port range %d-%d for service %q: start must be less than end",
		e.Start, e.End, e.Service)
}
