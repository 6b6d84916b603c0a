package registry

import "time"

// Allocation represents one persisted port claim for a service in a context
type Allocation struct {
	ID            int
	ContextHash   string
	ContextPath   string
	ContextLabel  string
	Service       string
	Port          int
	ContainerPort int    // internal container port, 0 if none
	EnvVar        string // environment variable name, "" if none
	Source        string // origin of the allocation, e.g. "manual" or a compose file path
	CreatedAt     time.Time
	LastAccessed  time.Time
}

// PortRange is the inclusive [Start, End] window scanned for a service
type PortRange struct {
	Service string
	Start   int
	End     int
}
