package allocator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jpoutrin/portman-cli/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProbe is a test double for the host port probe. Ports in listening
// are reported as in use; ports in unbindable fail the bind check.
type fakeProbe struct {
	listening  map[int]bool
	unbindable map[int]bool
}

func (p *fakeProbe) ListeningPorts() map[int]bool {
	if p.listening == nil {
		return map[int]bool{}
	}
	return p.listening
}

func (p *fakeProbe) IsBindable(port int) bool {
	return !p.unbindable[port]
}

func openTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func persist(t *testing.T, reg *registry.Registry, contextHash, service string, port int) {
	t.Helper()
	_, err := reg.CreateAllocation(registry.Allocation{
		ContextHash: contextHash,
		ContextPath: "/test/" + contextHash,
		Service:     service,
		Port:        port,
	})
	require.NoError(t, err)
}

// An empty registry with no busy host ports hands out the lowest port of
// the service's range.
func TestAllocateFirstPortInRange(t *testing.T) {
	reg := openTestRegistry(t)
	alloc := New(reg, &fakeProbe{})

	port, err := alloc.Allocate("postgres", "ctxA", 0)
	require.NoError(t, err)
	assert.Equal(t, 5432, port)
}

// A persisted allocation is reused on every subsequent call, and its access
// timestamp advances.
func TestAllocateStableReuse(t *testing.T) {
	reg := openTestRegistry(t)
	alloc := New(reg, &fakeProbe{})

	port, err := alloc.Allocate("postgres", "ctxA", 0)
	require.NoError(t, err)
	persist(t, reg, "ctxA", "postgres", port)

	before, err := reg.GetAllocation("ctxA", "postgres")
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond) // timestamps have second resolution

	again, err := alloc.Allocate("postgres", "ctxA", 0)
	require.NoError(t, err)
	assert.Equal(t, port, again)

	after, err := reg.GetAllocation("ctxA", "postgres")
	require.NoError(t, err)
	assert.True(t, after.LastAccessed.After(before.LastAccessed),
		"allocate should touch the existing allocation")
}

func TestAllocateDifferentContexts(t *testing.T) {
	reg := openTestRegistry(t)
	alloc := New(reg, &fakeProbe{})

	port1, err := alloc.Allocate("postgres", "ctx1", 0)
	require.NoError(t, err)
	persist(t, reg, "ctx1", "postgres", port1)

	port2, err := alloc.Allocate("postgres", "ctx2", 0)
	require.NoError(t, err)

	assert.NotEqual(t, port1, port2)
	assert.Equal(t, 5433, port2, "scan is ascending and deterministic")
}

func TestAllocatePreferredPort(t *testing.T) {
	reg := openTestRegistry(t)
	alloc := New(reg, &fakeProbe{})

	port, err := alloc.Allocate("postgres", "ctxA", 5450)
	require.NoError(t, err)
	assert.Equal(t, 5450, port)
}

// A preferred port claimed by another allocation is skipped; the result
// falls back into the service range.
func TestAllocatePreferredPortClaimed(t *testing.T) {
	reg := openTestRegistry(t)
	alloc := New(reg, &fakeProbe{})

	persist(t, reg, "other", "redis", 5450)

	port, err := alloc.Allocate("postgres", "ctxA", 5450)
	require.NoError(t, err)
	assert.NotEqual(t, 5450, port)
	assert.GreaterOrEqual(t, port, 5432)
	assert.LessOrEqual(t, port, 5499)
}

// A preferred port that fails the live bind check is skipped too.
func TestAllocatePreferredPortUnbindable(t *testing.T) {
	reg := openTestRegistry(t)
	alloc := New(reg, &fakeProbe{unbindable: map[int]bool{5450: true}})

	port, err := alloc.Allocate("postgres", "ctxA", 5450)
	require.NoError(t, err)
	assert.NotEqual(t, 5450, port)
}

// Registry claims and live listening ports are both skipped during the
// ascending scan.
func TestAllocateSkipsClaimedAndListeningPorts(t *testing.T) {
	reg := openTestRegistry(t)
	persist(t, reg, "ctxX", "postgres", 5432)

	alloc := New(reg, &fakeProbe{
		listening:  map[int]bool{5433: true, 5434: true},
		unbindable: map[int]bool{5433: true, 5434: true},
	})

	port, err := alloc.Allocate("postgres", "ctxY", 0)
	require.NoError(t, err)
	assert.Equal(t, 5435, port)
}

// Once a service's configured range is fully claimed, allocation falls back
// to the default range.
func TestAllocateFallbackToDefaultRange(t *testing.T) {
	reg := openTestRegistry(t)
	require.NoError(t, reg.SetRange("custom", 7000, 7002))

	alloc := New(reg, &fakeProbe{})

	for i, ctx := range []string{"ctx1", "ctx2", "ctx3"} {
		port, err := alloc.Allocate("custom", ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 7000+i, port)
		persist(t, reg, ctx, "custom", port)
	}

	port, err := alloc.Allocate("custom", "ctx4", 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, port, 10000)
	assert.LessOrEqual(t, port, 19999)
}

func TestAllocateExhausted(t *testing.T) {
	reg := openTestRegistry(t)
	require.NoError(t, reg.SetRange("custom", 7000, 7001))

	persist(t, reg, "ctx1", "custom", 7000)
	persist(t, reg, "ctx2", "custom", 7001)

	// Nothing in the default range is bindable either
	unbindable := make(map[int]bool)
	for port := 10000; port <= 19999; port++ {
		unbindable[port] = true
	}

	alloc := New(reg, &fakeProbe{unbindable: unbindable})

	_, err := alloc.Allocate("custom", "ctx3", 0)
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "custom", exhausted.Service)
	require.Len(t, exhausted.Ranges, 2, "service range and default range were both tried")
	assert.Equal(t, 7000, exhausted.Ranges[0].Start)
	assert.Equal(t, 10000, exhausted.Ranges[1].Start)
	assert.Contains(t, err.Error(), "custom")
	assert.Contains(t, err.Error(), "7000-7001")
}

// The "default" service itself gets no second scan of its own range.
func TestAllocateDefaultServiceNoDoubleScan(t *testing.T) {
	reg := openTestRegistry(t)
	require.NoError(t, reg.SetRange("default", 9000, 9001))

	persist(t, reg, "ctx1", "web", 9000)
	persist(t, reg, "ctx2", "api", 9001)

	alloc := New(reg, &fakeProbe{})

	_, err := alloc.Allocate("default", "ctx3", 0)
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Ranges, 1)
}

// A degraded probe (no listening data) still allocates correctly from
// registry knowledge alone.
func TestAllocateWithDegradedProbe(t *testing.T) {
	reg := openTestRegistry(t)
	persist(t, reg, "ctxX", "postgres", 5432)

	alloc := New(reg, &fakeProbe{})

	port, err := alloc.Allocate("postgres", "ctxY", 0)
	require.NoError(t, err)
	assert.Equal(t, 5433, port)
}
