package sysports

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePortsSSOutput(t *testing.T) {
	out := "LISTEN 0      128          0.0.0.0:5432       0.0.0.0:*\n" +
		"LISTEN 0      511        127.0.0.1:6379       0.0.0.0:*\n" +
		"LISTEN 0      4096            [::]:22             [::]:*\n"

	ports := parsePorts(out, false)

	assert.True(t, ports[5432])
	assert.True(t, ports[6379])
	assert.True(t, ports[22])
	assert.Len(t, ports, 3)
}

func TestParsePortsLsofOutput(t *testing.T) {
	out := "postgres  1234 dev   5u  IPv4 0x1 0t0 TCP *:5432 (LISTEN)\n" +
		"redis-ser 5678 dev   6u  IPv4 0x2 0t0 TCP 127.0.0.1:6379 (LISTEN)\n"

	ports := parsePorts(out, false)

	assert.True(t, ports[5432])
	assert.True(t, ports[6379])
}

func TestParsePortsNetstatFiltersStates(t *testing.T) {
	out := "tcp        0      0 0.0.0.0:5432            0.0.0.0:*               LISTEN\n" +
		"tcp        0      0 10.0.0.5:45210          151.101.1.1:443         ESTABLISHED\n"

	ports := parsePorts(out, true)

	assert.True(t, ports[5432])
	assert.False(t, ports[45210], "established connections are not listeners")
}

func TestParsePortsEmptyOutput(t *testing.T) {
	assert.Empty(t, parsePorts("", false))
	assert.Empty(t, parsePorts("garbage without any address\n", false))
}

func TestIsBindableFreePort(t *testing.T) {
	scanner := NewScanner()

	// Grab a free port from the kernel, release it, then check it
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	assert.True(t, scanner.IsBindable(port))
}

func TestIsBindableBusyPort(t *testing.T) {
	scanner := NewScanner()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()

	port := listener.Addr().(*net.TCPAddr).Port
	assert.False(t, scanner.IsBindable(port), fmt.Sprintf("port %d is held by the test listener", port))
}
