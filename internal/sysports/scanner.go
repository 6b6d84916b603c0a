// Package sysports reports TCP ports currently in use on the host.
//
// Listening ports are discovered by shelling out to host tools (ss, then
// lsof, then netstat) because no portable API exposes the full listen table.
// Every probe degrades to an empty result rather than failing: the allocator
// still holds registry knowledge and closes the gap with a live bind check.
package sysports

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	ssTimeout      = 5 * time.Second
	lsofTimeout    = 10 * time.Second
	netstatTimeout = 10 * time.Second
)

// portPattern extracts the port from an address column like
// "127.0.0.1:5432" or "*:5432" followed by whitespace.
var portPattern = regexp.MustCompile(`:(\d+)\s`)

// Scanner probes the host for ports in use
type Scanner struct{}

// NewScanner creates a new Scanner
func NewScanner() *Scanner {
	return &Scanner{}
}

// ListeningPorts returns all TCP ports currently in LISTEN state.
//
// Tries ss first (Linux, fast), then lsof (macOS/Linux), then netstat
// (universal). A host where none of the tools work yields an empty set.
func (s *Scanner) ListeningPorts() map[int]bool {
	ports := s.scanSS()
	if len(ports) == 0 {
		ports = s.scanLsof()
	}
	if len(ports) == 0 {
		ports = s.scanNetstat()
	}
	return ports
}

// IsBindable tests whether a port can actually be bound on the loopback
// interface. The listener is closed immediately; only availability matters.
func (s *Scanner) IsBindable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	_ = listener.Close()
	return true
}

// scanSS runs "ss -tlnH": TCP, listening, numeric, no header
func (s *Scanner) scanSS() map[int]bool {
	out, err := runWithTimeout(ssTimeout, "ss", "-tlnH")
	if err != nil {
		return map[int]bool{}
	}
	return parsePorts(out, false)
}

func (s *Scanner) scanLsof() map[int]bool {
	out, err := runWithTimeout(lsofTimeout, "lsof", "-iTCP", "-sTCP:LISTEN", "-P", "-n")
	if err != nil {
		return map[int]bool{}
	}
	// Skip the header line
	if idx := strings.IndexByte(out, '\n'); idx >= 0 {
		out = out[idx+1:]
	}
	return parsePorts(out, false)
}

func (s *Scanner) scanNetstat() map[int]bool {
	out, err := runWithTimeout(netstatTimeout, "netstat", "-tln")
	if err != nil {
		return map[int]bool{}
	}
	return parsePorts(out, true)
}

func runWithTimeout(timeout time.Duration, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// parsePorts extracts port numbers from tool output, one candidate per line.
// When requireListen is set, lines without the LISTEN keyword are skipped
// (netstat mixes states in its output).
func parsePorts(out string, requireListen bool) map[int]bool {
	ports := make(map[int]bool)
	for _, line := range strings.Split(out, "\n") {
		if requireListen && !strings.Contains(line, "LISTEN") {
			continue
		}
		match := portPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		port, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		ports[port] = true
	}
	return ports
}
