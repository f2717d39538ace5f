package cluster

import (
	"fmt"
	"strconv"
	"strings"
)

// Host is an (address, port) pair identifying a single deployment member.
// It is a plain comparable struct so it can be used directly as a map key
// and compared with ==: this package routes by capability, not by key, so
// it has no need for a hashed slot scheme.
type Host struct {
	Address string
	Port    uint16
}

func (h Host) String() string {
	return fmt.Sprintf("%s:%d", h.Address, h.Port)
}

// ParseHost parses a "host:port" string into a Host. A malformed entry
// returns an error; callers that fold handshake-reported peers into the
// registry are expected to swallow this error so a single bad entry
// doesn't poison the sweep.
func ParseHost(s string) (Host, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return Host{}, fmt.Errorf("dbcluster: host %q missing port", s)
	}
	addr, portStr := s[:idx], s[idx+1:]
	if addr == "" {
		return Host{}, fmt.Errorf("dbcluster: host %q missing address", s)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Host{}, fmt.Errorf("dbcluster: host %q has bad port: %w", s, err)
	}
	return Host{Address: addr, Port: uint16(port)}, nil
}
