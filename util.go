package chord

import (
	"fmt"
	"net"
)

// parseHostPort splits "host:port" into its parts, validating the port
// is numeric (spec §6: process exit conditions include a missing or
// malformed host/port).
func parseHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("chord: invalid address %q: %w", addr, err)
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return "", 0, fmt.Errorf("chord: invalid port in address %q: %w", addr, err)
	}
	return host, port, nil
}
