package scalesock

import "strings"

// address is a parsed transport://host-part endpoint address.
type address struct {
	scheme string
	host   string
}

// parseAddress splits addr into its transport scheme and host-part. Only
// the inproc scheme is usable against a Socket built by this package;
// tcp/ipc/ws are recognized (so callers get ErrInval rather than a
// confusing "unknown scheme") but have no transport implementation here —
// they are treated as external collaborators per the library's scope.
func parseAddress(addr string) (address, error) {
	i := strings.Index(addr, "://")
	if i < 0 {
		return address{}, ErrInval
	}
	scheme, host := addr[:i], addr[i+3:]
	if host == "" {
		return address{}, ErrInval
	}
	switch scheme {
	case "inproc":
		return address{scheme: scheme, host: host}, nil
	case "tcp", "ipc", "ws":
		return address{}, ErrInval
	default:
		return address{}, ErrInval
	}
}
