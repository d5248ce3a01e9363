package sender

import (
	"net"
)

// resolveListener binds to the given "host:port" address. A port of 0 (or an
// empty port) picks a free one, which the returned listener reports.
func resolveListener(addr string) (net.Listener, error) {
	a, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	return net.ListenTCP("tcp", a)
}
