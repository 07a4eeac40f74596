package model

import (
	"context"
	"net"
)

// SecurityLayer opens the listener the gRPC server accepts on, plain or TLS.
type SecurityLayer interface {
	Listen(protocol, addr string) (net.Listener, error)
}

// Server is a long-running transport started by main.
type Server interface {
	Start(securityLayer SecurityLayer) error
	// Stop drains in-flight calls until ctx is done.
	Stop(ctx context.Context) error
	Address() string
}
