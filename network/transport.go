package network

import (
	"context"
	"net"
)

// ALPN is the application protocol token advertised by both TLS and QUIC.
const ALPN = "kv"

// Acceptor upgrades an accepted raw connection into an authenticated
// encrypted one. The returned connection reads and writes plaintext; the
// rest of the stack does not know which transport is in use.
type Acceptor interface {
	Accept(ctx context.Context, conn net.Conn) (net.Conn, error)
}

// Connector is the client-side counterpart of Acceptor.
type Connector interface {
	Connect(ctx context.Context, conn net.Conn) (net.Conn, error)
}
