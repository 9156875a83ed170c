package network

import (
	"context"
	"io"
)

// MuxConn multiplexes many independent logical streams over one secure
// transport. Implemented by the yamux driver (over any reliable byte
// stream) and the QUIC driver (native streams).
type MuxConn interface {
	// OpenStream opens an outbound logical stream. It may suspend and
	// fails when the connection itself has failed or ctx is done.
	OpenStream(ctx context.Context) (io.ReadWriteCloser, error)
	// Close terminates the connection and every logical stream on it.
	Close() error
}

// StreamHandler is invoked once per inbound logical stream, on its own
// goroutine.
type StreamHandler func(stream io.ReadWriteCloser)

// MuxServer is the server half of a mux connection: it dispatches
// inbound logical streams to a handler.
type MuxServer interface {
	// Serve accepts inbound streams until the connection fails or ctx is
	// canceled. It returns nil on orderly connection shutdown.
	Serve(ctx context.Context, handler StreamHandler) error
	Close() error
}
