package network

import (
	"context"
	"crypto/tls"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/quic-go/quic-go"
)

// QUIC driver. Logical streams are QUIC bidirectional streams on one
// connection; the library handles framing, flow control and keepalive.

const (
	quicKeepAlivePeriod = 10 * time.Second
	quicMaxIdleTimeout  = 60 * time.Second

	// noStreamErrorCode signals orderly teardown of the read side.
	noStreamErrorCode quic.StreamErrorCode = 0
)

func quicConfig() *quic.Config {
	return &quic.Config{
		KeepAlivePeriod: quicKeepAlivePeriod,
		MaxIdleTimeout:  quicMaxIdleTimeout,
	}
}

// quicStream completes the read side on Close so neither peer leaks
// stream state.
type quicStream struct {
	quic.Stream
}

func (s *quicStream) Close() error {
	s.CancelRead(noStreamErrorCode)
	return s.Stream.Close()
}

var (
	_ MuxConn   = (*QUICConn)(nil)
	_ MuxServer = (*QUICConn)(nil)
)

// QUICConn adapts one QUIC connection to the mux contract, on either
// side of the connection.
type QUICConn struct {
	conn quic.Connection
}

// NewQUICConn wraps an established QUIC connection.
func NewQUICConn(conn quic.Connection) *QUICConn {
	return &QUICConn{conn: conn}
}

// DialQUIC dials addr and returns the client mux. tlsConf must advertise
// the protocol's ALPN token.
func DialQUIC(ctx context.Context, addr string, tlsConf *tls.Config) (*QUICConn, error) {
	if len(tlsConf.NextProtos) == 0 {
		tlsConf = tlsConf.Clone()
		tlsConf.NextProtos = []string{ALPN}
	}
	conn, err := quic.DialAddr(ctx, addr, tlsConf, quicConfig())
	if err != nil {
		return nil, errors.Wrap(err, "quic dial")
	}
	return &QUICConn{conn: conn}, nil
}

// ListenQUIC starts a QUIC listener on addr.
func ListenQUIC(addr string, tlsConf *tls.Config) (*quic.Listener, error) {
	if len(tlsConf.NextProtos) == 0 {
		tlsConf = tlsConf.Clone()
		tlsConf.NextProtos = []string{ALPN}
	}
	ln, err := quic.ListenAddr(addr, tlsConf, quicConfig())
	if err != nil {
		return nil, errors.Wrap(err, "quic listen")
	}
	return ln, nil
}

func (c *QUICConn) OpenStream(ctx context.Context) (io.ReadWriteCloser, error) {
	stream, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "quic open stream")
	}
	return &quicStream{Stream: stream}, nil
}

func (c *QUICConn) Serve(ctx context.Context, handler StreamHandler) error {
	for {
		stream, err := c.conn.AcceptStream(ctx)
		if err != nil {
			// Orderly close and context cancellation both end Serve
			// without error.
			var appErr *quic.ApplicationError
			if errors.As(err, &appErr) || ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "quic accept stream")
		}
		go handler(&quicStream{Stream: stream})
	}
}

func (c *QUICConn) Close() error {
	return c.conn.CloseWithError(0, "")
}
