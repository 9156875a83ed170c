// Package kv is a networked, secure, multiplexed key-value and pub/sub
// service. Clients issue commands over long-lived connections carrying
// many concurrent logical streams; each stream exchanges length-prefixed
// protobuf messages with optional gzip compression. Commands execute
// synchronously against a pluggable storage backend or open a
// server-pushed event stream.
package kv

import (
	"context"
	"io"
	"net"

	"github.com/cockroachdb/errors"
	"github.com/quic-go/quic-go"
	"github.com/rs/zerolog"
	"go4.org/syncutil"

	"github.com/caelansar/kv/network"
	"github.com/caelansar/kv/service"
)

// maxPendingHandshakes bounds concurrent secure-transport handshakes so
// an accept burst cannot pile up unbounded handshake state.
const maxPendingHandshakes = 256

// Server accepts connections, terminates the secure transport, demuxes
// logical streams and serves each with the dispatcher.
type Server struct {
	svc  *service.Service
	log  zerolog.Logger
	gate *syncutil.Gate
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server logger; the default is a no-op logger.
func WithServerLogger(log zerolog.Logger) ServerOption {
	return func(s *Server) { s.log = log }
}

// NewServer returns a server executing commands with svc.
func NewServer(svc *service.Service, opts ...ServerOption) *Server {
	s := &Server{
		svc:  svc,
		log:  zerolog.Nop(),
		gate: syncutil.NewGate(maxPendingHandshakes),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeTCP accepts raw connections from ln, upgrades each through
// acceptor and serves yamux-multiplexed streams on it. It returns when
// ctx is canceled or the listener fails.
func (s *Server) ServeTCP(ctx context.Context, ln net.Listener, acceptor network.Acceptor) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errors.Wrap(err, "accept")
		}
		s.log.Info().Stringer("addr", conn.RemoteAddr()).Msg("client connected")
		go s.handleConn(ctx, conn, acceptor)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn, acceptor network.Acceptor) {
	remote := conn.RemoteAddr()

	s.gate.Start()
	secure, err := acceptor.Accept(ctx, conn)
	s.gate.Done()
	if err != nil {
		s.log.Warn().Err(err).Stringer("addr", remote).Msg("secure handshake failed")
		return
	}
	mux, err := network.NewYamuxServer(secure, s.log)
	if err != nil {
		s.log.Warn().Err(err).Stringer("addr", remote).Msg("mux setup failed")
		secure.Close()
		return
	}
	if err := mux.Serve(ctx, s.handleStream); err != nil {
		s.log.Warn().Err(err).Stringer("addr", remote).Msg("connection failed")
	}
	s.log.Info().Stringer("addr", remote).Msg("client disconnected")
}

// ServeQUIC accepts QUIC connections from ln; every bidirectional stream
// is one logical stream.
func (s *Server) ServeQUIC(ctx context.Context, ln *quic.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return nil
			}
			return errors.Wrap(err, "quic accept")
		}
		s.log.Info().Stringer("addr", conn.RemoteAddr()).Msg("client connected")
		qc := network.NewQUICConn(conn)
		go func() {
			if err := qc.Serve(ctx, s.handleStream); err != nil {
				s.log.Warn().Err(err).Msg("connection failed")
			}
		}()
	}
}

func (s *Server) handleStream(stream io.ReadWriteCloser) {
	if err := network.NewServerStream(stream, s.svc, s.log).Process(); err != nil {
		s.log.Debug().Err(err).Msg("stream closed with error")
	}
}
