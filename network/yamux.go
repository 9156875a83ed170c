package network

import (
	"context"
	"io"
	"net"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/yamux"
	"github.com/rs/zerolog"

	"github.com/caelansar/kv/internal/logging"
)

// Yamux driver. One session runs over the secure byte stream; logical
// streams are yamux streams. Receive-window credit is returned as the
// application reads, so slow consumers exert backpressure on their own
// streams without stalling the connection.

func yamuxConfig(log zerolog.Logger) *yamux.Config {
	cfg := yamux.DefaultConfig()
	cfg.Logger = logging.NewZeroLogAdapter(log, zerolog.DebugLevel)
	cfg.LogOutput = nil
	return cfg
}

var (
	_ MuxConn   = (*YamuxClient)(nil)
	_ MuxServer = (*YamuxServer)(nil)
)

// YamuxClient is the client side of a yamux session.
type YamuxClient struct {
	session *yamux.Session
}

// NewYamuxClient starts a client session over conn.
func NewYamuxClient(conn net.Conn, log zerolog.Logger) (*YamuxClient, error) {
	session, err := yamux.Client(conn, yamuxConfig(log))
	if err != nil {
		return nil, errors.Wrap(err, "yamux client")
	}
	return &YamuxClient{session: session}, nil
}

func (c *YamuxClient) OpenStream(ctx context.Context) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stream, err := c.session.OpenStream()
	if err != nil {
		return nil, errors.Wrap(err, "yamux open stream")
	}
	return stream, nil
}

func (c *YamuxClient) Close() error {
	return c.session.Close()
}

// YamuxServer accepts inbound logical streams on a server session.
type YamuxServer struct {
	session *yamux.Session
}

// NewYamuxServer starts a server session over conn.
func NewYamuxServer(conn net.Conn, log zerolog.Logger) (*YamuxServer, error) {
	session, err := yamux.Server(conn, yamuxConfig(log))
	if err != nil {
		return nil, errors.Wrap(err, "yamux server")
	}
	return &YamuxServer{session: session}, nil
}

func (s *YamuxServer) Serve(ctx context.Context, handler StreamHandler) error {
	defer s.session.Close()
	go func() {
		<-ctx.Done()
		s.session.Close()
	}()
	for {
		stream, err := s.session.AcceptStream()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, yamux.ErrSessionShutdown) || ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "yamux accept stream")
		}
		go handler(stream)
	}
}

func (s *YamuxServer) Close() error {
	return s.session.Close()
}
