package kv

import (
	"context"
	"net"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/caelansar/kv/network"
	"github.com/caelansar/kv/pb"
)

// Client owns one mux connection and issues each command on a fresh
// logical stream. Safe for concurrent use.
type Client struct {
	mux network.MuxConn
	log zerolog.Logger
}

type dialOptions struct {
	connector network.Connector
	log       zerolog.Logger
}

// DialOption configures Dial.
type DialOption func(*dialOptions)

// WithConnector sets the secure transport used after the TCP dial
// (TLS or Noise). Without one the connection stays in plaintext, which
// is only suitable for tests.
func WithConnector(c network.Connector) DialOption {
	return func(o *dialOptions) { o.connector = c }
}

// WithClientLogger sets the client logger; the default is a no-op logger.
func WithClientLogger(log zerolog.Logger) DialOption {
	return func(o *dialOptions) { o.log = log }
}

// Dial connects to a TCP server, runs the secure handshake and starts
// the yamux session.
func Dial(ctx context.Context, addr string, opts ...DialOption) (*Client, error) {
	o := dialOptions{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "dial")
	}
	if o.connector != nil {
		conn, err = o.connector.Connect(ctx, conn)
		if err != nil {
			return nil, err
		}
	}
	mux, err := network.NewYamuxClient(conn, o.log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Client{mux: mux, log: o.log}, nil
}

// DialQUIC connects to a QUIC server using the TLS client transport.
func DialQUIC(ctx context.Context, addr string, tlsClient *network.TLSClient, opts ...DialOption) (*Client, error) {
	o := dialOptions{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	mux, err := network.DialQUIC(ctx, addr, tlsClient.TLSConfig())
	if err != nil {
		return nil, err
	}
	return &Client{mux: mux, log: o.log}, nil
}

// Execute issues one one-shot command on a fresh logical stream and
// returns its response.
func (c *Client) Execute(ctx context.Context, req *pb.CommandRequest) (*pb.CommandResponse, error) {
	stream, err := c.mux.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	cs := network.NewClientStream(stream)
	defer cs.Close()
	return cs.Execute(req)
}

// Subscribe opens a subscription on topic. The returned StreamResult
// carries the subscription id and yields published messages until
// unsubscribed.
func (c *Client) Subscribe(ctx context.Context, topic string) (*network.StreamResult, error) {
	stream, err := c.mux.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	cs := network.NewClientStream(stream)
	result, err := cs.ExecuteStreaming(pb.NewSubscribe(topic))
	if err != nil {
		cs.Close()
		return nil, err
	}
	return result, nil
}

// Publish fans data out to every subscriber of topic. The server acks
// before fan-out completes.
func (c *Client) Publish(ctx context.Context, topic string, data ...*pb.Value) error {
	resp, err := c.Execute(ctx, pb.NewPublish(topic, data))
	if err != nil {
		return err
	}
	if resp.Status != http.StatusOK {
		return errors.Newf("publish: status %d: %s", resp.Status, resp.Message)
	}
	return nil
}

// Unsubscribe tears down a subscription by id. The response is 200 on
// success and 404 for an unknown subscription.
func (c *Client) Unsubscribe(ctx context.Context, topic string, id uint32) (*pb.CommandResponse, error) {
	return c.Execute(ctx, pb.NewUnsubscribe(topic, id))
}

// Close terminates the connection and all logical streams.
func (c *Client) Close() error {
	return c.mux.Close()
}
