package kv_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.uber.org/goleak"

	"github.com/caelansar/kv"
	"github.com/caelansar/kv/internal/testcert"
	"github.com/caelansar/kv/network"
	"github.com/caelansar/kv/pb"
	"github.com/caelansar/kv/service"
	"github.com/caelansar/kv/storage"
)

var testPSK = []byte("keykeykeykeykeykeykeykeykeykeyke")

// verifyNoLeaks fails the test if server, mux or watchdog goroutines
// outlive it. Registered before the teardown cleanups so it runs after
// them.
func verifyNoLeaks(t *testing.T) {
	ignore := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, ignore) })
}

func startServer(c *qt.C, acceptor network.Acceptor) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, qt.IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	c.Cleanup(cancel)

	svc := service.New(storage.NewMemTable())
	srv := kv.NewServer(svc)
	go srv.ServeTCP(ctx, ln, acceptor)
	return ln.Addr().String()
}

func startNoiseServer(c *qt.C) string {
	acceptor, err := network.NewNoiseServer(testPSK)
	c.Assert(err, qt.IsNil)
	return startServer(c, acceptor)
}

func noiseDial(c *qt.C, addr string) *kv.Client {
	connector, err := network.NewNoiseClient(testPSK)
	c.Assert(err, qt.IsNil)
	client, err := kv.Dial(context.Background(), addr, kv.WithConnector(connector))
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { client.Close() })
	return client
}

func TestBasicSetGet(t *testing.T) {
	c := qt.New(t)
	verifyNoLeaks(t)
	ctx := context.Background()
	client := noiseDial(c, startNoiseServer(c))

	resp, err := client.Execute(ctx, pb.NewHset("t1", "k1", pb.StringValue("v1")))
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Status, qt.Equals, uint32(http.StatusOK))
	c.Assert(resp.Values, qt.DeepEquals, []*pb.Value{pb.NullValue()})

	resp, err = client.Execute(ctx, pb.NewHget("t1", "k1"))
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Status, qt.Equals, uint32(http.StatusOK))
	c.Assert(resp.Values, qt.DeepEquals, []*pb.Value{pb.StringValue("v1")})
}

func TestCompressedValueRoundTrip(t *testing.T) {
	c := qt.New(t)
	verifyNoLeaks(t)
	ctx := context.Background()
	client := noiseDial(c, startNoiseServer(c))

	// 1437 bytes pushes the request frame past the compression
	// threshold; the stored value must come back verbatim.
	payload := make([]byte, 1437)
	resp, err := client.Execute(ctx, pb.NewHset("t2", "k2", pb.BytesValue(payload)))
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Status, qt.Equals, uint32(http.StatusOK))
	c.Assert(resp.Values, qt.DeepEquals, []*pb.Value{pb.NullValue()})

	resp, err = client.Execute(ctx, pb.NewHget("t2", "k2"))
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Status, qt.Equals, uint32(http.StatusOK))
	got, err := resp.Values[0].AsBytes()
	c.Assert(err, qt.IsNil)
	c.Assert(bytes.Equal(got, payload), qt.IsTrue)
}

func TestGetNotFound(t *testing.T) {
	c := qt.New(t)
	verifyNoLeaks(t)
	ctx := context.Background()
	client := noiseDial(c, startNoiseServer(c))

	resp, err := client.Execute(ctx, pb.NewHget("t1", "absent"))
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Status, qt.Equals, uint32(http.StatusNotFound))
	c.Assert(resp.Message, qt.Contains, "table: t1, key: absent")
	c.Assert(resp.Values, qt.HasLen, 0)
	c.Assert(resp.Pairs, qt.HasLen, 0)
}

func TestSubscribePublishUnsubscribe(t *testing.T) {
	c := qt.New(t)
	verifyNoLeaks(t)
	ctx := context.Background()
	addr := startNoiseServer(c)
	clientA := noiseDial(c, addr)
	clientB := noiseDial(c, addr)

	stream, err := clientA.Subscribe(ctx, "cae")
	c.Assert(err, qt.IsNil)
	c.Assert(stream.ID, qt.Equals, uint32(1))

	c.Assert(clientB.Publish(ctx, "cae", pb.StringValue("hello")), qt.IsNil)

	msg, err := stream.Recv()
	c.Assert(err, qt.IsNil)
	c.Assert(msg.Status, qt.Equals, uint32(http.StatusOK))
	c.Assert(msg.Values, qt.DeepEquals, []*pb.Value{pb.StringValue("hello")})

	// unsubscribing delivers the status-0 sentinel and ends the stream
	resp, err := clientA.Unsubscribe(ctx, "cae", stream.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Status, qt.Equals, uint32(http.StatusOK))

	_, err = stream.Recv()
	c.Assert(err, qt.Equals, io.EOF)
	_, err = stream.Recv()
	c.Assert(err, qt.Equals, io.EOF)

	// publishing to the now-empty topic still acks
	c.Assert(clientB.Publish(ctx, "cae", pb.StringValue("again")), qt.IsNil)

	// a duplicate unsubscribe reports the missing subscription
	resp, err = clientB.Unsubscribe(ctx, "cae", stream.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Status, qt.Equals, uint32(http.StatusNotFound))
	c.Assert(resp.Message, qt.Contains, "subscription 1")
}

func TestTwoSubscribersIndependence(t *testing.T) {
	c := qt.New(t)
	verifyNoLeaks(t)
	ctx := context.Background()
	addr := startNoiseServer(c)
	clientA := noiseDial(c, addr)
	clientB := noiseDial(c, addr)
	publisher := noiseDial(c, addr)

	streamA, err := clientA.Subscribe(ctx, "x")
	c.Assert(err, qt.IsNil)
	streamB, err := clientB.Subscribe(ctx, "x")
	c.Assert(err, qt.IsNil)
	c.Assert(streamA.ID, qt.Not(qt.Equals), streamB.ID)

	c.Assert(publisher.Publish(ctx, "x", pb.StringValue("v1")), qt.IsNil)
	for _, stream := range []*network.StreamResult{streamA, streamB} {
		msg, err := stream.Recv()
		c.Assert(err, qt.IsNil)
		c.Assert(msg.Values, qt.DeepEquals, []*pb.Value{pb.StringValue("v1")})
	}

	// A abandons its stream without unsubscribing; B keeps receiving
	// and the broadcaster prunes A on a failed send
	c.Assert(streamA.Close(), qt.IsNil)

	pruned := false
	for i := 0; i < 50 && !pruned; i++ {
		c.Assert(publisher.Publish(ctx, "x", pb.StringValue("v2")), qt.IsNil)
		msg, err := streamB.Recv()
		c.Assert(err, qt.IsNil)
		c.Assert(msg.Values, qt.DeepEquals, []*pb.Value{pb.StringValue("v2")})

		resp, err := publisher.Unsubscribe(ctx, "x", streamA.ID)
		c.Assert(err, qt.IsNil)
		pruned = resp.Status == uint32(http.StatusNotFound)
	}
	c.Assert(pruned, qt.IsTrue)
}

func TestMultiplexedStreams(t *testing.T) {
	c := qt.New(t)
	verifyNoLeaks(t)
	ctx := context.Background()
	addr := startNoiseServer(c)
	client := noiseDial(c, addr)

	// a subscription holds one logical stream open while one-shot
	// commands run on others
	stream, err := client.Subscribe(ctx, "events")
	c.Assert(err, qt.IsNil)

	resp, err := client.Execute(ctx, pb.NewHset("t1", "k1", pb.StringValue("v1")))
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Status, qt.Equals, uint32(http.StatusOK))

	c.Assert(client.Publish(ctx, "events", pb.IntValue(42)), qt.IsNil)
	msg, err := stream.Recv()
	c.Assert(err, qt.IsNil)
	c.Assert(msg.Values, qt.DeepEquals, []*pb.Value{pb.IntValue(42)})

	resp, err = client.Execute(ctx, pb.NewHget("t1", "k1"))
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Values, qt.DeepEquals, []*pb.Value{pb.StringValue("v1")})

	c.Assert(stream.Close(), qt.IsNil)
}

func TestTLSServer(t *testing.T) {
	c := qt.New(t)
	verifyNoLeaks(t)
	ctx := context.Background()
	pki := testcert.New()

	// mTLS: the server requires a certificate signed by the test CA
	acceptor, err := network.NewTLSServer(pki.ServerCert, pki.ServerKey, pki.CACert)
	c.Assert(err, qt.IsNil)
	addr := startServer(c, acceptor)

	connector, err := network.NewTLSClient(testcert.ServerName, pki.ClientCert, pki.ClientKey, pki.CACert)
	c.Assert(err, qt.IsNil)
	client, err := kv.Dial(ctx, addr, kv.WithConnector(connector))
	c.Assert(err, qt.IsNil)
	defer client.Close()

	resp, err := client.Execute(ctx, pb.NewHset("t1", "hello", pb.StringValue("world")))
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Status, qt.Equals, uint32(http.StatusOK))

	resp, err = client.Execute(ctx, pb.NewHget("t1", "hello"))
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Values, qt.DeepEquals, []*pb.Value{pb.StringValue("world")})
}

func TestQUICServer(t *testing.T) {
	c := qt.New(t)
	// no verifyNoLeaks here: quic-go keeps a package-level transport
	// multiplexer goroutine alive after the last listener closes
	ctx := context.Background()
	pki := testcert.New()

	tlsServer, err := network.NewTLSServer(pki.ServerCert, pki.ServerKey, nil)
	c.Assert(err, qt.IsNil)
	ln, err := network.ListenQUIC("127.0.0.1:0", tlsServer.TLSConfig())
	c.Assert(err, qt.IsNil)

	runCtx, cancel := context.WithCancel(context.Background())
	c.Cleanup(cancel)
	svc := service.New(storage.NewMemTable())
	srv := kv.NewServer(svc)
	go srv.ServeQUIC(runCtx, ln)

	tlsClient, err := network.NewTLSClient(testcert.ServerName, nil, nil, pki.CACert)
	c.Assert(err, qt.IsNil)
	client, err := kv.DialQUIC(ctx, ln.Addr().String(), tlsClient)
	c.Assert(err, qt.IsNil)
	defer client.Close()

	resp, err := client.Execute(ctx, pb.NewHset("t1", "k1", pb.StringValue("v1")))
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Status, qt.Equals, uint32(http.StatusOK))

	stream, err := client.Subscribe(ctx, "cae")
	c.Assert(err, qt.IsNil)
	c.Assert(client.Publish(ctx, "cae", pb.StringValue("hello")), qt.IsNil)
	msg, err := stream.Recv()
	c.Assert(err, qt.IsNil)
	c.Assert(msg.Values, qt.DeepEquals, []*pb.Value{pb.StringValue("hello")})
	c.Assert(stream.Close(), qt.IsNil)
}
