package network

import (
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/caelansar/kv/pb"
	"github.com/caelansar/kv/service"
)

// ServerStream serves one inbound logical stream: it decodes the
// stream's single request, executes it, and writes every response of the
// resulting stream back as frames.
type ServerStream struct {
	rw  io.ReadWriteCloser
	svc *service.Service
	log zerolog.Logger
}

// NewServerStream wraps a logical stream for serving.
func NewServerStream(rw io.ReadWriteCloser, svc *service.Service, log zerolog.Logger) *ServerStream {
	return &ServerStream{rw: rw, svc: svc, log: log}
}

// Process reads one request and streams its responses until the response
// stream ends or the peer goes away. Per-request errors travel inside
// responses; frame errors tear the stream down.
func (s *ServerStream) Process() error {
	defer s.rw.Close()

	req := new(pb.CommandRequest)
	if err := ReadFrame(s.rw, req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	s.log.Debug().Str("command", req.Name()).Msg("process command")

	stream := s.svc.Execute(req)
	defer stream.Close()

	// The peer sends nothing after its request, so the next read
	// completing means it closed the stream. This is what lets a
	// subscription pump notice an abandoned subscriber.
	peerGone := make(chan struct{})
	go func() {
		defer close(peerGone)
		var buf [1]byte
		s.rw.Read(buf[:])
	}()

	for {
		select {
		case resp, ok := <-stream.Chan():
			if !ok {
				return nil
			}
			if err := WriteFrame(s.rw, resp); err != nil {
				return err
			}
			if resp.Status == 0 {
				return nil
			}
		case <-peerGone:
			return nil
		}
	}
}

// ClientStream is the client end of one logical stream. Per the wire
// contract it carries exactly one request.
type ClientStream struct {
	rw io.ReadWriteCloser
}

// NewClientStream wraps a logical stream for issuing a command.
func NewClientStream(rw io.ReadWriteCloser) *ClientStream {
	return &ClientStream{rw: rw}
}

// Execute sends the request and awaits exactly one response.
func (c *ClientStream) Execute(req *pb.CommandRequest) (*pb.CommandResponse, error) {
	if err := WriteFrame(c.rw, req); err != nil {
		return nil, err
	}
	resp := new(pb.CommandResponse)
	if err := ReadFrame(c.rw, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ExecuteStreaming sends a subscribe request and wraps the stream as a
// StreamResult, consuming the id-discovery packet.
func (c *ClientStream) ExecuteStreaming(req *pb.CommandRequest) (*StreamResult, error) {
	if err := WriteFrame(c.rw, req); err != nil {
		return nil, err
	}
	return newStreamResult(c)
}

// Close closes the logical stream.
func (c *ClientStream) Close() error {
	return c.rw.Close()
}

func (c *ClientStream) recv() (*pb.CommandResponse, error) {
	resp := new(pb.CommandResponse)
	if err := ReadFrame(c.rw, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
