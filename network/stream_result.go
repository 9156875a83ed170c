package network

import (
	"io"

	"github.com/caelansar/kv/pb"
)

// StreamResult is the client's view of a subscribed stream. The
// subscription id is read from the first message during construction;
// subsequent responses are surfaced by Recv until the status-0 sentinel
// translates into io.EOF.
type StreamResult struct {
	// ID is the subscription id issued by the broadcaster.
	ID uint32

	c    *ClientStream
	done bool
}

func newStreamResult(c *ClientStream) (*StreamResult, error) {
	first, err := c.recv()
	if err != nil {
		return nil, err
	}
	id, err := first.SubscriptionID()
	if err != nil {
		return nil, err
	}
	return &StreamResult{ID: id, c: c}, nil
}

// Recv returns the next published message, or io.EOF once the
// subscription has ended.
func (r *StreamResult) Recv() (*pb.CommandResponse, error) {
	if r.done {
		return nil, io.EOF
	}
	resp, err := r.c.recv()
	if err != nil {
		return nil, err
	}
	if resp.Status == 0 {
		r.done = true
		return nil, io.EOF
	}
	return resp, nil
}

// Close abandons the subscription by closing the logical stream. The
// server prunes the subscription on its next publish attempt.
func (r *StreamResult) Close() error {
	r.done = true
	return r.c.Close()
}
