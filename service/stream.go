package service

import (
	"sync"

	"github.com/caelansar/kv/pb"
)

// ResponseStream is a lazy ordered sequence of responses. One-shot
// commands produce a single-element stream whose channel is closed after
// the element; subscriptions produce a stream that stays open until the
// status-0 sentinel arrives.
//
// Consumers that stop reading early must call Close so the broadcaster
// can observe their departure; Close is idempotent and a no-op for
// one-shot streams.
type ResponseStream struct {
	ch    <-chan *pb.CommandResponse
	once  sync.Once
	close func()
}

// Chan returns the response channel. A closed channel, or a response with
// status 0, ends the stream.
func (s *ResponseStream) Chan() <-chan *pb.CommandResponse { return s.ch }

// Recv returns the next response, or ok=false when the stream is done.
func (s *ResponseStream) Recv() (*pb.CommandResponse, bool) {
	resp, ok := <-s.ch
	return resp, ok
}

// Close signals that the consumer is gone. For subscription streams this
// marks the subscription for lazy cleanup on the next publish.
func (s *ResponseStream) Close() {
	s.once.Do(func() {
		if s.close != nil {
			s.close()
		}
	})
}

// newSingleResponse wraps one response as a stream of length 1.
func newSingleResponse(resp *pb.CommandResponse) *ResponseStream {
	ch := make(chan *pb.CommandResponse, 1)
	ch <- resp
	close(ch)
	return &ResponseStream{ch: ch}
}
