// Package service is the server-side executor: it routes a decoded
// command either to the storage backend (one response) or to the pub/sub
// broadcaster (a response stream). Request hooks observe every command;
// response hooks run on the one-shot path only.
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/caelansar/kv/kverr"
	"github.com/caelansar/kv/pb"
	"github.com/caelansar/kv/storage"
)

// Service dispatches command requests. It is safe for concurrent use;
// share one instance across all connection and stream tasks.
type Service struct {
	store       storage.Storage
	broadcaster *PubSub
	log         zerolog.Logger
	metrics     *metrics

	onReceived []func(*pb.CommandRequest)
	beforeSend []func(*pb.CommandResponse)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger; the default is a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithRegisterer registers the service metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Service) { s.metrics = newMetrics(reg) }
}

// WithOnReceived appends a hook observing every request before execution.
// Hooks fire in registration order.
func WithOnReceived(fn func(*pb.CommandRequest)) Option {
	return func(s *Service) { s.onReceived = append(s.onReceived, fn) }
}

// WithBeforeSend appends a hook that may mutate a one-shot response
// before it is emitted. Hooks fire in registration order and are not
// applied on streaming paths.
func WithBeforeSend(fn func(*pb.CommandResponse)) Option {
	return func(s *Service) { s.beforeSend = append(s.beforeSend, fn) }
}

// New returns a Service executing against store.
func New(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.broadcaster = NewPubSub(s.log)
	s.broadcaster.metrics = s.metrics
	return s
}

// Broadcaster exposes the pub/sub engine, mainly for tests and
// introspection.
func (s *Service) Broadcaster() *PubSub { return s.broadcaster }

// Execute runs one command. One-shot variants return a single-element
// stream; Subscribe returns the subscription stream. The request must not
// be reused after Execute returns.
func (s *Service) Execute(req *pb.CommandRequest) *ResponseStream {
	s.log.Debug().Str("command", req.Name()).Msg("got request")

	for _, fn := range s.onReceived {
		fn(req)
	}
	if s.metrics != nil {
		s.metrics.commands.WithLabelValues(req.Name()).Inc()
	}

	if req.RequestData == nil {
		return newSingleResponse(pb.NewErrorResponse(&kverr.InvalidCommandError{Reason: "Request has no data"}))
	}

	if req.IsStreaming() {
		return executeStreaming(req, s.broadcaster)
	}

	resp := executeCommand(req, s.store)
	for _, fn := range s.beforeSend {
		fn(resp)
	}
	s.log.Debug().Uint32("status", resp.Status).Msg("executed response")
	return newSingleResponse(resp)
}
