package service

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/caelansar/kv/kverr"
	"github.com/caelansar/kv/pb"
)

// mailboxCapacity bounds each subscription's mailbox. A subscriber that
// stops draining stalls only its own topic's fan-out chain.
const mailboxCapacity = 128

// Topic is the broadcaster port the streaming commands execute against.
type Topic interface {
	// Subscribe registers a new subscription on the named topic and
	// returns its response stream. The first message on the stream
	// carries the subscription id as an integer value.
	Subscribe(name string) *ResponseStream
	// Unsubscribe tears down a subscription. The subscriber receives the
	// status-0 sentinel; the caller gets a NotFoundError if the id is
	// not subscribed.
	Unsubscribe(name string, id uint32) error
	// Publish fans value out to every current subscriber of the named
	// topic. Fan-out is asynchronous; Publish itself never blocks on
	// slow consumers.
	Publish(name string, value *pb.CommandResponse)
}

// subscription pairs a bounded mailbox with a done channel. Every send
// selects against done, so a departed receiver turns the next send into a
// failure instead of a block; the mailbox channel itself is never closed
// while publishes may still race.
type subscription struct {
	id    uint32
	topic string
	ch    chan *pb.CommandResponse
	done  chan struct{}
	once  sync.Once
}

func (s *subscription) cancel() {
	s.once.Do(func() { close(s.done) })
}

// send delivers resp unless the subscription is gone; it reports whether
// delivery happened.
func (s *subscription) send(resp *pb.CommandResponse) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.ch <- resp:
		return true
	case <-s.done:
		return false
	}
}

var _ Topic = (*PubSub)(nil)

// PubSub is the topic registry: topic name to subscription id set, and
// subscription id to mailbox. The two maps are kept consistent under one
// mutex; ids are allocated from an atomic counter and never reused.
type PubSub struct {
	log     zerolog.Logger
	metrics *metrics

	nextID atomic.Uint32

	mu     sync.RWMutex
	topics map[string]map[uint32]struct{}
	subs   map[uint32]*subscription

	// tail chains each topic's in-flight publishes: the done channel of
	// the most recently enqueued fan-out task, awaited by the next one.
	tail map[string]chan struct{}
}

// NewPubSub returns an empty broadcaster.
func NewPubSub(log zerolog.Logger) *PubSub {
	return &PubSub{
		log:    log,
		topics: make(map[string]map[uint32]struct{}),
		subs:   make(map[uint32]*subscription),
		tail:   make(map[string]chan struct{}),
	}
}

func (p *PubSub) Subscribe(name string) *ResponseStream {
	sub := &subscription{
		id:    p.nextID.Add(1),
		topic: name,
		ch:    make(chan *pb.CommandResponse, mailboxCapacity),
		done:  make(chan struct{}),
	}

	p.mu.Lock()
	set, ok := p.topics[name]
	if !ok {
		set = make(map[uint32]struct{})
		p.topics[name] = set
	}
	set[sub.id] = struct{}{}
	p.subs[sub.id] = sub
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.subscriptions.Inc()
	}

	// Id-discovery packet; the mailbox is empty so this never blocks.
	sub.ch <- pb.NewValuesResponse(pb.IntValue(int64(sub.id)))

	p.log.Debug().Uint32("id", sub.id).Str("topic", name).Msg("add subscription")
	return &ResponseStream{ch: sub.ch, close: sub.cancel}
}

// removeSubscription takes id out of both maps, dropping the topic entry
// when its set empties. It returns the removed subscription, or nil if
// the id was not subscribed. Safe to call twice; the second call is a
// no-op.
func (p *PubSub) removeSubscription(name string, id uint32) *subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	if set, ok := p.topics[name]; ok {
		delete(set, id)
		if len(set) == 0 {
			p.log.Info().Str("topic", name).Msg("topic is deleted")
			delete(p.topics, name)
		}
	}
	sub, ok := p.subs[id]
	if !ok {
		return nil
	}
	delete(p.subs, id)
	if p.metrics != nil {
		p.metrics.subscriptions.Dec()
	}
	return sub
}

func (p *PubSub) Unsubscribe(name string, id uint32) error {
	sub := p.removeSubscription(name, id)
	if sub == nil {
		return &kverr.NotFoundError{Table: name, Key: fmt.Sprintf("subscription %d", id)}
	}
	p.log.Info().Uint32("id", id).Str("topic", name).Msg("subscription is removed")

	// Deliver the sentinel off the request path, then cut off any
	// publish still racing toward this mailbox.
	go func() {
		sub.send(pb.UnsubscribeAck())
		sub.cancel()
	}()
	return nil
}

// Publish enqueues one transient fan-out task and returns immediately.
// Tasks for the same topic hand off in publish order, so a subscriber
// that keeps draining sees messages in that order; tasks for different
// topics are independent, so a stalled subscriber on one topic cannot
// hold up delivery, or acceptance of publishes, anywhere else.
func (p *PubSub) Publish(name string, value *pb.CommandResponse) {
	if p.metrics != nil {
		p.metrics.published.Inc()
	}

	p.mu.Lock()
	prev := p.tail[name]
	done := make(chan struct{})
	p.tail[name] = done
	p.mu.Unlock()

	go func() {
		if prev != nil {
			<-prev
		}
		p.deliver(name, value)
		close(done)

		p.mu.Lock()
		if p.tail[name] == done {
			delete(p.tail, name)
		}
		p.mu.Unlock()
	}()
}

func (p *PubSub) deliver(name string, value *pb.CommandResponse) {
	p.mu.RLock()
	targets := make([]*subscription, 0, len(p.topics[name]))
	for id := range p.topics[name] {
		if sub, ok := p.subs[id]; ok {
			targets = append(targets, sub)
		}
	}
	p.mu.RUnlock()

	var dead []*subscription
	for _, sub := range targets {
		if !sub.send(value) {
			p.log.Warn().Uint32("id", sub.id).Str("topic", name).Msg("publish failed")
			dead = append(dead, sub)
		}
	}
	// Same removal path as Unsubscribe, but no sentinel: the receiver is
	// already gone.
	for _, sub := range dead {
		p.removeSubscription(name, sub.id)
	}
}
