package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/existflow/taskcore/internal/model"
)

// MemoryBroker is an in-process Transport. Mock mode publishes repository
// changes through it and tests use it to inject traffic and failures.
type MemoryBroker struct {
	mu       sync.Mutex
	topics   map[string]map[*memoryStream]struct{}
	failures []error
	sessions []model.Session
}

// NewMemoryBroker returns an empty broker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: make(map[string]map[*memoryStream]struct{})}
}

// Connect implements Transport
func (b *MemoryBroker) Connect(ctx context.Context, sess model.Session, topic string) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sessions = append(b.sessions, sess)
	if len(b.failures) > 0 {
		err := b.failures[0]
		b.failures = b.failures[1:]
		return nil, fmt.Errorf("%w: %w", model.ErrTransport, err)
	}

	s := &memoryStream{broker: b, topic: topic, notify: make(chan struct{}, 1)}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*memoryStream]struct{})
	}
	b.topics[topic][s] = struct{}{}
	return s, nil
}

// FailNext makes the next Connect calls fail with err, one per call
func (b *MemoryBroker) FailNext(errs ...error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, errs...)
}

// PublishRaw delivers body to every subscriber of topic and returns how
// many received it
func (b *MemoryBroker) PublishRaw(topic string, body []byte) int {
	b.mu.Lock()
	streams := make([]*memoryStream, 0, len(b.topics[topic]))
	for s := range b.topics[topic] {
		streams = append(streams, s)
	}
	b.mu.Unlock()

	for _, s := range streams {
		s.push(body)
	}
	return len(streams)
}

// Publish sends ev to the topic of userID
func (b *MemoryBroker) Publish(userID int64, ev model.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	b.PublishRaw(model.TopicFor(userID), body)
	return nil
}

// Drop breaks every subscription on topic as if the connection was lost
func (b *MemoryBroker) Drop(topic string) {
	b.mu.Lock()
	streams := b.topics[topic]
	delete(b.topics, topic)
	b.mu.Unlock()

	for s := range streams {
		s.fail(fmt.Errorf("%w: connection lost", model.ErrTransport))
	}
}

// Subscribers returns the number of live subscriptions on topic
func (b *MemoryBroker) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}

// Topics returns every topic with at least one live subscription
func (b *MemoryBroker) Topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for t, subs := range b.topics {
		if len(subs) > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Sessions returns the sessions that attempted to connect, in order
func (b *MemoryBroker) Sessions() []model.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Session(nil), b.sessions...)
}

func (b *MemoryBroker) remove(s *memoryStream) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs := b.topics[s.topic]; subs != nil {
		delete(subs, s)
		if len(subs) == 0 {
			delete(b.topics, s.topic)
		}
	}
}

type memoryStream struct {
	broker *MemoryBroker
	topic  string
	notify chan struct{}

	mu    sync.Mutex
	queue [][]byte
	err   error
}

func (s *memoryStream) push(body []byte) {
	s.mu.Lock()
	if s.err == nil {
		s.queue = append(s.queue, append([]byte(nil), body...))
	}
	s.mu.Unlock()
	s.wake()
}

func (s *memoryStream) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.wake()
}

func (s *memoryStream) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *memoryStream) Recv(ctx context.Context) ([]byte, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			body := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return body, nil
		}
		err := s.err
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}

		select {
		case <-s.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *memoryStream) Close() error {
	s.broker.remove(s)
	s.fail(fmt.Errorf("%w: stream closed", model.ErrTransport))
	return nil
}
