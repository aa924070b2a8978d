package push

import (
	"context"
	"errors"
	"sync"

	"github.com/existflow/taskcore/internal/broadcast"
	"github.com/existflow/taskcore/internal/logger"
	"github.com/existflow/taskcore/internal/model"
)

// State of the channel connection
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Channel keeps at most one subscription alive: the topic of the current
// session's user. Every identity change bumps a generation counter; work
// started under an older generation is discarded.
type Channel struct {
	transport Transport
	retry     RetryPolicy
	clock     Clock
	log       *logger.Logger

	switchMu sync.Mutex // serializes SetSession/Disconnect

	mu      sync.Mutex
	gen     uint64
	state   State
	session *model.Session
	topic   string
	cancel  context.CancelFunc
	stream  Stream

	events broadcast.Hub[model.Event]
	states broadcast.Hub[State]
}

// Option configures a Channel
type Option func(*Channel)

// WithRetryPolicy sets the reconnect policy
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Channel) { c.retry = p }
}

// WithClock replaces the wall clock used for reconnect delays
func WithClock(clk Clock) Option {
	return func(c *Channel) { c.clock = clk }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(c *Channel) { c.log = l }
}

// NewChannel returns a disconnected channel
func NewChannel(t Transport, opts ...Option) *Channel {
	c := &Channel{
		transport: t,
		retry:     DefaultRetryPolicy,
		clock:     realClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("push")
	return c
}

// SetSession points the channel at sess. The previous subscription, if
// any, is torn down before the new one is started. A nil or incomplete
// session disconnects. Re-applying the same session is a no-op.
func (c *Channel) SetSession(sess *model.Session) {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	c.mu.Lock()
	same := c.session != nil && sess != nil &&
		c.session.UserID == sess.UserID && c.session.Token == sess.Token
	c.mu.Unlock()
	if same {
		return
	}

	c.stop()
	if !sess.Valid() {
		return
	}
	c.start(*sess)
}

// Disconnect drops the subscription and stops reconnecting
func (c *Channel) Disconnect() {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()
	c.stop()
}

// Close is Disconnect for shutdown paths
func (c *Channel) Close() error {
	c.Disconnect()
	return nil
}

// Subscribe registers an event handler. Handlers run on the channel's
// receive goroutine, one event at a time.
func (c *Channel) Subscribe(fn func(model.Event)) broadcast.Handle {
	return c.events.Subscribe(fn)
}

// Unsubscribe removes an event handler
func (c *Channel) Unsubscribe(h broadcast.Handle) bool {
	return c.events.Unsubscribe(h)
}

// OnStateChange registers a state handler
func (c *Channel) OnStateChange(fn func(State)) broadcast.Handle {
	return c.states.Subscribe(fn)
}

// RemoveStateHandler removes a state handler
func (c *Channel) RemoveStateHandler(h broadcast.Handle) bool {
	return c.states.Unsubscribe(h)
}

// State returns the current connection state
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Topic returns the topic of the active session, or ""
func (c *Channel) Topic() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topic
}

func (c *Channel) stop() {
	c.mu.Lock()
	c.gen++
	cancel, stream := c.cancel, c.stream
	prev := c.session
	c.cancel, c.stream, c.session, c.topic = nil, nil, nil, ""
	changed := c.state != Disconnected
	c.state = Disconnected
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stream != nil {
		if err := stream.Close(); err != nil {
			c.log.Debug("close failed", logger.F("error", err))
		}
	}
	if prev != nil {
		c.log.Info("unsubscribed", logger.F("user_id", prev.UserID))
	}
	if changed {
		c.states.Publish(Disconnected)
	}
}

func (c *Channel) start(sess model.Session) {
	ctx, cancel := context.WithCancel(context.Background())
	topic := model.TopicFor(sess.UserID)

	c.mu.Lock()
	gen := c.gen
	c.session = &sess
	c.topic = topic
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(ctx, gen, sess, topic)
}

func (c *Channel) run(ctx context.Context, gen uint64, sess model.Session, topic string) {
	log := c.log.WithFields(logger.F("user_id", sess.UserID), logger.F("topic", topic))
	attempt := 0

	for {
		if !c.transition(gen, Connecting) {
			return
		}

		stream, err := c.transport.Connect(ctx, sess, topic)
		if err == nil {
			if !c.attach(gen, stream) {
				_ = stream.Close()
				return
			}
			log.Info("subscribed")
			attempt = 0
			err = c.consume(ctx, gen, stream, sess.UserID, log)
			c.detach(gen, stream)
			_ = stream.Close()
		}

		if ctx.Err() != nil {
			return
		}
		attempt++
		delay := c.retry.Next(attempt)
		log.Warn("push channel down, reconnecting",
			logger.F("error", err),
			logger.F("attempt", attempt),
			logger.F("delay", delay))

		if !c.transition(gen, Disconnected) {
			return
		}
		select {
		case <-c.clock.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func (c *Channel) consume(ctx context.Context, gen uint64, stream Stream, userID int64, log *logger.Logger) error {
	for {
		body, err := stream.Recv(ctx)
		if err != nil {
			return err
		}

		ev, err := model.DecodeEvent(body)
		if err != nil {
			log.Warn("dropping push message", logger.F("error", err))
			continue
		}
		ev.Recipient = userID

		if !c.current(gen) {
			return errors.New("superseded")
		}
		log.Debug("event", logger.F("type", ev.Type), logger.F("task_id", ev.ID()))
		c.events.Publish(ev)
	}
}

func (c *Channel) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

// transition moves to state if gen is still current
func (c *Channel) transition(gen uint64, state State) bool {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return false
	}
	changed := c.state != state
	c.state = state
	c.mu.Unlock()

	if changed {
		c.states.Publish(state)
	}
	return true
}

func (c *Channel) attach(gen uint64, stream Stream) bool {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return false
	}
	c.stream = stream
	c.state = Connected
	c.mu.Unlock()

	c.states.Publish(Connected)
	return true
}

func (c *Channel) detach(gen uint64, stream Stream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen && c.stream == stream {
		c.stream = nil
	}
}
