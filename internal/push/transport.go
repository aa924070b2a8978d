// Package push maintains the live subscription to the current user's
// notification topic.
package push

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/existflow/taskcore/internal/model"
)

// Stream is one live topic subscription
type Stream interface {
	// Recv blocks until the next message body arrives. Errors are final.
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

// Transport opens topic subscriptions on behalf of a session
type Transport interface {
	Connect(ctx context.Context, sess model.Session, topic string) (Stream, error)
}

// Clock lets tests drive reconnect timing
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RetryPolicy is a fixed reconnect delay plus optional random jitter.
// There is no retry cap.
type RetryPolicy struct {
	Delay  time.Duration
	Jitter time.Duration
}

// DefaultRetryPolicy reconnects after five seconds
var DefaultRetryPolicy = RetryPolicy{Delay: 5 * time.Second}

// Next returns the wait before reconnect attempt n (1-based)
func (p RetryPolicy) Next(attempt int) time.Duration {
	d := p.Delay
	if p.Jitter > 0 {
		d += time.Duration(rand.Int64N(int64(p.Jitter) + 1))
	}
	return d
}
