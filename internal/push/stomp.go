package push

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-stomp/stomp/v3"

	"github.com/existflow/taskcore/internal/logger"
	"github.com/existflow/taskcore/internal/model"
)

// Subprotocols offered during the WebSocket handshake
var Subprotocols = []string{"v12.stomp", "v11.stomp", "v10.stomp"}

const (
	maxFrameSize   = 1 << 20
	closeTimeout   = 2 * time.Second
	connectTimeout = 10 * time.Second
)

// STOMPTransport subscribes over STOMP 1.2 carried on a WebSocket
type STOMPTransport struct {
	URL       string
	HeartBeat time.Duration
	Log       *logger.Logger

	// ConnectTimeout bounds the wait for CONNECTED after the WebSocket is up
	ConnectTimeout time.Duration
}

// NewSTOMPTransport returns a transport for the endpoint at wsURL
func NewSTOMPTransport(wsURL string, log *logger.Logger) *STOMPTransport {
	return &STOMPTransport{
		URL:            wsURL,
		HeartBeat:      time.Minute,
		Log:            log.Named("stomp"),
		ConnectTimeout: connectTimeout,
	}
}

// Connect implements Transport
func (t *STOMPTransport) Connect(ctx context.Context, sess model.Session, topic string) (Stream, error) {
	u, err := url.Parse(t.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid push url: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+sess.Token)

	ws, _, err := websocket.Dial(ctx, t.URL, &websocket.DialOptions{
		HTTPHeader:   header,
		Subprotocols: Subprotocols,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: websocket dial: %w", model.ErrTransport, err)
	}
	ws.SetReadLimit(maxFrameSize)

	// The net.Conn outlives ctx, which only bounds the handshake.
	nc := websocket.NetConn(context.Background(), ws, websocket.MessageText)

	hsCtx, cancel := context.WithTimeout(ctx, t.connectTimeout())
	defer cancel()
	stop := context.AfterFunc(hsCtx, func() { _ = nc.Close() })

	conn, err := stomp.Connect(nc,
		stomp.ConnOpt.Host(u.Hostname()),
		stomp.ConnOpt.Login(sess.Username, sess.Token),
		stomp.ConnOpt.Header("Authorization", "Bearer "+sess.Token),
		stomp.ConnOpt.HeartBeat(t.HeartBeat, t.HeartBeat),
	)
	if !stop() {
		// the socket was closed under the handshake
		if err == nil {
			_ = conn.MustDisconnect()
		}
		return nil, fmt.Errorf("%w: stomp connect: %w", model.ErrTransport, context.Cause(hsCtx))
	}
	if err != nil {
		_ = nc.Close()
		return nil, fmt.Errorf("%w: stomp connect: %w", model.ErrTransport, err)
	}

	sub, err := conn.Subscribe(topic, stomp.AckAuto)
	if err != nil {
		_ = conn.MustDisconnect()
		_ = nc.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %w", model.ErrTransport, topic, err)
	}

	t.Log.Debug("subscribed", logger.F("topic", topic), logger.F("url", t.URL))
	return &stompStream{conn: conn, sub: sub, closer: nc}, nil
}

func (t *STOMPTransport) connectTimeout() time.Duration {
	if t.ConnectTimeout <= 0 {
		return connectTimeout
	}
	return t.ConnectTimeout
}

type stompStream struct {
	conn   *stomp.Conn
	sub    *stomp.Subscription
	closer interface{ Close() error }

	once sync.Once
	err  error
}

func (s *stompStream) Recv(ctx context.Context) ([]byte, error) {
	select {
	case msg, ok := <-s.sub.C:
		if !ok {
			return nil, fmt.Errorf("%w: subscription closed", model.ErrTransport)
		}
		if msg.Err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrTransport, msg.Err)
		}
		return msg.Body, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close disconnects gracefully when the broker answers in time and tears
// the socket down either way
func (s *stompStream) Close() error {
	s.once.Do(func() {
		done := make(chan struct{})
		go func() {
			_ = s.conn.Disconnect()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(closeTimeout):
			_ = s.conn.MustDisconnect()
		}
		s.err = s.closer.Close()
	})
	return s.err
}
