package server

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/go-stomp/stomp/v3"
	stompserver "github.com/go-stomp/stomp/v3/server"
	"github.com/labstack/echo/v4"

	"github.com/existflow/taskcore/internal/logger"
	"github.com/existflow/taskcore/internal/model"
	"github.com/existflow/taskcore/internal/push"
)

// Publisher delivers an event to one user's topic
type Publisher interface {
	Publish(userID int64, ev model.Event) error
}

const (
	internalLogin = "taskcore-internal"
	maxFrameSize  = 1 << 20
)

// Broker is a STOMP broker reached over WebSocket at /ws. Clients log in
// with their username and access token. The server publishes through an
// in-process connection.
type Broker struct {
	tokens   *TokenManager
	log      *logger.Logger
	listener *connListener
	secret   string

	mu  sync.Mutex
	pub *stomp.Conn
}

// NewBroker starts a broker that authenticates clients with tokens
func NewBroker(tokens *TokenManager, log *logger.Logger) (*Broker, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate broker secret: %w", err)
	}

	b := &Broker{
		tokens:   tokens,
		log:      log.Named("broker"),
		listener: newConnListener(),
		secret:   hex.EncodeToString(buf),
	}

	srv := &stompserver.Server{Authenticator: b}
	go func() {
		if err := srv.Serve(b.listener); err != nil && !errors.Is(err, net.ErrClosed) {
			b.log.Error("STOMP server stopped", logger.F("error", err))
		}
	}()
	return b, nil
}

// Authenticate implements the STOMP server authenticator. Clients send their
// username as login and their access token as passcode.
func (b *Broker) Authenticate(login, passcode string) bool {
	if login == internalLogin {
		return subtle.ConstantTimeCompare([]byte(passcode), []byte(b.secret)) == 1
	}
	claims, err := b.tokens.Validate(passcode)
	if err != nil {
		b.log.Warn("STOMP login rejected", logger.F("login", login), logger.F("error", err))
		return false
	}
	return claims.Username == login
}

// Publish implements Publisher
func (b *Broker) Publish(userID int64, ev model.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	topic := model.TopicFor(userID)

	conn, err := b.publisher()
	if err != nil {
		return err
	}
	if err := conn.Send(topic, "application/json", body); err != nil {
		// the internal connection broke; reconnect on the next publish
		b.mu.Lock()
		if b.pub == conn {
			b.pub = nil
		}
		b.mu.Unlock()
		_ = conn.MustDisconnect()
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	b.log.Debug("Event published", logger.F("topic", topic), logger.F("type", ev.Type), logger.F("task_id", ev.ID()))
	return nil
}

func (b *Broker) publisher() (*stomp.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pub != nil {
		return b.pub, nil
	}

	client, srv := net.Pipe()
	if err := b.listener.deliver(srv); err != nil {
		_ = client.Close()
		return nil, err
	}
	conn, err := stomp.Connect(client, stomp.ConnOpt.Login(internalLogin, b.secret))
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect publisher: %w", err)
	}
	b.pub = conn
	return conn, nil
}

// HandleWS upgrades an authenticated request and hands the connection to
// the STOMP server. It returns when the connection closes.
//
// Only the token is checked. The STOMP server does not authorize SUBSCRIBE
// destinations, so an authenticated client can subscribe to another user's
// topic. Not for production use.
func (b *Broker) HandleWS(c echo.Context) error {
	req := c.Request()
	token, err := ExtractBearer(req.Header.Get("Authorization"))
	if err != nil {
		token = req.URL.Query().Get("access_token")
	}
	if token == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authorization required"})
	}
	claims, err := b.tokens.Validate(token)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	}

	ws, err := websocket.Accept(c.Response(), req, &websocket.AcceptOptions{
		Subprotocols:       push.Subprotocols,
		InsecureSkipVerify: true,
	})
	if err != nil {
		b.log.Warn("WebSocket upgrade failed", logger.F("error", err))
		return nil
	}
	ws.SetReadLimit(maxFrameSize)

	conn := newTrackedConn(websocket.NetConn(context.Background(), ws, websocket.MessageText))
	if err := b.listener.deliver(conn); err != nil {
		_ = conn.Close()
		return nil
	}
	b.log.Info("Push client connected", logger.F("user_id", claims.UserID))

	select {
	case <-conn.closed:
	case <-b.listener.done:
		_ = conn.Close()
	}
	b.log.Info("Push client disconnected", logger.F("user_id", claims.UserID))
	return nil
}

// Close stops accepting connections
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.pub != nil {
		_ = b.pub.MustDisconnect()
		b.pub = nil
	}
	b.mu.Unlock()
	return b.listener.Close()
}

// connListener is a net.Listener fed with already established connections
type connListener struct {
	conns chan net.Conn
	done  chan struct{}
	once  sync.Once
}

func newConnListener() *connListener {
	return &connListener{conns: make(chan net.Conn), done: make(chan struct{})}
}

func (l *connListener) deliver(c net.Conn) error {
	select {
	case l.conns <- c:
		return nil
	case <-l.done:
		return net.ErrClosed
	}
}

func (l *connListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *connListener) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

func (l *connListener) Addr() net.Addr { return brokerAddr{} }

type brokerAddr struct{}

func (brokerAddr) Network() string { return "pipe" }
func (brokerAddr) String() string  { return "taskcore-broker" }

// trackedConn reports when the STOMP server closes it
type trackedConn struct {
	net.Conn
	closed chan struct{}
	once   sync.Once
}

func newTrackedConn(c net.Conn) *trackedConn {
	return &trackedConn{Conn: c, closed: make(chan struct{})}
}

func (c *trackedConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(func() { close(c.closed) })
	return err
}
