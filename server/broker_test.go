package server

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/taskcore/internal/logger"
	"github.com/existflow/taskcore/internal/model"
	"github.com/existflow/taskcore/internal/push"
)

func TestBrokerAuthenticate(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	b, err := NewBroker(tm, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	token, err := tm.Issue(model.User{ID: 3, Username: "ana"})
	require.NoError(t, err)

	assert.True(t, b.Authenticate("ana", token))
	assert.False(t, b.Authenticate("bob", token), "login must match the token owner")
	assert.False(t, b.Authenticate("ana", "nope"))
	assert.True(t, b.Authenticate(internalLogin, b.secret))
	assert.False(t, b.Authenticate(internalLogin, "guess"))
}

func TestPushOverWebSocket(t *testing.T) {
	s, ts := newTestServer(t, nil)
	_, sess := account(t, ts.URL, "alice")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	transport := push.NewSTOMPTransport(wsURL, logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := transport.Connect(ctx, *sess, model.TopicFor(sess.UserID))
	require.NoError(t, err)
	defer stream.Close()

	// the subscription is registered asynchronously, so publish until the
	// first message gets through
	want := model.NewDeletedEvent(99)
	var body []byte
	for attempt := 0; attempt < 50 && body == nil; attempt++ {
		require.NoError(t, s.pub.Publish(sess.UserID, want))
		recvCtx, recvCancel := context.WithTimeout(ctx, 100*time.Millisecond)
		body, _ = stream.Recv(recvCtx)
		recvCancel()
	}
	require.NotNil(t, body, "no event received")

	ev, err := model.DecodeEvent(body)
	require.NoError(t, err)
	assert.Equal(t, model.EventTaskDeleted, ev.Type)
	assert.Equal(t, int64(99), ev.ID())
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	_, ts := newTestServer(t, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	transport := push.NewSTOMPTransport(wsURL, logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := transport.Connect(ctx, model.Session{UserID: 1, Username: "x", Token: "bad"}, model.TopicFor(1))
	assert.ErrorIs(t, err, model.ErrTransport)
}
