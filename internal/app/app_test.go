package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/taskcore/internal/config"
	"github.com/existflow/taskcore/internal/logger"
	"github.com/existflow/taskcore/internal/model"
	"github.com/existflow/taskcore/internal/push"
	"github.com/existflow/taskcore/internal/repository"
	"github.com/existflow/taskcore/internal/session"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newMockApp(t *testing.T) *App {
	t.Helper()
	cfg, err := config.LoadFrom(t.TempDir())
	require.NoError(t, err)
	cfg.Mock = true
	cfg.MockUserID = 1
	cfg.ReconnectDelay = 10 * time.Millisecond

	noDelay := time.Duration(0)
	a, err := New(cfg, Options{
		Logger:    logger.Nop(),
		Persister: &session.MemoryPersister{},
		MockDelay: &noDelay,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestMockModeEndToEnd(t *testing.T) {
	a := newMockApp(t)
	ctx := context.Background()

	require.NoError(t, a.Start(ctx))
	assert.Equal(t, push.Disconnected, a.Channel.State())

	sess, err := a.Login(ctx, "demo", "demo")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sess.UserID)
	assert.Contains(t, sess.Token, "mock_token_")

	require.Eventually(t, func() bool { return a.Channel.State() == push.Connected }, waitFor, tick)
	assert.Equal(t, model.TopicFor(1), a.Channel.Topic())

	// seeding found the demo task assigned by another user
	assert.Len(t, a.Board.Tasks(), 3)
	require.Equal(t, 1, a.Inbox.UnreadCount())

	// a self-assigned task does not notify
	_, err = a.Board.CreateTask(ctx, model.Task{Title: "mine", DueDate: "2030-01-01", AssignedUsers: []int64{1}})
	require.NoError(t, err)

	// someone else assigns a task to us
	mem := a.Repo.(*repository.Memory)
	_, err = mem.Create(ctx, model.Task{Title: "from bob", CreatedBy: 3, AssignedUsers: []int64{1}})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return a.Inbox.UnreadCount() == 2 }, waitFor, tick)
	notes := a.Inbox.Notifications()
	assert.Equal(t, "from bob", notes[0].Task.Title)
	require.Eventually(t, func() bool { return len(a.Board.Tasks()) == 5 }, waitFor, tick)

	a.Logout()
	assert.Equal(t, push.Disconnected, a.Channel.State())
	assert.Empty(t, a.Broker.Topics())
	assert.Empty(t, a.Inbox.Notifications())
	assert.Empty(t, a.Board.Tasks())
}

func TestMockModeSessionSwitch(t *testing.T) {
	a := newMockApp(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	_, err := a.Login(ctx, "ana", "x")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return a.Channel.State() == push.Connected }, waitFor, tick)

	// the mock always answers with the configured user, so switch through
	// the channel directly to a second identity
	a.Channel.SetSession(&model.Session{UserID: 2, Username: "bob", Token: "t2"})
	require.Eventually(t, func() bool { return a.Channel.State() == push.Connected }, waitFor, tick)
	assert.Equal(t, []string{model.TopicFor(2)}, a.Broker.Topics())
}

// backend answers logins for ana (1) and bob (2) and serves an empty task
// list, or 401 once rejecting is set. Edits of single tasks are refused
// with 403.
type backend struct {
	rejecting atomic.Bool
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/auth/login":
		var creds model.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		ids := map[string]int64{"ana": 1, "bob": 2}
		id, ok := ids[creds.Username]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(model.AuthResponse{Error: "bad credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(model.AuthResponse{
			Success: true, Token: "tok-" + creds.Username, UserID: id, Username: creds.Username,
		})
	case "/api/tasks":
		if b.rejecting.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "token expired"})
			return
		}
		_, _ = w.Write([]byte("[]"))
	default:
		if strings.HasPrefix(r.URL.Path, "/api/tasks/") {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "not allowed to edit this task"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}
}

func newRemoteApp(t *testing.T) (*App, *backend, *push.MemoryBroker) {
	t.Helper()
	be := &backend{}
	srv := httptest.NewServer(be)
	t.Cleanup(srv.Close)

	cfg, err := config.LoadFrom(t.TempDir())
	require.NoError(t, err)
	cfg.Mock = false
	cfg.APIURL = srv.URL
	cfg.ReconnectDelay = 10 * time.Millisecond

	broker := push.NewMemoryBroker()
	a, err := New(cfg, Options{
		Logger:    logger.Nop(),
		Persister: &session.MemoryPersister{},
		Transport: broker,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, be, broker
}

func TestSessionSwitchResubscribesForNewUser(t *testing.T) {
	a, _, broker := newRemoteApp(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	_, err := a.Login(ctx, "ana", "secret")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return broker.Subscribers(model.TopicFor(1)) == 1 }, waitFor, tick)

	a.Logout()
	require.Eventually(t, func() bool { return len(broker.Topics()) == 0 }, waitFor, tick)

	_, err = a.Login(ctx, "bob", "secret")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return a.Channel.State() == push.Connected }, waitFor, tick)
	assert.Equal(t, []string{model.TopicFor(2)}, broker.Topics())

	require.NoError(t, broker.Publish(1, model.Event{
		Type: model.EventTaskAssigned,
		Task: &model.Task{ID: 10, Title: "for ana", CreatedBy: 2, AssignedUsers: []int64{1}},
	}))
	require.NoError(t, broker.Publish(2, model.Event{
		Type: model.EventTaskAssigned,
		Task: &model.Task{ID: 11, Title: "for bob", CreatedBy: 1, AssignedUsers: []int64{2}},
	}))

	require.Eventually(t, func() bool { return a.Inbox.UnreadCount() == 1 }, waitFor, tick)
	notes := a.Inbox.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, int64(11), notes[0].Task.ID)
}

func TestUnauthorizedReloadForcesLogout(t *testing.T) {
	a, be, broker := newRemoteApp(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	_, err := a.Login(ctx, "bob", "secret")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return a.Channel.State() == push.Connected }, waitFor, tick)

	require.NoError(t, broker.Publish(2, model.Event{
		Type: model.EventTaskAssigned,
		Task: &model.Task{ID: 11, Title: "for bob", CreatedBy: 1, AssignedUsers: []int64{2}},
	}))
	require.Eventually(t, func() bool { return a.Inbox.UnreadCount() == 1 }, waitFor, tick)

	be.rejecting.Store(true)
	_, err = a.Board.Reload(ctx)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	assert.False(t, a.Session.IsAuthenticated())
	require.Eventually(t, func() bool { return a.Channel.State() == push.Disconnected }, waitFor, tick)
	require.Eventually(t, func() bool { return len(broker.Topics()) == 0 }, waitFor, tick)
	assert.Empty(t, a.Inbox.Notifications())
}

func TestForbiddenUpdateKeepsSession(t *testing.T) {
	a, _, _ := newRemoteApp(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	_, err := a.Login(ctx, "ana", "secret")
	require.NoError(t, err)

	title := "renamed"
	_, err = a.Repo.Update(ctx, 5, model.TaskPatch{Title: &title})
	assert.ErrorIs(t, err, model.ErrForbidden)
	assert.NotErrorIs(t, err, model.ErrUnauthorized)
	assert.True(t, a.Session.IsAuthenticated())
}

func TestUsersInMockMode(t *testing.T) {
	a := newMockApp(t)
	ctx := context.Background()

	_, err := a.Users(ctx)
	assert.ErrorIs(t, err, model.ErrNoSession)

	_, err = a.Login(ctx, "demo", "x")
	require.NoError(t, err)
	users, err := a.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "demo", users[0].Username)
}
