package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/taskcore/internal/model"
)

// fakeAuth returns canned responses and records calls
type fakeAuth struct {
	resp  *model.AuthResponse
	err   error
	calls int
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (*model.AuthResponse, error) {
	f.calls++
	return f.resp, f.err
}

func (f *fakeAuth) Register(ctx context.Context, reg model.Registration) (*model.AuthResponse, error) {
	f.calls++
	return f.resp, f.err
}

func TestLoginPersistsAndNotifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	auth := &fakeAuth{resp: &model.AuthResponse{Success: true, Token: "tok", UserID: 5, Username: "ana"}}
	s := NewStore(auth, NewFilePersister(path), nil)

	var seen []*model.Session
	s.OnChange(func(sess *model.Session) { seen = append(seen, sess) })

	sess, err := s.Login(context.Background(), "ana", "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(5), sess.UserID)
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "Bearer tok", s.AuthorizationHeader())
	require.Len(t, seen, 1)
	assert.Equal(t, int64(5), seen[0].UserID)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	restored := NewStore(auth, NewFilePersister(path), nil)
	require.NotNil(t, restored.Current())
	assert.Equal(t, "ana", restored.Current().Username)
}

func TestLogoutClearsAndNotifiesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	auth := &fakeAuth{resp: &model.AuthResponse{Success: true, Token: "tok", UserID: 5, Username: "ana"}}
	s := NewStore(auth, NewFilePersister(path), nil)
	_, err := s.Login(context.Background(), "ana", "pw")
	require.NoError(t, err)

	var seen []*model.Session
	s.OnChange(func(sess *model.Session) { seen = append(seen, sess) })

	s.Logout()
	s.Logout()

	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
	assert.Empty(t, s.AuthorizationHeader())
	assert.Equal(t, []*model.Session{nil}, seen)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLoginValidatesBeforeCallingAuthenticator(t *testing.T) {
	auth := &fakeAuth{}
	s := NewStore(auth, nil, nil)

	_, err := s.Login(context.Background(), "  ", "pw")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = s.Login(context.Background(), "ana", "")
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Zero(t, auth.calls)
}

func TestLoginRejected(t *testing.T) {
	s := NewStore(&fakeAuth{resp: &model.AuthResponse{Success: false, Error: "bad"}}, nil, nil)
	_, err := s.Login(context.Background(), "ana", "pw")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.False(t, s.IsAuthenticated())

	s = NewStore(&fakeAuth{err: errors.Join(model.ErrTransport, errors.New("dial"))}, nil, nil)
	_, err = s.Login(context.Background(), "ana", "pw")
	assert.ErrorIs(t, err, model.ErrTransport)
}

func TestRestoreRequiresAllFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"token":"tok","user_id":5}`), 0600))

	s := NewStore(&fakeAuth{}, NewFilePersister(path), nil)
	assert.False(t, s.IsAuthenticated())
}

func TestRestoreIgnoresCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0600))

	s := NewStore(&fakeAuth{}, NewFilePersister(path), nil)
	assert.False(t, s.IsAuthenticated())
}

func TestMockAuthenticator(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	m := &MockAuthenticator{UserID: 1, Now: func() time.Time { return fixed }}

	resp, err := m.Login(context.Background(), "demo", "x")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "mock_token_1700000000000", resp.Token)
	assert.Equal(t, int64(1), resp.UserID)

	reg, err := m.Register(context.Background(), model.Registration{Username: "x"})
	require.NoError(t, err)
	assert.True(t, reg.Success)
}

func TestMockAuthenticatorHonoursContext(t *testing.T) {
	m := &MockAuthenticator{UserID: 1, Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Login(ctx, "demo", "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegisterValidates(t *testing.T) {
	auth := &fakeAuth{resp: &model.AuthResponse{Success: true}}
	s := NewStore(auth, nil, nil)

	_, err := s.Register(context.Background(), model.Registration{Username: "ana", Email: "nope", Password: "x"})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Zero(t, auth.calls)

	_, err = s.Register(context.Background(), model.Registration{Username: "ana", Email: "a@b.c", Password: "x"})
	assert.NoError(t, err)
	assert.False(t, s.IsAuthenticated(), "register does not log in")
}
