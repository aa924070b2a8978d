package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/taskcore/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, opts...)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var creds model.Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, model.AuthResponse{Error: "bad credentials"})
			return
		}
		writeJSON(w, http.StatusOK, model.AuthResponse{Success: true, Token: "tok", UserID: 3, Username: creds.Username})
	})

	resp, err := c.Login(context.Background(), "ana", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.UserID)
	assert.Equal(t, "tok", resp.Token)

	_, err = c.Login(context.Background(), "ana", "wrong")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.Contains(t, err.Error(), "bad credentials")
}

func TestLoginSuccessFalse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.AuthResponse{Success: false, Message: "account locked"})
	})

	_, err := c.Login(context.Background(), "ana", "x")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestAuthenticatedCallsSendBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []model.Task{{ID: 1, Title: "a", Status: model.StatusPending}})
	}, WithTokenSource(TokenFunc(func() string { return "tok-1" })))

	tasks, err := c.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "a", tasks[0].Title)
}

func TestAuthenticatedCallWithoutToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	})

	_, err := c.ListTasks(context.Background())
	assert.ErrorIs(t, err, model.ErrNoSession)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, model.ErrUnauthorized},
		{http.StatusForbidden, model.ErrForbidden},
		{http.StatusNotFound, model.ErrNotFound},
		{http.StatusBadRequest, model.ErrValidation},
		{http.StatusInternalServerError, model.ErrTransport},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			unauthorized := 0
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"error": "boom"})
			},
				WithTokenSource(TokenFunc(func() string { return "tok" })),
				WithUnauthorizedHandler(func() { unauthorized++ }))

			_, err := c.GetTask(context.Background(), 9)
			assert.ErrorIs(t, err, tt.want)
			if tt.status == http.StatusForbidden {
				assert.NotErrorIs(t, err, model.ErrUnauthorized)
			}
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, 1, unauthorized)
			} else {
				assert.Zero(t, unauthorized)
			}
		})
	}
}

func TestUnauthorizedLoginDoesNotTriggerHook(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, model.AuthResponse{Error: "nope"})
	}, WithUnauthorizedHandler(func() { called = true }))

	_, err := c.Login(context.Background(), "a", "b")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.False(t, called)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient(srv.URL, WithTokenSource(TokenFunc(func() string { return "tok" })))
	_, err := c.ListTasks(context.Background())
	assert.ErrorIs(t, err, model.ErrTransport)
}

func TestUpdateAndDelete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			assert.Equal(t, "/api/tasks/4", r.URL.Path)
			var p model.TaskPatch
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
			if !assert.NotNil(t, p.Status) {
				return
			}
			writeJSON(w, http.StatusOK, model.Task{ID: 4, Title: "x", Status: *p.Status})
		case http.MethodDelete:
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		}
	}, WithTokenSource(TokenFunc(func() string { return "tok" })))

	done := model.StatusCompleted
	updated, err := c.UpdateTask(context.Background(), 4, model.TaskPatch{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)

	assert.NoError(t, c.DeleteTask(context.Background(), 4))
}
