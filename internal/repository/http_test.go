package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/taskcore/internal/api"
	"github.com/existflow/taskcore/internal/model"
)

func TestHTTPRepositoryPublishesAfterSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost:
			var in model.Task
			_ = json.NewDecoder(r.Body).Decode(&in)
			in.ID = 7
			_ = json.NewEncoder(w).Encode(in)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/tasks/7":
			_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "task not found"})
		}
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, api.WithTokenSource(api.TokenFunc(func() string { return "tok" })))
	repo := NewHTTP(client)
	var changes []Change
	repo.Subscribe(func(c Change) { changes = append(changes, c) })
	ctx := context.Background()

	created, err := repo.Create(ctx, model.Task{Title: "remote"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)
	assert.Equal(t, model.StatusPending, created.Status)

	title := "x"
	_, err = repo.Update(ctx, 8, model.TaskPatch{Title: &title})
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, 7))

	require.Len(t, changes, 2)
	assert.Equal(t, Created, changes[0].Kind)
	assert.Equal(t, Deleted, changes[1].Kind)
	assert.Equal(t, int64(7), changes[1].ID)
}

func TestHTTPRepositoryValidatesLocally(t *testing.T) {
	repo := NewHTTP(api.NewClient("http://127.0.0.1:1"))
	_, err := repo.Create(context.Background(), model.Task{})
	assert.ErrorIs(t, err, model.ErrValidation)
}
