package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/taskcore/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenStore("sqlite://" + filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStoreUsers(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	u, err := st.CreateUser(ctx, model.Registration{Username: "ana", Email: "ana@example.com", FirstName: "Ana"}, "hash")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	_, err = st.CreateUser(ctx, model.Registration{Username: "ana", Email: "x@example.com"}, "hash")
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = st.CreateUser(ctx, model.Registration{Username: "other", Email: "ana@example.com"}, "hash")
	assert.ErrorIs(t, err, ErrUserExists)

	got, hash, err := st.UserByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, u, got)
	assert.Equal(t, "hash", hash)

	_, _, err = st.UserByUsername(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	users, err := st.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.User{u}, users)
}

func TestStoreTasks(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	owner, err := st.CreateUser(ctx, model.Registration{Username: "owner", Email: "o@example.com"}, "h")
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	legacy := int64(9)
	created, err := st.CreateTask(ctx, model.Task{
		Title:         "Plan",
		Status:        model.StatusPending,
		CreatedBy:     owner.ID,
		AssignedTo:    &legacy,
		AssignedUsers: []int64{7, 5},
		Category:      "Trabajo",
		DueDate:       "2030-01-01",
		CreatedAt:     &now,
		UpdatedAt:     &now,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := st.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plan", got.Title)
	assert.Equal(t, []int64{7, 5}, got.AssignedUsers, "assignee order is kept")
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, legacy, *got.AssignedTo)
	require.NotNil(t, got.CreatedAt)
	assert.True(t, now.Equal(*got.CreatedAt))
	assert.Nil(t, got.CompletedAt)

	for _, uid := range []int64{owner.ID, 5, 7, 9} {
		tasks, err := st.TasksVisibleTo(ctx, uid)
		require.NoError(t, err)
		assert.Len(t, tasks, 1, "user %d", uid)
	}
	tasks, err := st.TasksVisibleTo(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	got.AssignedUsers = []int64{42}
	got.AssignedTo = nil
	got.Status = model.StatusCompleted
	got.CompletedAt = &now
	require.NoError(t, st.UpdateTask(ctx, got))

	again, err := st.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, again.AssignedUsers)
	assert.Nil(t, again.AssignedTo)
	assert.Equal(t, model.StatusCompleted, again.Status)
	require.NotNil(t, again.CompletedAt)

	tasks, err = st.TasksVisibleTo(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	require.NoError(t, st.DeleteTask(ctx, created.ID))
	_, err = st.GetTask(ctx, created.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, st.DeleteTask(ctx, created.ID), model.ErrNotFound)
	assert.ErrorIs(t, st.UpdateTask(ctx, got), model.ErrNotFound)
}
