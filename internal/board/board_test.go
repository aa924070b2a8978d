package board

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/taskcore/internal/db"
	"github.com/existflow/taskcore/internal/model"
	"github.com/existflow/taskcore/internal/repository"
)

type userVar struct{ id int64 }

func (u *userVar) UserID() int64 { return u.id }

func newBoard(t *testing.T) (*Board, *repository.Memory, *userVar) {
	t.Helper()
	users := &userVar{id: 1}
	repo := repository.NewMemory(users)
	store, err := db.Open(filepath.Join(t.TempDir(), "lists.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	b := New(repo, store, users, nil)
	t.Cleanup(b.Close)
	return b, repo, users
}

func TestCompleteThenUncompletePreservesFields(t *testing.T) {
	b, _, _ := newBoard(t)
	ctx := context.Background()
	assignee := int64(4)

	created, err := b.CreateTask(ctx, model.Task{
		Title:         "Informe",
		Description:   "trimestral",
		Category:      "Trabajo",
		DueDate:       "2025-06-30",
		AssignedTo:    &assignee,
		AssignedUsers: []int64{4, 5},
	})
	require.NoError(t, err)

	completed, err := b.ToggleComplete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	stamp := *completed.CompletedAt

	reopened, err := b.ToggleComplete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, reopened.Status)
	assert.Equal(t, "Informe", reopened.Title)
	assert.Equal(t, "trimestral", reopened.Description)
	assert.Equal(t, "Trabajo", reopened.Category)
	assert.Equal(t, "2025-06-30", reopened.DueDate)
	assert.Equal(t, &assignee, reopened.AssignedTo)
	assert.Equal(t, []int64{4, 5}, reopened.AssignedUsers)
	assert.Equal(t, created.CreatedBy, reopened.CreatedBy)
	require.NotNil(t, reopened.CompletedAt)
	assert.Equal(t, stamp, *reopened.CompletedAt)

	again, err := b.ToggleComplete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, stamp, *again.CompletedAt, "completedAt is set once")
}

func TestUncategorizedTasksUseDefaultCategory(t *testing.T) {
	b, _, _ := newBoard(t)
	ctx := context.Background()

	_, err := b.QuickAdd(ctx, model.DefaultCategory, "sin lista")
	require.NoError(t, err)
	_, err = b.QuickAdd(ctx, "Casa", "barrer")
	require.NoError(t, err)

	assert.Equal(t, []string{"Casa", model.DefaultCategory}, b.Categories())
	inDefault := b.TasksIn(model.DefaultCategory)
	require.Len(t, inDefault, 1)
	assert.Equal(t, "sin lista", inDefault[0].Title)
	assert.Empty(t, inDefault[0].Category, "the default label is never stored on the task")
}

func TestEmptyListSurvivesReloadsUntilDeleted(t *testing.T) {
	b, _, _ := newBoard(t)
	ctx := context.Background()

	require.NoError(t, b.CreateList(ctx, "Viaje"))
	assert.Contains(t, b.Categories(), "Viaje")

	for i := 0; i < 3; i++ {
		_, err := b.Reload(ctx)
		require.NoError(t, err)
		assert.Contains(t, b.Categories(), "Viaje")
	}
	assert.Empty(t, b.TasksIn("Viaje"))

	require.NoError(t, b.DeleteList(ctx, "Viaje"))
	_, err := b.Reload(ctx)
	require.NoError(t, err)
	assert.NotContains(t, b.Categories(), "Viaje")

	assert.ErrorIs(t, b.DeleteList(ctx, "Viaje"), model.ErrNotFound)
}

func TestListsArePerUser(t *testing.T) {
	b, _, users := newBoard(t)
	ctx := context.Background()
	require.NoError(t, b.CreateList(ctx, "Privada"))

	users.id = 2
	_, err := b.Reload(ctx)
	require.NoError(t, err)
	assert.NotContains(t, b.Categories(), "Privada")
}

func TestCreateTaskRequiresTitleAndDueDate(t *testing.T) {
	b, repo, _ := newBoard(t)
	ctx := context.Background()

	_, err := b.CreateTask(ctx, model.Task{Title: "x"})
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = b.CreateTask(ctx, model.Task{DueDate: "2025-01-01"})
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = b.QuickAdd(ctx, "Casa", "  ")
	assert.ErrorIs(t, err, model.ErrValidation)

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks, "nothing reaches the repository")
}

func TestFilterAndSplit(t *testing.T) {
	b, _, _ := newBoard(t)
	ctx := context.Background()

	a, err := b.QuickAdd(ctx, "Casa", "a")
	require.NoError(t, err)
	_, err = b.QuickAdd(ctx, "Casa", "b")
	require.NoError(t, err)
	_, err = b.QuickAdd(ctx, "Trabajo", "c")
	require.NoError(t, err)
	_, err = b.SetStatus(ctx, a.ID, model.StatusCompleted)
	require.NoError(t, err)

	assert.Len(t, b.Pending("Casa"), 1)
	assert.Len(t, b.Completed("Casa"), 1)

	require.NoError(t, b.SetFilter("completed"))
	assert.Equal(t, "COMPLETED", b.Filter())
	assert.Equal(t, []string{"Casa"}, b.Categories())
	assert.Len(t, b.Visible(), 1)
	assert.Len(t, b.Tasks(), 3, "Tasks ignores the filter")

	require.NoError(t, b.SetFilter("all"))
	assert.Len(t, b.Visible(), 3)
	assert.Error(t, b.SetFilter("someday"))
}

func TestBoardReloadsOnRepositoryChange(t *testing.T) {
	b, repo, _ := newBoard(t)
	updates := 0
	b.OnChange(func() { updates++ })

	_, err := repo.Create(context.Background(), model.Task{Title: "elsewhere"})
	require.NoError(t, err)

	assert.Len(t, b.Tasks(), 1)
	assert.Equal(t, 1, updates)
}

func TestCategoryVisibility(t *testing.T) {
	b, _, _ := newBoard(t)
	assert.True(t, b.IsCategoryVisible("Casa"))
	assert.False(t, b.ToggleCategoryVisibility("Casa"))
	assert.False(t, b.IsCategoryVisible("Casa"))
	assert.True(t, b.ToggleCategoryVisibility("Casa"))
}

func TestSetStatusStampsOnlyOnFirstCompletion(t *testing.T) {
	b, _, _ := newBoard(t)
	ctx := context.Background()
	b.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	created, err := b.QuickAdd(ctx, "", "x")
	require.NoError(t, err)

	inProgress, err := b.SetStatus(ctx, created.ID, model.StatusInProgress)
	require.NoError(t, err)
	assert.Nil(t, inProgress.CompletedAt)

	done, err := b.SetStatus(ctx, created.ID, model.StatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), *done.CompletedAt)
}
