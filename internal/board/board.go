// Package board holds the loaded task list and the category view built
// on top of it.
package board

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/existflow/taskcore/internal/broadcast"
	"github.com/existflow/taskcore/internal/logger"
	"github.com/existflow/taskcore/internal/model"
	"github.com/existflow/taskcore/internal/repository"
)

// FilterAll disables status filtering
const FilterAll = "ALL"

// ListStore persists the explicitly created lists of each user
type ListStore interface {
	ListNames(ctx context.Context, userID int64) ([]string, error)
	AddList(ctx context.Context, userID int64, name string) (bool, error)
	RemoveList(ctx context.Context, userID int64, name string) (bool, error)
}

const reloadTimeout = 30 * time.Second

// Board caches the task list of the current user
type Board struct {
	repo  repository.Repository
	lists ListStore
	users repository.UserSource
	log   *logger.Logger
	now   func() time.Time

	mu     sync.RWMutex
	tasks  []model.Task
	names  []string
	filter string
	hidden map[string]bool
	epoch  uint64 // bumped by Reset

	changes    broadcast.Hub[struct{}]
	repoHandle broadcast.Handle
}

// New creates a board and starts following repository changes
func New(repo repository.Repository, lists ListStore, users repository.UserSource, log *logger.Logger) *Board {
	b := &Board{
		repo:   repo,
		lists:  lists,
		users:  users,
		log:    log.Named("board"),
		now:    time.Now,
		filter: FilterAll,
		hidden: make(map[string]bool),
	}
	b.repoHandle = repo.Subscribe(b.onRepositoryChange)
	return b
}

// Close stops following the repository
func (b *Board) Close() {
	b.repo.Unsubscribe(b.repoHandle)
}

func (b *Board) onRepositoryChange(c repository.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()
	if _, err := b.Reload(ctx); err != nil {
		b.log.Warn("reload after change failed",
			logger.F("change", c.Kind),
			logger.F("task_id", c.ID),
			logger.F("error", err))
	}
}

// Reload fetches every task and the user's lists. A result that arrives
// after the user changed is discarded.
func (b *Board) Reload(ctx context.Context) ([]model.Task, error) {
	userID := b.users.UserID()
	if userID == 0 {
		return nil, model.ErrNoSession
	}
	b.mu.RLock()
	epoch := b.epoch
	b.mu.RUnlock()

	tasks, err := b.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	var names []string
	if b.lists != nil {
		names, err = b.lists.ListNames(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	b.mu.Lock()
	if b.epoch != epoch || b.users.UserID() != userID {
		b.mu.Unlock()
		b.log.Debug("discarding stale reload", logger.F("user_id", userID))
		return nil, model.ErrNoSession
	}
	b.tasks = tasks
	b.names = names
	b.mu.Unlock()

	b.log.Debug("reloaded", logger.F("tasks", len(tasks)), logger.F("lists", len(names)))
	b.changes.Publish(struct{}{})
	return cloneAll(tasks), nil
}

// Reset drops cached state, used when the session changes
func (b *Board) Reset() {
	b.mu.Lock()
	b.epoch++
	b.tasks = nil
	b.names = nil
	b.hidden = make(map[string]bool)
	b.mu.Unlock()
	b.changes.Publish(struct{}{})
}

// OnChange subscribes to view updates
func (b *Board) OnChange(fn func()) broadcast.Handle {
	return b.changes.Subscribe(func(struct{}) { fn() })
}

// Unsubscribe removes a view update handler
func (b *Board) Unsubscribe(h broadcast.Handle) bool {
	return b.changes.Unsubscribe(h)
}

// Tasks returns every loaded task, ignoring the filter
func (b *Board) Tasks() []model.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneAll(b.tasks)
}

// Task returns a loaded task by id
func (b *Board) Task(id int64) (model.Task, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			return b.tasks[i].Clone(), true
		}
	}
	return model.Task{}, false
}

// SetFilter shows only tasks with the given status, or all with FilterAll
func (b *Board) SetFilter(filter string) error {
	filter = strings.TrimSpace(filter)
	if filter == "" || strings.EqualFold(filter, FilterAll) {
		filter = FilterAll
	} else {
		st, err := model.ParseStatus(filter)
		if err != nil {
			return err
		}
		filter = string(st)
	}

	b.mu.Lock()
	b.filter = filter
	b.mu.Unlock()
	b.changes.Publish(struct{}{})
	return nil
}

// Filter returns the active status filter
func (b *Board) Filter() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter
}

// visibleLocked applies the status filter. Callers hold b.mu.
func (b *Board) visibleLocked() []model.Task {
	if b.filter == FilterAll {
		return b.tasks
	}
	out := make([]model.Task, 0, len(b.tasks))
	for i := range b.tasks {
		if string(b.tasks[i].Status) == b.filter {
			out = append(out, b.tasks[i])
		}
	}
	return out
}

// Visible returns the tasks passing the status filter
func (b *Board) Visible() []model.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneAll(b.visibleLocked())
}

// Categories returns the sorted union of the categories of the filtered
// tasks and the explicit lists
func (b *Board) Categories() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return model.MergeCategories(b.visibleLocked(), b.names)
}

// Lists returns the explicitly created lists
func (b *Board) Lists() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.names)
}

// TasksIn returns the filtered tasks of one category
func (b *Board) TasksIn(category string) []model.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []model.Task
	for _, t := range b.visibleLocked() {
		if t.CategoryOrDefault() == category {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Pending returns the tasks of category that are not completed
func (b *Board) Pending(category string) []model.Task {
	return slices.DeleteFunc(b.TasksIn(category), func(t model.Task) bool { return t.IsCompleted() })
}

// Completed returns the completed tasks of category
func (b *Board) Completed(category string) []model.Task {
	return slices.DeleteFunc(b.TasksIn(category), func(t model.Task) bool { return !t.IsCompleted() })
}

// ToggleCategoryVisibility collapses or expands a category
func (b *Board) ToggleCategoryVisibility(category string) bool {
	b.mu.Lock()
	b.hidden[category] = !b.hidden[category]
	visible := !b.hidden[category]
	b.mu.Unlock()
	b.changes.Publish(struct{}{})
	return visible
}

// IsCategoryVisible reports whether category is expanded
func (b *Board) IsCategoryVisible(category string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.hidden[category]
}

// CreateTask creates a fully specified task. Title and due date are required.
func (b *Board) CreateTask(ctx context.Context, t model.Task) (*model.Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	t.Category = model.NormalizeCategory(t.Category)
	if err := t.ValidateNew(true); err != nil {
		return nil, err
	}
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	if t.Status == model.StatusCompleted && t.CompletedAt == nil {
		now := b.now()
		t.CompletedAt = &now
	}
	return b.repo.Create(ctx, t)
}

// QuickAdd creates a pending task with only a title in category
func (b *Board) QuickAdd(ctx context.Context, category, title string) (*model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, model.NewValidationError("title", "title is required")
	}
	return b.repo.Create(ctx, model.Task{
		Title:    title,
		Status:   model.StatusPending,
		Category: model.NormalizeCategory(category),
	})
}

// UpdateTask applies a partial update
func (b *Board) UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error) {
	if patch.Category != nil {
		c := model.NormalizeCategory(*patch.Category)
		patch.Category = &c
	}
	if patch.IsEmpty() {
		return nil, model.NewValidationError("patch", "nothing to update")
	}
	return b.repo.Update(ctx, id, patch)
}

// SetStatus moves a task to status. Completing a task for the first time
// stamps completedAt.
func (b *Board) SetStatus(ctx context.Context, id int64, status model.Status) (*model.Task, error) {
	if !status.Valid() {
		return nil, model.NewValidationError("status", "unknown status "+string(status))
	}
	t, err := b.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return b.repo.Update(ctx, id, model.StatusPatch(t, status, b.now()))
}

// ToggleComplete flips a task between COMPLETED and PENDING. Every other
// field is left as it is and completedAt is never cleared.
func (b *Board) ToggleComplete(ctx context.Context, id int64) (*model.Task, error) {
	t, err := b.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	next := model.StatusCompleted
	if t.IsCompleted() {
		next = model.StatusPending
	}
	return b.repo.Update(ctx, id, model.StatusPatch(t, next, b.now()))
}

// DeleteTask removes a task
func (b *Board) DeleteTask(ctx context.Context, id int64) error {
	return b.repo.Delete(ctx, id)
}

// CreateList adds an explicit, possibly empty, list
func (b *Board) CreateList(ctx context.Context, name string) error {
	userID := b.users.UserID()
	if userID == 0 {
		return model.ErrNoSession
	}
	if b.lists == nil {
		return fmt.Errorf("no list store configured")
	}
	if _, err := b.lists.AddList(ctx, userID, name); err != nil {
		return err
	}
	return b.refreshLists(ctx, userID)
}

// DeleteList removes an explicit list. Tasks keep their category, so the
// label stays visible while tasks still use it.
func (b *Board) DeleteList(ctx context.Context, name string) error {
	userID := b.users.UserID()
	if userID == 0 {
		return model.ErrNoSession
	}
	if b.lists == nil {
		return fmt.Errorf("no list store configured")
	}
	removed, err := b.lists.RemoveList(ctx, userID, name)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("list %q: %w", name, model.ErrNotFound)
	}
	return b.refreshLists(ctx, userID)
}

func (b *Board) refreshLists(ctx context.Context, userID int64) error {
	names, err := b.lists.ListNames(ctx, userID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.names = names
	b.mu.Unlock()
	b.changes.Publish(struct{}{})
	return nil
}

func (b *Board) lookup(ctx context.Context, id int64) (model.Task, error) {
	if t, ok := b.Task(id); ok {
		return t, nil
	}
	t, err := b.repo.Get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	return *t, nil
}

func cloneAll(tasks []model.Task) []model.Task {
	if tasks == nil {
		return nil
	}
	out := make([]model.Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}
