package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/existflow/taskcore/internal/broadcast"
	"github.com/existflow/taskcore/internal/model"
)

// Memory is an in-process Repository used by mock mode and tests
type Memory struct {
	users UserSource
	now   func() time.Time

	mu     sync.Mutex
	nextID int64
	tasks  map[int64]model.Task

	changes broadcast.Hub[Change]
}

// NewMemory returns an empty store. New tasks are attributed to the user
// reported by users, if it is not nil.
func NewMemory(users UserSource) *Memory {
	return &Memory{
		users: users,
		now:   time.Now,
		tasks: make(map[int64]model.Task),
	}
}

// SetClock replaces time.Now
func (m *Memory) SetClock(now func() time.Time) {
	m.now = now
}

// Seed inserts tasks as they are, keeping their ids. No change is published.
func (m *Memory) Seed(tasks ...model.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range tasks {
		t := tasks[i].Clone()
		if t.ID == 0 {
			m.nextID++
			t.ID = m.nextID
		}
		if t.ID > m.nextID {
			m.nextID = t.ID
		}
		m.tasks[t.ID] = t
	}
}

// List implements Repository. Tasks are returned in id order.
func (m *Memory) List(ctx context.Context) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get implements Repository
func (m *Memory) Get(ctx context.Context, id int64) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, model.ErrNotFound)
	}
	c := t.Clone()
	return &c, nil
}

// Create implements Repository
func (m *Memory) Create(ctx context.Context, t model.Task) (*model.Task, error) {
	if err := t.ValidateNew(false); err != nil {
		return nil, err
	}

	now := m.now()
	t = t.Clone()
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	if t.CreatedBy == 0 && m.users != nil {
		t.CreatedBy = m.users.UserID()
	}
	t.AssignedUsers = dedupeIDs(t.AssignedUsers)
	t.CreatedAt = &now
	t.UpdatedAt = &now
	if t.Status == model.StatusCompleted && t.CompletedAt == nil {
		t.CompletedAt = &now
	}

	m.mu.Lock()
	m.nextID++
	t.ID = m.nextID
	m.tasks[t.ID] = t
	m.mu.Unlock()

	created := t.Clone()
	m.changes.Publish(Change{Kind: Created, Task: &created, ID: t.ID})
	out := t.Clone()
	return &out, nil
}

// Update implements Repository
func (m *Memory) Update(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("task %d: %w", id, model.ErrNotFound)
	}
	prev := t.Clone()
	t.Apply(patch, m.now())
	m.tasks[id] = t
	m.mu.Unlock()

	updated := t.Clone()
	m.changes.Publish(Change{Kind: Updated, Task: &updated, ID: id, Previous: &prev})
	out := t.Clone()
	return &out, nil
}

// Delete implements Repository
func (m *Memory) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("task %d: %w", id, model.ErrNotFound)
	}
	delete(m.tasks, id)
	m.mu.Unlock()

	prev := t.Clone()
	m.changes.Publish(Change{Kind: Deleted, ID: id, Previous: &prev})
	return nil
}

// Subscribe implements Repository
func (m *Memory) Subscribe(fn func(Change)) broadcast.Handle {
	return m.changes.Subscribe(fn)
}

// Unsubscribe implements Repository
func (m *Memory) Unsubscribe(h broadcast.Handle) bool {
	return m.changes.Unsubscribe(h)
}

func dedupeIDs(ids []int64) []int64 {
	if ids == nil {
		return nil
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != 0 && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
