package repository

import (
	"context"

	"github.com/existflow/taskcore/internal/api"
	"github.com/existflow/taskcore/internal/broadcast"
	"github.com/existflow/taskcore/internal/model"
)

// HTTP is the Repository backed by the remote API
type HTTP struct {
	client  *api.Client
	changes broadcast.Hub[Change]
}

// NewHTTP wraps an API client
func NewHTTP(client *api.Client) *HTTP {
	return &HTTP{client: client}
}

// List implements Repository
func (r *HTTP) List(ctx context.Context) ([]model.Task, error) {
	return r.client.ListTasks(ctx)
}

// Get implements Repository
func (r *HTTP) Get(ctx context.Context, id int64) (*model.Task, error) {
	return r.client.GetTask(ctx, id)
}

// Create implements Repository
func (r *HTTP) Create(ctx context.Context, t model.Task) (*model.Task, error) {
	if err := t.ValidateNew(false); err != nil {
		return nil, err
	}
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	created, err := r.client.CreateTask(ctx, t)
	if err != nil {
		return nil, err
	}
	snap := created.Clone()
	r.changes.Publish(Change{Kind: Created, Task: &snap, ID: created.ID})
	return created, nil
}

// Update implements Repository
func (r *HTTP) Update(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	updated, err := r.client.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	snap := updated.Clone()
	r.changes.Publish(Change{Kind: Updated, Task: &snap, ID: id})
	return updated, nil
}

// Delete implements Repository
func (r *HTTP) Delete(ctx context.Context, id int64) error {
	if err := r.client.DeleteTask(ctx, id); err != nil {
		return err
	}
	r.changes.Publish(Change{Kind: Deleted, ID: id})
	return nil
}

// Subscribe implements Repository
func (r *HTTP) Subscribe(fn func(Change)) broadcast.Handle {
	return r.changes.Subscribe(fn)
}

// Unsubscribe implements Repository
func (r *HTTP) Unsubscribe(h broadcast.Handle) bool {
	return r.changes.Unsubscribe(h)
}
