// Package repository is the CRUD façade over the task collection.
package repository

import (
	"context"

	"github.com/existflow/taskcore/internal/broadcast"
	"github.com/existflow/taskcore/internal/model"
)

// ChangeKind says what happened to a task
type ChangeKind int

const (
	Created ChangeKind = iota
	Updated
	Deleted
)

func (k ChangeKind) String() string {
	switch k {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is broadcast after every successful mutation. Deletions carry
// only the id.
type Change struct {
	Kind ChangeKind
	Task *model.Task
	ID   int64

	// Previous holds the task before an update, when known
	Previous *model.Task
}

// Repository is implemented by the remote and in-memory task stores
type Repository interface {
	List(ctx context.Context) ([]model.Task, error)
	Get(ctx context.Context, id int64) (*model.Task, error)
	Create(ctx context.Context, t model.Task) (*model.Task, error)
	Update(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, id int64) error

	Subscribe(fn func(Change)) broadcast.Handle
	Unsubscribe(h broadcast.Handle) bool
}

// UserSource reports who is acting
type UserSource interface {
	UserID() int64
}
