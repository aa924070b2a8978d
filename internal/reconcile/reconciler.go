// Package reconcile turns push events into inbox entries and task reloads.
package reconcile

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/existflow/taskcore/internal/broadcast"
	"github.com/existflow/taskcore/internal/logger"
	"github.com/existflow/taskcore/internal/model"
)

// SessionSource reports the active session, nil when logged out
type SessionSource interface {
	Current() *model.Session
}

// Reloader refreshes the task list
type Reloader interface {
	Reload(ctx context.Context) ([]model.Task, error)
}

const reloadTimeout = 30 * time.Second

// Reconciler keeps the notification inbox of the current user. Entries are
// newest first and unique per task id.
type Reconciler struct {
	sessions SessionSource
	reloader Reloader
	log      *logger.Logger
	now      func() time.Time

	mu     sync.Mutex
	owner  int64
	inbox  []model.Notification
	nextID int64
	seeded bool
	epoch  uint64 // bumped whenever the inbox is dropped

	changes broadcast.Hub[struct{}]
}

// New creates an empty reconciler
func New(sessions SessionSource, reloader Reloader, log *logger.Logger) *Reconciler {
	return &Reconciler{
		sessions: sessions,
		reloader: reloader,
		log:      log.Named("reconcile"),
		now:      time.Now,
	}
}

// HandleEvent is the channel subscription callback
func (r *Reconciler) HandleEvent(ev model.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()
	r.Handle(ctx, ev)
}

// Handle processes one push event: it records an inbox entry for tasks
// assigned to the current user by someone else, then reloads the task list.
// Events addressed to another identity are ignored.
func (r *Reconciler) Handle(ctx context.Context, ev model.Event) {
	sess := r.sessions.Current()
	if sess == nil || sess.UserID != ev.Recipient {
		r.log.Debug("ignoring event for another identity",
			logger.F("type", ev.Type),
			logger.F("recipient", ev.Recipient))
		return
	}
	me := sess.UserID
	epoch, ok := r.claim(me)
	if !ok {
		return
	}

	if ev.Type == model.EventTaskAssigned && ev.Task != nil {
		if relevant(ev.Task, me) {
			if r.record(epoch, *ev.Task, ev.Type) {
				r.log.Info("task assigned", logger.F("task_id", ev.Task.ID), logger.F("by", ev.Task.CreatedBy))
			}
		}
	}

	r.reload(ctx, me, epoch)
}

// Sync reloads the task list for the current session and runs the seeding
// pass if it has not run yet
func (r *Reconciler) Sync(ctx context.Context) error {
	sess := r.sessions.Current()
	if sess == nil {
		return model.ErrNoSession
	}
	epoch, ok := r.claim(sess.UserID)
	if !ok {
		return model.ErrNoSession
	}
	return r.reload(ctx, sess.UserID, epoch)
}

// claim makes me the inbox owner and returns the current epoch. It fails
// if the session moved on in the meantime; a Reset after the check bumps
// the epoch and so still fences the caller.
func (r *Reconciler) claim(me int64) (uint64, bool) {
	r.mu.Lock()
	r.adopt(me)
	epoch := r.epoch
	r.mu.Unlock()

	if sess := r.sessions.Current(); sess == nil || sess.UserID != me {
		return 0, false
	}
	return epoch, true
}

func (r *Reconciler) reload(ctx context.Context, me int64, epoch uint64) error {
	tasks, err := r.reloader.Reload(ctx)
	if err != nil {
		r.log.Warn("reload failed", logger.F("error", err))
		return err
	}

	// The session may have changed while the request was in flight
	if sess := r.sessions.Current(); sess == nil || sess.UserID != me {
		r.log.Debug("discarding reload for previous identity", logger.F("user_id", me))
		return nil
	}

	r.mu.Lock()
	if r.epoch != epoch {
		r.mu.Unlock()
		return nil
	}
	added, seeded := r.seedLocked(me, tasks)
	r.mu.Unlock()

	if seeded {
		r.log.Debug("seeded inbox", logger.F("user_id", me), logger.F("added", added))
		r.changes.Publish(struct{}{})
	}
	return nil
}

// Seed synthesizes inbox entries for tasks assigned to me by someone else.
// It runs once per session; later calls are no-ops.
func (r *Reconciler) Seed(me int64, tasks []model.Task) {
	r.mu.Lock()
	r.adopt(me)
	added, seeded := r.seedLocked(me, tasks)
	r.mu.Unlock()

	if seeded {
		r.log.Debug("seeded inbox", logger.F("user_id", me), logger.F("added", added))
		r.changes.Publish(struct{}{})
	}
}

// seedLocked runs the seeding pass unless it already ran. Callers hold r.mu.
func (r *Reconciler) seedLocked(me int64, tasks []model.Task) (int, bool) {
	if r.seeded {
		return 0, false
	}
	r.seeded = true

	added := 0
	for i := range tasks {
		if relevant(&tasks[i], me) && r.addLocked(tasks[i], model.EventTaskAssigned) {
			added++
		}
	}
	return added, true
}

func relevant(t *model.Task, me int64) bool {
	return t.IsAssignedTo(me) && t.CreatedBy != me
}

// record adds an entry unless the task already has one or the inbox was
// dropped since epoch
func (r *Reconciler) record(epoch uint64, t model.Task, typ model.EventType) bool {
	r.mu.Lock()
	added := r.epoch == epoch && r.addLocked(t, typ)
	r.mu.Unlock()

	if added {
		r.changes.Publish(struct{}{})
	}
	return added
}

// adopt resets the inbox when it belongs to another user. Callers hold r.mu.
func (r *Reconciler) adopt(me int64) {
	if r.owner == me {
		return
	}
	r.owner = me
	r.inbox = nil
	r.seeded = false
	r.epoch++
}

// addLocked prepends an entry. Callers hold r.mu.
func (r *Reconciler) addLocked(t model.Task, typ model.EventType) bool {
	if slices.ContainsFunc(r.inbox, func(n model.Notification) bool { return n.Task.ID == t.ID }) {
		return false
	}
	r.nextID++
	n := model.Notification{
		ID:        r.nextID,
		Task:      t.Clone(),
		Type:      typ,
		Timestamp: r.now(),
	}
	r.inbox = append([]model.Notification{n}, r.inbox...)
	return true
}

// Reset empties the inbox and re-arms seeding, used on session change
func (r *Reconciler) Reset() {
	r.mu.Lock()
	r.owner = 0
	r.inbox = nil
	r.seeded = false
	r.epoch++
	r.mu.Unlock()
	r.changes.Publish(struct{}{})
}

// Notifications returns the inbox, newest first
func (r *Reconciler) Notifications() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Notification, len(r.inbox))
	for i, n := range r.inbox {
		n.Task = n.Task.Clone()
		out[i] = n
	}
	return out
}

// UnreadCount returns the number of unread entries
func (r *Reconciler) UnreadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return model.CountUnread(r.inbox)
}

// MarkRead marks one entry read. It reports false for unknown ids.
func (r *Reconciler) MarkRead(id int64) bool {
	r.mu.Lock()
	found, changed := false, false
	for i := range r.inbox {
		if r.inbox[i].ID == id {
			found = true
			changed = !r.inbox[i].Read
			r.inbox[i].Read = true
			break
		}
	}
	r.mu.Unlock()

	if changed {
		r.changes.Publish(struct{}{})
	}
	return found
}

// MarkAllRead marks every entry read, as happens when the inbox is opened.
// It returns how many entries changed.
func (r *Reconciler) MarkAllRead() int {
	r.mu.Lock()
	n := 0
	for i := range r.inbox {
		if !r.inbox[i].Read {
			r.inbox[i].Read = true
			n++
		}
	}
	r.mu.Unlock()

	if n > 0 {
		r.changes.Publish(struct{}{})
	}
	return n
}

// Dismiss removes an entry. It reports false for unknown ids.
func (r *Reconciler) Dismiss(id int64) bool {
	r.mu.Lock()
	idx := slices.IndexFunc(r.inbox, func(n model.Notification) bool { return n.ID == id })
	if idx >= 0 {
		r.inbox = slices.Delete(r.inbox, idx, idx+1)
	}
	r.mu.Unlock()

	if idx < 0 {
		return false
	}
	r.changes.Publish(struct{}{})
	return true
}

// Seeded reports whether the seeding pass ran for the current inbox
func (r *Reconciler) Seeded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seeded
}

// OnChange subscribes to inbox changes
func (r *Reconciler) OnChange(fn func()) broadcast.Handle {
	return r.changes.Subscribe(func(struct{}) { fn() })
}

// Unsubscribe removes an inbox change handler
func (r *Reconciler) Unsubscribe(h broadcast.Handle) bool {
	return r.changes.Unsubscribe(h)
}
