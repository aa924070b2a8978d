package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/taskcore/internal/model"
)

type sessionVar struct {
	mu   sync.Mutex
	sess *model.Session
}

func (s *sessionVar) Current() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

func (s *sessionVar) set(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == 0 {
		s.sess = nil
		return
	}
	s.sess = &model.Session{UserID: id, Username: "u", Token: "t"}
}

// fakeReloader returns tasks and counts calls. during runs inside Reload
// to simulate something happening while the request is in flight.
type fakeReloader struct {
	tasks  []model.Task
	err    error
	calls  int
	during func()
}

func (f *fakeReloader) Reload(ctx context.Context) ([]model.Task, error) {
	f.calls++
	if f.during != nil {
		f.during()
	}
	return f.tasks, f.err
}

func ptr[T any](v T) *T { return &v }

func assigned(id, createdBy int64, assignees ...int64) model.Task {
	return model.Task{ID: id, Title: "t", Status: model.StatusPending, CreatedBy: createdBy, AssignedUsers: assignees}
}

func assignedEvent(t model.Task, recipient int64) model.Event {
	ev := model.NewTaskEvent(model.EventTaskAssigned, t)
	ev.Recipient = recipient
	return ev
}

func setup(me int64) (*Reconciler, *sessionVar, *fakeReloader) {
	sessions := &sessionVar{}
	sessions.set(me)
	reloader := &fakeReloader{}
	return New(sessions, reloader, nil), sessions, reloader
}

func TestAssignedEventRecordsOneNotificationAndReloads(t *testing.T) {
	r, _, reloader := setup(1)
	changes := 0
	r.OnChange(func() { changes++ })

	r.Handle(context.Background(), assignedEvent(assigned(7, 2, 1), 1))

	notes := r.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, int64(7), notes[0].Task.ID)
	assert.Equal(t, model.EventTaskAssigned, notes[0].Type)
	assert.False(t, notes[0].Read)
	assert.Equal(t, 1, r.UnreadCount())
	assert.Equal(t, 1, reloader.calls)
	assert.Positive(t, changes)
}

func TestLegacyAssignedToCounts(t *testing.T) {
	r, _, _ := setup(1)
	task := model.Task{ID: 3, Title: "x", CreatedBy: 2, AssignedTo: ptr(int64(1))}

	r.Handle(context.Background(), assignedEvent(task, 1))
	assert.Equal(t, 1, r.UnreadCount())
}

func TestNoSelfAssignmentNotification(t *testing.T) {
	r, _, reloader := setup(1)

	r.Handle(context.Background(), assignedEvent(assigned(7, 1, 1), 1))

	assert.Empty(t, r.Notifications())
	assert.Zero(t, r.UnreadCount())
	assert.Equal(t, 1, reloader.calls, "reload happens regardless")
}

func TestAssignmentToSomeoneElseOnlyReloads(t *testing.T) {
	r, _, reloader := setup(1)

	r.Handle(context.Background(), assignedEvent(assigned(7, 2, 3), 1))

	assert.Empty(t, r.Notifications())
	assert.Equal(t, 1, reloader.calls)
}

func TestOtherEventTypesOnlyReload(t *testing.T) {
	r, _, reloader := setup(1)

	for _, typ := range []model.EventType{model.EventTaskCreated, model.EventTaskUpdated} {
		ev := model.NewTaskEvent(typ, assigned(7, 2, 1))
		ev.Recipient = 1
		r.Handle(context.Background(), ev)
	}
	del := model.NewDeletedEvent(7)
	del.Recipient = 1
	r.Handle(context.Background(), del)

	assert.Equal(t, 3, reloader.calls)
	// the first reload seeds from an empty task list
	assert.Empty(t, r.Notifications())
}

func TestDuplicateAssignmentIsRecordedOnce(t *testing.T) {
	r, _, _ := setup(1)

	r.Handle(context.Background(), assignedEvent(assigned(7, 2, 1), 1))
	r.Handle(context.Background(), assignedEvent(assigned(7, 2, 1), 1))

	assert.Len(t, r.Notifications(), 1)
}

func TestNewestFirstWithMonotonicIDs(t *testing.T) {
	r, _, _ := setup(1)

	r.Handle(context.Background(), assignedEvent(assigned(7, 2, 1), 1))
	r.Handle(context.Background(), assignedEvent(assigned(8, 2, 1), 1))

	notes := r.Notifications()
	require.Len(t, notes, 2)
	assert.Equal(t, int64(8), notes[0].Task.ID)
	assert.Greater(t, notes[0].ID, notes[1].ID)
}

func TestEventsForAnotherIdentityAreIgnored(t *testing.T) {
	r, sessions, reloader := setup(1)

	r.Handle(context.Background(), assignedEvent(assigned(7, 2, 1, 5), 5))
	assert.Empty(t, r.Notifications())
	assert.Zero(t, reloader.calls)

	sessions.set(0)
	r.Handle(context.Background(), assignedEvent(assigned(7, 2, 1), 1))
	assert.Empty(t, r.Notifications())
	assert.Zero(t, reloader.calls)
}

func TestDismissDecrementsUnreadOnlyIfUnread(t *testing.T) {
	r, _, _ := setup(1)
	r.Handle(context.Background(), assignedEvent(assigned(7, 2, 1), 1))
	r.Handle(context.Background(), assignedEvent(assigned(8, 2, 1), 1))
	notes := r.Notifications()
	require.Len(t, notes, 2)

	require.True(t, r.MarkRead(notes[0].ID))
	assert.Equal(t, 1, r.UnreadCount())

	assert.True(t, r.Dismiss(notes[0].ID))
	assert.Equal(t, 1, r.UnreadCount(), "dismissing a read entry leaves unread alone")

	assert.True(t, r.Dismiss(notes[1].ID))
	assert.Zero(t, r.UnreadCount())
	assert.Empty(t, r.Notifications())

	assert.False(t, r.Dismiss(notes[1].ID))
	assert.False(t, r.MarkRead(99))
}

func TestOpeningInboxZeroesUnread(t *testing.T) {
	r, _, _ := setup(1)
	r.Handle(context.Background(), assignedEvent(assigned(7, 2, 1), 1))
	r.Handle(context.Background(), assignedEvent(assigned(8, 2, 1), 1))

	assert.Equal(t, 2, r.MarkAllRead())
	assert.Zero(t, r.UnreadCount())
	assert.Len(t, r.Notifications(), 2, "entries stay after being read")
	assert.Zero(t, r.MarkAllRead())
}

func TestSeedingRunsOncePerSession(t *testing.T) {
	r, _, reloader := setup(1)
	reloader.tasks = []model.Task{
		assigned(1, 2, 1),    // assigned by someone else
		assigned(2, 1, 1),    // self assigned
		assigned(3, 2, 4),    // not mine
		assigned(4, 3, 1, 4), // shared
	}

	require.NoError(t, r.Sync(context.Background()))
	assert.True(t, r.Seeded())
	assert.Len(t, r.Notifications(), 2)

	reloader.tasks = append(reloader.tasks, assigned(5, 2, 1))
	require.NoError(t, r.Sync(context.Background()))
	assert.Len(t, r.Notifications(), 2, "later reloads do not seed again")
}

func TestSeedingSkipsTasksAlreadyInInbox(t *testing.T) {
	r, _, reloader := setup(1)
	reloader.tasks = []model.Task{assigned(7, 2, 1)}

	// the live event arrives before the first load completes
	r.Handle(context.Background(), assignedEvent(assigned(7, 2, 1), 1))

	assert.Len(t, r.Notifications(), 1)
	assert.True(t, r.Seeded())
}

func TestStaleReloadIsIgnored(t *testing.T) {
	r, sessions, reloader := setup(1)
	reloader.tasks = []model.Task{assigned(7, 2, 1)}
	reloader.during = func() { sessions.set(2) }

	require.NoError(t, r.Sync(context.Background()))
	assert.Empty(t, r.Notifications())
	assert.False(t, r.Seeded())
}

func TestReloadFailureKeepsRecordedEntry(t *testing.T) {
	r, _, reloader := setup(1)
	reloader.err = errors.New("offline")

	r.Handle(context.Background(), assignedEvent(assigned(7, 2, 1), 1))
	assert.Len(t, r.Notifications(), 1)
	assert.False(t, r.Seeded())
	assert.Error(t, r.Sync(context.Background()))
}

func TestResetAndIdentityChangeClearInbox(t *testing.T) {
	r, sessions, _ := setup(1)
	r.Handle(context.Background(), assignedEvent(assigned(7, 2, 1), 1))
	require.Len(t, r.Notifications(), 1)

	r.Reset()
	assert.Empty(t, r.Notifications())
	assert.False(t, r.Seeded())

	r.Handle(context.Background(), assignedEvent(assigned(7, 2, 1), 1))
	sessions.set(2)
	r.Handle(context.Background(), assignedEvent(assigned(9, 3, 2), 2))

	notes := r.Notifications()
	require.Len(t, notes, 1, "entries of the previous user are dropped")
	assert.Equal(t, int64(9), notes[0].Task.ID)
}

func TestSyncWithoutSession(t *testing.T) {
	r, sessions, _ := setup(1)
	sessions.set(0)
	assert.ErrorIs(t, r.Sync(context.Background()), model.ErrNoSession)
}
