package tui

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/existflow/taskcore/internal/app"
	"github.com/existflow/taskcore/internal/logger"
	"github.com/existflow/taskcore/internal/model"
	"github.com/existflow/taskcore/internal/push"
)

// Pane represents which pane is focused
type Pane int

const (
	PaneSidebar Pane = iota
	PaneTaskList
)

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAddTask
	ModeAddList
	ModeEditTask
	ModeLoginUser
	ModeLoginPassword
	ModeInbox
	ModeHelp
)

// doneDelay keeps a just-completed task in place before it sinks to the
// completed section
const doneDelay = 3 * time.Second

// Model is the main TUI model
type Model struct {
	ctx context.Context
	app *app.App
	log *logger.Logger

	categories []string
	tasks      []model.Task
	notes      []model.Notification
	unread     int
	state      push.State
	user       string

	// refresh is signalled by board, inbox and channel subscriptions
	refresh     chan struct{}
	unsubscribe []func()

	// UI state
	width       int
	height      int
	pane        Pane
	mode        Mode
	catCursor   int
	taskCursor  int
	inboxCursor int

	input     textinput.Model
	loginUser string

	recentlyDone map[int64]time.Time

	message string
}

// NewModel creates the dashboard for a started client
func NewModel(ctx context.Context, a *app.App) Model {
	log := a.Log.Named("tui")
	log.Info("Initializing TUI model")

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50

	m := Model{
		ctx:          ctx,
		app:          a,
		log:          log,
		pane:         PaneSidebar,
		input:        ti,
		recentlyDone: make(map[int64]time.Time),
		refresh:      make(chan struct{}, 1),
	}

	signal := func() {
		select {
		case m.refresh <- struct{}{}:
		default:
		}
	}
	hb := a.Board.OnChange(signal)
	hi := a.Inbox.OnChange(signal)
	hc := a.Channel.OnStateChange(func(push.State) { signal() })
	hs := a.Session.OnChange(func(*model.Session) { signal() })
	m.unsubscribe = []func(){
		func() { a.Board.Unsubscribe(hb) },
		func() { a.Inbox.Unsubscribe(hi) },
		func() { a.Channel.RemoveStateHandler(hc) },
		func() { a.Session.Unsubscribe(hs) },
	}

	m.loadData()
	if m.user == "" {
		m.startLogin()
	}
	return m
}

// Close detaches the model from the client components. Safe to call more
// than once.
func (m Model) Close() {
	for _, remove := range m.unsubscribe {
		remove()
	}
}

// loadData copies the current board, inbox and channel state into the model
func (m *Model) loadData() {
	m.state = m.app.Channel.State()
	m.user = ""
	if sess := m.app.Session.Current(); sess != nil {
		m.user = sess.Username
	}

	m.categories = m.app.Board.Categories()
	if m.catCursor >= len(m.categories) {
		m.catCursor = max(0, len(m.categories)-1)
	}

	m.tasks = nil
	if cat := m.currentCategory(); cat != "" {
		m.tasks = m.app.Board.TasksIn(cat)
		m.sortTasks()
	}
	if m.taskCursor >= len(m.tasks) {
		m.taskCursor = max(0, len(m.tasks)-1)
	}

	m.notes = m.app.Inbox.Notifications()
	m.unread = m.app.Inbox.UnreadCount()
	if m.inboxCursor >= len(m.notes) {
		m.inboxCursor = max(0, len(m.notes)-1)
	}
}

// sortTasks puts open tasks first. Recently completed tasks stay with the
// open ones until doneDelay has passed.
func (m *Model) sortTasks() {
	done := func(t model.Task) bool {
		if !t.IsCompleted() {
			return false
		}
		if at, ok := m.recentlyDone[t.ID]; ok && time.Since(at) < doneDelay {
			return false
		}
		return true
	}
	slices.SortStableFunc(m.tasks, func(a, b model.Task) int {
		da, db := done(a), done(b)
		if da != db {
			if da {
				return 1
			}
			return -1
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func (m *Model) currentCategory() string {
	if m.catCursor < len(m.categories) {
		return m.categories[m.catCursor]
	}
	return ""
}

func (m *Model) currentTask() *model.Task {
	if m.taskCursor < len(m.tasks) {
		return &m.tasks[m.taskCursor]
	}
	return nil
}
