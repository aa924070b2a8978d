package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/existflow/taskcore/internal/logger"
	"github.com/existflow/taskcore/internal/model"
)

// tickMsg is sent every second for time updates
type tickMsg time.Time

// refreshMsg is sent when the board, the inbox, the channel or the session changed
type refreshMsg struct{}

// loginMsg carries the result of a login started from the dashboard
type loginMsg struct {
	err error
}

// reloadMsg carries the result of a manual refresh
type reloadMsg struct {
	err error
}

// Init initializes the model with a tick command
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), m.waitForRefresh()}
	if m.mode == ModeLoginUser {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

func tickCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForRefresh listens for change signals from the client components
func (m Model) waitForRefresh() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.refresh:
			return refreshMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		needsRefresh := false
		for id, at := range m.recentlyDone {
			if time.Since(at) >= doneDelay {
				delete(m.recentlyDone, id)
				needsRefresh = true
			}
		}
		if needsRefresh {
			m.loadData()
		}
		return m, tickCmd()

	case refreshMsg:
		wasLoggedIn := m.user != ""
		m.loadData()
		if wasLoggedIn && m.user == "" && m.mode != ModeLoginUser && m.mode != ModeLoginPassword {
			m.message = "Session ended, please log in again"
			cmd := m.startLogin()
			return m, tea.Batch(cmd, m.waitForRefresh())
		}
		return m, m.waitForRefresh()

	case loginMsg:
		if msg.err != nil {
			m.log.Warn("Login failed", logger.F("error", msg.err))
			m.message = loginFailure(msg.err)
			cmd := m.startLogin()
			return m, cmd
		}
		m.mode = ModeNormal
		m.loadData()
		m.message = fmt.Sprintf("Welcome, %s", m.user)
		return m, nil

	case reloadMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Refresh failed: %v", msg.err)
		} else {
			m.message = "Refreshed"
		}
		m.loadData()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeAddTask, ModeAddList, ModeEditTask, ModeLoginUser, ModeLoginPassword:
			return m.updateInput(msg)
		case ModeInbox:
			return m.updateInbox(msg)
		case ModeHelp:
			m.mode = ModeNormal
			return m, nil
		}
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

// handleNormalKeys handles key presses in normal mode
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Tab):
		if m.pane == PaneSidebar {
			m.pane = PaneTaskList
		} else {
			m.pane = PaneSidebar
		}

	case key.Matches(msg, keys.Left):
		m.pane = PaneSidebar

	case key.Matches(msg, keys.Right):
		m.pane = PaneTaskList

	case key.Matches(msg, keys.Up):
		m.handleUp()

	case key.Matches(msg, keys.Down):
		m.handleDown()

	case key.Matches(msg, keys.Add):
		return m.startInput(ModeAddTask, "", "Enter task...")

	case key.Matches(msg, keys.List):
		return m.startInput(ModeAddList, "", "Enter list name...")

	case key.Matches(msg, keys.Edit):
		if t := m.currentTask(); t != nil && m.pane == PaneTaskList {
			return m.startInput(ModeEditTask, t.Title, "Edit task...")
		}

	case key.Matches(msg, keys.Done), key.Matches(msg, keys.Enter):
		if m.pane == PaneSidebar && key.Matches(msg, keys.Enter) {
			m.pane = PaneTaskList
			break
		}
		m.handleToggleDone()

	case key.Matches(msg, keys.Status):
		m.handleNextStatus()

	case key.Matches(msg, keys.Delete):
		m.handleDelete()

	case key.Matches(msg, keys.Hide):
		if cat := m.currentCategory(); cat != "" {
			if m.app.Board.ToggleCategoryVisibility(cat) {
				m.message = fmt.Sprintf("Expanded %s", cat)
			} else {
				m.message = fmt.Sprintf("Collapsed %s", cat)
			}
		}

	case key.Matches(msg, keys.Filter):
		next := nextFilter(m.app.Board.Filter())
		if err := m.app.Board.SetFilter(next); err != nil {
			m.message = err.Error()
		} else {
			m.catCursor, m.taskCursor = 0, 0
			m.loadData()
			m.message = "Filter: " + next
		}

	case key.Matches(msg, keys.Inbox):
		m.mode = ModeInbox
		m.inboxCursor = 0
		if n := m.app.Inbox.MarkAllRead(); n > 0 {
			m.log.Debug("Inbox opened", logger.F("marked_read", n))
		}
		m.loadData()

	case key.Matches(msg, keys.Help):
		m.mode = ModeHelp

	case key.Matches(msg, keys.Logout):
		m.app.Logout()
		m.loadData()
		m.message = "Logged out"
		cmd := m.startLogin()
		return m, cmd

	case key.Matches(msg, keys.Refresh):
		return m, m.reloadCmd()
	}

	return m, nil
}

func (m *Model) handleUp() {
	if m.pane == PaneSidebar {
		if m.catCursor > 0 {
			m.catCursor--
			m.taskCursor = 0
			m.loadData()
		}
	} else if m.taskCursor > 0 {
		m.taskCursor--
	}
}

func (m *Model) handleDown() {
	if m.pane == PaneSidebar {
		if m.catCursor < len(m.categories)-1 {
			m.catCursor++
			m.taskCursor = 0
			m.loadData()
		}
	} else if m.taskCursor < len(m.tasks)-1 {
		m.taskCursor++
	}
}

func (m Model) startInput(mode Mode, value, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.input.EchoMode = textinput.EchoNormal
	m.input.SetValue(value)
	m.input.Placeholder = placeholder
	m.input.Focus()
	m.input.CursorEnd()
	return m, textinput.Blink
}

// startLogin switches to the username prompt
func (m *Model) startLogin() tea.Cmd {
	m.mode = ModeLoginUser
	m.loginUser = ""
	m.input.EchoMode = textinput.EchoNormal
	m.input.SetValue("")
	m.input.Placeholder = "Username"
	m.input.Focus()
	return textinput.Blink
}

func (m Model) loginCmd(username, password string) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		_, err := a.Login(ctx, username, password)
		return loginMsg{err: err}
	}
}

func (m Model) reloadCmd() tea.Cmd {
	a, ctx := m.app, m.ctx
	if a.Session.Current() == nil {
		return nil
	}
	return func() tea.Msg {
		return reloadMsg{err: a.Inbox.Sync(ctx)}
	}
}

func loginFailure(err error) string {
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		return "Invalid username or password"
	case errors.Is(err, model.ErrValidation):
		return err.Error()
	default:
		return fmt.Sprintf("Login failed: %v", err)
	}
}

func (m *Model) handleToggleDone() {
	t := m.currentTask()
	if m.pane != PaneTaskList || t == nil {
		return
	}
	updated, err := m.app.Board.ToggleComplete(m.ctx, t.ID)
	if err != nil {
		m.message = fmt.Sprintf("Error: %v", err)
		return
	}
	if updated.IsCompleted() {
		m.recentlyDone[updated.ID] = time.Now()
		m.message = fmt.Sprintf("Completed: %s", updated.Title)
	} else {
		delete(m.recentlyDone, updated.ID)
		m.message = fmt.Sprintf("Reopened: %s", updated.Title)
	}
	m.loadData()
}

func (m *Model) handleNextStatus() {
	t := m.currentTask()
	if m.pane != PaneTaskList || t == nil {
		return
	}
	updated, err := m.app.Board.SetStatus(m.ctx, t.ID, nextStatus(t.Status))
	if err != nil {
		m.message = fmt.Sprintf("Error: %v", err)
		return
	}
	m.message = fmt.Sprintf("%s: %s", updated.Title, updated.Status.Label())
	m.loadData()
}

func (m *Model) handleDelete() {
	if m.pane == PaneSidebar {
		cat := m.currentCategory()
		if cat == "" {
			return
		}
		if err := m.app.Board.DeleteList(m.ctx, cat); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				m.message = "Only empty lists created here can be removed"
			} else {
				m.message = fmt.Sprintf("Error: %v", err)
			}
			return
		}
		m.message = fmt.Sprintf("Removed list: %s", cat)
		m.loadData()
		return
	}

	t := m.currentTask()
	if t == nil {
		return
	}
	if err := m.app.Board.DeleteTask(m.ctx, t.ID); err != nil {
		m.message = fmt.Sprintf("Error: %v", err)
		return
	}
	m.message = fmt.Sprintf("Deleted: %s", t.Title)
	m.loadData()
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		if m.mode == ModeLoginUser || m.mode == ModeLoginPassword {
			return m, tea.Quit
		}
		m.mode = ModeNormal
		return m, nil

	case key.Matches(msg, keys.Enter):
		value := strings.TrimSpace(m.input.Value())

		switch m.mode {
		case ModeLoginUser:
			if value == "" {
				return m, nil
			}
			m.loginUser = value
			m.mode = ModeLoginPassword
			m.input.SetValue("")
			m.input.Placeholder = "Password"
			m.input.EchoMode = textinput.EchoPassword
			return m, nil

		case ModeLoginPassword:
			m.message = "Logging in..."
			m.input.Blur()
			return m, m.loginCmd(m.loginUser, m.input.Value())
		}

		if value == "" {
			m.mode = ModeNormal
			return m, nil
		}

		switch m.mode {
		case ModeAddTask:
			t, err := m.app.Board.QuickAdd(m.ctx, m.currentCategory(), value)
			if err != nil {
				m.message = fmt.Sprintf("Error adding task: %v", err)
			} else {
				m.message = fmt.Sprintf("Added: %s", t.Title)
			}
		case ModeAddList:
			if err := m.app.Board.CreateList(m.ctx, value); err != nil {
				m.message = fmt.Sprintf("Error creating list: %v", err)
			} else {
				m.message = fmt.Sprintf("Created list: %s", value)
			}
		case ModeEditTask:
			if t := m.currentTask(); t != nil {
				if _, err := m.app.Board.UpdateTask(m.ctx, t.ID, model.TaskPatch{Title: &value}); err != nil {
					m.message = fmt.Sprintf("Error: %v", err)
				} else {
					m.message = fmt.Sprintf("Updated: %s", value)
				}
			}
		}

		m.loadData()
		m.mode = ModeNormal
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateInbox(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape), key.Matches(msg, keys.Inbox), key.Matches(msg, keys.Quit):
		m.mode = ModeNormal

	case key.Matches(msg, keys.Up):
		if m.inboxCursor > 0 {
			m.inboxCursor--
		}

	case key.Matches(msg, keys.Down):
		if m.inboxCursor < len(m.notes)-1 {
			m.inboxCursor++
		}

	case key.Matches(msg, keys.Delete):
		if m.inboxCursor < len(m.notes) {
			m.app.Inbox.Dismiss(m.notes[m.inboxCursor].ID)
			m.loadData()
		}

	case key.Matches(msg, keys.Enter):
		if m.inboxCursor < len(m.notes) {
			m.focusTask(m.notes[m.inboxCursor].Task)
			m.mode = ModeNormal
		}
	}
	return m, nil
}

// focusTask moves the cursors to t if it is on the board
func (m *Model) focusTask(t model.Task) {
	cat := t.CategoryOrDefault()
	for i, c := range m.categories {
		if c != cat {
			continue
		}
		m.catCursor = i
		m.loadData()
		for j := range m.tasks {
			if m.tasks[j].ID == t.ID {
				m.taskCursor = j
				m.pane = PaneTaskList
				return
			}
		}
	}
	m.message = "Task is no longer on the board"
}
