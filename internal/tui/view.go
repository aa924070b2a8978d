package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/existflow/taskcore/internal/model"
)

const sidebarWidth = 26

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var mainContent string
	switch m.mode {
	case ModeHelp:
		mainContent = m.renderHelp()
	case ModeLoginUser, ModeLoginPassword:
		mainContent = m.place(m.renderLogin())
	case ModeInbox:
		mainContent = m.place(m.renderInbox())
	case ModeAddTask, ModeAddList, ModeEditTask:
		mainContent = m.place(m.renderModal())
	default:
		mainContent = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.renderTaskList())
	}

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, m.renderStatusBar())
}

func (m Model) place(modal string) string {
	return lipgloss.Place(
		m.width, m.height-2,
		lipgloss.Center, lipgloss.Center,
		modal,
		lipgloss.WithWhitespaceChars(" "),
	)
}

func (m Model) renderSidebar() string {
	var s strings.Builder

	s.WriteString(HeaderStyle.Render("taskcore") + "\n")
	s.WriteString(HelpStyle.Render(time.Now().Format("15:04:05")) + "\n")
	s.WriteString(lipgloss.NewStyle().Foreground(Border).Render(rule(sidebarWidth-4)) + "\n\n")

	for i, c := range m.categories {
		pending := len(m.app.Board.Pending(c))
		total := len(m.app.Board.TasksIn(c))

		cursor := "  "
		style := CategoryItemStyle
		if i == m.catCursor {
			cursor = "❯ "
			if m.pane == PaneSidebar {
				style = CategoryItemSelectedStyle
			}
		}
		fold := ""
		if !m.app.Board.IsCategoryVisible(c) {
			fold = "▸"
		}

		line := fmt.Sprintf("%s%-14s %d/%d%s", cursor, truncate(c, 14), pending, total, fold)
		s.WriteString(style.Render(line) + "\n")
	}
	if len(m.categories) == 0 {
		s.WriteString(HelpStyle.Render("  No lists yet") + "\n")
	}

	s.WriteString("\n" + lipgloss.NewStyle().Foreground(Border).Render(rule(sidebarWidth-4)) + "\n")
	inbox := fmt.Sprintf("i inbox (%d)", m.unread)
	if m.unread > 0 {
		inbox = UnreadStyle.Render(inbox)
	} else {
		inbox = HelpStyle.Render(inbox)
	}
	s.WriteString(inbox + "\n")
	s.WriteString(HelpStyle.Render("p new list"))

	return SidebarStyle.Width(sidebarWidth).Height(m.height - 2).Render(s.String())
}

func (m Model) renderTaskList() string {
	width := m.width - sidebarWidth - 2
	var s strings.Builder

	cat := m.currentCategory()
	if cat == "" {
		return TaskListStyle.Width(width).Height(m.height - 2).Render(HelpStyle.Render("No tasks. Press 'a' to add one."))
	}

	pending := 0
	for _, t := range m.tasks {
		if !t.IsCompleted() {
			pending++
		}
	}
	header := fmt.Sprintf("%s (%d pending)", cat, pending)
	if f := m.app.Board.Filter(); f != "ALL" {
		header += "  " + HelpStyle.Render("filter: "+f)
	}
	s.WriteString(HeaderStyle.Render(header) + "\n")
	s.WriteString(lipgloss.NewStyle().Foreground(Border).Render(rule(width-4)) + "\n\n")

	if !m.app.Board.IsCategoryVisible(cat) {
		s.WriteString(HelpStyle.Render(fmt.Sprintf("  %d tasks hidden. Press 'c' to expand.", len(m.tasks))))
		return TaskListStyle.Width(width).Height(m.height - 2).Render(s.String())
	}

	if len(m.tasks) == 0 {
		s.WriteString(HelpStyle.Render("  Empty list. Press 'a' to add a task."))
	}

	now := time.Now()
	titleWidth := max(width-36, 10)
	for i, t := range m.tasks {
		cursor := "  "
		style := TaskItemStyle
		if i == m.taskCursor && m.pane == PaneTaskList {
			cursor = "❯ "
			style = TaskItemSelectedStyle
		}

		icon := "[ ]"
		switch t.Status {
		case model.StatusCompleted:
			icon = "[x]"
			style = TaskDoneStyle
		case model.StatusCancelled:
			icon = "[-]"
			style = TaskDoneStyle
		case model.StatusInProgress:
			icon = "[~]"
		}

		due := ""
		if t.DueDate != "" {
			due = t.DueDate
			if t.IsOverdue(now) {
				due = lipgloss.NewStyle().Foreground(Overdue).Render(due)
			}
		}

		check := style.Render(cursor + icon)
		title := style.Render(fmt.Sprintf(" %-*s ", titleWidth, truncate(t.Title, titleWidth)))
		s.WriteString(check + title + FormatStatus(t.Status) + " " + due + "\n")
	}

	return TaskListStyle.Width(width).Height(m.height - 2).Render(s.String())
}

func (m Model) renderStatusBar() string {
	help := "a:add  e:edit  x:done  s:status  d:del  f:filter  i:inbox  ?:help  q:quit"
	if m.message != "" {
		help = m.message
	}

	right := FormatChannel(m.state)
	if m.user != "" {
		right = m.user + "  " + right
	}

	avail := m.width - lipgloss.Width(help) - lipgloss.Width(right) - 4
	if avail > 0 {
		help += strings.Repeat(" ", avail) + right
	} else {
		help += "  " + right
	}
	return StatusBarStyle.Width(m.width).Render(help)
}

func (m Model) renderModal() string {
	title := "Add Task"
	switch m.mode {
	case ModeAddList:
		title = "New List"
	case ModeEditTask:
		title = "Edit Task"
	}
	if cat := m.currentCategory(); cat != "" && m.mode == ModeAddTask {
		title = fmt.Sprintf("Add Task to: %s", cat)
	}

	content := lipgloss.NewStyle().Bold(true).Render(title) + "\n\n"
	content += m.input.View() + "\n\n"
	content += HelpStyle.Render("Enter:save  Esc:cancel")

	return ModalStyle.Render(content)
}

func (m Model) renderLogin() string {
	content := HeaderStyle.Render("Log in") + "\n\n"
	if m.mode == ModeLoginPassword {
		content += HelpStyle.Render("User: "+m.loginUser) + "\n"
	}
	content += m.input.View() + "\n\n"
	content += HelpStyle.Render("Enter:next  Esc:quit")
	return ModalStyle.Width(44).Render(content)
}

func (m Model) renderInbox() string {
	modalWidth := 60
	maxResults := 10

	content := HeaderStyle.Render("Inbox") + "  " + HelpStyle.Render(fmt.Sprintf("%d notifications", len(m.notes))) + "\n"
	content += lipgloss.NewStyle().Foreground(Border).Render(rule(modalWidth-6)) + "\n\n"

	if len(m.notes) == 0 {
		content += HelpStyle.Render("Nothing assigned to you yet.") + "\n"
	}

	start := 0
	if m.inboxCursor >= maxResults {
		start = m.inboxCursor - maxResults + 1
	}
	for i := start; i < len(m.notes) && i < start+maxResults; i++ {
		n := m.notes[i]
		marker := "  "
		style := lipgloss.NewStyle()
		if i == m.inboxCursor {
			marker = "❯ "
			style = style.Bold(true).Foreground(Primary)
		}
		dot := " "
		if !n.Read {
			dot = UnreadStyle.Render("●")
		}
		line := fmt.Sprintf("%s%s %s", marker, dot, truncate(n.Task.Title, modalWidth-22))
		content += style.Render(line) + HelpStyle.Render(" "+n.Timestamp.Local().Format("Jan 2 15:04")) + "\n"
	}

	content += "\n" + HelpStyle.Render("↑↓:nav  Enter:open  d:dismiss  Esc:close")
	return ModalStyle.Width(modalWidth).Render(content)
}

func (m Model) renderHelp() string {
	help := `
╭─── Keyboard Shortcuts ───╮
│                          │
│  Navigation              │
│  ──────────              │
│  j/↓    Move down        │
│  k/↑    Move up          │
│  h/l    Switch pane      │
│  Tab    Switch pane      │
│                          │
│  Actions                 │
│  ───────                 │
│  a       Add task        │
│  e       Edit title      │
│  x/Enter Toggle done     │
│  s       Next status     │
│  d       Delete          │
│  p       New list        │
│  c       Collapse list   │
│  f       Status filter   │
│  i       Inbox           │
│                          │
│  Other                   │
│  ─────                   │
│  r       Refresh         │
│  L       Logout          │
│  ?       Toggle help     │
│  q       Quit            │
│                          │
╰──────────────────────────╯

     Press any key to close
`
	return lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, help)
}
