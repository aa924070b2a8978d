package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/existflow/taskcore/internal/model"
	"github.com/existflow/taskcore/internal/push"
)

// Color palette
var (
	// Status colors
	StatusPending    = lipgloss.Color("#4ECDC4") // Blue
	StatusInProgress = lipgloss.Color("#FFB347") // Orange
	Completed        = lipgloss.Color("#95E1A3") // Green
	Cancelled        = lipgloss.Color("#6C757D") // Gray
	Overdue          = lipgloss.Color("#FF6B6B") // Red

	// Channel colors
	LiveOK      = lipgloss.Color("#95E1A3")
	LivePending = lipgloss.Color("#FFE66D")
	Offline     = lipgloss.Color("#6C757D")

	// UI colors
	Primary   = lipgloss.Color("#4ECDC4")
	Secondary = lipgloss.Color("#6C757D")
	Surface   = lipgloss.Color("#16213e")
	Text      = lipgloss.Color("#FFFFFF")
	TextMuted = lipgloss.Color("#888888")
	Border    = lipgloss.Color("#333333")
	Highlight = lipgloss.Color("#FFE66D")
)

// Styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	SidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(Border).
			Padding(1, 1)

	TaskListStyle = lipgloss.NewStyle().
			Padding(1, 2)

	CategoryItemStyle = lipgloss.NewStyle().
				Padding(0, 1)

	CategoryItemSelectedStyle = lipgloss.NewStyle().
					Padding(0, 1).
					Background(Surface).
					Bold(true)

	TaskItemStyle = lipgloss.NewStyle().
			Padding(0, 1)

	TaskItemSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(Surface).
				Bold(true)

	TaskDoneStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Strikethrough(true).
			Padding(0, 1)

	UnreadStyle = lipgloss.NewStyle().Foreground(Highlight).Bold(true)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(Border)

	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)
)

// StatusStyle returns the badge style for a task status
func StatusStyle(s model.Status) lipgloss.Style {
	switch s {
	case model.StatusInProgress:
		return lipgloss.NewStyle().Foreground(StatusInProgress).Bold(true)
	case model.StatusCompleted:
		return lipgloss.NewStyle().Foreground(Completed)
	case model.StatusCancelled:
		return lipgloss.NewStyle().Foreground(Cancelled)
	default:
		return lipgloss.NewStyle().Foreground(StatusPending)
	}
}

// FormatStatus renders the status label as a badge
func FormatStatus(s model.Status) string {
	return StatusStyle(s).Render(s.Label())
}

// FormatChannel renders the push channel state for the status bar
func FormatChannel(s push.State) string {
	switch s {
	case push.Connected:
		return lipgloss.NewStyle().Foreground(LiveOK).Render("● live")
	case push.Connecting:
		return lipgloss.NewStyle().Foreground(LivePending).Render("◌ connecting")
	default:
		return lipgloss.NewStyle().Foreground(Offline).Render("○ offline")
	}
}
