package tui

import (
	"strings"

	"github.com/existflow/taskcore/internal/board"
	"github.com/existflow/taskcore/internal/model"
)

// truncate shortens a string to max runes with ellipsis
func truncate(s string, max int) string {
	r := []rune(s)
	if max < 4 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func rule(n int) string {
	return strings.Repeat("─", max(n, 0))
}

// filterCycle is the order the status filter steps through
var filterCycle = append([]string{board.FilterAll}, statusNames()...)

func statusNames() []string {
	out := make([]string, 0, len(model.Statuses))
	for _, s := range model.Statuses {
		out = append(out, string(s))
	}
	return out
}

func nextFilter(current string) string {
	for i, f := range filterCycle {
		if f == current {
			return filterCycle[(i+1)%len(filterCycle)]
		}
	}
	return board.FilterAll
}

func nextStatus(s model.Status) model.Status {
	for i, st := range model.Statuses {
		if st == s {
			return model.Statuses[(i+1)%len(model.Statuses)]
		}
	}
	return model.StatusPending
}
