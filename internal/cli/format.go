package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/existflow/taskcore/internal/model"
)

func statusIcon(s model.Status) string {
	switch s {
	case model.StatusCompleted:
		return "[x]"
	case model.StatusInProgress:
		return "[~]"
	case model.StatusCancelled:
		return "[-]"
	default:
		return "[ ]"
	}
}

func printTask(t model.Task) {
	line := fmt.Sprintf("  %s %4d  %s", statusIcon(t.Status), t.ID, t.Title)

	var extras []string
	if t.DueDate != "" {
		due := "📅 " + t.DueDate
		if t.IsOverdue(time.Now()) {
			due += " ⚠️"
		}
		extras = append(extras, due)
	}
	if assignees := t.Assignees(); len(assignees) > 0 {
		ids := make([]string, len(assignees))
		for i, id := range assignees {
			ids[i] = fmt.Sprint(id)
		}
		extras = append(extras, "👥 "+strings.Join(ids, ","))
	}
	if len(extras) > 0 {
		line += "  " + strings.Join(extras, "  ")
	}
	fmt.Println(line)
}

func printCategory(name string, pending, completed []model.Task) {
	fmt.Printf("\n📁 %s (%d pending)\n", name, len(pending))
	fmt.Println(strings.Repeat("─", 60))
	for _, t := range pending {
		printTask(t)
	}
	for _, t := range completed {
		printTask(t)
	}
	if len(pending)+len(completed) == 0 {
		fmt.Println("  (empty)")
	}
}

func printTaskDetail(t model.Task) {
	fmt.Printf("#%d %s\n", t.ID, t.Title)
	fmt.Println(strings.Repeat("─", 60))
	if t.Description != "" {
		fmt.Println(t.Description)
		fmt.Println()
	}
	fmt.Printf("Status:     %s\n", t.Status.Label())
	fmt.Printf("List:       %s\n", t.CategoryOrDefault())
	if t.DueDate != "" {
		fmt.Printf("Due:        %s\n", t.DueDate)
	}
	fmt.Printf("Created by: %d\n", t.CreatedBy)
	if assignees := t.Assignees(); len(assignees) > 0 {
		fmt.Printf("Assigned:   %v\n", assignees)
	}
	printTime("Created:", t.CreatedAt)
	printTime("Updated:", t.UpdatedAt)
	printTime("Completed:", t.CompletedAt)
}

func printTime(label string, ts *time.Time) {
	if ts != nil {
		fmt.Printf("%-11s %s\n", label, ts.Local().Format("2006-01-02 15:04"))
	}
}
