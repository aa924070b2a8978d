package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/existflow/taskcore/internal/app"
	"github.com/existflow/taskcore/internal/model"
)

var editCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit a task",
	Long: `Edit fields of a task. Only the flags you pass are changed.

Examples:
  taskcore edit 12 --title "New title"
  taskcore edit 12 --list Casa --due 2025-07-01
  taskcore edit 12 --assign 3 --assign 5
  taskcore edit 12 --assign-to 0    # clear the single assignee`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var (
	editTitle       string
	editDescription string
	editList        string
	editDue         string
	editAssign      []int64
	editAssignTo    int64
)

func init() {
	editCmd.Flags().StringVarP(&editTitle, "title", "t", "", "New title")
	editCmd.Flags().StringVarP(&editDescription, "description", "D", "", "New description")
	editCmd.Flags().StringVarP(&editList, "list", "l", "", "Move to list")
	editCmd.Flags().StringVarP(&editDue, "due", "d", "", "New due date (YYYY-MM-DD, empty clears)")
	editCmd.Flags().Int64SliceVarP(&editAssign, "assign", "a", nil, "Replace assigned user ids")
	editCmd.Flags().Int64Var(&editAssignTo, "assign-to", 0, "Set the single assignee (0 clears)")
}

func runEdit(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	var patch model.TaskPatch
	flags := cmd.Flags()
	if flags.Changed("title") {
		patch.Title = &editTitle
	}
	if flags.Changed("description") {
		patch.Description = &editDescription
	}
	if flags.Changed("list") {
		patch.Category = &editList
	}
	if flags.Changed("due") {
		patch.DueDate = &editDue
	}
	if flags.Changed("assign") {
		patch.AssignedUsers = &editAssign
	}
	if flags.Changed("assign-to") {
		patch.AssignedTo = &editAssignTo
	}

	return withSession(func(ctx context.Context, a *app.App) error {
		t, err := a.Board.UpdateTask(ctx, id, patch)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Updated #%d\n", t.ID)
		printTask(*t)
		return nil
	})
}
