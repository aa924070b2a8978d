package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/existflow/taskcore/internal/app"
	"github.com/existflow/taskcore/internal/model"
)

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a new task",
	Long: `Add a new task.

Without --due the task is quick-added with only a title. With --due the
full form is used and the due date is required.

Examples:
  taskcore add "Buy groceries"
  taskcore add "Quarterly report" -l Trabajo --due 2025-06-30
  taskcore add "Review PR" --due 2025-06-01 --assign 3,4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addList        string
	addDue         string
	addDescription string
	addAssign      []int64
	addStatus      string
)

func init() {
	addCmd.Flags().StringVarP(&addList, "list", "l", "", "List (category) to add the task to")
	addCmd.Flags().StringVarP(&addDue, "due", "d", "", "Due date (YYYY-MM-DD)")
	addCmd.Flags().StringVarP(&addDescription, "description", "D", "", "Description")
	addCmd.Flags().Int64SliceVarP(&addAssign, "assign", "a", nil, "User ids to assign")
	addCmd.Flags().StringVarP(&addStatus, "status", "s", "", "Initial status")
}

func runAdd(cmd *cobra.Command, args []string) error {
	title := strings.Join(args, " ")

	return withSession(func(ctx context.Context, a *app.App) error {
		var (
			created *model.Task
			err     error
		)

		if addDue == "" && addDescription == "" && len(addAssign) == 0 && addStatus == "" {
			created, err = a.Board.QuickAdd(ctx, addList, title)
		} else {
			t := model.Task{
				Title:         title,
				Description:   addDescription,
				Category:      addList,
				DueDate:       addDue,
				AssignedUsers: addAssign,
			}
			if addStatus != "" {
				if t.Status, err = model.ParseStatus(addStatus); err != nil {
					return err
				}
			}
			created, err = a.Board.CreateTask(ctx, t)
		}
		if err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}

		fmt.Printf("✓ Added #%d to [%s]: \"%s\"\n", created.ID, created.CategoryOrDefault(), created.Title)
		return nil
	})
}
