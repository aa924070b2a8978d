package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/existflow/taskcore/internal/app"
	"github.com/existflow/taskcore/internal/model"
)

var doneCmd = &cobra.Command{
	Use:   "done [id...]",
	Short: "Mark tasks as completed",
	Long: `Mark one or more tasks as completed, or back to pending with --undo.

Examples:
  taskcore done 4
  taskcore done 4 7 9
  taskcore done --undo 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDone,
}

var doneUndo bool

func init() {
	doneCmd.Flags().BoolVarP(&doneUndo, "undo", "u", false, "Reopen instead of completing")
}

func runDone(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	target := model.StatusCompleted
	if doneUndo {
		target = model.StatusPending
	}

	return withSession(func(ctx context.Context, a *app.App) error {
		for _, id := range ids {
			t, err := a.Board.SetStatus(ctx, id, target)
			if err != nil {
				return fmt.Errorf("task %d: %w", id, err)
			}
			if t.IsCompleted() {
				fmt.Printf("✓ Completed: %s\n", t.Title)
			} else {
				fmt.Printf("↺ Reopened: %s\n", t.Title)
			}
		}
		return nil
	})
}
