package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/existflow/taskcore/internal/app"
)

var deleteCmd = &cobra.Command{
	Use:     "delete [id...]",
	Aliases: []string{"rm"},
	Short:   "Delete tasks",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	return withSession(func(ctx context.Context, a *app.App) error {
		for _, id := range ids {
			title := fmt.Sprintf("#%d", id)
			if t, ok := a.Board.Task(id); ok {
				title = t.Title
			}
			if err := a.Board.DeleteTask(ctx, id); err != nil {
				return fmt.Errorf("task %d: %w", id, err)
			}
			fmt.Printf("🗑  Deleted: %s\n", title)
		}
		return nil
	})
}
