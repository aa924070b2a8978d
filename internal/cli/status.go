package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/existflow/taskcore/internal/app"
	"github.com/existflow/taskcore/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status [id] [status]",
	Short: "Change the status of a task",
	Long: `Change the status of a task.

Statuses: pending, in_progress, completed, cancelled.`,
	Args: cobra.ExactArgs(2),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	status, err := model.ParseStatus(args[1])
	if err != nil {
		return err
	}

	return withSession(func(ctx context.Context, a *app.App) error {
		t, err := a.Board.SetStatus(ctx, id, status)
		if err != nil {
			return err
		}
		fmt.Printf("✓ #%d is now %s\n", t.ID, t.Status.Label())
		return nil
	})
}
