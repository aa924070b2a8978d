package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/existflow/taskcore/internal/app"
)

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one task",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	return withSession(func(ctx context.Context, a *app.App) error {
		t, err := a.Repo.Get(ctx, id)
		if err != nil {
			return err
		}
		printTaskDetail(*t)
		return nil
	})
}
