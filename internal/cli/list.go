package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/existflow/taskcore/internal/app"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks grouped by list",
	Long: `List tasks grouped by list (category).

Examples:
  taskcore list
  taskcore list -l Trabajo
  taskcore list --status in_progress`,
	RunE: runList,
}

var (
	listList   string
	listStatus string
	listHide   bool
)

func init() {
	listCmd.Flags().StringVarP(&listList, "list", "l", "", "Show only this list")
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "ALL", "Show only tasks with this status")
	listCmd.Flags().BoolVar(&listHide, "hide-done", false, "Hide completed tasks")
}

func runList(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, a *app.App) error {
		if err := a.Board.SetFilter(listStatus); err != nil {
			return err
		}

		categories := a.Board.Categories()
		if listList != "" {
			categories = []string{listList}
		}
		if len(a.Board.Tasks()) == 0 && len(a.Board.Lists()) == 0 {
			fmt.Println("No tasks found. Add one with: taskcore add \"Your task\"")
			return nil
		}

		for _, c := range categories {
			completed := a.Board.Completed(c)
			if listHide {
				completed = nil
			}
			printCategory(c, a.Board.Pending(c), completed)
		}
		fmt.Println()
		return nil
	})
}
