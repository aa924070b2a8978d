package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/existflow/taskcore/internal/app"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users tasks can be assigned to",
	RunE:  runUsers,
}

func runUsers(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, a *app.App) error {
		users, err := a.Users(ctx)
		if err != nil {
			return err
		}

		me := a.Session.UserID()
		fmt.Println("\n👥 Users")
		fmt.Println(strings.Repeat("─", 50))
		for _, u := range users {
			marker := " "
			if u.ID == me {
				marker = "*"
			}
			fmt.Printf("  %s %4d  %-16s %s\n", marker, u.ID, u.Username, u.DisplayName())
		}
		return nil
	})
}
