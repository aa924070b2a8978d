package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/existflow/taskcore/internal/app"
	"github.com/existflow/taskcore/internal/model"
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Show tasks other users assigned to you",
	RunE:  runInbox,
}

func init() {
	inboxCmd.Flags().Bool("unread", false, "Show only unread notifications")
}

func runInbox(cmd *cobra.Command, args []string) error {
	unreadOnly, _ := cmd.Flags().GetBool("unread")

	return withSession(func(ctx context.Context, a *app.App) error {
		if err := a.Inbox.Sync(ctx); err != nil {
			return err
		}

		notes := a.Inbox.Notifications()
		fmt.Printf("\n🔔 Inbox (%d unread)\n", a.Inbox.UnreadCount())
		fmt.Println(strings.Repeat("─", 60))
		shown := 0
		for _, n := range notes {
			if unreadOnly && n.Read {
				continue
			}
			printNotification(n)
			shown++
		}
		if shown == 0 {
			fmt.Println("  Nothing new.")
		}
		a.Inbox.MarkAllRead()
		return nil
	})
}

func printNotification(n model.Notification) {
	dot := " "
	if !n.Read {
		dot = "●"
	}
	fmt.Printf("  %s #%-4d %-40s from user %d  %s\n",
		dot, n.Task.ID, n.Task.Title, n.Task.CreatedBy, n.Timestamp.Local().Format("15:04"))
}
