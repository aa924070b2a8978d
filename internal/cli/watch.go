package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/taskcore/internal/logger"
	"github.com/existflow/taskcore/internal/push"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stay connected and print notifications as they arrive",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	if _, err := a.RequireSession(); err != nil {
		return fmt.Errorf("%w: run 'taskcore auth login' first", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Channel.OnStateChange(func(s push.State) {
		fmt.Printf("%s  channel %s\n", time.Now().Format("15:04:05"), s)
	})

	seen := make(map[int64]bool)
	a.Inbox.OnChange(func() {
		for _, n := range a.Inbox.Notifications() {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			printNotification(n)
		}
	})

	if err := a.Start(ctx); err != nil {
		logger.Warn("Initial load failed", logger.F("error", err))
		fmt.Println("⚠️  initial load failed:", err)
	}
	fmt.Printf("👀 Watching %s (Ctrl+C to stop)\n", a.Channel.Topic())

	<-ctx.Done()
	fmt.Println()
	return nil
}
