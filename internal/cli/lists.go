package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/existflow/taskcore/internal/app"
)

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Manage lists",
	Long: `Lists group tasks. A list exists while a task uses it as its
category, or while it was created here explicitly. Explicit lists are kept
on this machine and survive even when they are empty.`,
}

var listsLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "Show all lists",
	RunE:    runListsLs,
}

var listsNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create an empty list",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runListsNew,
}

var listsRmCmd = &cobra.Command{
	Use:   "rm [name]",
	Short: "Remove an explicit list (tasks keep their category)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runListsRm,
}

func init() {
	listsCmd.AddCommand(listsLsCmd)
	listsCmd.AddCommand(listsNewCmd)
	listsCmd.AddCommand(listsRmCmd)
}

func runListsLs(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, a *app.App) error {
		explicit := make(map[string]bool)
		for _, l := range a.Board.Lists() {
			explicit[l] = true
		}

		fmt.Println("\n📁 Lists")
		fmt.Println(strings.Repeat("─", 40))
		for _, c := range a.Board.Categories() {
			marker := " "
			if explicit[c] {
				marker = "*"
			}
			fmt.Printf("  %s %-24s %d pending\n", marker, c, len(a.Board.Pending(c)))
		}
		fmt.Println("\n  * created explicitly")
		return nil
	})
}

func runListsNew(cmd *cobra.Command, args []string) error {
	name := strings.Join(args, " ")
	return withSession(func(ctx context.Context, a *app.App) error {
		if err := a.Board.CreateList(ctx, name); err != nil {
			return err
		}
		fmt.Printf("✓ Created list: %s\n", strings.TrimSpace(name))
		return nil
	})
}

func runListsRm(cmd *cobra.Command, args []string) error {
	name := strings.Join(args, " ")
	return withSession(func(ctx context.Context, a *app.App) error {
		if err := a.Board.DeleteList(ctx, name); err != nil {
			return err
		}
		fmt.Printf("✓ Removed list: %s\n", name)
		if n := len(a.Board.TasksIn(name)); n > 0 {
			fmt.Printf("  %d tasks still use it as their category\n", n)
		}
		return nil
	})
}
