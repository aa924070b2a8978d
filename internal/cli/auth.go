package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/existflow/taskcore/internal/model"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication",
	Long:  `Log in, log out and create accounts on the task server.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to the task server",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Logout and forget the stored session",
	RunE:  runLogout,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE:  runRegister,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE:  runWhoami,
}

var (
	loginUsername string
	loginPassword string
)

func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (prompted when empty)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (prompted when empty)")
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptPassword(label string) string {
	fmt.Print(label)
	passwordBytes, _ := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	return string(passwordBytes)
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	reader := bufio.NewReader(os.Stdin)
	username := loginUsername
	if username == "" {
		username = prompt(reader, "Username: ")
	}
	password := loginPassword
	if password == "" {
		password = promptPassword("Password: ")
	}

	fmt.Println("🔄 Logging in...")
	sess, err := a.Login(context.Background(), username, password)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Logged in as %s (id %d)\n", sess.Username, sess.UserID)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	if !a.Session.IsAuthenticated() {
		fmt.Println("Not logged in.")
		return nil
	}

	a.Logout()
	fmt.Println("👋 Logged out.")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	reader := bufio.NewReader(os.Stdin)
	reg := model.Registration{
		Username:  prompt(reader, "Username: "),
		FirstName: prompt(reader, "First name: "),
		LastName:  prompt(reader, "Last name: "),
		Email:     prompt(reader, "Email: "),
	}
	reg.Password = promptPassword("Password: ")
	if confirm := promptPassword("Confirm password: "); confirm != reg.Password {
		return fmt.Errorf("passwords do not match")
	}

	fmt.Println("🔄 Creating account...")
	resp, err := a.Session.Register(context.Background(), reg)
	if err != nil {
		return err
	}

	msg := resp.Message
	if msg == "" {
		msg = "Account created"
	}
	fmt.Printf("✅ %s. Log in with: taskcore auth login -u %s\n", msg, reg.Username)
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	sess := a.Session.Current()
	if sess == nil {
		fmt.Println("Not logged in.")
		return nil
	}

	name := strings.TrimSpace(sess.FirstName + " " + sess.LastName)
	if name != "" {
		name = " (" + name + ")"
	}
	mode := cfg.APIURL
	if cfg.Mock {
		mode = "mock"
	}
	fmt.Printf("👤 %s%s, id %d, server %s\n", sess.Username, name, sess.UserID, mode)
	return nil
}
