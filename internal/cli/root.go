package cli

import (
	"context"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/existflow/taskcore/internal/app"
	"github.com/existflow/taskcore/internal/config"
	"github.com/existflow/taskcore/internal/logger"
	"github.com/existflow/taskcore/internal/model"
	"github.com/existflow/taskcore/internal/tui"
)

var (
	logLevel   string
	logFile    string
	logConsole bool
	apiURL     string
	mockMode   bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "taskcore",
	Short: "taskcore - terminal client for shared to-do lists",
	Long: `taskcore is a terminal client for a shared task service. Tasks are
grouped in lists, can be assigned to other users, and assignments arrive
live as notifications.

Run 'taskcore' without arguments to launch the interactive dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config from file (or defaults if not exists)
		loaded, err := config.Load()
		if err != nil {
			logger.Warn("Failed to load config, using defaults", logger.F("error", err))
			loaded = config.DefaultConfig()
		}
		cfg = loaded

		// Override with CLI flags if provided
		configChanged := false
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
			configChanged = true
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
			configChanged = true
		}
		if cmd.Flags().Changed("log-console") {
			cfg.LogConsole = logConsole
			configChanged = true
		}
		if cmd.Flags().Changed("api-url") {
			cfg.APIURL = apiURL
			configChanged = true
		}
		if cmd.Flags().Changed("mock") {
			cfg.Mock = mockMode
			configChanged = true
		}

		// Save config if changed via CLI flags
		if configChanged {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				logger.Warn("Failed to save config", logger.F("error", err))
			}
		}

		logConfig := logger.Config{
			Level:      logger.ParseLevel(cfg.LogLevel),
			FilePath:   cfg.LogFile,
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxAge:     7,
			MaxBackups: 5,
			Console:    cfg.LogConsole,
		}

		if err := logger.Init(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger.Info("taskcore started", logger.F("command", cmd.Name()), logger.F("mock", cfg.Mock))
		return nil
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer closeApp(a)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := a.Start(ctx); err != nil {
			logger.Warn("Initial load failed", logger.F("error", err))
		}

		logger.Info("Launching TUI")
		m := tui.NewModel(ctx, a)
		defer m.Close()
		p := tea.NewProgram(m, tea.WithAltScreen())

		if _, err := p.Run(); err != nil {
			logger.Error("TUI error", logger.F("error", err))
			return fmt.Errorf("failed to run TUI: %w", err)
		}

		logger.Info("TUI exited normally")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Info("taskcore exiting", logger.F("command", cmd.Name()))
		logger.Close()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Logging flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Enable console logging")

	// Backend flags
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Base URL of the task API (saved)")
	rootCmd.PersistentFlags().BoolVar(&mockMode, "mock", false, "Run without a backend (saved)")

	// Add subcommands
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listsCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(inboxCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
}

func openApp() (*app.App, error) {
	a, err := app.New(cfg, app.Options{Logger: logger.Default()})
	if err != nil {
		logger.Error("Failed to build client", logger.F("error", err))
		return nil, err
	}
	return a, nil
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		logger.Warn("Failed to close client", logger.F("error", err))
	}
}

// withSession opens the client, checks that a user is logged in and loads
// the task list before running fn
func withSession(fn func(ctx context.Context, a *app.App) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	if _, err := a.RequireSession(); err != nil {
		return fmt.Errorf("%w: run 'taskcore auth login' first", err)
	}

	ctx := context.Background()
	if _, err := a.Board.Reload(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError("id", fmt.Sprintf("%q is not a task id", s))
	}
	return id, nil
}
