package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/config"
	"github.com/doloop/core/internal/infrastructure/database"
	"github.com/doloop/core/internal/infrastructure/logger"
	"github.com/doloop/core/internal/infrastructure/scheduler"
	"github.com/doloop/core/internal/infrastructure/server"
	"github.com/doloop/core/internal/ports"
)

// Set with -ldflags "-X github.com/doloop/core/cmd/api/commands.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// NewRootCommand assembles the doloop command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "doloop",
		Short:         "Doloop API server",
		Long:          "Doloop keeps loops of recurring and one-time tasks that can be reset in one step.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewReapCommand())
	rootCmd.AddCommand(NewReloopCommand())
	rootCmd.AddCommand(NewUserCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Doloop API server",
		Long:  "Apply pending migrations, start the HTTP server and the scheduler, and run until SIGINT or SIGTERM",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, database.MigrateUp)
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, database.MigrateDown)
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showMigrationVersion(cmd)
		},
	})

	return migrateCmd
}

// NewReapCommand purges loops past the soft-delete grace window
func NewReapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Permanently delete loops soft-deleted more than 30 days ago",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(_ *config.Config, _ *logger.Logger, deps *server.Dependencies) error {
				purged, err := deps.Loops.PurgeExpired(cmd.Context(), time.Now())
				if err != nil {
					return err
				}
				tokens, err := deps.AuthRepo.CleanupExpiredTokens(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d loops and %d refresh tokens\n", purged, tokens)
				return nil
			})
		},
	}
}

// NewReloopCommand resets every loop with the given rule
func NewReloopCommand() *cobra.Command {
	reloopCmd := &cobra.Command{
		Use:   "reloop",
		Short: "Reloop all active loops with a reset rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, _ := cmd.Flags().GetString("rule")
			return withApp(func(_ *config.Config, _ *logger.Logger, deps *server.Dependencies) error {
				n, err := deps.Loops.ReloopByRule(cmd.Context(), entities.ResetRule(rule))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Relooped %d %s loops\n", n, rule)
				return nil
			})
		},
	}

	reloopCmd.Flags().String("rule", "", "Reset rule to apply (daily or weekly)")
	reloopCmd.MarkFlagRequired("rule")
	return reloopCmd
}

// NewUserCommand creates the user management command
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
	}

	createUserCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")

			return withApp(func(_ *config.Config, _ *logger.Logger, deps *server.Dependencies) error {
				resp, err := deps.Auth.Register(cmd.Context(), ports.RegisterRequest{Email: email, Password: password, Name: name})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "User created successfully:\n")
				fmt.Fprintf(out, "  ID: %s\n", resp.User.ID)
				fmt.Fprintf(out, "  Email: %s\n", resp.User.Email)
				fmt.Fprintf(out, "  Name: %s\n", resp.User.Name)
				return nil
			})
		},
	}

	createUserCmd.Flags().String("email", "", "User email (required)")
	createUserCmd.Flags().String("password", "", "User password (required)")
	createUserCmd.Flags().String("name", "", "Display name (required)")
	createUserCmd.MarkFlagRequired("email")
	createUserCmd.MarkFlagRequired("password")
	createUserCmd.MarkFlagRequired("name")

	userCmd.AddCommand(createUserCmd)
	return userCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print Doloop version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Doloop %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Git Commit: %s\n", GitCommit)
		},
	}
}

func openDatabase() (*config.Config, *logger.Logger, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		appLogger.Close()
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return cfg, appLogger, db, nil
}

// withApp opens the database, applies migrations and wires the services
// around fn.
func withApp(fn func(*config.Config, *logger.Logger, *server.Dependencies) error) error {
	cfg, appLogger, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer appLogger.Close()
	defer db.Close()

	if _, err := db.Migrate(database.MigrateUp); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	deps, err := server.Wire(cfg, db, appLogger)
	if err != nil {
		return err
	}
	return fn(cfg, appLogger, deps)
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return withApp(func(cfg *config.Config, appLogger *logger.Logger, deps *server.Dependencies) error {
		srv, err := server.New(cfg, deps, appLogger)
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}

		var sched *scheduler.Scheduler
		if cfg.Scheduler.Enabled {
			sched, err = scheduler.New(cfg.Scheduler, deps.Loops, deps.AuthRepo, deps.Metrics, appLogger)
			if err != nil {
				return fmt.Errorf("failed to initialize scheduler: %w", err)
			}
			sched.Start()
		}

		appLogger.Infow("Starting Doloop API server",
			"port", cfg.Server.Port,
			"environment", cfg.App.Environment,
			"database", deps.DB.Driver(),
			"suggestions", cfg.AI.Provider,
		)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		var serveErr error
		select {
		case serveErr = <-errCh:
		case <-ctx.Done():
			appLogger.Infow("Shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if sched != nil {
			if err := sched.Stop(shutdownCtx); err != nil {
				appLogger.Warnw("Scheduler did not stop in time", "error", err)
			}
		}
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Errorw("Server shutdown failed", "error", err)
		}

		if serveErr != nil {
			return fmt.Errorf("server failed: %w", serveErr)
		}
		appLogger.Infow("Server stopped")
		return nil
	})
}

func runMigration(cmd *cobra.Command, direction database.MigrateDirection) error {
	_, appLogger, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer appLogger.Close()
	defer db.Close()

	status, err := db.Migrate(direction)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if !status.Changed {
		fmt.Fprintln(cmd.OutOrStdout(), "No migrations to run")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Migration %s completed successfully\n", direction)
	}
	return nil
}

func showMigrationVersion(cmd *cobra.Command) error {
	_, appLogger, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer appLogger.Close()
	defer db.Close()

	status, err := db.MigrationVersion()
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if status.NoSchema {
		fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Current migration version: %d\n", status.Version)
	fmt.Fprintf(cmd.OutOrStdout(), "Dirty: %t\n", status.Dirty)
	return nil
}
