// Package cli provides the tablectl command-line interface: importing
// spreadsheets into a stored project, exporting it, listing what is stored
// and browsing it in the terminal.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/logging"
	"github.com/JonMunkholm/datatable/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var Version = "0.1.0"

// Snapshots is the part of the store the commands use.
type Snapshots interface {
	Save(ctx context.Context, project string, tables []datatable.TableJSON) error
	Load(ctx context.Context, project string) ([]datatable.TableJSON, error)
	Projects(ctx context.Context) ([]store.ProjectInfo, error)
	Delete(ctx context.Context, project string) (int64, error)
}

// Opener connects to the snapshot store. The returned func releases it.
type Opener func(ctx context.Context, cfg *config.Config) (Snapshots, func(), error)

// ErrNoDatabase is returned by commands that need the store when no
// database URL is configured.
var ErrNoDatabase = errors.New("no database configured (set DATABASE_URL or --database)")

type app struct {
	cfg     *config.Config
	project string
	dbURL   string
	output  string
	verbose bool
	open    Opener
}

// NewRootCmd creates the root command. open may be nil to use PostgreSQL.
func NewRootCmd(open Opener) *cobra.Command {
	a := &app{open: open}
	if a.open == nil {
		a.open = openPostgres
	}

	rootCmd := &cobra.Command{
		Use:   "tablectl",
		Short: "Manage stored data tables",
		Long: `tablectl imports spreadsheets into a stored data table project and
exports, lists or browses what is stored.

Configuration is read from the environment (and .env), the same variables
the server uses. Flags override them.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if a.dbURL != "" {
				cfg.Database.URL = a.dbURL
			}
			if a.project == "" {
				a.project = cfg.Editor.Project
			}
			level := "warn"
			if a.verbose {
				level = "debug"
			}
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), level, "text"))
			a.cfg = cfg
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&a.project, "project", "p", "", "Project name (default: $EDITOR_PROJECT)")
	rootCmd.PersistentFlags().StringVar(&a.dbURL, "database", "", "PostgreSQL URL (default: $DATABASE_URL)")
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(a.newImportCommand())
	rootCmd.AddCommand(a.newExportCommand())
	rootCmd.AddCommand(a.newListCommand())
	rootCmd.AddCommand(a.newProjectsCommand())
	rootCmd.AddCommand(a.newDeleteCommand())
	rootCmd.AddCommand(a.newBrowseCommand())

	return rootCmd
}

// Execute runs the root command against PostgreSQL.
func Execute() error {
	rootCmd := NewRootCmd(nil)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// withStore opens the store for the duration of fn.
func (a *app) withStore(ctx context.Context, fn func(Snapshots) error) error {
	if !a.cfg.Database.Enabled() {
		return ErrNoDatabase
	}
	s, release, err := a.open(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer release()
	return fn(s)
}

// loadProject returns the stored tables, an empty list for a new project.
func (a *app) loadProject(ctx context.Context, s Snapshots) ([]datatable.TableJSON, error) {
	tables, err := s.Load(ctx, a.project)
	if errors.Is(err, store.ErrProjectNotFound) {
		return []datatable.TableJSON{}, nil
	}
	return tables, err
}

func openPostgres(ctx context.Context, cfg *config.Config) (Snapshots, func(), error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	s := store.New(pool, slog.Default())
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
