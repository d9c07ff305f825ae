package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/datatable/internal/command"
	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/logging"
	"github.com/JonMunkholm/datatable/internal/session"
	"github.com/JonMunkholm/datatable/internal/store"
	"github.com/JonMunkholm/datatable/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"project", cfg.Editor.Project,
		"database", cfg.Database.Enabled(),
		"autosave", cfg.Editor.Autosave,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var (
		project  *store.Project
		restored []datatable.TableJSON
	)

	if cfg.Database.Enabled() {
		pool, err := connect(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()

		st := store.New(pool, logger)
		if err := st.EnsureSchema(ctx); err != nil {
			return err
		}
		project = st.ForProject(cfg.Editor.Project)

		restored, err = project.Load(ctx)
		switch {
		case errors.Is(err, store.ErrProjectNotFound):
			slog.Info("starting new project", "project", project.Name())
		case err != nil:
			return err
		default:
			slog.Info("project restored", "project", project.Name(), "tables", len(restored))
		}
	} else {
		slog.Warn("DATABASE_URL not set, tables are kept in memory only")
	}

	views := web.NewViews()
	widgets := session.Widgets{
		Editor:   views.EditorFactory(),
		Charts:   views.ChartFactory(),
		Notifier: views.Notifier(),
		Prompter: views.Prompter(),
	}

	var (
		persister command.Persister
		snapshots web.Snapshots
	)
	if project != nil {
		persister = project
		snapshots = project
	}

	sess, err := session.New(cfg.Editor, widgets, persister, logger, restored...)
	if err != nil {
		return err
	}

	server, err := web.NewServer(cfg, web.Deps{
		Controller: sess.Controller,
		Dispatcher: sess.Dispatcher,
		Host:       sess.Host,
		Views:      views,
		Snapshots:  snapshots,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}

		// Final save so a session with autosave off is not lost.
		if project != nil {
			if err := project.Save(shutdownCtx, sess.Controller.GetTableJSON()); err != nil {
				slog.Warn("final save failed", "error", err)
			}
		}
		return nil
	})

	return g.Wait()
}

func connect(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
