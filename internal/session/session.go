// Package session wires one editor session: the command dispatcher that
// owns the table collection, the playground host and the data table
// controller subscribed to the dispatcher.
package session

import (
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/datatable/internal/command"
	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/playground"
)

// Widgets are the UI collaborators of the controller. Nil fields fall back
// to the controller's headless defaults.
type Widgets struct {
	Editor   datatable.EditorFactory
	Charts   datatable.ChartFactory
	Notifier datatable.Notifier
	Prompter datatable.Prompter
}

// Session groups the wired components.
type Session struct {
	Controller *datatable.Controller
	Dispatcher *command.Dispatcher
	Host       *playground.Host
}

// New builds a session from the editor configuration. persister may be nil;
// it is only attached when autosave is enabled. restored tables become the
// initial collection without entering the undo history or being re-saved.
func New(cfg config.EditorConfig, w Widgets, persister command.Persister, logger *slog.Logger, restored ...datatable.TableJSON) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	initial := make([]*datatable.TableSource, len(restored))
	for i, t := range restored {
		initial[i] = datatable.NewTableSource(datatable.RawFromJSON(t))
	}

	opts := []command.Option{
		command.WithMaxHistory(cfg.MaxHistory),
		command.WithLogger(logger),
		command.WithTables(initial),
	}
	if persister != nil && cfg.Autosave {
		opts = append(opts, command.WithPersister(persister))
	}
	dispatcher := command.New(opts...)

	palette := playground.DefaultPalette()
	if cfg.Category != "" && cfg.Category != datatable.DefaultCategory {
		palette[cfg.Category] = palette[datatable.DefaultCategory]
		delete(palette, datatable.DefaultCategory)
	}
	host := playground.New(palette, logger)
	if cfg.Category != "" {
		host.SetTableCategory(cfg.Category)
	}

	msgs := datatable.DefaultMessages()
	if cfg.DefaultTableName != "" {
		msgs.DefaultTableName = cfg.DefaultTableName
	}

	ctrl, err := datatable.New(datatable.Options{
		Dispatcher: dispatcher,
		Blocks:     host,
		Playground: host,
		Editor:     w.Editor,
		Charts:     w.Charts,
		Notifier:   w.Notifier,
		Prompter:   w.Prompter,
		Messages:   msgs,
		Category:   cfg.Category,
		IsIframe:   cfg.Embedded,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}

	host.BindTables(ctrl.Tables)
	dispatcher.Subscribe(ctrl.Sync)

	return &Session{Controller: ctrl, Dispatcher: dispatcher, Host: host}, nil
}
