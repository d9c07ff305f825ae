// Package datatable implements the data table controller of the block
// editor: the table collection facade, the editor session with its single
// unsaved draft, and the chart preview manager.
//
// A Controller is built once per editor session with New and handed to every
// caller that needs it. It is not safe for concurrent use; the only blocking
// call is the confirmation prompt inside SelectTable.
package datatable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultCategory is the block category that consumes data tables.
const DefaultCategory = "analysis"

// Options wires a Controller to its collaborators. Dispatcher, Blocks and
// Playground are required.
type Options struct {
	Dispatcher Dispatcher
	Blocks     BlockEngine
	Playground Playground
	Editor     EditorFactory
	Charts     ChartFactory
	Notifier   Notifier
	Prompter   Prompter
	Messages   Messages
	Category   string
	IsIframe   bool
	Logger     *slog.Logger
}

// Controller owns the cached table collection, the editor session and the
// chart preview.
type Controller struct {
	dispatcher Dispatcher
	blocks     BlockEngine
	playground Playground
	newEditor  EditorFactory
	newChart   ChartFactory
	notifier   Notifier
	prompter   Prompter
	msgs       Messages
	category   string
	isIframe   bool
	logger     *slog.Logger

	tables   []*TableSource
	editor   EditorWidget
	modal    ChartWidget
	selected *TableSource
	draft    *Draft
}

// New creates a Controller.
func New(opts Options) (*Controller, error) {
	var errs []error
	if opts.Dispatcher == nil {
		errs = append(errs, errors.New("dispatcher is required"))
	}
	if opts.Blocks == nil {
		errs = append(errs, errors.New("block engine is required"))
	}
	if opts.Playground == nil {
		errs = append(errs, errors.New("playground is required"))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("new controller: %w", errors.Join(errs...))
	}

	c := &Controller{
		dispatcher: opts.Dispatcher,
		blocks:     opts.Blocks,
		playground: opts.Playground,
		newEditor:  opts.Editor,
		newChart:   opts.Charts,
		notifier:   opts.Notifier,
		prompter:   opts.Prompter,
		msgs:       opts.Messages.withDefaults(),
		category:   opts.Category,
		isIframe:   opts.IsIframe,
		logger:     opts.Logger,
	}
	if c.newEditor == nil {
		c.newEditor = func() EditorWidget { return nopEditor{} }
	}
	if c.newChart == nil {
		c.newChart = func(ChartOptions) ChartWidget { return &nopChart{} }
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if c.prompter == nil {
		c.prompter = declinePrompter{}
	}
	if c.category == "" {
		c.category = DefaultCategory
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "datatable")
	return c, nil
}

// Sync replaces the cached collection with the dispatcher's current one.
// Dispatchers call it after applying each command.
func (c *Controller) Sync(tables []*TableSource) {
	c.tables = append(make([]*TableSource, 0, len(tables)), tables...)

	if c.selected != nil && c.indexOf(c.selected.id) < 0 {
		c.logger.Debug("selected table left the collection", "table_id", c.selected.id)
		c.selected = nil
		c.draft = nil
	}
}

// Tables returns the cached ordered collection.
func (c *Controller) Tables() []*TableSource {
	return append([]*TableSource(nil), c.tables...)
}

// GetSource returns the table with the given id. An empty id is logged and
// yields nil; an unknown id yields nil silently.
func (c *Controller) GetSource(id string) *TableSource {
	if id == "" {
		c.logger.Warn("get source: empty table id")
		return nil
	}
	if i := c.indexOf(id); i >= 0 {
		return c.tables[i]
	}
	return nil
}

// GetIndex returns the position of the table with the given id, -1 when it
// is not in the collection. ok is false for an empty id.
func (c *Controller) GetIndex(id string) (index int, ok bool) {
	if id == "" {
		c.logger.Warn("get index: empty table id")
		return 0, false
	}
	return c.indexOf(id), true
}

func (c *Controller) indexOf(id string) int {
	for i, t := range c.tables {
		if t != nil && t.id == id {
			return i
		}
	}
	return -1
}

// AddSource dispatches an add command. A nil input adds an empty table with
// the default name. The name is made unique against the cached collection
// before the command is sent; a typed table keeps its old name when the
// command fails.
func (c *Controller) AddSource(ctx context.Context, in TableInput) error {
	if in == nil {
		in = RawTable{}
	}

	var restore func()
	switch v := in.(type) {
	case RawTable:
		v.Name = c.orderedName(v.Name)
		in = v
	case *RawTable:
		if v != nil {
			raw := *v
			raw.Name = c.orderedName(raw.Name)
			in = raw
		}
	case *TableSource:
		if v != nil {
			old := v.name
			v.name = c.orderedName(old)
			restore = func() { v.name = old }
		}
	}

	src, err := Normalize(in)
	if err != nil {
		return fmt.Errorf("add source: %w", err)
	}

	if err := c.dispatcher.Dispatch(ctx, Command{Kind: CommandAddSource, Source: src}); err != nil {
		if restore != nil {
			restore()
		}
		return fmt.Errorf("add source %q: %w", src.name, err)
	}
	c.logger.Debug("table added", "table_id", src.id, "name", src.name)
	return nil
}

func (c *Controller) orderedName(name string) string {
	if name == "" {
		name = c.msgs.DefaultTableName
	}
	return OrderedName(name, c.tables)
}

// RemoveSource closes the table's chart preview, drops the session state that
// refers to it and dispatches a remove command.
func (c *Controller) RemoveSource(ctx context.Context, table *TableSource) error {
	if table == nil {
		return fmt.Errorf("remove source: %w", ErrInvalidArgument)
	}

	c.detachChart(table)
	if c.selected == table {
		c.selected = nil
		c.draft = nil
	}

	if err := c.dispatcher.Dispatch(ctx, Command{Kind: CommandRemoveSource, Source: table}); err != nil {
		return fmt.Errorf("remove source %s: %w", table.id, err)
	}
	c.logger.Debug("table removed", "table_id", table.id)
	return nil
}

// detachChart hides the table's chart widget and forgets it, so the next
// ShowChart builds a fresh one.
func (c *Controller) detachChart(t *TableSource) {
	if t.modal == nil {
		return
	}
	if t.modal.IsShown() {
		t.modal.Hide()
	}
	if c.modal == t.modal {
		c.modal = nil
	}
	t.modal = nil
}

// ChangeItemPosition moves the table at start to end. The move goes through
// the dispatcher like every other collection mutation.
func (c *Controller) ChangeItemPosition(ctx context.Context, start, end int) error {
	n := len(c.tables)
	if n == 0 {
		return nil
	}
	if start < 0 || start >= n || end < 0 || end >= n {
		return fmt.Errorf("change item position %d -> %d of %d: %w", start, end, n, ErrInvalidArgument)
	}
	if start == end {
		return nil
	}

	cmd := Command{Kind: CommandMoveSource, Source: c.tables[start], From: start, To: end}
	if err := c.dispatcher.Dispatch(ctx, cmd); err != nil {
		return fmt.Errorf("change item position: %w", err)
	}
	return nil
}

// GetTableJSON returns a serializable snapshot of every table.
func (c *Controller) GetTableJSON() []TableJSON {
	out := make([]TableJSON, 0, len(c.tables))
	for _, t := range c.tables {
		if t == nil {
			continue
		}
		out = append(out, t.ToJSON())
	}
	return out
}

// SetTables bulk-imports tables, one add command per entry. Bulk import has
// no editor side effects. Every entry is checked before anything is
// dispatched: an entry whose id is already in the collection, or earlier in
// the batch, is imported as a copy with a fresh id.
func (c *Controller) SetTables(ctx context.Context, tables []TableInput) error {
	taken := make(map[string]bool, len(c.tables)+len(tables))
	for _, t := range c.tables {
		if t != nil {
			taken[t.id] = true
		}
	}

	inputs := make([]TableInput, len(tables))
	for i, in := range tables {
		id, err := inputID(in)
		if err != nil {
			return fmt.Errorf("set tables: entry %d: %w", i, err)
		}
		if id != "" && taken[id] {
			c.logger.Debug("set tables: id in use, importing with a new id", "table_id", id)
			in = freshCopy(in)
		} else if id != "" {
			taken[id] = true
		}
		inputs[i] = in
	}

	for i, in := range inputs {
		if err := c.AddSource(ctx, in); err != nil {
			return fmt.Errorf("set tables: entry %d: %w", i, err)
		}
	}
	return nil
}

// inputID returns the id an input will be added under, empty when a new one
// will be generated.
func inputID(in TableInput) (string, error) {
	switch v := in.(type) {
	case nil:
		return "", nil
	case RawTable:
		return v.ID, nil
	case *RawTable:
		if v == nil {
			return "", ErrInvalidArgument
		}
		return v.ID, nil
	case *TableSource:
		if v == nil {
			return "", ErrInvalidArgument
		}
		return v.id, nil
	default:
		return "", fmt.Errorf("table input %T: %w", in, ErrInvalidArgument)
	}
}

func freshCopy(in TableInput) TableInput {
	var raw RawTable
	switch v := in.(type) {
	case RawTable:
		raw = v
	case *RawTable:
		raw = *v
	case *TableSource:
		raw = RawFromJSON(v.ToJSON())
	}
	raw.ID = ""
	return raw
}

// SetTableName renames a table, keeping its fields, rows and chart. It
// reports whether a rename happened.
func (c *Controller) SetTableName(id, name string) bool {
	if name == "" {
		return false
	}
	src := c.GetSource(id)
	if src == nil {
		return false
	}
	src.SetArray(TableBody{Name: name, Fields: src.fields, Rows: src.rows, Chart: src.chart})
	return true
}
