// Package command applies collection commands to the authoritative table
// collection and keeps an undo/redo history of them.
//
// The Dispatcher is the single writer of the collection. After every applied
// command it publishes a snapshot to its subscribers (typically
// datatable.Controller.Sync) and, when configured, autosaves the exported
// shape through a Persister.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JonMunkholm/datatable/internal/datatable"
)

// DefaultMaxHistory is the number of commands kept for undo.
const DefaultMaxHistory = 100

var (
	// ErrNothingToUndo is returned by Undo on an empty history.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo is returned by Redo when no undone command remains.
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrDuplicateID is returned when an added table reuses an existing id.
	ErrDuplicateID = errors.New("duplicate table id")
)

// Listener receives the collection after each change. The slice is a copy;
// the tables are shared.
type Listener func(tables []*datatable.TableSource)

// Persister stores the exported collection.
type Persister interface {
	Save(ctx context.Context, tables []datatable.TableJSON) error
}

// record is an applied command plus the position it touched, enough to
// invert it.
type record struct {
	cmd   datatable.Command
	index int
}

// Dispatcher implements datatable.Dispatcher. It is safe for concurrent use.
type Dispatcher struct {
	mu         sync.Mutex
	tables     []*datatable.TableSource
	undo       []record
	redo       []record
	maxHistory int

	listenersMu sync.RWMutex
	listeners   []Listener

	persister Persister
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPersister autosaves the collection after each command.
func WithPersister(p Persister) Option {
	return func(d *Dispatcher) { d.persister = p }
}

// WithMaxHistory bounds the undo history.
func WithMaxHistory(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxHistory = n
		}
	}
}

// WithTables seeds the collection without recording history, publishing or
// saving. Nil entries and repeated ids are skipped.
func WithTables(tables []*datatable.TableSource) Option {
	return func(d *Dispatcher) {
		for _, t := range tables {
			if t == nil || d.indexOf(t.ID()) >= 0 {
				continue
			}
			d.tables = append(d.tables, t)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates an empty Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		maxHistory: DefaultMaxHistory,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dispatcher")
	return d
}

// Subscribe registers a listener and immediately sends it the current
// collection.
func (d *Dispatcher) Subscribe(l Listener) {
	d.listenersMu.Lock()
	d.listeners = append(d.listeners, l)
	d.listenersMu.Unlock()

	l(d.Tables())
}

// Tables returns the current collection.
func (d *Dispatcher) Tables() []*datatable.TableSource {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*datatable.TableSource(nil), d.tables...)
}

// Dispatch applies cmd, records it for undo and publishes the result.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd datatable.Command) error {
	d.mu.Lock()
	rec, err := d.apply(cmd)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	d.undo = append(d.undo, rec)
	if len(d.undo) > d.maxHistory {
		d.undo = d.undo[len(d.undo)-d.maxHistory:]
	}
	d.redo = nil
	snapshot := append([]*datatable.TableSource(nil), d.tables...)
	d.mu.Unlock()

	d.logger.Debug("command applied", "kind", cmd.Kind, "tables", len(snapshot))
	d.publish(ctx, snapshot)
	return nil
}

// Undo reverts the most recent command.
func (d *Dispatcher) Undo(ctx context.Context) error {
	d.mu.Lock()
	if len(d.undo) == 0 {
		d.mu.Unlock()
		return ErrNothingToUndo
	}
	rec := d.undo[len(d.undo)-1]
	d.undo = d.undo[:len(d.undo)-1]
	d.revert(rec)
	d.redo = append(d.redo, rec)
	snapshot := append([]*datatable.TableSource(nil), d.tables...)
	d.mu.Unlock()

	d.logger.Debug("command undone", "kind", rec.cmd.Kind)
	d.publish(ctx, snapshot)
	return nil
}

// Redo re-applies the most recently undone command.
func (d *Dispatcher) Redo(ctx context.Context) error {
	d.mu.Lock()
	if len(d.redo) == 0 {
		d.mu.Unlock()
		return ErrNothingToRedo
	}
	rec := d.redo[len(d.redo)-1]
	d.redo = d.redo[:len(d.redo)-1]
	applied, err := d.apply(rec.cmd)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("redo: %w", err)
	}
	d.undo = append(d.undo, applied)
	snapshot := append([]*datatable.TableSource(nil), d.tables...)
	d.mu.Unlock()

	d.logger.Debug("command redone", "kind", rec.cmd.Kind)
	d.publish(ctx, snapshot)
	return nil
}

// CanUndo reports whether Undo has something to revert.
func (d *Dispatcher) CanUndo() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.undo) > 0
}

// CanRedo reports whether Redo has something to re-apply.
func (d *Dispatcher) CanRedo() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.redo) > 0
}

// apply mutates the collection. Callers hold d.mu.
func (d *Dispatcher) apply(cmd datatable.Command) (record, error) {
	switch cmd.Kind {
	case datatable.CommandAddSource:
		if cmd.Source == nil {
			return record{}, fmt.Errorf("%s: %w", cmd.Kind, datatable.ErrInvalidArgument)
		}
		if d.indexOf(cmd.Source.ID()) >= 0 {
			return record{}, fmt.Errorf("%s %s: %w", cmd.Kind, cmd.Source.ID(), ErrDuplicateID)
		}
		d.claimName(cmd.Source)
		d.tables = append(d.tables, cmd.Source)
		return record{cmd: cmd, index: len(d.tables) - 1}, nil

	case datatable.CommandRemoveSource:
		if cmd.Source == nil {
			return record{}, fmt.Errorf("%s: %w", cmd.Kind, datatable.ErrInvalidArgument)
		}
		i := d.indexOf(cmd.Source.ID())
		if i < 0 {
			return record{}, fmt.Errorf("%s %s: %w", cmd.Kind, cmd.Source.ID(), datatable.ErrTableNotFound)
		}
		d.tables = append(d.tables[:i], d.tables[i+1:]...)
		return record{cmd: cmd, index: i}, nil

	case datatable.CommandMoveSource:
		n := len(d.tables)
		if cmd.From < 0 || cmd.From >= n || cmd.To < 0 || cmd.To >= n {
			return record{}, fmt.Errorf("%s %d -> %d: %w", cmd.Kind, cmd.From, cmd.To, datatable.ErrInvalidArgument)
		}
		move(d.tables, cmd.From, cmd.To)
		return record{cmd: cmd, index: cmd.To}, nil

	default:
		return record{}, fmt.Errorf("unknown command %q", cmd.Kind)
	}
}

// revert undoes rec. Callers hold d.mu.
func (d *Dispatcher) revert(rec record) {
	switch rec.cmd.Kind {
	case datatable.CommandAddSource:
		if i := d.indexOf(rec.cmd.Source.ID()); i >= 0 {
			d.tables = append(d.tables[:i], d.tables[i+1:]...)
		}
	case datatable.CommandRemoveSource:
		i := rec.index
		if i > len(d.tables) {
			i = len(d.tables)
		}
		d.claimName(rec.cmd.Source)
		d.tables = append(d.tables, nil)
		copy(d.tables[i+1:], d.tables[i:])
		d.tables[i] = rec.cmd.Source
	case datatable.CommandMoveSource:
		move(d.tables, rec.cmd.To, rec.cmd.From)
	}
}

// claimName gives t an ordered name when another table in the collection
// took its name while t was out of it (renames are not commands). Callers
// hold d.mu.
func (d *Dispatcher) claimName(t *datatable.TableSource) {
	if name := datatable.OrderedName(t.Name(), d.tables); name != t.Name() {
		d.logger.Debug("table name taken, renaming", "table_id", t.ID(), "from", t.Name(), "to", name)
		t.SetName(name)
	}
}

func (d *Dispatcher) indexOf(id string) int {
	for i, t := range d.tables {
		if t.ID() == id {
			return i
		}
	}
	return -1
}

// move relocates tables[from] to position to, shifting the rest.
func move(tables []*datatable.TableSource, from, to int) {
	t := tables[from]
	if from < to {
		copy(tables[from:to], tables[from+1:to+1])
	} else {
		copy(tables[to+1:from+1], tables[to:from])
	}
	tables[to] = t
}

func (d *Dispatcher) publish(ctx context.Context, snapshot []*datatable.TableSource) {
	d.listenersMu.RLock()
	listeners := append([]Listener(nil), d.listeners...)
	d.listenersMu.RUnlock()

	for _, l := range listeners {
		l(snapshot)
	}

	if d.persister == nil {
		return
	}
	out := make([]datatable.TableJSON, len(snapshot))
	for i, t := range snapshot {
		out[i] = t.ToJSON()
	}
	if err := d.persister.Save(ctx, out); err != nil {
		d.logger.Warn("autosave failed", "error", err, "tables", len(out))
	}
}
