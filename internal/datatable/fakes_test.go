package datatable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// syncDispatcher applies commands immediately and pushes the result back
// into the controller, like the real dispatcher does.
type syncDispatcher struct {
	ctrl   *Controller
	tables []*TableSource
	cmds   []Command
	err    error
}

func (d *syncDispatcher) Dispatch(_ context.Context, cmd Command) error {
	d.cmds = append(d.cmds, cmd)
	if d.err != nil {
		return d.err
	}
	switch cmd.Kind {
	case CommandAddSource:
		d.tables = append(d.tables, cmd.Source)
	case CommandRemoveSource:
		for i, t := range d.tables {
			if t == cmd.Source {
				d.tables = append(d.tables[:i], d.tables[i+1:]...)
				break
			}
		}
	case CommandMoveSource:
		t := d.tables[cmd.From]
		rest := append(append([]*TableSource(nil), d.tables[:cmd.From]...), d.tables[cmd.From+1:]...)
		d.tables = append(rest[:cmd.To], append([]*TableSource{t}, rest[cmd.To:]...)...)
	default:
		return fmt.Errorf("unknown command %q", cmd.Kind)
	}
	d.ctrl.Sync(d.tables)
	return nil
}

// fakeHost records calls made on the playground and the block engine.
type fakeHost struct {
	ctrl       *Controller
	calls      []string
	palette    map[string][]string
	removed    []string
	banned     map[string]bool
	paused     int
	stopped    int
	injections int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		palette: map[string][]string{DefaultCategory: {"get_table_count", "open_table_chart"}},
		banned:  map[string]bool{},
	}
}

func (h *fakeHost) BlockTypes(category string) []string { return h.palette[category] }
func (h *fakeHost) RemoveBlockType(blockType string)    { h.removed = append(h.removed, blockType) }
func (h *fakeHost) BanCategory(category string)         { h.banned[category] = true }
func (h *fakeHost) UnbanCategory(category string) {
	h.calls = append(h.calls, "unban")
	delete(h.banned, category)
}
func (h *fakeHost) ReloadPlayground()  { h.calls = append(h.calls, "reload") }
func (h *fakeHost) RefreshPlayground() { h.calls = append(h.calls, "refresh") }
func (h *fakeHost) InjectTable() {
	h.calls = append(h.calls, "inject")
	h.injections++
}
func (h *fakeHost) TogglePause() { h.paused++ }
func (h *fakeHost) ToggleStop()  { h.stopped++ }

func (h *fakeHost) IsDuplicatedTableName(name string, excludeIndex int) bool {
	for i, t := range h.ctrl.Tables() {
		if i != excludeIndex && t.Name() == name {
			return true
		}
	}
	return false
}

type fakeEditor struct {
	calls []string
	data  []EditorData
	shown [][]TableJSON
}

func (e *fakeEditor) SetData(d EditorData) {
	e.calls = append(e.calls, "setData")
	e.data = append(e.data, d)
}

func (e *fakeEditor) Show(tables []TableJSON) {
	e.calls = append(e.calls, "show")
	e.shown = append(e.shown, tables)
}

func (e *fakeEditor) Hide() { e.calls = append(e.calls, "hide") }

type fakeChart struct {
	opts    ChartOptions
	shown   bool
	shows   int
	updates []ChartSource
}

func (c *fakeChart) Show() {
	c.shown = true
	c.shows++
}
func (c *fakeChart) Hide()                  { c.shown = false }
func (c *fakeChart) IsShown() bool          { return c.shown }
func (c *fakeChart) Update(src ChartSource) { c.updates = append(c.updates, src) }

type notice struct {
	kind, title, message string
}

type fakeNotifier struct {
	notices   []notice
	dismissed int
}

func (n *fakeNotifier) Alert(title, message string) {
	n.notices = append(n.notices, notice{"alert", title, message})
}

func (n *fakeNotifier) Success(title, message string) {
	n.notices = append(n.notices, notice{"success", title, message})
}

func (n *fakeNotifier) DismissModal() { n.dismissed++ }

type fakePrompter struct {
	answer  bool
	err     error
	prompts []string
}

func (p *fakePrompter) Confirm(_ context.Context, message string) (bool, error) {
	p.prompts = append(p.prompts, message)
	return p.answer, p.err
}

var errDispatch = errors.New("dispatch failed")

// harness is a controller wired to recording fakes.
type harness struct {
	ctrl     *Controller
	disp     *syncDispatcher
	host     *fakeHost
	editor   *fakeEditor
	editors  int
	charts   []*fakeChart
	notifier *fakeNotifier
	prompter *fakePrompter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		disp:     &syncDispatcher{},
		host:     newFakeHost(),
		editor:   &fakeEditor{},
		notifier: &fakeNotifier{},
		prompter: &fakePrompter{},
	}
	ctrl, err := New(Options{
		Dispatcher: h.disp,
		Blocks:     h.host,
		Playground: h.host,
		Editor: func() EditorWidget {
			h.editors++
			return h.editor
		},
		Charts: func(opts ChartOptions) ChartWidget {
			c := &fakeChart{opts: opts}
			h.charts = append(h.charts, c)
			return c
		},
		Notifier: h.notifier,
		Prompter: h.prompter,
		IsIframe: true,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	h.disp.ctrl = ctrl
	h.host.ctrl = ctrl
	return h
}

// add inserts tables by name and returns them in collection order.
func (h *harness) add(t *testing.T, names ...string) []*TableSource {
	t.Helper()
	for _, name := range names {
		require.NoError(t, h.ctrl.AddSource(context.Background(), RawTable{
			Name:   name,
			Fields: []string{"a", "b"},
			Rows:   [][]any{{1, 2}},
		}))
	}
	return h.ctrl.Tables()
}
