package web

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JonMunkholm/datatable/internal/datatable"
)

// Views holds the server-side state of the widgets a Controller renders
// into. Clients read it back through the session, chart and notification
// endpoints.
type Views struct {
	mu      sync.Mutex
	editor  *EditorView
	charts  map[string]*ChartView
	notices *Notices
}

// NewViews creates empty widget state.
func NewViews() *Views {
	return &Views{
		charts:  make(map[string]*ChartView),
		notices: &Notices{},
	}
}

// EditorFactory returns the factory handed to datatable.Options.Editor.
func (v *Views) EditorFactory() datatable.EditorFactory {
	return func() datatable.EditorWidget {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.editor == nil {
			v.editor = &EditorView{}
		}
		return v.editor
	}
}

// ChartFactory returns the factory handed to datatable.Options.Charts.
func (v *Views) ChartFactory() datatable.ChartFactory {
	return func(opts datatable.ChartOptions) datatable.ChartWidget {
		cv := &ChartView{
			tableID:     opts.TableID,
			source:      opts.Source,
			embedded:    opts.IsIframe,
			togglePause: opts.TogglePause,
			stop:        opts.Stop,
		}
		v.mu.Lock()
		v.charts[opts.TableID] = cv
		v.mu.Unlock()
		return cv
	}
}

// Notifier returns the notice queue handed to datatable.Options.Notifier.
func (v *Views) Notifier() *Notices {
	return v.notices
}

// Prompter returns the prompter handed to datatable.Options.Prompter.
func (v *Views) Prompter() datatable.Prompter {
	return ContextPrompter{Notices: v.notices}
}

// Editor returns the editor state, the zero state before first use.
func (v *Views) Editor() EditorState {
	v.mu.Lock()
	e := v.editor
	v.mu.Unlock()
	if e == nil {
		return EditorState{}
	}
	return e.State()
}

// Chart returns the chart built for a table, if any.
func (v *Views) Chart(tableID string) (*ChartView, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	cv, ok := v.charts[tableID]
	return cv, ok
}

// EditorState is what the editor widget currently shows.
type EditorState struct {
	Visible bool                  `json:"visible"`
	Data    datatable.EditorData  `json:"data"`
	Tables  []datatable.TableJSON `json:"tables"`
	Opened  int                   `json:"opened"`
}

// EditorView implements datatable.EditorWidget.
type EditorView struct {
	mu      sync.Mutex
	visible bool
	data    datatable.EditorData
	tables  []datatable.TableJSON
	opened  int
}

func (e *EditorView) SetData(data datatable.EditorData) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data = data
}

func (e *EditorView) Show(tables []datatable.TableJSON) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visible = true
	e.tables = tables
	e.opened++
}

func (e *EditorView) Hide() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visible = false
}

// State returns a copy of the editor's view state.
func (e *EditorView) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EditorState{
		Visible: e.visible,
		Data:    e.data,
		Tables:  append([]datatable.TableJSON(nil), e.tables...),
		Opened:  e.opened,
	}
}

// ChartState is what one chart preview currently shows.
type ChartState struct {
	TableID  string                `json:"tableId"`
	Shown    bool                  `json:"shown"`
	Embedded bool                  `json:"embedded"`
	Source   datatable.ChartSource `json:"source"`
	Updates  int                   `json:"updates"`
}

// ChartView implements datatable.ChartWidget for one table.
type ChartView struct {
	mu       sync.Mutex
	tableID  string
	shown    bool
	embedded bool
	source   datatable.ChartSource
	updates  int

	togglePause func()
	stop        func()
}

func (c *ChartView) Show() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shown = true
}

func (c *ChartView) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shown = false
}

func (c *ChartView) IsShown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shown
}

func (c *ChartView) Update(src datatable.ChartSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = src
	c.updates++
}

// TogglePause forwards the chart's pause button to the run engine.
func (c *ChartView) TogglePause() {
	if c.togglePause != nil {
		c.togglePause()
	}
}

// Stop forwards the chart's stop button to the run engine.
func (c *ChartView) Stop() {
	if c.stop != nil {
		c.stop()
	}
}

// State returns a copy of the chart's view state.
func (c *ChartView) State() ChartState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ChartState{
		TableID:  c.tableID,
		Shown:    c.shown,
		Embedded: c.embedded,
		Source:   c.source,
		Updates:  c.updates,
	}
}

// NoticeKind classifies a queued notice.
type NoticeKind string

const (
	NoticeAlert   NoticeKind = "alert"
	NoticeSuccess NoticeKind = "success"
	NoticeConfirm NoticeKind = "confirm"
)

// Notice is one message for the user.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

// Notices is a queue-backed datatable.Notifier. Alerts are modal until
// DismissModal is called.
type Notices struct {
	mu        sync.Mutex
	pending   []Notice
	modalOpen bool
}

func (n *Notices) Alert(title, message string) {
	n.push(Notice{Kind: NoticeAlert, Title: title, Message: message})
	n.mu.Lock()
	n.modalOpen = true
	n.mu.Unlock()
}

func (n *Notices) Success(title, message string) {
	n.push(Notice{Kind: NoticeSuccess, Title: title, Message: message})
}

func (n *Notices) DismissModal() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.modalOpen = false
}

func (n *Notices) push(notice Notice) {
	notice.At = time.Now()
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, notice)
}

// Drain returns and clears the queued notices.
func (n *Notices) Drain() (notices []Notice, modalOpen bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	notices, n.pending = n.pending, nil
	if notices == nil {
		notices = []Notice{}
	}
	return notices, n.modalOpen
}

// ErrConfirmationRequired is returned by ContextPrompter when the request
// carries no answer. The question is queued as a notice so the client can
// repeat the call with ?confirm=true or ?confirm=false.
var ErrConfirmationRequired = errors.New("confirmation required")

// ContextPrompter answers confirmation prompts from the request context.
type ContextPrompter struct {
	Notices *Notices
}

func (p ContextPrompter) Confirm(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	answer, ok := ConfirmFromContext(ctx)
	if !ok {
		if p.Notices != nil {
			p.Notices.push(Notice{Kind: NoticeConfirm, Message: message})
		}
		return false, ErrConfirmationRequired
	}
	return answer, nil
}
