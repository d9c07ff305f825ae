package datatable

import (
	"context"
	"fmt"
)

// Draft is an unsaved edit snapshot emitted by the editor widget. Table
// holds the header row followed by the data rows.
type Draft struct {
	ID     string      `json:"id"`
	Table  [][]any     `json:"table"`
	Charts []ChartSpec `json:"charts"`
	Title  string      `json:"title"`
}

func (d Draft) clone() Draft {
	d.Table = cloneRows(d.Table)
	d.Charts = cloneCharts(d.Charts)
	return d
}

// Selected returns the table open in the editor, or nil.
func (c *Controller) Selected() *TableSource {
	return c.selected
}

// Draft returns the pending draft, if any.
func (c *Controller) Draft() (Draft, bool) {
	if c.draft == nil {
		return Draft{}, false
	}
	return c.draft.clone(), true
}

// SetDraft records the editor's latest unsaved change.
func (c *Controller) SetDraft(d Draft) {
	d = d.clone()
	c.draft = &d
}

// SelectTable opens table in the editor. A pending draft is resolved first:
// the user is asked whether to save it; if they accept and the save fails
// validation, the switch is abandoned and the draft kept. Declining discards
// the draft.
func (c *Controller) SelectTable(ctx context.Context, table *TableSource) (*TableSource, error) {
	if c.draft != nil {
		pending := c.draft.clone()
		confirmed, err := c.prompter.Confirm(ctx, c.msgs.SaveModifiedTable)
		if err != nil {
			return nil, fmt.Errorf("select table: confirm: %w", err)
		}
		if confirmed {
			if err := c.SaveTable(pending); err != nil {
				return nil, fmt.Errorf("select table: %w", err)
			}
		}
	}

	c.selected = table

	list := c.GetTableJSON()
	data := EditorData{List: list, SelectedIndex: 0}
	if len(list) > 0 {
		first := list[0]
		data.Selected = &first
	}
	c.ensureEditor().SetData(data)

	c.Hide()
	c.Show()

	if table != nil {
		table.tab = ""
	}
	c.draft = nil

	if table != nil {
		c.logger.Debug("table selected", "table_id", table.id)
	}
	return table, nil
}

// SaveTable validates and commits a draft. On a validation failure the user
// is alerted and nothing changes. A nil error means the save completed.
func (c *Controller) SaveTable(d Draft) error {
	if d.Title == "" {
		c.notifier.Alert(c.msgs.FailSaveTable, c.msgs.EmptyTableName)
		return ErrEmptyTableName
	}

	exclude := c.indexOf(d.ID)
	if c.playground.IsDuplicatedTableName(d.Title, exclude) {
		c.notifier.Alert(c.msgs.FailSaveTable, c.msgs.DuplicateTableName)
		return ErrDuplicateTableName
	}

	table := d.Table
	if len(table) == 0 {
		table = [][]any{{}}
	}

	if src := c.GetSource(d.ID); src != nil {
		c.detachChart(src)
		src.SetArray(TableBody{
			Name:   d.Title,
			Fields: headerFields(table[0]),
			Rows:   table[1:],
			Chart:  d.Charts,
		})
		c.playground.InjectTable()
	}

	c.notifier.Success(c.msgs.SavedTableTitle, c.msgs.SavedTableContent)
	c.draft = nil
	c.playground.ReloadPlayground()

	c.logger.Info("table saved", "table_id", d.ID, "name", d.Title)
	return nil
}

func headerFields(header []any) []string {
	fields := make([]string, len(header))
	for i, v := range header {
		if s, ok := v.(string); ok {
			fields[i] = s
		} else if v != nil {
			fields[i] = fmt.Sprint(v)
		}
	}
	return fields
}

// Show displays the editor with the current collection, building the widget
// on first use.
func (c *Controller) Show() {
	c.ensureEditor().Show(c.GetTableJSON())
}

// Hide closes the editor, re-enables the table block category and asks the
// playground to redraw.
func (c *Controller) Hide() {
	if c.editor != nil {
		c.editor.Hide()
	}
	c.UnbanBlocks()
	c.playground.ReloadPlayground()
	c.playground.RefreshPlayground()
	c.notifier.DismissModal()
}

func (c *Controller) ensureEditor() EditorWidget {
	if c.editor == nil {
		c.editor = c.newEditor()
	}
	return c.editor
}

// Clear empties the cached collection and forgets the active chart. The
// authoritative collection is untouched.
func (c *Controller) Clear() {
	c.tables = []*TableSource{}
	c.modal = nil
}

// RemoveAllBlocks removes every table block from the engine, bans the
// category and clears local state.
func (c *Controller) RemoveAllBlocks() {
	for _, blockType := range c.blocks.BlockTypes(c.category) {
		c.blocks.RemoveBlockType(blockType)
	}
	c.BanAllBlocks()
	c.Clear()
}

// BanAllBlocks bans the table block category.
func (c *Controller) BanAllBlocks() {
	c.blocks.BanCategory(c.category)
}

// UnbanBlocks lifts the ban on the table block category.
func (c *Controller) UnbanBlocks() {
	c.blocks.UnbanCategory(c.category)
}

// EditorEventKind names an event emitted by the editor widget.
type EditorEventKind string

const (
	EventSubmit   EditorEventKind = "submit"
	EventAlert    EditorEventKind = "alert"
	EventToast    EditorEventKind = "toast"
	EventChange   EditorEventKind = "change"
	EventClose    EditorEventKind = "close"
	EventAddTable EditorEventKind = "addTable"
)

// EditorEvent is a typed message from the editor widget. Draft is set for
// submit and change; Title and Message for alert and toast.
type EditorEvent struct {
	Kind    EditorEventKind `json:"kind"`
	Draft   *Draft          `json:"draft,omitempty"`
	Title   string          `json:"title,omitempty"`
	Message string          `json:"message,omitempty"`
}

// HandleEditorEvent applies one editor widget event to the session.
func (c *Controller) HandleEditorEvent(ctx context.Context, ev EditorEvent) error {
	switch ev.Kind {
	case EventSubmit:
		if ev.Draft == nil {
			return fmt.Errorf("submit event: %w", ErrInvalidArgument)
		}
		return c.SaveTable(*ev.Draft)
	case EventAlert:
		title := ev.Title
		if title == "" {
			title = c.msgs.MaxRowCountErrorTitle
		}
		c.notifier.Alert(title, ev.Message)
	case EventToast:
		c.notifier.Alert(ev.Title, ev.Message)
	case EventChange:
		if ev.Draft == nil {
			return fmt.Errorf("change event: %w", ErrInvalidArgument)
		}
		c.SetDraft(*ev.Draft)
	case EventClose:
		c.Hide()
	case EventAddTable:
		return c.AddSource(ctx, nil)
	default:
		return fmt.Errorf("editor event %q: %w", ev.Kind, ErrInvalidArgument)
	}
	return nil
}

type nopEditor struct{}

func (nopEditor) SetData(EditorData) {}
func (nopEditor) Show([]TableJSON)   {}
func (nopEditor) Hide()              {}

type nopNotifier struct{}

func (nopNotifier) Alert(string, string)   {}
func (nopNotifier) Success(string, string) {}
func (nopNotifier) DismissModal()          {}

type declinePrompter struct{}

func (declinePrompter) Confirm(context.Context, string) (bool, error) { return false, nil }
