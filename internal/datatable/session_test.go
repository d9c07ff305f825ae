package datatable

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectTable_WithoutDraft(t *testing.T) {
	h := newHarness(t)
	tables := h.add(t, "A", "B")
	tables[1].SetTab("chart")

	got, err := h.ctrl.SelectTable(context.Background(), tables[1])
	require.NoError(t, err)
	assert.Same(t, tables[1], got)
	assert.Same(t, tables[1], h.ctrl.Selected())
	assert.Empty(t, h.prompter.prompts)
	assert.Equal(t, "", tables[1].Tab())

	assert.Equal(t, 1, h.editors)
	assert.Equal(t, []string{"setData", "hide", "show"}, h.editor.calls)
	require.Len(t, h.editor.data, 1)
	data := h.editor.data[0]
	assert.Len(t, data.List, 2)
	assert.Equal(t, 0, data.SelectedIndex)
	require.NotNil(t, data.Selected)
	assert.Equal(t, tables[0].ID(), data.Selected.ID)

	assert.Equal(t, []string{"unban", "reload", "refresh"}, h.host.calls)
	assert.Equal(t, 1, h.notifier.dismissed)
}

func TestSelectTable_EmptyCollection(t *testing.T) {
	h := newHarness(t)

	got, err := h.ctrl.SelectTable(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
	require.Len(t, h.editor.data, 1)
	assert.Empty(t, h.editor.data[0].List)
	assert.Nil(t, h.editor.data[0].Selected)
}

func TestSelectTable_ConfirmedDraftIsSaved(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tables := h.add(t, "A", "B")

	_, err := h.ctrl.SelectTable(ctx, tables[0])
	require.NoError(t, err)
	h.ctrl.SetDraft(Draft{ID: tables[0].ID(), Title: "A2", Table: [][]any{{"x"}, {7}}})

	h.prompter.answer = true
	got, err := h.ctrl.SelectTable(ctx, tables[1])
	require.NoError(t, err)
	assert.Same(t, tables[1], got)

	assert.Equal(t, []string{DefaultMessages().SaveModifiedTable}, h.prompter.prompts)
	assert.Equal(t, "A2", tables[0].Name())
	assert.Equal(t, [][]any{{7}}, tables[0].Rows())
	_, ok := h.ctrl.Draft()
	assert.False(t, ok)
}

func TestSelectTable_DeclinedDraftIsDiscarded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tables := h.add(t, "A", "B")

	_, err := h.ctrl.SelectTable(ctx, tables[0])
	require.NoError(t, err)
	h.ctrl.SetDraft(Draft{ID: tables[0].ID(), Title: "Changed"})

	_, err = h.ctrl.SelectTable(ctx, tables[1])
	require.NoError(t, err)

	assert.Equal(t, "A", tables[0].Name())
	assert.Same(t, tables[1], h.ctrl.Selected())
	_, ok := h.ctrl.Draft()
	assert.False(t, ok)
	assert.Empty(t, h.notifier.notices)
}

func TestSelectTable_InvalidDraftAbortsSwitch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tables := h.add(t, "A", "B")

	_, err := h.ctrl.SelectTable(ctx, tables[0])
	require.NoError(t, err)
	h.ctrl.SetDraft(Draft{ID: tables[0].ID(), Title: "B"})
	h.editor.calls = nil

	h.prompter.answer = true
	got, err := h.ctrl.SelectTable(ctx, tables[1])
	assert.ErrorIs(t, err, ErrDuplicateTableName)
	assert.Nil(t, got)

	assert.Same(t, tables[0], h.ctrl.Selected())
	draft, ok := h.ctrl.Draft()
	require.True(t, ok)
	assert.Equal(t, "B", draft.Title)
	assert.Empty(t, h.editor.calls)
	require.Len(t, h.notifier.notices, 1)
	assert.Equal(t, notice{"alert", DefaultMessages().FailSaveTable, DefaultMessages().DuplicateTableName}, h.notifier.notices[0])
}

func TestSelectTable_PromptError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tables := h.add(t, "A", "B")
	h.ctrl.SetDraft(Draft{ID: tables[0].ID(), Title: "A"})

	h.prompter.err = errors.New("confirmation required")
	_, err := h.ctrl.SelectTable(ctx, tables[1])
	assert.ErrorContains(t, err, "confirmation required")

	_, ok := h.ctrl.Draft()
	assert.True(t, ok, "draft kept until the user answers")
	assert.Nil(t, h.ctrl.Selected())
}

func TestSaveTable_Validation(t *testing.T) {
	h := newHarness(t)
	tables := h.add(t, "A", "B")

	h.ctrl.SetDraft(Draft{ID: tables[0].ID(), Title: ""})
	err := h.ctrl.SaveTable(Draft{ID: tables[0].ID(), Title: ""})
	assert.ErrorIs(t, err, ErrEmptyTableName)

	err = h.ctrl.SaveTable(Draft{ID: tables[0].ID(), Title: "B"})
	assert.ErrorIs(t, err, ErrDuplicateTableName)

	msgs := DefaultMessages()
	assert.Equal(t, []notice{
		{"alert", msgs.FailSaveTable, msgs.EmptyTableName},
		{"alert", msgs.FailSaveTable, msgs.DuplicateTableName},
	}, h.notifier.notices)
	assert.Equal(t, "A", tables[0].Name())
	_, ok := h.ctrl.Draft()
	assert.True(t, ok, "failed saves keep the draft")
	assert.Empty(t, h.host.calls)
}

func TestSaveTable_KeepingOwnName(t *testing.T) {
	h := newHarness(t)
	tables := h.add(t, "A", "B")

	require.NoError(t, h.ctrl.SaveTable(Draft{ID: tables[1].ID(), Title: "B", Table: [][]any{{"h"}}}))
	assert.Equal(t, "B", tables[1].Name())
}

func TestSaveTable_AppliesDraft(t *testing.T) {
	h := newHarness(t)
	tables := h.add(t, "A")
	require.NoError(t, h.ctrl.ShowChart(tables[0].ID()))
	h.host.calls = nil
	h.ctrl.SetDraft(Draft{ID: tables[0].ID()})

	err := h.ctrl.SaveTable(Draft{
		ID:     tables[0].ID(),
		Title:  "Sales",
		Table:  [][]any{{"region", 2024, nil}, {"north", 1, 2}, {"south"}},
		Charts: []ChartSpec{{"type": "pie"}},
	})
	require.NoError(t, err)

	got := tables[0].ToJSON()
	assert.Equal(t, "Sales", got.Name)
	assert.Equal(t, []string{"region", "2024", ""}, got.Fields)
	assert.Equal(t, [][]any{{"north", 1, 2}, {"south", "", ""}}, got.Rows)
	assert.Equal(t, []ChartSpec{{"type": "pie"}}, got.Chart)
	assert.Nil(t, tables[0].Modal(), "chart widget is rebuilt on next show")

	assert.Equal(t, []string{"inject", "reload"}, h.host.calls)
	msgs := DefaultMessages()
	assert.Equal(t, []notice{{"success", msgs.SavedTableTitle, msgs.SavedTableContent}}, h.notifier.notices)
	_, ok := h.ctrl.Draft()
	assert.False(t, ok)

	require.NoError(t, h.ctrl.ShowChart(tables[0].ID()))
	assert.Len(t, h.charts, 2)
}

func TestSaveTable_EmptyTable(t *testing.T) {
	h := newHarness(t)
	tables := h.add(t, "A")

	require.NoError(t, h.ctrl.SaveTable(Draft{ID: tables[0].ID(), Title: "A"}))
	assert.Equal(t, []string{}, tables[0].Fields())
	assert.Empty(t, tables[0].Rows())
}

func TestSaveTable_UnknownTable(t *testing.T) {
	h := newHarness(t)
	h.add(t, "A")

	require.NoError(t, h.ctrl.SaveTable(Draft{ID: "gone", Title: "New"}))
	assert.Equal(t, []string{"reload"}, h.host.calls)
	assert.Equal(t, "A", h.ctrl.Tables()[0].Name())
}

func TestDraft_IsCopied(t *testing.T) {
	h := newHarness(t)
	d := Draft{ID: "t", Title: "T", Table: [][]any{{"a"}}, Charts: []ChartSpec{{"k": 1}}}
	h.ctrl.SetDraft(d)

	d.Table[0][0] = "mutated"
	got, ok := h.ctrl.Draft()
	require.True(t, ok)
	assert.Equal(t, "a", got.Table[0][0])

	got.Charts[0]["k"] = 2
	again, _ := h.ctrl.Draft()
	assert.Equal(t, 1, again.Charts[0]["k"])
}

func TestShowHide(t *testing.T) {
	h := newHarness(t)
	h.add(t, "A")

	h.ctrl.Hide()
	assert.Equal(t, 0, h.editors, "hiding never builds the editor")

	h.ctrl.Show()
	h.ctrl.Show()
	assert.Equal(t, 1, h.editors)
	require.Len(t, h.editor.shown, 2)
	assert.Len(t, h.editor.shown[0], 1)

	h.host.banned[DefaultCategory] = true
	h.ctrl.Hide()
	assert.Equal(t, []string{"show", "show", "hide"}, h.editor.calls)
	assert.False(t, h.host.banned[DefaultCategory])
}

func TestHandleEditorEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("submit saves the draft", func(t *testing.T) {
		h := newHarness(t)
		tables := h.add(t, "A")
		err := h.ctrl.HandleEditorEvent(ctx, EditorEvent{Kind: EventSubmit, Draft: &Draft{ID: tables[0].ID(), Title: "Z"}})
		require.NoError(t, err)
		assert.Equal(t, "Z", tables[0].Name())
	})

	t.Run("submit without draft", func(t *testing.T) {
		h := newHarness(t)
		err := h.ctrl.HandleEditorEvent(ctx, EditorEvent{Kind: EventSubmit})
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("change records the draft", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.ctrl.HandleEditorEvent(ctx, EditorEvent{Kind: EventChange, Draft: &Draft{ID: "x", Title: "X"}}))
		d, ok := h.ctrl.Draft()
		require.True(t, ok)
		assert.Equal(t, "X", d.Title)

		assert.ErrorIs(t, h.ctrl.HandleEditorEvent(ctx, EditorEvent{Kind: EventChange}), ErrInvalidArgument)
	})

	t.Run("alert defaults its title", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.ctrl.HandleEditorEvent(ctx, EditorEvent{Kind: EventAlert, Message: "too many rows"}))
		require.NoError(t, h.ctrl.HandleEditorEvent(ctx, EditorEvent{Kind: EventToast, Title: "Hint", Message: "copied"}))
		assert.Equal(t, []notice{
			{"alert", DefaultMessages().MaxRowCountErrorTitle, "too many rows"},
			{"alert", "Hint", "copied"},
		}, h.notifier.notices)
	})

	t.Run("close hides the editor", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.Show()
		require.NoError(t, h.ctrl.HandleEditorEvent(ctx, EditorEvent{Kind: EventClose}))
		assert.Equal(t, []string{"show", "hide"}, h.editor.calls)
	})

	t.Run("add table", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.ctrl.HandleEditorEvent(ctx, EditorEvent{Kind: EventAddTable}))
		require.Len(t, h.ctrl.Tables(), 1)
		assert.Equal(t, "Data table", h.ctrl.Tables()[0].Name())
	})

	t.Run("unknown kind", func(t *testing.T) {
		h := newHarness(t)
		assert.ErrorIs(t, h.ctrl.HandleEditorEvent(ctx, EditorEvent{Kind: "resize"}), ErrInvalidArgument)
	})
}
