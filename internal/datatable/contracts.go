package datatable

import "context"

// CommandKind names a collection mutation.
type CommandKind string

const (
	CommandAddSource    CommandKind = "dataTableAddSource"
	CommandRemoveSource CommandKind = "dataTableRemoveSource"
	CommandMoveSource   CommandKind = "dataTableMoveSource"
)

// Command is an intent sent to the Dispatcher. From and To are only used by
// CommandMoveSource.
type Command struct {
	Kind   CommandKind
	Source *TableSource
	From   int
	To     int
}

// Dispatcher is the only writer of the authoritative table collection. It may
// apply commands asynchronously; the resulting collection is pushed back
// through Controller.Sync.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd Command) error
}

// BlockEngine exposes the block palette of the host editor.
type BlockEngine interface {
	BlockTypes(category string) []string
	RemoveBlockType(blockType string)
	BanCategory(category string)
	UnbanCategory(category string)
}

// Playground is the host editor surface.
type Playground interface {
	ReloadPlayground()
	RefreshPlayground()
	InjectTable()
	IsDuplicatedTableName(name string, excludeIndex int) bool
	TogglePause()
	ToggleStop()
}

// EditorData is the display state pushed into the editor widget.
type EditorData struct {
	List          []TableJSON `json:"list"`
	SelectedIndex int         `json:"selectedIndex"`
	Selected      *TableJSON  `json:"selected,omitempty"`
}

// EditorWidget is the spreadsheet editor. Its events come back through
// Controller.HandleEditorEvent.
type EditorWidget interface {
	SetData(data EditorData)
	Show(tables []TableJSON)
	Hide()
}

// EditorFactory builds the editor widget on first use.
type EditorFactory func() EditorWidget

// ChartWidget is a chart preview modal.
type ChartWidget interface {
	Show()
	Hide()
	IsShown() bool
	Update(src ChartSource)
}

// ChartOptions are handed to a ChartFactory when a table's modal is built.
type ChartOptions struct {
	TableID     string
	Source      ChartSource
	TogglePause func()
	Stop        func()
	IsIframe    bool
}

// ChartFactory builds a chart widget for one table.
type ChartFactory func(opts ChartOptions) ChartWidget

// Notifier presents alerts and toasts to the user.
type Notifier interface {
	Alert(title, message string)
	Success(title, message string)
	DismissModal()
}

// Prompter asks the user a yes/no question. It is the only call in the
// controller that may block on the user.
type Prompter interface {
	Confirm(ctx context.Context, message string) (bool, error)
}
