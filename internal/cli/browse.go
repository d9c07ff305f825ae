package cli

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

/* ----------------------------------------
	MENU TREE
---------------------------------------- */

type menuItem struct {
	label   string
	submenu *menu
	action  func() tea.Cmd
}

type menu struct {
	title  string
	items  []menuItem
	parent *menu
}

// linkParents points every "Back" item at the enclosing menu.
func linkParents(m, parent *menu) {
	m.parent = parent
	for i := range m.items {
		item := &m.items[i]
		if item.label == "Back" {
			item.submenu = parent
			continue
		}
		if item.submenu != nil {
			linkParents(item.submenu, m)
		}
	}
}

// maxPreviewRows is how many rows the "Rows" action prints.
const maxPreviewRows = 10

func buildMenuTree(project string, tables []datatable.TableJSON) *menu {
	root := &menu{title: fmt.Sprintf("Project %q", project)}
	for _, t := range tables {
		root.items = append(root.items, menuItem{
			label:   t.Name + " ->",
			submenu: tableMenu(t),
		})
	}
	if len(tables) == 0 {
		root.items = append(root.items, menuItem{label: "No tables stored."})
	}
	root.items = append(root.items, menuItem{label: "Quit", action: func() tea.Cmd { return tea.Quit }})

	linkParents(root, nil)
	return root
}

func tableMenu(t datatable.TableJSON) *menu {
	return &menu{
		title: t.Name,
		items: []menuItem{
			{label: "Fields", action: status(fieldsText(t))},
			{label: "Rows", action: status(rowsText(t))},
			{label: "Charts", action: status(fmt.Sprintf("%d chart(s) configured", len(t.Chart)))},
			{label: "Back"},
		},
	}
}

type statusMsg string

func status(text string) func() tea.Cmd {
	return func() tea.Cmd {
		return func() tea.Msg { return statusMsg(text) }
	}
}

func fieldsText(t datatable.TableJSON) string {
	if len(t.Fields) == 0 {
		return "No fields."
	}
	return strings.Join(t.Fields, ", ")
}

func rowsText(t datatable.TableJSON) string {
	if len(t.Rows) == 0 {
		return "No rows."
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	header := make(table.Row, len(t.Fields))
	for i, f := range t.Fields {
		header[i] = f
	}
	tw.AppendHeader(header)
	for i, row := range t.Rows {
		if i == maxPreviewRows {
			break
		}
		tw.AppendRow(table.Row(row))
	}

	text := tw.Render()
	if len(t.Rows) > maxPreviewRows {
		text += fmt.Sprintf("\n(%d of %d rows)", maxPreviewRows, len(t.Rows))
	}
	return text
}

/* ----------------------------------------
	MODEL
---------------------------------------- */

type browseKeys struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Back   key.Binding
	Quit   key.Binding
}

func defaultBrowseKeys() browseKeys {
	return browseKeys{
		Up:     key.NewBinding(key.WithKeys("up", "k")),
		Down:   key.NewBinding(key.WithKeys("down", "j")),
		Select: key.NewBinding(key.WithKeys("enter", "right", "l")),
		Back:   key.NewBinding(key.WithKeys("esc", "left", "h", "backspace")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	statusStyle   = lipgloss.NewStyle().Faint(true).MarginTop(1)
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

type browser struct {
	current *menu
	cursor  int
	status  string
	keys    browseKeys
}

func newBrowser(project string, tables []datatable.TableJSON) browser {
	return browser{
		current: buildMenuTree(project, tables),
		keys:    defaultBrowseKeys(),
	}
}

func (b browser) Init() tea.Cmd {
	return nil
}

func (b browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		b.status = string(msg)
		return b, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, b.keys.Quit):
			return b, tea.Quit
		case key.Matches(msg, b.keys.Up):
			if b.cursor > 0 {
				b.cursor--
			}
		case key.Matches(msg, b.keys.Down):
			if b.cursor < len(b.current.items)-1 {
				b.cursor++
			}
		case key.Matches(msg, b.keys.Back):
			if b.current.parent != nil {
				b.open(b.current.parent)
			}
		case key.Matches(msg, b.keys.Select):
			item := b.current.items[b.cursor]
			if item.submenu != nil {
				b.open(item.submenu)
				return b, nil
			}
			if item.action != nil {
				return b, item.action()
			}
		}
	}
	return b, nil
}

func (b *browser) open(m *menu) {
	b.current = m
	b.cursor = 0
	b.status = ""
}

func (b browser) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(b.current.title))
	sb.WriteString("\n")
	for i, item := range b.current.items {
		if i == b.cursor {
			sb.WriteString(selectedStyle.Render("> " + item.label))
		} else {
			sb.WriteString("  " + item.label)
		}
		sb.WriteString("\n")
	}
	if b.status != "" {
		sb.WriteString(statusStyle.Render(b.status))
		sb.WriteString("\n")
	}
	sb.WriteString(helpStyle.Render("↑/↓ move • enter open • esc back • q quit"))
	sb.WriteString("\n")
	return sb.String()
}

func (a *app) newBrowseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the project's tables interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s Snapshots) error {
				tables, err := a.loadProject(ctx, s)
				if err != nil {
					return err
				}
				p := tea.NewProgram(newBrowser(a.project, tables),
					tea.WithContext(ctx),
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(out(cmd)),
				)
				_, err = p.Run()
				return err
			})
		},
	}
}
