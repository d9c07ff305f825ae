package web

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/playground"
	"github.com/a-h/templ"
)

// dashboardData is everything the dashboard page renders.
type dashboardData struct {
	Project  string
	Tables   []datatable.TableJSON
	Selected string
	HasDraft bool
	Editor   EditorState
	Engine   playground.State
}

// dashboard renders the overview page: one card per table in collection
// order, with the session and engine state on top.
func dashboard(d dashboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		fmt.Fprintf(&b, `<title>Data tables - %s</title>`, templ.EscapeString(d.Project))
		b.WriteString(`</head><body><main class="container">`)
		fmt.Fprintf(&b, `<h1>Data tables <small>%s</small></h1>`, templ.EscapeString(d.Project))

		b.WriteString(`<section class="status"><dl>`)
		fmt.Fprintf(&b, `<dt>Engine</dt><dd>%s</dd>`, templ.EscapeString(string(d.Engine.Engine)))
		fmt.Fprintf(&b, `<dt>Editor</dt><dd>%s</dd>`, visibility(d.Editor.Visible))
		if d.Selected != "" {
			fmt.Fprintf(&b, `<dt>Selected</dt><dd>%s</dd>`, templ.EscapeString(d.Selected))
		}
		if d.HasDraft {
			b.WriteString(`<dt>Draft</dt><dd>unsaved changes</dd>`)
		}
		b.WriteString(`</dl></section>`)

		if len(d.Tables) == 0 {
			b.WriteString(`<p class="empty">No tables yet.</p>`)
		}
		for i, t := range d.Tables {
			writeTableCard(&b, i, t)
		}

		b.WriteString(`</main></body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeTableCard(b *strings.Builder, index int, t datatable.TableJSON) {
	fmt.Fprintf(b, `<article class="table-card" id="table-%s" data-index="%d">`, templ.EscapeString(t.ID), index)
	fmt.Fprintf(b, `<h2>%s</h2>`, templ.EscapeString(t.Name))
	fmt.Fprintf(b, `<p>%d rows, %d charts</p>`, len(t.Rows), len(t.Chart))
	b.WriteString(`<table><thead><tr>`)
	for _, f := range t.Fields {
		fmt.Fprintf(b, `<th>%s</th>`, templ.EscapeString(f))
	}
	b.WriteString(`</tr></thead><tbody>`)
	for i, row := range t.Rows {
		if i == previewRows {
			fmt.Fprintf(b, `<tr><td colspan="%d">&hellip;</td></tr>`, max(len(t.Fields), 1))
			break
		}
		b.WriteString(`<tr>`)
		for _, cell := range row {
			fmt.Fprintf(b, `<td>%s</td>`, templ.EscapeString(fmt.Sprint(cell)))
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table></article>`)
}

// previewRows is the number of rows shown per table on the dashboard.
const previewRows = 10

func visibility(shown bool) string {
	if shown {
		return "open"
	}
	return "closed"
}

// errorAlert renders a user message as an alert box.
func errorAlert(msg datatable.UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert alert-error" role="alert">`)
		fmt.Fprintf(&b, `<p>%s</p>`, templ.EscapeString(msg.Message))
		if msg.Action != "" {
			fmt.Fprintf(&b, `<p class="action">%s</p>`, templ.EscapeString(msg.Action))
		}
		fmt.Fprintf(&b, `<p class="code">Error code: %s</p></div>`, templ.EscapeString(msg.Code))
		_, err := io.WriteString(w, b.String())
		return err
	})
}
