package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/sheetimport"
	"github.com/JonMunkholm/datatable/internal/store"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

func checkFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid output format %q (expected %s)", format, strings.Join(allowed, ", "))
}

// renderTables writes a table listing in the given format.
func renderTables(w io.Writer, tables []datatable.TableJSON, format string) error {
	switch format {
	case FormatJSON:
		return sheetimport.EncodeJSON(w, tables)
	case FormatYAML:
		return sheetimport.EncodeYAML(w, tables)
	case FormatTable:
	default:
		return checkFormat(format, FormatTable, FormatJSON, FormatYAML)
	}

	if len(tables) == 0 {
		fmt.Fprintln(w, "No tables stored.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Name", "ID", "Fields", "Rows", "Charts"})
	for i, tbl := range tables {
		t.AppendRow(table.Row{i, tbl.Name, tbl.ID, fieldList(tbl.Fields), len(tbl.Rows), len(tbl.Chart)})
	}
	t.Render()
	fmt.Fprintf(w, "(%d tables)\n", len(tables))
	return nil
}

// renderProjects writes the stored project summary.
func renderProjects(w io.Writer, projects []store.ProjectInfo, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(projects)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(projects)
	case FormatTable:
	default:
		return checkFormat(format, FormatTable, FormatJSON, FormatYAML)
	}

	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects stored.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Project", "Tables", "Updated"})
	for _, p := range projects {
		t.AppendRow(table.Row{p.Project, p.Tables, p.UpdatedAt.Format("2006-01-02 15:04:05")})
	}
	t.Render()
	return nil
}

const maxListedFields = 4

func fieldList(fields []string) string {
	if len(fields) <= maxListedFields {
		return strings.Join(fields, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(fields[:maxListedFields], ", "), len(fields)-maxListedFields)
}
