// Package sheetimport reads table inputs from files: xlsx workbooks (one
// table per sheet), CSV files and JSON or YAML snapshots as produced by an
// export.
package sheetimport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for file extensions Read cannot decode.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// SheetError wraps a failure on one workbook sheet.
type SheetError struct {
	Sheet string
	Err   error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %q: %v", e.Sheet, e.Err)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}

// ReadFile decodes path according to its extension.
func ReadFile(path string) ([]datatable.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, filepath.Base(path))
}

// Read decodes r using the extension of name to pick the format.
func Read(r io.Reader, name string) ([]datatable.RawTable, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadWorkbook(r)
	case ".csv":
		t, err := ReadCSV(r, strings.TrimSuffix(name, filepath.Ext(name)))
		if err != nil {
			return nil, err
		}
		return []datatable.RawTable{t}, nil
	case ".json":
		return DecodeJSON(textReader(r))
	case ".yaml", ".yml":
		return DecodeYAML(textReader(r))
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
}

// ReadWorkbook turns every sheet of an xlsx workbook into a table named
// after the sheet. The first non-empty row is the header.
func ReadWorkbook(r io.Reader) ([]datatable.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var tables []datatable.RawTable
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, &SheetError{Sheet: sheet, Err: err}
		}
		if t, ok := sheetTable(sheet, rows); ok {
			tables = append(tables, t)
		}
	}
	return tables, nil
}

// sheetTable builds a table from raw sheet rows. Sheets without a header are
// skipped.
func sheetTable(name string, rows [][]string) (datatable.RawTable, bool) {
	start := -1
	for i, row := range rows {
		if !blankRow(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return datatable.RawTable{}, false
	}

	fields := trimTrailingBlank(rows[start])
	t := datatable.RawTable{Name: name, Fields: fields, Rows: [][]any{}}
	for _, row := range rows[start+1:] {
		if blankRow(row) {
			continue
		}
		cells := make([]any, len(fields))
		for j := range fields {
			if j < len(row) {
				cells[j] = parseValue(row[j])
			} else {
				cells[j] = ""
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, true
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimTrailingBlank(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	return append([]string(nil), row[:end]...)
}

// parseValue returns int64 for integers, float64 for decimals and the
// original string otherwise.
func parseValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// DecodeJSON reads an exported snapshot (a JSON array of tables).
func DecodeJSON(r io.Reader) ([]datatable.RawTable, error) {
	var tables []datatable.RawTable
	if err := json.NewDecoder(r).Decode(&tables); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return tables, nil
}

// DecodeYAML reads an exported snapshot written as YAML.
func DecodeYAML(r io.Reader) ([]datatable.RawTable, error) {
	var tables []datatable.RawTable
	if err := yaml.NewDecoder(r).Decode(&tables); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return tables, nil
}

// EncodeJSON writes tables as an indented JSON array.
func EncodeJSON(w io.Writer, tables []datatable.TableJSON) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tables)
}

// EncodeYAML writes tables as YAML.
func EncodeYAML(w io.Writer, tables []datatable.TableJSON) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(tables)
}

// Inputs converts raw tables to controller inputs.
func Inputs(tables []datatable.RawTable) []datatable.TableInput {
	out := make([]datatable.TableInput, len(tables))
	for i, t := range tables {
		out[i] = t
	}
	return out
}
