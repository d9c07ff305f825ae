package datatable

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/uuid"
)

// ChartSpec is one chart configuration entry as produced by the editor
// widget. The controller never interprets it.
type ChartSpec map[string]any

// TableJSON is the plain serializable shape of a table, used for export and
// for rehydration through SetTables.
type TableJSON struct {
	ID     string      `json:"id" yaml:"id"`
	Name   string      `json:"name" yaml:"name"`
	Fields []string    `json:"fields" yaml:"fields"`
	Rows   [][]any     `json:"rows" yaml:"rows"`
	Chart  []ChartSpec `json:"chart" yaml:"chart"`
}

// TableBody is the replaceable content of a table.
type TableBody struct {
	Name   string
	Fields []string
	Rows   [][]any
	Chart  []ChartSpec
}

// ChartSource is the data a chart widget renders.
type ChartSource struct {
	Fields []string    `json:"fields"`
	Origin [][]any     `json:"origin"`
	Chart  []ChartSpec `json:"chart"`
}

// TableInput is either a RawTable or a *TableSource.
type TableInput interface {
	isTableInput()
}

// RawTable is an untyped table shape coming from an import or a client.
type RawTable struct {
	ID     string      `json:"id,omitempty" yaml:"id,omitempty"`
	Name   string      `json:"name" yaml:"name"`
	Fields []string    `json:"fields" yaml:"fields"`
	Rows   [][]any     `json:"rows" yaml:"rows"`
	Chart  []ChartSpec `json:"chart,omitempty" yaml:"chart,omitempty"`
}

func (RawTable) isTableInput() {}

// RawFromJSON converts an exported record back into an input.
func RawFromJSON(t TableJSON) RawTable {
	return RawTable{ID: t.ID, Name: t.Name, Fields: t.Fields, Rows: t.Rows, Chart: t.Chart}
}

// TableSource is one named table. The ID never changes after creation; the
// body is only replaced as a whole through SetArray.
type TableSource struct {
	id     string
	name   string
	fields []string
	rows   [][]any
	chart  []ChartSpec

	modal ChartWidget
	tab   string
}

func (*TableSource) isTableInput() {}

// NewTableSource builds a source from a raw shape, generating an id when the
// raw table has none.
func NewTableSource(raw RawTable) *TableSource {
	id := raw.ID
	if id == "" {
		id = uuid.NewString()
	}
	t := &TableSource{id: id}
	t.SetArray(TableBody{Name: raw.Name, Fields: raw.Fields, Rows: raw.Rows, Chart: raw.Chart})
	return t
}

// Normalize turns any TableInput into a *TableSource. Typed input is
// returned unchanged.
func Normalize(in TableInput) (*TableSource, error) {
	switch v := in.(type) {
	case *TableSource:
		if v == nil {
			return nil, fmt.Errorf("normalize table: %w", ErrInvalidArgument)
		}
		return v, nil
	case RawTable:
		return NewTableSource(v), nil
	case *RawTable:
		if v == nil {
			return nil, fmt.Errorf("normalize table: %w", ErrInvalidArgument)
		}
		return NewTableSource(*v), nil
	default:
		return nil, fmt.Errorf("normalize table %T: %w", in, ErrInvalidArgument)
	}
}

// ID returns the immutable identifier.
func (t *TableSource) ID() string { return t.id }

// Name returns the current table name.
func (t *TableSource) Name() string { return t.name }

// SetName renames the table without touching its body.
func (t *TableSource) SetName(name string) { t.name = name }

// Fields returns a copy of the column labels.
func (t *TableSource) Fields() []string { return cloneStrings(t.fields) }

// Rows returns a copy of the data rows (without header).
func (t *TableSource) Rows() [][]any { return cloneRows(t.rows) }

// Chart returns a copy of the chart configuration.
func (t *TableSource) Chart() []ChartSpec { return cloneCharts(t.chart) }

// Modal returns the chart widget built for this table, or nil.
func (t *TableSource) Modal() ChartWidget { return t.modal }

// Tab returns the transient editor tab hint.
func (t *TableSource) Tab() string { return t.tab }

// SetTab sets the transient editor tab hint. It is dropped when the table is
// opened in the editor.
func (t *TableSource) SetTab(tab string) { t.tab = tab }

// SetArray replaces the whole body. Rows are padded or truncated to the
// field count.
func (t *TableSource) SetArray(body TableBody) {
	t.name = body.Name
	t.fields = cloneStrings(body.Fields)
	t.rows = alignRows(cloneRows(body.Rows), len(t.fields))
	t.chart = cloneCharts(body.Chart)
}

// ForceApply re-aligns the body and feeds the attached chart widget, if any,
// with the current data.
func (t *TableSource) ForceApply() {
	t.rows = alignRows(t.rows, len(t.fields))
	if t.modal != nil {
		t.modal.Update(t.ChartSource())
	}
}

// ChartSource returns the data a chart widget needs for this table.
func (t *TableSource) ChartSource() ChartSource {
	return ChartSource{Fields: t.Fields(), Origin: t.Rows(), Chart: t.Chart()}
}

// ToJSON returns a detached copy of the table.
func (t *TableSource) ToJSON() TableJSON {
	return TableJSON{
		ID:     t.id,
		Name:   t.name,
		Fields: t.Fields(),
		Rows:   t.Rows(),
		Chart:  t.Chart(),
	}
}

// MarshalJSON encodes the exported shape.
func (t *TableSource) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ToJSON())
}

var orderedSuffix = regexp.MustCompile(`^(.*)\((\d+)\)$`)

// OrderedName returns name unchanged when no table uses it. Otherwise it
// strips any "(n)" suffix and appends one past the highest counter already
// taken for that base.
func OrderedName(name string, tables []*TableSource) string {
	taken := make(map[string]bool, len(tables))
	for _, t := range tables {
		if t != nil {
			taken[t.name] = true
		}
	}
	if !taken[name] {
		return name
	}

	base := name
	if m := orderedSuffix.FindStringSubmatch(name); m != nil {
		base = m[1]
	}

	highest := 0
	for existing := range taken {
		if existing == base {
			continue
		}
		m := orderedSuffix.FindStringSubmatch(existing)
		if m == nil || m[1] != base {
			continue
		}
		if n, err := strconv.Atoi(m[2]); err == nil && n > highest {
			highest = n
		}
	}

	for n := highest + 1; ; n++ {
		candidate := fmt.Sprintf("%s(%d)", base, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

func alignRows(rows [][]any, width int) [][]any {
	for i, row := range rows {
		switch {
		case len(row) > width:
			rows[i] = row[:width]
		case len(row) < width:
			padded := make([]any, width)
			copy(padded, row)
			for j := len(row); j < width; j++ {
				padded[j] = ""
			}
			rows[i] = padded
		}
	}
	return rows
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRows(in [][]any) [][]any {
	out := make([][]any, len(in))
	for i, row := range in {
		out[i] = make([]any, len(row))
		copy(out[i], row)
	}
	return out
}

func cloneCharts(in []ChartSpec) []ChartSpec {
	out := make([]ChartSpec, len(in))
	for i, c := range in {
		cp := make(ChartSpec, len(c))
		for k, v := range c {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}
