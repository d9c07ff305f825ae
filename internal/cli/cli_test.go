package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	projects map[string][]datatable.TableJSON
	released int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{projects: map[string][]datatable.TableJSON{}}
}

func (m *memoryStore) Save(_ context.Context, project string, tables []datatable.TableJSON) error {
	m.projects[project] = tables
	return nil
}

func (m *memoryStore) Load(_ context.Context, project string) ([]datatable.TableJSON, error) {
	tables, ok := m.projects[project]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	return tables, nil
}

func (m *memoryStore) Projects(_ context.Context) ([]store.ProjectInfo, error) {
	var out []store.ProjectInfo
	for name, tables := range m.projects {
		out = append(out, store.ProjectInfo{Project: name, Tables: len(tables)})
	}
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, project string) (int64, error) {
	n := len(m.projects[project])
	delete(m.projects, project)
	return int64(n), nil
}

func (m *memoryStore) opener() Opener {
	return func(context.Context, *config.Config) (Snapshots, func(), error) {
		return m, func() { m.released++ }, nil
	}
}

func setupEnv(t *testing.T, withDB bool) {
	t.Helper()
	url := ""
	if withDB {
		url = "postgres://localhost/test"
	}
	t.Setenv("DATABASE_URL", url)
	t.Setenv("DB_URL", "")
	t.Setenv("EDITOR_PROJECT", "default")
	t.Setenv("EDITOR_DEFAULT_TABLE_NAME", "")
}

func run(t *testing.T, open Opener, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const salesJSON = `[{"name":"Sales","fields":["region","amount"],"rows":[["north",10],["south"]]}]`

func TestImport_MergesWithStoredTables(t *testing.T) {
	setupEnv(t, true)
	m := newMemoryStore()
	m.projects["default"] = []datatable.TableJSON{{ID: "t1", Name: "Sales", Fields: []string{"a"}, Rows: [][]any{}}}

	path := writeFile(t, "sales.json", salesJSON)
	out, err := run(t, m.opener(), "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, `Imported 1 table(s) into "default" (2 stored)`)

	stored := m.projects["default"]
	require.Len(t, stored, 2)
	assert.Equal(t, "t1", stored[0].ID)
	assert.Equal(t, "Sales(1)", stored[1].Name)
	assert.Equal(t, [][]any{{"north", float64(10)}, {"south", ""}}, stored[1].Rows)
	assert.Equal(t, 1, m.released)
}

func TestImport_ReplaceAndProjectFlag(t *testing.T) {
	setupEnv(t, true)
	m := newMemoryStore()
	m.projects["q3"] = []datatable.TableJSON{{ID: "old", Name: "Old"}}

	path := writeFile(t, "sales.json", salesJSON)
	_, err := run(t, m.opener(), "import", "--replace", "-p", "q3", path)
	require.NoError(t, err)

	require.Len(t, m.projects["q3"], 1)
	assert.Equal(t, "Sales", m.projects["q3"][0].Name)
	assert.NotContains(t, m.projects, "default")
}

func TestImport_ReimportGetsFreshIDs(t *testing.T) {
	setupEnv(t, true)
	m := newMemoryStore()
	m.projects["default"] = []datatable.TableJSON{{ID: "t1", Name: "Sales"}}

	path := writeFile(t, "export.yaml", "- id: t1\n  name: Sales\n  fields: [a]\n  rows: [[1]]\n")
	_, err := run(t, m.opener(), "import", path)
	require.NoError(t, err)

	stored := m.projects["default"]
	require.Len(t, stored, 2)
	assert.NotEqual(t, "t1", stored[1].ID)
	assert.NotEmpty(t, stored[1].ID)
}

func TestImport_DryRunNeedsNoDatabase(t *testing.T) {
	setupEnv(t, false)
	path := writeFile(t, "sales.json", salesJSON)

	out, err := run(t, nil, "import", "--dry-run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Sales")
	assert.Contains(t, out, "region, amount")
	assert.Contains(t, out, "(1 tables)")
}

func TestCommands_RequireDatabase(t *testing.T) {
	setupEnv(t, false)
	for _, args := range [][]string{{"list"}, {"projects"}, {"export"}, {"delete", "--yes"}} {
		_, err := run(t, nil, args...)
		assert.ErrorIs(t, err, ErrNoDatabase, "args %v", args)
	}
}

func TestImport_UnsupportedFile(t *testing.T) {
	setupEnv(t, true)
	path := writeFile(t, "notes.txt", "hello")

	_, err := run(t, newMemoryStore().opener(), "import", path)
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	setupEnv(t, true)
	m := newMemoryStore()
	m.projects["default"] = []datatable.TableJSON{{ID: "t1", Name: "Sales", Fields: []string{"a"}, Rows: [][]any{{1}}}}

	out, err := run(t, m.opener(), "export", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Sales")

	file := filepath.Join(t.TempDir(), "out.json")
	_, err = run(t, m.opener(), "export", "-f", file)
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "Sales"`)

	_, err = run(t, m.opener(), "export", "--format", "csv")
	assert.ErrorContains(t, err, "invalid output format")

	_, err = run(t, m.opener(), "export", "-p", "missing")
	assert.ErrorIs(t, err, store.ErrProjectNotFound)
}

func TestListAndProjects(t *testing.T) {
	setupEnv(t, true)
	m := newMemoryStore()
	m.projects["default"] = []datatable.TableJSON{{ID: "t1", Name: "Sales", Fields: []string{"a", "b"}, Rows: [][]any{{1, 2}}}}

	out, err := run(t, m.opener(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Sales")
	assert.Contains(t, out, "t1")

	out, err = run(t, m.opener(), "list", "-p", "empty")
	require.NoError(t, err)
	assert.Contains(t, out, "No tables stored.")

	out, err = run(t, m.opener(), "projects", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"project": "default"`)
}

func TestDelete(t *testing.T) {
	setupEnv(t, true)
	m := newMemoryStore()
	m.projects["default"] = []datatable.TableJSON{{ID: "t1", Name: "Sales"}}

	_, err := run(t, m.opener(), "delete")
	assert.ErrorContains(t, err, "without --yes")
	assert.Contains(t, m.projects, "default")

	out, err := run(t, m.opener(), "delete", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, `Deleted 1 table(s) from "default"`)

	_, err = run(t, m.opener(), "delete", "--yes")
	assert.ErrorIs(t, err, store.ErrProjectNotFound)
}

func TestRenderProjects_Table(t *testing.T) {
	var buf bytes.Buffer
	updated := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	err := renderProjects(&buf, []store.ProjectInfo{{Project: "q3", Tables: 2, UpdatedAt: updated}}, FormatTable)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "PROJECT")
	assert.Contains(t, out, "q3")
	assert.Contains(t, out, "2026-03-04 05:06:07")

	buf.Reset()
	require.NoError(t, renderProjects(&buf, nil, FormatTable))
	assert.Equal(t, "No projects stored.\n", buf.String())
}

func TestFieldList(t *testing.T) {
	assert.Equal(t, "a, b", fieldList([]string{"a", "b"}))
	assert.Equal(t, "a, b, c, d, +2 more", fieldList([]string{"a", "b", "c", "d", "e", "f"}))
	assert.Equal(t, "", fieldList(nil))
}
