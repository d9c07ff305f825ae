package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowArgs(t *testing.T) {
	args, err := rowArgs("q3", 2, datatable.TableJSON{
		ID:     "t1",
		Name:   "Sales",
		Fields: []string{"region"},
		Rows:   [][]any{{"north"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"q3", 2, "t1", "Sales", `["region"]`, `[["north"]]`, "[]"}, args)
}

func TestRowArgs_Unencodable(t *testing.T) {
	_, err := rowArgs("p", 0, datatable.TableJSON{Rows: [][]any{{make(chan int)}}})
	assert.ErrorContains(t, err, "rows")
}

func TestMarshalJSONB(t *testing.T) {
	got, err := marshalJSONB(nil, "[]")
	require.NoError(t, err)
	assert.Equal(t, "[]", got)

	got, err = marshalJSONB(map[string]int{"a": 1}, "{}")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got)
}

func TestDecodeTable(t *testing.T) {
	var tbl datatable.TableJSON
	err := decodeTable(&tbl, []byte(`["a","b"]`), []byte(`[[1,"x"]]`), []byte(`[{"type":"bar"}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Fields)
	assert.Equal(t, [][]any{{float64(1), "x"}}, tbl.Rows)
	assert.Equal(t, []datatable.ChartSpec{{"type": "bar"}}, tbl.Chart)

	err = decodeTable(&tbl, []byte(`[]`), []byte(`{`), []byte(`[]`))
	assert.ErrorContains(t, err, "rows")
}

// TestStore_RoundTrip runs against a real database when TEST_DATABASE_URL
// is set.
func TestStore_RoundTrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	s := New(pool, nil)
	require.NoError(t, s.EnsureSchema(ctx))

	project := s.ForProject("store-test-" + t.Name())
	t.Cleanup(func() { s.Delete(context.Background(), project.Name()) })

	_, err = project.Load(ctx)
	assert.True(t, errors.Is(err, ErrProjectNotFound))

	tables := []datatable.TableJSON{
		{ID: "b", Name: "Second", Fields: []string{"x"}, Rows: [][]any{{"1"}}, Chart: []datatable.ChartSpec{}},
		{ID: "a", Name: "First", Fields: []string{}, Rows: [][]any{}, Chart: []datatable.ChartSpec{{"k": "v"}}},
	}
	require.NoError(t, project.Save(ctx, tables))

	got, err := project.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, tables, got, "order and content survive")

	require.NoError(t, project.Save(ctx, tables[:1]))
	got, err = project.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	projects, err := s.Projects(ctx)
	require.NoError(t, err)
	var found bool
	for _, p := range projects {
		if p.Project == project.Name() {
			found = true
			assert.Equal(t, 1, p.Tables)
		}
	}
	assert.True(t, found)

	n, err := s.Delete(ctx, project.Name())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
