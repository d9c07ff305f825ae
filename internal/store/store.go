// Package store persists exported table snapshots in PostgreSQL.
//
// A project is one editor document; its tables are stored one row each with
// their position so the collection order survives a round trip.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// ErrProjectNotFound is returned by Load when a project has no snapshot.
var ErrProjectNotFound = errors.New("project not found")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS data_tables (
	project    TEXT        NOT NULL,
	position   INTEGER     NOT NULL,
	id         TEXT        NOT NULL,
	name       TEXT        NOT NULL,
	fields     JSONB       NOT NULL DEFAULT '[]',
	cells      JSONB       NOT NULL DEFAULT '[]',
	chart      JSONB       NOT NULL DEFAULT '[]',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (project, id)
);
CREATE INDEX IF NOT EXISTS data_tables_project_position ON data_tables (project, position);
`

// ProjectInfo summarizes a stored project.
type ProjectInfo struct {
	Project   string    `json:"project"`
	Tables    int       `json:"tables"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store reads and writes table snapshots.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store on an open pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger.With("component", "store")}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Save replaces the snapshot of a project in one transaction.
func (s *Store) Save(ctx context.Context, project string, tables []datatable.TableJSON) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("save %s: begin: %w", project, err)
	}
	defer tx.Rollback(ctx)

	if err := saveTables(ctx, tx, project, tables); err != nil {
		return fmt.Errorf("save %s: %w", project, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("save %s: commit: %w", project, err)
	}

	s.logger.Debug("snapshot saved", "project", project, "tables", len(tables))
	return nil
}

func saveTables(ctx context.Context, db DBTX, project string, tables []datatable.TableJSON) error {
	if _, err := db.Exec(ctx, `DELETE FROM data_tables WHERE project = $1`, project); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	for i, t := range tables {
		args, err := rowArgs(project, i, t)
		if err != nil {
			return fmt.Errorf("table %s: %w", t.ID, err)
		}
		_, err = db.Exec(ctx,
			`INSERT INTO data_tables (project, position, id, name, fields, cells, chart, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
			args...,
		)
		if err != nil {
			return fmt.Errorf("insert %s: %w", t.ID, err)
		}
	}
	return nil
}

// rowArgs encodes one table as insert arguments.
func rowArgs(project string, position int, t datatable.TableJSON) ([]any, error) {
	fields, err := marshalJSONB(t.Fields, "[]")
	if err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	rows, err := marshalJSONB(t.Rows, "[]")
	if err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	chart, err := marshalJSONB(t.Chart, "[]")
	if err != nil {
		return nil, fmt.Errorf("chart: %w", err)
	}
	return []any{project, position, t.ID, t.Name, fields, rows, chart}, nil
}

func marshalJSONB(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

// Load returns the tables of a project in their stored order.
func (s *Store) Load(ctx context.Context, project string) ([]datatable.TableJSON, error) {
	tables, err := loadTables(ctx, s.pool, project)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", project, err)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("load %s: %w", project, ErrProjectNotFound)
	}
	return tables, nil
}

func loadTables(ctx context.Context, db DBTX, project string) ([]datatable.TableJSON, error) {
	rows, err := db.Query(ctx,
		`SELECT id, name, fields, cells, chart FROM data_tables
		 WHERE project = $1 ORDER BY position`,
		project,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []datatable.TableJSON
	for rows.Next() {
		var (
			t                    datatable.TableJSON
			fields, cells, chart []byte
		)
		if err := rows.Scan(&t.ID, &t.Name, &fields, &cells, &chart); err != nil {
			return nil, err
		}
		if err := decodeTable(&t, fields, cells, chart); err != nil {
			return nil, fmt.Errorf("table %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func decodeTable(t *datatable.TableJSON, fields, cells, chart []byte) error {
	if err := json.Unmarshal(fields, &t.Fields); err != nil {
		return fmt.Errorf("fields: %w", err)
	}
	if err := json.Unmarshal(cells, &t.Rows); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	if err := json.Unmarshal(chart, &t.Chart); err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	return nil
}

// Projects lists stored projects with their table count.
func (s *Store) Projects(ctx context.Context) ([]ProjectInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT project, count(*), max(updated_at) FROM data_tables
		 GROUP BY project ORDER BY project`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []ProjectInfo
	for rows.Next() {
		var p ProjectInfo
		if err := rows.Scan(&p.Project, &p.Tables, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes a project's snapshot.
func (s *Store) Delete(ctx context.Context, project string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM data_tables WHERE project = $1`, project)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", project, err)
	}
	return tag.RowsAffected(), nil
}

// Project binds the store to one project. It satisfies command.Persister.
type Project struct {
	store *Store
	name  string
}

// ForProject returns a Project handle.
func (s *Store) ForProject(name string) *Project {
	return &Project{store: s, name: name}
}

// Name returns the project name.
func (p *Project) Name() string { return p.name }

// Save replaces the project's snapshot.
func (p *Project) Save(ctx context.Context, tables []datatable.TableJSON) error {
	return p.store.Save(ctx, p.name, tables)
}

// Load returns the project's tables.
func (p *Project) Load(ctx context.Context) ([]datatable.TableJSON, error) {
	return p.store.Load(ctx, p.name)
}
