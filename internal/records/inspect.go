package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Column describes one column of a records table, for schema-context tools
// that let an LLM reason about what data is queryable.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

// ListTables returns the names of all tables in the public schema,
// alphabetically.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name
		FROM   information_schema.tables
		WHERE  table_schema = 'public'
		  AND  table_type = 'BASE TABLE'
		ORDER  BY table_name`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("records: list tables: %w", err)
	}
	tables, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var name string
		err := row.Scan(&name)
		return name, err
	})
	if err != nil {
		return nil, fmt.Errorf("records: scan tables: %w", err)
	}
	return tables, nil
}

// TableColumns returns the column definitions of one public-schema table in
// ordinal order. Returns [ErrNotFound] for unknown tables.
func (s *Store) TableColumns(ctx context.Context, table string) ([]Column, error) {
	const q = `
		SELECT column_name, data_type, is_nullable = 'YES'
		FROM   information_schema.columns
		WHERE  table_schema = 'public'
		  AND  table_name = $1
		ORDER  BY ordinal_position`

	rows, err := s.pool.Query(ctx, q, table)
	if err != nil {
		return nil, fmt.Errorf("records: table columns: %w", err)
	}
	cols, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Column, error) {
		var c Column
		err := row.Scan(&c.Name, &c.DataType, &c.Nullable)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("records: scan columns: %w", err)
	}
	if len(cols) == 0 {
		return nil, ErrNotFound
	}
	return cols, nil
}
