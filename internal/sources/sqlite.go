// Package sources reads the upstream slug extracts: the relational database
// (Source A) and slug correction files (Source B).
package sources

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"archivist/internal/archivist"
	"archivist/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteSource reads slugs from one table of a SQLite database, opened read-only.
type SQLiteSource struct {
	db         *sql.DB
	table      string
	slugColumn string
}

// OpenSQLite opens the database at path. When table is empty the source table is
// detected: exactly one table must have slugColumn.
func OpenSQLite(ctx context.Context, path, table, slugColumn string) (*SQLiteSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("source database: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteSource{db: db, slugColumn: slugColumn}
	if table == "" {
		table, err = s.detectTable(ctx)
	} else {
		err = s.checkTable(ctx, table)
	}
	if err != nil {
		db.Close()
		return nil, err
	}
	s.table = table
	return s, nil
}

// Table returns the table slugs are read from.
func (s *SQLiteSource) Table() string {
	return s.table
}

// Close closes the database.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func (s *SQLiteSource) detectTable(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return "", fmt.Errorf("listing tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return "", fmt.Errorf("listing tables: %w", err)
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("listing tables: %w", err)
	}

	var candidates []string
	for _, name := range tables {
		cols, err := s.columns(ctx, name)
		if err != nil {
			return "", err
		}
		if cols[s.slugColumn] {
			candidates = append(candidates, name)
		}
	}

	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("no table with column %q: %w", s.slugColumn, archivist.ErrNoSourceTable)
	case 1:
		return candidates[0], nil
	default:
		return "", fmt.Errorf("tables %s all have column %q: %w", strings.Join(candidates, ", "), s.slugColumn, archivist.ErrAmbiguousSourceTable)
	}
}

func (s *SQLiteSource) checkTable(ctx context.Context, table string) error {
	cols, err := s.columns(ctx, table)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("table %q does not exist: %w", table, archivist.ErrNoSourceTable)
	}
	if !cols[s.slugColumn] {
		return fmt.Errorf("table %q has no column %q: %w", table, s.slugColumn, archivist.ErrNoSourceTable)
	}
	return nil
}

// columns returns the column names of a table; empty if the table does not exist.
func (s *SQLiteSource) columns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("reading columns of %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// Slugs returns the distinct non-null slugs in ascending order.
func (s *SQLiteSource) Slugs(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT %[1]s FROM %[2]s WHERE %[1]s IS NOT NULL ORDER BY %[1]s",
		quoteIdent(s.slugColumn), quoteIdent(s.table))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying slugs: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("scanning slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying slugs: %w", err)
	}
	return slugs, nil
}

// Rows returns the requested columns of every row with a non-null slug, ordered
// by orderBy (the slug column when empty). NULL values read as "".
func (s *SQLiteSource) Rows(ctx context.Context, columns []string, orderBy string) ([]model.SourceRow, error) {
	available, err := s.columns(ctx, s.table)
	if err != nil {
		return nil, err
	}
	if orderBy == "" {
		orderBy = s.slugColumn
	}
	for _, col := range append([]string{orderBy}, columns...) {
		if !available[col] {
			return nil, fmt.Errorf("table %q has no column %q", s.table, col)
		}
	}

	selected := make([]string, 0, len(columns)+1)
	selected = append(selected, quoteIdent(s.slugColumn))
	for _, col := range columns {
		selected = append(selected, quoteIdent(col))
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL ORDER BY %s",
		strings.Join(selected, ", "), quoteIdent(s.table), quoteIdent(s.slugColumn), quoteIdent(orderBy))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying rows: %w", err)
	}
	defer rows.Close()

	var out []model.SourceRow
	for rows.Next() {
		values := make([]sql.NullString, len(selected))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := model.SourceRow{Slug: values[0].String, Values: make(map[string]string, len(columns))}
		for i, col := range columns {
			row.Values[col] = values[i+1].String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying rows: %w", err)
	}
	return out, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Compile-time check that SQLiteSource implements archivist.SlugSource
var _ archivist.SlugSource = (*SQLiteSource)(nil)
