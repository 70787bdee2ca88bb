package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/hay5612/scorebot/internal/domain/stats"
	"github.com/hay5612/scorebot/pkg/logger"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "pgx"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`) //nolint:gochecknoglobals // compiled once

// SQLSource reads the statistics table with SELECT * from a database table.
type SQLSource struct {
	driver string
	dsn    string
	table  string
	logger logger.Logger
}

func newSQLSource(driver string, s settings) (*SQLSource, error) {
	if s.dsn == "" {
		return nil, fmt.Errorf("%w: %s source needs a dsn", ErrSourceNotReady, driver)
	}
	if !identifier.MatchString(s.table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, s.table)
	}
	return &SQLSource{driver: driver, dsn: s.dsn, table: s.table, logger: s.logger}, nil
}

// Describe implements Source.
func (s *SQLSource) Describe() string { return s.driver + ":" + s.table }

// Load implements Source.
func (s *SQLSource) Load(ctx context.Context) (*stats.Table, error) {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.driver, err)
	}
	defer func() { _ = db.Close() }()

	// The table name is validated as a plain identifier in newSQLSource.
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+s.table) //nolint:gosec // identifier checked
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer func() { _ = rows.Close() }()

	header, records, err := scanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.table, err)
	}
	table, err := buildTable(header, records, 1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.table, err)
	}
	s.logger.Info(ctx, "stats table loaded",
		logger.String("source", s.Describe()),
		logger.Int("rows", table.Len()),
		logger.Int("metrics", len(table.Metrics())))
	return table, nil
}

// scanStrings reads every row as text; NULL becomes an empty cell.
func scanStrings(rows *sql.Rows) ([]string, [][]string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var records [][]string
	cells := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, err
		}
		rec := make([]string, len(cols))
		for i, c := range cells {
			if c.Valid {
				rec[i] = strings.TrimSpace(c.String)
			}
		}
		records = append(records, rec)
	}
	return cols, records, rows.Err()
}
