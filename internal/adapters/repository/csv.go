package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hay5612/scorebot/internal/domain/stats"
	"github.com/hay5612/scorebot/pkg/logger"
)

// CSVSource reads the statistics table from a CSV file with a header row.
type CSVSource struct {
	path   string
	logger logger.Logger
}

// Describe implements Source.
func (s *CSVSource) Describe() string { return "csv:" + s.path }

// Load implements Source.
func (s *CSVSource) Load(ctx context.Context) (*stats.Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open stats csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	table, err := readCSV(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	s.logger.Info(ctx, "stats table loaded",
		logger.String("source", s.Describe()),
		logger.Int("rows", table.Len()),
		logger.Int("metrics", len(table.Metrics())))
	return table, nil
}

func readCSV(ctx context.Context, r io.Reader) (*stats.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, err
	}
	// Field count is checked in buildTable with a clearer message.
	cr.FieldsPerRecord = -1

	var records [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return buildTable(header, records, 2)
}
