package pipeline

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"petpulse/internal/dataset"
	"petpulse/internal/errors"
)

// Loader reads raw tabular files into string-typed tables. Type
// coercion happens later in the Cleaner; the Loader's only contract is
// a header row plus rectangular data.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load reads each path into a table. Any missing or malformed file
// aborts the whole load.
func (l *Loader) Load(ctx context.Context, paths []string) ([]*dataset.Table, error) {
	tables := make([]*dataset.Table, 0, len(paths))
	for _, path := range paths {
		t, err := l.LoadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// LoadFile reads a single CSV or Excel file. The table is named after
// the file base name without extension.
func (l *Loader) LoadFile(ctx context.Context, path string) (*dataset.Table, error) {
	if _, err := os.Stat(path); err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewMissingFileError(path, err)
		}
		return nil, errors.NewStorageError(fmt.Sprintf("cannot stat %s", path), err)
	}

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx", ".xls":
		rows, err = readExcel(path)
	default:
		return nil, errors.NewParseError(fmt.Sprintf("unsupported file type %q", filepath.Ext(path)), nil).
			WithContext("path", path)
	}
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	table, err := tableFromRows(name, rows)
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "loaded input file",
		slog.String("path", path),
		slog.String("table", table.Name()),
		slog.Int("rows", table.NumRows()),
		slog.Int("columns", table.NumCols()))

	return table, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError(fmt.Sprintf("cannot open %s", path), err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewParseError(fmt.Sprintf("malformed CSV in %s", path), err)
	}
	return rows, nil
}

func readExcel(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.NewParseError(fmt.Sprintf("malformed Excel file %s", path), err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.NewParseError(fmt.Sprintf("cannot read sheet %q in %s", sheet, path), err)
	}
	return rows, nil
}

// tableFromRows builds a string-typed table from a header row plus data
// rows. Excel rows may come back ragged, so short rows are padded with
// empty cells.
func tableFromRows(name string, rows [][]string) (*dataset.Table, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.NewParseError(fmt.Sprintf("table %q has no header row", name), nil)
	}

	header := rows[0]
	// Strip a UTF-8 BOM left by Excel exports.
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	fields := make([]dataset.Field, len(header))
	for i, h := range header {
		fields[i] = dataset.Field{Name: strings.TrimSpace(h), Kind: dataset.KindString}
	}
	table, err := dataset.New(name, fields)
	if err != nil {
		return nil, err
	}

	for _, row := range rows[1:] {
		if len(row) > len(fields) {
			return nil, errors.NewParseError(fmt.Sprintf(
				"table %q: row has %d cells, header has %d", name, len(row), len(fields)), nil)
		}
		cells := make([]dataset.Value, len(fields))
		for i := range fields {
			raw := ""
			if i < len(row) {
				raw = row[i]
			}
			if raw == "" {
				cells[i] = dataset.Null(dataset.KindString)
			} else {
				cells[i] = dataset.String(raw)
			}
		}
		if err := table.AppendRow(cells); err != nil {
			return nil, err
		}
	}
	return table, nil
}
