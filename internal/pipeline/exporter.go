package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"petpulse/internal/dataset"
	"petpulse/internal/errors"
)

// ExportOptions configures CSV output.
type ExportOptions struct {
	// BOM prefixes the file with a UTF-8 BOM so Excel opens it with the
	// right encoding.
	BOM bool
}

// Exporter writes tables to flat files.
type Exporter struct {
	logger *slog.Logger
}

// NewExporter creates a new exporter.
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}

// Export writes the table as CSV to path, creating parent directories
// and truncating any existing file. Null cells render as empty fields,
// so a subsequent load plus clean with matching types round-trips every
// value.
func (e *Exporter) Export(ctx context.Context, t *dataset.Table, path string, opts ExportOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError(fmt.Sprintf("cannot create directory for %s", path), err)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError(fmt.Sprintf("cannot create %s", path), err)
	}
	defer file.Close()

	if opts.BOM {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return errors.NewStorageError(fmt.Sprintf("cannot write BOM to %s", path), err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	fields := t.Fields()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}
	if err := writer.Write(header); err != nil {
		return errors.NewStorageError(fmt.Sprintf("cannot write header to %s", path), err)
	}

	record := make([]string, len(fields))
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		for j := range fields {
			record[j] = row[j].Format()
		}
		if err := writer.Write(record); err != nil {
			return errors.NewStorageError(fmt.Sprintf("cannot write row %d to %s", i, path), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.NewStorageError(fmt.Sprintf("cannot flush %s", path), err)
	}

	e.logger.InfoContext(ctx, "exported table",
		slog.String("path", path),
		slog.Int("rows", t.NumRows()),
		slog.Int("columns", t.NumCols()))

	return nil
}
