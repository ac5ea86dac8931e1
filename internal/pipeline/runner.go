package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"petpulse/internal/dataset"
	"petpulse/internal/errors"
)

// ConcatSpec names a set of loaded tables to stack into one before the
// merge step.
type ConcatSpec struct {
	Name   string   `yaml:"name" validate:"required"`
	Tables []string `yaml:"tables" validate:"required,min=2"`
}

// RunSpec describes one end-to-end pipeline run.
type RunSpec struct {
	// Inputs are the raw files to load, CSV or Excel.
	Inputs []string `yaml:"inputs" validate:"required,min=1"`
	// Rules maps a table name (file base name without extension) to its
	// cleaning rules. Tables without an entry pass through uncleaned.
	Rules map[string][]ColumnRule `yaml:"rules,omitempty" validate:"dive,dive"`
	// Concat stacks groups of cleaned tables before merging.
	Concat []ConcatSpec `yaml:"concat,omitempty" validate:"dive"`
	// JoinKey is the column every remaining table is inner-joined on.
	JoinKey string `yaml:"join_key" validate:"required"`
	// Derive lists computed columns added after the merge.
	Derive []DeriveSpec `yaml:"derive,omitempty" validate:"dive"`
	// Columns, when set, selects and orders the final columns.
	Columns []string `yaml:"columns,omitempty"`
	// SortBy, when set, orders the final rows.
	SortBy []string `yaml:"sort_by,omitempty"`
	// OutputPath is where the prepared dataset is written, overwriting
	// any existing file.
	OutputPath string `yaml:"output_path" validate:"required"`
	// ExcelBOM adds a UTF-8 BOM to the output file.
	ExcelBOM bool `yaml:"excel_bom,omitempty"`
}

// Result reports what a run produced. The table is the in-memory copy
// of what was exported.
type Result struct {
	Table        *dataset.Table
	CleanReports []*CleanReport
	RowsExported int
	Duration     time.Duration
}

// Runner executes the full pipeline as one linear pass: load, clean,
// concat, merge, derive, sort, export. The first failing stage aborts
// the run.
type Runner struct {
	logger   *slog.Logger
	loader   *Loader
	cleaner  *Cleaner
	merger   *Merger
	deriver  *Deriver
	exporter *Exporter
}

// NewRunner creates a runner with all stages sharing one logger.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		logger:   logger,
		loader:   NewLoader(logger),
		cleaner:  NewCleaner(logger),
		merger:   NewMerger(logger),
		deriver:  NewDeriver(logger),
		exporter: NewExporter(logger),
	}
}

// Run executes the spec and writes the prepared dataset.
func (r *Runner) Run(ctx context.Context, spec RunSpec) (*Result, error) {
	started := time.Now()
	r.logger.InfoContext(ctx, "pipeline run started",
		slog.Int("inputs", len(spec.Inputs)),
		slog.String("join_key", spec.JoinKey),
		slog.String("output", spec.OutputPath))

	tables, err := r.loader.Load(ctx, spec.Inputs)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	result := &Result{}
	for i, t := range tables {
		rules, ok := spec.Rules[t.Name()]
		if !ok {
			continue
		}
		cleaned, report, err := r.cleaner.Clean(ctx, t, rules)
		if err != nil {
			return nil, fmt.Errorf("clean %s: %w", t.Name(), err)
		}
		tables[i] = cleaned
		result.CleanReports = append(result.CleanReports, report)
	}

	tables, err = r.applyConcats(ctx, tables, spec.Concat)
	if err != nil {
		return nil, err
	}

	merged, err := r.merger.Merge(ctx, tables, spec.JoinKey)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	derived, err := r.deriver.Derive(ctx, merged, spec.Derive)
	if err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}

	final := derived
	if len(spec.Columns) > 0 {
		final, err = final.Select(spec.Columns...)
		if err != nil {
			return nil, fmt.Errorf("select: %w", err)
		}
	}
	if len(spec.SortBy) > 0 {
		if err := final.SortBy(spec.SortBy...); err != nil {
			return nil, fmt.Errorf("sort: %w", err)
		}
	}

	if err := r.exporter.Export(ctx, final, spec.OutputPath, ExportOptions{BOM: spec.ExcelBOM}); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	result.Table = final
	result.RowsExported = final.NumRows()
	result.Duration = time.Since(started)

	r.logger.InfoContext(ctx, "pipeline run finished",
		slog.Int("rows_exported", result.RowsExported),
		slog.Duration("duration", result.Duration))

	return result, nil
}

// applyConcats replaces each concat group with its stacked table,
// keeping the group in the position of its first member so the merge
// order stays predictable.
func (r *Runner) applyConcats(ctx context.Context, tables []*dataset.Table, specs []ConcatSpec) ([]*dataset.Table, error) {
	for _, spec := range specs {
		members := make(map[string]bool, len(spec.Tables))
		for _, name := range spec.Tables {
			members[name] = true
		}

		var group []*dataset.Table
		var rest []*dataset.Table
		insertAt := -1
		for _, t := range tables {
			if members[t.Name()] {
				if insertAt < 0 {
					insertAt = len(rest)
				}
				group = append(group, t)
				continue
			}
			rest = append(rest, t)
		}
		if len(group) != len(spec.Tables) {
			return nil, errors.NewSchemaError(fmt.Sprintf(
				"concat %q: found %d of %d named tables", spec.Name, len(group), len(spec.Tables)))
		}

		stacked, err := r.merger.Concat(ctx, spec.Name, group)
		if err != nil {
			return nil, fmt.Errorf("concat %s: %w", spec.Name, err)
		}

		tables = append(rest[:insertAt:insertAt], append([]*dataset.Table{stacked}, rest[insertAt:]...)...)
	}
	return tables, nil
}
