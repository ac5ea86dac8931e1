package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"petpulse/internal/dataset"
	"petpulse/internal/errors"
)

// MissingPolicy says what the Cleaner does with a null cell after
// coercion.
type MissingPolicy string

const (
	// MissingKeep leaves the null in place. This is the default.
	MissingKeep MissingPolicy = "keep"
	// MissingDrop removes the whole row.
	MissingDrop MissingPolicy = "drop"
	// MissingFill substitutes the rule's fill value.
	MissingFill MissingPolicy = "fill"
	// MissingFail aborts the run with an invalid-value error.
	MissingFail MissingPolicy = "fail"
)

// ColumnRule describes the cleaning applied to one column: optional
// rename, whitespace trim, exact-match value rewrites, coercion to a
// target type, and the policy for cells that end up null. A rule with
// Create set adds the column when the input table does not have it,
// which lets one rule set normalize tables with differing shapes
// before a concat. Created cells resolve through the same missing
// policy, so create with fill supplies a constant and create with drop
// removes every row.
type ColumnRule struct {
	Name      string            `yaml:"name" validate:"required"`
	Type      dataset.Kind      `yaml:"type"`
	Rename    string            `yaml:"rename,omitempty"`
	Trim      bool              `yaml:"trim,omitempty"`
	Replace   map[string]string `yaml:"replace,omitempty"`
	OnMissing MissingPolicy     `yaml:"on_missing,omitempty" validate:"omitempty,oneof=keep drop fill fail"`
	Fill      string            `yaml:"fill,omitempty"`
	Create    bool              `yaml:"create,omitempty"`
}

// outputName is the column name after an optional rename.
func (r ColumnRule) outputName() string {
	if r.Rename != "" {
		return r.Rename
	}
	return r.Name
}

// CleanReport records what cleaning did to one table.
type CleanReport struct {
	Table        string `json:"table"`
	RowsIn       int    `json:"rows_in"`
	RowsOut      int    `json:"rows_out"`
	RowsDropped  int    `json:"rows_dropped"`
	CellsCoerced int    `json:"cells_coerced"`
	InvalidCells int    `json:"invalid_cells"`
	NullsFilled  int    `json:"nulls_filled"`
}

// Cleaner applies column rules to raw tables.
type Cleaner struct {
	logger *slog.Logger
}

// NewCleaner creates a new cleaner.
func NewCleaner(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger}
}

// Clean returns a new table with the rules applied, plus a report of
// rows dropped and cells touched. Columns without a rule pass through
// unchanged. Cleaning is idempotent: running Clean on its own output
// with the same rules drops no further rows.
func (c *Cleaner) Clean(ctx context.Context, t *dataset.Table, rules []ColumnRule) (*dataset.Table, *CleanReport, error) {
	report := &CleanReport{Table: t.Name(), RowsIn: t.NumRows()}

	ruleFor := make(map[string]ColumnRule, len(rules))
	var created []ColumnRule
	for _, r := range rules {
		if t.HasColumn(r.Name) {
			ruleFor[r.Name] = r
			continue
		}
		if r.Create {
			created = append(created, r)
			continue
		}
		return nil, nil, errors.NewSchemaError(fmt.Sprintf(
			"table %q has no column %q required by cleaning rules", t.Name(), r.Name)).
			WithContext("table", t.Name()).
			WithContext("column", r.Name)
	}

	// Output schema: existing columns (renamed/retyped per rule) then
	// created columns.
	inFields := t.Fields()
	outFields := make([]dataset.Field, 0, len(inFields)+len(created))
	for _, f := range inFields {
		if r, ok := ruleFor[f.Name]; ok {
			outFields = append(outFields, dataset.Field{Name: r.outputName(), Kind: r.Type})
		} else {
			outFields = append(outFields, f)
		}
	}
	for _, r := range created {
		outFields = append(outFields, dataset.Field{Name: r.outputName(), Kind: r.Type})
	}

	out, err := dataset.New(t.Name(), outFields)
	if err != nil {
		return nil, nil, err
	}

	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		cells := make([]dataset.Value, 0, len(outFields))
		drop := false

		for j, f := range inFields {
			r, ok := ruleFor[f.Name]
			if !ok {
				cells = append(cells, row[j])
				continue
			}
			v, err := c.cleanCell(t, r, f, row[j], i, report)
			if err != nil {
				return nil, nil, err
			}
			if v.IsNull() && r.OnMissing == MissingDrop {
				drop = true
				break
			}
			cells = append(cells, v)
		}
		if !drop {
			for _, r := range created {
				v, err := c.missingCell(t, r, i, report)
				if err != nil {
					return nil, nil, err
				}
				if v.IsNull() && r.OnMissing == MissingDrop {
					drop = true
					break
				}
				cells = append(cells, v)
			}
		}
		if drop {
			report.RowsDropped++
			continue
		}

		if err := out.AppendRow(cells); err != nil {
			return nil, nil, err
		}
	}

	report.RowsOut = out.NumRows()
	c.logger.InfoContext(ctx, "cleaned table",
		slog.String("table", t.Name()),
		slog.Int("rows_in", report.RowsIn),
		slog.Int("rows_out", report.RowsOut),
		slog.Int("rows_dropped", report.RowsDropped),
		slog.Int("cells_coerced", report.CellsCoerced),
		slog.Int("invalid_cells", report.InvalidCells))

	return out, report, nil
}

// cleanCell coerces one cell under its rule and applies the missing
// policy if the result is null. Drop is handled by the caller.
func (c *Cleaner) cleanCell(t *dataset.Table, r ColumnRule, f dataset.Field, v dataset.Value, rowIdx int, report *CleanReport) (dataset.Value, error) {
	// Already-typed cells of the target kind pass through untouched,
	// except that string cells still get trim and replace so Clean is a
	// pure fixed point on its own output.
	if v.Kind() == r.Type && f.Kind != dataset.KindString {
		if v.IsNull() {
			return c.missingCell(t, r, rowIdx, report)
		}
		return v, nil
	}

	if f.Kind != dataset.KindString {
		return dataset.Value{}, errors.NewSchemaError(fmt.Sprintf(
			"table %q: cannot coerce column %q from %s to %s",
			t.Name(), r.Name, f.Kind, r.Type))
	}

	raw := v.Str()
	if r.Trim {
		raw = strings.TrimSpace(raw)
	}
	if repl, ok := r.Replace[raw]; ok {
		raw = repl
	}

	parsed, err := dataset.Parse(r.Type, raw)
	if err != nil {
		// Unparseable values become null and fall under the missing
		// policy rather than aborting the run.
		report.InvalidCells++
		parsed = dataset.Null(r.Type)
	} else if raw != "" && r.Type != dataset.KindString {
		report.CellsCoerced++
	}

	if parsed.IsNull() {
		return c.missingCell(t, r, rowIdx, report)
	}
	return parsed, nil
}

// missingCell resolves a null under the rule's policy. MissingDrop
// returns the null unchanged; the caller drops the row.
func (c *Cleaner) missingCell(t *dataset.Table, r ColumnRule, rowIdx int, report *CleanReport) (dataset.Value, error) {
	switch r.OnMissing {
	case MissingFail:
		return dataset.Value{}, errors.NewInvalidValueError(fmt.Sprintf(
			"table %q: column %q is null at row %d", t.Name(), r.outputName(), rowIdx)).
			WithContext("table", t.Name()).
			WithContext("column", r.outputName()).
			WithContext("row", rowIdx)
	case MissingFill:
		fill, err := dataset.Parse(r.Type, r.Fill)
		if err != nil {
			return dataset.Value{}, errors.NewConfigError(fmt.Sprintf(
				"rule for column %q: fill value %q is not a valid %s", r.Name, r.Fill, r.Type), err)
		}
		report.NullsFilled++
		return fill, nil
	default:
		return dataset.Null(r.Type), nil
	}
}
