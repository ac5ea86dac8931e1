package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"petpulse/internal/dataset"
	"petpulse/internal/errors"
)

// Merger combines cleaned tables: Merge performs inner joins on a
// shared key, Concat stacks tables row-wise over the union of their
// schemas.
type Merger struct {
	logger *slog.Logger
}

// NewMerger creates a new merger.
func NewMerger(logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{logger: logger}
}

// Merge inner-joins the tables left to right on the given key. Every
// table must carry the key with the same type. Duplicate keys on either
// side fan out. Rows whose key is null never match anything. The output
// row count is therefore at most the product of per-key match counts
// and never exceeds what the matched pairs produce.
func (m *Merger) Merge(ctx context.Context, tables []*dataset.Table, key string) (*dataset.Table, error) {
	if len(tables) == 0 {
		return nil, errors.NewSchemaError("merge requires at least one table")
	}

	var keyKind dataset.Kind
	for i, t := range tables {
		idx, ok := t.ColumnIndex(key)
		if !ok {
			return nil, errors.NewSchemaError(fmt.Sprintf(
				"join key %q missing from table %q", key, t.Name())).
				WithContext("table", t.Name()).
				WithContext("column", key)
		}
		kind := t.Fields()[idx].Kind
		if i == 0 {
			keyKind = kind
		} else if kind != keyKind {
			return nil, errors.NewSchemaError(fmt.Sprintf(
				"join key %q is %s in table %q but %s in table %q",
				key, keyKind, tables[0].Name(), kind, t.Name()))
		}
	}

	result := tables[0]
	for _, right := range tables[1:] {
		joined, err := m.join(result, right, key)
		if err != nil {
			return nil, err
		}
		result = joined
	}

	m.logger.InfoContext(ctx, "merged tables",
		slog.String("join_key", key),
		slog.Int("tables", len(tables)),
		slog.Int("rows", result.NumRows()))

	return result.Clone("merged"), nil
}

// join performs one inner hash join of left against right.
func (m *Merger) join(left, right *dataset.Table, key string) (*dataset.Table, error) {
	leftKey, _ := left.ColumnIndex(key)
	rightKey, _ := right.ColumnIndex(key)

	// Output schema: all left columns, then right columns minus the
	// key. Name collisions get the right table's name as a suffix.
	leftFields := left.Fields()
	rightFields := right.Fields()
	outFields := append([]dataset.Field(nil), leftFields...)
	rightCols := make([]int, 0, len(rightFields)-1)
	for i, f := range rightFields {
		if i == rightKey {
			continue
		}
		name := f.Name
		if left.HasColumn(name) {
			name = fmt.Sprintf("%s_%s", name, right.Name())
		}
		outFields = append(outFields, dataset.Field{Name: name, Kind: f.Kind})
		rightCols = append(rightCols, i)
	}

	out, err := dataset.New(left.Name(), outFields)
	if err != nil {
		return nil, err
	}

	// Hash index over the right side; null keys are excluded.
	index := make(map[string][]int)
	for i := 0; i < right.NumRows(); i++ {
		k := right.Row(i)[rightKey]
		if k.IsNull() {
			continue
		}
		index[k.Format()] = append(index[k.Format()], i)
	}

	for i := 0; i < left.NumRows(); i++ {
		leftRow := left.Row(i)
		k := leftRow[leftKey]
		if k.IsNull() {
			continue
		}
		for _, ri := range index[k.Format()] {
			rightRow := right.Row(ri)
			cells := make([]dataset.Value, 0, len(outFields))
			cells = append(cells, leftRow...)
			for _, ci := range rightCols {
				cells = append(cells, rightRow[ci])
			}
			if err := out.AppendRow(cells); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Concat stacks tables row-wise. The output schema is the union of the
// input schemas in first-seen column order; cells absent from a source
// table are null. The same column name must have the same type
// everywhere.
func (m *Merger) Concat(ctx context.Context, name string, tables []*dataset.Table) (*dataset.Table, error) {
	if len(tables) == 0 {
		return nil, errors.NewSchemaError("concat requires at least one table")
	}

	var outFields []dataset.Field
	kinds := make(map[string]dataset.Kind)
	for _, t := range tables {
		for _, f := range t.Fields() {
			if kind, seen := kinds[f.Name]; seen {
				if kind != f.Kind {
					return nil, errors.NewSchemaError(fmt.Sprintf(
						"concat: column %q is %s in one table and %s in table %q",
						f.Name, kind, f.Kind, t.Name()))
				}
				continue
			}
			kinds[f.Name] = f.Kind
			outFields = append(outFields, f)
		}
	}

	out, err := dataset.New(name, outFields)
	if err != nil {
		return nil, err
	}

	for _, t := range tables {
		colIdx := make([]int, len(outFields))
		for i, f := range outFields {
			if idx, ok := t.ColumnIndex(f.Name); ok {
				colIdx[i] = idx
			} else {
				colIdx[i] = -1
			}
		}
		for r := 0; r < t.NumRows(); r++ {
			row := t.Row(r)
			cells := make([]dataset.Value, len(outFields))
			for i := range outFields {
				if colIdx[i] >= 0 {
					cells[i] = row[colIdx[i]]
				} else {
					cells[i] = dataset.Null(outFields[i].Kind)
				}
			}
			if err := out.AppendRow(cells); err != nil {
				return nil, err
			}
		}
	}

	m.logger.InfoContext(ctx, "concatenated tables",
		slog.String("result", name),
		slog.Int("tables", len(tables)),
		slog.Int("rows", out.NumRows()))

	return out, nil
}
