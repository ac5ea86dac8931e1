package dataset

import (
	"fmt"
	"sort"

	"petpulse/internal/errors"
)

// Field declares one column of a table schema.
type Field struct {
	Name string
	Kind Kind
}

// Table is a row-oriented table with a fixed, typed schema. Rows are
// appended with kind checking so a column never mixes types.
type Table struct {
	name   string
	fields []Field
	index  map[string]int
	rows   [][]Value
}

// New creates an empty table with the given schema. Column names must
// be unique and non-empty.
func New(name string, fields []Field) (*Table, error) {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, errors.NewSchemaError(fmt.Sprintf("table %q: column %d has empty name", name, i))
		}
		if _, dup := index[f.Name]; dup {
			return nil, errors.NewSchemaError(fmt.Sprintf("table %q: duplicate column %q", name, f.Name)).
				WithContext("table", name).
				WithContext("column", f.Name)
		}
		index[f.Name] = i
	}
	return &Table{
		name:   name,
		fields: append([]Field(nil), fields...),
		index:  index,
	}, nil
}

// Name returns the table name (typically the source file base name).
func (t *Table) Name() string { return t.name }

// Fields returns a copy of the schema.
func (t *Table) Fields() []Field {
	return append([]Field(nil), t.fields...)
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.fields) }

// ColumnIndex returns the position of a column by name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AppendRow adds a row after checking arity and cell kinds against the
// schema. Null cells must still carry the declared column kind.
func (t *Table) AppendRow(vals []Value) error {
	if len(vals) != len(t.fields) {
		return errors.NewSchemaError(fmt.Sprintf(
			"table %q: row has %d cells, schema has %d columns", t.name, len(vals), len(t.fields)))
	}
	for i, v := range vals {
		if v.Kind() != t.fields[i].Kind {
			return errors.NewSchemaError(fmt.Sprintf(
				"table %q: column %q expects %s, got %s",
				t.name, t.fields[i].Name, t.fields[i].Kind, v.Kind()))
		}
	}
	t.rows = append(t.rows, append([]Value(nil), vals...))
	return nil
}

// Row returns the i-th row. The returned slice is shared; callers must
// not mutate it.
func (t *Table) Row(i int) []Value { return t.rows[i] }

// Value returns the cell at row i, column name.
func (t *Table) Value(i int, column string) (Value, error) {
	idx, ok := t.index[column]
	if !ok {
		return Value{}, errors.NewSchemaError(fmt.Sprintf("table %q: no column %q", t.name, column))
	}
	return t.rows[i][idx], nil
}

// Column returns all cells of a column in row order.
func (t *Table) Column(name string) ([]Value, error) {
	idx, ok := t.index[name]
	if !ok {
		return nil, errors.NewSchemaError(fmt.Sprintf("table %q: no column %q", t.name, name))
	}
	out := make([]Value, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[idx]
	}
	return out, nil
}

// AddColumn appends a new column with the given cells. The number of
// cells must match the current row count.
func (t *Table) AddColumn(field Field, vals []Value) error {
	if t.HasColumn(field.Name) {
		return errors.NewSchemaError(fmt.Sprintf("table %q: column %q already exists", t.name, field.Name))
	}
	if len(vals) != len(t.rows) {
		return errors.NewSchemaError(fmt.Sprintf(
			"table %q: column %q has %d cells for %d rows", t.name, field.Name, len(vals), len(t.rows)))
	}
	for i, v := range vals {
		if v.Kind() != field.Kind {
			return errors.NewSchemaError(fmt.Sprintf(
				"table %q: column %q expects %s, got %s at row %d",
				t.name, field.Name, field.Kind, v.Kind(), i))
		}
	}
	t.index[field.Name] = len(t.fields)
	t.fields = append(t.fields, field)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], vals[i])
	}
	return nil
}

// Select returns a new table containing the named columns in the given
// order. Unknown columns are a schema error.
func (t *Table) Select(names ...string) (*Table, error) {
	fields := make([]Field, 0, len(names))
	idxs := make([]int, 0, len(names))
	for _, name := range names {
		i, ok := t.index[name]
		if !ok {
			return nil, errors.NewSchemaError(fmt.Sprintf("table %q: no column %q", t.name, name))
		}
		fields = append(fields, t.fields[i])
		idxs = append(idxs, i)
	}
	out, err := New(t.name, fields)
	if err != nil {
		return nil, err
	}
	for _, row := range t.rows {
		cells := make([]Value, len(idxs))
		for j, i := range idxs {
			cells[j] = row[i]
		}
		out.rows = append(out.rows, cells)
	}
	return out, nil
}

// SortBy stable-sorts rows by the named columns, nulls first.
func (t *Table) SortBy(columns ...string) error {
	idxs := make([]int, 0, len(columns))
	for _, name := range columns {
		i, ok := t.index[name]
		if !ok {
			return errors.NewSchemaError(fmt.Sprintf("table %q: no column %q", t.name, name))
		}
		idxs = append(idxs, i)
	}
	sort.SliceStable(t.rows, func(a, b int) bool {
		for _, i := range idxs {
			va, vb := t.rows[a][i], t.rows[b][i]
			if va.Equal(vb) {
				continue
			}
			return Less(va, vb)
		}
		return false
	})
	return nil
}

// Clone returns a deep copy of the table, optionally renamed.
func (t *Table) Clone(name string) *Table {
	if name == "" {
		name = t.name
	}
	out := &Table{
		name:   name,
		fields: append([]Field(nil), t.fields...),
		index:  make(map[string]int, len(t.index)),
		rows:   make([][]Value, len(t.rows)),
	}
	for k, v := range t.index {
		out.index[k] = v
	}
	for i, row := range t.rows {
		out.rows[i] = append([]Value(nil), row...)
	}
	return out
}
