package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petpulse/internal/errors"
)

func petFields() []Field {
	return []Field{
		{Name: "pet_id", Kind: KindString},
		{Name: "date", Kind: KindTime},
		{Name: "duration_minutes", Kind: KindFloat},
	}
}

func TestNew_DuplicateColumn(t *testing.T) {
	_, err := New("activities", []Field{
		{Name: "pet_id", Kind: KindString},
		{Name: "pet_id", Kind: KindString},
	})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindSchema))
}

func TestTable_AppendRow(t *testing.T) {
	tbl, err := New("activities", petFields())
	require.NoError(t, err)

	require.NoError(t, tbl.AppendRow([]Value{
		String("p-001"),
		Time(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
		Float(30),
	}))
	require.NoError(t, tbl.AppendRow([]Value{
		String("p-002"),
		Null(KindTime),
		Null(KindFloat),
	}))
	assert.Equal(t, 2, tbl.NumRows())

	// Wrong arity.
	err = tbl.AppendRow([]Value{String("p-003")})
	assert.True(t, errors.IsKind(err, errors.KindSchema))

	// Wrong kind, even for a null cell.
	err = tbl.AppendRow([]Value{String("p-003"), Null(KindString), Float(1)})
	assert.True(t, errors.IsKind(err, errors.KindSchema))
}

func TestTable_SelectAndSort(t *testing.T) {
	tbl, err := New("activities", petFields())
	require.NoError(t, err)

	rows := [][]Value{
		{String("p-002"), Time(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)), Float(15)},
		{String("p-001"), Time(time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)), Float(45)},
		{String("p-001"), Time(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)), Null(KindFloat)},
	}
	for _, r := range rows {
		require.NoError(t, tbl.AppendRow(r))
	}

	require.NoError(t, tbl.SortBy("pet_id", "date"))
	first, err := tbl.Value(0, "pet_id")
	require.NoError(t, err)
	assert.Equal(t, "p-001", first.Str())
	firstDate, err := tbl.Value(0, "date")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", firstDate.Format())

	sel, err := tbl.Select("date", "pet_id")
	require.NoError(t, err)
	assert.Equal(t, []Field{{Name: "date", Kind: KindTime}, {Name: "pet_id", Kind: KindString}}, sel.Fields())
	assert.Equal(t, 3, sel.NumRows())

	_, err = tbl.Select("missing")
	assert.True(t, errors.IsKind(err, errors.KindSchema))
}

func TestTable_AddColumn(t *testing.T) {
	tbl, err := New("users", []Field{{Name: "owner_id", Kind: KindString}})
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow([]Value{String("o-1")}))
	require.NoError(t, tbl.AppendRow([]Value{String("o-2")}))

	require.NoError(t, tbl.AddColumn(
		Field{Name: "pet_type", Kind: KindString},
		[]Value{String("Dog"), Null(KindString)},
	))
	assert.Equal(t, 2, tbl.NumCols())

	v, err := tbl.Value(1, "pet_type")
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	// Length mismatch.
	err = tbl.AddColumn(Field{Name: "age", Kind: KindInt}, []Value{Int(3)})
	assert.True(t, errors.IsKind(err, errors.KindSchema))
}

func TestTable_Clone(t *testing.T) {
	tbl, err := New("users", []Field{{Name: "owner_id", Kind: KindString}})
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow([]Value{String("o-1")}))

	cp := tbl.Clone("copy")
	require.NoError(t, cp.AppendRow([]Value{String("o-2")}))

	assert.Equal(t, 1, tbl.NumRows())
	assert.Equal(t, 2, cp.NumRows())
	assert.Equal(t, "copy", cp.Name())
}
