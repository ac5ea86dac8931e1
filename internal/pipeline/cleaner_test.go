package pipeline

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petpulse/internal/dataset"
	"petpulse/internal/errors"
)

func rawTable(t *testing.T, name string, header []string, rows [][]string) *dataset.Table {
	t.Helper()
	fields := make([]dataset.Field, len(header))
	for i, h := range header {
		fields[i] = dataset.Field{Name: h, Kind: dataset.KindString}
	}
	table, err := dataset.New(name, fields)
	require.NoError(t, err)
	for _, row := range rows {
		cells := make([]dataset.Value, len(row))
		for i, c := range row {
			if c == "" {
				cells[i] = dataset.Null(dataset.KindString)
			} else {
				cells[i] = dataset.String(c)
			}
		}
		require.NoError(t, table.AppendRow(cells))
	}
	return table
}

func activityRules() []ColumnRule {
	return []ColumnRule{
		{Name: "pet_id", Type: dataset.KindString, Trim: true, OnMissing: MissingDrop},
		{Name: "date", Type: dataset.KindTime, OnMissing: MissingDrop},
		{Name: "activity_type", Type: dataset.KindString, Trim: true,
			Replace: map[string]string{"Play": "Playing", "Walk": "Walking", "Rest": "Resting"}},
		{Name: "duration_minutes", Type: dataset.KindFloat,
			Replace: map[string]string{"-": ""}},
	}
}

func TestCleaner_Clean(t *testing.T) {
	table := rawTable(t, "pet_activities",
		[]string{"pet_id", "date", "activity_type", "duration_minutes"},
		[][]string{
			{"p-001", "2024-05-01", " Walk ", "30"},
			{"p-001", "2024-05-03", "Play", "-"},
			{"", "2024-05-04", "Resting", "10"},
			{"p-002", "", "Walking", "20"},
		})

	cleaner := NewCleaner(slog.Default())
	cleaned, report, err := cleaner.Clean(context.Background(), table, activityRules())
	require.NoError(t, err)

	assert.Equal(t, 4, report.RowsIn)
	assert.Equal(t, 2, report.RowsOut)
	assert.Equal(t, 2, report.RowsDropped)

	v, err := cleaned.Value(0, "activity_type")
	require.NoError(t, err)
	assert.Equal(t, "Walking", v.Str())

	v, err = cleaned.Value(0, "duration_minutes")
	require.NoError(t, err)
	assert.Equal(t, dataset.KindFloat, v.Kind())
	assert.Equal(t, 30.0, v.Float64())

	// "Play" normalized, "-" duration became null.
	v, err = cleaned.Value(1, "activity_type")
	require.NoError(t, err)
	assert.Equal(t, "Playing", v.Str())
	v, err = cleaned.Value(1, "duration_minutes")
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	v, err = cleaned.Value(0, "date")
	require.NoError(t, err)
	assert.Equal(t, dataset.KindTime, v.Kind())
}

func TestCleaner_Clean_Idempotent(t *testing.T) {
	table := rawTable(t, "pet_activities",
		[]string{"pet_id", "date", "activity_type", "duration_minutes"},
		[][]string{
			{"p-001", "2024-05-01", " Walk", "30"},
			{"p-001", "not-a-date", "Play", "-"},
			{"", "2024-05-04", "Rest", "10"},
		})

	cleaner := NewCleaner(slog.Default())
	once, report1, err := cleaner.Clean(context.Background(), table, activityRules())
	require.NoError(t, err)
	assert.Equal(t, 2, report1.RowsDropped) // missing pet_id, unparseable date

	twice, report2, err := cleaner.Clean(context.Background(), once, activityRules())
	require.NoError(t, err)
	assert.Equal(t, 0, report2.RowsDropped)
	assert.Equal(t, 0, report2.InvalidCells)
	assert.Equal(t, once.NumRows(), twice.NumRows())

	for i := 0; i < once.NumRows(); i++ {
		for j := range once.Fields() {
			assert.True(t, once.Row(i)[j].Equal(twice.Row(i)[j]),
				"row %d col %d changed on second clean", i, j)
		}
	}
}

func TestCleaner_Clean_FillPolicy(t *testing.T) {
	table := rawTable(t, "pet_health",
		[]string{"pet_id", "visit_date", "issue"},
		[][]string{
			{"p-001", "2024-02-10", "Limping"},
			{"p-002", "2024-02-11", ""},
		})

	rules := []ColumnRule{
		{Name: "pet_id", Type: dataset.KindString, OnMissing: MissingDrop},
		{Name: "visit_date", Rename: "date", Type: dataset.KindTime, OnMissing: MissingDrop},
		{Name: "issue", Type: dataset.KindString, Trim: true},
		{Name: "activity_type", Type: dataset.KindString, Create: true, Fill: "Health", OnMissing: MissingFill},
		{Name: "duration_minutes", Type: dataset.KindFloat, Create: true, Fill: "0", OnMissing: MissingFill},
	}

	cleaner := NewCleaner(slog.Default())
	cleaned, report, err := cleaner.Clean(context.Background(), table, rules)
	require.NoError(t, err)

	assert.True(t, cleaned.HasColumn("date"), "visit_date renamed")
	assert.False(t, cleaned.HasColumn("visit_date"))
	assert.Equal(t, 4, report.NullsFilled)

	v, err := cleaned.Value(1, "activity_type")
	require.NoError(t, err)
	assert.Equal(t, "Health", v.Str())

	v, err = cleaned.Value(0, "duration_minutes")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Float64())
}

func TestCleaner_Clean_CreatedColumnDropPolicy(t *testing.T) {
	table := rawTable(t, "pet_health",
		[]string{"pet_id"},
		[][]string{{"p-001"}, {"p-002"}})

	rules := []ColumnRule{
		{Name: "severity", Type: dataset.KindString, Create: true, OnMissing: MissingDrop},
	}

	cleaner := NewCleaner(slog.Default())
	cleaned, report, err := cleaner.Clean(context.Background(), table, rules)
	require.NoError(t, err)

	// A created cell without a fill is always null, so drop removes
	// every row while the column itself survives.
	assert.Equal(t, 0, cleaned.NumRows())
	assert.Equal(t, 2, report.RowsDropped)
	assert.True(t, cleaned.HasColumn("severity"))
}

func TestCleaner_Clean_FailPolicy(t *testing.T) {
	table := rawTable(t, "users",
		[]string{"pet_id", "owner_id"},
		[][]string{{"p-001", ""}})

	rules := []ColumnRule{
		{Name: "owner_id", Type: dataset.KindString, OnMissing: MissingFail},
	}

	cleaner := NewCleaner(slog.Default())
	_, _, err := cleaner.Clean(context.Background(), table, rules)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInvalidValue))
}

func TestCleaner_Clean_MissingRuledColumn(t *testing.T) {
	table := rawTable(t, "users", []string{"owner_id"}, nil)

	rules := []ColumnRule{
		{Name: "pet_id", Type: dataset.KindString},
	}

	cleaner := NewCleaner(slog.Default())
	_, _, err := cleaner.Clean(context.Background(), table, rules)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindSchema))
}

func TestCleaner_Clean_BadFillValue(t *testing.T) {
	table := rawTable(t, "users",
		[]string{"age"},
		[][]string{{""}})

	rules := []ColumnRule{
		{Name: "age", Type: dataset.KindInt, OnMissing: MissingFill, Fill: "unknown"},
	}

	cleaner := NewCleaner(slog.Default())
	_, _, err := cleaner.Clean(context.Background(), table, rules)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}
