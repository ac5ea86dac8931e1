package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petpulse/internal/dataset"
	"petpulse/internal/errors"
)

func preparedTable(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.New("processed_data", []dataset.Field{
		{Name: "pet_id", Kind: dataset.KindString},
		{Name: "date", Kind: dataset.KindTime},
		{Name: "activity_type", Kind: dataset.KindString},
		{Name: "duration_minutes", Kind: dataset.KindFloat},
	})
	require.NoError(t, err)

	day := func(d int) dataset.Value {
		return dataset.Time(time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC))
	}
	rows := [][]dataset.Value{
		{dataset.String("A"), day(1), dataset.String("Walking"), dataset.Float(30)},
		{dataset.String("A"), day(11), dataset.String("Playing"), dataset.Float(50)},
		{dataset.String("B"), day(5), dataset.String("Walking"), dataset.Float(20)},
		{dataset.String("B"), day(8), dataset.String("Health"), dataset.Float(0)},
		{dataset.String("C"), dataset.Null(dataset.KindTime), dataset.String("Resting"), dataset.Null(dataset.KindFloat)},
	}
	for _, r := range rows {
		require.NoError(t, table.AppendRow(r))
	}
	return table
}

func TestSummarizer_Summarize(t *testing.T) {
	summarizer := NewSummarizer(slog.Default(), DefaultOptions())
	summary, err := summarizer.Summarize(context.Background(), preparedTable(t))
	require.NoError(t, err)

	assert.NotEmpty(t, summary.ReportID)
	assert.Equal(t, 5, summary.Rows)
	assert.Equal(t, 3, summary.Entities)
	assert.Equal(t, "2024-01-01", summary.FirstDate)
	assert.Equal(t, "2024-01-11", summary.LastDate)

	require.Len(t, summary.Categories, 4)
	// Sorted by category name.
	assert.Equal(t, "Health", summary.Categories[0].Category)
	walking := summary.Categories[3]
	assert.Equal(t, "Walking", walking.Category)
	assert.Equal(t, 2, walking.Records)
	assert.Equal(t, 50.0, walking.TotalValue)
	assert.Equal(t, 25.0, walking.MeanValue)

	require.Len(t, summary.PerEntity, 3)
	a := summary.PerEntity[0]
	assert.Equal(t, "A", a.Entity)
	assert.Equal(t, 2, a.Records)
	assert.Equal(t, 10.0, a.SpanDays)

	// Entity with no dated records has an empty range.
	c := summary.PerEntity[2]
	assert.Equal(t, "C", c.Entity)
	assert.Empty(t, c.FirstDate)
	assert.Equal(t, 0.0, c.SpanDays)
}

func TestSummarizer_Summarize_MissingEntityColumn(t *testing.T) {
	table, err := dataset.New("x", []dataset.Field{{Name: "date", Kind: dataset.KindTime}})
	require.NoError(t, err)

	summarizer := NewSummarizer(slog.Default(), DefaultOptions())
	_, err = summarizer.Summarize(context.Background(), table)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindSchema))
}

func TestSummarizer_WriteMarkdown(t *testing.T) {
	ctx := context.Background()
	summarizer := NewSummarizer(slog.Default(), DefaultOptions())
	summary, err := summarizer.Summarize(ctx, preparedTable(t))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "products", "eda_report.md")
	require.NoError(t, summarizer.WriteMarkdown(ctx, path, summary))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# Exploratory Data Analysis Report")
	assert.Contains(t, text, "- Records: 5")
	assert.Contains(t, text, "| Walking | 2 | 50.0 | 25.0 |")
	assert.Contains(t, text, "| A | 2 | 2024-01-01 | 2024-01-11 | 10.0 |")
}

func TestSummarizer_WriteJSON(t *testing.T) {
	ctx := context.Background()
	summarizer := NewSummarizer(slog.Default(), DefaultOptions())
	summary, err := summarizer.Summarize(ctx, preparedTable(t))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "eda_report.json")
	require.NoError(t, summarizer.WriteJSON(ctx, path, summary))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Summary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, summary.Rows, decoded.Rows)
	assert.Equal(t, summary.ReportID, decoded.ReportID)
	require.Len(t, decoded.PerEntity, 3)
}
