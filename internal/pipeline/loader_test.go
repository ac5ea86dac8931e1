package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petpulse/internal/dataset"
	"petpulse/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_LoadFile_CSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pet_activities.csv",
		"pet_id,date,activity_type,duration_minutes\n"+
			"p-001,2024-05-01,Walking,30\n"+
			"p-002,2024-05-01,,\n")

	loader := NewLoader(slog.Default())
	table, err := loader.LoadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "pet_activities", table.Name())
	assert.Equal(t, 2, table.NumRows())
	assert.Equal(t, 4, table.NumCols())

	// Cells load as strings; empty cells are null.
	v, err := table.Value(0, "duration_minutes")
	require.NoError(t, err)
	assert.Equal(t, dataset.KindString, v.Kind())
	assert.Equal(t, "30", v.Str())

	v, err = table.Value(1, "activity_type")
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestLoader_LoadFile_MissingFile(t *testing.T) {
	loader := NewLoader(slog.Default())
	_, err := loader.LoadFile(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindMissingFile))
}

func TestLoader_LoadFile_MalformedCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.csv",
		"pet_id,date\n"+
			"p-001,2024-05-01,extra-cell\n")

	loader := NewLoader(slog.Default())
	_, err := loader.LoadFile(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindParse))
}

func TestLoader_LoadFile_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.csv", "")

	loader := NewLoader(slog.Default())
	_, err := loader.LoadFile(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindParse))
}

func TestLoader_LoadFile_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "hello")

	loader := NewLoader(slog.Default())
	_, err := loader.LoadFile(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindParse))
}

func TestLoader_LoadFile_BOMHeader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "users.csv", "\ufeffpet_id,owner_id\np-001,o-001\n")

	loader := NewLoader(slog.Default())
	table, err := loader.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, table.HasColumn("pet_id"))
}

func TestLoader_Load_AbortsOnFirstFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "users.csv", "pet_id,owner_id\np-001,o-001\n")

	loader := NewLoader(slog.Default())
	_, err := loader.Load(context.Background(), []string{good, filepath.Join(dir, "absent.csv")})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindMissingFile))
}
