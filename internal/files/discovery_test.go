package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petpulse/internal/errors"
)

func TestDiscovery_FindDataFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"users.csv", "pet_activities.csv", "notes.txt", "pet_health.xlsx"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.csv.d"), 0755))

	discovery := NewDiscovery(dir)
	found, err := discovery.FindDataFiles(".")
	require.NoError(t, err)

	names := make([]string, len(found))
	for i, f := range found {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"pet_activities.csv", "pet_health.xlsx", "users.csv"}, names)

	paths := Paths(found)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "pet_activities.csv"), paths[0])
}

func TestDiscovery_MissingDirectory(t *testing.T) {
	discovery := NewDiscovery(t.TempDir())
	_, err := discovery.FindDataFiles("nope")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindMissingFile))
}
