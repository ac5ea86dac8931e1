// Package files locates raw data files on disk for the pipeline.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"petpulse/internal/errors"
)

// dataExtensions are the input formats the loader understands.
var dataExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xls":  true,
}

// FileInfo describes a discovered data file.
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds data files under a base directory.
type Discovery struct {
	basePath string
}

// NewDiscovery creates a discovery rooted at basePath.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindDataFiles returns the CSV/Excel files in dir, sorted by name so
// runs are deterministic. dir is resolved against the base path unless
// absolute.
func (d *Discovery) FindDataFiles(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewMissingFileError(fullPath, err)
		}
		return nil, errors.NewStorageError(fmt.Sprintf("cannot read directory %s", fullPath), err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !dataExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// Paths extracts the full paths from a discovery result.
func Paths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}
