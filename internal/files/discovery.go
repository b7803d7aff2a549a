package files

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// FileInfo describes one discovered file. Stem is only set for session
// exports.
type FileInfo struct {
	Path    string
	Name    string
	Stem    string
	ModTime time.Time
}

// Discovery lists session exports and generated reports. Relative
// directories resolve against basePath.
type Discovery struct {
	basePath string
}

func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindSessionFiles returns the *.xml exports in dir, sorted by name.
// The scan is non-recursive, so repeated runs see the batch in the
// same order.
func (d *Discovery) FindSessionFiles(dir string) ([]FileInfo, error) {
	found, err := d.scan(dir, ".xml")
	if err != nil {
		return nil, err
	}
	for i := range found {
		found[i].Stem = SessionStem(found[i].Name)
	}
	return found, nil
}

// FindReportFiles returns the generated CSV and workbook files in dir,
// sorted by name.
func (d *Discovery) FindReportFiles(dir string) ([]FileInfo, error) {
	return d.scan(dir, ".csv", ".xlsx")
}

// scan lists the regular files in dir whose lowercased name ends in
// one of exts.
func (d *Discovery) scan(dir string, exts ...string) ([]FileInfo, error) {
	full := d.resolve(dir)

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", full, err)
	}

	var found []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !hasExt(entry.Name(), exts) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}
		found = append(found, FileInfo{
			Path:    filepath.Join(full, entry.Name()),
			Name:    entry.Name(),
			ModTime: info.ModTime(),
		})
	}

	slices.SortFunc(found, func(a, b FileInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return found, nil
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

func hasExt(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// SessionStem returns a session file name with its .xml extension
// removed. Table rows are keyed by this stem, never the full name.
func SessionStem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// GetLatestFile returns the most recently modified entry in files.
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}
	latest := slices.MaxFunc(files, func(a, b FileInfo) int {
		return a.ModTime.Compare(b.ModTime)
	})
	return latest, true
}
