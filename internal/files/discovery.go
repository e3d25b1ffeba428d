package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Extensions the catalogue recognises
var (
	DatasetExtensions = []string{".csv", ".xlsx", ".xls", ".json"}
	RuleSetExtensions = []string{".yaml", ".yml"}
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	IsDir   bool      `json:"is_dir"`
}

// Discovery lists files under a base path
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

// FindByExtension returns the regular files in dir whose extension matches
// one of exts, case-insensitively, oldest first
func (d *Discovery) FindByExtension(dir string, exts ...string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	files := []FileInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !hasExtension(entry.Name(), exts) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sortByModTime(files)
	return files, nil
}

// FindDatasets lists the loadable datasets in dir
func (d *Discovery) FindDatasets(dir string) ([]FileInfo, error) {
	return d.FindByExtension(dir, DatasetExtensions...)
}

// FindRuleSets lists the YAML rule sets in dir
func (d *Discovery) FindRuleSets(dir string) ([]FileInfo, error) {
	return d.FindByExtension(dir, RuleSetExtensions...)
}

// FindFilesByPattern finds files matching a glob pattern
func (d *Discovery) FindFilesByPattern(dir string, pattern string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	matches, err := filepath.Glob(filepath.Join(fullPath, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	files := []FileInfo{}
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, FileInfo{
			Path:    match,
			Name:    filepath.Base(match),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return files, nil
}

// ListDirectories lists the subdirectories of dir, oldest first. Size is the
// number of entries each one holds.
func (d *Discovery) ListDirectories(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	dirs := []FileInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(fullPath, entry.Name())
		children, _ := os.ReadDir(path)
		dirs = append(dirs, FileInfo{
			Path:    path,
			Name:    entry.Name(),
			Size:    int64(len(children)),
			ModTime: info.ModTime(),
			IsDir:   true,
		})
	}

	sortByModTime(dirs)
	return dirs, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}

// FilterFilesByDateRange keeps files modified within [startDate, endDate].
// A zero bound is open.
func FilterFilesByDateRange(files []FileInfo, startDate, endDate time.Time) []FileInfo {
	filtered := make([]FileInfo, 0, len(files))
	for _, file := range files {
		if !startDate.IsZero() && file.ModTime.Before(startDate) {
			continue
		}
		if !endDate.IsZero() && file.ModTime.After(endDate) {
			continue
		}
		filtered = append(filtered, file)
	}
	return filtered
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// sortByModTime orders oldest first, by name on ties
func sortByModTime(files []FileInfo) {
	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})
}
