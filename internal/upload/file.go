package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File is one locally selected file, opened only when its turn comes
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FromPath returns a File reading from disk
func FromPath(path string) File {
	return File{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// ExpandPaths turns command-line arguments into upload files.
// Directories contribute their visible regular files, sorted by name.
func ExpandPaths(paths []string) ([]File, error) {
	var files []File
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, FromPath(p))
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("cannot list %s: %w", p, err)
		}
		var names []string
		for _, e := range entries {
			// Skip hidden files and directories
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			names = append(names, e.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			files = append(files, FromPath(filepath.Join(p, name)))
		}
	}
	return files, nil
}
