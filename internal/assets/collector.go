// Package assets enumerates staged build output and describes the files in it.
package assets

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Collect returns every regular file below root, recursively. Directories are
// descended but never returned. Order is the walk order of the filesystem.
func Collect(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", root, err)
	}
	return files, nil
}

// RelativeChildren lists Collect(root) relative to root, using forward slashes
// so the results double as store keys and URL paths.
func RelativeChildren(root string) ([]string, error) {
	files, err := Collect(root)
	if err != nil {
		return nil, err
	}

	base := filepath.Clean(root) + string(filepath.Separator)
	relative := make([]string, 0, len(files))
	for _, file := range files {
		rel, err := removePrefix(file, base)
		if err != nil {
			return nil, err
		}
		relative = append(relative, filepath.ToSlash(rel))
	}
	return relative, nil
}

func removePrefix(value, prefix string) (string, error) {
	if !strings.HasPrefix(value, prefix) {
		return "", fmt.Errorf("value %q did not have prefix %q", value, prefix)
	}
	return value[len(prefix):], nil
}
