// Package build turns framework output into a deployable worker: staged
// static assets, one bundled script and the static path manifest.
package build

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dreschagin/edge-adapter/internal/assets"
)

// StageAssets empties target and copies every file of each source into it.
// Later sources overwrite earlier ones. It returns the staged listing.
func StageAssets(target string, sources ...fs.FS) ([]string, error) {
	if err := os.RemoveAll(target); err != nil {
		return nil, fmt.Errorf("clean %s: %w", target, err)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", target, err)
	}

	for _, source := range sources {
		if err := copyTree(source, target); err != nil {
			return nil, err
		}
	}

	return assets.RelativeChildren(target)
}

func copyTree(source fs.FS, target string) error {
	return fs.WalkDir(source, ".", func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		destination := filepath.Join(target, filepath.FromSlash(name))
		if entry.IsDir() {
			return os.MkdirAll(destination, 0o755)
		}
		return copyFile(source, name, destination)
	})
}

func copyFile(source fs.FS, name, destination string) error {
	in, err := source.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer in.Close()

	out, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("create %s: %w", destination, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", name, err)
	}
	return out.Close()
}
