package build

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dreschagin/edge-adapter/internal/assets"
)

// ManifestEntry is one chunk in the framework's client manifest.
type ManifestEntry struct {
	File string `json:"file"`
}

// Manifest maps source modules to the client chunk built for them.
type Manifest map[string]ManifestEntry

func ReadManifest(fsys fs.FS, name string) (Manifest, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", name, err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", name, err)
	}
	return manifest, nil
}

// Files lists the chunk files named by the manifest, sorted and unique.
func (m Manifest) Files() []string {
	seen := make(map[string]struct{}, len(m))
	files := make([]string, 0, len(m))
	for _, entry := range m {
		if entry.File == "" {
			continue
		}
		if _, ok := seen[entry.File]; ok {
			continue
		}
		seen[entry.File] = struct{}{}
		files = append(files, entry.File)
	}
	sort.Strings(files)
	return files
}

// StaticPathSet is the union of the staged listing and the manifest chunks.
func StaticPathSet(staged []string, manifest Manifest) []string {
	union := make([]string, 0, len(staged)+len(manifest))
	union = append(union, staged...)
	union = append(union, manifest.Files()...)

	seen := make(map[string]struct{}, len(union))
	result := union[:0]
	for _, path := range union {
		path = strings.TrimPrefix(path, "/")
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		result = append(result, path)
	}
	sort.Strings(result)
	return result
}

// StaticPathsFile is the on-disk form consumed by edge-host.
type StaticPathsFile struct {
	// Paths excludes everything under the asset prefix.
	Paths   []string `json:"paths"`
	Pattern string   `json:"pattern"`
}

func WriteStaticPaths(filename string, paths []string) error {
	file := StaticPathsFile{
		Paths:   assets.StaticPaths(paths),
		Pattern: assets.Pattern(paths),
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode static paths: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(filename), err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}

func ReadStaticPaths(filename string) (*StaticPathsFile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read static paths: %w", err)
	}

	var file StaticPathsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode static paths %s: %w", filename, err)
	}
	return &file, nil
}
