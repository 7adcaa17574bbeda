package assets

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestRelativeChildrenMatchesTree(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"favicon.png":                       "png",
		"robots.txt":                        "User-agent: *",
		"_app/start-abc.js":                 "export {}",
		"_app/assets/pages/index-def.css":   "body{}",
		"_app/chunks/deep/nested/vendor.js": "export {}",
	}
	writeTree(t, root, files)
	if err := os.MkdirAll(filepath.Join(root, "empty", "dir"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := RelativeChildren(root)
	if err != nil {
		t.Fatalf("RelativeChildren() error = %v", err)
	}

	want := make([]string, 0, len(files))
	for name := range files {
		want = append(want, name)
	}
	sort.Strings(want)
	sort.Strings(got)

	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("RelativeChildren() = %v, want %v", got, want)
	}
}

func TestRelativeChildrenTrailingSlashRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a/b.txt": "x"})

	got, err := RelativeChildren(root + string(filepath.Separator))
	if err != nil {
		t.Fatalf("RelativeChildren() error = %v", err)
	}
	if len(got) != 1 || got[0] != "a/b.txt" {
		t.Fatalf("RelativeChildren() = %v", got)
	}
}

func TestCollectReturnsRootedPaths(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"x/y.js": "1", "z.css": "2"})

	got, err := Collect(root)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 files, got %v", got)
	}
	for _, path := range got {
		if !strings.HasPrefix(path, root) {
			t.Fatalf("path %q is not under root %q", path, root)
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			t.Fatalf("expected regular file at %q", path)
		}
	}
}

func TestCollectMissingRoot(t *testing.T) {
	_, err := Collect(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestRemovePrefix(t *testing.T) {
	if _, err := removePrefix("other/file.js", "target/"); err == nil {
		t.Fatal("expected prefix error")
	}
	got, err := removePrefix("target/file.js", "target/")
	if err != nil || got != "file.js" {
		t.Fatalf("removePrefix() = %q, %v", got, err)
	}
}
