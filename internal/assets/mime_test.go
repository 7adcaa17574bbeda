package assets

import (
	"errors"
	"mime"
	"os"
	"path/filepath"
	"testing"
)

func TestContentType(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{name: "_app/start-abc.js", want: "application/javascript", wantOK: true},
		{name: "_app/pages/index.CSS", want: "text/css", wantOK: true},
		{name: "favicon.png", want: "image/png", wantOK: true},
		{name: "manifest.webmanifest", want: "application/manifest+json", wantOK: true},
		{name: "fonts/inter.woff2", want: "font/woff2", wantOK: true},
		{name: "README", wantOK: false},
		{name: "blob.zzzqunknown", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ContentType(tt.name)
			if ok != tt.wantOK {
				t.Fatalf("ContentType() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Fatalf("ContentType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentTypeIgnoresPlatformDatabase(t *testing.T) {
	if err := mime.AddExtensionType(".edgehosttest", "application/x-edgehosttest"); err != nil {
		t.Fatalf("AddExtensionType() error = %v", err)
	}
	if err := mime.AddExtensionType(".js", "text/javascript"); err != nil {
		t.Fatalf("AddExtensionType() error = %v", err)
	}

	if got, ok := ContentType("blob.edgehosttest"); ok {
		t.Fatalf("ContentType() = %q, want unknown", got)
	}
	if got, _ := ContentType("_app/start.js"); got != "application/javascript" {
		t.Fatalf("ContentType(.js) = %q, want application/javascript", got)
	}
	if got := ServedContentType("/blob.edgehosttest"); got != "text/plain; charset=utf-8" {
		t.Fatalf("ServedContentType() = %q", got)
	}
}

func TestServedContentType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/_app/start.js", want: "application/javascript; charset=utf-8"},
		{path: "/_app/app.css", want: "text/css; charset=utf-8"},
		{path: "/robots.txt", want: "text/plain; charset=utf-8"},
		{path: "/favicon.png", want: "image/png"},
		{path: "/data.json", want: "application/json"},
		{path: "/blob.zzzqunknown", want: "text/plain; charset=utf-8"},
	}

	for _, tt := range tests {
		if got := ServedContentType(tt.path); got != tt.want {
			t.Fatalf("ServedContentType(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestReadAsset(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"_app/start.js": "console.log(1)",
		"LICENSE":       "MIT",
	})

	asset, err := ReadAsset(root, "_app/start.js")
	if err != nil {
		t.Fatalf("ReadAsset() error = %v", err)
	}
	if asset.Key != "_app/start.js" || asset.ContentType != "application/javascript" {
		t.Fatalf("unexpected asset: %+v", asset)
	}
	if string(asset.Body) != "console.log(1)" {
		t.Fatalf("unexpected body: %q", asset.Body)
	}
	if asset.Path != filepath.Join(root, "_app", "start.js") {
		t.Fatalf("unexpected path: %s", asset.Path)
	}

	_, err = ReadAsset(root, "LICENSE")
	if !errors.Is(err, ErrUnknownContentType) {
		t.Fatalf("expected ErrUnknownContentType, got %v", err)
	}

	_, err = ReadAsset(root, "missing.js")
	if err == nil || errors.Is(err, ErrUnknownContentType) {
		t.Fatalf("expected read error, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}
