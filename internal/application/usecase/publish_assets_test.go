package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dreschagin/edge-adapter/internal/assets"
	"github.com/dreschagin/edge-adapter/pkg/logger"
)

type putCall struct {
	key         string
	contentType string
	body        []byte
}

type mockAssetStore struct {
	mu    sync.Mutex
	calls []putCall
	errAt map[string]error

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func (m *mockAssetStore) PutAsset(_ context.Context, key, contentType string, body []byte) error {
	current := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		seen := m.maxInFlight.Load()
		if current <= seen || m.maxInFlight.CompareAndSwap(seen, current) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	m.calls = append(m.calls, putCall{key: key, contentType: contentType, body: body})
	m.mu.Unlock()

	if err, ok := m.errAt[key]; ok {
		return err
	}
	return nil
}

func (m *mockAssetStore) callFor(key string) (putCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, call := range m.calls {
		if call.key == key {
			return call, true
		}
	}
	return putCall{}, false
}

func writeAssets(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return root
}

func TestPublishAssetsUseCase_Success(t *testing.T) {
	root := writeAssets(t, map[string]string{
		"robots.txt":                "User-agent: *",
		"_app/start-abc.js":         "export const a = 1",
		"_app/assets/index-def.css": "body { margin: 0 }",
	})
	store := &mockAssetStore{}
	uc := NewPublishAssetsUseCase(store, PublishAssetsConfig{}, logger.Discard())

	res, err := uc.Execute(context.Background(), PublishAssetsCommand{Root: root})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(res.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(res.Items))
	}
	if res.Items[0].Key != "_app/assets/index-def.css" || res.Items[2].Key != "robots.txt" {
		t.Fatalf("items not sorted by key: %+v", res.Items)
	}

	call, ok := store.callFor("_app/start-abc.js")
	if !ok {
		t.Fatalf("expected upload for _app/start-abc.js")
	}
	if call.contentType != "application/javascript" {
		t.Fatalf("content type = %q", call.contentType)
	}
	if string(call.body) != "export const a = 1" {
		t.Fatalf("body = %q", call.body)
	}
	if res.TotalBytes() != int64(len("User-agent: *")+len("export const a = 1")+len("body { margin: 0 }")) {
		t.Fatalf("unexpected total bytes %d", res.TotalBytes())
	}
}

func TestPublishAssetsUseCase_UnknownContentTypeFailsBatch(t *testing.T) {
	root := writeAssets(t, map[string]string{
		"_app/start.js": "1",
		"LICENSE":       "MIT",
	})
	store := &mockAssetStore{}
	uc := NewPublishAssetsUseCase(store, PublishAssetsConfig{Concurrency: 1}, logger.Discard())

	_, err := uc.Execute(context.Background(), PublishAssetsCommand{Root: root})
	if !errors.Is(err, assets.ErrUnknownContentType) {
		t.Fatalf("expected ErrUnknownContentType, got %v", err)
	}
	if !strings.Contains(err.Error(), "LICENSE") {
		t.Fatalf("expected offending file in error, got %v", err)
	}
	if _, ok := store.callFor("LICENSE"); ok {
		t.Fatalf("LICENSE must never be uploaded")
	}
}

func TestPublishAssetsUseCase_StoreErrorFailsBatch(t *testing.T) {
	root := writeAssets(t, map[string]string{
		"a.js": "1",
		"b.js": "2",
	})
	store := &mockAssetStore{errAt: map[string]error{"b.js": errors.New("boom")}}
	uc := NewPublishAssetsUseCase(store, PublishAssetsConfig{}, logger.Discard())

	_, err := uc.Execute(context.Background(), PublishAssetsCommand{Root: root})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "failed to upload b.js") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPublishAssetsUseCase_ConcurrencyIsBounded(t *testing.T) {
	files := make(map[string]string)
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files["_app/"+name+".js"] = name
	}
	root := writeAssets(t, files)
	store := &mockAssetStore{delay: 20 * time.Millisecond}
	uc := NewPublishAssetsUseCase(store, PublishAssetsConfig{Concurrency: 2}, logger.Discard())

	if _, err := uc.Execute(context.Background(), PublishAssetsCommand{Root: root}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := store.maxInFlight.Load(); got > 2 {
		t.Fatalf("max in-flight uploads = %d, want <= 2", got)
	}
}

func TestPublishAssetsUseCase_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		uc      *PublishAssetsUseCase
		root    string
		wantErr string
	}{
		{
			name:    "missing store",
			uc:      NewPublishAssetsUseCase(nil, PublishAssetsConfig{}, logger.Discard()),
			root:    t.TempDir(),
			wantErr: "asset store is not configured",
		},
		{
			name:    "missing root",
			uc:      NewPublishAssetsUseCase(&mockAssetStore{}, PublishAssetsConfig{}, logger.Discard()),
			root:    " ",
			wantErr: "asset root is required",
		},
		{
			name:    "root does not exist",
			uc:      NewPublishAssetsUseCase(&mockAssetStore{}, PublishAssetsConfig{}, logger.Discard()),
			root:    filepath.Join(t.TempDir(), "nope"),
			wantErr: "collect",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.uc.Execute(context.Background(), PublishAssetsCommand{Root: tc.root})
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}

func TestPublishAssetsUseCase_CancelledContext(t *testing.T) {
	root := writeAssets(t, map[string]string{"a.js": "1"})
	store := &mockAssetStore{}
	uc := NewPublishAssetsUseCase(store, PublishAssetsConfig{RatePerSecond: 1}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := uc.Execute(ctx, PublishAssetsCommand{Root: root}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
