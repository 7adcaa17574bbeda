package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/dreschagin/edge-adapter/internal/application/port"
)

func TestAssetStore(t *testing.T) {
	store := NewAssetStore()
	ctx := context.Background()

	if _, err := store.GetAsset(ctx, "robots.txt"); !errors.Is(err, port.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}

	body := []byte("User-agent: *")
	if err := store.PutAsset(ctx, "robots.txt", "text/plain", body); err != nil {
		t.Fatalf("PutAsset() error = %v", err)
	}
	body[0] = 'X'

	got, err := store.GetAsset(ctx, "robots.txt")
	if err != nil {
		t.Fatalf("GetAsset() error = %v", err)
	}
	if string(got) != "User-agent: *" {
		t.Fatalf("store must keep its own copy, got %q", got)
	}
	if store.Len() != 1 {
		t.Fatalf("Len() = %d", store.Len())
	}
}

func TestAssetStoreDeleteAll(t *testing.T) {
	store := NewAssetStore()
	ctx := context.Background()

	for _, key := range []string{"robots.txt", "_app/start.js"} {
		if err := store.PutAsset(ctx, key, "", []byte(key)); err != nil {
			t.Fatalf("PutAsset() error = %v", err)
		}
	}
	if err := store.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("Len() = %d after DeleteAll", store.Len())
	}
	if _, err := store.GetAsset(ctx, "robots.txt"); !errors.Is(err, port.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}
