package port

import (
	"context"
	"errors"
)

// ErrAssetNotFound is returned by AssetReader implementations for a missing key.
var ErrAssetNotFound = errors.New("asset not found")

// AssetReader looks up static asset bytes by key (URL path without the leading slash).
type AssetReader interface {
	GetAsset(ctx context.Context, key string) ([]byte, error)
}

// AssetWriter stores one asset under key.
type AssetWriter interface {
	PutAsset(ctx context.Context, key, contentType string, body []byte) error
}

// AssetStore is a backend the dispatcher reads from and the publisher writes to.
type AssetStore interface {
	AssetReader
	AssetWriter
}

// AssetPurger drops every stored asset so a re-seed leaves no stale keys.
type AssetPurger interface {
	DeleteAll(ctx context.Context) error
}

// ScriptUploader registers a bundled worker script under name.
type ScriptUploader interface {
	PutScript(ctx context.Context, name string, body []byte) error
}
