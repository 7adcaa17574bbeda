package cloudflare

import (
	"context"
	"errors"

	"github.com/dreschagin/edge-adapter/internal/application/port"
)

// Namespace binds a client to one account and KV namespace so it can serve as
// an asset store and a script uploader.
type Namespace struct {
	client      *Client
	accountID   string
	namespaceID string
}

var (
	_ port.AssetStore     = (*Namespace)(nil)
	_ port.ScriptUploader = (*Namespace)(nil)
)

func NewNamespace(client *Client, accountID, namespaceID string) *Namespace {
	return &Namespace{
		client:      client,
		accountID:   accountID,
		namespaceID: namespaceID,
	}
}

func (n *Namespace) GetAsset(ctx context.Context, key string) ([]byte, error) {
	body, err := n.client.GetValue(ctx, n.accountID, n.namespaceID, key)
	if errors.Is(err, ErrNotFound) {
		return nil, port.ErrAssetNotFound
	}
	return body, err
}

func (n *Namespace) PutAsset(ctx context.Context, key, _ string, body []byte) error {
	return n.client.PutValue(ctx, n.accountID, n.namespaceID, key, body)
}

func (n *Namespace) PutScript(ctx context.Context, name string, body []byte) error {
	return n.client.PutScript(ctx, n.accountID, name, body)
}
