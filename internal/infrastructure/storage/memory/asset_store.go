// Package memory is an in-process asset store for local runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/dreschagin/edge-adapter/internal/application/port"
)

type AssetStore struct {
	mu     sync.RWMutex
	assets map[string][]byte
}

var (
	_ port.AssetStore  = (*AssetStore)(nil)
	_ port.AssetPurger = (*AssetStore)(nil)
)

func NewAssetStore() *AssetStore {
	return &AssetStore{assets: make(map[string][]byte)}
}

func (s *AssetStore) GetAsset(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, ok := s.assets[key]
	if !ok {
		return nil, port.ErrAssetNotFound
	}
	return body, nil
}

func (s *AssetStore) PutAsset(_ context.Context, key, _ string, body []byte) error {
	copied := make([]byte, len(body))
	copy(copied, body)

	s.mu.Lock()
	s.assets[key] = copied
	s.mu.Unlock()
	return nil
}

func (s *AssetStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	s.assets = make(map[string][]byte)
	s.mu.Unlock()
	return nil
}

func (s *AssetStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assets)
}
