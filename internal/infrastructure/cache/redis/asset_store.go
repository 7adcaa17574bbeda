package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dreschagin/edge-adapter/internal/application/port"
)

const DefaultKeyPrefix = "edge:asset:"

type Config struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	TTL          time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AssetStore keeps asset bodies as plain Redis strings under KeyPrefix+key.
type AssetStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

var (
	_ port.AssetStore  = (*AssetStore)(nil)
	_ port.AssetPurger = (*AssetStore)(nil)
)

func NewAssetStore(ctx context.Context, cfg Config) (*AssetStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   3,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &AssetStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
	}, nil
}

func (s *AssetStore) GetAsset(ctx context.Context, key string) ([]byte, error) {
	body, err := s.client.Get(ctx, s.storageKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, port.ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset %s: %w", key, err)
	}
	return body, nil
}

// PutAsset ignores contentType; the dispatcher derives it from the key.
func (s *AssetStore) PutAsset(ctx context.Context, key, _ string, body []byte) error {
	if err := s.client.Set(ctx, s.storageKey(key), body, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set asset %s: %w", key, err)
	}
	return nil
}

// DeleteAll removes every asset under the store's prefix.
func (s *AssetStore) DeleteAll(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 0).Iterator()
	pipe := s.client.Pipeline()

	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}

	return nil
}

func (s *AssetStore) Close() error {
	return s.client.Close()
}

func (s *AssetStore) storageKey(key string) string {
	return s.keyPrefix + key
}
