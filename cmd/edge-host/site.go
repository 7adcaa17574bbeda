package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dreschagin/edge-adapter/internal/application/port"
	"github.com/dreschagin/edge-adapter/internal/application/usecase"
	"github.com/dreschagin/edge-adapter/internal/assets"
	"github.com/dreschagin/edge-adapter/internal/build"
	"github.com/dreschagin/edge-adapter/internal/demoapp"
	"github.com/dreschagin/edge-adapter/internal/discovery"
	k8sdiscovery "github.com/dreschagin/edge-adapter/internal/discovery/k8s"
	"github.com/dreschagin/edge-adapter/internal/dispatch"
	"github.com/dreschagin/edge-adapter/internal/infrastructure/cache/redis"
	"github.com/dreschagin/edge-adapter/internal/infrastructure/cloudflare"
	"github.com/dreschagin/edge-adapter/internal/infrastructure/storage/memory"
	"github.com/dreschagin/edge-adapter/internal/infrastructure/storage/s3"
	edgemetrics "github.com/dreschagin/edge-adapter/internal/metrics"
	"github.com/dreschagin/edge-adapter/internal/render"
	"github.com/dreschagin/edge-adapter/internal/routing"
	"github.com/dreschagin/edge-adapter/pkg/config"
)

// site is everything the dispatcher needs beyond the store.
type site struct {
	matcher   *routing.Matcher
	renderer  dispatch.Renderer
	discovery *discovery.Manager
	cleanup   func()
}

func (s *site) ready() bool {
	return s.discovery == nil || s.discovery.Ready()
}

func openStore(ctx context.Context, cfg *config.EdgeHostConfig) (port.AssetStore, func(), error) {
	noop := func() {}

	switch cfg.AssetStore {
	case config.StoreRedis:
		store, err := redis.NewAssetStore(ctx, redis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			KeyPrefix:    cfg.Redis.KeyPrefix,
			TTL:          cfg.Redis.TTL,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close() }, nil

	case config.StoreS3:
		store, err := s3.NewAssetStore(ctx, s3.Config{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case config.StoreCloudflare:
		opts := []cloudflare.Option{cloudflare.WithRateLimit(cfg.Cloudflare.APIRateLimit)}
		if cfg.Cloudflare.APIBaseURL != "" {
			opts = append(opts, cloudflare.WithBaseURL(cfg.Cloudflare.APIBaseURL))
		}
		client, err := cloudflare.NewClient(cfg.Cloudflare.Token, opts...)
		if err != nil {
			return nil, noop, err
		}

		accountID := cfg.Cloudflare.AccountID
		if accountID == "" {
			if accountID, err = client.ResolveAccountID(ctx); err != nil {
				return nil, noop, err
			}
		}
		return cloudflare.NewNamespace(client, accountID, cfg.Cloudflare.NamespaceID), noop, nil

	default:
		return memory.NewAssetStore(), noop, nil
	}
}

// prepareSite seeds the store when asked to and builds the matcher and
// renderer for the configured render mode.
func prepareSite(
	ctx context.Context,
	cfg *config.EdgeHostConfig,
	store port.AssetStore,
	metrics *edgemetrics.Metrics,
	log *slog.Logger,
) (*site, error) {
	publish := usecase.NewPublishAssetsUseCase(store, usecase.PublishAssetsConfig{
		Concurrency:   cfg.Publish.Concurrency,
		RatePerSecond: cfg.Publish.RatePerSecond,
	}, log)

	if cfg.Render.Mode == config.RenderModeDemo {
		return prepareDemo(ctx, cfg, publish, log)
	}

	var seeded []string
	if cfg.AssetSeedDir != "" {
		var err error
		if seeded, err = seedStore(ctx, store, publish, cfg.AssetSeedDir, cfg.AssetSeedReset, log); err != nil {
			return nil, err
		}
	}

	matcher, err := loadMatcher(cfg, seeded)
	if err != nil {
		return nil, err
	}

	resolver, err := buildResolver(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize render discovery: %w", err)
	}
	manager := discovery.NewManager(resolver, cfg.Discovery.RefreshInterval, metrics)
	if err := manager.Refresh(ctx); err != nil {
		log.Error("initial discovery failed", "error", err)
	} else {
		log.Info("initial discovery completed")
	}

	upstream := render.NewUpstream(manager, render.UpstreamConfig{
		Timeout:         cfg.Render.Timeout,
		DeclineNotFound: cfg.Render.DeclineNotFound,
	}, metrics)

	return &site{
		matcher:   matcher,
		renderer:  upstream,
		discovery: manager,
		cleanup:   func() {},
	}, nil
}

// seedStore publishes dir into store and returns the seeded keys. With reset
// set, stores that can purge are emptied first so keys from an older build do
// not keep serving.
func seedStore(
	ctx context.Context,
	store port.AssetStore,
	publish *usecase.PublishAssetsUseCase,
	dir string,
	reset bool,
	log *slog.Logger,
) ([]string, error) {
	if reset {
		purger, ok := store.(port.AssetPurger)
		if !ok {
			return nil, fmt.Errorf("asset store %T cannot be reset before seeding", store)
		}
		if err := purger.DeleteAll(ctx); err != nil {
			return nil, fmt.Errorf("reset asset store: %w", err)
		}
		log.Info("asset store reset before seeding")
	}

	result, err := publish.Execute(ctx, usecase.PublishAssetsCommand{Root: dir})
	if err != nil {
		return nil, fmt.Errorf("seed assets: %w", err)
	}
	seeded := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		seeded = append(seeded, item.Key)
	}
	log.Info("seeded asset store", "assets", len(result.Items), "bytes", result.TotalBytes())
	return seeded, nil
}

// prepareDemo stages the embedded demo app exactly like the adapter would and
// publishes it into the store.
func prepareDemo(
	ctx context.Context,
	cfg *config.EdgeHostConfig,
	publish *usecase.PublishAssetsUseCase,
	log *slog.Logger,
) (*site, error) {
	dir, err := os.MkdirTemp("", "edge-host-demo-")
	if err != nil {
		return nil, fmt.Errorf("create demo dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	staged, err := build.StageAssets(dir, demoapp.StaticFS(), demoapp.ClientFS())
	if err != nil {
		cleanup()
		return nil, err
	}
	manifest, err := build.ReadManifest(demoapp.ManifestFS(), demoapp.ManifestName)
	if err != nil {
		cleanup()
		return nil, err
	}
	if _, err := publish.Execute(ctx, usecase.PublishAssetsCommand{Root: dir}); err != nil {
		cleanup()
		return nil, fmt.Errorf("publish demo assets: %w", err)
	}

	matcher, err := routing.NewMatcherFromPaths(cfg.AssetPrefix, build.StaticPathSet(staged, manifest))
	if err != nil {
		cleanup()
		return nil, err
	}

	app, err := demoapp.New(&demoapp.State{}, cfg.Render.DemoWaitDelay)
	if err != nil {
		cleanup()
		return nil, err
	}

	log.Info("demo app published", "assets", len(staged))
	return &site{matcher: matcher, renderer: app, cleanup: cleanup}, nil
}

// loadMatcher prefers the static-path manifest written by the adapter and
// falls back to whatever was just seeded.
func loadMatcher(cfg *config.EdgeHostConfig, seeded []string) (*routing.Matcher, error) {
	if cfg.StaticPathsFile != "" {
		file, err := build.ReadStaticPaths(cfg.StaticPathsFile)
		if err != nil {
			return nil, err
		}
		return routing.NewMatcher(cfg.AssetPrefix, file.Pattern)
	}
	return routing.NewMatcher(cfg.AssetPrefix, assets.Pattern(seeded))
}

func buildResolver(cfg *config.EdgeHostConfig) (discovery.Resolver, error) {
	if cfg.Discovery.Enabled {
		return k8sdiscovery.NewInClusterResolver(cfg.Discovery.Namespace, cfg.Discovery.ServiceSelector)
	}
	return discovery.NewStaticResolver(cfg.Render.OriginURL)
}
