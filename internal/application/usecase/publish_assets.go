package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dreschagin/edge-adapter/internal/application/port"
	"github.com/dreschagin/edge-adapter/internal/assets"
)

const DefaultPublishConcurrency = 8

type PublishAssetsCommand struct {
	// Root is the staged asset directory, usually target/assets.
	Root string
}

type PublishedAsset struct {
	Key         string
	ContentType string
	SizeBytes   int64
}

type PublishAssetsResult struct {
	PublishedAt time.Time
	Items       []PublishedAsset
}

// TotalBytes sums the size of every published asset.
func (r *PublishAssetsResult) TotalBytes() int64 {
	var total int64
	for _, item := range r.Items {
		total += item.SizeBytes
	}
	return total
}

type PublishAssetsConfig struct {
	// Concurrency bounds in-flight uploads. Zero or less uses DefaultPublishConcurrency.
	Concurrency int
	// RatePerSecond paces upload starts. Zero disables pacing.
	RatePerSecond float64
}

// PublishAssetsUseCase uploads every staged file to an AssetWriter.
//
// The batch is all-or-nothing from the caller's point of view: the first
// failure cancels uploads that have not started and is returned as the batch
// error. Uploads that already finished stay in the store.
type PublishAssetsUseCase struct {
	store   port.AssetWriter
	config  PublishAssetsConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewPublishAssetsUseCase(
	store port.AssetWriter,
	config PublishAssetsConfig,
	log *slog.Logger,
) *PublishAssetsUseCase {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultPublishConcurrency
	}

	var limiter *rate.Limiter
	if config.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), 1)
	}

	return &PublishAssetsUseCase{
		store:   store,
		config:  config,
		limiter: limiter,
		logger:  log,
	}
}

func (uc *PublishAssetsUseCase) Execute(ctx context.Context, cmd PublishAssetsCommand) (*PublishAssetsResult, error) {
	if uc.store == nil {
		return nil, fmt.Errorf("asset store is not configured")
	}

	root := strings.TrimSpace(cmd.Root)
	if root == "" {
		return nil, fmt.Errorf("asset root is required")
	}

	keys, err := assets.RelativeChildren(root)
	if err != nil {
		return nil, err
	}

	items := make([]PublishedAsset, len(keys))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(uc.config.Concurrency)

	for i, key := range keys {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			item, err := uc.publishOne(groupCtx, root, key)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Key < items[j].Key
	})

	return &PublishAssetsResult{
		PublishedAt: time.Now().UTC(),
		Items:       items,
	}, nil
}

func (uc *PublishAssetsUseCase) publishOne(ctx context.Context, root, key string) (PublishedAsset, error) {
	asset, err := assets.ReadAsset(root, key)
	if err != nil {
		return PublishedAsset{}, err
	}

	if uc.limiter != nil {
		if err := uc.limiter.Wait(ctx); err != nil {
			return PublishedAsset{}, fmt.Errorf("wait to upload %s: %w", key, err)
		}
	}

	if err := uc.store.PutAsset(ctx, asset.Key, asset.ContentType, asset.Body); err != nil {
		uc.logger.Error("failed to upload asset",
			"error", err,
			"key", asset.Key,
			"path", asset.Path,
		)
		return PublishedAsset{}, fmt.Errorf("failed to upload %s: %w", asset.Key, err)
	}

	uc.logger.Info("uploaded asset", "path", asset.Path, "key", asset.Key)

	return PublishedAsset{
		Key:         asset.Key,
		ContentType: asset.ContentType,
		SizeBytes:   int64(len(asset.Body)),
	}, nil
}
