package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/dreschagin/edge-adapter/internal/application/port"
)

type DeployCommand struct {
	AccountID   string
	NamespaceID string
	ScriptName  string
	AssetsRoot  string
	WorkerFile  string
}

// DeployUseCase publishes every asset, then the worker. The worker goes last
// so a live script never references assets that are not uploaded yet.
type DeployUseCase struct {
	assets *PublishAssetsUseCase
	worker *PublishWorkerUseCase
	events port.EventPublisher
	logger *slog.Logger
}

// NewDeployUseCase wires a deploy. events may be nil.
func NewDeployUseCase(
	assets *PublishAssetsUseCase,
	worker *PublishWorkerUseCase,
	events port.EventPublisher,
	log *slog.Logger,
) *DeployUseCase {
	return &DeployUseCase{
		assets: assets,
		worker: worker,
		events: events,
		logger: log,
	}
}

func (uc *DeployUseCase) Execute(ctx context.Context, cmd DeployCommand) (*port.DeployEvent, error) {
	published, err := uc.assets.Execute(ctx, PublishAssetsCommand{Root: cmd.AssetsRoot})
	if err != nil {
		return nil, err
	}

	if _, err := uc.worker.Execute(ctx, PublishWorkerCommand{Name: cmd.ScriptName, Filename: cmd.WorkerFile}); err != nil {
		return nil, err
	}

	event := &port.DeployEvent{
		ScriptName:  cmd.ScriptName,
		AccountID:   cmd.AccountID,
		NamespaceID: cmd.NamespaceID,
		AssetCount:  len(published.Items),
		AssetBytes:  published.TotalBytes(),
		CompletedAt: time.Now().UTC(),
	}

	// The deploy already happened; a lost notification must not fail it.
	if uc.events != nil {
		if err := uc.events.PublishEvent(ctx, port.SubjectDeployCompleted, event); err != nil {
			uc.logger.Warn("failed to publish deploy event", "error", err, "script", cmd.ScriptName)
		}
	}

	return event, nil
}
