package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dreschagin/edge-adapter/internal/application/port"
)

type PublishWorkerCommand struct {
	Name     string
	Filename string
}

type PublishWorkerResult struct {
	Name      string
	SizeBytes int64
}

// PublishWorkerUseCase registers one bundled script as the deployed worker.
type PublishWorkerUseCase struct {
	scripts port.ScriptUploader
	logger  *slog.Logger
}

func NewPublishWorkerUseCase(scripts port.ScriptUploader, log *slog.Logger) *PublishWorkerUseCase {
	return &PublishWorkerUseCase{
		scripts: scripts,
		logger:  log,
	}
}

func (uc *PublishWorkerUseCase) Execute(ctx context.Context, cmd PublishWorkerCommand) (*PublishWorkerResult, error) {
	if uc.scripts == nil {
		return nil, fmt.Errorf("script uploader is not configured")
	}

	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, fmt.Errorf("worker name is required")
	}

	body, err := os.ReadFile(cmd.Filename)
	if err != nil {
		return nil, fmt.Errorf("read worker %s: %w", cmd.Filename, err)
	}

	if err := uc.scripts.PutScript(ctx, name, body); err != nil {
		uc.logger.Error("failed to upload worker", "error", err, "name", name)
		return nil, fmt.Errorf("failed to upload worker %s: %w", name, err)
	}

	uc.logger.Info("uploaded worker", "name", name, "size_bytes", len(body))

	return &PublishWorkerResult{
		Name:      name,
		SizeBytes: int64(len(body)),
	}, nil
}
