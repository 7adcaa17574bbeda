package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/dreschagin/edge-adapter/internal/application/port"
	"github.com/dreschagin/edge-adapter/internal/application/usecase"
	"github.com/dreschagin/edge-adapter/internal/infrastructure/cloudflare"
	natspub "github.com/dreschagin/edge-adapter/internal/infrastructure/messaging/nats"
	"github.com/dreschagin/edge-adapter/pkg/config"
	"github.com/dreschagin/edge-adapter/pkg/logger"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "upload-worker",
		Usage: "upload the built assets and worker script to Cloudflare",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Aliases:  []string{"n"},
				Usage:    "name of the worker script",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "namespace",
				Aliases:  []string{"s"},
				Usage:    "ID of the KV namespace that receives the assets",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "accountid",
				Aliases: []string{"a"},
				Usage:   "account ID, looked up from the token when omitted",
			},
			&cli.StringFlag{
				Name:  "assets",
				Usage: "staged asset directory",
				Value: "target/assets/",
			},
			&cli.StringFlag{
				Name:  "worker",
				Usage: "bundled worker script",
				Value: "target/worker.js",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "maximum parallel asset uploads",
				Value: usecase.DefaultPublishConcurrency,
			},
			&cli.Float64Flag{
				Name:  "rps",
				Usage: "asset upload starts per second, 0 for no pacing",
			},
		},
		Action: upload,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func upload(c *cli.Context) error {
	cfg, err := config.LoadUpload()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []cloudflare.Option{cloudflare.WithRateLimit(cfg.APIRateLimit)}
	if cfg.APIBaseURL != "" {
		opts = append(opts, cloudflare.WithBaseURL(cfg.APIBaseURL))
	}
	client, err := cloudflare.NewClient(cfg.Token, opts...)
	if err != nil {
		return err
	}

	accountID := c.String("accountid")
	if accountID == "" {
		accountID, err = client.ResolveAccountID(ctx)
		if err != nil {
			return err
		}
		log.Info("resolved account", "account_id", accountID)
	}

	namespace := cloudflare.NewNamespace(client, accountID, c.String("namespace"))

	events := connectEvents(cfg, log)
	if events != nil {
		defer events.Close()
	}

	deploy := usecase.NewDeployUseCase(
		usecase.NewPublishAssetsUseCase(namespace, usecase.PublishAssetsConfig{
			Concurrency:   c.Int("concurrency"),
			RatePerSecond: c.Float64("rps"),
		}, log),
		usecase.NewPublishWorkerUseCase(namespace, log),
		events,
		log,
	)

	event, err := deploy.Execute(ctx, usecase.DeployCommand{
		AccountID:   accountID,
		NamespaceID: c.String("namespace"),
		ScriptName:  c.String("name"),
		AssetsRoot:  c.String("assets"),
		WorkerFile:  c.String("worker"),
	})
	if err != nil {
		return err
	}

	log.Info("deploy completed",
		"script", event.ScriptName,
		"assets", event.AssetCount,
		"asset_bytes", event.AssetBytes,
	)
	return nil
}

// connectEvents returns nil when NATS is not configured or unreachable.
func connectEvents(cfg *config.UploadConfig, log *slog.Logger) port.EventPublisher {
	if cfg.NatsURL == "" {
		return nil
	}
	publisher, err := natspub.NewNATSPublisher(cfg.NatsURL, cfg.NatsStream, log)
	if err != nil {
		log.Warn("deploy events disabled", "error", err)
		return nil
	}
	return publisher
}

