package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/dreschagin/edge-adapter/internal/build"
	"github.com/dreschagin/edge-adapter/pkg/logger"
)

var app = &cli.App{
	Name:  "adapter",
	Usage: "stage framework output and bundle it into a worker script",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "static",
			Usage: "framework static directory, copied first",
			Value: "static",
		},
		&cli.StringFlag{
			Name:  "client",
			Usage: "framework client output, copied over the static files",
			Value: filepath.Join(".svelte-kit", "output", "client"),
		},
		&cli.StringFlag{
			Name:  "server-app",
			Usage: "framework server bundle exporting init and render",
			Value: filepath.Join(".svelte-kit", "output", "server", "app.js"),
		},
		&cli.StringFlag{
			Name:  "manifest",
			Usage: "client manifest, empty to skip",
			Value: filepath.Join(".svelte-kit", "output", "manifest.json"),
		},
		&cli.StringFlag{
			Name:  "target",
			Usage: "output directory for assets and worker.js",
			Value: "target",
		},
		&cli.StringFlag{
			Name:  "workdir",
			Usage: "scratch directory for the worker entry",
			Value: filepath.Join(".svelte-kit", "edge-adapter"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			EnvVars: []string{"LOG_LEVEL"},
			Value:   "info",
		},
	},
	Action: adapt,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func adapt(c *cli.Context) error {
	log := logger.New(c.String("log-level"))

	cfg := build.Config{
		Static:    optionalDir(c.String("static")),
		Client:    optionalDir(c.String("client")),
		ServerApp: c.String("server-app"),
		TargetDir: c.String("target"),
		WorkDir:   c.String("workdir"),
	}
	if manifest := c.String("manifest"); manifest != "" {
		cfg.Manifest = os.DirFS(filepath.Dir(manifest))
		cfg.ManifestName = filepath.Base(manifest)
		cfg.ManifestFile = manifest
	}

	result, err := build.NewAdapter(cfg, log).Run()
	if err != nil {
		return err
	}

	log.Info("adapter finished",
		"assets", result.AssetsDir,
		"worker", result.WorkerFile,
		"static_paths", len(result.StaticPaths),
	)
	return nil
}

// optionalDir returns nil for a directory that does not exist, so a project
// without a static folder still builds.
func optionalDir(dir string) fs.FS {
	if dir == "" {
		return nil
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil
	}
	return os.DirFS(dir)
}
