package build

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
)

type Config struct {
	// Static and Client are copied into the asset directory in that order.
	Static fs.FS
	Client fs.FS
	// Manifest holds the client manifest; ManifestName is its path inside it.
	Manifest     fs.FS
	ManifestName string
	// ManifestFile lets the worker import the manifest. Optional.
	ManifestFile string
	ServerApp    string
	TargetDir    string
	WorkDir      string
}

type Result struct {
	AssetsDir       string
	WorkerFile      string
	StaticPathsFile string
	StaticPaths     []string
}

// Adapter runs the build steps in order and stops at the first failure.
type Adapter struct {
	config Config
	logger *slog.Logger
}

func NewAdapter(config Config, log *slog.Logger) *Adapter {
	if config.TargetDir == "" {
		config.TargetDir = "target"
	}
	if config.WorkDir == "" {
		config.WorkDir = filepath.Join(".svelte-kit", "edge-adapter")
	}
	return &Adapter{config: config, logger: log}
}

func (a *Adapter) Run() (*Result, error) {
	result := &Result{
		AssetsDir:       filepath.Join(a.config.TargetDir, "assets"),
		WorkerFile:      filepath.Join(a.config.TargetDir, "worker.js"),
		StaticPathsFile: filepath.Join(a.config.TargetDir, "static-paths.json"),
	}

	a.logger.Info("copying assets", "target", result.AssetsDir)
	var sources []fs.FS
	for _, source := range []fs.FS{a.config.Static, a.config.Client} {
		if source != nil {
			sources = append(sources, source)
		}
	}
	staged, err := StageAssets(result.AssetsDir, sources...)
	if err != nil {
		return nil, fmt.Errorf("stage assets: %w", err)
	}

	var manifest Manifest
	if a.config.Manifest != nil {
		manifest, err = ReadManifest(a.config.Manifest, a.config.ManifestName)
		if err != nil {
			return nil, err
		}
	}
	result.StaticPaths = StaticPathSet(staged, manifest)

	a.logger.Info("creating worker", "target", result.WorkerFile, "static_paths", len(result.StaticPaths))
	err = Bundle(BundleOptions{
		WorkDir:      a.config.WorkDir,
		ServerApp:    a.config.ServerApp,
		ManifestFile: a.config.ManifestFile,
		Outfile:      result.WorkerFile,
		StaticPaths:  result.StaticPaths,
	})
	if err != nil {
		return nil, err
	}

	if err := WriteStaticPaths(result.StaticPathsFile, result.StaticPaths); err != nil {
		return nil, err
	}

	return result, nil
}
