package build

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/dreschagin/edge-adapter/internal/assets"
)

// Module specifiers the worker entry imports. The plugin below serves them.
const (
	StaticPathsModule = "@edge-adapter/static-paths"
	AppModule         = "@edge-adapter/app"
	ManifestModule    = "@edge-adapter/manifest"

	pluginNamespace = "edge-adapter"

	// EntryFilename is the name the entry gets inside WorkDir.
	EntryFilename = "entry.js"
)

//go:embed templates/entry.js
var entryTemplate string

var ErrPlaceholder = errors.New("static path placeholder")

type BundleOptions struct {
	// WorkDir receives the entry source before bundling.
	WorkDir string
	// ServerApp is the framework's server bundle exporting init and render.
	ServerApp string
	// ManifestFile is optional; entries may import it for client chunk data.
	ManifestFile string
	Outfile      string
	StaticPaths  []string
	// EntrySource replaces the embedded entry template. Tests use it.
	EntrySource string
}

// Bundle writes the worker entry into WorkDir and bundles it into a single
// ES2020 browser script at Outfile.
func Bundle(opts BundleOptions) error {
	source := opts.EntrySource
	if source == "" {
		source = entryTemplate
	}
	if count := strings.Count(source, `"`+StaticPathsModule+`"`); count != 1 {
		return fmt.Errorf("%w: entry must import %s exactly once, found %d", ErrPlaceholder, StaticPathsModule, count)
	}

	entry, err := filepath.Abs(filepath.Join(opts.WorkDir, EntryFilename))
	if err != nil {
		return fmt.Errorf("resolve entry: %w", err)
	}
	outfile, err := filepath.Abs(opts.Outfile)
	if err != nil {
		return fmt.Errorf("resolve outfile: %w", err)
	}
	if entry == outfile {
		return fmt.Errorf("outfile %s would overwrite the worker entry", opts.Outfile)
	}

	if err := os.MkdirAll(opts.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", opts.WorkDir, err)
	}
	if err := os.WriteFile(entry, []byte(source), 0o644); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}

	staticJSON, err := json.Marshal(assets.StaticPaths(opts.StaticPaths))
	if err != nil {
		return fmt.Errorf("encode static paths: %w", err)
	}

	plugin, resolved, err := adapterPlugin(opts, string(staticJSON))
	if err != nil {
		return err
	}

	result := api.Build(api.BuildOptions{
		EntryPoints: []string{entry},
		Outfile:     opts.Outfile,
		Bundle:      true,
		Write:       true,
		Platform:    api.PlatformBrowser,
		Target:      api.ES2020,
		LogLevel:    api.LogLevelSilent,
		Plugins:     []api.Plugin{plugin},
	})
	if len(result.Errors) > 0 {
		formatted := api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
		return fmt.Errorf("bundle worker:\n%s", strings.Join(formatted, ""))
	}

	if got := resolved.Load(); got != 1 {
		return fmt.Errorf("%w: bundler resolved %s %d times, want 1", ErrPlaceholder, StaticPathsModule, got)
	}
	return nil
}

func adapterPlugin(opts BundleOptions, staticJSON string) (api.Plugin, *atomic.Int32, error) {
	serverApp, err := filepath.Abs(opts.ServerApp)
	if err != nil {
		return api.Plugin{}, nil, fmt.Errorf("resolve server app: %w", err)
	}
	manifest := ""
	if opts.ManifestFile != "" {
		if manifest, err = filepath.Abs(opts.ManifestFile); err != nil {
			return api.Plugin{}, nil, fmt.Errorf("resolve manifest: %w", err)
		}
	}

	resolved := &atomic.Int32{}
	plugin := api.Plugin{
		Name: "edge-adapter",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `^@edge-adapter/`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					switch args.Path {
					case StaticPathsModule:
						resolved.Add(1)
						return api.OnResolveResult{Path: "static-paths", Namespace: pluginNamespace}, nil
					case AppModule:
						return api.OnResolveResult{Path: serverApp}, nil
					case ManifestModule:
						if manifest == "" {
							return api.OnResolveResult{}, fmt.Errorf("%s imported but no manifest configured", ManifestModule)
						}
						return api.OnResolveResult{Path: manifest}, nil
					default:
						return api.OnResolveResult{}, fmt.Errorf("unknown module %s", args.Path)
					}
				})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: pluginNamespace},
				func(api.OnLoadArgs) (api.OnLoadResult, error) {
					return api.OnLoadResult{Contents: &staticJSON, Loader: api.LoaderJSON}, nil
				})
		},
	}
	return plugin, resolved, nil
}
