// Package demoapp is a small stand-in for a framework server. edge-host runs
// it when no real origin is configured, and the dispatcher tests drive it end
// to end.
package demoapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dreschagin/edge-adapter/internal/build"
	"github.com/dreschagin/edge-adapter/internal/dispatch"
)

// State is what /wait-until reports and its deferred task flips.
type State struct {
	waited atomic.Bool
}

func (s *State) Waited() bool {
	return s.waited.Load()
}

type App struct {
	state     *State
	waitDelay time.Duration
	page      []byte
}

var _ dispatch.Renderer = (*App)(nil)

var welcomePage = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<link rel="icon" href="/favicon.png">
<link rel="stylesheet" href="/{{.Stylesheet}}">
{{range .Modules}}<link rel="modulepreload" href="/{{.}}">
{{end}}<title>Welcome</title>
</head>
<body>
<div id="app"><h1>Welcome to SvelteKit</h1><button>Clicks: 0</button></div>
<script type="module" src="/{{.Entry}}"></script>
</body>
</html>
`))

// New builds the demo app. A nil state gets a fresh one.
func New(state *State, waitDelay time.Duration) (*App, error) {
	if state == nil {
		state = &State{}
	}

	manifest, err := build.ReadManifest(ManifestFS(), ManifestName)
	if err != nil {
		return nil, err
	}
	page, err := renderWelcome(manifest)
	if err != nil {
		return nil, err
	}

	return &App{
		state:     state,
		waitDelay: waitDelay,
		page:      page,
	}, nil
}

func renderWelcome(manifest build.Manifest) ([]byte, error) {
	const entryKey = ".svelte-kit/runtime/client/start.js"

	data := struct {
		Entry      string
		Stylesheet string
		Modules    []string
	}{
		Entry:      manifest[entryKey].File,
		Stylesheet: "_app/assets/app-3c8e21f0.css",
		Modules:    manifest.Files(),
	}
	if data.Entry == "" {
		return nil, fmt.Errorf("manifest has no entry for %s", entryKey)
	}

	var buf bytes.Buffer
	if err := welcomePage.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render welcome page: %w", err)
	}
	return buf.Bytes(), nil
}

func (a *App) Render(_ context.Context, req *dispatch.RenderRequest) (*dispatch.RenderResponse, error) {
	switch req.Path {
	case "/":
		return &dispatch.RenderResponse{
			Status:  http.StatusOK,
			Headers: map[string][]string{"content-type": {"text/html"}},
			Body:    a.page,
		}, nil
	case "/empty":
		return &dispatch.RenderResponse{Status: http.StatusOK}, nil
	case "/set-cookies":
		return &dispatch.RenderResponse{
			Status:  http.StatusOK,
			Headers: map[string][]string{"set-cookie": {"a=b", "c=d"}},
		}, nil
	case "/wait-until":
		return a.waitUntil(req)
	default:
		return nil, nil
	}
}

// waitUntil answers with the current flag and queues a task that sets it
// after waitDelay.
func (a *App) waitUntil(req *dispatch.RenderRequest) (*dispatch.RenderResponse, error) {
	body, err := json.Marshal(a.state.Waited())
	if err != nil {
		return nil, err
	}

	if req.Event != nil {
		req.Event.WaitUntil(func(ctx context.Context) error {
			timer := time.NewTimer(a.waitDelay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				a.state.waited.Store(true)
				return nil
			}
		})
	}

	return &dispatch.RenderResponse{
		Status:  http.StatusOK,
		Headers: map[string][]string{"content-type": {"application/json"}},
		Body:    body,
	}, nil
}
