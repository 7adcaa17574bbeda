// Package dispatch answers requests for a deployed site: static assets come
// from the asset store, everything else from the renderer.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/dreschagin/edge-adapter/internal/application/port"
	"github.com/dreschagin/edge-adapter/internal/background"
	edgemetrics "github.com/dreschagin/edge-adapter/internal/metrics"
	"github.com/dreschagin/edge-adapter/internal/routing"
)

// Handler runs CLASSIFY, STATIC_LOOKUP, RENDER and RESPOND for every request
// and writes exactly one response.
type Handler struct {
	store    port.AssetReader
	matcher  *routing.Matcher
	renderer Renderer
	tasks    *background.Group
	logger   *slog.Logger
	metrics  *edgemetrics.Metrics
}

// NewHandler wires a dispatcher. metrics may be nil.
func NewHandler(
	store port.AssetReader,
	matcher *routing.Matcher,
	renderer Renderer,
	tasks *background.Group,
	logger *slog.Logger,
	metrics *edgemetrics.Metrics,
) *Handler {
	return &Handler{
		store:    store,
		matcher:  matcher,
		renderer: renderer,
		tasks:    tasks,
		logger:   logger,
		metrics:  metrics,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	event := newFetchEvent(r)
	response := h.Handle(r.Context(), event)

	if err := response.write(w); err != nil {
		h.logger.Warn("failed to write response", "error", err, "path", r.URL.Path)
	}

	event.release(r.Context(), h.tasks)
}

// Handle produces the response for event.Request without writing it.
func (h *Handler) Handle(ctx context.Context, event *FetchEvent) *Response {
	r := event.Request

	if h.matcher.Match(r.URL.Path) == routing.TargetStatic {
		if !safeMethod(r.Method) {
			h.observe(edgemetrics.OutcomeMethodNotAllowed)
			return methodNotAllowedResponse()
		}

		if response, ok := h.lookupStatic(ctx, r.URL.Path); ok {
			h.observe(edgemetrics.OutcomeStaticHit)
			return response
		}
		h.observe(edgemetrics.OutcomeStaticMiss)
	}

	rendered, err := h.render(ctx, event)
	if err != nil {
		h.observe(edgemetrics.OutcomeRenderError)
		return renderErrorResponse(err)
	}
	if rendered == nil {
		h.observe(edgemetrics.OutcomeNotFound)
		return notFoundResponse()
	}

	h.observe(edgemetrics.OutcomeRender)
	return fromRender(rendered)
}

// lookupStatic treats a store failure like a miss so the renderer still gets
// a chance to answer.
func (h *Handler) lookupStatic(ctx context.Context, path string) (*Response, bool) {
	body, err := h.store.GetAsset(ctx, strings.TrimPrefix(path, "/"))
	switch {
	case err == nil:
		return staticResponse(path, body), true
	case errors.Is(err, port.ErrAssetNotFound):
		return nil, false
	default:
		if h.metrics != nil {
			h.metrics.StoreErrors.Inc()
		}
		h.logger.Error("asset store lookup failed", "error", err, "path", path)
		return nil, false
	}
}

func (h *Handler) render(ctx context.Context, event *FetchEvent) (rendered *RenderResponse, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%v", recovered)
			h.logger.Error("render panicked",
				"error", err,
				"path", event.Request.URL.Path,
				"stack", string(debug.Stack()),
			)
		}
	}()

	req, err := newRenderRequest(event)
	if err != nil {
		h.logger.Error("failed to read request", "error", err, "path", event.Request.URL.Path)
		return nil, err
	}

	rendered, err = h.renderer.Render(ctx, req)
	if err != nil {
		h.logger.Error("render failed",
			"error", err,
			"path", req.Path,
			"method", req.Method,
		)
		return nil, err
	}
	return rendered, nil
}

func newRenderRequest(event *FetchEvent) (*RenderRequest, error) {
	r := event.Request

	headers := make(map[string]string, len(r.Header)+1)
	for key, values := range r.Header {
		headers[strings.ToLower(key)] = strings.Join(values, ", ")
	}
	if r.Host != "" {
		headers["host"] = r.Host
	}

	var rawBody []byte
	if r.Body != nil && r.Body != http.NoBody {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		rawBody = body
	}

	return &RenderRequest{
		Headers: headers,
		Host:    r.Host,
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.Query(),
		RawBody: rawBody,
		Event:   event,
	}, nil
}

func safeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func (h *Handler) observe(outcome string) {
	if h.metrics == nil {
		return
	}
	h.metrics.DispatchOutcomes.WithLabelValues(outcome).Inc()
}
