// Package render provides Renderers backed by a running framework server.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dreschagin/edge-adapter/internal/discovery"
	"github.com/dreschagin/edge-adapter/internal/dispatch"
	edgemetrics "github.com/dreschagin/edge-adapter/internal/metrics"
)

var ErrOriginNotReady = errors.New("render origin is not ready")

// OriginSource reports where the framework server currently lives.
type OriginSource interface {
	Snapshot() (discovery.Snapshot, bool)
}

var hopByHopHeaders = map[string]struct{}{
	"connection":          {},
	"keep-alive":          {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailer":             {},
	"transfer-encoding":   {},
	"upgrade":             {},
	"content-length":      {},
}

type UpstreamConfig struct {
	Timeout time.Duration
	// DeclineNotFound turns an origin 404 into "no route" so the dispatcher
	// answers with its own 404.
	DeclineNotFound bool
}

// Upstream renders by forwarding the request to the framework's SSR server.
type Upstream struct {
	origins         OriginSource
	client          *http.Client
	declineNotFound bool
	metrics         *edgemetrics.Metrics
}

var _ dispatch.Renderer = (*Upstream)(nil)

// NewUpstream builds an Upstream. metrics may be nil.
func NewUpstream(origins OriginSource, cfg UpstreamConfig, metrics *edgemetrics.Metrics) *Upstream {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: cfg.Timeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          200,
		MaxIdleConnsPerHost:   64,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
	}

	return &Upstream{
		origins: origins,
		client: &http.Client{
			Transport: transport,
			// Redirects belong to the browser.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		declineNotFound: cfg.DeclineNotFound,
		metrics:         metrics,
	}
}

func (u *Upstream) Render(ctx context.Context, req *dispatch.RenderRequest) (*dispatch.RenderResponse, error) {
	snapshot, ready := u.origins.Snapshot()
	if !ready || snapshot.OriginURL == nil {
		return nil, ErrOriginNotReady
	}

	outbound, err := u.newOriginRequest(ctx, snapshot.OriginURL, req)
	if err != nil {
		return nil, err
	}

	resp, err := u.client.Do(outbound)
	if err != nil {
		u.originError()
		return nil, fmt.Errorf("origin request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		u.originError()
		return nil, fmt.Errorf("read origin response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound && u.declineNotFound {
		return nil, nil
	}

	headers := make(map[string][]string, len(resp.Header))
	for key, values := range resp.Header {
		name := strings.ToLower(key)
		if _, skip := hopByHopHeaders[name]; skip {
			continue
		}
		headers[name] = append([]string(nil), values...)
	}

	return &dispatch.RenderResponse{
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    body,
	}, nil
}

func (u *Upstream) newOriginRequest(ctx context.Context, origin *url.URL, req *dispatch.RenderRequest) (*http.Request, error) {
	target := *origin
	target.Path = singleJoiningSlash(origin.Path, req.Path)
	target.RawQuery = req.Query.Encode()

	var body io.Reader
	if req.RawBody != nil {
		body = bytes.NewReader(req.RawBody)
	}

	outbound, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build origin request: %w", err)
	}

	for name, value := range req.Headers {
		if _, skip := hopByHopHeaders[name]; skip || name == "host" {
			continue
		}
		outbound.Header.Set(name, value)
	}
	if req.Host != "" {
		outbound.Header.Set("X-Forwarded-Host", req.Host)
	}
	outbound.Host = origin.Host
	return outbound, nil
}

func (u *Upstream) originError() {
	if u.metrics != nil {
		u.metrics.OriginErrors.Inc()
	}
}

func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}
