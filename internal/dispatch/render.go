package dispatch

import (
	"context"
	"net/url"
)

// RenderRequest is the plain-data view of an incoming request handed to the
// framework renderer.
type RenderRequest struct {
	// Headers holds lower-case names. Repeated headers are joined with ", ".
	Headers map[string]string
	Host    string
	Method  string
	Path    string
	Query   url.Values
	// RawBody is nil when the request carried no body.
	RawBody []byte
	Event   *FetchEvent
}

// RenderResponse is what a renderer produced for a route. Each header maps to
// one or more values; only set-cookie keeps them as separate header lines.
type RenderResponse struct {
	Status  int
	Headers map[string][]string
	Body    []byte
}

// Renderer turns a request into a response. A nil response with a nil error
// means the route does not exist.
type Renderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResponse, error)
}

type RenderFunc func(ctx context.Context, req *RenderRequest) (*RenderResponse, error)

func (f RenderFunc) Render(ctx context.Context, req *RenderRequest) (*RenderResponse, error) {
	return f(ctx, req)
}
