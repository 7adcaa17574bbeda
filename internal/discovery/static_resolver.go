package discovery

import (
	"context"
	"fmt"
	"net/url"
)

// StaticResolver keeps a fixed origin URL for non-cluster environments.
type StaticResolver struct {
	originURL *url.URL
}

func NewStaticResolver(originURL string) (*StaticResolver, error) {
	parsed, err := url.Parse(originURL)
	if err != nil {
		return nil, fmt.Errorf("parse RENDER_ORIGIN_URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("RENDER_ORIGIN_URL must be absolute, got %q", originURL)
	}

	return &StaticResolver{originURL: parsed}, nil
}

func (r *StaticResolver) Resolve(_ context.Context) (Snapshot, error) {
	return Snapshot{OriginURL: r.originURL}, nil
}
