package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	edgemetrics "github.com/dreschagin/edge-adapter/internal/metrics"
)

type flakyResolver struct {
	err      error
	snapshot Snapshot
}

func (r *flakyResolver) Resolve(context.Context) (Snapshot, error) {
	return r.snapshot, r.err
}

func TestManagerRefresh(t *testing.T) {
	static, err := NewStaticResolver("http://render.internal:3000")
	if err != nil {
		t.Fatalf("NewStaticResolver() error = %v", err)
	}
	resolver := &flakyResolver{}
	resolver.snapshot, _ = static.Resolve(context.Background())

	metrics := edgemetrics.New(prometheus.NewRegistry(), "")
	manager := NewManager(resolver, 0, metrics)

	if _, ready := manager.Snapshot(); ready {
		t.Fatalf("manager must not be ready before the first refresh")
	}

	if err := manager.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	snapshot, ready := manager.Snapshot()
	if !ready || snapshot.OriginURL.String() != "http://render.internal:3000" {
		t.Fatalf("unexpected snapshot %+v ready=%v", snapshot, ready)
	}
	if snapshot.ResolvedAt.IsZero() {
		t.Fatalf("ResolvedAt must be set")
	}

	resolver.err = errors.New("api unavailable")
	if err := manager.Refresh(context.Background()); err == nil {
		t.Fatalf("expected refresh error")
	}
	if manager.Ready() {
		t.Fatalf("manager must not be ready after a failed refresh")
	}
	if !errors.Is(manager.LastError(), resolver.err) {
		t.Fatalf("LastError() = %v", manager.LastError())
	}
	if testutil.ToFloat64(metrics.DiscoveryRefreshes) != 2 || testutil.ToFloat64(metrics.DiscoveryErrors) != 1 {
		t.Fatalf("discovery counters not updated")
	}
}

func TestNewStaticResolverRejectsRelativeURL(t *testing.T) {
	if _, err := NewStaticResolver("render:3000/path"); err == nil {
		t.Fatalf("expected error for relative origin")
	}
}
