package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizeRoute(t *testing.T) {
	m := New(prometheus.NewRegistry(), "/_app/")

	tests := map[string]string{
		"/":                  "/",
		"/healthz":           "/healthz",
		"/metrics":           "/metrics",
		"/_app/start-abc.js": "/_app/*",
		"/blog/hello-world":  "other",
		"/robots.txt":        "other",
	}

	for path, want := range tests {
		if got := m.normalizeRoute(path); got != want {
			t.Fatalf("normalizeRoute(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	m := New(prometheus.NewRegistry(), "")
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/_app/a.js", nil))

	got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/_app/*", http.MethodPost, "405"))
	if got != 1 {
		t.Fatalf("requests counter = %v, want 1", got)
	}
}
