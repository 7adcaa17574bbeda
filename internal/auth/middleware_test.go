package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	edgemetrics "github.com/dreschagin/edge-adapter/internal/metrics"
)

func TestMiddleware(t *testing.T) {
	metrics := edgemetrics.New(prometheus.NewRegistry(), "")
	handler := Middleware("secret-token", []string{"/metrics"}, metrics, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		token      string
		path       string
		wantStatus int
	}{
		{name: "valid token", token: "Bearer secret-token", path: "/metrics", wantStatus: http.StatusOK},
		{name: "missing token", token: "", path: "/metrics", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", token: "Bearer wrong", path: "/metrics", wantStatus: http.StatusUnauthorized},
		{name: "page without token", token: "", path: "/blog/hello", wantStatus: http.StatusOK},
		{name: "asset without token", token: "", path: "/_app/start.js", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", tt.token)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestMiddlewareDisabledWithoutToken(t *testing.T) {
	metrics := edgemetrics.New(prometheus.NewRegistry(), "")
	handler := Middleware("", []string{"/metrics"}, metrics, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}
