// Package ratelimit throttles requests that would reach the renderer. Static
// asset hits are store reads and always pass.
package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	edgemetrics "github.com/dreschagin/edge-adapter/internal/metrics"
	"github.com/dreschagin/edge-adapter/internal/routing"
)

const (
	maxClients = 10_000
	clientIdle = 10 * time.Minute
)

// Classifier tells static asset paths from paths that render.
type Classifier interface {
	Match(path string) routing.Target
}

type Config struct {
	// RPS and Burst bound renders across all clients.
	RPS   float64
	Burst int
	// ClientRPS and ClientBurst bound renders per client. Zero falls back to
	// RPS and Burst.
	ClientRPS   float64
	ClientBurst int
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Limiter struct {
	matcher Classifier
	global  *rate.Limiter

	clientRPS   rate.Limit
	clientBurst int

	mu      sync.Mutex
	clients map[string]*client
	now     func() time.Time
}

func New(matcher Classifier, cfg Config) *Limiter {
	if cfg.ClientRPS <= 0 {
		cfg.ClientRPS = cfg.RPS
	}
	if cfg.ClientBurst <= 0 {
		cfg.ClientBurst = cfg.Burst
	}
	return &Limiter{
		matcher:     matcher,
		global:      rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		clientRPS:   rate.Limit(cfg.ClientRPS),
		clientBurst: cfg.ClientBurst,
		clients:     make(map[string]*client),
		now:         time.Now,
	}
}

// Middleware answers 429 with Retry-After when a render is over budget.
// metrics may be nil.
func (l *Limiter) Middleware(metrics *edgemetrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.exempt(r) {
			next.ServeHTTP(w, r)
			return
		}

		ok, wait := l.admit(clientKey(r), l.now())
		if !ok {
			if metrics != nil {
				metrics.RateLimitDropped.Inc()
			}
			w.Header().Set("Retry-After", retryAfter(wait))
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("429 Too Many Requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// exempt is true for requests the dispatcher answers from the store or with
// a 405, neither of which renders.
func (l *Limiter) exempt(r *http.Request) bool {
	return l.matcher != nil && l.matcher.Match(r.URL.Path) == routing.TargetStatic
}

// admit takes one token from the client and one from the global bucket, or
// none at all. A rejection by either bucket leaves the other untouched.
func (l *Limiter) admit(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.clientLocked(key, now)

	own := c.limiter.ReserveN(now, 1)
	if wait := own.DelayFrom(now); wait > 0 {
		own.CancelAt(now)
		return false, wait
	}

	shared := l.global.ReserveN(now, 1)
	if wait := shared.DelayFrom(now); wait > 0 {
		shared.CancelAt(now)
		own.CancelAt(now)
		return false, wait
	}
	return true, 0
}

func (l *Limiter) clientLocked(key string, now time.Time) *client {
	c, ok := l.clients[key]
	if !ok {
		if len(l.clients) >= maxClients {
			l.evictLocked(now.Add(-clientIdle))
		}
		c = &client{limiter: rate.NewLimiter(l.clientRPS, l.clientBurst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c
}

func (l *Limiter) evictLocked(idleBefore time.Time) {
	for key, c := range l.clients {
		if c.lastSeen.Before(idleBefore) {
			delete(l.clients, key)
		}
	}
}

func retryAfter(wait time.Duration) string {
	if wait == rate.InfDuration {
		return "3600"
	}
	seconds := int(math.Ceil(wait.Seconds()))
	return strconv.Itoa(min(max(seconds, 1), 3600))
}

// clientKey prefers the first X-Forwarded-For hop, as set by the load balancer
// in front of edge-host.
func clientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
