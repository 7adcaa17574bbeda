package routing

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dreschagin/edge-adapter/internal/assets"
)

// Target names where the dispatcher sends a request first.
type Target string

const (
	TargetStatic Target = "static"
	TargetRender Target = "render"
)

const DefaultAssetPrefix = "/" + assets.AppPrefix

// Matcher classifies request paths against the Static Path Set frozen at build time.
type Matcher struct {
	assetPrefix string
	static      *regexp.Regexp
}

// NewMatcher compiles pattern, the alternation produced by assets.Pattern.
// An empty pattern matches nothing beyond the asset prefix.
func NewMatcher(assetPrefix, pattern string) (*Matcher, error) {
	if assetPrefix == "" {
		assetPrefix = DefaultAssetPrefix
	}
	if !strings.HasPrefix(assetPrefix, "/") || !strings.HasSuffix(assetPrefix, "/") {
		return nil, fmt.Errorf("asset prefix %q must start and end with /", assetPrefix)
	}

	m := &Matcher{assetPrefix: assetPrefix}
	if pattern == "" {
		return m, nil
	}

	static, err := regexp.Compile(`^/(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("compile static path pattern: %w", err)
	}
	m.static = static
	return m, nil
}

// NewMatcherFromPaths builds a Matcher straight from a staged listing.
func NewMatcherFromPaths(assetPrefix string, paths []string) (*Matcher, error) {
	return NewMatcher(assetPrefix, assets.Pattern(paths))
}

// Match resolves an incoming path to the first stage that should handle it.
// A trailing slash always means render, even when the rest looks static.
func (m *Matcher) Match(path string) Target {
	switch {
	case strings.HasSuffix(path, "/"):
		return TargetRender
	case strings.HasPrefix(path, m.assetPrefix):
		return TargetStatic
	case m.static != nil && m.static.MatchString(path):
		return TargetStatic
	default:
		return TargetRender
	}
}
